// Package budget enforces the daily cost cap shared by a Scout run's
// LLM calls, embeddings, and web searches. The running total lives in
// Redis so a cap holds across runs within the same day.
package budget

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrExhausted is returned when an operation's estimated cost would push
// the day's total spend past the cap.
var ErrExhausted = errors.New("budget: exhausted")

// Tracker debits estimated operation costs against a daily cap, backed by
// one Redis key per UTC day, so the total starts over at UTC midnight; each
// key expires 48 hours after its last debit.
type Tracker struct {
	rdb      *redis.Client
	capCents int64
	keyFn    func(time.Time) string
}

// New builds a Tracker. capCents <= 0 means unlimited (DAILY_BUDGET_CENTS=0
// per the recognized-options table): Spend always succeeds and Remaining
// reports math.MaxInt64 rather than treating a zero cap as already blown.
func New(rdb *redis.Client, capCents int64) *Tracker {
	return &Tracker{rdb: rdb, capCents: capCents, keyFn: dailyKey}
}

func dailyKey(t time.Time) string {
	return fmt.Sprintf("scout:budget:%s", t.UTC().Format("2006-01-02"))
}

// Spend atomically adds costCents to today's running total, returning
// ErrExhausted (without applying the debit) if it would exceed the cap.
// Mirrors the WATCH/MULTI optimistic-retry pattern the teacher's redis
// queue producer uses for exactly-once enqueue.
func (t *Tracker) Spend(ctx context.Context, costCents int64) error {
	if t.capCents <= 0 {
		return nil
	}
	key := t.keyFn(time.Now())

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("read budget counter: %w", err)
		}
		if current+costCents > t.capCents {
			return ErrExhausted
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.IncrBy(ctx, key, costCents)
			pipe.Expire(ctx, key, 48*time.Hour)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < 3; attempt++ {
		err := t.rdb.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrExhausted) {
			return ErrExhausted
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("budget: spend: %w", err)
	}
	return fmt.Errorf("budget: spend: too many retries")
}

// Remaining reports the cap minus today's running total, for agents that
// skip gracefully rather than attempt a spend they know will fail.
func (t *Tracker) Remaining(ctx context.Context) (int64, error) {
	if t.capCents <= 0 {
		return math.MaxInt64, nil
	}
	key := t.keyFn(time.Now())
	current, err := t.rdb.Get(ctx, key).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("budget: remaining: %w", err)
	}
	remaining := t.capCents - current
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// HasBudget reports whether estimatedCostCents would currently fit under
// the cap, without debiting anything. Agents use this for the FSM's
// has_budget? check before committing to a Plan/Search cycle.
func (t *Tracker) HasBudget(ctx context.Context, estimatedCostCents int64) (bool, error) {
	remaining, err := t.Remaining(ctx)
	if err != nil {
		return false, err
	}
	return estimatedCostCents <= remaining, nil
}
