// Package lock guards a region against concurrent Scout runs using a
// leased row in Postgres: a Scout run acquires the lease for the
// duration of the run, and a crashed run's lease expires on its own.
package lock

import (
	"context"
	"errors"
	"fmt"

	"github.com/rootsignal/scout/core/db/sqlc"
)

// ErrRunInProgress is returned by Acquire when another run already holds a
// live lease on the region.
var ErrRunInProgress = errors.New("lock: run in progress")

type Lock struct {
	q *sqlc.Queries
}

func New(q *sqlc.Queries) *Lock {
	return &Lock{q: q}
}

// Acquire takes the region's lease for leaseSeconds, failing with
// ErrRunInProgress if a live lease is already held by a different run.
func (l *Lock) Acquire(ctx context.Context, regionID, runID string, leaseSeconds int) error {
	_, err := l.q.AcquireRegionLock(ctx, regionID, runID, leaseSeconds)
	if errors.Is(err, sqlc.ErrNoRows) {
		return ErrRunInProgress
	}
	if err != nil {
		return fmt.Errorf("lock: acquire %s: %w", regionID, err)
	}
	return nil
}

// Release drops the lease early, letting the next scheduled run start
// without waiting out the full lease window.
func (l *Lock) Release(ctx context.Context, regionID, runID string) error {
	if err := l.q.ReleaseRegionLock(ctx, regionID, runID); err != nil {
		return fmt.Errorf("lock: release %s: %w", regionID, err)
	}
	return nil
}
