package lock_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rootsignal/scout/core/db/sqlc"
	"github.com/rootsignal/scout/internal/lock"
)

type fakeDB struct {
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if f.execFn != nil {
		return f.execFn(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}
func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) { return nil, nil }
func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return f.queryRowFn(ctx, sql, args...)
}

type noRowsRow struct{}

func (noRowsRow) Scan(dest ...any) error { return pgx.ErrNoRows }

type okRow struct {
	regionID, runID string
}

func (r okRow) Scan(dest ...any) error {
	*(dest[0].(*string)) = r.regionID
	*(dest[1].(*string)) = r.runID
	return nil
}

func TestAcquireReturnsRunInProgressWhenLeaseHeld(t *testing.T) {
	db := &fakeDB{queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
		return noRowsRow{}
	}}
	l := lock.New(sqlc.New(db))

	err := l.Acquire(context.Background(), "sf-bay", "run-1", 7200)
	if err != lock.ErrRunInProgress {
		t.Fatalf("err = %v, want ErrRunInProgress", err)
	}
}

func TestAcquireSucceedsWhenNoLiveLease(t *testing.T) {
	db := &fakeDB{queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
		return okRow{regionID: "sf-bay", runID: "run-1"}
	}}
	l := lock.New(sqlc.New(db))

	if err := l.Acquire(context.Background(), "sf-bay", "run-1", 7200); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
}
