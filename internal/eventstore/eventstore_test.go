package eventstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rootsignal/scout/core/db/sqlc"
	"github.com/rootsignal/scout/internal/domain"
	"github.com/rootsignal/scout/internal/eventstore"
)

func TestAppendAssignsSequenceAndRoundTripsPayload(t *testing.T) {
	now := time.Now().UTC()
	db := &fakeDB{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return fakeRow{values: []any{
				int64(1),
				now,
				string(domain.TypeSourceScraped),
				args[2].([]byte),
				pgtype.Int8{},
				args[4].(pgtype.Text),
				args[5].(string),
			}}
		},
	}
	store := eventstore.New(sqlc.New(db))

	runID := "run-1"
	payload := domain.SourceScrapedPayload{SourceID: "src-1", Success: true, Status: "ok", ScrapedAt: now}
	ev, err := store.Append(context.Background(), "sf-bay", domain.TypeSourceScraped, payload, &runID, nil)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if ev.Seq != 1 {
		t.Fatalf("Seq = %d, want 1", ev.Seq)
	}
	if ev.RegionID != "sf-bay" {
		t.Fatalf("RegionID = %q, want sf-bay", ev.RegionID)
	}
	if ev.RunID == nil || *ev.RunID != "run-1" {
		t.Fatalf("RunID = %v, want run-1", ev.RunID)
	}

	var decoded domain.SourceScrapedPayload
	if err := eventstore.Decode(ev, &decoded); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.SourceID != "src-1" || !decoded.Success {
		t.Fatalf("decoded payload mismatch: %+v", decoded)
	}
}

func TestReadByRunReturnsErrNotFoundWhenEmpty(t *testing.T) {
	db := &fakeDB{
		queryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return emptyRows{}, nil
		},
	}
	store := eventstore.New(sqlc.New(db))

	_, err := store.ReadByRun(context.Background(), "run-missing")
	if err != eventstore.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

// emptyRows implements pgx.Rows with no rows, for the ReadByRun not-found path.
type emptyRows struct{ pgx.Rows }

func (emptyRows) Next() bool    { return false }
func (emptyRows) Err() error    { return nil }
func (emptyRows) Close()        {}
