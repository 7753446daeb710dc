// Package eventstore appends and replays the WorldEvent/SystemDecision/
// TelemetryEvent log that every other Scout component derives its state
// from. It is a thin typed wrapper over core/db/sqlc: encoding is the only
// business this package is in.
package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rootsignal/scout/core/db/sqlc"
	"github.com/rootsignal/scout/internal/domain"
)

// ErrNotFound is returned when a lookup by sequence or run finds nothing.
var ErrNotFound = errors.New("eventstore: not found")

// Store appends events and replays them back out in sequence order.
type Store struct {
	q *sqlc.Queries
}

func New(q *sqlc.Queries) *Store {
	return &Store{q: q}
}

// Append encodes payload as JSON and writes a new event row, returning the
// stored event with its assigned sequence number. Callers pass RunID/
// ParentSeq to thread a causal chain (e.g. a SignalExtracted event parented
// by the SourceScraped event that produced it).
func (s *Store) Append(ctx context.Context, regionID string, typ domain.Type, payload any, runID *string, parentSeq *int64) (domain.Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return domain.Event{}, fmt.Errorf("eventstore: marshal %s payload: %w", typ, err)
	}

	arg := sqlc.AppendEventParams{
		TS:       pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true},
		Type:     string(typ),
		Payload:  raw,
		RegionID: regionID,
	}
	if runID != nil {
		arg.RunID = pgtype.Text{String: *runID, Valid: true}
	}
	if parentSeq != nil {
		arg.ParentSeq = pgtype.Int8{Int64: *parentSeq, Valid: true}
	}

	row, err := s.q.AppendEvent(ctx, arg)
	if err != nil {
		return domain.Event{}, fmt.Errorf("eventstore: append %s: %w", typ, err)
	}
	return fromRow(row), nil
}

// ReadFrom replays events for a region starting at fromSeq (inclusive), in
// ascending sequence order, up to limit rows. Pass fromSeq=0 to replay the
// full log for a fresh GraphProjector rebuild.
func (s *Store) ReadFrom(ctx context.Context, regionID string, fromSeq int64, limit int32) ([]domain.Event, error) {
	rows, err := s.q.ListEventsFrom(ctx, regionID, fromSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("eventstore: read from %d: %w", fromSeq, err)
	}
	return fromRows(rows), nil
}

// ReadByParent returns every event causally descended from parentSeq, in
// the order they were appended. Used to reconstruct the provenance chain
// behind a signal (SourceScraped -> SignalExtracted -> SignalStored).
func (s *Store) ReadByParent(ctx context.Context, parentSeq int64) ([]domain.Event, error) {
	rows, err := s.q.ListEventsByParent(ctx, parentSeq)
	if err != nil {
		return nil, fmt.Errorf("eventstore: read by parent %d: %w", parentSeq, err)
	}
	return fromRows(rows), nil
}

// ReadByRun returns every event appended during a single Scout run, in
// sequence order. Used by `scout --replay <run_id>` and by post-run audits.
func (s *Store) ReadByRun(ctx context.Context, runID string) ([]domain.Event, error) {
	rows, err := s.q.ListEventsByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("eventstore: read by run %s: %w", runID, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return fromRows(rows), nil
}

func fromRow(r sqlc.Event) domain.Event {
	e := domain.Event{
		Seq:      r.Seq,
		TS:       r.TS,
		Type:     domain.Type(r.Type),
		Payload:  append(json.RawMessage(nil), r.Payload...),
		RegionID: r.RegionID,
	}
	if r.ParentSeq.Valid {
		v := r.ParentSeq.Int64
		e.ParentSeq = &v
	}
	if r.RunID.Valid {
		v := r.RunID.String
		e.RunID = &v
	}
	return e
}

func fromRows(rows []sqlc.Event) []domain.Event {
	out := make([]domain.Event, len(rows))
	for i, r := range rows {
		out[i] = fromRow(r)
	}
	return out
}
