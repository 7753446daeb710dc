package sqlc

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

var ErrNoRows = pgx.ErrNoRows

// --- events -----------------------------------------------------------

type AppendEventParams struct {
	TS        pgtype.Timestamptz
	Type      string
	Payload   []byte
	ParentSeq pgtype.Int8
	RunID     pgtype.Text
	RegionID  string
}

func (q *Queries) AppendEvent(ctx context.Context, arg AppendEventParams) (Event, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO events (ts, type, payload, parent_seq, run_id, region_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq, ts, type, payload, parent_seq, run_id, region_id
	`, arg.TS, arg.Type, arg.Payload, arg.ParentSeq, arg.RunID, arg.RegionID)
	return scanEvent(row)
}

func (q *Queries) ListEventsFrom(ctx context.Context, regionID string, fromSeq int64, limit int32) ([]Event, error) {
	rows, err := q.db.Query(ctx, `
		SELECT seq, ts, type, payload, parent_seq, run_id, region_id
		FROM events
		WHERE region_id = $1 AND seq >= $2
		ORDER BY seq ASC
		LIMIT $3
	`, regionID, fromSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("list events from %d: %w", fromSeq, err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func (q *Queries) ListEventsByParent(ctx context.Context, parentSeq int64) ([]Event, error) {
	rows, err := q.db.Query(ctx, `
		SELECT seq, ts, type, payload, parent_seq, run_id, region_id
		FROM events WHERE parent_seq = $1 ORDER BY seq ASC
	`, parentSeq)
	if err != nil {
		return nil, fmt.Errorf("list events by parent %d: %w", parentSeq, err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func (q *Queries) ListEventsByRun(ctx context.Context, runID string) ([]Event, error) {
	rows, err := q.db.Query(ctx, `
		SELECT seq, ts, type, payload, parent_seq, run_id, region_id
		FROM events WHERE run_id = $1 ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list events by run %s: %w", runID, err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func scanEvent(row pgx.Row) (Event, error) {
	var e Event
	err := row.Scan(&e.Seq, &e.TS, &e.Type, &e.Payload, &e.ParentSeq, &e.RunID, &e.RegionID)
	if err != nil {
		return Event{}, err
	}
	return e, nil
}

func collectEvents(rows pgx.Rows) ([]Event, error) {
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Seq, &e.TS, &e.Type, &e.Payload, &e.ParentSeq, &e.RunID, &e.RegionID); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- scout_runs ---------------------------------------------------------

type CreateScoutRunParams struct {
	RunID  string
	Region string
}

func (q *Queries) CreateScoutRun(ctx context.Context, arg CreateScoutRunParams) (ScoutRun, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO scout_runs (run_id, region, started_at, status)
		VALUES ($1, $2, now(), 'running')
		RETURNING run_id, region, started_at, finished_at, status, stats
	`, arg.RunID, arg.Region)
	var r ScoutRun
	err := row.Scan(&r.RunID, &r.Region, &r.StartedAt, &r.FinishedAt, &r.Status, &r.Stats)
	return r, err
}

type FinishScoutRunParams struct {
	RunID  string
	Status string
	Stats  []byte
}

func (q *Queries) FinishScoutRun(ctx context.Context, arg FinishScoutRunParams) error {
	_, err := q.db.Exec(ctx, `
		UPDATE scout_runs SET finished_at = now(), status = $2, stats = $3 WHERE run_id = $1
	`, arg.RunID, arg.Status, arg.Stats)
	return err
}

func (q *Queries) GetScoutRun(ctx context.Context, runID string) (ScoutRun, error) {
	row := q.db.QueryRow(ctx, `
		SELECT run_id, region, started_at, finished_at, status, stats
		FROM scout_runs WHERE run_id = $1
	`, runID)
	var r ScoutRun
	err := row.Scan(&r.RunID, &r.Region, &r.StartedAt, &r.FinishedAt, &r.Status, &r.Stats)
	if errors.Is(err, pgx.ErrNoRows) {
		return ScoutRun{}, ErrNoRows
	}
	return r, err
}

// --- url_scrape_stats -----------------------------------------------------

type UpsertURLScrapeStatParams struct {
	URL          string
	Success      bool
	FailureDelta int32
	LastHash     pgtype.Text
}

func (q *Queries) UpsertURLScrapeStat(ctx context.Context, arg UpsertURLScrapeStatParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO url_scrape_stats (url, last_scraped_at, success, failure_count, last_hash)
		VALUES ($1, now(), $2, CASE WHEN $2 THEN 0 ELSE 1 END, $4)
		ON CONFLICT (url) DO UPDATE SET
			last_scraped_at = now(),
			success = $2,
			failure_count = CASE WHEN $2 THEN 0 ELSE url_scrape_stats.failure_count + 1 END,
			last_hash = COALESCE($4, url_scrape_stats.last_hash)
	`, arg.URL, arg.Success, arg.FailureDelta, arg.LastHash)
	return err
}

func (q *Queries) GetURLScrapeStat(ctx context.Context, url string) (URLScrapeStat, error) {
	row := q.db.QueryRow(ctx, `
		SELECT url, last_scraped_at, success, failure_count, suppressed_until, last_hash
		FROM url_scrape_stats WHERE url = $1
	`, url)
	var s URLScrapeStat
	err := row.Scan(&s.URL, &s.LastScrapedAt, &s.Success, &s.FailureCount, &s.SuppressedUntil, &s.LastHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return URLScrapeStat{}, ErrNoRows
	}
	return s, err
}

// --- embedding_cache ------------------------------------------------------

func (q *Queries) GetEmbeddingCache(ctx context.Context, contentHash string) (EmbeddingCacheRow, error) {
	row := q.db.QueryRow(ctx, `
		SELECT content_hash, embedding, model, created_at FROM embedding_cache WHERE content_hash = $1
	`, contentHash)
	var r EmbeddingCacheRow
	err := row.Scan(&r.ContentHash, &r.Embedding, &r.Model, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return EmbeddingCacheRow{}, ErrNoRows
	}
	return r, err
}

type PutEmbeddingCacheParams struct {
	ContentHash string
	Embedding   []byte
	Model       string
}

func (q *Queries) PutEmbeddingCache(ctx context.Context, arg PutEmbeddingCacheParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO embedding_cache (content_hash, embedding, model, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (content_hash) DO NOTHING
	`, arg.ContentHash, arg.Embedding, arg.Model)
	return err
}

// --- region_locks -----------------------------------------------------

// AcquireRegionLock takes the lock row iff no live lease exists, returning
// ErrNoRows if the region is currently locked by another run.
func (q *Queries) AcquireRegionLock(ctx context.Context, regionID, runID string, leaseSeconds int) (RegionLock, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO region_locks (region_id, run_id, lease_expires_at)
		VALUES ($1, $2, now() + make_interval(secs => $3))
		ON CONFLICT (region_id) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			lease_expires_at = EXCLUDED.lease_expires_at
		WHERE region_locks.lease_expires_at < now()
		RETURNING region_id, run_id, lease_expires_at
	`, regionID, runID, leaseSeconds)
	var l RegionLock
	err := row.Scan(&l.RegionID, &l.RunID, &l.LeaseExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return RegionLock{}, ErrNoRows
	}
	return l, err
}

func (q *Queries) ReleaseRegionLock(ctx context.Context, regionID, runID string) error {
	_, err := q.db.Exec(ctx, `
		DELETE FROM region_locks WHERE region_id = $1 AND run_id = $2
	`, regionID, runID)
	return err
}

// --- validation_issues --------------------------------------------------

type CreateValidationIssueParams struct {
	Region    string
	IssueType string
	Severity  string
	TargetID  string
	Detail    pgtype.Text
}

func (q *Queries) CreateValidationIssue(ctx context.Context, arg CreateValidationIssueParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO validation_issues (region, issue_type, severity, target_id, status, detail, created_at)
		VALUES ($1, $2, $3, $4, 'open', $5, now())
	`, arg.Region, arg.IssueType, arg.Severity, arg.TargetID, arg.Detail)
	return err
}
