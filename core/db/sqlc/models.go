package sqlc

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Event is a single append-only log row. Payload is raw JSONB; callers
// decode it into the domain.Event payload types keyed by Type.
type Event struct {
	Seq       int64
	TS        time.Time
	Type      string
	Payload   []byte
	ParentSeq pgtype.Int8
	RunID     pgtype.Text
	RegionID  string
}

type ScoutRun struct {
	RunID      string
	Region     string
	StartedAt  time.Time
	FinishedAt pgtype.Timestamptz
	Status     pgtype.Text
	Stats      []byte
}

type URLScrapeStat struct {
	URL             string
	LastScrapedAt   pgtype.Timestamptz
	Success         bool
	FailureCount    int32
	SuppressedUntil pgtype.Timestamptz
	LastHash        pgtype.Text
}

type EmbeddingCacheRow struct {
	ContentHash string
	Embedding   []byte
	Model       string
	CreatedAt   time.Time
}

type RegionLock struct {
	RegionID       string
	RunID          string
	LeaseExpiresAt time.Time
}

type ValidationIssue struct {
	ID        int64
	Region    string
	IssueType string
	Severity  string
	TargetID  string
	Status    string
	Detail    pgtype.Text
	CreatedAt time.Time
}
