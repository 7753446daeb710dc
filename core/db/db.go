package db

import (
	"context"
	"fmt"

	"github.com/rootsignal/scout/core/db/sqlc"
	"github.com/jackc/pgx/v5/pgxpool"
)

// defaultMaxConns and defaultMinConns apply when a Config leaves its pool
// size fields at zero, sized for the small ancillary Postgres footprint
// (event log, run/lock bookkeeping, embedding cache) rather than a
// high-traffic relational workload.
const (
	defaultMaxConns = 10
	defaultMinConns = 2
)

// DB wraps the Postgres connection pool backing the event log and the
// small relational tables the graph never needs to traverse: scout_runs,
// url_scrape_stats, embedding_cache, region_locks, validation_issues.
type DB struct {
	pool *pgxpool.Pool
}

// Config configures the connection pool. DSN is expected to already carry
// sslmode; core/config.buildDSN sets it from DATABASE_SSLMODE.
type Config struct {
	DSN      string
	MaxConns int32
	MinConns int32
}

// New opens the pool and verifies connectivity with a ping before
// returning, so a bad DSN fails fast at startup rather than on the first
// query a run happens to issue.
func New(ctx context.Context, cfg Config) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("db: parse config: %w", err)
	}

	poolCfg.MaxConns = defaultMaxConns
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	poolCfg.MinConns = defaultMinConns
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("db: open pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}

	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

// Queries returns a Queries handle bound to the pool directly, for
// operations that don't need transactional atomicity across statements.
func (db *DB) Queries() *sqlc.Queries {
	return sqlc.New(db.pool)
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back otherwise. Not currently called by any SPEC_FULL.md component --
// every existing multi-table write (event append, run/lock bookkeeping)
// is a single statement -- kept for the next one that isn't.
func (db *DB) WithTx(ctx context.Context, fn func(q *sqlc.Queries) error) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("db: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	q := sqlc.New(tx)
	if err := fn(q); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("db: commit tx: %w", err)
	}
	return nil
}
