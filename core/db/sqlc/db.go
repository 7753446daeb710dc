// Package sqlc is a hand-authored query layer in the shape the sqlc code
// generator would emit for this schema: a DBTX interface accepted by both
// *pgxpool.Pool and pgx.Tx, a Queries struct wrapping it, and one typed
// method plus Params/Row struct per statement. The actual generated
// package was not available to retrieve; this package matches the call
// sites the rest of the tree expects (see DESIGN.md).
package sqlc

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx, letting Queries run either
// against the pool directly or inside db.DB.WithTx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}
