package eventstore_test

import (
	"context"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeDB is a minimal in-memory sqlc.DBTX stand-in. The pack has no
// pgxmock dependency, so each test supplies closures that return the rows
// for the real query strings; the fake itself never inspects the SQL.
type fakeDB struct {
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	queryFn    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if f.execFn != nil {
		return f.execFn(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if f.queryFn != nil {
		return f.queryFn(ctx, sql, args...)
	}
	return nil, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return f.queryRowFn(ctx, sql, args...)
}

// fakeRow implements pgx.Row by scanning values positionally into the
// dest pointers passed to Scan, in order.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		if i >= len(r.values) {
			continue
		}
		assign(d, r.values[i])
	}
	return nil
}

// assign copies src into the pointer dst via reflection, since Scan's
// destinations span int64, string, time.Time and pgtype wrapper structs.
func assign(dst, src any) {
	dv := reflect.ValueOf(dst).Elem()
	dv.Set(reflect.ValueOf(src))
}
