package store_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rootsignal/scout/common/arangodb"
	"github.com/rootsignal/scout/core/db/sqlc"
	"github.com/rootsignal/scout/internal/eventstore"
	"github.com/rootsignal/scout/internal/graph"
	"github.com/rootsignal/scout/internal/model"
	"github.com/rootsignal/scout/internal/store"
)

// fakeClient is a minimal in-memory arangodb.Client, same shape as the one
// in internal/graph's tests.
type fakeClient struct {
	docs map[string]map[string]map[string]any
	seq  int64
}

func newFakeClient() *fakeClient {
	return &fakeClient{docs: map[string]map[string]map[string]any{}}
}

func (f *fakeClient) EnsureDatabase(ctx context.Context) error { return nil }
func (f *fakeClient) EnsureCollections(ctx context.Context, s []arangodb.CollectionSpec) error {
	return nil
}
func (f *fakeClient) EnsureGraph(ctx context.Context, name string, e []arangodb.EdgeDefinition) error {
	return nil
}
func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) Upsert(ctx context.Context, collection, key string, doc map[string]any) error {
	if f.docs[collection] == nil {
		f.docs[collection] = map[string]map[string]any{}
	}
	cp := make(map[string]any, len(doc))
	for k, v := range doc {
		cp[k] = v
	}
	f.docs[collection][key] = cp
	return nil
}

func (f *fakeClient) UpsertMany(ctx context.Context, collection string, docs []map[string]any) error {
	for _, d := range docs {
		if err := f.Upsert(ctx, collection, d["_key"].(string), d); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeClient) Get(ctx context.Context, collection, key string, out any) error {
	doc, ok := f.docs[collection][key]
	if !ok {
		return arangodb.ErrNotFound
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (f *fakeClient) Exists(ctx context.Context, collection, key string) (bool, error) {
	_, ok := f.docs[collection][key]
	return ok, nil
}

// Query implements a narrow subset: it just returns every document in the
// filtered collection, since the fake has no AQL interpreter. Tests that
// need FILTER semantics filter in Go after the call instead.
func (f *fakeClient) Query(ctx context.Context, aql string, bindVars map[string]any, out any) error {
	collName, _ := bindVars["@coll"].(string)
	docs := f.docs[collName]
	raws := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		raws = append(raws, d)
	}
	raw, err := json.Marshal(raws)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// fakeDB is a minimal sqlc.DBTX that assigns sequential sequence numbers,
// enough to drive eventstore.Store.Append/emitAndApply for the store tests.
type fakeDB struct{ seq int64 }

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.seq++
	return fakeRow{seq: f.seq, args: args}
}

type fakeRow struct {
	seq  int64
	args []any
}

func (r fakeRow) Scan(dest ...any) error {
	*(dest[0].(*int64)) = r.seq
	*(dest[1].(*time.Time)) = r.args[0].(pgtype.Timestamptz).Time
	*(dest[2].(*string)) = r.args[1].(string)
	*(dest[3].(*[]byte)) = r.args[2].([]byte)
	*(dest[4].(*pgtype.Int8)) = r.args[3].(pgtype.Int8)
	*(dest[5].(*pgtype.Text)) = r.args[4].(pgtype.Text)
	*(dest[6].(*string)) = r.args[5].(string)
	return nil
}

func newTestStore() (*store.Store, *fakeClient) {
	client := newFakeClient()
	db := &fakeDB{}
	es := eventstore.New(sqlc.New(db))
	proj := graph.New(client)
	return store.New(es, proj, client), client
}

func TestSourceUpsertThenGetRoundTrips(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	src := model.Source{ID: "src-1", RegionID: "sf-bay", CanonicalKey: "example.org", Active: true, Weight: 0.5, CadenceHours: 24}
	if err := s.UpsertSource(ctx, "run-1", src); err != nil {
		t.Fatalf("UpsertSource: %v", err)
	}

	got, err := s.GetSource(ctx, "src-1")
	if err != nil {
		t.Fatalf("GetSource: %v", err)
	}
	if got.CanonicalKey != "example.org" {
		t.Fatalf("CanonicalKey = %q, want example.org", got.CanonicalKey)
	}
}

func TestFindSimilarRanksByCosineDescending(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	near := model.Signal{ID: "sig-near", RegionID: "sf-bay", Kind: model.KindNeed, Embedding: model.Vector{1, 0, 0}}
	far := model.Signal{ID: "sig-far", RegionID: "sf-bay", Kind: model.KindNeed, Embedding: model.Vector{0, 1, 0}}
	if err := s.Create(ctx, "run-1", near); err != nil {
		t.Fatalf("create near: %v", err)
	}
	if err := s.Create(ctx, "run-1", far); err != nil {
		t.Fatalf("create far: %v", err)
	}

	results, err := s.FindSimilar(ctx, model.Vector{1, 0, 0}, model.KindNeed, "sf-bay", 2)
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].ID != "sig-near" {
		t.Fatalf("results[0].ID = %q, want sig-near", results[0].ID)
	}
}
