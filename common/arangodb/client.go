// Package arangodb wraps the ArangoDB go-driver with the subset of
// operations the graph projector and signal store need: schema setup,
// document/edge upsert, and AQL execution with typed row scanning.
package arangodb

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/connection"
)

var ErrNotFound = errors.New("document not found")

// Client is a thin, schema-agnostic wrapper over an ArangoDB database.
// Callers own collection names, document shapes, and AQL text; the client
// owns connection setup and document/query plumbing.
type Client interface {
	EnsureDatabase(ctx context.Context) error
	EnsureCollections(ctx context.Context, specs []CollectionSpec) error
	EnsureGraph(ctx context.Context, name string, edges []EdgeDefinition) error

	// Upsert inserts doc under _key; if a document with that key already
	// exists it is replaced wholesale, so fields absent from doc are dropped.
	Upsert(ctx context.Context, collection, key string, doc map[string]any) error
	UpsertMany(ctx context.Context, collection string, docs []map[string]any) error
	Get(ctx context.Context, collection, key string, out any) error
	Exists(ctx context.Context, collection, key string) (bool, error)

	// Query runs an AQL statement and decodes each result row into a new
	// element of the slice out points to.
	Query(ctx context.Context, aql string, bindVars map[string]any, out any) error

	Close() error
}

type Config struct {
	URL      string
	Username string
	Password string
	Database string
}

func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("arangodb URL is required")
	}
	if c.Username == "" {
		return fmt.Errorf("arangodb username is required")
	}
	if c.Database == "" {
		return fmt.Errorf("arangodb database name is required")
	}
	return nil
}

type client struct {
	conn         connection.Connection
	arangoClient arangodb.Client
	db           arangodb.Database
	cfg          Config
}

func New(ctx context.Context, cfg Config) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("arangodb config: %w", err)
	}

	endpoint := connection.NewRoundRobinEndpoints([]string{cfg.URL})
	conn := connection.NewHttp2Connection(connection.DefaultHTTP2ConfigurationWrapper(endpoint, true))

	auth := connection.NewBasicAuth(cfg.Username, cfg.Password)
	if err := conn.SetAuthentication(auth); err != nil {
		return nil, fmt.Errorf("arangodb auth: %w", err)
	}

	return &client{
		conn:         conn,
		arangoClient: arangodb.NewClient(conn),
		cfg:          cfg,
	}, nil
}

func (c *client) Close() error { return nil }

func (c *client) EnsureDatabase(ctx context.Context) error {
	start := time.Now()

	exists, err := c.arangoClient.DatabaseExists(ctx, c.cfg.Database)
	if err != nil {
		return fmt.Errorf("check database exists: %w", err)
	}

	if !exists {
		if _, err := c.arangoClient.CreateDatabase(ctx, c.cfg.Database, nil); err != nil {
			return fmt.Errorf("create database: %w", err)
		}
		slog.InfoContext(ctx, "arangodb database created",
			"database", c.cfg.Database,
			"duration_ms", time.Since(start).Milliseconds())
	}

	db, err := c.arangoClient.GetDatabase(ctx, c.cfg.Database, nil)
	if err != nil {
		return fmt.Errorf("get database: %w", err)
	}
	c.db = db
	return nil
}

func (c *client) EnsureCollections(ctx context.Context, specs []CollectionSpec) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized, call EnsureDatabase first")
	}

	for _, spec := range specs {
		if err := c.ensureCollection(ctx, spec); err != nil {
			return err
		}
	}
	return nil
}

func (c *client) ensureCollection(ctx context.Context, spec CollectionSpec) error {
	exists, err := c.db.CollectionExists(ctx, spec.Name)
	if err != nil {
		return fmt.Errorf("check collection %s exists: %w", spec.Name, err)
	}

	if !exists {
		props := &arangodb.CreateCollectionPropertiesV2{}
		colType := arangodb.CollectionTypeDocument
		if spec.IsEdge {
			colType = arangodb.CollectionTypeEdge
		}
		props.Type = &colType

		if _, err := c.db.CreateCollectionV2(ctx, spec.Name, props); err != nil {
			return fmt.Errorf("create collection %s: %w", spec.Name, err)
		}
		slog.InfoContext(ctx, "arangodb collection created", "collection", spec.Name, "is_edge", spec.IsEdge)
	}

	col, err := c.db.GetCollection(ctx, spec.Name, nil)
	if err != nil {
		return fmt.Errorf("get collection %s: %w", spec.Name, err)
	}

	for _, fields := range spec.Indexes {
		name := "idx_" + fields[0]
		_, isNew, err := col.EnsurePersistentIndex(ctx, fields, &arangodb.CreatePersistentIndexOptions{Name: name})
		if err != nil {
			return fmt.Errorf("ensure index %v on %s: %w", fields, spec.Name, err)
		}
		if isNew {
			slog.InfoContext(ctx, "arangodb index created", "collection", spec.Name, "index", name)
		}
	}

	return nil
}

func (c *client) EnsureGraph(ctx context.Context, name string, edges []EdgeDefinition) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized, call EnsureDatabase first")
	}

	exists, err := c.db.GraphExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check graph exists: %w", err)
	}
	if exists {
		return nil
	}

	defs := make([]arangodb.EdgeDefinition, len(edges))
	for i, e := range edges {
		defs[i] = arangodb.EdgeDefinition{Collection: e.Collection, From: e.From, To: e.To}
	}

	graphDef := &arangodb.GraphDefinition{Name: name, EdgeDefinitions: defs}
	if _, err := c.db.CreateGraph(ctx, name, graphDef, nil); err != nil {
		return fmt.Errorf("create graph %s: %w", name, err)
	}

	slog.InfoContext(ctx, "arangodb graph created", "graph", name)
	return nil
}

func (c *client) Upsert(ctx context.Context, collection, key string, doc map[string]any) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}
	col, err := c.db.GetCollection(ctx, collection, nil)
	if err != nil {
		return fmt.Errorf("get collection %s: %w", collection, err)
	}

	doc["_key"] = key
	overwrite := true
	_, err = col.CreateDocument(ctx, doc)
	if err == nil {
		return nil
	}
	if !isConflict(err) {
		return fmt.Errorf("upsert document into %s: %w", collection, err)
	}
	_, err = col.ReplaceDocument(ctx, key, doc)
	if err != nil {
		return fmt.Errorf("replace document in %s: %w", collection, err)
	}
	_ = overwrite
	return nil
}

func (c *client) UpsertMany(ctx context.Context, collection string, docs []map[string]any) error {
	if len(docs) == 0 {
		return nil
	}
	for _, d := range docs {
		key, _ := d["_key"].(string)
		if key == "" {
			return fmt.Errorf("document missing _key for collection %s", collection)
		}
		if err := c.Upsert(ctx, collection, key, d); err != nil {
			return err
		}
	}
	return nil
}

func (c *client) Get(ctx context.Context, collection, key string, out any) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}
	col, err := c.db.GetCollection(ctx, collection, nil)
	if err != nil {
		return fmt.Errorf("get collection %s: %w", collection, err)
	}
	_, err = col.ReadDocument(ctx, key, out)
	if err != nil {
		if arangodb.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("read document %s/%s: %w", collection, key, err)
	}
	return nil
}

func (c *client) Exists(ctx context.Context, collection, key string) (bool, error) {
	var v map[string]any
	err := c.Get(ctx, collection, key, &v)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (c *client) Query(ctx context.Context, aql string, bindVars map[string]any, out any) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}

	start := time.Now()
	cursor, err := c.db.Query(ctx, aql, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return fmt.Errorf("execute query: %w", err)
	}
	defer cursor.Close()

	if err := decodeCursor(ctx, cursor, out); err != nil {
		return err
	}

	slog.DebugContext(ctx, "arangodb query executed", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func isConflict(err error) bool {
	return arangodb.IsConflict(err) || arangodb.IsPreconditionFailed(err)
}

// MakeKey derives a deterministic ArangoDB document key from an arbitrary
// identifier, matching the convention the codegraph client uses for
// qualified-name keys.
func MakeKey(id string) string {
	sum := md5.Sum([]byte(id))
	return hex.EncodeToString(sum[:])[:16]
}
