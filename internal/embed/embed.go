// Package embed wraps the TextEmbedder contract with a two-tier cache:
// an in-run map avoids re-embedding the same content hash twice within a
// single Scout run, and an optional Postgres-backed cache avoids paying
// for the same embedding again across runs.
package embed

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"

	"github.com/rootsignal/scout/common/llm"
	"github.com/rootsignal/scout/core/db/sqlc"
	"github.com/rootsignal/scout/internal/model"
)

// Cache embeds text through an underlying llm.Embedder, short-circuiting
// on a content-hash hit in either the in-run map or the persistent store.
type Cache struct {
	embedder llm.Embedder
	q        *sqlc.Queries
	inRun    map[string]model.Vector
}

// New builds a Cache. q may be nil, in which case only the in-run map is
// consulted (e.g. for tests or a single-shot embed with no persistent
// backing).
func New(embedder llm.Embedder, q *sqlc.Queries) *Cache {
	return &Cache{embedder: embedder, q: q, inRun: make(map[string]model.Vector)}
}

// ContentHash computes the FNV-1a hash ScrapePipeline keys cache entries
// by, matching the hash it uses to detect unchanged page content.
func ContentHash(text string) string {
	h := fnv.New64a()
	h.Write([]byte(text))
	return fmt.Sprintf("%x", h.Sum64())
}

// Embed returns text's vector, consulting the in-run map, then the
// persistent cache, then finally the embedder itself -- writing back to
// both caches on a miss.
func (c *Cache) Embed(ctx context.Context, text string) (model.Vector, error) {
	hash := ContentHash(text)

	if v, ok := c.inRun[hash]; ok {
		return v, nil
	}

	if c.q != nil {
		row, err := c.q.GetEmbeddingCache(ctx, hash)
		if err == nil {
			var v model.Vector
			if jsonErr := json.Unmarshal(row.Embedding, &v); jsonErr == nil {
				c.inRun[hash] = v
				return v, nil
			}
		} else if err != sqlc.ErrNoRows {
			return nil, fmt.Errorf("embed: read cache: %w", err)
		}
	}

	raw, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	v := model.Vector(raw)
	c.inRun[hash] = v

	if c.q != nil {
		encoded, err := json.Marshal(v)
		if err == nil {
			if putErr := c.q.PutEmbeddingCache(ctx, sqlc.PutEmbeddingCacheParams{
				ContentHash: hash,
				Embedding:   encoded,
				Model:       c.embedder.Model(),
			}); putErr != nil {
				return v, fmt.Errorf("embed: write cache: %w", putErr)
			}
		}
	}

	return v, nil
}
