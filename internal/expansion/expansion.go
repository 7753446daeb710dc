// Package expansion implements SignalExpansion: turning the implied
// follow-up queries stored Tension/Need signals (and Aid/Gathering
// signals attached to high-heat tensions) carry into new query-kind
// Sources for future runs to scrape.
package expansion

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rootsignal/scout/common/id"
	"github.com/rootsignal/scout/internal/embed"
	"github.com/rootsignal/scout/internal/model"
	"github.com/rootsignal/scout/internal/store"
)

const (
	maxNewSourcesPerRun = 10
	jaccardThreshold    = 0.8
	cosineThreshold     = 0.9
	// highHeatThreshold gates which Aid/Gathering signals' implied
	// queries are eligible: only ones attached to a tension hot enough to
	// be worth chasing further.
	highHeatThreshold = 0.7
	// defaultCadenceHours seeds a brand-new query source at the spec's
	// 72h cadence tier (the (0.2, 0.4] weight band), revised once the
	// scheduler sees it scraped.
	defaultCadenceHours = 72
)

// Expander collects implied queries and turns novel ones into new Sources.
type Expander struct {
	embedder *embed.Cache
	store    store.SignalStore
}

func New(embedder *embed.Cache, st store.SignalStore) *Expander {
	return &Expander{embedder: embedder, store: st}
}

// Stats summarizes one Expand call.
type Stats struct {
	QueriesConsidered int
	SourcesCreated    int
}

// Expand collects implied queries from the region's current signal
// landscape, drops ones that duplicate an existing query-kind Source by
// token overlap or embedding similarity, and creates up to
// maxNewSourcesPerRun new Sources from what's left.
func (e *Expander) Expand(ctx context.Context, runID string, region model.Region) (Stats, error) {
	landscape, err := e.store.GetSituationLandscape(ctx, region.ID)
	if err != nil {
		return Stats{}, fmt.Errorf("expansion: load landscape: %w", err)
	}
	existing, err := e.store.ListAll(ctx, region.ID)
	if err != nil {
		return Stats{}, fmt.Errorf("expansion: list sources: %w", err)
	}

	candidates := dedupeStrings(collectImpliedQueries(landscape))
	knownQueries := queryTexts(existing)

	var stats Stats
	stats.QueriesConsidered = len(candidates)

	for _, q := range candidates {
		if stats.SourcesCreated >= maxNewSourcesPerRun {
			break
		}
		dup, err := e.isDuplicate(ctx, q, knownQueries)
		if err != nil {
			continue
		}
		if dup {
			continue
		}

		src := model.Source{
			ID:              strconv.FormatInt(id.New(), 10),
			RegionID:        region.ID,
			CanonicalKey:    q,
			Kind:            model.SourceKindQuery,
			URI:             q,
			Role:            model.SourceRoleMixed,
			DiscoveryMethod: model.DiscoverySignalExpansion,
			CadenceHours:    defaultCadenceHours,
			Active:          true,
		}
		if err := e.store.UpsertSource(ctx, runID, src); err != nil {
			continue
		}
		stats.SourcesCreated++
		knownQueries = append(knownQueries, q)
	}

	return stats, nil
}

// collectImpliedQueries gathers the implied-query pool the spec defines:
// immediately from Tension/Need signals, and from Aid/Gathering signals
// only once they've accumulated enough cause heat to be worth chasing
// (in practice this naturally defers them to a later run, since heat
// accrues from corroboration and linkage after a signal is first stored).
func collectImpliedQueries(signals []model.Signal) []string {
	var out []string
	for _, s := range signals {
		switch s.Kind {
		case model.KindTension, model.KindNeed:
			out = append(out, s.ImpliedQueries...)
		case model.KindAid, model.KindGathering:
			if s.CauseHeat >= highHeatThreshold {
				out = append(out, s.ImpliedQueries...)
			}
		}
	}
	return out
}

func dedupeStrings(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func queryTexts(sources []model.Source) []string {
	var out []string
	for _, s := range sources {
		if s.Kind == model.SourceKindQuery {
			out = append(out, s.URI)
		}
	}
	return out
}

// isDuplicate checks a candidate query against the known pool by Jaccard
// token overlap first (cheap, catches near-identical phrasing without an
// embedding call) and falls back to embedding cosine similarity for
// paraphrases the token overlap misses.
func (e *Expander) isDuplicate(ctx context.Context, query string, known []string) (bool, error) {
	for _, k := range known {
		if jaccard(query, k) >= jaccardThreshold {
			return true, nil
		}
	}
	if e.embedder == nil || len(known) == 0 {
		return false, nil
	}

	qVec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return false, err
	}
	for _, k := range known {
		kVec, err := e.embedder.Embed(ctx, k)
		if err != nil {
			continue
		}
		if cosineSimilarity(qVec, kVec) >= cosineThreshold {
			return true, nil
		}
	}
	return false, nil
}

func jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	tokens := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// cosineSimilarity is deliberately duplicated from internal/dedup,
// internal/store and internal/weaver rather than factored into a shared
// helper -- same rationale as those: four small identical copies beat a premature
// shared-math package for a five-line function.
func cosineSimilarity(a, b model.Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
