// Package weaver implements the Weaver pass: it links similar signals
// with SIMILAR_TO edges, partitions the similarity subgraph into
// communities, and synthesizes a Story for every community large and
// diverse enough to matter. The pack carries no Leiden implementation, so
// community detection runs on gonum's Louvain modularity optimizer
// instead -- a documented substitution, not a silent one.
package weaver

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/rootsignal/scout/common/id"
	"github.com/rootsignal/scout/common/llm"
	"github.com/rootsignal/scout/internal/model"
	"github.com/rootsignal/scout/internal/store"
)

const (
	// defaultSimilarityThreshold is the per-kind cosine bar for a
	// SIMILAR_TO edge; every kind uses it unless overridden below.
	defaultSimilarityThreshold = 0.88

	minClusterSize  = 3
	minKindDiversity = 2

	// louvainResolution is the community-detection γ parameter: 1.0 is
	// the standard modularity objective, neither favoring many small
	// communities nor few large ones.
	louvainResolution = 1.0

	// centroidCarryoverThreshold is the fraction of a prior Story's
	// member signals that must still be present in a rebuilt cluster for
	// the new cluster to inherit that Story's ID.
	centroidCarryoverThreshold = 0.7

	// recentWindow bounds what counts toward "recent signal density" for
	// energy; a week matches the daily-run cadence the rest of the
	// system runs on.
	recentWindow = 7 * 24 * time.Hour

	// velocityEmergingEps/velocityFadingEps bound the arc classification:
	// above the first a cluster is gaining energy fast enough to call
	// "emerging", below the second it's cooling into "fading".
	velocityEmergingEps = 0.05
	velocityFadingEps   = -0.05

	// stableEnergyFloor separates "growing" from "stable" for clusters
	// whose velocity sits in the flat middle band.
	stableEnergyFloor = 0.5
)

// similarityThresholds lets a future kind pair tighten or loosen the
// default without touching the clustering logic; empty today because
// nothing in the retrieved scenarios asks for a kind-specific override,
// but the seam is cheap to leave in place.
var similarityThresholds = map[model.Kind]float64{}

func threshold(k model.Kind) float64 {
	if t, ok := similarityThresholds[k]; ok {
		return t
	}
	return defaultSimilarityThreshold
}

// storyWriter is the escape hatch Weaver uses to persist SIMILAR_TO edges
// and rebuilt Stories without widening SignalStore, the same pattern
// telemetryRecorder and weightRecorder use elsewhere.
type storyWriter interface {
	CreateSimilarTo(ctx context.Context, runID, fromSignalID, toSignalID string, weight float64) error
	PutStory(ctx context.Context, runID, regionID string, story model.Story) error
	ListStories(ctx context.Context, regionID string) ([]model.Story, error)
}

// Weaver builds SIMILAR_TO edges and synthesizes Stories.
type Weaver struct {
	llm   llm.Client
	store store.SignalStore
}

func New(client llm.Client, st store.SignalStore) *Weaver {
	return &Weaver{llm: client, store: st}
}

// Stats summarizes one Weave call.
type Stats struct {
	EdgesCreated int
	StoriesBuilt int
}

// Weave loads the region's live signal landscape, links similar signals,
// clusters them into communities, and rebuilds the region's Stories.
// Clustering is stateless by design -- the similarity subgraph is rebuilt
// from scratch every run -- but Story identity survives across runs via
// centroid/membership matching against the previous rebuild.
func (w *Weaver) Weave(ctx context.Context, runID string, region model.Region, now time.Time) (Stats, error) {
	recorder, ok := w.store.(storyWriter)
	if !ok {
		return Stats{}, fmt.Errorf("weaver: store does not implement storyWriter")
	}

	landscape, err := w.store.GetSituationLandscape(ctx, region.ID)
	if err != nil {
		return Stats{}, fmt.Errorf("weaver: load landscape: %w", err)
	}

	signals := make([]model.Signal, 0, len(landscape))
	for _, s := range landscape {
		if len(s.Embedding) > 0 {
			signals = append(signals, s)
		}
	}

	var stats Stats
	if len(signals) < minClusterSize {
		return stats, nil
	}

	g := simple.NewWeightedUndirectedGraph(0, 0)
	for i := range signals {
		g.AddNode(simple.Node(i))
	}

	for i := 0; i < len(signals); i++ {
		for j := i + 1; j < len(signals); j++ {
			sim := cosineSimilarity(signals[i].Embedding, signals[j].Embedding)
			bar := math.Max(threshold(signals[i].Kind), threshold(signals[j].Kind))
			if sim < bar {
				continue
			}
			g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(i), T: simple.Node(j), W: sim})
			if err := recorder.CreateSimilarTo(ctx, runID, signals[i].ID, signals[j].ID, sim); err != nil {
				continue
			}
			stats.EdgesCreated++
		}
	}

	// A fixed seed keeps clustering deterministic for a given input graph,
	// required for replay (rebuilding the same event log twice must yield
	// structurally equal graphs).
	reduced := community.Modularize(g, louvainResolution, rand.NewSource(1))
	clusters := reduced.Structure()

	priorStories, err := recorder.ListStories(ctx, region.ID)
	if err != nil {
		return stats, fmt.Errorf("weaver: list prior stories: %w", err)
	}

	for _, cluster := range clusters {
		members := make([]model.Signal, 0, len(cluster))
		for _, n := range cluster {
			members = append(members, signals[n.ID()])
		}
		if len(members) < minClusterSize || kindDiversity(members) < minKindDiversity {
			continue
		}

		story, err := w.synthesize(ctx, runID, region, members, priorStories, now)
		if err != nil {
			continue
		}
		if err := recorder.PutStory(ctx, runID, region.ID, story); err != nil {
			continue
		}
		stats.StoriesBuilt++
	}

	return stats, nil
}

func kindDiversity(members []model.Signal) int {
	seen := map[model.Kind]bool{}
	for _, m := range members {
		seen[m.Kind] = true
	}
	return len(seen)
}

// synthesize turns one cluster into a Story: narrative text from the LLM,
// energy/velocity/arc from the member signals' recency, and an ID that
// either carries over from a matching prior Story or is freshly minted.
func (w *Weaver) synthesize(ctx context.Context, runID string, region model.Region, members []model.Signal, prior []model.Story, now time.Time) (model.Story, error) {
	centroid := centroidOf(members)
	ids := memberIDs(members)

	headline, narrative, err := w.draftNarrative(ctx, region, members)
	if err != nil {
		return model.Story{}, err
	}

	energy := computeEnergy(members, now)

	matched, found := matchPriorStory(prior, ids)
	storyID := strconv.FormatInt(id.New(), 10)
	velocity := 0.0
	if found {
		storyID = matched.ID
		hours := now.Sub(matched.UpdatedAt).Hours()
		if hours > 0 {
			velocity = (energy - matched.Energy) / hours
		}
	}

	arc := classifyArc(velocity, energy, found)

	return model.Story{
		ID:          storyID,
		RegionID:    region.ID,
		Headline:    headline,
		Narrative:   narrative,
		Arc:         arc,
		Energy:      energy,
		Velocity:    velocity,
		SignalCount: len(members),
		SignalIDs:   ids,
		Centroid:    centroid,
		UpdatedAt:   now,
	}, nil
}

func memberIDs(members []model.Signal) []string {
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids
}

// computeEnergy is the fraction of a cluster's members that have been
// seen within recentWindow -- a cluster entirely made of stale signals
// has energy 0, one entirely fresh has energy 1.
func computeEnergy(members []model.Signal, now time.Time) float64 {
	if len(members) == 0 {
		return 0
	}
	recent := 0
	for _, m := range members {
		if now.Sub(m.LastSeen) <= recentWindow {
			recent++
		}
	}
	return float64(recent) / float64(len(members))
}

// matchPriorStory finds the previous-run Story whose membership overlaps
// a rebuilt cluster by at least centroidCarryoverThreshold, measured
// against the prior Story's own member count (how much of what it used to
// be survived into this run). Ties go to the larger overlap.
func matchPriorStory(prior []model.Story, memberIDs []string) (model.Story, bool) {
	newSet := make(map[string]bool, len(memberIDs))
	for _, id := range memberIDs {
		newSet[id] = true
	}

	var best model.Story
	bestOverlap := -1.0
	found := false
	for _, p := range prior {
		if len(p.SignalIDs) == 0 {
			continue
		}
		overlap := 0
		for _, id := range p.SignalIDs {
			if newSet[id] {
				overlap++
			}
		}
		ratio := float64(overlap) / float64(len(p.SignalIDs))
		if ratio >= centroidCarryoverThreshold && ratio > bestOverlap {
			best = p
			bestOverlap = ratio
			found = true
		}
	}
	return best, found
}

func classifyArc(velocity, energy float64, hasHistory bool) model.Arc {
	if !hasHistory {
		return model.ArcEmerging
	}
	switch {
	case velocity > velocityEmergingEps:
		return model.ArcEmerging
	case velocity < velocityFadingEps:
		return model.ArcFading
	case energy >= stableEnergyFloor:
		return model.ArcGrowing
	default:
		return model.ArcStable
	}
}

func centroidOf(members []model.Signal) model.Vector {
	if len(members) == 0 {
		return nil
	}
	dim := len(members[0].Embedding)
	sum := make([]float64, dim)
	n := 0
	for _, m := range members {
		if len(m.Embedding) != dim {
			continue
		}
		for i, v := range m.Embedding {
			sum[i] += float64(v)
		}
		n++
	}
	if n == 0 {
		return nil
	}
	out := make(model.Vector, dim)
	for i, v := range sum {
		out[i] = float32(v / float64(n))
	}
	return out
}

// cosineSimilarity is deliberately duplicated from internal/dedup,
// internal/store, and internal/expansion rather than factored out -- same
// small-duplication-over-abstraction call as those three.
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

var _ graph.WeightedUndirected = (*simple.WeightedUndirectedGraph)(nil)
