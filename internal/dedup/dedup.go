// Package dedup implements the three-layer deduplication ScrapePipeline
// runs over every extracted signal before it's written: an exact
// within-batch check, an exact graph-title check (same source first, then
// region-global), and a vector-similarity check with source-aware
// thresholds. Every function here is pure — callers supply the comparison
// pools, since fetching them is the store's job, not dedup's.
package dedup

import (
	"math"
	"strings"

	"github.com/rootsignal/scout/internal/model"
)

const (
	// SameSourceThreshold answers "is this the same thing restated?".
	SameSourceThreshold = 0.85
	// CrossSourceThreshold is the higher bar for independent confirmation:
	// false corroboration inflates credibility, so cross-source match
	// requires more similarity than same-source match.
	CrossSourceThreshold = 0.92
)

// Action is the dedup verdict for a candidate signal.
type Action int

const (
	// ActionKeepNew means no match was found at any layer; store the
	// candidate as a brand new signal.
	ActionKeepNew Action = iota
	// ActionDropDuplicate means an exact within-batch duplicate was found;
	// discard the candidate entirely.
	ActionDropDuplicate
	// ActionCorroborate means an existing signal matched; corroborate it
	// instead of creating a new one.
	ActionCorroborate
	// ActionCoexist means similarity fell in the dead zone between the
	// two vector thresholds; neither dedup nor corroborate, keep both.
	ActionCoexist
)

// Candidate is one signal still awaiting a dedup decision, carrying the
// source it came from and its already-embedded vector.
type Candidate struct {
	Signal   model.Signal
	SourceID string
}

// PoolEntry is an existing stored signal available for comparison, with
// the source ID its original citation came from.
type PoolEntry struct {
	Signal   model.Signal
	SourceID string
}

// Result is the dedup verdict plus, when corroborating, which existing
// signal to corroborate.
type Result struct {
	Action          Action
	CorroborateWith model.Signal
}

// NormalizeTitle lowercases, trims, and collapses internal whitespace so
// titles that differ only in casing or spacing still compare equal.
func NormalizeTitle(title string) string {
	fields := strings.Fields(strings.ToLower(title))
	return strings.Join(fields, " ")
}

// WithinBatch runs Layer 1: an exact (normalized_title, kind) match
// against signals already accepted earlier in this same scrape batch.
func WithinBatch(candidate Candidate, batch []model.Signal) bool {
	norm := NormalizeTitle(candidate.Signal.Title)
	for _, s := range batch {
		if s.Kind == candidate.Signal.Kind && NormalizeTitle(s.Title) == norm {
			return true
		}
	}
	return false
}

// GraphExact runs Layer 2: an exact (normalized_title, kind) match against
// the graph, checked against sameSourcePool first (this source's own prior
// signals) and falling back to globalPool (every other live signal in the
// region) if nothing matched there.
func GraphExact(candidate Candidate, sameSourcePool, globalPool []PoolEntry) (model.Signal, bool) {
	norm := NormalizeTitle(candidate.Signal.Title)
	if sig, ok := matchExact(norm, candidate.Signal.Kind, sameSourcePool); ok {
		return sig, true
	}
	return matchExact(norm, candidate.Signal.Kind, globalPool)
}

func matchExact(norm string, kind model.Kind, pool []PoolEntry) (model.Signal, bool) {
	for _, e := range pool {
		if e.Signal.Kind == kind && NormalizeTitle(e.Signal.Title) == norm {
			return e.Signal, true
		}
	}
	return model.Signal{}, false
}

// VectorSimilar runs Layer 3: cosine similarity against globalPool, using
// SameSourceThreshold when the best match came from the candidate's own
// source and CrossSourceThreshold otherwise. Matches in between the two
// thresholds (same-source below 0.85, or cross-source between 0.85 and
// 0.92) neither dedup nor corroborate.
func VectorSimilar(candidate Candidate, globalPool []PoolEntry) Result {
	best, bestScore, found := bestMatch(candidate.Signal.Embedding, globalPool)
	if !found {
		return Result{Action: ActionKeepNew}
	}

	threshold := CrossSourceThreshold
	if best.SourceID == candidate.SourceID {
		threshold = SameSourceThreshold
	}

	if bestScore >= threshold {
		return Result{Action: ActionCorroborate, CorroborateWith: best.Signal}
	}
	if best.SourceID != candidate.SourceID && bestScore >= SameSourceThreshold {
		return Result{Action: ActionCoexist}
	}
	return Result{Action: ActionKeepNew}
}

func bestMatch(embedding model.Vector, pool []PoolEntry) (PoolEntry, float64, bool) {
	var best PoolEntry
	bestScore := -1.0
	found := false
	for _, e := range pool {
		if len(e.Signal.Embedding) == 0 || len(embedding) == 0 {
			continue
		}
		score := cosineSimilarity(embedding, e.Signal.Embedding)
		if score > bestScore {
			best, bestScore, found = e, score, true
		}
	}
	return best, bestScore, found
}

// cosineSimilarity is deliberately duplicated from internal/store/vector.go
// rather than shared: dedup and store are independent small packages and
// this is a five-line function, not worth a cross-package dependency.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
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

// Classify runs all three layers in order and returns the first decisive
// verdict.
func Classify(candidate Candidate, batch []model.Signal, sameSourcePool, globalPool []PoolEntry) Result {
	if WithinBatch(candidate, batch) {
		return Result{Action: ActionDropDuplicate}
	}
	if sig, ok := GraphExact(candidate, sameSourcePool, globalPool); ok {
		return Result{Action: ActionCorroborate, CorroborateWith: sig}
	}
	return VectorSimilar(candidate, globalPool)
}
