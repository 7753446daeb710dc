package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/rootsignal/scout/internal/domain"
	"github.com/rootsignal/scout/internal/graph"
	"github.com/rootsignal/scout/internal/model"
)

func (s *Store) RecordCitation(ctx context.Context, runID string, c model.Citation) error {
	sig, err := s.Get(ctx, c.SignalID)
	if err != nil {
		return fmt.Errorf("record citation for %s: %w", c.SignalID, err)
	}
	_, err = s.emitAndApply(ctx, sig.RegionID, domain.TypeCitationRecorded, domain.CitationRecordedPayload{Citation: c}, ref(runID), nil)
	return err
}

// FindSimilar scans candidate signals of the same kind and region and
// returns the top `limit` ranked by embedding cosine similarity. The
// dedup layer applies its own kind/cross-source thresholds on top of this;
// this method just orders candidates.
func (s *Store) FindSimilar(ctx context.Context, embedding model.Vector, kind model.Kind, regionID string, limit int) ([]model.Signal, error) {
	aql := `
		FOR sig IN @@coll
			FILTER sig.region_id == @region AND sig.kind == @kind AND sig.expired != true
			RETURN sig
	`
	var candidates []model.Signal
	if err := s.db.Query(ctx, aql, map[string]any{
		"@coll":  graph.CollSignals,
		"region": regionID,
		"kind":   string(kind),
	}, &candidates); err != nil {
		return nil, fmt.Errorf("find similar: %w", err)
	}

	type scored struct {
		sig   model.Signal
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Embedding) == 0 {
			continue
		}
		ranked = append(ranked, scored{sig: c, score: cosineSimilarity(embedding, c.Embedding)})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if limit > len(ranked) {
		limit = len(ranked)
	}
	out := make([]model.Signal, limit)
	for i := 0; i < limit; i++ {
		out[i] = ranked[i].sig
	}
	return out, nil
}

// OriginSourceID returns the source_id of a signal's earliest direct
// citation, falling back to its earliest citation of any relevance if it
// has no direct one. Returns "" if the signal has no citations at all.
func (s *Store) OriginSourceID(ctx context.Context, signalID string) (string, error) {
	aql := `
		FOR c IN @@coll
			FILTER c.signal_id == @signal
			SORT c.relevance == @direct DESC, c.retrieved_at ASC
			LIMIT 1
			RETURN c.source_id
	`
	var sourceIDs []string
	if err := s.db.Query(ctx, aql, map[string]any{
		"@coll":  graph.CollCitations,
		"signal": signalID,
		"direct": string(model.RelevanceDirect),
	}, &sourceIDs); err != nil {
		return "", fmt.Errorf("origin source for %s: %w", signalID, err)
	}
	if len(sourceIDs) == 0 {
		return "", nil
	}
	return sourceIDs[0], nil
}

func (s *Store) MarkCorroborated(ctx context.Context, runID, signalID, corroboratingSourceID string, confidenceDelta float64) error {
	sig, err := s.Get(ctx, signalID)
	if err != nil {
		return err
	}
	payload := domain.ObservationCorroboratedPayload{
		SignalID:           signalID,
		CorroboratingSrc:   corroboratingSourceID,
		NewSourceDiversity: sig.SourceDiversity + 1,
		ConfidenceDelta:    confidenceDelta,
	}
	_, err = s.emitAndApply(ctx, sig.RegionID, domain.TypeObservationCorroborated, payload, ref(runID), nil)
	return err
}
