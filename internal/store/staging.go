package store

import (
	"context"

	"github.com/rootsignal/scout/internal/graph"
	"github.com/rootsignal/scout/internal/model"
)

// StageSignalsInRegion returns every signal still awaiting review,
// reviewer-facing surfaces poll this to populate a staging queue.
func (s *Store) StageSignalsInRegion(ctx context.Context, regionID string) ([]model.Signal, error) {
	aql := `
		FOR sig IN @@coll
			FILTER sig.region_id == @region AND sig.review_status == @status
			RETURN sig
	`
	var out []model.Signal
	err := s.db.Query(ctx, aql, map[string]any{
		"@coll":  graph.CollSignals,
		"region": regionID,
		"status": string(model.ReviewStatusStaged),
	}, &out)
	return out, err
}

// PromoteReadySituations moves every staged signal at or above
// minConfidence to live, and returns the promoted set.
func (s *Store) PromoteReadySituations(ctx context.Context, runID, regionID string, minConfidence float64) ([]model.Signal, error) {
	staged, err := s.StageSignalsInRegion(ctx, regionID)
	if err != nil {
		return nil, err
	}
	var promoted []model.Signal
	for _, sig := range staged {
		if sig.Confidence < minConfidence {
			continue
		}
		if err := s.SetReviewStatus(ctx, runID, sig.ID, model.ReviewStatusLive); err != nil {
			return promoted, err
		}
		sig.ReviewStatus = model.ReviewStatusLive
		promoted = append(promoted, sig)
	}
	return promoted, nil
}
