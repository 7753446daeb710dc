package store

import (
	"context"

	"github.com/rootsignal/scout/internal/domain"
	"github.com/rootsignal/scout/internal/graph"
	"github.com/rootsignal/scout/internal/model"
)

// CreateSimilarTo records a SIMILAR_TO edge between two signals. It's not
// part of SignalStore -- the spec's operations table enumerates signal and
// edge verbs but never names SIMILAR_TO as something callers invoke
// directly -- so Weaver reaches it through a narrow storyWriter assertion,
// the same escape-hatch shape telemetryRecorder/weightRecorder use.
func (s *Store) CreateSimilarTo(ctx context.Context, runID, fromSignalID, toSignalID string, weight float64) error {
	sig, err := s.Get(ctx, fromSignalID)
	if err != nil {
		return err
	}
	payload := domain.EdgeCreatedPayload{
		Kind:     domain.EdgeSimilarTo,
		FromID:   fromSignalID,
		FromKind: domain.EntitySignal,
		ToID:     toSignalID,
		ToKind:   domain.EntitySignal,
		Weight:   weight,
	}
	_, err = s.emitAndApply(ctx, sig.RegionID, domain.TypeEdgeCreated, payload, ref(runID), nil)
	return err
}

// PutStory appends StoryBuilt for one rebuilt Story.
func (s *Store) PutStory(ctx context.Context, runID, regionID string, story model.Story) error {
	_, err := s.emitAndApply(ctx, regionID, domain.TypeStoryBuilt, domain.StoryBuiltPayload{Story: story}, ref(runID), nil)
	return err
}

// ListStories returns every Story currently held for a region, the pool
// Weaver matches its freshly rebuilt clusters against for ID continuity.
func (s *Store) ListStories(ctx context.Context, regionID string) ([]model.Story, error) {
	aql := `
		FOR st IN @@coll
			FILTER st.region_id == @region
			RETURN st
	`
	var out []model.Story
	err := s.db.Query(ctx, aql, map[string]any{"@coll": graph.CollStories, "region": regionID}, &out)
	return out, err
}
