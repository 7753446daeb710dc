package store

import (
	"context"

	"github.com/rootsignal/scout/internal/graph"
	"github.com/rootsignal/scout/internal/model"
)

// FindTensionLinkerTargets returns orphan signals (no RESPONDS_TO/
// EVIDENCE_OF edge pointing at a Tension) for the TensionLinker agent to
// attempt to match against the existing Tension landscape.
func (s *Store) FindTensionLinkerTargets(ctx context.Context, regionID string, limit int) ([]model.Signal, error) {
	aql := `
		FOR sig IN @@coll
			FILTER sig.region_id == @region AND sig.kind != @tensionKind AND sig.expired != true
			LET inbound = (
				FOR v, e IN 1..1 OUTBOUND sig._id @@evidenceOf, @@respondsTo
					RETURN 1
			)
			FILTER LENGTH(inbound) == 0
			LIMIT @limit
			RETURN sig
	`
	var out []model.Signal
	err := s.db.Query(ctx, aql, map[string]any{
		"@coll":        graph.CollSignals,
		"@evidenceOf":  graph.EdgeEvidenceOf,
		"@respondsTo":  graph.EdgeRespondsTo,
		"region":       regionID,
		"tensionKind":  string(model.KindTension),
		"limit":        limit,
	}, &out)
	return out, err
}

// GetTensionLandscape returns every live, non-expired Tension in a region,
// ranked implicitly by recency (LastSeen desc) so callers can bias toward
// the hottest tensions without a second query.
func (s *Store) GetTensionLandscape(ctx context.Context, regionID string) ([]model.Signal, error) {
	aql := `
		FOR sig IN @@coll
			FILTER sig.region_id == @region AND sig.kind == @kind AND sig.expired != true
			SORT sig.last_seen DESC
			RETURN sig
	`
	var out []model.Signal
	err := s.db.Query(ctx, aql, map[string]any{
		"@coll":  graph.CollSignals,
		"region": regionID,
		"kind":   string(model.KindTension),
	}, &out)
	return out, err
}

// GetSituationLandscape returns every live signal of any kind, the full
// regional picture the Weaver and review surfaces work from.
func (s *Store) GetSituationLandscape(ctx context.Context, regionID string) ([]model.Signal, error) {
	aql := `
		FOR sig IN @@coll
			FILTER sig.region_id == @region AND sig.expired != true
			SORT sig.last_seen DESC
			RETURN sig
	`
	var out []model.Signal
	err := s.db.Query(ctx, aql, map[string]any{"@coll": graph.CollSignals, "region": regionID}, &out)
	return out, err
}
