package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rootsignal/scout/common/arangodb"
	"github.com/rootsignal/scout/internal/domain"
	"github.com/rootsignal/scout/internal/graph"
	"github.com/rootsignal/scout/internal/model"
)

func (s *Store) UpsertActor(ctx context.Context, runID string, actor model.Actor) error {
	_, err := s.emitAndApply(ctx, actor.RegionID, domain.TypeActorUpserted, domain.ActorUpsertedPayload{Actor: actor}, ref(runID), nil)
	return err
}

func (s *Store) FindByName(ctx context.Context, regionID, name string) (model.Actor, bool, error) {
	aql := `
		FOR a IN @@coll
			FILTER a.region_id == @region AND LOWER(a.name) == LOWER(@name)
			LIMIT 1
			RETURN a
	`
	var out []model.Actor
	if err := s.db.Query(ctx, aql, map[string]any{"@coll": graph.CollActors, "region": regionID, "name": name}, &out); err != nil {
		return model.Actor{}, false, fmt.Errorf("find actor by name: %w", err)
	}
	if len(out) == 0 {
		return model.Actor{}, false, nil
	}
	return out[0], true, nil
}

func (s *Store) FindByEntityID(ctx context.Context, id string) (model.Actor, bool, error) {
	var actor model.Actor
	if err := s.db.Get(ctx, graph.CollActors, arangodb.MakeKey(id), &actor); err != nil {
		if err == arangodb.ErrNotFound {
			return model.Actor{}, false, nil
		}
		return model.Actor{}, false, err
	}
	return actor, true, nil
}

func (s *Store) LinkToSignal(ctx context.Context, runID, actorID, signalID string, kind domain.EdgeKind) error {
	actor, ok, err := s.FindByEntityID(ctx, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("link actor %s to signal: %w", actorID, ErrNotFound)
	}
	from := EntityRef{ID: actorID, Kind: domain.EntityActor}
	to := signalRef(signalID)
	return s.createEdge(ctx, runID, actor.RegionID, kind, from, to, 1.0)
}

// LinkToSource records the actor-operates-source relationship by appending
// sourceID to the operates_sources list on the actor document itself; no
// graph edge is created. The document is written directly, with no event.
func (s *Store) LinkToSource(ctx context.Context, runID, actorID, sourceID string) error {
	actor, ok, err := s.FindByEntityID(ctx, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("link actor %s to source: %w", actorID, ErrNotFound)
	}
	raw, err := json.Marshal(actor)
	if err != nil {
		return err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	doc["_key"] = arangodb.MakeKey(actorID)
	sources, _ := doc["operates_sources"].([]any)
	doc["operates_sources"] = append(sources, sourceID)
	return s.db.Upsert(ctx, graph.CollActors, arangodb.MakeKey(actorID), doc)
}

func (s *Store) UpdateLocation(ctx context.Context, runID, actorID string, loc model.LatLng) error {
	actor, ok, err := s.FindByEntityID(ctx, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("update location for actor %s: %w", actorID, ErrNotFound)
	}
	actor.Location = &loc
	_, err = s.emitAndApply(ctx, actor.RegionID, domain.TypeActorUpserted, domain.ActorUpsertedPayload{Actor: actor}, ref(runID), nil)
	return err
}
