package store

import (
	"context"

	"github.com/rootsignal/scout/internal/domain"
)

func (s *Store) createEdge(ctx context.Context, runID, regionID string, kind domain.EdgeKind, from, to EntityRef, confidence float64) error {
	payload := domain.EdgeCreatedPayload{
		Kind:       kind,
		FromID:     from.ID,
		FromKind:   from.Kind,
		ToID:       to.ID,
		ToKind:     to.Kind,
		Confidence: confidence,
	}
	_, err := s.emitAndApply(ctx, regionID, domain.TypeEdgeCreated, payload, ref(runID), nil)
	return err
}

func signalRef(id string) EntityRef { return EntityRef{ID: id, Kind: domain.EntitySignal} }

func (s *Store) CreateRespondsTo(ctx context.Context, runID, fromSignalID, toSignalID string, confidence float64) error {
	sig, err := s.Get(ctx, fromSignalID)
	if err != nil {
		return err
	}
	return s.createEdge(ctx, runID, sig.RegionID, domain.EdgeRespondsTo, signalRef(fromSignalID), signalRef(toSignalID), confidence)
}

func (s *Store) CreateEvidenceOf(ctx context.Context, runID, fromSignalID, toSignalID string, confidence float64) error {
	sig, err := s.Get(ctx, fromSignalID)
	if err != nil {
		return err
	}
	return s.createEdge(ctx, runID, sig.RegionID, domain.EdgeEvidenceOf, signalRef(fromSignalID), signalRef(toSignalID), confidence)
}

func (s *Store) CreateOffers(ctx context.Context, runID string, from, to EntityRef, confidence float64) error {
	regionID, err := s.regionOf(ctx, from)
	if err != nil {
		return err
	}
	return s.createEdge(ctx, runID, regionID, domain.EdgeOffers, from, to, confidence)
}

func (s *Store) CreatePrefers(ctx context.Context, runID string, from, to EntityRef, confidence float64) error {
	regionID, err := s.regionOf(ctx, from)
	if err != nil {
		return err
	}
	return s.createEdge(ctx, runID, regionID, domain.EdgePrefers, from, to, confidence)
}

func (s *Store) CreateRequires(ctx context.Context, runID string, from, to EntityRef, confidence float64) error {
	regionID, err := s.regionOf(ctx, from)
	if err != nil {
		return err
	}
	return s.createEdge(ctx, runID, regionID, domain.EdgeRequires, from, to, confidence)
}

func (s *Store) CreateResponse(ctx context.Context, runID, fromSignalID, toSignalID string, confidence float64) error {
	sig, err := s.Get(ctx, fromSignalID)
	if err != nil {
		return err
	}
	return s.createEdge(ctx, runID, sig.RegionID, domain.EdgeCreateResponse, signalRef(fromSignalID), signalRef(toSignalID), confidence)
}

// regionOf resolves the region an edge endpoint belongs to, since Actors
// and Signals both carry region_id but live in different collections.
func (s *Store) regionOf(ctx context.Context, ref EntityRef) (string, error) {
	if ref.Kind == domain.EntityActor {
		actor, ok, err := s.FindByEntityID(ctx, ref.ID)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", ErrNotFound
		}
		return actor.RegionID, nil
	}
	sig, err := s.Get(ctx, ref.ID)
	if err != nil {
		return "", err
	}
	return sig.RegionID, nil
}
