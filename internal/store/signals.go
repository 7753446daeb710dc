package store

import (
	"context"
	"fmt"

	"github.com/rootsignal/scout/common/arangodb"
	"github.com/rootsignal/scout/internal/domain"
	"github.com/rootsignal/scout/internal/graph"
	"github.com/rootsignal/scout/internal/model"
)

func (s *Store) Create(ctx context.Context, runID string, sig model.Signal) error {
	_, err := s.emitAndApply(ctx, sig.RegionID, domain.TypeSignalStored, domain.SignalStoredPayload{Signal: sig}, ref(runID), nil)
	return err
}

func (s *Store) Get(ctx context.Context, id string) (model.Signal, error) {
	var sig model.Signal
	if err := s.db.Get(ctx, graph.CollSignals, arangodb.MakeKey(id), &sig); err != nil {
		if err == arangodb.ErrNotFound {
			return model.Signal{}, fmt.Errorf("store: signal %s: %w", id, ErrNotFound)
		}
		return model.Signal{}, err
	}
	return sig, nil
}

func (s *Store) Update(ctx context.Context, runID string, sig model.Signal) error {
	_, err := s.emitAndApply(ctx, sig.RegionID, domain.TypeSignalStored, domain.SignalStoredPayload{Signal: sig}, ref(runID), nil)
	return err
}

func (s *Store) Expire(ctx context.Context, runID, signalID string) error {
	sig, err := s.Get(ctx, signalID)
	if err != nil {
		return err
	}
	_, err = s.emitAndApply(ctx, sig.RegionID, domain.TypeSignalExpired, domain.SignalExpiredPayload{SignalID: signalID}, ref(runID), nil)
	return err
}

func (s *Store) SetReviewStatus(ctx context.Context, runID, signalID string, status model.ReviewStatus) error {
	sig, err := s.Get(ctx, signalID)
	if err != nil {
		return err
	}
	_, err = s.emitAndApply(ctx, sig.RegionID, domain.TypeSignalReviewStatusSet, domain.SignalReviewStatusSetPayload{SignalID: signalID, Status: status}, ref(runID), nil)
	return err
}

func (s *Store) SetInUniverse(ctx context.Context, runID, signalID string, inUniverse bool) error {
	sig, err := s.Get(ctx, signalID)
	if err != nil {
		return err
	}
	sig.CrossRegion = !inUniverse
	_, err = s.emitAndApply(ctx, sig.RegionID, domain.TypeSignalStored, domain.SignalStoredPayload{Signal: sig}, ref(runID), nil)
	return err
}

// BatchTag calls SetReviewStatus for each signal in turn; the "tag" isn't
// a modeled Signal field, so the tag string is used as the review status.
func (s *Store) BatchTag(ctx context.Context, runID string, signalIDs []string, tag string) error {
	status := model.ReviewStatus(tag)
	for _, id := range signalIDs {
		if err := s.SetReviewStatus(ctx, runID, id, status); err != nil {
			return fmt.Errorf("batch tag %s: %w", id, err)
		}
	}
	return nil
}
