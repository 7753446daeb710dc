package store

import (
	"context"
	"strconv"
	"time"

	"github.com/rootsignal/scout/common/id"
	"github.com/rootsignal/scout/internal/domain"
)

// CreateSchedule records a calendar entry for a Gathering signal. Schedules
// have no graph projection of their own (GraphProjector.Apply treats
// ScheduleCreated as a no-op) — the event log is their system of record,
// and Gathering-signal readers replay it to recover upcoming dates.
func (s *Store) CreateSchedule(ctx context.Context, runID, signalID string, startsAt *time.Time) (string, error) {
	sig, err := s.Get(ctx, signalID)
	if err != nil {
		return "", err
	}
	scheduleID := strconv.FormatInt(id.New(), 10)
	payload := domain.ScheduleCreatedPayload{ID: scheduleID, SignalID: signalID, StartsAt: startsAt}
	if _, err := s.emitAndApply(ctx, sig.RegionID, domain.TypeScheduleCreated, payload, ref(runID), nil); err != nil {
		return "", err
	}
	return scheduleID, nil
}

// LinkScheduleToSignal appends another ScheduleCreated event carrying only
// the schedule and signal IDs (StartsAt is left nil); kept to satisfy the
// Schedules interface the
// spec names, for callers that learn the link after the schedule exists
// (e.g. a schedule discovered before its owning signal was extracted).
func (s *Store) LinkScheduleToSignal(ctx context.Context, runID, scheduleID, signalID string) error {
	sig, err := s.Get(ctx, signalID)
	if err != nil {
		return err
	}
	payload := domain.ScheduleCreatedPayload{ID: scheduleID, SignalID: signalID}
	_, err = s.emitAndApply(ctx, sig.RegionID, domain.TypeScheduleCreated, payload, ref(runID), nil)
	return err
}
