package reaper

import (
	"context"
	"testing"
	"time"

	"github.com/rootsignal/scout/core/config"
	"github.com/rootsignal/scout/internal/model"
	"github.com/rootsignal/scout/internal/store"
)

type fakeReaperStore struct {
	store.SignalStore
	signals []model.Signal
	expired []string
}

func (f *fakeReaperStore) GetSituationLandscape(ctx context.Context, regionID string) ([]model.Signal, error) {
	return f.signals, nil
}

func (f *fakeReaperStore) Expire(ctx context.Context, runID, signalID string) error {
	f.expired = append(f.expired, signalID)
	return nil
}

func testExpiry() config.ExpiryDays {
	return config.ExpiryDays{Gathering: 30, Aid: 60, Need: 60, Notice: 90}
}

func TestReapExpiresGatheringPastEndDate(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	ends := now.Add(-31 * 24 * time.Hour)
	fs := &fakeReaperStore{signals: []model.Signal{
		{ID: "g1", Kind: model.KindGathering, Ends: &ends, LastSeen: now.Add(-40 * 24 * time.Hour)},
	}}

	stats, err := Reap(context.Background(), fs, "sf-bay", "run-1", testExpiry(), now)
	if err != nil {
		t.Fatalf("Reap: %v", err)
	}
	if stats.Expired != 1 || fs.expired[0] != "g1" {
		t.Fatalf("stats = %+v, expired = %v, want g1 expired", stats, fs.expired)
	}
}

func TestReapNeverExpiresTension(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	fs := &fakeReaperStore{signals: []model.Signal{
		{ID: "t1", Kind: model.KindTension, LastSeen: now.Add(-1000 * 24 * time.Hour)},
	}}

	stats, err := Reap(context.Background(), fs, "sf-bay", "run-1", testExpiry(), now)
	if err != nil {
		t.Fatalf("Reap: %v", err)
	}
	if stats.Expired != 0 {
		t.Fatalf("stats.Expired = %d, want 0", stats.Expired)
	}
}

func TestReapLeavesFreshSignalsAlone(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	fs := &fakeReaperStore{signals: []model.Signal{
		{ID: "n1", Kind: model.KindNeed, LastSeen: now.Add(-5 * 24 * time.Hour)},
		{ID: "a1", Kind: model.KindAid, LastSeen: now.Add(-61 * 24 * time.Hour)},
	}}

	stats, err := Reap(context.Background(), fs, "sf-bay", "run-1", testExpiry(), now)
	if err != nil {
		t.Fatalf("Reap: %v", err)
	}
	if stats.Expired != 1 || fs.expired[0] != "a1" {
		t.Fatalf("stats = %+v, expired = %v, want only a1 expired", stats, fs.expired)
	}
}

func TestReapSkipsAlreadyExpiredSignals(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	fs := &fakeReaperStore{signals: []model.Signal{
		{ID: "n1", Kind: model.KindNeed, LastSeen: now.Add(-100 * 24 * time.Hour), Expired: true},
	}}

	stats, err := Reap(context.Background(), fs, "sf-bay", "run-1", testExpiry(), now)
	if err != nil {
		t.Fatalf("Reap: %v", err)
	}
	if stats.Expired != 0 || len(fs.expired) != 0 {
		t.Fatalf("stats = %+v, want no-op on already-expired signal", stats)
	}
}
