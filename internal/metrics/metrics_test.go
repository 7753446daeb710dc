package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/rootsignal/scout/internal/model"
	"github.com/rootsignal/scout/internal/store"
)

type fakeMetricsStore struct {
	store.SignalStore
	sources     []model.Source
	suppressed  map[string]string
	recomputed  map[string][2]float64 // sourceID -> [weight, cadenceHours]
}

func (f *fakeMetricsStore) ListAll(ctx context.Context, regionID string) ([]model.Source, error) {
	return f.sources, nil
}

func (f *fakeMetricsStore) Suppress(ctx context.Context, runID, sourceID, reason string) error {
	if f.suppressed == nil {
		f.suppressed = map[string]string{}
	}
	f.suppressed[sourceID] = reason
	return nil
}

func (f *fakeMetricsStore) RecordWeightRecomputed(ctx context.Context, runID, sourceID string, weight float64, cadenceHours int) error {
	if f.recomputed == nil {
		f.recomputed = map[string][2]float64{}
	}
	f.recomputed[sourceID] = [2]float64{weight, float64(cadenceHours)}
	return nil
}

func TestRecomputeDeactivatesAfterTenConsecutiveEmptyRuns(t *testing.T) {
	fs := &fakeMetricsStore{sources: []model.Source{
		{ID: "src-1", Kind: model.SourceKindURL, Active: true, ConsecutiveEmptyRuns: 10},
	}}
	stats, err := Recompute(context.Background(), fs, "sf-bay", "run-1", time.Now())
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if stats.Deactivated != 1 {
		t.Fatalf("Deactivated = %d, want 1", stats.Deactivated)
	}
	if _, ok := fs.suppressed["src-1"]; !ok {
		t.Fatal("expected src-1 to be suppressed")
	}
}

func TestRecomputeAppliesTighterRuleToEmptyQuerySources(t *testing.T) {
	fs := &fakeMetricsStore{sources: []model.Source{
		{ID: "src-q", Kind: model.SourceKindQuery, Active: true, ConsecutiveEmptyRuns: 5, ScrapeCount: 3, SignalsProduced: 0},
	}}
	stats, err := Recompute(context.Background(), fs, "sf-bay", "run-1", time.Now())
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if stats.Deactivated != 1 {
		t.Fatalf("Deactivated = %d, want 1", stats.Deactivated)
	}
}

func TestRecomputeLeavesQuerySourceAloneBelowScrapeFloor(t *testing.T) {
	fs := &fakeMetricsStore{sources: []model.Source{
		{ID: "src-q", Kind: model.SourceKindQuery, Active: true, ConsecutiveEmptyRuns: 5, ScrapeCount: 2, SignalsProduced: 0, Weight: 0.5, CadenceHours: 24},
	}}
	stats, err := Recompute(context.Background(), fs, "sf-bay", "run-1", time.Now())
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if stats.Deactivated != 0 {
		t.Fatalf("Deactivated = %d, want 0 (below the 3-scrape floor)", stats.Deactivated)
	}
}

func TestRecomputeSkipsInactiveSources(t *testing.T) {
	fs := &fakeMetricsStore{sources: []model.Source{
		{ID: "src-1", Kind: model.SourceKindURL, Active: false, ConsecutiveEmptyRuns: 99},
	}}
	stats, err := Recompute(context.Background(), fs, "sf-bay", "run-1", time.Now())
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if stats.Deactivated != 0 || stats.Recomputed != 0 {
		t.Fatalf("expected no-op on an inactive source, got %+v", stats)
	}
}
