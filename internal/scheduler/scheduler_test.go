package scheduler_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/rootsignal/scout/internal/model"
	"github.com/rootsignal/scout/internal/scheduler"
)

func TestWeightIsBoundedToUnitInterval(t *testing.T) {
	now := time.Now()
	sources := []model.Source{
		{SignalsProduced: 0, ScrapeCount: 0},
		{SignalsProduced: 100, ScrapeCount: 10, TensionSignalsCount: 100, CorroboratedFromCount: 100},
		{SignalsProduced: 5, ScrapeCount: 50},
	}
	for _, s := range sources {
		w := scheduler.Weight(s, now)
		if w < 0 || w > 1 {
			t.Fatalf("Weight(%+v) = %v, want in [0,1]", s, w)
		}
	}
}

func TestBayesianSmoothingConvergesToPriorAtZero(t *testing.T) {
	now := time.Now()
	s := model.Source{SignalsProduced: 0, ScrapeCount: 0, LastScrapedAt: &now}
	w := scheduler.Weight(s, now)
	// At zero history, tension/diversity factors are neutral (1.0) and
	// recency is 1.0 (zero staleness), so weight reduces to the raw
	// Bayesian base: prior*k / k = prior = 0.3.
	if diff := w - 0.3; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("Weight at zero history = %v, want ~0.3", w)
	}
}

func TestSourceNeverScrapedGetsBenefitOfTheDoubt(t *testing.T) {
	now := time.Now()
	s := model.Source{SignalsProduced: 0, ScrapeCount: 0}
	w := scheduler.Weight(s, now)
	want := 0.3 * 1.0 * 0.7 * 1.0
	if diff := w - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("Weight for never-scraped source = %v, want %v", w, want)
	}
}

func TestCadenceHoursStepsDownAsWeightRises(t *testing.T) {
	cases := []struct {
		weight float64
		want   int
	}{
		{0.0, 168}, {0.2, 168},
		{0.3, 72}, {0.4, 72},
		{0.5, 24}, {0.6, 24},
		{0.7, 12}, {0.8, 12},
		{0.9, 6}, {1.0, 6},
	}
	for _, c := range cases {
		if got := scheduler.CadenceHours(c.weight); got != c.want {
			t.Errorf("CadenceHours(%v) = %v, want %v", c.weight, got, c.want)
		}
	}
}

func TestSelectAlwaysSchedulesDueSources(t *testing.T) {
	now := time.Now()
	old := now.Add(-200 * 24 * time.Hour)
	candidates := make([]model.Source, 0, 20)
	for i := 0; i < 18; i++ {
		candidates = append(candidates, model.Source{
			ID: string(rune('a' + i)), Role: model.SourceRoleTension,
			LastScrapedAt: &old,
		})
	}
	for i := 0; i < 2; i++ {
		candidates = append(candidates, model.Source{
			ID: "low" + string(rune('a'+i)), Role: model.SourceRoleTension,
			LastScrapedAt: &old, SignalsProduced: 0, ScrapeCount: 20,
		})
	}

	plan := scheduler.Select(candidates, scheduler.PhaseA, now, 20, rand.New(rand.NewSource(42)))
	if len(plan.Due) != 20 {
		t.Fatalf("len(Due) = %d, want 20 (every candidate is stale-due)", len(plan.Due))
	}
}

func TestExplorationNeverPicksWeightAtOrAboveThreshold(t *testing.T) {
	now := time.Now()
	stale := now.Add(-30 * 24 * time.Hour)
	candidates := []model.Source{
		{ID: "high-weight-stale", Role: model.SourceRoleTension, SignalsProduced: 50, ScrapeCount: 5, LastScrapedAt: &stale},
		{ID: "low-weight-stale", Role: model.SourceRoleTension, SignalsProduced: 0, ScrapeCount: 50, LastScrapedAt: &stale},
	}
	plan := scheduler.Select(candidates, scheduler.PhaseA, now, 100, rand.New(rand.NewSource(7)))
	for _, s := range plan.Exploration {
		if scheduler.Weight(s, now) >= 0.3 {
			t.Fatalf("exploration picked %s with weight >= 0.3", s.ID)
		}
	}
}

func TestInPhasePartitionsByRole(t *testing.T) {
	tension := model.Source{Role: model.SourceRoleTension}
	response := model.Source{Role: model.SourceRoleResponse}
	mixed := model.Source{Role: model.SourceRoleMixed}

	if !scheduler.InPhase(tension, scheduler.PhaseA) || scheduler.InPhase(tension, scheduler.PhaseB) {
		t.Fatal("Tension source should be Phase A only")
	}
	if !scheduler.InPhase(response, scheduler.PhaseB) || scheduler.InPhase(response, scheduler.PhaseA) {
		t.Fatal("Response source should be Phase B only")
	}
	if !scheduler.InPhase(mixed, scheduler.PhaseA) || !scheduler.InPhase(mixed, scheduler.PhaseB) {
		t.Fatal("Mixed source should be scheduled in both phases")
	}
}
