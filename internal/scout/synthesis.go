package scout

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rootsignal/scout/internal/agents"
	"github.com/rootsignal/scout/internal/model"
)

// maxTensionLinkerTargets, maxTopTensions, and maxLowConfidenceSignals cap
// how many targets each agent chases in a single run, since every one of
// them costs at least one LLM round trip against the shared daily budget.
const (
	maxTensionLinkerTargets = 20
	maxTopTensions          = 5
	maxLowConfidenceSignals = 10

	// lowConfidenceThreshold is the cutoff Investigator chases: below it
	// a signal still sits well inside the spec's [0.1, 1.0] confidence
	// bound, but low enough that independent corroboration is worth the
	// budget.
	lowConfidenceThreshold = 0.4
)

// runSynthesis runs the five synthesis agents concurrently, one goroutine
// per agent type, each looping sequentially over its own target list.
// "Top tensions" and "low-confidence signals" aren't defined anywhere
// beyond their names, so topTensions/lowConfidenceSignals below pick the
// ranking: hottest-first for tensions (ResponseFinder/GatheringFinder),
// least-confident-first for signals (Investigator).
func (s *Scout) runSynthesis(ctx context.Context, region model.Region, runID string) map[string]map[string]int {
	var mu sync.Mutex
	outcomes := map[string]map[string]int{}
	record := func(agent string, outcome agents.Outcome) {
		mu.Lock()
		defer mu.Unlock()
		if outcomes[agent] == nil {
			outcomes[agent] = map[string]int{}
		}
		outcomes[agent][string(outcome)]++
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if _, err := agents.RunResponseMapper(gctx, s.tracker, s.client, s.store, region, runID); err != nil {
			slog.WarnContext(gctx, "scout: response mapper failed", "error", err)
			return nil
		}
		record("ResponseMapper", agents.OutcomeOK)
		return nil
	})

	g.Go(func() error {
		orphans, err := s.store.FindTensionLinkerTargets(gctx, region.ID, maxTensionLinkerTargets)
		if err != nil {
			slog.WarnContext(gctx, "scout: load tension linker targets failed", "error", err)
			return nil
		}
		for _, orphan := range orphans {
			record("TensionLinker", agents.RunTensionLinker(gctx, s.tracker, s.client, s.tools, s.store, orphan, region, runID))
		}
		return nil
	})

	g.Go(func() error {
		tensions, err := s.topTensions(gctx, region)
		if err != nil {
			slog.WarnContext(gctx, "scout: load top tensions failed (response finder)", "error", err)
			return nil
		}
		for _, t := range tensions {
			record("ResponseFinder", agents.RunResponseFinder(gctx, s.tracker, s.client, s.tools, s.store, t, region, runID))
		}
		return nil
	})

	g.Go(func() error {
		tensions, err := s.topTensions(gctx, region)
		if err != nil {
			slog.WarnContext(gctx, "scout: load top tensions failed (gathering finder)", "error", err)
			return nil
		}
		for _, t := range tensions {
			record("GatheringFinder", agents.RunGatheringFinder(gctx, s.tracker, s.client, s.tools, s.store, t, region, runID))
		}
		return nil
	})

	g.Go(func() error {
		targets, err := s.lowConfidenceSignals(gctx, region)
		if err != nil {
			slog.WarnContext(gctx, "scout: load low-confidence targets failed", "error", err)
			return nil
		}
		for _, sig := range targets {
			record("Investigator", agents.RunInvestigator(gctx, s.tracker, s.client, s.tools, s.store, sig, runID))
		}
		return nil
	})

	_ = g.Wait() // every goroutine swallows its own error; nothing to propagate
	return outcomes
}

// topTensions ranks live Tensions by cause_heat, hottest first, and caps
// the result at maxTopTensions.
func (s *Scout) topTensions(ctx context.Context, region model.Region) ([]model.Signal, error) {
	tensions, err := s.store.GetTensionLandscape(ctx, region.ID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tensions, func(i, j int) bool { return tensions[i].CauseHeat > tensions[j].CauseHeat })
	if len(tensions) > maxTopTensions {
		tensions = tensions[:maxTopTensions]
	}
	return tensions, nil
}

// lowConfidenceSignals selects live signals below lowConfidenceThreshold,
// least-confident first, capped at maxLowConfidenceSignals.
func (s *Scout) lowConfidenceSignals(ctx context.Context, region model.Region) ([]model.Signal, error) {
	all, err := s.store.GetSituationLandscape(ctx, region.ID)
	if err != nil {
		return nil, err
	}
	var candidates []model.Signal
	for _, sig := range all {
		if sig.Confidence < lowConfidenceThreshold {
			candidates = append(candidates, sig)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Confidence < candidates[j].Confidence })
	if len(candidates) > maxLowConfidenceSignals {
		candidates = candidates[:maxLowConfidenceSignals]
	}
	return candidates, nil
}
