// Package scout implements Scout.Run: the ten-stage per-region
// orchestration that ties the scheduler, scrape pipeline, synthesis
// agents, weaver, and expansion passes together under a single region
// lock and daily budget, grounded on the teacher's PipelineRun/processor
// orchestration shape (internal/pipeline/processor.go) -- one run owns a
// sequence of named stages, each recorded as a parent-pointer event tree,
// any of which may fail or be skipped without aborting the whole run.
package scout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/rootsignal/scout/common/id"
	"github.com/rootsignal/scout/common/llm"
	"github.com/rootsignal/scout/core/config"
	"github.com/rootsignal/scout/internal/agents"
	"github.com/rootsignal/scout/internal/budget"
	"github.com/rootsignal/scout/internal/domain"
	"github.com/rootsignal/scout/internal/expansion"
	"github.com/rootsignal/scout/internal/lock"
	"github.com/rootsignal/scout/internal/metrics"
	"github.com/rootsignal/scout/internal/model"
	"github.com/rootsignal/scout/internal/reaper"
	"github.com/rootsignal/scout/internal/scheduler"
	"github.com/rootsignal/scout/internal/scrape"
	"github.com/rootsignal/scout/internal/sourcefinder"
	"github.com/rootsignal/scout/internal/store"
	"github.com/rootsignal/scout/internal/weaver"
)

// maxSlotsPerPhase is the per-phase slot count the scheduler sizes
// exploration against; every due source is handed over even past it.
const maxSlotsPerPhase = 50

// estimatedScrapeCostCents is the flat per-source budget debit a scrape
// attempt (fetch + LLM extraction) is charged against, mirroring
// agents.EstimatedCostCents's flat-rate approach for the same reason:
// real per-call token cost isn't known until after the call.
const estimatedScrapeCostCents = 5

// telemetryRecorder and runRecorder are the narrow escape hatches Scout
// reaches through for run/phase bookkeeping, the same pattern
// internal/scrape and internal/agents use for ScrapeFailed/AgentOutcome.
type telemetryRecorder interface {
	RecordTelemetry(ctx context.Context, regionID string, typ domain.Type, payload any, runID string) error
}

type runRecorder interface {
	RecordRunEvent(ctx context.Context, regionID string, typ domain.Type, payload any, runID string) error
}

// Scout owns one region's run lifecycle: lock acquisition, phase
// sequencing, and terminal stats.
type Scout struct {
	cfg      config.Config
	lock     *lock.Lock
	tracker  *budget.Tracker
	store    store.SignalStore
	pipeline *scrape.Pipeline
	finder   *sourcefinder.Finder
	weaver   *weaver.Weaver
	expander *expansion.Expander
	client   llm.AgentClient
	tools    agents.WebTools
	rng      *rand.Rand
}

func New(
	cfg config.Config,
	lk *lock.Lock,
	tracker *budget.Tracker,
	st store.SignalStore,
	pipeline *scrape.Pipeline,
	finder *sourcefinder.Finder,
	wv *weaver.Weaver,
	expander *expansion.Expander,
	client llm.AgentClient,
	tools agents.WebTools,
) *Scout {
	return &Scout{
		cfg: cfg, lock: lk, tracker: tracker, store: st,
		pipeline: pipeline, finder: finder, weaver: wv, expander: expander,
		client: client, tools: tools,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run executes one full run for regionSlug. The returned RunLog is always
// populated, even on early failure (RunInProgress, ConfigError), so a
// caller can report an exit code without inspecting the error separately.
func (s *Scout) Run(ctx context.Context, regionSlug string) (model.RunLog, error) {
	region, err := config.LoadRegion(regionSlug)
	if err != nil {
		return model.RunLog{Status: model.RunStatusConfigError}, fmt.Errorf("scout: %w", err)
	}

	runID := strconv.FormatInt(id.New(), 10)
	startedAt := time.Now()
	runLog := model.RunLog{RunID: runID, RegionID: region.ID, StartedAt: startedAt, Status: model.RunStatusOK}

	leaseSeconds := int(s.cfg.RunMaxDuration / time.Second)
	if err := s.lock.Acquire(ctx, region.ID, runID, leaseSeconds); err != nil {
		if errors.Is(err, lock.ErrRunInProgress) {
			runLog.Status = model.RunStatusRunInProgress
			return finish(runLog, model.RunStats{}), err
		}
		runLog.Status = model.RunStatusConfigError
		return finish(runLog, model.RunStats{}), fmt.Errorf("scout: acquire region lock: %w", err)
	}
	s.emitRunEvent(ctx, region.ID, runID, domain.TypeRegionLockAcquired, domain.RegionLockAcquiredPayload{
		RegionID: region.ID, RunID: runID, LeaseExpiresAt: startedAt.Add(time.Duration(leaseSeconds) * time.Second),
	})
	defer func() {
		if err := s.lock.Release(ctx, region.ID, runID); err != nil {
			slog.WarnContext(ctx, "scout: failed to release region lock", "region", region.ID, "run_id", runID, "error", err)
		}
		s.emitRunEvent(ctx, region.ID, runID, domain.TypeRegionLockReleased, domain.RegionLockReleasedPayload{
			RegionID: region.ID, RunID: runID,
		})
	}()

	s.emitRunEvent(ctx, region.ID, runID, domain.TypeRunStarted, domain.RunStartedPayload{RunID: runID, RegionID: region.ID})

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunMaxDuration)
	defer cancel()

	stats := model.RunStats{AgentOutcomes: map[string]int{}}
	status := model.RunStatusOK

	// A cap already exhausted before this run even starts means the run
	// can't do anything useful -- exit 2, distinct from a budget that
	// runs dry partway through (that's a normal degraded run, exit 0,
	// per the partial-completion scenario).
	if ok, err := s.tracker.HasBudget(runCtx, 1); err == nil && !ok {
		runLog.Status = model.RunStatusBudgetExhausted
		s.emitRunEvent(ctx, region.ID, runID, domain.TypeRunFinished, domain.RunFinishedPayload{
			RunID: runID, Status: runLog.Status, Stats: stats,
		})
		return finish(runLog, stats), nil
	}

	var sourcesA, sourcesB []model.Source
	var batchA, batchB scrape.BatchStats

	s.runPhase(runCtx, region.ID, runID, model.PhaseReaper, &stats, func(ctx context.Context) error {
		r, err := reaper.Reap(ctx, s.store, region.ID, runID, s.cfg.Expiry, time.Now())
		stats.SignalsExpired += r.Expired
		return err
	})

	s.runPhase(runCtx, region.ID, runID, model.PhaseScheduler, &stats, func(ctx context.Context) error {
		all, err := s.store.ListAll(ctx, region.ID)
		if err != nil {
			return err
		}
		now := time.Now()
		planA := scheduler.Select(all, scheduler.PhaseA, now, maxSlotsPerPhase, s.rng)
		planB := scheduler.Select(all, scheduler.PhaseB, now, maxSlotsPerPhase, s.rng)
		sourcesA = append(append([]model.Source{}, planA.Due...), planA.Exploration...)
		sourcesB = append(append([]model.Source{}, planB.Due...), planB.Exploration...)
		return nil
	})

	s.runPhase(runCtx, region.ID, runID, model.PhaseScrapeA, &stats, func(ctx context.Context) error {
		affordable := s.affordableSources(ctx, region.ID, runID, sourcesA, &stats)
		batchA = s.pipeline.ScrapeSources(ctx, runID, region, affordable)
		stats.SourcesScraped += batchA.SourcesScraped
		stats.SignalsCreated += batchA.SignalsCreated
		stats.Corroborations += batchA.Corroborations
		return nil
	})

	s.runPhase(runCtx, region.ID, runID, model.PhaseSourceFinderMid, &stats, func(ctx context.Context) error {
		fstats, err := s.finder.FollowLinks(ctx, runID, region, batchA.DiscoveredLinks)
		stats.SourcesCreated += fstats.SourcesCreated
		return err
	})

	s.runPhase(runCtx, region.ID, runID, model.PhaseScrapeB, &stats, func(ctx context.Context) error {
		affordable := s.affordableSources(ctx, region.ID, runID, sourcesB, &stats)
		batchB = s.pipeline.ScrapeSources(ctx, runID, region, affordable)
		stats.SourcesScraped += batchB.SourcesScraped
		stats.SignalsCreated += batchB.SignalsCreated
		stats.Corroborations += batchB.Corroborations
		return nil
	})

	s.runPhase(runCtx, region.ID, runID, model.PhaseMetrics, &stats, func(ctx context.Context) error {
		_, err := metrics.Recompute(ctx, s.store, region.ID, runID, time.Now())
		return err
	})

	s.runPhase(runCtx, region.ID, runID, model.PhaseSynthesis, &stats, func(ctx context.Context) error {
		outcomes := s.runSynthesis(ctx, region, runID)
		for agent, counts := range outcomes {
			for outcome, n := range counts {
				stats.AgentOutcomes[agent+":"+outcome] += n
			}
		}
		return nil
	})

	s.runPhase(runCtx, region.ID, runID, model.PhaseWeaver, &stats, func(ctx context.Context) error {
		wstats, err := s.weaver.Weave(ctx, runID, region, time.Now())
		stats.StoriesBuilt += wstats.StoriesBuilt
		return err
	})

	s.runPhase(runCtx, region.ID, runID, model.PhaseExpansion, &stats, func(ctx context.Context) error {
		estats, err := s.expander.Expand(ctx, runID, region)
		stats.SourcesCreated += estats.SourcesCreated
		return err
	})

	s.runPhase(runCtx, region.ID, runID, model.PhaseSourceFinderEnd, &stats, func(ctx context.Context) error {
		fstats, err := s.finder.AnalyzeGaps(ctx, runID, region)
		stats.SourcesCreated += fstats.SourcesCreated
		return err
	})

	if runCtx.Err() != nil {
		status = model.RunStatusCancelled
	}

	runLog.Status = status
	s.emitRunEvent(ctx, region.ID, runID, domain.TypeRunFinished, domain.RunFinishedPayload{
		RunID: runID, Status: status, Stats: stats,
	})
	return finish(runLog, stats), nil
}

func finish(runLog model.RunLog, stats model.RunStats) model.RunLog {
	now := time.Now()
	runLog.FinishedAt = &now
	runLog.Stats = stats
	return runLog
}

// runPhase wraps a single stage with PhaseStarted/PhaseCompleted/
// PhaseSkipped telemetry and a panic-recovery boundary, mirroring the
// teacher's worker.processMessageSafe: one stage's bug never aborts the
// run, it just shows up as a skipped phase with a reason.
func (s *Scout) runPhase(ctx context.Context, regionID, runID string, phase model.Phase, stats *model.RunStats, fn func(ctx context.Context) error) {
	if ctx.Err() != nil {
		s.skipPhase(ctx, regionID, runID, phase, "run context cancelled", stats)
		return
	}

	s.emitTelemetry(ctx, regionID, runID, domain.TypePhaseStarted, domain.PhaseStartedPayload{Phase: phase})
	started := time.Now()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in phase %s: %v\n%s", phase, r, debug.Stack())
			}
		}()
		return fn(ctx)
	}()

	if err != nil {
		slog.ErrorContext(ctx, "scout: phase failed", "phase", phase, "error", err)
		s.skipPhase(ctx, regionID, runID, phase, err.Error(), stats)
		return
	}

	stats.CompletedPhases = append(stats.CompletedPhases, phase)
	s.emitTelemetry(ctx, regionID, runID, domain.TypePhaseCompleted, domain.PhaseCompletedPayload{
		Phase: phase, DurationMS: time.Since(started).Milliseconds(),
	})
}

func (s *Scout) skipPhase(ctx context.Context, regionID, runID string, phase model.Phase, reason string, stats *model.RunStats) {
	stats.SkippedPhases = append(stats.SkippedPhases, phase)
	s.emitTelemetry(ctx, regionID, runID, domain.TypePhaseSkipped, domain.PhaseSkippedPayload{Phase: phase, Reason: reason})
}

// affordableSources charges estimatedScrapeCostCents per source against
// the daily budget, dropping whatever no longer fits. A source dropped
// this way is simply absent from the batch -- the run itself still
// completes and exits 0, per the partial-completion scenario the spec's
// budget-exhaustion scenario requires.
func (s *Scout) affordableSources(ctx context.Context, regionID, runID string, sources []model.Source, stats *model.RunStats) []model.Source {
	affordable := make([]model.Source, 0, len(sources))
	for _, src := range sources {
		if err := s.tracker.Spend(ctx, estimatedScrapeCostCents); err != nil {
			if errors.Is(err, budget.ErrExhausted) {
				remaining, _ := s.tracker.Remaining(ctx)
				s.emitTelemetry(ctx, regionID, runID, domain.TypeBudgetExhausted, domain.BudgetExhaustedPayload{
					Operation: "scrape:" + src.ID, RemainingCents: remaining,
				})
				continue
			}
			slog.WarnContext(ctx, "scout: budget spend check failed, allowing source through", "source_id", src.ID, "error", err)
		}
		stats.BudgetSpentCents += estimatedScrapeCostCents
		affordable = append(affordable, src)
	}
	return affordable
}

func (s *Scout) emitTelemetry(ctx context.Context, regionID, runID string, typ domain.Type, payload any) {
	rec, ok := s.store.(telemetryRecorder)
	if !ok {
		return
	}
	if err := rec.RecordTelemetry(ctx, regionID, typ, payload, runID); err != nil {
		slog.WarnContext(ctx, "scout: failed to record telemetry", "type", typ, "error", err)
	}
}

func (s *Scout) emitRunEvent(ctx context.Context, regionID, runID string, typ domain.Type, payload any) {
	rec, ok := s.store.(runRecorder)
	if !ok {
		return
	}
	if err := rec.RecordRunEvent(ctx, regionID, typ, payload, runID); err != nil {
		slog.WarnContext(ctx, "scout: failed to record run event", "type", typ, "error", err)
	}
}
