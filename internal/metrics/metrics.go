// Package metrics recomputes each Source's weight and cadence after Phase
// B and deactivates sources that have stopped producing anything,
// grounded on the teacher's internal/brain planner metrics struct: a
// plain pass over accumulated counters, no external dependency needed.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rootsignal/scout/internal/model"
	"github.com/rootsignal/scout/internal/scheduler"
	"github.com/rootsignal/scout/internal/store"
)

// consecutiveEmptyRunsLimit deactivates any source after this many scrapes
// in a row produced zero stored signals.
const consecutiveEmptyRunsLimit = 10

// querySourceEmptyRunsLimit and querySourceMinScrapes are the tighter
// deactivation threshold for query-kind sources that have never produced
// a signal at all.
const (
	querySourceEmptyRunsLimit = 5
	querySourceMinScrapes     = 3
)

// weightRecorder is the narrow escape hatch Metrics reaches through, since
// SignalStore's operations table carries no "recompute" verb and
// Source.Suppress already covers deactivation.
type weightRecorder interface {
	RecordWeightRecomputed(ctx context.Context, runID, sourceID string, weight float64, cadenceHours int) error
}

// Stats summarizes one Recompute pass for the run's terminal RunStats.
type Stats struct {
	Recomputed  int
	Deactivated int
}

// Recompute walks every source in the region, recomputing weight and
// cadence_hours from current counters and deactivating any source that's
// crossed its empty-run limit.
func Recompute(ctx context.Context, st store.SignalStore, regionID, runID string, now time.Time) (Stats, error) {
	sources, err := st.ListAll(ctx, regionID)
	if err != nil {
		return Stats{}, fmt.Errorf("metrics: list sources: %w", err)
	}

	recorder, ok := st.(weightRecorder)
	if !ok {
		slog.WarnContext(ctx, "store does not support weight recompute telemetry, skipping")
		return Stats{}, nil
	}

	var stats Stats
	for _, src := range sources {
		if !src.Active {
			continue
		}

		if reason, deactivate := shouldDeactivate(src); deactivate {
			if err := st.Suppress(ctx, runID, src.ID, reason); err != nil {
				slog.WarnContext(ctx, "failed to deactivate source", "source_id", src.ID, "error", err)
				continue
			}
			stats.Deactivated++
			continue
		}

		weight := scheduler.Weight(src, now)
		cadence := scheduler.CadenceHours(weight)
		if weight == src.Weight && cadence == src.CadenceHours {
			continue
		}
		if err := recorder.RecordWeightRecomputed(ctx, runID, src.ID, weight, cadence); err != nil {
			slog.WarnContext(ctx, "failed to record recomputed weight", "source_id", src.ID, "error", err)
			continue
		}
		stats.Recomputed++
	}
	return stats, nil
}

// shouldDeactivate applies the two deactivation rules: the general
// 10-consecutive-empty-run rule for any source, and the tighter 5-run
// rule for query sources that have never produced a signal despite at
// least 3 scrapes.
func shouldDeactivate(src model.Source) (reason string, ok bool) {
	if src.ConsecutiveEmptyRuns >= consecutiveEmptyRunsLimit {
		return fmt.Sprintf("%d consecutive empty runs", src.ConsecutiveEmptyRuns), true
	}
	if src.Kind == model.SourceKindQuery &&
		src.ConsecutiveEmptyRuns >= querySourceEmptyRunsLimit &&
		src.ScrapeCount >= querySourceMinScrapes &&
		src.SignalsProduced == 0 {
		return fmt.Sprintf("query source: %d empty runs, %d scrapes, never produced a signal", src.ConsecutiveEmptyRuns, src.ScrapeCount), true
	}
	return "", false
}
