// Package reaper expires signals past their kind-specific TTL, grounded
// on internal/metrics's shape: a plain pass over the region's current
// signals, no external dependency needed. Expiry is soft -- Expire only
// flips the expired flag and the signal stays in the graph. Nothing clears
// the flag again: the dedup pool leaves expired signals out, so a
// re-discovered item is stored as a new signal.
package reaper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rootsignal/scout/core/config"
	"github.com/rootsignal/scout/internal/model"
	"github.com/rootsignal/scout/internal/store"
)

// Stats summarizes one Reap pass for the run's terminal RunStats.
type Stats struct {
	Expired int
}

// Reap walks every live, non-expired signal in a region and expires any
// one whose kind-specific TTL has elapsed. Tension never expires.
func Reap(ctx context.Context, st store.SignalStore, regionID, runID string, expiry config.ExpiryDays, now time.Time) (Stats, error) {
	signals, err := st.GetSituationLandscape(ctx, regionID)
	if err != nil {
		return Stats{}, fmt.Errorf("reaper: load signals: %w", err)
	}

	var stats Stats
	for _, sig := range signals {
		if sig.Expired {
			continue
		}
		if !isDue(sig, expiry, now) {
			continue
		}
		if err := st.Expire(ctx, runID, sig.ID); err != nil {
			slog.WarnContext(ctx, "reaper: failed to expire signal", "signal_id", sig.ID, "error", err)
			continue
		}
		stats.Expired++
	}
	return stats, nil
}

// isDue reports whether sig has outlived its kind-specific TTL. A
// Gathering's clock starts at its Ends time (falling back to LastSeen if
// it never carried an end time); every other expiring kind's clock starts
// at LastSeen, so a signal that keeps getting corroborated never ages out.
func isDue(sig model.Signal, expiry config.ExpiryDays, now time.Time) bool {
	switch sig.Kind {
	case model.KindTension:
		return false
	case model.KindGathering:
		anchor := sig.LastSeen
		if sig.Ends != nil {
			anchor = *sig.Ends
		}
		return now.Sub(anchor) >= time.Duration(expiry.Gathering)*24*time.Hour
	case model.KindAid:
		return now.Sub(sig.LastSeen) >= time.Duration(expiry.Aid)*24*time.Hour
	case model.KindNeed:
		return now.Sub(sig.LastSeen) >= time.Duration(expiry.Need)*24*time.Hour
	case model.KindNotice:
		return now.Sub(sig.LastSeen) >= time.Duration(expiry.Notice)*24*time.Hour
	default:
		return false
	}
}
