// Package scheduler picks which Sources a Scout run scrapes and in which
// phase. Every function here is pure: no I/O, no retries, missing fields
// fall back to the defaults named by each factor.
package scheduler

import (
	"math/rand"
	"sort"
	"time"

	"github.com/rootsignal/scout/internal/model"
)

const (
	bayesPrior = 0.3
	bayesK     = 3.0

	recencyFullDays = 30
	recencyFloorDays = 60
	recencyNeverScraped = 0.7
	recencyFloor     = 0.5

	explorationMinWeight   = 0.3
	explorationMinStaleDays = 14
	explorationFraction    = 0.10
)

// Weight computes a source's scheduling weight from its lifetime stats,
// combining four multiplicative factors: the Bayesian yield, a tension
// bonus of up to 2x, recency in [0.5, 1.0], and a diversity bonus of up
// to 1.5x. The factors are not clamped one by one; only the final product
// is clamped to [0,1].
func Weight(s model.Source, now time.Time) float64 {
	w := bayesYield(s) * tensionBonus(s) * recency(s, now) * diversity(s)
	if w < 0 {
		w = 0
	}
	if w > 1 {
		w = 1
	}
	return w
}

// bayesYield is the Bayesian-smoothed base productivity: converges to the
// true per-scrape yield rate as scrape_count grows, and to the prior when
// a source has no history.
func bayesYield(s model.Source) float64 {
	return (float64(s.SignalsProduced) + bayesPrior*bayesK) / (float64(s.ScrapeCount) + bayesK)
}

// tensionBonus rewards sources that have historically surfaced Tension
// signals, capped at 2x.
func tensionBonus(s model.Source) float64 {
	if s.SignalsProduced == 0 {
		return 1.0
	}
	tensionShare := float64(s.TensionSignalsCount) / float64(s.SignalsProduced)
	if tensionShare > 1 {
		tensionShare = 1
	}
	return 1 + tensionShare
}

// recency decays linearly from 1.0 at <=30 days stale to 0.5 at >=60 days
// stale; a source never scraped gets the benefit of the doubt at 0.7.
func recency(s model.Source, now time.Time) float64 {
	if s.LastScrapedAt == nil {
		return recencyNeverScraped
	}
	staleDays := now.Sub(*s.LastScrapedAt).Hours() / 24
	if staleDays <= recencyFullDays {
		return 1.0
	}
	if staleDays >= recencyFloorDays {
		return recencyFloor
	}
	span := float64(recencyFloorDays - recencyFullDays)
	frac := (staleDays - recencyFullDays) / span
	return 1.0 - frac*(1.0-recencyFloor)
}

// diversity rewards sources whose signals are corroborated by independent
// sources, up to a 1.5x multiplier proportional to the corroboration
// fraction.
func diversity(s model.Source) float64 {
	if s.SignalsProduced == 0 {
		return 1.0
	}
	frac := float64(s.CorroboratedFromCount) / float64(s.SignalsProduced)
	if frac > 1 {
		frac = 1
	}
	return 1 + 0.5*frac
}

// CadenceHours steps weight down into the band's scrape interval.
func CadenceHours(weight float64) int {
	switch {
	case weight <= 0.2:
		return 168
	case weight <= 0.4:
		return 72
	case weight <= 0.6:
		return 24
	case weight <= 0.8:
		return 12
	default:
		return 6
	}
}

// IsDue reports whether s should be scraped now under its current weight's
// cadence.
func IsDue(s model.Source, now time.Time) bool {
	return s.IsDue(now, CadenceHours(Weight(s, now)))
}

// Phase distinguishes the two scrape phases a scheduling pass splits
// sources across.
type Phase int

const (
	PhaseA Phase = iota // Tension + Mixed
	PhaseB              // Response + Mixed
)

// InPhase reports whether s is scheduled for the given phase per its role.
func InPhase(s model.Source, phase Phase) bool {
	switch phase {
	case PhaseA:
		return s.Role == model.SourceRoleTension || s.Role == model.SourceRoleMixed
	case PhaseB:
		return s.Role == model.SourceRoleResponse || s.Role == model.SourceRoleMixed
	default:
		return false
	}
}

// Plan is one phase's scheduling decision: the due sources (always
// scheduled) plus the exploration sources (selected from the stale,
// low-weight pool independent of cadence due-ness, per the resolved
// exploration-vs-cadence open question).
type Plan struct {
	Due         []model.Source
	Exploration []model.Source
}

// Select partitions candidates into Phase's due and exploration sets.
// Every due source is scheduled, even past maxSlots; exploration takes at
// most the slots maxSlots leaves after the due sources, and no more than
// explorationFraction of maxSlots, drawn at random from
// sources with weight < 0.3 that haven't been scraped in >= 14 days, so
// repeated calls with a different rng seed pick different candidates
// rather than cycling deterministically.
func Select(candidates []model.Source, phase Phase, now time.Time, maxSlots int, rng *rand.Rand) Plan {
	var due, explorationPool []model.Source
	for _, s := range candidates {
		if !InPhase(s, phase) {
			continue
		}
		if IsDue(s, now) {
			due = append(due, s)
			continue
		}
		if isExplorationCandidate(s, now) {
			explorationPool = append(explorationPool, s)
		}
	}

	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })

	explorationSlots := maxSlots - len(due)
	if maxExploration := int(float64(maxSlots) * explorationFraction); explorationSlots > maxExploration {
		explorationSlots = maxExploration
	}
	if explorationSlots < 0 {
		explorationSlots = 0
	}
	if explorationSlots > len(explorationPool) {
		explorationSlots = len(explorationPool)
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	shuffled := append([]model.Source(nil), explorationPool...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	return Plan{Due: due, Exploration: shuffled[:explorationSlots]}
}

// isExplorationCandidate reports whether s qualifies for the exploration
// pool: low weight, stale past the 14-day floor, exempt from the cadence
// due-ness check per the resolved open question (a source whose cadence
// tier already exceeds 14 days would otherwise never reach exploration).
func isExplorationCandidate(s model.Source, now time.Time) bool {
	if Weight(s, now) >= explorationMinWeight {
		return false
	}
	if s.LastScrapedAt == nil {
		return true
	}
	staleDays := now.Sub(*s.LastScrapedAt).Hours() / 24
	return staleDays >= explorationMinStaleDays
}
