// Package quality scores an extracted signal's confidence before it's
// written to the SignalStore. Raw signals from the extractor always carry
// confidence=0; this is the only place that assigns the real value.
package quality

import (
	"github.com/rootsignal/scout/internal/geo"
	"github.com/rootsignal/scout/internal/model"
)

// LocalTrustMultiplier discounts a Whitelisted source's signals when their
// geo doesn't match the region's own terms -- a source can be trusted to
// cover a wider area than the region's canonical geo terms describe, but
// that coverage is worth less than an exact local match.
const LocalTrustMultiplier = 0.8

// Score computes confidence = completeness*0.5 + geo_accuracy*0.5, widened
// so the natural range spans more of [0.1, 1.0] instead of collapsing into
// [0.4, 1.0]: completeness itself floors at 0.5 per the raw formula, which
// leaves low-information signals indistinguishable from mediocre ones. The
// widening rescales completeness's floor down to 0.1 before combining, so a
// bare-minimum signal (title+summary+kind only, no location/action/timing)
// scores near 0.1*0.5+0.3*0.5=0.2 instead of 0.5*0.5+0.3*0.5=0.4.
func Score(region model.Region, sig model.Signal, src model.Source) float64 {
	completeness := widen(rawCompleteness(sig))
	accuracy := geo.Accuracy(region, sig.Location, sig.LocationName)
	score := completeness*0.5 + accuracy*0.5
	if src.Whitelisted && !matchesRegionGeoTerms(region, sig) {
		score *= LocalTrustMultiplier
	}
	return score
}

// matchesRegionGeoTerms reports whether sig's location, by coordinates or
// name, actually falls within region's own envelope or geo terms.
func matchesRegionGeoTerms(region model.Region, sig model.Signal) bool {
	if sig.Location != nil && geo.InEnvelope(region, *sig.Location) {
		return true
	}
	if sig.LocationName != nil && *sig.LocationName != "" && geo.MatchesGeoTerms(region, *sig.LocationName) {
		return true
	}
	return false
}

// rawCompleteness is the fraction of {title, summary, kind (always
// present), location, action_url, timing} that's populated, floored at 0.5
// per the raw spec formula.
func rawCompleteness(sig model.Signal) float64 {
	total := 6.0
	present := 1.0 // kind is always present
	if sig.Title != "" {
		present++
	}
	if sig.Summary != "" {
		present++
	}
	if sig.Location != nil || (sig.LocationName != nil && *sig.LocationName != "") {
		present++
	}
	if sig.ActionURL != nil && *sig.ActionURL != "" {
		present++
	}
	if sig.Starts != nil || sig.Ends != nil {
		present++
	}
	frac := present / total
	if frac < 0.5 {
		frac = 0.5
	}
	return frac
}

// widen rescales the [0.5, 1.0] raw completeness range down to [0.1, 1.0],
// so confidence spreads across more of the unit interval.
func widen(raw float64) float64 {
	return 0.1 + (raw-0.5)/0.5*0.9
}
