// Package geo filters extracted signals against a region's geographic
// envelope and flags the center-pinning artifact some extractors produce
// when they fall back to a region's centroid instead of a real location.
package geo

import (
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/rootsignal/scout/internal/model"
)

// centerPinEpsilonDegrees is the tolerance around a region's center that
// counts as "suspiciously exact", per the spec's center-pinning artifact
// definition.
const centerPinEpsilonDegrees = 0.01

// InEnvelope reports whether loc falls within radiusKm of the region
// center.
func InEnvelope(region model.Region, loc model.LatLng) bool {
	center := orb.Point{region.CenterLon, region.CenterLat}
	point := orb.Point{loc.Lng, loc.Lat}
	distanceKm := geo.Distance(center, point) / 1000
	return distanceKm <= region.RadiusKm
}

// IsCenterPinned reports whether loc is within centerPinEpsilonDegrees of
// the region's center AND locationName matches the region name — the
// signature of an extractor that fell back to the region centroid rather
// than finding a real location.
func IsCenterPinned(region model.Region, loc model.LatLng, locationName string) bool {
	latDelta := loc.Lat - region.CenterLat
	lngDelta := loc.Lng - region.CenterLon
	if latDelta < 0 {
		latDelta = -latDelta
	}
	if lngDelta < 0 {
		lngDelta = -lngDelta
	}
	if latDelta > centerPinEpsilonDegrees || lngDelta > centerPinEpsilonDegrees {
		return false
	}
	return strings.Contains(strings.ToLower(locationName), strings.ToLower(region.Name))
}

// MatchesGeoTerms reports whether text mentions any of the region's known
// place names, used as a text-level backstop when a signal carries no
// machine-readable coordinates at all.
func MatchesGeoTerms(region model.Region, text string) bool {
	lower := strings.ToLower(text)
	for _, term := range region.GeoTerms {
		if term == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// Accuracy scores a signal's location precision for the quality formula:
// 1.0 for exact coordinates within the envelope, 0.7 when only a
// neighborhood-level location name is present, 0.3 for a bare city
// mention or nothing at all.
func Accuracy(region model.Region, loc *model.LatLng, locationName *string) float64 {
	if loc != nil && InEnvelope(region, *loc) {
		return 1.0
	}
	if locationName != nil && *locationName != "" && MatchesGeoTerms(region, *locationName) {
		return 0.7
	}
	return 0.3
}
