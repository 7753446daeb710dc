package config

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/rootsignal/scout/internal/model"
)

// regions.json carries the geographic envelope and geo-term alias list per
// region slug. Regions are operator-curated deployment metadata, not
// event-sourced state -- they never appear in the append-only log or the
// schema sketch's table list, so a bundled registry is the right home for
// them rather than a database table nothing else writes to.
//
//go:embed regions.json
var regionsFS embed.FS

// LoadRegion looks up a region by its CLI/env slug.
func LoadRegion(slug string) (model.Region, error) {
	data, err := regionsFS.ReadFile("regions.json")
	if err != nil {
		return model.Region{}, fmt.Errorf("config: read regions.json: %w", err)
	}
	var registry map[string]model.Region
	if err := json.Unmarshal(data, &registry); err != nil {
		return model.Region{}, fmt.Errorf("config: parse regions.json: %w", err)
	}
	region, ok := registry[slug]
	if !ok {
		return model.Region{}, fmt.Errorf("config: unknown region %q", slug)
	}
	region.ID = slug
	return region, nil
}
