// Package sourcefinder implements the two SourceFinder passes the system
// diagram runs mid- and end-of-run: turning links discovered mid-scrape
// into new page Sources (DiscoveryLinkFollowed), and closing role coverage
// gaps with new query Sources (DiscoveryGapAnalysis) when a region's
// Tension or Response side is thin relative to the other. Neither pass
// scrapes anything itself -- it only queues Sources for a future
// scheduling pass, the same deferred-discovery shape internal/expansion
// uses for implied queries.
package sourcefinder

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rootsignal/scout/common/id"
	"github.com/rootsignal/scout/internal/model"
	"github.com/rootsignal/scout/internal/store"
)

const (
	maxLinkFollowedPerRun = 10
	maxGapAnalysisPerRun  = 3

	// gapRoleFloor is the minimum share of active sources a role must
	// hold before a gap is considered worth chasing; below it, the
	// region is thin enough on that side to warrant a fresh query.
	gapRoleFloor = 0.25

	defaultCadenceHours = 72
)

// Finder queues new Sources for the scheduler's next pass.
type Finder struct {
	store store.SignalStore
}

func New(st store.SignalStore) *Finder {
	return &Finder{store: st}
}

// Stats summarizes one pass.
type Stats struct {
	SourcesCreated int
}

// FollowLinks turns a batch of links surfaced during extraction into new
// page Sources, skipping anything already known by canonical key.
func (f *Finder) FollowLinks(ctx context.Context, runID string, region model.Region, links []string) (Stats, error) {
	existing, err := f.store.ListAll(ctx, region.ID)
	if err != nil {
		return Stats{}, fmt.Errorf("sourcefinder: list sources: %w", err)
	}
	known := canonicalKeys(existing)

	var stats Stats
	for _, link := range links {
		if stats.SourcesCreated >= maxLinkFollowedPerRun {
			break
		}
		key := canonicalize(link)
		if key == "" || known[key] {
			continue
		}
		src := model.Source{
			ID:              strconv.FormatInt(id.New(), 10),
			RegionID:        region.ID,
			CanonicalKey:    key,
			Kind:            model.SourceKindURL,
			URI:             link,
			Role:            model.SourceRoleMixed,
			DiscoveryMethod: model.DiscoveryLinkFollowed,
			CadenceHours:    defaultCadenceHours,
			Active:          true,
		}
		if err := f.store.UpsertSource(ctx, runID, src); err != nil {
			continue
		}
		known[key] = true
		stats.SourcesCreated++
	}
	return stats, nil
}

// AnalyzeGaps compares how many active sources serve each role and queues
// a fresh search-query Source for whichever side is thin, so coverage
// self-corrects without a human curating new feeds.
func (f *Finder) AnalyzeGaps(ctx context.Context, runID string, region model.Region) (Stats, error) {
	existing, err := f.store.ListAll(ctx, region.ID)
	if err != nil {
		return Stats{}, fmt.Errorf("sourcefinder: list sources: %w", err)
	}

	var tension, response, total int
	for _, s := range existing {
		if !s.Active {
			continue
		}
		total++
		switch s.Role {
		case model.SourceRoleTension:
			tension++
		case model.SourceRoleResponse:
			response++
		}
	}
	if total == 0 {
		return Stats{}, nil
	}

	var stats Stats
	if float64(tension)/float64(total) < gapRoleFloor {
		if err := f.queueGapQuery(ctx, runID, region, model.SourceRoleTension, &stats); err != nil {
			return stats, err
		}
	}
	if float64(response)/float64(total) < gapRoleFloor {
		if err := f.queueGapQuery(ctx, runID, region, model.SourceRoleResponse, &stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (f *Finder) queueGapQuery(ctx context.Context, runID string, region model.Region, role model.SourceRole, stats *Stats) error {
	if stats.SourcesCreated >= maxGapAnalysisPerRun {
		return nil
	}
	query := gapQuery(region, role)
	src := model.Source{
		ID:              strconv.FormatInt(id.New(), 10),
		RegionID:        region.ID,
		CanonicalKey:    query,
		Kind:            model.SourceKindQuery,
		URI:             query,
		Role:            role,
		DiscoveryMethod: model.DiscoveryGapAnalysis,
		CadenceHours:    defaultCadenceHours,
		Active:          true,
	}
	if err := f.store.UpsertSource(ctx, runID, src); err != nil {
		return nil
	}
	stats.SourcesCreated++
	return nil
}

func gapQuery(region model.Region, role model.SourceRole) string {
	switch role {
	case model.SourceRoleTension:
		return fmt.Sprintf("community tensions and disputes in %s", region.Name)
	case model.SourceRoleResponse:
		return fmt.Sprintf("aid resources and community response in %s", region.Name)
	default:
		return fmt.Sprintf("civic news in %s", region.Name)
	}
}

func canonicalKeys(sources []model.Source) map[string]bool {
	out := make(map[string]bool, len(sources))
	for _, s := range sources {
		out[s.CanonicalKey] = true
	}
	return out
}

// canonicalize normalizes a URL so the same page reached via different
// query strings or fragments doesn't produce duplicate Sources.
func canonicalize(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	u.Fragment = ""
	u.RawQuery = ""
	return strings.ToLower(u.Host + strings.TrimSuffix(u.Path, "/"))
}
