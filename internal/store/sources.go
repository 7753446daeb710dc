package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rootsignal/scout/common/arangodb"
	"github.com/rootsignal/scout/internal/domain"
	"github.com/rootsignal/scout/internal/graph"
	"github.com/rootsignal/scout/internal/model"
)

func (s *Store) UpsertSource(ctx context.Context, runID string, src model.Source) error {
	_, err := s.emitAndApply(ctx, src.RegionID, domain.TypeSourceUpserted, domain.SourceUpsertedPayload{Source: src}, ref(runID), nil)
	return err
}

func (s *Store) GetSource(ctx context.Context, id string) (model.Source, error) {
	var src model.Source
	if err := s.db.Get(ctx, graph.CollSources, arangodb.MakeKey(id), &src); err != nil {
		if err == arangodb.ErrNotFound {
			return model.Source{}, fmt.Errorf("store: source %s: %w", id, ErrNotFound)
		}
		return model.Source{}, err
	}
	return src, nil
}

func (s *Store) ListAll(ctx context.Context, regionID string) ([]model.Source, error) {
	aql := `
		FOR src IN @@coll
			FILTER src.region_id == @region
			RETURN src
	`
	var out []model.Source
	err := s.db.Query(ctx, aql, map[string]any{"@coll": graph.CollSources, "region": regionID}, &out)
	return out, err
}

// ListDue returns active sources of the given role whose weight-derived
// cadence has elapsed as of now. Mixed sources match any role, and
// role=="" matches every role.
func (s *Store) ListDue(ctx context.Context, regionID string, now time.Time, role model.SourceRole) ([]model.Source, error) {
	all, err := s.ListAll(ctx, regionID)
	if err != nil {
		return nil, err
	}
	var due []model.Source
	for _, src := range all {
		if !src.Active {
			continue
		}
		if role != "" && src.Role != role && src.Role != model.SourceRoleMixed {
			continue
		}
		if src.IsDue(now, src.CadenceHours) {
			due = append(due, src)
		}
	}
	return due, nil
}

func (s *Store) RecordURLScrape(ctx context.Context, runID, sourceID, hash string, success bool, signalsStored int) error {
	src, err := s.GetSource(ctx, sourceID)
	if err != nil {
		return err
	}
	status := "ok"
	if !success {
		status = "failed"
	}
	payload := domain.SourceScrapedPayload{
		SourceID: sourceID, Success: success, Status: status, Hash: hash,
		SignalsStored: signalsStored, ScrapedAt: time.Now().UTC(),
	}
	_, err = s.emitAndApply(ctx, src.RegionID, domain.TypeSourceScraped, payload, ref(runID), nil)
	return err
}

// RecordWeightRecomputed appends SourceWeightRecomputed and applies it,
// updating the source's weight/cadence_hours fields on the graph. It's not
// part of SignalStore -- the spec's operations table has no explicit
// recompute op -- so internal/metrics reaches it through a narrow
// weightRecorder assertion, the same escape-hatch shape ScrapePipeline
// uses for telemetry.
func (s *Store) RecordWeightRecomputed(ctx context.Context, runID, sourceID string, weight float64, cadenceHours int) error {
	src, err := s.GetSource(ctx, sourceID)
	if err != nil {
		return err
	}
	_, err = s.emitAndApply(ctx, src.RegionID, domain.TypeSourceWeightRecomputed,
		domain.SourceWeightRecomputedPayload{SourceID: sourceID, Weight: weight, CadenceHours: cadenceHours},
		ref(runID), nil)
	return err
}

func (s *Store) Suppress(ctx context.Context, runID, sourceID, reason string) error {
	src, err := s.GetSource(ctx, sourceID)
	if err != nil {
		return err
	}
	_, err = s.emitAndApply(ctx, src.RegionID, domain.TypeSourceDeactivated, domain.SourceDeactivatedPayload{SourceID: sourceID, Reason: reason}, ref(runID), nil)
	return err
}

// CachedDomainVerdict and CacheDomainVerdict back the geo-filter's
// center-pinning and robots/ToS verdicts with a small collection keyed by
// bare domain rather than full URL, so a verdict learned scraping one page
// on a domain applies to the whole domain within a run.
func (s *Store) CachedDomainVerdict(ctx context.Context, domainName string) (string, bool, error) {
	var doc struct {
		Verdict string `json:"verdict"`
	}
	key := arangodb.MakeKey(domainName)
	if err := s.db.Get(ctx, graph.CollDomainVerdicts, key, &doc); err != nil {
		if err == arangodb.ErrNotFound {
			return "", false, nil
		}
		return "", false, err
	}
	return doc.Verdict, true, nil
}

func (s *Store) CacheDomainVerdict(ctx context.Context, domainName, verdict string) error {
	key := arangodb.MakeKey(domainName)
	return s.db.Upsert(ctx, graph.CollDomainVerdicts, key, map[string]any{"_key": key, "domain": domainName, "verdict": verdict})
}
