package scrape

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/rootsignal/scout/common/id"
	"github.com/rootsignal/scout/common/logger"
	"github.com/rootsignal/scout/internal/dedup"
	"github.com/rootsignal/scout/internal/domain"
	"github.com/rootsignal/scout/internal/embed"
	"github.com/rootsignal/scout/internal/extractor"
	"github.com/rootsignal/scout/internal/geo"
	"github.com/rootsignal/scout/internal/model"
	"github.com/rootsignal/scout/internal/quality"
	"github.com/rootsignal/scout/internal/store"
)

// maxConcurrentPerFetcher bounds in-flight fetches to 10 per fetcher kind.
const maxConcurrentPerFetcher = 10

// Pipeline converts scheduled Sources into stored Signals with evidence.
type Pipeline struct {
	fetchers  map[FetcherKind]Fetcher
	extractor extractor.Extractor
	embedder  *embed.Cache
	store     store.SignalStore

	sem map[FetcherKind]chan struct{}
}

// New builds a Pipeline. fetchers may omit any kind; a missing kind falls
// back to the default HTTP page scraper.
func New(fetchers map[FetcherKind]Fetcher, ext extractor.Extractor, embedder *embed.Cache, st store.SignalStore) *Pipeline {
	if fetchers == nil {
		fetchers = map[FetcherKind]Fetcher{}
	}
	if _, ok := fetchers[FetcherPage]; !ok {
		fetchers[FetcherPage] = NewHTTPPageScraper()
	}

	sem := make(map[FetcherKind]chan struct{})
	for _, k := range []FetcherKind{FetcherPage, FetcherSearch, FetcherSocial, FetcherFeed} {
		sem[k] = make(chan struct{}, maxConcurrentPerFetcher)
	}

	return &Pipeline{fetchers: fetchers, extractor: ext, embedder: embedder, store: st, sem: sem}
}

// BatchStats summarizes what a ScrapeSources call produced, for the run's
// terminal RunStats.
type BatchStats struct {
	SourcesScraped  int
	SignalsCreated  int
	Corroborations  int
	DiscoveredLinks []string
}

// ScrapeSources runs the pipeline over every source concurrently,
// serializing extraction/dedup/embedding per-source to preserve dedup
// ordering while letting different sources overlap.
func (p *Pipeline) ScrapeSources(ctx context.Context, runID string, region model.Region, sources []model.Source) BatchStats {
	var mu sync.Mutex
	var stats BatchStats
	var wg sync.WaitGroup

	for _, src := range sources {
		src := src
		kind := ClassifyFetcher(src)
		fetcher, ok := p.fetchers[kind]
		if !ok {
			fetcher = p.fetchers[FetcherPage]
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			sem := p.sem[kind]
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			result := p.scrapeOneSafe(ctx, runID, region, src, fetcher)

			mu.Lock()
			stats.SourcesScraped++
			stats.SignalsCreated += result.created
			stats.Corroborations += result.corroborated
			stats.DiscoveredLinks = append(stats.DiscoveredLinks, result.discoveredLinks...)
			mu.Unlock()
		}()
	}

	wg.Wait()
	return stats
}

type sourceResult struct {
	created         int
	corroborated    int
	discoveredLinks []string
}

// scrapeOneSafe wraps scrapeOne with a panic recovery boundary so one
// source's failure (extraction bug, malformed page) never aborts the run,
// mirroring the teacher's processMessageSafe pattern.
func (p *Pipeline) scrapeOneSafe(ctx context.Context, runID string, region model.Region, src model.Source, fetcher Fetcher) (result sourceResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered scraping source",
				"panic", r, "stack", string(debug.Stack()), "source_id", src.ID)
		}
	}()
	return p.scrapeOne(ctx, runID, region, src, fetcher)
}

func (p *Pipeline) scrapeOne(ctx context.Context, runID string, region model.Region, src model.Source, fetcher Fetcher) sourceResult {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Region: region.ID, RunID: &runID, SourceID: &src.ID, Component: "scout.scrape.pipeline",
	})

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	content, err := fetcher.Fetch(fetchCtx, src.URI)
	cancel()
	if err != nil {
		slog.WarnContext(ctx, "fetch failed", "error", err)
		p.emitScrapeFailed(ctx, runID, region.ID, src.ID, err.Error())
		_ = p.store.RecordURLScrape(ctx, runID, src.ID, "", false, 0)
		return sourceResult{}
	}

	hash := contentHash(content)
	if src.LastHash != "" && src.LastHash == hash {
		slog.DebugContext(ctx, "content unchanged since last scrape, skipping extraction")
		_ = p.store.RecordURLScrape(ctx, runID, src.ID, hash, true, 0)
		return sourceResult{}
	}

	extraction, err := p.extractor.Extract(ctx, extractor.Input{
		URL: src.URI, Markdown: content, RegionContext: region.Name,
	})
	if err != nil {
		var extErr *extractor.Error
		reason := err.Error()
		if errors.As(err, &extErr) {
			reason = extErr.Reason
		}
		slog.WarnContext(ctx, "extraction failed, dropping batch", "error", err)
		p.emitExtractionFailed(ctx, runID, region.ID, src.ID, reason, extErr)
		_ = p.store.RecordURLScrape(ctx, runID, src.ID, hash, true, 0)
		return sourceResult{}
	}

	if err := p.upsertActors(ctx, runID, region.ID, extraction.Actors); err != nil {
		slog.WarnContext(ctx, "failed upserting actors", "error", err)
	}

	result := p.processSignals(ctx, runID, region, src, extraction.Signals, extraction.ImpliedQueries)
	result.discoveredLinks = extraction.DiscoveredLinks

	_ = p.store.RecordURLScrape(ctx, runID, src.ID, hash, true, result.created+result.corroborated)
	return result
}

func (p *Pipeline) upsertActors(ctx context.Context, runID, regionID string, actors []model.Actor) error {
	for _, a := range actors {
		a.RegionID = regionID
		if a.ID == "" {
			a.ID = strconv.FormatInt(id.New(), 10)
		}
		if err := p.store.UpsertActor(ctx, runID, a); err != nil {
			return fmt.Errorf("upsert actor %s: %w", a.Name, err)
		}
	}
	return nil
}

// processSignals runs quality scoring, geo filtering, and the three-layer
// dedup over a source's freshly extracted signals, in extraction order so
// within-batch dedup (layer 1) sees earlier signals from the same batch.
func (p *Pipeline) processSignals(ctx context.Context, runID string, region model.Region, src model.Source, raw []model.Signal, impliedQueries []string) sourceResult {
	var result sourceResult
	var batch []model.Signal

	globalPool, err := p.globalPool(ctx, region.ID)
	if err != nil {
		slog.WarnContext(ctx, "failed loading dedup pool", "error", err)
	}

	for _, sig := range raw {
		sig.RegionID = region.ID
		sig.FirstSeen = time.Now()
		sig.LastSeen = sig.FirstSeen
		sig.ReviewStatus = model.ReviewStatusStaged
		sig.SourceDiversity = 1
		sig.ImpliedQueries = impliedQueries

		if !p.passesGeoFilter(region, &sig) {
			p.emitGeoFiltered(ctx, runID, region.ID, src.ID, sig)
			continue
		}

		sig.Confidence = quality.Score(region, sig, src)

		embedText := sig.Title + "\n" + sig.Summary
		vec, embedErr := p.embedder.Embed(ctx, embedText)
		if embedErr != nil {
			slog.WarnContext(ctx, "embedding failed, degrading to exact-match dedup only", "error", embedErr)
			p.emitDegradedDedup(ctx, runID, region.ID, sig.Title, embedErr.Error())
		} else {
			sig.Embedding = vec
		}

		candidate := dedup.Candidate{Signal: sig, SourceID: src.ID}
		var verdict dedup.Result
		if dedup.WithinBatch(candidate, batch) {
			verdict = dedup.Result{Action: dedup.ActionDropDuplicate}
		} else if sig2, ok := dedup.GraphExact(candidate, nil, globalPool); ok {
			verdict = dedup.Result{Action: dedup.ActionCorroborate, CorroborateWith: sig2}
		} else if embedErr == nil {
			verdict = dedup.VectorSimilar(candidate, globalPool)
		} else {
			verdict = dedup.Result{Action: dedup.ActionKeepNew}
		}

		switch verdict.Action {
		case dedup.ActionDropDuplicate:
			continue
		case dedup.ActionCorroborate:
			if err := p.corroborate(ctx, runID, verdict.CorroborateWith, src, sig); err != nil {
				slog.WarnContext(ctx, "corroboration failed", "error", err)
				continue
			}
			result.corroborated++
		case dedup.ActionCoexist, dedup.ActionKeepNew:
			if err := p.storeNew(ctx, runID, src, sig); err != nil {
				slog.WarnContext(ctx, "storing signal failed", "error", err)
				continue
			}
			batch = append(batch, sig)
			globalPool = append(globalPool, dedup.PoolEntry{Signal: sig, SourceID: src.ID})
			result.created++
		}
	}

	return result
}

func (p *Pipeline) globalPool(ctx context.Context, regionID string) ([]dedup.PoolEntry, error) {
	signals, err := p.store.GetSituationLandscape(ctx, regionID)
	if err != nil {
		return nil, err
	}
	pool := make([]dedup.PoolEntry, len(signals))
	for i, s := range signals {
		sourceID, err := p.store.OriginSourceID(ctx, s.ID)
		if err != nil {
			slog.WarnContext(ctx, "resolving origin source for dedup pool entry failed", "signal", s.ID, "error", err)
		}
		pool[i] = dedup.PoolEntry{Signal: s, SourceID: sourceID}
	}
	return pool, nil
}

// passesGeoFilter drops a signal whose coordinates fall outside the
// region's envelope and whose location name matches no region geo term.
// A signal whose location name matches but whose coordinates sit within
// the center-pinning epsilon is treated as unlocated rather than dropped.
func (p *Pipeline) passesGeoFilter(region model.Region, sig *model.Signal) bool {
	if sig.Location == nil {
		if sig.LocationName != nil && geo.MatchesGeoTerms(region, *sig.LocationName) {
			return true
		}
		return sig.LocationName == nil || *sig.LocationName == ""
	}

	locationName := ""
	if sig.LocationName != nil {
		locationName = *sig.LocationName
	}
	if geo.IsCenterPinned(region, *sig.Location, locationName) {
		sig.Location = nil
		return true
	}

	if geo.InEnvelope(region, *sig.Location) {
		return true
	}
	if sig.LocationName != nil && geo.MatchesGeoTerms(region, *sig.LocationName) {
		sig.CrossRegion = true
		return true
	}
	return false
}

func (p *Pipeline) storeNew(ctx context.Context, runID string, src model.Source, sig model.Signal) error {
	sig.ID = strconv.FormatInt(id.New(), 10)
	if err := p.store.Create(ctx, runID, sig); err != nil {
		return err
	}
	return p.store.RecordCitation(ctx, runID, model.Citation{
		ID:          strconv.FormatInt(id.New(), 10),
		SignalID:    sig.ID,
		SourceID:    src.ID,
		SourceURL:   src.URI,
		ContentHash: contentHash(sig.Title + sig.Summary),
		Relevance:   model.RelevanceDirect,
		Confidence:  sig.Confidence,
		RetrievedAt: time.Now(),
	})
}

func (p *Pipeline) corroborate(ctx context.Context, runID string, existing model.Signal, src model.Source, observed model.Signal) error {
	if err := p.store.RecordCitation(ctx, runID, model.Citation{
		ID:          strconv.FormatInt(id.New(), 10),
		SignalID:    existing.ID,
		SourceID:    src.ID,
		SourceURL:   src.URI,
		ContentHash: contentHash(observed.Title + observed.Summary),
		Relevance:   model.RelevanceSupporting,
		Confidence:  observed.Confidence,
		RetrievedAt: time.Now(),
	}); err != nil {
		return err
	}
	return p.store.MarkCorroborated(ctx, runID, existing.ID, src.ID, 0.05)
}

func (p *Pipeline) emitScrapeFailed(ctx context.Context, runID, regionID, sourceID, reason string) {
	p.emitTelemetry(ctx, runID, regionID, domain.TypeScrapeFailed, domain.ScrapeFailedPayload{SourceID: sourceID, Reason: reason})
}

func (p *Pipeline) emitDegradedDedup(ctx context.Context, runID, regionID, title, reason string) {
	p.emitTelemetry(ctx, runID, regionID, domain.TypeDegradedDedup, domain.DegradedDedupPayload{SignalTitle: title, Reason: reason})
}

func (p *Pipeline) emitExtractionFailed(ctx context.Context, runID, regionID, sourceID, reason string, extErr *extractor.Error) {
	permanent := extErr != nil && extErr.Permanent
	p.emitTelemetry(ctx, runID, regionID, domain.TypeExtractionFailed, domain.ExtractionFailedPayload{SourceID: sourceID, Permanent: permanent, Reason: reason})
}

func (p *Pipeline) emitGeoFiltered(ctx context.Context, runID, regionID, sourceID string, sig model.Signal) {
	var lat, lng float64
	if sig.Location != nil {
		lat, lng = sig.Location.Lat, sig.Location.Lng
	}
	p.emitTelemetry(ctx, runID, regionID, domain.TypeGeoFiltered, domain.GeoFilteredPayload{
		SourceID: sourceID, Title: sig.Title, Lat: lat, Lng: lng, Reason: "outside region envelope",
	})
}

// emitTelemetry appends a telemetry event directly to the event log,
// bypassing SignalStore since telemetry never touches the graph.
func (p *Pipeline) emitTelemetry(ctx context.Context, runID, regionID string, typ domain.Type, payload any) {
	if recorder, ok := p.store.(telemetryRecorder); ok {
		if err := recorder.RecordTelemetry(ctx, regionID, typ, payload, runID); err != nil {
			slog.WarnContext(ctx, "failed recording telemetry event", "error", err, "type", typ)
		}
	}
}

// telemetryRecorder is implemented by *store.Store to let the pipeline
// append telemetry events without widening the SignalStore interface the
// spec names with an operation no other caller needs.
type telemetryRecorder interface {
	RecordTelemetry(ctx context.Context, regionID string, typ domain.Type, payload any, runID string) error
}

func contentHash(s string) string {
	h := fnv.New64a()
	h.Write([]byte(s))
	return fmt.Sprintf("%x", h.Sum64())
}
