package scrape_test

import (
	"context"
	"testing"
	"time"

	"github.com/rootsignal/scout/internal/domain"
	"github.com/rootsignal/scout/internal/embed"
	"github.com/rootsignal/scout/internal/extractor"
	"github.com/rootsignal/scout/internal/model"
	"github.com/rootsignal/scout/internal/scrape"
	"github.com/rootsignal/scout/internal/store"
)

// fakeStore implements store.SignalStore entirely in memory, for pipeline
// tests that need to observe what got written without a real graph.
type fakeStore struct {
	signals   map[string]model.Signal
	citations []model.Citation
	actors    map[string]model.Actor
	telemetry []domain.Type
	corroborated map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		signals: map[string]model.Signal{}, actors: map[string]model.Actor{},
		corroborated: map[string]int{},
	}
}

func (f *fakeStore) Create(ctx context.Context, runID string, sig model.Signal) error {
	f.signals[sig.ID] = sig
	return nil
}
func (f *fakeStore) Get(ctx context.Context, id string) (model.Signal, error) {
	s, ok := f.signals[id]
	if !ok {
		return model.Signal{}, store.ErrNotFound
	}
	return s, nil
}
func (f *fakeStore) Update(ctx context.Context, runID string, sig model.Signal) error {
	f.signals[sig.ID] = sig
	return nil
}
func (f *fakeStore) Expire(ctx context.Context, runID, signalID string) error { return nil }
func (f *fakeStore) SetReviewStatus(ctx context.Context, runID, signalID string, status model.ReviewStatus) error {
	return nil
}
func (f *fakeStore) SetInUniverse(ctx context.Context, runID, signalID string, inUniverse bool) error {
	return nil
}
func (f *fakeStore) BatchTag(ctx context.Context, runID string, signalIDs []string, tag string) error {
	return nil
}

func (f *fakeStore) RecordCitation(ctx context.Context, runID string, c model.Citation) error {
	f.citations = append(f.citations, c)
	return nil
}
func (f *fakeStore) FindSimilar(ctx context.Context, embedding model.Vector, kind model.Kind, regionID string, limit int) ([]model.Signal, error) {
	return nil, nil
}
func (f *fakeStore) MarkCorroborated(ctx context.Context, runID, signalID, corroboratingSourceID string, confidenceDelta float64) error {
	f.corroborated[signalID]++
	return nil
}

func (f *fakeStore) OriginSourceID(ctx context.Context, signalID string) (string, error) {
	for _, c := range f.citations {
		if c.SignalID == signalID {
			return c.SourceID, nil
		}
	}
	return "", nil
}

func (f *fakeStore) CreateRespondsTo(ctx context.Context, runID, fromSignalID, toSignalID string, confidence float64) error {
	return nil
}
func (f *fakeStore) CreateEvidenceOf(ctx context.Context, runID, fromSignalID, toSignalID string, confidence float64) error {
	return nil
}
func (f *fakeStore) CreateOffers(ctx context.Context, runID string, from, to store.EntityRef, confidence float64) error {
	return nil
}
func (f *fakeStore) CreatePrefers(ctx context.Context, runID string, from, to store.EntityRef, confidence float64) error {
	return nil
}
func (f *fakeStore) CreateRequires(ctx context.Context, runID string, from, to store.EntityRef, confidence float64) error {
	return nil
}
func (f *fakeStore) CreateResponse(ctx context.Context, runID, fromSignalID, toSignalID string, confidence float64) error {
	return nil
}

func (f *fakeStore) UpsertSource(ctx context.Context, runID string, src model.Source) error { return nil }
func (f *fakeStore) GetSource(ctx context.Context, id string) (model.Source, error)          { return model.Source{}, store.ErrNotFound }
func (f *fakeStore) ListDue(ctx context.Context, regionID string, now time.Time, role model.SourceRole) ([]model.Source, error) {
	return nil, nil
}
func (f *fakeStore) ListAll(ctx context.Context, regionID string) ([]model.Source, error) { return nil, nil }
func (f *fakeStore) RecordURLScrape(ctx context.Context, runID, sourceID, hash string, success bool, signalsStored int) error {
	return nil
}
func (f *fakeStore) Suppress(ctx context.Context, runID, sourceID, reason string) error { return nil }
func (f *fakeStore) CachedDomainVerdict(ctx context.Context, domainName string) (string, bool, error) {
	return "", false, nil
}
func (f *fakeStore) CacheDomainVerdict(ctx context.Context, domainName, verdict string) error { return nil }

func (f *fakeStore) UpsertActor(ctx context.Context, runID string, actor model.Actor) error {
	f.actors[actor.ID] = actor
	return nil
}
func (f *fakeStore) FindByName(ctx context.Context, regionID, name string) (model.Actor, bool, error) {
	return model.Actor{}, false, nil
}
func (f *fakeStore) FindByEntityID(ctx context.Context, id string) (model.Actor, bool, error) {
	return model.Actor{}, false, nil
}
func (f *fakeStore) LinkToSignal(ctx context.Context, runID, actorID, signalID string, kind domain.EdgeKind) error {
	return nil
}
func (f *fakeStore) LinkToSource(ctx context.Context, runID, actorID, sourceID string) error { return nil }
func (f *fakeStore) UpdateLocation(ctx context.Context, runID, actorID string, loc model.LatLng) error {
	return nil
}

func (f *fakeStore) StageSignalsInRegion(ctx context.Context, regionID string) ([]model.Signal, error) {
	return nil, nil
}
func (f *fakeStore) PromoteReadySituations(ctx context.Context, runID, regionID string, minConfidence float64) ([]model.Signal, error) {
	return nil, nil
}

func (f *fakeStore) CreateSchedule(ctx context.Context, runID, signalID string, startsAt *time.Time) (string, error) {
	return "", nil
}
func (f *fakeStore) LinkScheduleToSignal(ctx context.Context, runID, scheduleID, signalID string) error {
	return nil
}

func (f *fakeStore) FindTensionLinkerTargets(ctx context.Context, regionID string, limit int) ([]model.Signal, error) {
	return nil, nil
}
func (f *fakeStore) GetTensionLandscape(ctx context.Context, regionID string) ([]model.Signal, error) {
	return nil, nil
}
func (f *fakeStore) GetSituationLandscape(ctx context.Context, regionID string) ([]model.Signal, error) {
	out := make([]model.Signal, 0, len(f.signals))
	for _, s := range f.signals {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) RecordTelemetry(ctx context.Context, regionID string, typ domain.Type, payload any, runID string) error {
	f.telemetry = append(f.telemetry, typ)
	return nil
}

var _ store.SignalStore = (*fakeStore)(nil)

type fakeFetcher struct {
	content string
	err     error
}

func (f fakeFetcher) Fetch(ctx context.Context, uri string) (string, error) { return f.content, f.err }

type fakeExtractor struct {
	result extractor.Result
	err    error
}

func (f fakeExtractor) Extract(ctx context.Context, in extractor.Input) (extractor.Result, error) {
	return f.result, f.err
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}
func (fakeEmbedder) Dim() int      { return 3 }
func (fakeEmbedder) Model() string { return "test" }

func testRegion() model.Region {
	return model.Region{ID: "sf-bay", Name: "SF Bay Area", CenterLat: 37.7749, CenterLon: -122.4194, RadiusKm: 40}
}

func TestScrapeSourcesStoresNewSignal(t *testing.T) {
	fs := newFakeStore()
	ext := fakeExtractor{result: extractor.Result{
		Signals: []model.Signal{{Title: "Vigil downtown tonight", Summary: "community vigil", Kind: model.KindGathering}},
	}}
	pipeline := scrape.New(
		map[scrape.FetcherKind]scrape.Fetcher{scrape.FetcherPage: fakeFetcher{content: "<html>vigil</html>"}},
		ext, embed.New(fakeEmbedder{}, nil), fs,
	)

	src := model.Source{ID: "src-1", URI: "https://example.org/events", Kind: model.SourceKindURL, Role: model.SourceRoleTension}
	stats := pipeline.ScrapeSources(context.Background(), "run-1", testRegion(), []model.Source{src})

	if stats.SignalsCreated != 1 {
		t.Fatalf("SignalsCreated = %d, want 1", stats.SignalsCreated)
	}
	if len(fs.signals) != 1 {
		t.Fatalf("len(fs.signals) = %d, want 1", len(fs.signals))
	}
}

func TestScrapeSourcesEmitsScrapeFailedOnFetchError(t *testing.T) {
	fs := newFakeStore()
	pipeline := scrape.New(
		map[scrape.FetcherKind]scrape.Fetcher{scrape.FetcherPage: fakeFetcher{err: context.DeadlineExceeded}},
		fakeExtractor{}, embed.New(fakeEmbedder{}, nil), fs,
	)

	src := model.Source{ID: "src-1", URI: "https://example.org", Kind: model.SourceKindURL, Role: model.SourceRoleTension}
	pipeline.ScrapeSources(context.Background(), "run-1", testRegion(), []model.Source{src})

	found := false
	for _, typ := range fs.telemetry {
		if typ == domain.TypeScrapeFailed {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a ScrapeFailed telemetry event on fetch error")
	}
}

func TestClassifyFetcherRoutesQuerySourcesToSearch(t *testing.T) {
	src := model.Source{Kind: model.SourceKindQuery, URI: "tenant rights oakland"}
	if scrape.ClassifyFetcher(src) != scrape.FetcherSearch {
		t.Fatal("query-kind sources must classify as FetcherSearch")
	}
}

func TestClassifyFetcherDetectsFeedURL(t *testing.T) {
	src := model.Source{Kind: model.SourceKindURL, URI: "https://example.org/blog/rss"}
	if scrape.ClassifyFetcher(src) != scrape.FetcherFeed {
		t.Fatal("an /rss URL should classify as FetcherFeed")
	}
}
