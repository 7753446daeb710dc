package expansion

import (
	"context"
	"testing"

	"github.com/rootsignal/scout/internal/model"
	"github.com/rootsignal/scout/internal/store"
)

type fakeExpansionStore struct {
	store.SignalStore
	landscape []model.Signal
	sources   []model.Source
	created   []model.Source
}

func (f *fakeExpansionStore) GetSituationLandscape(ctx context.Context, regionID string) ([]model.Signal, error) {
	return f.landscape, nil
}

func (f *fakeExpansionStore) ListAll(ctx context.Context, regionID string) ([]model.Source, error) {
	return f.sources, nil
}

func (f *fakeExpansionStore) UpsertSource(ctx context.Context, runID string, src model.Source) error {
	f.created = append(f.created, src)
	f.sources = append(f.sources, src)
	return nil
}

func testRegion() model.Region {
	return model.Region{ID: "sf-bay", Name: "SF Bay Area"}
}

func TestExpandCollectsFromTensionAndNeedImmediately(t *testing.T) {
	fs := &fakeExpansionStore{landscape: []model.Signal{
		{Kind: model.KindTension, ImpliedQueries: []string{"eviction moratorium oakland"}},
		{Kind: model.KindNeed, ImpliedQueries: []string{"rental assistance fund"}},
	}}
	expander := New(nil, fs)
	stats, err := expander.Expand(context.Background(), "run-1", testRegion())
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if stats.SourcesCreated != 2 {
		t.Fatalf("SourcesCreated = %d, want 2", stats.SourcesCreated)
	}
}

func TestExpandGatesAidAndGatheringOnHeat(t *testing.T) {
	fs := &fakeExpansionStore{landscape: []model.Signal{
		{Kind: model.KindAid, CauseHeat: 0.2, ImpliedQueries: []string{"cold query"}},
		{Kind: model.KindGathering, CauseHeat: 0.9, ImpliedQueries: []string{"hot query"}},
	}}
	expander := New(nil, fs)
	stats, err := expander.Expand(context.Background(), "run-1", testRegion())
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if stats.SourcesCreated != 1 {
		t.Fatalf("SourcesCreated = %d, want 1 (only the high-heat query)", stats.SourcesCreated)
	}
	if fs.created[0].URI != "hot query" {
		t.Fatalf("created query = %q, want %q", fs.created[0].URI, "hot query")
	}
}

func TestExpandSkipsQueryAboveJaccardThreshold(t *testing.T) {
	fs := &fakeExpansionStore{
		landscape: []model.Signal{{Kind: model.KindTension, ImpliedQueries: []string{"tenant rights oakland meeting"}}},
		sources:   []model.Source{{Kind: model.SourceKindQuery, URI: "tenant rights oakland meeting tonight"}},
	}
	expander := New(nil, fs)
	stats, err := expander.Expand(context.Background(), "run-1", testRegion())
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if stats.SourcesCreated != 0 {
		t.Fatalf("SourcesCreated = %d, want 0 (near-duplicate of an existing query source)", stats.SourcesCreated)
	}
}

func TestExpandCapsAtMaxNewSourcesPerRun(t *testing.T) {
	var queries []string
	for i := 0; i < maxNewSourcesPerRun+5; i++ {
		queries = append(queries, string(rune('a'+i))+" unique query about civic issue number "+string(rune('0'+i%10)))
	}
	fs := &fakeExpansionStore{landscape: []model.Signal{{Kind: model.KindTension, ImpliedQueries: queries}}}
	expander := New(nil, fs)
	stats, err := expander.Expand(context.Background(), "run-1", testRegion())
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if stats.SourcesCreated != maxNewSourcesPerRun {
		t.Fatalf("SourcesCreated = %d, want %d", stats.SourcesCreated, maxNewSourcesPerRun)
	}
}
