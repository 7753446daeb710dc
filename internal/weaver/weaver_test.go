package weaver

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rootsignal/scout/common/llm"
	"github.com/rootsignal/scout/internal/model"
	"github.com/rootsignal/scout/internal/store"
)

type fakeWeaverStore struct {
	store.SignalStore
	landscape []model.Signal
	stories   []model.Story

	edges        int
	putStories   []model.Story
}

func (f *fakeWeaverStore) GetSituationLandscape(ctx context.Context, regionID string) ([]model.Signal, error) {
	return f.landscape, nil
}

func (f *fakeWeaverStore) CreateSimilarTo(ctx context.Context, runID, fromSignalID, toSignalID string, weight float64) error {
	f.edges++
	return nil
}

func (f *fakeWeaverStore) PutStory(ctx context.Context, runID, regionID string, story model.Story) error {
	f.putStories = append(f.putStories, story)
	return nil
}

func (f *fakeWeaverStore) ListStories(ctx context.Context, regionID string) ([]model.Story, error) {
	return f.stories, nil
}

type fakeNarrativeClient struct{}

func (fakeNarrativeClient) Chat(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
	body, _ := json.Marshal(narrative{Headline: "Clinic and rally converge", Narrative: "Several related signals point to one event."})
	return nil, json.Unmarshal(body, result)
}
func (fakeNarrativeClient) Model() string { return "test-model" }

func unitVector(dim int, hot int) model.Vector {
	v := make(model.Vector, dim)
	v[hot] = 1
	return v
}

func testRegion() model.Region {
	return model.Region{ID: "sf-bay", Name: "SF Bay Area"}
}

func TestWeaveLinksSimilarSignalsAndBuildsOneStoryForAClique(t *testing.T) {
	now := time.Now()
	clique := unitVector(4, 0)
	noise := unitVector(4, 2)

	fs := &fakeWeaverStore{landscape: []model.Signal{
		{ID: "s1", Kind: model.KindTension, Embedding: clique, LastSeen: now},
		{ID: "s2", Kind: model.KindNeed, Embedding: clique, LastSeen: now},
		{ID: "s3", Kind: model.KindAid, Embedding: clique, LastSeen: now},
		{ID: "s4", Kind: model.KindAid, Embedding: noise, LastSeen: now},
	}}

	w := New(fakeNarrativeClient{}, fs)
	stats, err := w.Weave(context.Background(), "run-1", testRegion(), now)
	if err != nil {
		t.Fatalf("Weave: %v", err)
	}
	if stats.EdgesCreated != 3 {
		t.Fatalf("EdgesCreated = %d, want 3 (every pair within the identical-embedding clique)", stats.EdgesCreated)
	}
	if fs.edges != 3 {
		t.Fatalf("CreateSimilarTo called %d times, want 3", fs.edges)
	}
}

func TestKindDiversityCountsDistinctKinds(t *testing.T) {
	members := []model.Signal{{Kind: model.KindTension}, {Kind: model.KindTension}, {Kind: model.KindAid}}
	if got := kindDiversity(members); got != 2 {
		t.Fatalf("kindDiversity = %d, want 2", got)
	}
}

func TestComputeEnergyIsFractionOfRecentMembers(t *testing.T) {
	now := time.Now()
	members := []model.Signal{
		{LastSeen: now},
		{LastSeen: now.Add(-30 * 24 * time.Hour)},
	}
	got := computeEnergy(members, now)
	if got != 0.5 {
		t.Fatalf("computeEnergy = %v, want 0.5", got)
	}
}

func TestMatchPriorStoryRequiresSeventyPercentCarryover(t *testing.T) {
	prior := []model.Story{
		{ID: "story-old", SignalIDs: []string{"a", "b", "c", "d"}},
	}
	// 3 of 4 old members carry over: 75% >= 70%.
	matched, ok := matchPriorStory(prior, []string{"a", "b", "c", "z"})
	if !ok || matched.ID != "story-old" {
		t.Fatalf("matchPriorStory = (%+v, %v), want a match on story-old", matched, ok)
	}

	// Only 1 of 4 old members carry over: below threshold.
	_, ok = matchPriorStory(prior, []string{"a", "x", "y", "z"})
	if ok {
		t.Fatalf("matchPriorStory matched below the carryover threshold")
	}
}

func TestClassifyArcDefaultsToEmergingWithoutHistory(t *testing.T) {
	if got := classifyArc(0, 0.9, false); got != model.ArcEmerging {
		t.Fatalf("classifyArc = %v, want emerging for a brand new story", got)
	}
}

func TestClassifyArcFadingWhenVelocityDropsSharply(t *testing.T) {
	if got := classifyArc(-0.2, 0.4, true); got != model.ArcFading {
		t.Fatalf("classifyArc = %v, want fading", got)
	}
}

func TestClassifyArcGrowingVsStableByEnergyLevel(t *testing.T) {
	if got := classifyArc(0, 0.8, true); got != model.ArcGrowing {
		t.Fatalf("classifyArc = %v, want growing at high energy with flat velocity", got)
	}
	if got := classifyArc(0, 0.2, true); got != model.ArcStable {
		t.Fatalf("classifyArc = %v, want stable at low energy with flat velocity", got)
	}
}

func TestCentroidOfAveragesEmbeddings(t *testing.T) {
	members := []model.Signal{
		{Embedding: model.Vector{1, 0}},
		{Embedding: model.Vector{0, 1}},
	}
	got := centroidOf(members)
	if got[0] != 0.5 || got[1] != 0.5 {
		t.Fatalf("centroidOf = %v, want [0.5, 0.5]", got)
	}
}
