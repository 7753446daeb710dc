package agents

import (
	"context"
	"testing"

	"github.com/rootsignal/scout/internal/model"
	"github.com/rootsignal/scout/internal/store"
)

// citationStore implements only the Corroboration methods Investigator's
// commit path exercises; embedding store.SignalStore satisfies the rest
// of the interface without needing every method stubbed out.
type citationStore struct {
	store.SignalStore
	citations    []model.Citation
	corroborated map[string]float64
}

func (c *citationStore) RecordCitation(ctx context.Context, runID string, cit model.Citation) error {
	c.citations = append(c.citations, cit)
	return nil
}

func (c *citationStore) MarkCorroborated(ctx context.Context, runID, signalID, corroboratingSourceID string, confidenceDelta float64) error {
	if c.corroborated == nil {
		c.corroborated = map[string]float64{}
	}
	c.corroborated[signalID] += confidenceDelta
	return nil
}

func TestCommitCitationsCapsConfidenceDeltaAtTwoCitations(t *testing.T) {
	cs := &citationStore{}
	sig := model.Signal{ID: "sig-1", RegionID: "sf-bay", Confidence: 0.45}

	commitText := `[
		{"url":"https://a.example","snippet":"confirms it","relevance":"supporting","confidence":0.8},
		{"url":"https://b.example","snippet":"also confirms","relevance":"supporting","confidence":0.8},
		{"url":"https://c.example","snippet":"a third one","relevance":"supporting","confidence":0.9}
	]`

	if err := commitCitations(context.Background(), cs, "run-1", sig, commitText); err != nil {
		t.Fatalf("commitCitations: %v", err)
	}

	if len(cs.citations) != maxInvestigatorCitations {
		t.Fatalf("len(citations) = %d, want %d (excess citations dropped)", len(cs.citations), maxInvestigatorCitations)
	}
	got := cs.corroborated["sig-1"]
	want := maxInvestigatorCitations * citationDelta
	if got != want {
		t.Fatalf("confidence delta = %v, want %v", got, want)
	}
}

func TestCommitCitationsGivesNoCreditForDirectRelevance(t *testing.T) {
	cs := &citationStore{}
	sig := model.Signal{ID: "sig-1", RegionID: "sf-bay", Confidence: 0.45}

	commitText := `[{"url":"https://a.example","snippet":"same claim restated","relevance":"direct","confidence":0.9}]`

	if err := commitCitations(context.Background(), cs, "run-1", sig, commitText); err != nil {
		t.Fatalf("commitCitations: %v", err)
	}
	if len(cs.citations) != 1 {
		t.Fatalf("len(citations) = %d, want 1", len(cs.citations))
	}
	if cs.corroborated["sig-1"] != 0 {
		t.Fatalf("direct-relevance citation should not move confidence, got delta %v", cs.corroborated["sig-1"])
	}
}
