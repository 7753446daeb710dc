package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rootsignal/scout/common/id"
	"github.com/rootsignal/scout/common/llm"
	"github.com/rootsignal/scout/internal/budget"
	"github.com/rootsignal/scout/internal/model"
	"github.com/rootsignal/scout/internal/store"
)

// citationDelta is the confidence bump a single Supporting citation earns
// a low-confidence signal. Direct-relevance citations earn no confidence
// credit at all -- only Supporting ones nudge the score, and even those
// are capped below.
const citationDelta = 0.02

// maxInvestigatorCitations caps both how many citations a single
// invocation records and, combined with citationDelta, the total
// confidence bump one Investigator pass can apply (2 * 0.02 = 0.04).
const maxInvestigatorCitations = 2

type investigatorCitation struct {
	URL        string `json:"url"`
	Snippet    string `json:"snippet"`
	Relevance  string `json:"relevance"` // "direct", "supporting", "contradicting"
	Confidence float64 `json:"confidence"`
}

// RunInvestigator corroborates a low-confidence signal by searching for
// outside coverage. Up to maxInvestigatorCitations citations are recorded
// and any beyond that are dropped; only Supporting
// citations at confidence >= 0.5 move the signal's own confidence, capped
// at maxInvestigatorCitations * citationDelta total.
func RunInvestigator(ctx context.Context, tracker *budget.Tracker, client llm.AgentClient, tools WebTools, st store.SignalStore, sig model.Signal, runID string) Outcome {
	outcome := Run(ctx, tracker, "Investigator", client, tools,
		investigatorSystemPrompt(),
		fmt.Sprintf("Signal %q (confidence %.2f): %s\n\nFind independent coverage that corroborates or contradicts this.", sig.Title, sig.Confidence, sig.Summary),
		func(ctx context.Context, commitText string) error {
			return commitCitations(ctx, st, runID, sig, commitText)
		})
	recordOutcome(ctx, st, sig.RegionID, runID, "Investigator", outcome)
	return outcome
}

func investigatorSystemPrompt() string {
	return "You are Investigator. Given a low-confidence civic signal, search for independent articles that " +
		"corroborate or contradict it. Call decide with verdict=\"commit\" and commit set to a JSON array of up to " +
		fmt.Sprintf("%d", maxInvestigatorCitations) + " objects {\"url\",\"snippet\",\"relevance\",\"confidence\"}, " +
		"relevance one of direct/supporting/contradicting. Call decide with verdict=\"give_up\" if nothing turns up."
}

func commitCitations(ctx context.Context, st store.SignalStore, runID string, sig model.Signal, commitText string) error {
	var found []investigatorCitation
	if err := json.Unmarshal([]byte(commitText), &found); err != nil {
		return fmt.Errorf("investigator: parse citations: %w", err)
	}
	if len(found) > maxInvestigatorCitations {
		found = found[:maxInvestigatorCitations]
	}

	var totalDelta float64
	for _, c := range found {
		citation := model.Citation{
			ID:          strconv.FormatInt(id.New(), 10),
			SignalID:    sig.ID,
			SourceURL:   c.URL,
			Snippet:     c.Snippet,
			Relevance:   model.Relevance(c.Relevance),
			Confidence:  c.Confidence,
			RetrievedAt: time.Now(),
		}
		if err := st.RecordCitation(ctx, runID, citation); err != nil {
			return fmt.Errorf("investigator: record citation: %w", err)
		}
		// Direct relevance earns no confidence credit -- it's treated as
		// restating the same claim, not an independent confirmation.
		if citation.Relevance == model.RelevanceSupporting && citation.Confidence >= 0.5 {
			totalDelta += citationDelta
		}
	}
	if totalDelta > maxInvestigatorCitations*citationDelta {
		totalDelta = maxInvestigatorCitations * citationDelta
	}
	if totalDelta > 0 {
		return st.MarkCorroborated(ctx, runID, sig.ID, "", totalDelta)
	}
	return nil
}
