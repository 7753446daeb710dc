package agents

import (
	"context"
	"fmt"

	"github.com/rootsignal/scout/common/llm"
	"github.com/rootsignal/scout/internal/budget"
	"github.com/rootsignal/scout/internal/model"
	"github.com/rootsignal/scout/internal/scrape"
	"github.com/rootsignal/scout/internal/store"
)

// RunTensionLinker looks for an existing Tension that an orphan signal
// (one with no RESPONDS_TO/EVIDENCE_OF edge yet) belongs to, searching
// both the graph's tension landscape and the web when the graph alone
// doesn't resolve it.
func RunTensionLinker(ctx context.Context, tracker *budget.Tracker, client llm.AgentClient, tools WebTools, st store.SignalStore, orphan model.Signal, region model.Region, runID string) Outcome {
	tensions, err := st.GetTensionLandscape(ctx, region.ID)
	if err != nil || len(tensions) == 0 {
		return OutcomeNoMatch
	}

	candidateLines := ""
	for _, t := range tensions {
		candidateLines += fmt.Sprintf("- %s: %s\n", t.ID, t.Title)
	}

	outcome := Run(ctx, tracker, "TensionLinker", client, tools,
		tensionLinkerSystemPrompt(),
		fmt.Sprintf("Orphan signal %q: %s\n\nKnown tensions in this region:\n%s\nSearch the web if needed to confirm a match, then decide.",
			orphan.Title, orphan.Summary, candidateLines),
		func(ctx context.Context, commitText string) error {
			tensionID := extractArg(commitText, "tension_id")
			if tensionID == "" {
				return fmt.Errorf("tension linker: commit missing tension_id")
			}
			return st.CreateEvidenceOf(ctx, runID, orphan.ID, tensionID, 0.6)
		})
	recordOutcome(ctx, st, region.ID, runID, "TensionLinker", outcome)
	return outcome
}

func tensionLinkerSystemPrompt() string {
	return "You are TensionLinker. An orphan civic signal needs to be tied to the underlying Tension it relates to, " +
		"if one exists. Use search to corroborate a candidate tension with outside sources when the description " +
		"alone isn't conclusive. Call decide with verdict=\"commit\" and commit={\"tension_id\": \"<id>\"} once " +
		"confident, or verdict=\"give_up\" if none of the listed tensions match."
}

// NewWebTools builds the WebTools an agent uses for its web search and
// page-read steps, classifying the search fetcher the same way
// ScrapePipeline classifies a query-kind Source.
func NewWebTools(searcher, pages scrape.Fetcher) WebTools {
	return WebTools{Searcher: searcher, Pages: pages}
}
