package agents

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rootsignal/scout/common/llm"
	"github.com/rootsignal/scout/internal/budget"
	"github.com/rootsignal/scout/internal/domain"
	"github.com/rootsignal/scout/internal/model"
	"github.com/rootsignal/scout/internal/store"
)

// telemetryRecorder mirrors the narrow escape hatch ScrapePipeline uses:
// SignalStore carries no telemetry operation, so agents reach it through
// a type assertion against the concrete *store.Store instead.
type telemetryRecorder interface {
	RecordTelemetry(ctx context.Context, regionID string, typ domain.Type, payload any, runID string) error
}

func recordOutcome(ctx context.Context, st store.SignalStore, regionID, runID, agentName string, outcome Outcome) {
	rec, ok := st.(telemetryRecorder)
	if !ok {
		return
	}
	if err := rec.RecordTelemetry(ctx, regionID, domain.TypeAgentOutcome, domain.AgentOutcomePayload{
		Agent: agentName, Outcome: string(outcome),
	}, runID); err != nil {
		slog.WarnContext(ctx, "failed to record agent outcome telemetry", "agent", agentName, "error", err)
	}
}

// RunResponseMapper links each Need/Tension signal to the Aid/Gathering
// signals that address it. It is the one agent the spec marks "LLM only
// (reads graph)": its Tools.Search returns a fixed candidate pool instead
// of searching the web, so it never calls out to a Fetcher.
func RunResponseMapper(ctx context.Context, tracker *budget.Tracker, client llm.AgentClient, st store.SignalStore, region model.Region, runID string) (linked int, err error) {
	signals, err := st.GetSituationLandscape(ctx, region.ID)
	if err != nil {
		return 0, fmt.Errorf("response mapper: load landscape: %w", err)
	}

	var targets, candidates []model.Signal
	for _, s := range signals {
		switch s.Kind {
		case model.KindNeed, model.KindTension:
			targets = append(targets, s)
		case model.KindAid, model.KindGathering:
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	results := make([]SearchResult, len(candidates))
	for i, c := range candidates {
		results[i] = SearchResult{URL: c.ID, Title: c.Title, Snippet: c.Summary}
	}

	for _, target := range targets {
		tools := GraphTools{Candidates: results}
		outcome := Run(ctx, tracker, "ResponseMapper", client, tools,
			responseMapperSystemPrompt(),
			fmt.Sprintf("Need/Tension signal %q (%s): %s\n\nWhich candidate signal ID responds to it, if any? Call search to see the candidate list, then decide.", target.ID, target.Kind, target.Summary),
			func(ctx context.Context, commitText string) error {
				match := extractArg(commitText, "signal_id")
				confidence := 0.6
				if match == "" {
					return fmt.Errorf("response mapper: commit missing signal_id")
				}
				return st.CreateRespondsTo(ctx, runID, match, target.ID, confidence)
			})
		if outcome == OutcomeOK {
			linked++
		}
		recordOutcome(ctx, st, region.ID, runID, "ResponseMapper", outcome)
	}
	return linked, nil
}

func responseMapperSystemPrompt() string {
	return "You are ResponseMapper, a civic-intelligence analyst linking needs to responses.\n" +
		"Given a Need or Tension signal and a list of candidate Aid/Gathering signals, decide whether one of the " +
		"candidates genuinely responds to it. Call the decide tool with verdict=\"commit\" and commit set to a JSON " +
		"object {\"signal_id\": \"<candidate id>\"} when you find a real match, verdict=\"give_up\" when none qualify."
}
