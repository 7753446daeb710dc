package agents

import (
	"context"
	"fmt"

	"github.com/rootsignal/scout/common/llm"
	"github.com/rootsignal/scout/internal/budget"
	"github.com/rootsignal/scout/internal/model"
	"github.com/rootsignal/scout/internal/store"
)

// RunGatheringFinder investigates a top tension for physical gatherings
// (vigils, town halls, rallies) and commits a new Gathering signal linked
// back to it on a match.
func RunGatheringFinder(ctx context.Context, tracker *budget.Tracker, client llm.AgentClient, tools WebTools, st store.SignalStore, tension model.Signal, region model.Region, runID string) Outcome {
	outcome := Run(ctx, tracker, "GatheringFinder", client, tools,
		gatheringFinderSystemPrompt(),
		fmt.Sprintf("Tension %q: %s\n\nFind a physical gathering (vigil, town hall, rally) responding to this tension in %s.",
			tension.Title, tension.Summary, region.Name),
		func(ctx context.Context, commitText string) error {
			return commitDiscoveredSignal(ctx, st, runID, region.ID, tension.ID, model.KindGathering, commitText)
		})
	recordOutcome(ctx, st, region.ID, runID, "GatheringFinder", outcome)
	return outcome
}

func gatheringFinderSystemPrompt() string {
	return "You are GatheringFinder. Given a civic tension, search for a scheduled physical gathering in response to " +
		"it: a vigil, town hall, rally, or community meeting. Read the event page to confirm it's real and upcoming " +
		"before committing. Call decide with verdict=\"commit\" and commit set to a JSON object " +
		"{\"title\",\"summary\",\"url\",\"action_url\"}, or verdict=\"give_up\" if nothing concrete turns up."
}
