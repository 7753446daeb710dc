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

// discoveryCommit is the JSON shape both ResponseFinder and
// GatheringFinder ask the LLM to emit on commit: enough to build a new
// Signal. URL is parsed but not stored; no citation is recorded for it.
type discoveryCommit struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	URL       string `json:"url"`
	ActionURL string `json:"action_url"`
}

// RunResponseFinder investigates the ecosystem around a top tension
// (legal aid, mutual aid, fundraising) and, on a match, creates a new Aid
// signal linked back to the tension it responds to.
func RunResponseFinder(ctx context.Context, tracker *budget.Tracker, client llm.AgentClient, tools WebTools, st store.SignalStore, tension model.Signal, region model.Region, runID string) Outcome {
	outcome := Run(ctx, tracker, "ResponseFinder", client, tools,
		responseFinderSystemPrompt(),
		fmt.Sprintf("Tension %q: %s\n\nFind legal aid, mutual aid, or fundraising efforts responding to this tension in %s.",
			tension.Title, tension.Summary, region.Name),
		func(ctx context.Context, commitText string) error {
			return commitDiscoveredSignal(ctx, st, runID, region.ID, tension.ID, model.KindAid, commitText)
		})
	recordOutcome(ctx, st, region.ID, runID, "ResponseFinder", outcome)
	return outcome
}

func responseFinderSystemPrompt() string {
	return "You are ResponseFinder. Given a civic tension, search for organized responses to it: legal aid clinics, " +
		"mutual aid funds, fundraising campaigns. Read a page to confirm details before committing. Call decide with " +
		"verdict=\"commit\" and commit set to a JSON object {\"title\",\"summary\",\"url\",\"action_url\"} describing " +
		"the response you found, or verdict=\"give_up\" if nothing concrete turns up."
}

func commitDiscoveredSignal(ctx context.Context, st store.SignalStore, runID, regionID, tensionID string, kind model.Kind, commitText string) error {
	var c discoveryCommit
	if err := json.Unmarshal([]byte(commitText), &c); err != nil {
		return fmt.Errorf("discovered signal: parse commit: %w", err)
	}
	if c.Title == "" {
		return fmt.Errorf("discovered signal commit missing title")
	}

	now := time.Now()
	sig := model.Signal{
		ID:           strconv.FormatInt(id.New(), 10),
		RegionID:     regionID,
		Kind:         kind,
		Title:        c.Title,
		Summary:      c.Summary,
		Confidence:   0.1, // confidence floor: stored directly, so quality scoring never sees it
		ReviewStatus: model.ReviewStatusStaged,
		FirstSeen:    now,
		LastSeen:     now,
	}
	if c.ActionURL != "" {
		sig.ActionURL = &c.ActionURL
	}
	if err := st.Create(ctx, runID, sig); err != nil {
		return fmt.Errorf("discovered signal: create: %w", err)
	}
	return st.CreateRespondsTo(ctx, runID, sig.ID, tensionID, 0.5)
}
