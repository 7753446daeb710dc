// Package agents implements the five synthesis passes that run after
// Phases A and B: ResponseMapper, TensionLinker, ResponseFinder,
// GatheringFinder, and Investigator. All five share one state machine
// (Start -> Plan -> [budget check] -> Search -> ReadPages -> Decide ->
// commit/more/give_up), grounded on the teacher's ExploreAgent tool-calling
// loop, simplified to the spec's fixed protocol instead of the teacher's
// soft/hard token-budget nudging.
package agents

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rootsignal/scout/common/llm"
	"github.com/rootsignal/scout/internal/budget"
)

// Outcome is what an agent invocation ended in, recorded on AgentOutcome
// telemetry.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeNoMatch Outcome = "nomatch"
	OutcomeSkipped Outcome = "skipped"
	OutcomeError   Outcome = "error"
)

const (
	maxIterations    = 3 // M
	pagesPerIteration = 3 // K
)

// Decision is what the LLM chose to do after reviewing search results:
// commit to a concrete action, ask for another search round, or give up.
type Decision struct {
	Verdict string // "commit", "more", "give_up"
	Commit  string // free-text justification/payload when Verdict == "commit"
}

// Tools is the capability surface an agent invocation gets: web search and
// page fetch. Both are wrapped as LLM tool-calling functions inside the
// FSM so the model drives its own Search/ReadPages steps.
type Tools interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
	ReadPage(ctx context.Context, url string) (string, error)
}

type SearchResult struct {
	URL     string
	Title   string
	Snippet string
}

// EstimatedCostCents is the flat per-invocation budget debit every agent
// checks before starting its Plan/Search cycle.
const EstimatedCostCents = 2

// Run drives one agent invocation through the shared FSM: it checks
// budget, then alternates Plan/Search/ReadPages/Decide turns (capped at
// maxIterations) until the LLM commits or gives up. commit is called with
// the LLM's final commit text when the decision is "commit"; its error
// becomes the invocation's error.
func Run(ctx context.Context, tracker *budget.Tracker, agentName string, client llm.AgentClient, tools Tools, systemPrompt, goal string, commit func(ctx context.Context, commitText string) error) Outcome {
	if tracker != nil {
		ok, err := tracker.HasBudget(ctx, EstimatedCostCents)
		if err != nil {
			slog.WarnContext(ctx, "budget check failed, skipping agent", "agent", agentName, "error", err)
			return OutcomeSkipped
		}
		if !ok {
			slog.InfoContext(ctx, "insufficient budget, skipping agent", "agent", agentName)
			return OutcomeSkipped
		}
	}

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: goal},
	}

	for iter := 0; iter < maxIterations; iter++ {
		select {
		case <-ctx.Done():
			return OutcomeError
		default:
		}

		resp, err := client.ChatWithTools(ctx, llm.AgentRequest{
			Messages: messages,
			Tools:    toolDefinitions(),
		})
		if err != nil {
			slog.WarnContext(ctx, "agent chat failed", "agent", agentName, "error", err)
			return OutcomeError
		}

		decisionText, decided := resp.Content, len(resp.ToolCalls) == 0
		for _, tc := range resp.ToolCalls {
			if tc.Name == "decide" {
				decisionText, decided = tc.Arguments, true
			}
		}
		if decided {
			decision := parseDecision(decisionText)
			switch decision.Verdict {
			case "commit":
				if tracker != nil {
					_ = tracker.Spend(ctx, EstimatedCostCents)
				}
				if err := commit(ctx, decision.Commit); err != nil {
					slog.WarnContext(ctx, "agent commit failed", "agent", agentName, "error", err)
					return OutcomeError
				}
				return OutcomeOK
			case "give_up":
				return OutcomeNoMatch
			default:
				messages = append(messages, llm.Message{Role: "assistant", Content: resp.Content})
				messages = append(messages, llm.Message{Role: "user", Content: "Decide: commit, more, or give_up."})
				continue
			}
		}

		messages = append(messages, llm.Message{Role: "assistant", Content: resp.Content, ToolCalls: resp.ToolCalls})
		for _, tc := range resp.ToolCalls {
			result := executeTool(ctx, tools, tc)
			messages = append(messages, llm.Message{Role: "tool", Content: result, ToolCallID: tc.ID})
		}
	}

	return OutcomeNoMatch
}

func toolDefinitions() []llm.Tool {
	return []llm.Tool{
		{
			Name:        "search",
			Description: "Search the web for pages relevant to the query.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"query": map[string]any{"type": "string"}},
				"required":   []string{"query"},
			},
		},
		{
			Name:        "read_page",
			Description: fmt.Sprintf("Fetch a page's text content. Limited to %d calls per search round.", pagesPerIteration),
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"url": map[string]any{"type": "string"}},
				"required":   []string{"url"},
			},
		},
		{
			Name:        "decide",
			Description: "Conclude the investigation: commit to an action, request another search round, or give up.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"verdict": map[string]any{"type": "string", "enum": []string{"commit", "more", "give_up"}},
					"commit":  map[string]any{"type": "string"},
				},
				"required": []string{"verdict"},
			},
		},
	}
}

func executeTool(ctx context.Context, tools Tools, tc llm.ToolCall) string {
	switch tc.Name {
	case "search":
		query := extractArg(tc.Arguments, "query")
		results, err := tools.Search(ctx, query)
		if err != nil {
			return fmt.Sprintf("search error: %v", err)
		}
		return formatResults(results)
	case "read_page":
		url := extractArg(tc.Arguments, "url")
		content, err := tools.ReadPage(ctx, url)
		if err != nil {
			return fmt.Sprintf("read_page error: %v", err)
		}
		return content
	case "decide":
		return tc.Arguments
	default:
		return fmt.Sprintf("unknown tool: %s", tc.Name)
	}
}

func formatResults(results []SearchResult) string {
	out := ""
	for _, r := range results {
		out += fmt.Sprintf("- %s (%s): %s\n", r.Title, r.URL, r.Snippet)
	}
	if out == "" {
		return "no results"
	}
	return out
}

// parseDecision extracts a verdict from either a decide tool call's JSON
// arguments (the common path) or, as a fallback, the model's free text
// when it concludes without calling the decide tool.
func parseDecision(content string) Decision {
	if v := extractArg(content, "verdict"); v != "" {
		return Decision{Verdict: v, Commit: extractArg(content, "commit")}
	}
	return Decision{Verdict: "give_up", Commit: content}
}
