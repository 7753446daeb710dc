package agents

import (
	"context"
	"testing"

	"github.com/rootsignal/scout/common/llm"
)

type scriptedClient struct {
	responses []llm.AgentResponse
	calls     int
}

func (c *scriptedClient) ChatWithTools(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
	resp := c.responses[c.calls]
	c.calls++
	return &resp, nil
}
func (c *scriptedClient) Model() string { return "test" }

type noopTools struct{}

func (noopTools) Search(ctx context.Context, query string) ([]SearchResult, error) { return nil, nil }
func (noopTools) ReadPage(ctx context.Context, url string) (string, error)         { return "", nil }

func TestRunCommitsWhenDecisionIsCommit(t *testing.T) {
	client := &scriptedClient{responses: []llm.AgentResponse{
		{Content: `{"verdict":"commit","commit":"{\"signal_id\":\"sig-1\"}"}`},
	}}
	var committed string
	outcome := Run(context.Background(), nil, "TestAgent", client, noopTools{}, "system", "goal",
		func(ctx context.Context, commitText string) error {
			committed = commitText
			return nil
		})
	if outcome != OutcomeOK {
		t.Fatalf("outcome = %v, want OutcomeOK", outcome)
	}
	if committed == "" {
		t.Fatal("expected commit callback to receive commit text")
	}
}

func TestRunGivesUpWhenDecisionIsGiveUp(t *testing.T) {
	client := &scriptedClient{responses: []llm.AgentResponse{
		{Content: `{"verdict":"give_up"}`},
	}}
	outcome := Run(context.Background(), nil, "TestAgent", client, noopTools{}, "system", "goal",
		func(ctx context.Context, commitText string) error { t.Fatal("commit should not be called"); return nil })
	if outcome != OutcomeNoMatch {
		t.Fatalf("outcome = %v, want OutcomeNoMatch", outcome)
	}
}

func TestRunStopsAfterMaxIterationsWithoutDecision(t *testing.T) {
	responses := make([]llm.AgentResponse, 0, maxIterations)
	for i := 0; i < maxIterations; i++ {
		responses = append(responses, llm.AgentResponse{Content: `{"verdict":"more"}`})
	}
	client := &scriptedClient{responses: responses}
	outcome := Run(context.Background(), nil, "TestAgent", client, noopTools{}, "system", "goal",
		func(ctx context.Context, commitText string) error { t.Fatal("commit should not be called"); return nil })
	if outcome != OutcomeNoMatch {
		t.Fatalf("outcome = %v, want OutcomeNoMatch after exhausting iterations", outcome)
	}
	if client.calls != maxIterations {
		t.Fatalf("calls = %d, want %d", client.calls, maxIterations)
	}
}

func TestRunCallsLLMWithoutBudgetCheckWhenTrackerIsNil(t *testing.T) {
	// nil tracker means "no budget gating", so this should proceed
	// straight to the LLM rather than skip -- verifies the nil-tracker
	// branch doesn't panic.
	client := &scriptedClient{responses: []llm.AgentResponse{{Content: `{"verdict":"give_up"}`}}}
	outcome := Run(context.Background(), nil, "TestAgent", client, noopTools{}, "system", "goal",
		func(ctx context.Context, commitText string) error { t.Fatal("commit should not be called"); return nil })
	if outcome != OutcomeNoMatch {
		t.Fatalf("outcome = %v, want OutcomeNoMatch", outcome)
	}
	if client.calls != 1 {
		t.Fatalf("calls = %d, want 1", client.calls)
	}
}
