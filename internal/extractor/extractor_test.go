package extractor_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rootsignal/scout/common/llm"
	"github.com/rootsignal/scout/internal/extractor"
	"github.com/rootsignal/scout/internal/model"
)

type fakeClient struct {
	chatFn func(ctx context.Context, req llm.Request, result any) (*llm.Response, error)
}

func (f *fakeClient) Chat(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
	return f.chatFn(ctx, req, result)
}
func (f *fakeClient) Model() string { return "test-model" }

func TestExtractZeroesOutConfidence(t *testing.T) {
	c := &fakeClient{chatFn: func(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
		body, _ := json.Marshal(extractor.Result{
			Signals: []model.Signal{{Title: "Vigil tonight", Confidence: 0.9}},
		})
		return nil, json.Unmarshal(body, result)
	}}

	e := extractor.New(c)
	result, err := e.Extract(context.Background(), extractor.Input{URL: "https://example.org", Markdown: "text"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(result.Signals) != 1 || result.Signals[0].Confidence != 0 {
		t.Fatalf("Extract result = %+v, want confidence forced to 0", result)
	}
}

func TestExtractRetriesTransientErrorsThenGivesUp(t *testing.T) {
	calls := 0
	c := &fakeClient{chatFn: func(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
		calls++
		// A plain network-shaped error (no *openai.Error wrapping) is
		// treated as retryable by llm.IsRetryable.
		return nil, errors.New("connection reset by peer")
	}}

	e := extractor.New(c)
	_, err := e.Extract(context.Background(), extractor.Input{URL: "https://example.org"})
	if err == nil {
		t.Fatal("expected an error")
	}
	var extractErr *extractor.Error
	if !errors.As(err, &extractErr) || !extractErr.Transient {
		t.Fatalf("err = %v, want a Transient extractor.Error once retries are exhausted", err)
	}
	if calls != 3 {
		t.Fatalf("Chat called %d times, want 3 (initial + %d retries)", calls, 2)
	}
}
