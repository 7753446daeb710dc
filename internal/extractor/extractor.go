// Package extractor implements the SignalExtractor contract: turn one
// fetched page into typed signals, actors, implied search queries, and
// discovered links. The default implementation is LLM-backed, grounded on
// common/llm.Client's structured-JSON-schema Chat path.
package extractor

import (
	"context"
	"fmt"
	"time"

	"github.com/rootsignal/scout/common/llm"
	"github.com/rootsignal/scout/internal/model"
)

// Error distinguishes retryable extraction failures from permanent ones,
// mirroring the teacher's EngagementError taxonomy.
type Error struct {
	Transient bool
	Permanent bool
	Reason    string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extractor: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("extractor: %s", e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Input is what the extractor needs to produce a result: the page itself,
// the region it's being scraped for, and how much budget remains so the
// prompt can be scaled down under tight budgets.
type Input struct {
	URL                string
	Markdown           string
	RegionContext      string
	RunBudgetRemaining int64
}

// Result is everything a page yielded. Signals carry Confidence=0 always;
// quality scoring assigns the real value after extraction.
type Result struct {
	Signals        []model.Signal `json:"signals"`
	Actors         []model.Actor  `json:"actors"`
	ImpliedQueries []string       `json:"implied_queries"`
	DiscoveredLinks []string      `json:"discovered_links"`
}

// Extractor is the SignalExtractor contract.
type Extractor interface {
	Extract(ctx context.Context, in Input) (Result, error)
}

const maxRetries = 2

type llmExtractor struct {
	client llm.Client
}

// New builds the default LLM-backed Extractor.
func New(client llm.Client) Extractor {
	return &llmExtractor{client: client}
}

// Extract calls the LLM once, retrying up to maxRetries times with
// exponential backoff on transient errors; a permanent error or an
// exhausted retry budget drops the batch rather than crashing the run.
func (e *llmExtractor) Extract(ctx context.Context, in Input) (Result, error) {
	var result Result
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return Result{}, &Error{Transient: false, Permanent: true, Reason: "context cancelled during backoff", Err: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		_, err := e.client.Chat(ctx, llm.Request{
			SystemPrompt: systemPrompt(in.RegionContext),
			UserPrompt:   userPrompt(in),
			SchemaName:   "extraction_result",
			Schema:       llm.GenerateSchema[Result](),
			Temperature:  llm.Temp(0),
		}, &result)
		if err == nil {
			zeroConfidence(&result)
			return result, nil
		}

		lastErr = err
		if !llm.IsRetryable(ctx, err) {
			return Result{}, &Error{Permanent: true, Reason: "extraction failed permanently", Err: err}
		}
	}

	return Result{}, &Error{Transient: true, Reason: "extraction retries exhausted", Err: lastErr}
}

// zeroConfidence enforces that the extractor never assigns its own
// confidence; quality scoring owns that value exclusively.
func zeroConfidence(r *Result) {
	for i := range r.Signals {
		r.Signals[i].Confidence = 0
	}
}

func systemPrompt(regionContext string) string {
	return fmt.Sprintf(`You extract civic signals (Gathering, Aid, Need, Notice, Tension) from a
web page for the following region:

%s

Only extract signals relevant to this region. For each signal, include every
field you can find: title, summary, location (lat/lng if stated or inferable
from an address), location_name, timing (starts/ends), severity or urgency
when applicable, and an action_url if the page offers a direct way to act.
Never invent a field you cannot support from the page text -- leave it
absent rather than guessing. Also list any actors (organizations,
individuals, government bodies) named, implied follow-up search queries
that would surface related signals, and links on the page worth following.`, regionContext)
}

func userPrompt(in Input) string {
	return fmt.Sprintf("URL: %s\nBudget remaining (cents): %d\n\n%s", in.URL, in.RunBudgetRemaining, in.Markdown)
}
