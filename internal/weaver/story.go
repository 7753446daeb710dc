package weaver

import (
	"context"
	"fmt"
	"strings"

	"github.com/rootsignal/scout/common/llm"
	"github.com/rootsignal/scout/internal/model"
)

// narrative is the shape the LLM fills in for one cluster, the same
// structured-JSON-schema pattern internal/extractor uses.
type narrative struct {
	Headline  string `json:"headline"`
	Narrative string `json:"narrative"`
}

func (w *Weaver) draftNarrative(ctx context.Context, region model.Region, members []model.Signal) (headline, body string, err error) {
	var n narrative
	_, err = w.llm.Chat(ctx, llm.Request{
		SystemPrompt: storySystemPrompt(region),
		UserPrompt:   storyUserPrompt(members),
		SchemaName:   "story_narrative",
		Schema:       llm.GenerateSchema[narrative](),
		Temperature:  llm.Temp(0.3),
	}, &n)
	if err != nil {
		return "", "", fmt.Errorf("weaver: draft narrative: %w", err)
	}
	return n.Headline, n.Narrative, nil
}

func storySystemPrompt(region model.Region) string {
	return fmt.Sprintf(`You write short civic news-style summaries for %s. You are given a
cluster of related signals (gatherings, aid offers, needs, notices, and
tensions) that a similarity pass has grouped together. Write a one-line
headline and a two-to-four sentence narrative tying the cluster together:
what's happening, who's involved, and why it matters together rather than
separately. Stay grounded in what the signals actually say; never invent
detail the signals don't support.`, region.Name)
}

func storyUserPrompt(members []model.Signal) string {
	var b strings.Builder
	for _, m := range members {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", m.Kind, m.Title, m.Summary)
	}
	return b.String()
}
