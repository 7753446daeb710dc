package agents

import (
	"context"
	"fmt"

	"github.com/rootsignal/scout/internal/scrape"
)

// WebTools adapts a pair of scrape.Fetcher instances -- one classified
// FetcherSearch, one FetcherPage -- into the Tools interface an agent's
// FSM drives. A search fetcher returns raw content for a query rather
// than a structured results list, so Search wraps that single blob as
// one synthetic SearchResult; it's the same fetch path ScrapePipeline
// uses for query-kind Sources, reused here instead of standing up a
// second search client.
type WebTools struct {
	Searcher scrape.Fetcher
	Pages    scrape.Fetcher
}

const maxSnippetRunes = 2000

func (w WebTools) Search(ctx context.Context, query string) ([]SearchResult, error) {
	content, err := w.Searcher.Fetch(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("web search %q: %w", query, err)
	}
	return []SearchResult{{Title: query, Snippet: truncate(content, maxSnippetRunes)}}, nil
}

func (w WebTools) ReadPage(ctx context.Context, url string) (string, error) {
	content, err := w.Pages.Fetch(ctx, url)
	if err != nil {
		return "", fmt.Errorf("read page %s: %w", url, err)
	}
	return truncate(content, maxSnippetRunes*4), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// GraphTools backs ResponseMapper, the one agent that reads the graph
// instead of the web: Search returns the whole fixed candidate pool built
// up front by the caller, whatever the query text; ReadPage is unsupported
// since there is no page to fetch.
type GraphTools struct {
	Candidates []SearchResult
}

func (g GraphTools) Search(ctx context.Context, query string) ([]SearchResult, error) {
	return g.Candidates, nil
}

func (g GraphTools) ReadPage(ctx context.Context, url string) (string, error) {
	return "", fmt.Errorf("graph tools: read_page is not available, rely on search results")
}
