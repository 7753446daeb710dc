// Command scout is the Root Signal Scout CLI: run a region once, dump its
// current graph as JSON, or replay a run's events back onto the graph.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rootsignal/scout/common/arangodb"
	"github.com/rootsignal/scout/common/id"
	"github.com/rootsignal/scout/common/llm"
	"github.com/rootsignal/scout/common/logger"
	"github.com/rootsignal/scout/common/otel"
	"github.com/rootsignal/scout/core/config"
	"github.com/rootsignal/scout/core/db"
	"github.com/rootsignal/scout/internal/agents"
	"github.com/rootsignal/scout/internal/budget"
	"github.com/rootsignal/scout/internal/embed"
	"github.com/rootsignal/scout/internal/eventstore"
	"github.com/rootsignal/scout/internal/expansion"
	"github.com/rootsignal/scout/internal/extractor"
	"github.com/rootsignal/scout/internal/graph"
	"github.com/rootsignal/scout/internal/lock"
	"github.com/rootsignal/scout/internal/model"
	"github.com/rootsignal/scout/internal/scout"
	"github.com/rootsignal/scout/internal/scrape"
	"github.com/rootsignal/scout/internal/sourcefinder"
	"github.com/rootsignal/scout/internal/store"
	"github.com/rootsignal/scout/internal/weaver"
	"github.com/redis/go-redis/v9"
)

// Exit codes per the CLI surface: 0 ok, 1 cancelled, 2 budget exhausted,
// 3 locked, 4 config error.
const (
	exitOK              = 0
	exitCancelled       = 1
	exitBudgetExhausted = 2
	exitRunInProgress   = 3
	exitConfigError     = 4
)

func main() {
	dump := flag.Bool("dump", false, "export the current graph as JSON instead of running")
	replay := flag.Bool("replay", false, "re-project a run's events onto the graph instead of running")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: scout [--dump|--replay] <region-slug|run-id>")
		os.Exit(exitConfigError)
	}
	arg := flag.Arg(0)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	// OTel must init before logger: the logger's trace handler attaches
	// the active span's trace/span IDs to every log line in production.
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(exitConfigError)
	}
	logger.Setup(cfg)
	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	}

	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(exitConfigError)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(exitConfigError)
	}
	defer database.Close()

	arangoClient, err := arangodb.New(ctx, cfg.Arango)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to arangodb", "error", err)
		os.Exit(exitConfigError)
	}
	defer arangoClient.Close()

	events := eventstore.New(database.Queries())
	projector := graph.New(arangoClient)
	if err := projector.Bootstrap(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to bootstrap graph schema", "error", err)
		os.Exit(exitConfigError)
	}
	signalStore := store.New(events, projector, arangoClient)

	switch {
	case *dump:
		runDump(ctx, arangoClient)
		return
	case *replay:
		runReplay(ctx, events, projector, arg)
		return
	}

	if err := cfg.Validate(); err != nil {
		slog.ErrorContext(ctx, "invalid configuration", "error", err)
		os.Exit(exitConfigError)
	}

	sc, err := buildScout(ctx, cfg, database, signalStore)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build scout", "error", err)
		os.Exit(exitConfigError)
	}

	runLog, err := sc.Run(ctx, arg)
	if err != nil && runLog.Status == model.RunStatusConfigError {
		slog.ErrorContext(ctx, "run failed before it could start", "error", err)
		os.Exit(exitConfigError)
	}

	slog.InfoContext(ctx, "run finished", "run_id", runLog.RunID, "status", runLog.Status,
		"completed_phases", len(runLog.Stats.CompletedPhases), "skipped_phases", len(runLog.Stats.SkippedPhases))

	if telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "otel shutdown error", "error", err)
		}
	}

	os.Exit(exitCodeFor(runLog.Status))
}

func exitCodeFor(status model.RunStatus) int {
	switch status {
	case model.RunStatusOK:
		return exitOK
	case model.RunStatusCancelled, model.RunStatusInvariantAborted:
		return exitCancelled
	case model.RunStatusBudgetExhausted:
		return exitBudgetExhausted
	case model.RunStatusRunInProgress:
		return exitRunInProgress
	case model.RunStatusConfigError:
		return exitConfigError
	default:
		return exitConfigError
	}
}

// buildScout wires every Scout dependency: LLM clients, the scrape
// pipeline's per-kind fetchers, the synthesis agents' shared web tools,
// the weaver and expansion passes, and the Redis-backed budget tracker.
func buildScout(ctx context.Context, cfg config.Config, database *db.DB, signalStore store.SignalStore) (*scout.Scout, error) {
	llmClient, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("build llm client: %w", err)
	}
	agentClient, err := llm.NewAgentClient(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("build agent client: %w", err)
	}
	embedProvider, err := llm.NewEmbedder(cfg.Embed, cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("build embedder: %w", err)
	}
	embedCache := embed.New(embedProvider, database.Queries())

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	tracker := budget.New(rdb, cfg.DailyBudgetCents)
	regionLock := lock.New(database.Queries())

	pageFetcher := scrape.NewHTTPPageScraper()
	fetchers := map[scrape.FetcherKind]scrape.Fetcher{
		scrape.FetcherPage:   pageFetcher,
		scrape.FetcherSearch: pageFetcher,
		scrape.FetcherSocial: pageFetcher,
		scrape.FetcherFeed:   pageFetcher,
	}
	ext := extractor.New(llmClient)
	pipeline := scrape.New(fetchers, ext, embedCache, signalStore)

	finder := sourcefinder.New(signalStore)
	wv := weaver.New(llmClient, signalStore)
	expander := expansion.New(embedCache, signalStore)
	tools := agents.NewWebTools(pageFetcher, pageFetcher)

	return scout.New(cfg, regionLock, tracker, signalStore, pipeline, finder, wv, expander, agentClient, tools), nil
}

// runDump exports every document in every graph collection as a single
// JSON object keyed by collection name, for operators inspecting a
// region's state without a direct ArangoDB connection.
func runDump(ctx context.Context, client arangodb.Client) {
	out := map[string][]map[string]any{}
	for _, coll := range graph.Collections() {
		var docs []map[string]any
		aql := fmt.Sprintf("FOR doc IN %s RETURN doc", coll.Name)
		if err := client.Query(ctx, aql, nil, &docs); err != nil {
			slog.ErrorContext(ctx, "dump: query collection failed", "collection", coll.Name, "error", err)
			os.Exit(exitConfigError)
		}
		out[coll.Name] = docs
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		slog.ErrorContext(ctx, "dump: encode failed", "error", err)
		os.Exit(exitConfigError)
	}
}

// runReplay re-projects one run's events onto the graph, for recovering a
// region's graph state after a projector bug or a manual Arango wipe.
func runReplay(ctx context.Context, events *eventstore.Store, projector *graph.Projector, runID string) {
	evs, err := events.ReadByRun(ctx, runID)
	if err != nil {
		if errors.Is(err, eventstore.ErrNotFound) {
			slog.ErrorContext(ctx, "replay: no events found for run", "run_id", runID)
			os.Exit(exitConfigError)
		}
		slog.ErrorContext(ctx, "replay: read events failed", "run_id", runID, "error", err)
		os.Exit(exitConfigError)
	}
	if err := projector.Project(ctx, evs); err != nil {
		slog.ErrorContext(ctx, "replay: project failed", "run_id", runID, "error", err)
		os.Exit(exitConfigError)
	}
	slog.InfoContext(ctx, "replay complete", "run_id", runID, "events", len(evs))
}
