package model

import "time"

type RunStatus string

const (
	RunStatusOK               RunStatus = "ok"
	RunStatusCancelled        RunStatus = "cancelled"
	RunStatusBudgetExhausted  RunStatus = "budget_exhausted"
	RunStatusRunInProgress    RunStatus = "run_in_progress"
	RunStatusConfigError      RunStatus = "config_error"
	RunStatusInvariantAborted RunStatus = "invariant_aborted"
)

// Phase names the ten stages of a Scout run, in execution order.
type Phase string

const (
	PhaseReaper          Phase = "reaper"
	PhaseScheduler        Phase = "scheduler"
	PhaseScrapeA          Phase = "scrape_phase_a"
	PhaseSourceFinderMid  Phase = "source_finder_mid"
	PhaseScrapeB          Phase = "scrape_phase_b"
	PhaseMetrics          Phase = "metrics"
	PhaseSynthesis        Phase = "synthesis"
	PhaseWeaver           Phase = "weaver"
	PhaseExpansion        Phase = "expansion"
	PhaseSourceFinderEnd  Phase = "source_finder_end"
)

// AllPhases lists the ten stages in the order §2 requires them to run.
var AllPhases = []Phase{
	PhaseReaper, PhaseScheduler, PhaseScrapeA, PhaseSourceFinderMid,
	PhaseScrapeB, PhaseMetrics, PhaseSynthesis, PhaseWeaver,
	PhaseExpansion, PhaseSourceFinderEnd,
}

// RunStats is the typed terminal stats record a run produces, naming which
// phases completed and which were skipped.
type RunStats struct {
	CompletedPhases []Phase        `json:"completed_phases"`
	SkippedPhases   []Phase        `json:"skipped_phases"`
	SourcesScraped  int            `json:"sources_scraped"`
	SignalsCreated  int            `json:"signals_created"`
	Corroborations  int            `json:"corroborations"`
	SignalsExpired  int            `json:"signals_expired"`
	SourcesCreated  int            `json:"sources_created"`
	StoriesBuilt    int            `json:"stories_built"`
	BudgetSpentCents int64         `json:"budget_spent_cents"`
	AgentOutcomes   map[string]int `json:"agent_outcomes,omitempty"`
}

// RunLog is the append-only per-run header. Its event tree lives in the
// EventStore, keyed by RunID.
type RunLog struct {
	RunID      string     `json:"run_id"`
	RegionID   string     `json:"region_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     RunStatus  `json:"status"`
	Stats      RunStats   `json:"stats"`
}
