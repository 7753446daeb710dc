// Package store implements the SignalStore interface: the single
// abstraction the ScrapePipeline, Metrics, SignalExpansion, and the
// synthesis agents use for reads and writes. Every mutating method except
// LinkToSource and CacheDomainVerdict emits one or more events via
// internal/eventstore, then applies them to the graph via internal/graph,
// so the projector is the path by which graph state changes; those two
// write their documents directly, with no event.
package store

import (
	"context"
	"time"

	"github.com/rootsignal/scout/common/arangodb"
	"github.com/rootsignal/scout/internal/domain"
	"github.com/rootsignal/scout/internal/eventstore"
	"github.com/rootsignal/scout/internal/graph"
	"github.com/rootsignal/scout/internal/model"
)

// Signals covers the lifecycle of a single Signal record.
type Signals interface {
	Create(ctx context.Context, runID string, sig model.Signal) error
	Get(ctx context.Context, id string) (model.Signal, error)
	Update(ctx context.Context, runID string, sig model.Signal) error
	Expire(ctx context.Context, runID, signalID string) error
	SetReviewStatus(ctx context.Context, runID, signalID string, status model.ReviewStatus) error
	// SetInUniverse toggles CrossRegion per invariant 7: a signal whose
	// coordinates fall outside the region envelope but is retained anyway.
	SetInUniverse(ctx context.Context, runID, signalID string, inUniverse bool) error
	BatchTag(ctx context.Context, runID string, signalIDs []string, tag string) error
}

// Corroboration finds and links observations of the same underlying event.
type Corroboration interface {
	RecordCitation(ctx context.Context, runID string, c model.Citation) error
	FindSimilar(ctx context.Context, embedding model.Vector, kind model.Kind, regionID string, limit int) ([]model.Signal, error)
	MarkCorroborated(ctx context.Context, runID, signalID, corroboratingSourceID string, confidenceDelta float64) error
	// OriginSourceID resolves a stored signal back to the Source its earliest
	// direct citation came from (or its earliest citation of any relevance
	// if it has no direct one), for dedup's same-source-vs-cross-source
	// threshold. Returns "" if the signal carries no citation at all.
	OriginSourceID(ctx context.Context, signalID string) (string, error)
}

// Edges creates the typed relationships between signals and actors.
type Edges interface {
	CreateRespondsTo(ctx context.Context, runID, fromSignalID, toSignalID string, confidence float64) error
	CreateEvidenceOf(ctx context.Context, runID, fromSignalID, toSignalID string, confidence float64) error
	CreateOffers(ctx context.Context, runID string, from, to EntityRef, confidence float64) error
	CreatePrefers(ctx context.Context, runID string, from, to EntityRef, confidence float64) error
	CreateRequires(ctx context.Context, runID string, from, to EntityRef, confidence float64) error
	CreateResponse(ctx context.Context, runID, fromSignalID, toSignalID string, confidence float64) error
}

// EntityRef names an OFFERS/PREFERS/REQUIRES edge endpoint, since those
// edges may connect a Signal to either another Signal or an Actor.
type EntityRef struct {
	ID   string
	Kind domain.EntityKind
}

// Sources covers Source scheduling bookkeeping.
type Sources interface {
	UpsertSource(ctx context.Context, runID string, src model.Source) error
	GetSource(ctx context.Context, id string) (model.Source, error)
	ListDue(ctx context.Context, regionID string, now time.Time, role model.SourceRole) ([]model.Source, error)
	ListAll(ctx context.Context, regionID string) ([]model.Source, error)
	RecordURLScrape(ctx context.Context, runID, sourceID, hash string, success bool, signalsStored int) error
	Suppress(ctx context.Context, runID, sourceID, reason string) error
	CachedDomainVerdict(ctx context.Context, domainName string) (verdict string, ok bool, err error)
	CacheDomainVerdict(ctx context.Context, domainName, verdict string) error
}

// Actors covers organizations, individuals, and government bodies mentioned
// by signals.
type Actors interface {
	UpsertActor(ctx context.Context, runID string, actor model.Actor) error
	FindByName(ctx context.Context, regionID, name string) (model.Actor, bool, error)
	FindByEntityID(ctx context.Context, id string) (model.Actor, bool, error)
	LinkToSignal(ctx context.Context, runID, actorID, signalID string, kind domain.EdgeKind) error
	LinkToSource(ctx context.Context, runID, actorID, sourceID string) error
	UpdateLocation(ctx context.Context, runID, actorID string, loc model.LatLng) error
}

// Staging covers the staged -> live review workflow.
type Staging interface {
	StageSignalsInRegion(ctx context.Context, regionID string) ([]model.Signal, error)
	PromoteReadySituations(ctx context.Context, runID, regionID string, minConfidence float64) ([]model.Signal, error)
}

// Schedules covers Gathering-derived calendar entries.
type Schedules interface {
	CreateSchedule(ctx context.Context, runID, signalID string, startsAt *time.Time) (string, error)
	LinkScheduleToSignal(ctx context.Context, runID, scheduleID, signalID string) error
}

// Discovery serves the read-heavy graph queries the agents and
// SignalExpansion use to pick their next targets.
type Discovery interface {
	FindTensionLinkerTargets(ctx context.Context, regionID string, limit int) ([]model.Signal, error)
	GetTensionLandscape(ctx context.Context, regionID string) ([]model.Signal, error)
	GetSituationLandscape(ctx context.Context, regionID string) ([]model.Signal, error)
}

// SignalStore composes every group the spec names into the one interface
// the pipeline and agents depend on.
type SignalStore interface {
	Signals
	Corroboration
	Edges
	Sources
	Actors
	Staging
	Schedules
	Discovery
}

// Store is the concrete SignalStore: every mutation except LinkToSource and
// CacheDomainVerdict appends to the event log, then replays straight onto
// the graph through the projector, even from a live run.
type Store struct {
	events *eventstore.Store
	graph  *graph.Projector
	db     arangodb.Client
}

var _ SignalStore = (*Store)(nil)

func New(events *eventstore.Store, proj *graph.Projector, db arangodb.Client) *Store {
	return &Store{events: events, graph: proj, db: db}
}

// emitAndApply appends an event and immediately replays it, so a caller
// that reads right back from the graph sees its own write.
func (s *Store) emitAndApply(ctx context.Context, regionID string, typ domain.Type, payload any, runID *string, parentSeq *int64) (domain.Event, error) {
	ev, err := s.events.Append(ctx, regionID, typ, payload, runID, parentSeq)
	if err != nil {
		return domain.Event{}, err
	}
	if err := s.graph.Apply(ctx, ev); err != nil {
		return domain.Event{}, err
	}
	return ev, nil
}

func ref(s string) *string { return &s }

// RecordTelemetry appends a telemetry event directly to the event log
// without replaying it through the projector, since telemetry never
// affects the graph (domain.AffectsGraph is false for every telemetry
// type). It's not part of SignalStore -- the spec's grouped-operations
// table names no telemetry operation -- but ScrapePipeline and the
// synthesis agents need some way to record ScrapeFailed/DegradedDedup/
// ExtractionFailed/AgentOutcome without widening that interface, so they
// reach it through a narrow telemetryRecorder assertion instead.
func (s *Store) RecordTelemetry(ctx context.Context, regionID string, typ domain.Type, payload any, runID string) error {
	_, err := s.events.Append(ctx, regionID, typ, payload, ref(runID), nil)
	return err
}

// RecordRunEvent appends a run-lifecycle/lock decision event (RunStarted,
// RunFinished, RegionLockAcquired, RegionLockReleased) and replays it
// through the projector like any other decision event, even though every
// one of these types resolves to a no-op Apply branch -- run and lock
// bookkeeping live in core/db/sqlc, not the graph. Not part of
// SignalStore: internal/scout reaches it through the same narrow
// type-assertion escape hatch as RecordTelemetry.
func (s *Store) RecordRunEvent(ctx context.Context, regionID string, typ domain.Type, payload any, runID string) error {
	_, err := s.emitAndApply(ctx, regionID, typ, payload, ref(runID), nil)
	return err
}
