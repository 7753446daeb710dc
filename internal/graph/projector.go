package graph

import (
	"context"
	"fmt"

	"github.com/rootsignal/scout/common/arangodb"
	"github.com/rootsignal/scout/internal/domain"
	"github.com/rootsignal/scout/internal/eventstore"
)

// Projector applies WorldEvent and SystemDecision events onto the graph.
// Replaying the same event twice is safe: every write is a keyed upsert,
// decision events that remove state (SignalRejected, SourceDeactivated)
// are themselves idempotent, and the two handlers that apply an
// incremental delta rather than a replacement value (TypeSourceScraped,
// TypeObservationCorroborated) guard against double-application with a
// last-applied-sequence field on the document itself.
type Projector struct {
	db arangodb.Client
}

// appliedSeq reads back a last-applied-sequence marker a prior Apply call
// left on doc, or 0 if the document has never seen one.
func appliedSeq(doc map[string]any, field string) int64 {
	if v, ok := doc[field].(float64); ok {
		return int64(v)
	}
	return 0
}

// clampConfidence enforces the [0.1, 1.0] bound every stored confidence
// value must satisfy, regardless of how far a delta pushes it.
func clampConfidence(v float64) float64 {
	switch {
	case v > 1.0:
		return 1.0
	case v < 0.1:
		return 0.1
	default:
		return v
	}
}

func New(db arangodb.Client) *Projector {
	return &Projector{db: db}
}

// Bootstrap ensures the database, collections, and graph definition exist.
// Called once at Scout startup before any event is replayed.
func (p *Projector) Bootstrap(ctx context.Context) error {
	if err := p.db.EnsureDatabase(ctx); err != nil {
		return fmt.Errorf("graph: ensure database: %w", err)
	}
	if err := p.db.EnsureCollections(ctx, Collections()); err != nil {
		return fmt.Errorf("graph: ensure collections: %w", err)
	}
	if err := p.db.EnsureGraph(ctx, GraphName, EdgeDefinitions()); err != nil {
		return fmt.Errorf("graph: ensure graph: %w", err)
	}
	return nil
}

// Project replays a batch of events in sequence order, applying every
// WorldEvent/SystemDecision and skipping telemetry. Events must already be
// ordered by Seq; the caller (eventstore.ReadFrom) guarantees this.
func (p *Projector) Project(ctx context.Context, events []domain.Event) error {
	for _, ev := range events {
		if !domain.AffectsGraph(ev.Type) {
			continue
		}
		if err := p.Apply(ctx, ev); err != nil {
			return fmt.Errorf("graph: apply seq %d (%s): %w", ev.Seq, ev.Type, err)
		}
	}
	return nil
}

// Apply dispatches a single event onto the graph by type.
func (p *Projector) Apply(ctx context.Context, ev domain.Event) error {
	switch ev.Type {
	case domain.TypeSourceUpserted:
		var payload domain.SourceUpsertedPayload
		if err := eventstore.Decode(ev, &payload); err != nil {
			return err
		}
		doc, err := toDoc(payload.Source, arangodb.MakeKey(payload.Source.ID))
		if err != nil {
			return err
		}
		return p.db.Upsert(ctx, CollSources, doc["_key"].(string), doc)

	case domain.TypeSourceScraped:
		var payload domain.SourceScrapedPayload
		if err := eventstore.Decode(ev, &payload); err != nil {
			return err
		}
		key := arangodb.MakeKey(payload.SourceID)
		var src map[string]any
		if err := p.db.Get(ctx, CollSources, key, &src); err != nil {
			return fmt.Errorf("load source %s: %w", payload.SourceID, err)
		}
		src["last_scraped_at"] = payload.ScrapedAt
		if payload.Hash != "" {
			src["last_hash"] = payload.Hash
		}
		// scrape_count/signals_produced/consecutive_empty_runs are deltas,
		// not replacement values -- only apply them the first time this
		// event's sequence number is seen, so replay can't double-count.
		const seqField = "last_scrape_seq"
		if appliedSeq(src, seqField) < ev.Seq {
			if count, ok := src["scrape_count"].(float64); ok {
				src["scrape_count"] = count + 1
			} else {
				src["scrape_count"] = 1
			}
			if produced, ok := src["signals_produced"].(float64); ok {
				src["signals_produced"] = produced + float64(payload.SignalsStored)
			} else {
				src["signals_produced"] = payload.SignalsStored
			}
			if payload.SignalsStored == 0 {
				if empty, ok := src["consecutive_empty_runs"].(float64); ok {
					src["consecutive_empty_runs"] = empty + 1
				} else {
					src["consecutive_empty_runs"] = 1
				}
			} else {
				src["consecutive_empty_runs"] = 0
			}
			src[seqField] = ev.Seq
		}
		return p.db.Upsert(ctx, CollSources, key, src)

	case domain.TypeSignalStored:
		var payload domain.SignalStoredPayload
		if err := eventstore.Decode(ev, &payload); err != nil {
			return err
		}
		doc, err := toDoc(payload.Signal, arangodb.MakeKey(payload.Signal.ID))
		if err != nil {
			return err
		}
		return p.db.Upsert(ctx, CollSignals, doc["_key"].(string), doc)

	case domain.TypeActorUpserted:
		var payload domain.ActorUpsertedPayload
		if err := eventstore.Decode(ev, &payload); err != nil {
			return err
		}
		doc, err := toDoc(payload.Actor, arangodb.MakeKey(payload.Actor.ID))
		if err != nil {
			return err
		}
		return p.db.Upsert(ctx, CollActors, doc["_key"].(string), doc)

	case domain.TypeCitationRecorded:
		var payload domain.CitationRecordedPayload
		if err := eventstore.Decode(ev, &payload); err != nil {
			return err
		}
		doc, err := toDoc(payload.Citation, arangodb.MakeKey(payload.Citation.ID))
		if err != nil {
			return err
		}
		return p.db.Upsert(ctx, CollCitations, doc["_key"].(string), doc)

	case domain.TypeEdgeCreated:
		var payload domain.EdgeCreatedPayload
		if err := eventstore.Decode(ev, &payload); err != nil {
			return err
		}
		coll := edgeCollection(string(payload.Kind))
		if coll == "" {
			return fmt.Errorf("unknown edge kind %q", payload.Kind)
		}
		from := edgeEndpoint(payload.FromID, payload.FromKind)
		to := edgeEndpoint(payload.ToID, payload.ToKind)
		key := arangodb.MakeKey(fmt.Sprintf("%s:%s:%s", coll, payload.FromID, payload.ToID))
		doc := map[string]any{
			"_key":       key,
			"_from":      from,
			"_to":        to,
			"confidence": payload.Confidence,
			"weight":     payload.Weight,
		}
		return p.db.Upsert(ctx, coll, key, doc)

	case domain.TypeStoryBuilt:
		var payload domain.StoryBuiltPayload
		if err := eventstore.Decode(ev, &payload); err != nil {
			return err
		}
		doc, err := toDoc(payload.Story, arangodb.MakeKey(payload.Story.ID))
		if err != nil {
			return err
		}
		return p.db.Upsert(ctx, CollStories, doc["_key"].(string), doc)

	case domain.TypeSignalRejected:
		var payload domain.SignalRejectedPayload
		if err := eventstore.Decode(ev, &payload); err != nil {
			return err
		}
		return p.setReviewStatus(ctx, payload.SignalID, "rejected")

	case domain.TypeSignalExpired:
		var payload domain.SignalExpiredPayload
		if err := eventstore.Decode(ev, &payload); err != nil {
			return err
		}
		key := arangodb.MakeKey(payload.SignalID)
		var sig map[string]any
		if err := p.db.Get(ctx, CollSignals, key, &sig); err != nil {
			return err
		}
		sig["expired"] = true
		return p.db.Upsert(ctx, CollSignals, key, sig)

	case domain.TypeSignalReviewStatusSet:
		var payload domain.SignalReviewStatusSetPayload
		if err := eventstore.Decode(ev, &payload); err != nil {
			return err
		}
		return p.setReviewStatus(ctx, payload.SignalID, string(payload.Status))

	case domain.TypeSourceDeactivated:
		var payload domain.SourceDeactivatedPayload
		if err := eventstore.Decode(ev, &payload); err != nil {
			return err
		}
		key := arangodb.MakeKey(payload.SourceID)
		var src map[string]any
		if err := p.db.Get(ctx, CollSources, key, &src); err != nil {
			return err
		}
		src["active"] = false
		return p.db.Upsert(ctx, CollSources, key, src)

	case domain.TypeSourceWeightRecomputed:
		var payload domain.SourceWeightRecomputedPayload
		if err := eventstore.Decode(ev, &payload); err != nil {
			return err
		}
		key := arangodb.MakeKey(payload.SourceID)
		var src map[string]any
		if err := p.db.Get(ctx, CollSources, key, &src); err != nil {
			return err
		}
		src["weight"] = payload.Weight
		src["cadence_hours"] = payload.CadenceHours
		return p.db.Upsert(ctx, CollSources, key, src)

	case domain.TypeObservationCorroborated:
		var payload domain.ObservationCorroboratedPayload
		if err := eventstore.Decode(ev, &payload); err != nil {
			return err
		}
		key := arangodb.MakeKey(payload.SignalID)
		var sig map[string]any
		if err := p.db.Get(ctx, CollSignals, key, &sig); err != nil {
			return err
		}
		// confidence is a delta, not a replacement value -- only apply it
		// the first time this event's sequence number is seen, and always
		// clamp the result to the invariant's [0.1, 1.0] bound.
		const seqField = "last_corroboration_seq"
		if appliedSeq(sig, seqField) < ev.Seq {
			sig["source_diversity"] = payload.NewSourceDiversity
			base := 0.1
			if conf, ok := sig["confidence"].(float64); ok {
				base = conf
			}
			sig["confidence"] = clampConfidence(base + payload.ConfidenceDelta)
			// a corroborating observation counts as seeing the signal again
			sig["last_seen"] = ev.TS
			sig[seqField] = ev.Seq
		}
		return p.db.Upsert(ctx, CollSignals, key, sig)

	case domain.TypeGeoFiltered, domain.TypeScheduleCreated, domain.TypeRegionLockAcquired,
		domain.TypeRegionLockReleased, domain.TypeRunStarted, domain.TypeRunFinished:
		// Decision/world events with no graph projection: schedules are kept
		// only in the event log, and region locks and run bookkeeping live in
		// core/db/sqlc.
		return nil

	default:
		return fmt.Errorf("graph: no projection rule for event type %q", ev.Type)
	}
}

func (p *Projector) setReviewStatus(ctx context.Context, signalID, status string) error {
	key := arangodb.MakeKey(signalID)
	var sig map[string]any
	if err := p.db.Get(ctx, CollSignals, key, &sig); err != nil {
		return err
	}
	sig["review_status"] = status
	return p.db.Upsert(ctx, CollSignals, key, sig)
}

// edgeEndpoint turns a bare entity ID into an ArangoDB _from/_to handle in
// the collection its EntityKind names.
func edgeEndpoint(id string, kind domain.EntityKind) string {
	coll := CollSignals
	if kind == domain.EntityActor {
		coll = CollActors
	}
	return coll + "/" + arangodb.MakeKey(id)
}
