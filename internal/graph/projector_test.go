package graph_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rootsignal/scout/common/arangodb"
	"github.com/rootsignal/scout/internal/domain"
	"github.com/rootsignal/scout/internal/graph"
	"github.com/rootsignal/scout/internal/model"
)

// fakeClient is an in-memory arangodb.Client good enough to exercise the
// projector's dispatch and upsert-by-key semantics.
type fakeClient struct {
	docs map[string]map[string]map[string]any // collection -> key -> doc
}

func newFakeClient() *fakeClient {
	return &fakeClient{docs: map[string]map[string]map[string]any{}}
}

func (f *fakeClient) EnsureDatabase(ctx context.Context) error                       { return nil }
func (f *fakeClient) EnsureCollections(ctx context.Context, s []arangodb.CollectionSpec) error {
	return nil
}
func (f *fakeClient) EnsureGraph(ctx context.Context, name string, e []arangodb.EdgeDefinition) error {
	return nil
}
func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) Upsert(ctx context.Context, collection, key string, doc map[string]any) error {
	if f.docs[collection] == nil {
		f.docs[collection] = map[string]map[string]any{}
	}
	cp := make(map[string]any, len(doc))
	for k, v := range doc {
		cp[k] = v
	}
	f.docs[collection][key] = cp
	return nil
}

func (f *fakeClient) UpsertMany(ctx context.Context, collection string, docs []map[string]any) error {
	for _, d := range docs {
		if err := f.Upsert(ctx, collection, d["_key"].(string), d); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeClient) Get(ctx context.Context, collection, key string, out any) error {
	doc, ok := f.docs[collection][key]
	if !ok {
		return arangodb.ErrNotFound
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (f *fakeClient) Exists(ctx context.Context, collection, key string) (bool, error) {
	_, ok := f.docs[collection][key]
	return ok, nil
}

func (f *fakeClient) Query(ctx context.Context, aql string, bindVars map[string]any, out any) error {
	return nil
}

func TestApplySignalStoredUpsertsDocument(t *testing.T) {
	db := newFakeClient()
	p := graph.New(db)

	sig := model.Signal{
		ID:           "sig-1",
		RegionID:     "sf-bay",
		Kind:         model.KindNeed,
		Title:        "Shelter needed",
		Confidence:   0.7,
		ReviewStatus: model.ReviewStatusStaged,
		FirstSeen:    time.Now(),
		LastSeen:     time.Now(),
	}
	payload := domain.SignalStoredPayload{Signal: sig}
	raw, _ := json.Marshal(payload)
	ev := domain.Event{Seq: 1, Type: domain.TypeSignalStored, Payload: raw, RegionID: "sf-bay"}

	if err := p.Apply(context.Background(), ev); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	key := arangodb.MakeKey("sig-1")
	doc, ok := db.docs[graph.CollSignals][key]
	if !ok {
		t.Fatalf("signal %s not stored", key)
	}
	if doc["title"] != "Shelter needed" {
		t.Fatalf("title = %v, want 'Shelter needed'", doc["title"])
	}
}

func TestApplySignalRejectedSetsReviewStatus(t *testing.T) {
	db := newFakeClient()
	p := graph.New(db)
	ctx := context.Background()

	sig := model.Signal{ID: "sig-1", RegionID: "sf-bay", ReviewStatus: model.ReviewStatusStaged}
	storedRaw, _ := json.Marshal(domain.SignalStoredPayload{Signal: sig})
	if err := p.Apply(ctx, domain.Event{Seq: 1, Type: domain.TypeSignalStored, Payload: storedRaw}); err != nil {
		t.Fatalf("seed apply: %v", err)
	}

	rejectRaw, _ := json.Marshal(domain.SignalRejectedPayload{SignalID: "sig-1", Reason: "duplicate"})
	if err := p.Apply(ctx, domain.Event{Seq: 2, Type: domain.TypeSignalRejected, Payload: rejectRaw}); err != nil {
		t.Fatalf("reject apply: %v", err)
	}

	key := arangodb.MakeKey("sig-1")
	doc := db.docs[graph.CollSignals][key]
	if doc["review_status"] != "rejected" {
		t.Fatalf("review_status = %v, want rejected", doc["review_status"])
	}
}

func TestApplySourceScrapedIsIdempotentUnderReplay(t *testing.T) {
	db := newFakeClient()
	p := graph.New(db)
	ctx := context.Background()

	src := model.Source{ID: "src-1", RegionID: "sf-bay", URI: "https://example.org"}
	upsertRaw, _ := json.Marshal(domain.SourceUpsertedPayload{Source: src})
	if err := p.Apply(ctx, domain.Event{Seq: 1, Type: domain.TypeSourceUpserted, Payload: upsertRaw}); err != nil {
		t.Fatalf("seed apply: %v", err)
	}

	scrapedRaw, _ := json.Marshal(domain.SourceScrapedPayload{SourceID: "src-1", Success: true, SignalsStored: 2, ScrapedAt: time.Now()})
	ev := domain.Event{Seq: 2, Type: domain.TypeSourceScraped, Payload: scrapedRaw}

	for i := 0; i < 3; i++ {
		if err := p.Apply(ctx, ev); err != nil {
			t.Fatalf("apply #%d: %v", i, err)
		}
	}

	key := arangodb.MakeKey("src-1")
	doc := db.docs[graph.CollSources][key]
	if doc["scrape_count"] != float64(1) {
		t.Fatalf("scrape_count = %v, want 1 after three replays of the same event", doc["scrape_count"])
	}
	if doc["signals_produced"] != float64(2) {
		t.Fatalf("signals_produced = %v, want 2 after three replays of the same event", doc["signals_produced"])
	}
}

func TestApplyObservationCorroboratedClampsAndIsIdempotent(t *testing.T) {
	db := newFakeClient()
	p := graph.New(db)
	ctx := context.Background()

	sig := model.Signal{ID: "sig-1", RegionID: "sf-bay", Confidence: 0.95}
	storedRaw, _ := json.Marshal(domain.SignalStoredPayload{Signal: sig})
	if err := p.Apply(ctx, domain.Event{Seq: 1, Type: domain.TypeSignalStored, Payload: storedRaw}); err != nil {
		t.Fatalf("seed apply: %v", err)
	}

	corrRaw, _ := json.Marshal(domain.ObservationCorroboratedPayload{SignalID: "sig-1", NewSourceDiversity: 2, ConfidenceDelta: 0.5})
	ev := domain.Event{Seq: 2, Type: domain.TypeObservationCorroborated, Payload: corrRaw}

	for i := 0; i < 3; i++ {
		if err := p.Apply(ctx, ev); err != nil {
			t.Fatalf("apply #%d: %v", i, err)
		}
	}

	key := arangodb.MakeKey("sig-1")
	doc := db.docs[graph.CollSignals][key]
	if doc["confidence"] != 1.0 {
		t.Fatalf("confidence = %v, want 1.0 (clamped, not re-applied across replays)", doc["confidence"])
	}
}

func TestApplyObservationCorroboratedClampsNegativeDeltaToFloor(t *testing.T) {
	db := newFakeClient()
	p := graph.New(db)
	ctx := context.Background()

	sig := model.Signal{ID: "sig-1", RegionID: "sf-bay", Confidence: 0.15}
	storedRaw, _ := json.Marshal(domain.SignalStoredPayload{Signal: sig})
	if err := p.Apply(ctx, domain.Event{Seq: 1, Type: domain.TypeSignalStored, Payload: storedRaw}); err != nil {
		t.Fatalf("seed apply: %v", err)
	}

	corrRaw, _ := json.Marshal(domain.ObservationCorroboratedPayload{SignalID: "sig-1", NewSourceDiversity: 1, ConfidenceDelta: -0.5})
	if err := p.Apply(ctx, domain.Event{Seq: 2, Type: domain.TypeObservationCorroborated, Payload: corrRaw}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	key := arangodb.MakeKey("sig-1")
	doc := db.docs[graph.CollSignals][key]
	if doc["confidence"] != 0.1 {
		t.Fatalf("confidence = %v, want 0.1 (clamped floor)", doc["confidence"])
	}
}

func TestApplyUnknownEventTypeErrors(t *testing.T) {
	db := newFakeClient()
	p := graph.New(db)
	err := p.Apply(context.Background(), domain.Event{Seq: 1, Type: domain.Type("NotARealType")})
	if err == nil {
		t.Fatal("expected error for unknown event type")
	}
}
