package domain

import (
	"time"

	"github.com/rootsignal/scout/internal/model"
)

// Payload types are the typed JSON bodies carried by each Event.Type. They
// are marshaled/unmarshaled by the eventstore and consumed by the
// GraphProjector; the projector dispatches on Event.Type to pick the right
// payload type before applying it.

type SourceUpsertedPayload struct {
	Source model.Source `json:"source"`
}

type SourceScrapedPayload struct {
	SourceID string `json:"source_id"`
	Success  bool   `json:"success"`
	Status   string `json:"status"`
	Hash     string `json:"hash,omitempty"`
	// SignalsStored is how many signals this scrape produced after dedup,
	// the figure §4.7's empty-run deactivation rule counts against.
	SignalsStored int       `json:"signals_stored"`
	ScrapedAt     time.Time `json:"scraped_at"`
}

type SignalExtractedPayload struct {
	SourceID string       `json:"source_id"`
	Signal   model.Signal `json:"signal"`
}

type SignalStoredPayload struct {
	Signal model.Signal `json:"signal"`
}

type ActorUpsertedPayload struct {
	Actor model.Actor `json:"actor"`
}

type CitationRecordedPayload struct {
	Citation model.Citation `json:"citation"`
}

type EdgeKind string

const (
	EdgeRespondsTo     EdgeKind = "RESPONDS_TO"
	EdgeEvidenceOf     EdgeKind = "EVIDENCE_OF"
	EdgeOffers         EdgeKind = "OFFERS"
	EdgePrefers        EdgeKind = "PREFERS"
	EdgeRequires       EdgeKind = "REQUIRES"
	EdgeCreateResponse EdgeKind = "CREATE_RESPONSE"
	EdgeSimilarTo      EdgeKind = "SIMILAR_TO"
)

// EntityKind disambiguates which document collection an edge endpoint
// belongs to, since OFFERS/PREFERS/REQUIRES edges may connect a Signal to
// either another Signal or an Actor.
type EntityKind string

const (
	EntitySignal EntityKind = "signal"
	EntityActor  EntityKind = "actor"
)

type EdgeCreatedPayload struct {
	Kind       EdgeKind   `json:"kind"`
	FromID     string     `json:"from_id"`
	FromKind   EntityKind `json:"from_kind"`
	ToID       string     `json:"to_id"`
	ToKind     EntityKind `json:"to_kind"`
	Confidence float64    `json:"confidence,omitempty"`
	Weight     float64    `json:"weight,omitempty"`
}

type ScheduleCreatedPayload struct {
	ID       string     `json:"id"`
	SignalID string     `json:"signal_id"`
	StartsAt *time.Time `json:"starts_at,omitempty"`
}

type ObservationCorroboratedPayload struct {
	SignalID          string  `json:"signal_id"`
	CorroboratingSrc  string  `json:"corroborating_source_id"`
	NewSourceDiversity int    `json:"new_source_diversity"`
	ConfidenceDelta   float64 `json:"confidence_delta"`
}

type SignalRejectedPayload struct {
	SignalID string `json:"signal_id"`
	Reason   string `json:"reason"`
}

type SignalExpiredPayload struct {
	SignalID string `json:"signal_id"`
}

type SignalReviewStatusSetPayload struct {
	SignalID string              `json:"signal_id"`
	Status   model.ReviewStatus  `json:"status"`
}

type GeoFilteredPayload struct {
	SourceID string  `json:"source_id"`
	Title    string  `json:"title"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Reason   string  `json:"reason"`
}

type SourceDeactivatedPayload struct {
	SourceID string `json:"source_id"`
	Reason   string `json:"reason"`
}

type SourceWeightRecomputedPayload struct {
	SourceID     string  `json:"source_id"`
	Weight       float64 `json:"weight"`
	CadenceHours int     `json:"cadence_hours"`
}

type StoryBuiltPayload struct {
	Story model.Story `json:"story"`
}

type RegionLockAcquiredPayload struct {
	RegionID       string    `json:"region_id"`
	RunID          string    `json:"run_id"`
	LeaseExpiresAt time.Time `json:"lease_expires_at"`
}

type RegionLockReleasedPayload struct {
	RegionID string `json:"region_id"`
	RunID    string `json:"run_id"`
}

type RunStartedPayload struct {
	RunID    string `json:"run_id"`
	RegionID string `json:"region_id"`
}

type RunFinishedPayload struct {
	RunID  string           `json:"run_id"`
	Status model.RunStatus  `json:"status"`
	Stats  model.RunStats   `json:"stats"`
}

type ScrapeFailedPayload struct {
	SourceID string `json:"source_id"`
	Reason   string `json:"reason"`
}

type DegradedDedupPayload struct {
	SignalTitle string `json:"signal_title"`
	Reason      string `json:"reason"`
}

type ExtractionFailedPayload struct {
	SourceID  string `json:"source_id"`
	Permanent bool   `json:"permanent"`
	Reason    string `json:"reason"`
}

type BudgetExhaustedPayload struct {
	Operation string `json:"operation"`
	RemainingCents int64 `json:"remaining_cents"`
}

type PhaseStartedPayload struct {
	Phase model.Phase `json:"phase"`
}

type PhaseCompletedPayload struct {
	Phase      model.Phase   `json:"phase"`
	DurationMS int64         `json:"duration_ms"`
}

type PhaseSkippedPayload struct {
	Phase  model.Phase `json:"phase"`
	Reason string      `json:"reason"`
}

type AgentOutcomePayload struct {
	Agent   string `json:"agent"`
	Outcome string `json:"outcome"` // "ok", "nomatch", "skipped", "error"
}
