// Package domain defines the event families that make up Root Signal
// Scout's append-only log. Only WorldEvent and SystemDecision payloads
// affect the graph projection; TelemetryEvent is observational.
package domain

import (
	"encoding/json"
	"time"
)

// Family distinguishes the three event categories the projector treats
// differently.
type Family string

const (
	FamilyWorld      Family = "world"
	FamilyDecision   Family = "decision"
	FamilyTelemetry  Family = "telemetry"
)

// Type enumerates every event type the projector and run log recognize.
type Type string

const (
	// World facts
	TypeSourceUpserted     Type = "SourceUpserted"
	TypeSourceScraped      Type = "SourceScraped"
	TypeSignalExtracted    Type = "SignalExtracted"
	TypeSignalStored       Type = "SignalStored"
	TypeActorUpserted      Type = "ActorUpserted"
	TypeCitationRecorded   Type = "CitationRecorded"
	TypeEdgeCreated        Type = "EdgeCreated"
	TypeScheduleCreated    Type = "ScheduleCreated"

	// System decisions
	TypeObservationCorroborated Type = "ObservationCorroborated"
	TypeSignalRejected          Type = "SignalRejected"
	TypeSignalExpired           Type = "SignalExpired"
	TypeSignalReviewStatusSet   Type = "SignalReviewStatusSet"
	TypeGeoFiltered             Type = "GeoFiltered"
	TypeSourceDeactivated       Type = "SourceDeactivated"
	TypeSourceWeightRecomputed  Type = "SourceWeightRecomputed"
	TypeStoryBuilt              Type = "StoryBuilt"
	TypeRegionLockAcquired      Type = "RegionLockAcquired"
	TypeRegionLockReleased      Type = "RegionLockReleased"
	TypeRunStarted              Type = "RunStarted"
	TypeRunFinished             Type = "RunFinished"

	// Telemetry (observational only)
	TypeScrapeFailed     Type = "ScrapeFailed"
	TypeDegradedDedup    Type = "DegradedDedup"
	TypeExtractionFailed Type = "ExtractionFailed"
	TypeBudgetExhausted  Type = "BudgetExhausted"
	TypePhaseStarted     Type = "PhaseStarted"
	TypePhaseCompleted   Type = "PhaseCompleted"
	TypePhaseSkipped     Type = "PhaseSkipped"
	TypeAgentOutcome     Type = "AgentOutcome"
)

var families = map[Type]Family{
	TypeSourceUpserted:   FamilyWorld,
	TypeSourceScraped:    FamilyWorld,
	TypeSignalExtracted:  FamilyWorld,
	TypeSignalStored:     FamilyWorld,
	TypeActorUpserted:    FamilyWorld,
	TypeCitationRecorded: FamilyWorld,
	TypeEdgeCreated:      FamilyWorld,
	TypeScheduleCreated:  FamilyWorld,

	TypeObservationCorroborated: FamilyDecision,
	TypeSignalRejected:          FamilyDecision,
	TypeSignalExpired:           FamilyDecision,
	TypeSignalReviewStatusSet:   FamilyDecision,
	TypeGeoFiltered:             FamilyDecision,
	TypeSourceDeactivated:       FamilyDecision,
	TypeSourceWeightRecomputed:  FamilyDecision,
	TypeStoryBuilt:              FamilyDecision,
	TypeRegionLockAcquired:      FamilyDecision,
	TypeRegionLockReleased:      FamilyDecision,
	TypeRunStarted:              FamilyDecision,
	TypeRunFinished:             FamilyDecision,

	TypeScrapeFailed:     FamilyTelemetry,
	TypeDegradedDedup:    FamilyTelemetry,
	TypeExtractionFailed: FamilyTelemetry,
	TypeBudgetExhausted:  FamilyTelemetry,
	TypePhaseStarted:     FamilyTelemetry,
	TypePhaseCompleted:   FamilyTelemetry,
	TypePhaseSkipped:     FamilyTelemetry,
	TypeAgentOutcome:     FamilyTelemetry,
}

// FamilyOf reports which family a type belongs to. Unknown types are
// treated as telemetry, the safest default since telemetry never feeds the
// projection.
func FamilyOf(t Type) Family {
	if f, ok := families[t]; ok {
		return f
	}
	return FamilyTelemetry
}

// AffectsGraph reports whether an event of this type must be replayed by
// the GraphProjector.
func AffectsGraph(t Type) bool {
	f := FamilyOf(t)
	return f == FamilyWorld || f == FamilyDecision
}

// Event is a single append-only log record.
type Event struct {
	Seq       int64           `json:"seq"`
	TS        time.Time       `json:"ts"`
	Type      Type            `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	ParentSeq *int64          `json:"parent_seq,omitempty"`
	RunID     *string         `json:"run_id,omitempty"`
	RegionID  string          `json:"region_id"`
}

// Family is a convenience accessor mirroring FamilyOf(e.Type).
func (e Event) Family() Family { return FamilyOf(e.Type) }
