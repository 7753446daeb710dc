// Package graph projects the append-only event log into a property graph
// held in ArangoDB: Signal/Source/Actor/Citation/Story document
// collections plus the edge collections the spec names.
package graph

import "github.com/rootsignal/scout/common/arangodb"

const (
	CollSignals   = "signals"
	CollSources   = "sources"
	CollActors    = "actors"
	CollCitations = "citations"
	CollStories   = "stories"

	// CollDomainVerdicts caches the Sources group's robots/ToS/center-pin
	// verdicts keyed by bare domain, shared across sources on that domain.
	CollDomainVerdicts = "domain_verdicts"

	EdgeRespondsTo     = "responds_to"
	EdgeEvidenceOf     = "evidence_of"
	EdgeOffers         = "offers"
	EdgePrefers        = "prefers"
	EdgeRequires       = "requires"
	EdgeCreateResponse = "create_response"
	EdgeSimilarTo      = "similar_to"

	GraphName = "scout_graph"
)

// Collections is the full collection/index schema the projector expects to
// exist before it applies any event.
func Collections() []arangodb.CollectionSpec {
	return []arangodb.CollectionSpec{
		{Name: CollSignals, Indexes: [][]string{{"region_id"}, {"kind"}, {"review_status"}}},
		{Name: CollSources, Indexes: [][]string{{"region_id"}, {"canonical_key"}, {"active"}}},
		{Name: CollActors, Indexes: [][]string{{"region_id"}}},
		{Name: CollCitations, Indexes: [][]string{{"signal_id"}, {"source_id"}}},
		{Name: CollStories, Indexes: [][]string{{"region_id"}}},
		{Name: CollDomainVerdicts, Indexes: [][]string{{"domain"}}},
		{Name: EdgeRespondsTo, IsEdge: true},
		{Name: EdgeEvidenceOf, IsEdge: true},
		{Name: EdgeOffers, IsEdge: true},
		{Name: EdgePrefers, IsEdge: true},
		{Name: EdgeRequires, IsEdge: true},
		{Name: EdgeCreateResponse, IsEdge: true},
		{Name: EdgeSimilarTo, IsEdge: true},
	}
}

// EdgeDefinitions wires every edge collection's allowed endpoint
// collections for EnsureGraph. Signal<->Signal and Signal<->Actor cover
// every edge kind the Weaver and synthesis agents emit.
func EdgeDefinitions() []arangodb.EdgeDefinition {
	signalToSignal := []string{CollSignals}
	both := []string{CollSignals, CollActors}
	return []arangodb.EdgeDefinition{
		{Collection: EdgeRespondsTo, From: signalToSignal, To: signalToSignal},
		{Collection: EdgeEvidenceOf, From: signalToSignal, To: signalToSignal},
		{Collection: EdgeOffers, From: both, To: both},
		{Collection: EdgePrefers, From: both, To: both},
		{Collection: EdgeRequires, From: both, To: both},
		{Collection: EdgeCreateResponse, From: signalToSignal, To: signalToSignal},
		{Collection: EdgeSimilarTo, From: signalToSignal, To: signalToSignal},
	}
}

// edgeCollection maps a domain.EdgeKind to the collection it is stored in.
func edgeCollection(kind string) string {
	switch kind {
	case "RESPONDS_TO":
		return EdgeRespondsTo
	case "EVIDENCE_OF":
		return EdgeEvidenceOf
	case "OFFERS":
		return EdgeOffers
	case "PREFERS":
		return EdgePrefers
	case "REQUIRES":
		return EdgeRequires
	case "CREATE_RESPONSE":
		return EdgeCreateResponse
	case "SIMILAR_TO":
		return EdgeSimilarTo
	default:
		return ""
	}
}
