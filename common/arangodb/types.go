package arangodb

// Direction constrains an AQL graph traversal.
type Direction string

const (
	DirectionOutbound Direction = "OUTBOUND"
	DirectionInbound  Direction = "INBOUND"
	DirectionAny      Direction = "ANY"
)

// CollectionSpec describes a collection EnsureCollections should create.
type CollectionSpec struct {
	Name   string
	IsEdge bool
	// Indexes lists persistent-index field groups to create on the collection.
	Indexes [][]string
}

// EdgeDefinition mirrors arangodb.EdgeDefinition for graph creation, keeping
// callers from importing the driver package directly.
type EdgeDefinition struct {
	Collection string
	From       []string
	To         []string
}

// TraversalOptions configures a graph-wide BFS/DFS traversal.
type TraversalOptions struct {
	EdgeCollections []string
	Direction       Direction
	MinDepth        int
	MaxDepth        int
}
