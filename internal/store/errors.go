package store

import "errors"

// ErrNotFound is returned by Get-style methods when the entity doesn't
// exist in the graph projection.
var ErrNotFound = errors.New("store: not found")
