// Package neo4j defines the collaborator contracts the server depends on
// for actually talking to a graph database: a result-streaming Cypher
// session on the read path, and a sink for committed column batches on
// the write path. Concrete drivers plug in behind these interfaces; the
// Bolt-backed BoltDriver and BoltSink in this package are the ones the
// server ships, and the rest of the module reaches them only through
// Driver and GraphSink, matching spec.md §4.9's collaborator boundary.
package neo4j

import (
	"context"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/colstore"
)

// ResultStream yields rows from a running Cypher query, one Bolt fetch
// batch at a time. Implementations decide their own fetch size (see
// config.BoltFetchSize).
type ResultStream interface {
	// Next advances to the next row. Returns false at end of stream or
	// on error; callers must check Err() after a false return.
	Next(ctx context.Context) bool
	// Values returns the current row as a field-name-keyed map of raw
	// driver values (int64, float64, string, []interface{}, or nil).
	Values() map[string]interface{}
	Err() error
	Close() error
}

// Driver is the narrow surface the read-side actions need from a graph
// database connection: run a query and get back a streaming result.
type Driver interface {
	Run(ctx context.Context, cypher string, params map[string]interface{}) (ResultStream, error)
	Close(ctx context.Context) error
}

// GraphSink is the write-path collaborator: it receives the fully
// materialized column store built from a client's incoming record
// batches and is responsible for turning it into graph writes (e.g.
// UNWIND-based batched node/relationship creation), per SPEC_FULL.md's
// resolution of spec.md §9's write-path Open Question.
type GraphSink interface {
	WriteNodes(ctx context.Context, label string, store *colstore.Store) (written int64, err error)
	WriteRelationships(ctx context.Context, relType string, store *colstore.Store) (written int64, err error)
}
