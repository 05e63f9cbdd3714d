// Package vector implements the builders for the primitive and
// list/fixed-size-list column types the system supports, and the
// zero-copy transfer of a built vector from one allocator node to
// another.
package vector

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/cockroachdb/errors"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/allocatortree"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/flighterrors"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/rowsource"
)

// Builder is the common contract every column builder satisfies:
// setSafe/setValueCount/clear/close plus zero-copy transfer, matching
// spec.md §4.3.
type Builder interface {
	// SetSafe writes v at index, growing internal buffers as needed.
	// index must equal the number of values already written (builders
	// are append-only, matching arrow-go's Builder contract).
	SetSafe(index int, v rowsource.Value) error
	// SetValueCount fixes the builder's reported length at n.
	SetValueCount(n int)
	// Clear releases the payload but keeps the builder usable.
	Clear()
	// Close releases the builder itself.
	Close()
	// Field returns the schema field this builder produces.
	Field() arrow.Field
	// TransferTo moves buffer ownership to dest without copying,
	// returning the built array. The source builder becomes empty
	// (value count zero) and remains usable or may be closed.
	TransferTo(dest *allocatortree.Node) (arrow.Array, error)
}

func nullErr(field arrow.Field) error {
	return flighterrors.InvalidArgument("vector: null value for non-nullable field %q", field.Name)
}

func flightIndexErr(field string, index, expected int) error {
	return flighterrors.InvalidArgument("vector: field %q write index %d out of order (expected %d)", field, index, expected)
}

// ArraySize estimates the accounted byte footprint of a built array by
// summing its underlying buffer lengths — close enough for budget
// enforcement without needing per-write instrumentation of the arrow-go
// builder internals.
func ArraySize(arr arrow.Array) int64 {
	var total int64
	data := arr.Data()
	for _, buf := range data.Buffers() {
		if buf != nil {
			total += int64(buf.Len())
		}
	}
	for _, child := range data.Children() {
		total += ArraySize(array.MakeFromData(child))
	}
	return total
}

func transfer(node *allocatortree.Node, arr arrow.Array) (arrow.Array, error) {
	size := ArraySize(arr)
	if err := node.Allocate(size); err != nil {
		arr.Release()
		return nil, errors.Wrap(err, "vector: transfer")
	}
	return arr, nil
}

// Transfer moves an already-built array's accounted bytes onto dest,
// for callers (e.g. the batched column store) that receive arrays
// directly from an IPC reader rather than from a Builder.
func Transfer(dest *allocatortree.Node, arr arrow.Array) (arrow.Array, error) {
	arr.Retain()
	return transfer(dest, arr)
}
