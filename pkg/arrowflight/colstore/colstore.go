// Package colstore implements the write-side sink that accumulates
// transferred column chunks from incoming record batches and answers
// random-access lookups by absolute row index, per spec.md §4.4.
package colstore

import (
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/allocatortree"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/flighterrors"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/rowsource"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/vector"
)

// fieldColumn is the chunk list for one schema field.
type fieldColumn struct {
	field arrow.Field
	kind  rowsource.Kind

	mu        sync.Mutex
	chunks    []arrow.Array
	rowCount  int
	watermark int
}

// Store is the batched column store: one ordered chunk list per field,
// append-only until Close.
type Store struct {
	node      *allocatortree.Node
	schema    *arrow.Schema
	batchSize int

	mu           sync.Mutex
	maxBatchSize int // fixed by the first append, per spec.md §9
	fields       map[string]*fieldColumn
	order        []string
	closed       bool
}

// NewStore creates an empty store for schema, attributing every
// transferred chunk to node. batchSize is B, the full-chunk size used to
// advance the watermark and to index full chunks directly; when it is 0
// the first-seen batch size stands in for it. It does not bound appends:
// a batch is rejected only when it is larger than the first-seen size.
func NewStore(node *allocatortree.Node, schema *arrow.Schema, batchSize int) *Store {
	s := &Store{
		node:      node,
		schema:    schema,
		batchSize: batchSize,
		fields:    make(map[string]*fieldColumn),
	}
	for _, f := range schema.Fields() {
		kind, _, _ := vector.KindForField(f)
		s.fields[f.Name] = &fieldColumn{field: f, kind: kind}
		s.order = append(s.order, f.Name)
	}
	return s
}

// FieldNames returns the store's fields in schema order.
func (s *Store) FieldNames() []string { return s.order }

// RowCount returns the store's field-wide row count. All fields share the
// same row count by construction (every append touches every field).
func (s *Store) RowCount() int {
	if len(s.order) == 0 {
		return 0
	}
	col := s.fields[s.order[0]]
	col.mu.Lock()
	defer col.mu.Unlock()
	return col.rowCount
}

// AppendBatch transfers each field's array from rec into the store's
// allocator and pushes it onto that field's chunk list. Per-field appends
// are serialized; transfers across fields may run concurrently at the
// caller's discretion (AppendBatch itself iterates fields sequentially,
// but holds only the one field's lock at a time so concurrent callers on
// different fields do not contend).
func (s *Store) AppendBatch(rec arrow.RecordBatch) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return flighterrors.InvalidArgument("colstore: append after close")
	}
	n := int(rec.NumRows())
	if s.maxBatchSize == 0 {
		s.maxBatchSize = n
	} else if n > s.maxBatchSize {
		s.mu.Unlock()
		return flighterrors.BatchTooLarge("colstore: batch of %d rows exceeds first-seen max %d", n, s.maxBatchSize)
	}
	s.mu.Unlock()

	for i, f := range rec.Schema().Fields() {
		col, ok := s.fields[f.Name]
		if !ok {
			return flighterrors.InvalidArgument("colstore: unknown field %q in appended batch", f.Name)
		}
		arr, err := vector.Transfer(s.node, rec.Column(i))
		if err != nil {
			return err
		}
		col.mu.Lock()
		col.chunks = append(col.chunks, arr)
		col.rowCount += arr.Len()
		if col.watermark == len(col.chunks)-1 && arr.Len() == s.batchSizeFor(col) {
			col.watermark = len(col.chunks)
		}
		col.mu.Unlock()
	}
	return nil
}

// batchSizeFor returns the full-chunk size B used to judge whether a
// chunk counts toward the watermark.
func (s *Store) batchSizeFor(*fieldColumn) int {
	if s.batchSize > 0 {
		return s.batchSize
	}
	return s.maxBatchSize
}

// GetByIndex returns the logical value for field at global row i.
func (s *Store) GetByIndex(field string, i int) (rowsource.Value, error) {
	col, ok := s.fields[field]
	if !ok {
		return rowsource.Value{}, flighterrors.InvalidArgument("colstore: unknown field %q", field)
	}
	col.mu.Lock()
	defer col.mu.Unlock()

	if i < 0 || i >= col.rowCount {
		return rowsource.Value{}, flighterrors.InvalidArgument("colstore: index %d out of range [0,%d)", i, col.rowCount)
	}

	b := s.batchSizeFor(col)
	chunkIdx := i / b
	if b > 0 && chunkIdx < col.watermark {
		return valueAt(col, chunkIdx, i%b)
	}

	// Scan forward from the watermark, bounded by the remaining tail.
	offset := 0
	for ci := 0; ci < col.watermark; ci++ {
		offset += col.chunks[ci].Len()
	}
	for ci := col.watermark; ci < len(col.chunks); ci++ {
		ln := col.chunks[ci].Len()
		if i < offset+ln {
			return valueAt(col, ci, i-offset)
		}
		offset += ln
	}
	return rowsource.Value{}, flighterrors.Internal("colstore: index %d not found despite rowCount %d", i, col.rowCount)
}

func valueAt(col *fieldColumn, chunkIdx, within int) (rowsource.Value, error) {
	arr := col.chunks[chunkIdx]
	return arrayValue(col.kind, arr, within)
}

func arrayValue(kind rowsource.Kind, arr arrow.Array, i int) (rowsource.Value, error) {
	if arr.IsNull(i) {
		return rowsource.NewNull(kind), nil
	}
	switch kind {
	case rowsource.KindInt32:
		return rowsource.NewInt32(arr.(*array.Int32).Value(i)), nil
	case rowsource.KindInt64:
		return rowsource.NewInt64(arr.(*array.Int64).Value(i)), nil
	case rowsource.KindFloat32:
		return rowsource.NewFloat32(arr.(*array.Float32).Value(i)), nil
	case rowsource.KindFloat64:
		return rowsource.NewFloat64(arr.(*array.Float64).Value(i)), nil
	case rowsource.KindString:
		return rowsource.NewString(arr.(*array.String).Value(i)), nil
	case rowsource.KindIntArray, rowsource.KindLongArray, rowsource.KindFloatArray, rowsource.KindDoubleArray:
		return fixedSizeListValue(kind, arr.(*array.FixedSizeList), i)
	case rowsource.KindList:
		return listValue(arr.(*array.List), i)
	default:
		return rowsource.Value{}, flighterrors.Internal("colstore: unsupported kind %s", kind)
	}
}

func fixedSizeListValue(kind rowsource.Kind, arr *array.FixedSizeList, i int) (rowsource.Value, error) {
	start, end := arr.ValueOffset(i), arr.ValueOffset(i+1)
	values := arr.ListValues()
	switch kind {
	case rowsource.KindIntArray:
		elems := values.(*array.Int32)
		out := make([]int32, 0, end-start)
		for j := start; j < end; j++ {
			out = append(out, elems.Value(j))
		}
		return rowsource.NewIntArray(out), nil
	case rowsource.KindLongArray:
		elems := values.(*array.Int64)
		out := make([]int64, 0, end-start)
		for j := start; j < end; j++ {
			out = append(out, elems.Value(j))
		}
		return rowsource.NewLongArray(out), nil
	case rowsource.KindFloatArray:
		elems := values.(*array.Float32)
		out := make([]float32, 0, end-start)
		for j := start; j < end; j++ {
			out = append(out, elems.Value(j))
		}
		return rowsource.NewFloatArray(out), nil
	case rowsource.KindDoubleArray:
		elems := values.(*array.Float64)
		out := make([]float64, 0, end-start)
		for j := start; j < end; j++ {
			out = append(out, elems.Value(j))
		}
		return rowsource.NewDoubleArray(out), nil
	default:
		return rowsource.Value{}, flighterrors.Internal("colstore: unsupported fixed-size-list kind %s", kind)
	}
}

func listValue(arr *array.List, i int) (rowsource.Value, error) {
	start, end := arr.ValueOffsets(i)
	elems, ok := arr.ListValues().(*array.Float64)
	if !ok {
		return rowsource.Value{}, flighterrors.TypeMismatch("colstore: list column element type is not float64")
	}
	out := make([]rowsource.Value, 0, end-start)
	for j := start; j < end; j++ {
		out = append(out, rowsource.NewFloat64(elems.Value(int(j))))
	}
	return rowsource.NewList(out), nil
}

// GetInt64 is a typed accessor surfacing TypeMismatch if field's logical
// type disagrees.
func (s *Store) GetInt64(field string, i int) (int64, error) {
	col, ok := s.fields[field]
	if !ok {
		return 0, flighterrors.InvalidArgument("colstore: unknown field %q", field)
	}
	if col.kind != rowsource.KindInt64 {
		return 0, flighterrors.TypeMismatch("colstore: field %q is %s, not INT64", field, col.kind)
	}
	v, err := s.GetByIndex(field, i)
	if err != nil {
		return 0, err
	}
	return v.AsInt64()
}

// GetStringList and GetList mirror GetInt64's type-checked accessor
// pattern for list-shaped columns.
func (s *Store) GetStringList(field string, i int) ([]rowsource.Value, error) {
	return s.GetList(field, i)
}

func (s *Store) GetList(field string, i int) ([]rowsource.Value, error) {
	col, ok := s.fields[field]
	if !ok {
		return nil, flighterrors.InvalidArgument("colstore: unknown field %q", field)
	}
	if col.kind != rowsource.KindList {
		return nil, flighterrors.TypeMismatch("colstore: field %q is %s, not LIST", field, col.kind)
	}
	v, err := s.GetByIndex(field, i)
	if err != nil {
		return nil, err
	}
	return v.AsList()
}

// Close closes every chunk then the allocator node. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	for _, name := range s.order {
		col := s.fields[name]
		col.mu.Lock()
		for _, ch := range col.chunks {
			size := vector.ArraySize(ch)
			ch.Release()
			s.node.Free(size)
		}
		col.chunks = nil
		col.mu.Unlock()
	}
	return s.node.Close()
}
