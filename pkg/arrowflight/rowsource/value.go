// Package rowsource defines the read-only row abstraction the producer
// consumes: a Row yields ordinal/named access to Values, each a tagged
// scalar or array, without requiring the underlying driver row to
// implement any particular storage layout.
package rowsource

import (
	"github.com/cockroachdb/errors"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/flighterrors"
)

// Kind tags the logical type carried by a Value.
type Kind int

const (
	KindInt32 Kind = iota
	KindInt64
	KindFloat32
	KindFloat64
	KindString
	KindIntArray
	KindLongArray
	KindFloatArray
	KindDoubleArray
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindInt32:
		return "INT32"
	case KindInt64:
		return "INT64"
	case KindFloat32:
		return "FLOAT32"
	case KindFloat64:
		return "FLOAT64"
	case KindString:
		return "STRING"
	case KindIntArray:
		return "INT_ARRAY"
	case KindLongArray:
		return "LONG_ARRAY"
	case KindFloatArray:
		return "FLOAT_ARRAY"
	case KindDoubleArray:
		return "DOUBLE_ARRAY"
	case KindList:
		return "LIST"
	case KindObject:
		return "OBJECT"
	default:
		return "UNKNOWN"
	}
}

// Value is a single row/column cell: a tagged sum over the Kind set.
// Arity() is meaningful only for array/list kinds.
type Value struct {
	kind  Kind
	scal  interface{}
	arity int
}

func NewNull(kind Kind) Value                     { return Value{kind: kind} }
func NewInt32(v int32) Value                      { return Value{kind: KindInt32, scal: v} }
func NewInt64(v int64) Value                      { return Value{kind: KindInt64, scal: v} }
func NewFloat32(v float32) Value                  { return Value{kind: KindFloat32, scal: v} }
func NewFloat64(v float64) Value                  { return Value{kind: KindFloat64, scal: v} }
func NewString(v string) Value                    { return Value{kind: KindString, scal: v} }
func NewIntArray(v []int32) Value                 { return Value{kind: KindIntArray, scal: v, arity: len(v)} }
func NewLongArray(v []int64) Value                { return Value{kind: KindLongArray, scal: v, arity: len(v)} }
func NewFloatArray(v []float32) Value             { return Value{kind: KindFloatArray, scal: v, arity: len(v)} }
func NewDoubleArray(v []float64) Value            { return Value{kind: KindDoubleArray, scal: v, arity: len(v)} }
func NewList(v []Value) Value                     { return Value{kind: KindList, scal: v, arity: len(v)} }
func NewObject(v interface{}) Value                { return Value{kind: KindObject, scal: v} }

// Kind returns the value's logical type.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value carries no payload.
func (v Value) IsNull() bool { return v.scal == nil }

// Arity returns the element count for array/list kinds, else 0.
func (v Value) Arity() int { return v.arity }

// AsInt32 converts to int32, failing with a typed error when the source
// kind cannot represent the target.
func (v Value) AsInt32() (int32, error) {
	if v.kind == KindInt32 {
		return v.scal.(int32), nil
	}
	return 0, conversionError(v.kind, KindInt32)
}

func (v Value) AsInt64() (int64, error) {
	switch v.kind {
	case KindInt64:
		return v.scal.(int64), nil
	case KindInt32:
		return int64(v.scal.(int32)), nil
	}
	return 0, conversionError(v.kind, KindInt64)
}

func (v Value) AsFloat32() (float32, error) {
	if v.kind == KindFloat32 {
		return v.scal.(float32), nil
	}
	return 0, conversionError(v.kind, KindFloat32)
}

func (v Value) AsFloat64() (float64, error) {
	switch v.kind {
	case KindFloat64:
		return v.scal.(float64), nil
	case KindFloat32:
		return float64(v.scal.(float32)), nil
	}
	return 0, conversionError(v.kind, KindFloat64)
}

func (v Value) AsString() (string, error) {
	if v.kind == KindString {
		return v.scal.(string), nil
	}
	return "", conversionError(v.kind, KindString)
}

func (v Value) AsIntArray() ([]int32, error) {
	if v.kind == KindIntArray {
		return v.scal.([]int32), nil
	}
	return nil, conversionError(v.kind, KindIntArray)
}

func (v Value) AsLongArray() ([]int64, error) {
	if v.kind == KindLongArray {
		return v.scal.([]int64), nil
	}
	return nil, conversionError(v.kind, KindLongArray)
}

func (v Value) AsFloatArray() ([]float32, error) {
	if v.kind == KindFloatArray {
		return v.scal.([]float32), nil
	}
	return nil, conversionError(v.kind, KindFloatArray)
}

func (v Value) AsDoubleArray() ([]float64, error) {
	if v.kind == KindDoubleArray {
		return v.scal.([]float64), nil
	}
	return nil, conversionError(v.kind, KindDoubleArray)
}

func (v Value) AsList() ([]Value, error) {
	if v.kind == KindList {
		return v.scal.([]Value), nil
	}
	return nil, conversionError(v.kind, KindList)
}

func conversionError(from, to Kind) error {
	return flighterrors.Wrap(errors.Newf("cannot convert %s to %s", from, to),
		flighterrors.ErrInvalidArgument, "rowsource: value conversion")
}

// Row is a read-only view of one record, keyed by ordinal or field name.
// Implementations wrap driver-specific rows and need not be thread-safe:
// the producer dispatches one row at a time per partition.
type Row interface {
	// Keys returns the ordered field names for this row.
	Keys() []string
	// Get returns the value at ordinal i.
	Get(i int) (Value, error)
	// GetByName returns the value for the named field.
	GetByName(name string) (Value, error)
}
