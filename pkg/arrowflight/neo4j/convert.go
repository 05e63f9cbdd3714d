package neo4j

import (
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/flighterrors"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/rowsource"
)

// FromDriverValue converts a value as returned by a Bolt driver record
// (int64, float64, string, []interface{}, or nil) into the tagged Value
// the rest of the pipeline understands. Lists are only supported when
// every element is a float64, matching spec.md §9's LIST resolution.
func FromDriverValue(kind rowsource.Kind, v interface{}) (rowsource.Value, error) {
	if v == nil {
		return rowsource.NewNull(kind), nil
	}
	switch kind {
	case rowsource.KindInt32:
		n, ok := v.(int64)
		if !ok {
			return rowsource.Value{}, flighterrors.TypeMismatch("neo4j: expected integer, got %T", v)
		}
		return rowsource.NewInt32(int32(n)), nil
	case rowsource.KindInt64:
		n, ok := v.(int64)
		if !ok {
			return rowsource.Value{}, flighterrors.TypeMismatch("neo4j: expected integer, got %T", v)
		}
		return rowsource.NewInt64(n), nil
	case rowsource.KindFloat32:
		f, ok := v.(float64)
		if !ok {
			return rowsource.Value{}, flighterrors.TypeMismatch("neo4j: expected float, got %T", v)
		}
		return rowsource.NewFloat32(float32(f)), nil
	case rowsource.KindFloat64:
		f, ok := v.(float64)
		if !ok {
			return rowsource.Value{}, flighterrors.TypeMismatch("neo4j: expected float, got %T", v)
		}
		return rowsource.NewFloat64(f), nil
	case rowsource.KindString:
		s, ok := v.(string)
		if !ok {
			return rowsource.Value{}, flighterrors.TypeMismatch("neo4j: expected string, got %T", v)
		}
		return rowsource.NewString(s), nil
	case rowsource.KindIntArray, rowsource.KindLongArray, rowsource.KindFloatArray, rowsource.KindDoubleArray, rowsource.KindList:
		return fromDriverList(kind, v)
	default:
		return rowsource.Value{}, flighterrors.InvalidArgument("neo4j: unsupported target kind %s", kind)
	}
}

func fromDriverList(kind rowsource.Kind, v interface{}) (rowsource.Value, error) {
	raw, ok := v.([]interface{})
	if !ok {
		return rowsource.Value{}, flighterrors.TypeMismatch("neo4j: expected list, got %T", v)
	}
	switch kind {
	case rowsource.KindIntArray:
		out := make([]int32, len(raw))
		for i, e := range raw {
			n, ok := e.(int64)
			if !ok {
				return rowsource.Value{}, flighterrors.TypeMismatch("neo4j: expected integer list element, got %T", e)
			}
			out[i] = int32(n)
		}
		return rowsource.NewIntArray(out), nil
	case rowsource.KindLongArray:
		out := make([]int64, len(raw))
		for i, e := range raw {
			n, ok := e.(int64)
			if !ok {
				return rowsource.Value{}, flighterrors.TypeMismatch("neo4j: expected integer list element, got %T", e)
			}
			out[i] = n
		}
		return rowsource.NewLongArray(out), nil
	case rowsource.KindFloatArray:
		out := make([]float32, len(raw))
		for i, e := range raw {
			f, ok := e.(float64)
			if !ok {
				return rowsource.Value{}, flighterrors.TypeMismatch("neo4j: expected float list element, got %T", e)
			}
			out[i] = float32(f)
		}
		return rowsource.NewFloatArray(out), nil
	case rowsource.KindDoubleArray:
		out := make([]float64, len(raw))
		for i, e := range raw {
			f, ok := e.(float64)
			if !ok {
				return rowsource.Value{}, flighterrors.TypeMismatch("neo4j: expected float list element, got %T", e)
			}
			out[i] = f
		}
		return rowsource.NewDoubleArray(out), nil
	default: // KindList: variable length, float64 elements only
		vals := make([]rowsource.Value, len(raw))
		for i, e := range raw {
			f, ok := e.(float64)
			if !ok {
				return rowsource.Value{}, flighterrors.TypeMismatch("neo4j: list column requires float64 elements, got %T", e)
			}
			vals[i] = rowsource.NewFloat64(f)
		}
		return rowsource.NewList(vals), nil
	}
}
