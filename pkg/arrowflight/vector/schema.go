package vector

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/flighterrors"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/rowsource"
)

// FieldFor maps a row value's logical type to a wire field, per the
// schema-inference table in spec.md §4.8. For array kinds the
// fixed-size-list stride is v's arity, i.e. the first observed row's array
// length.
func FieldFor(name string, v rowsource.Value, nullable bool) (arrow.Field, error) {
	switch v.Kind() {
	case rowsource.KindInt32:
		return arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Int32, Nullable: nullable}, nil
	case rowsource.KindInt64:
		return arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Int64, Nullable: nullable}, nil
	case rowsource.KindFloat32:
		return arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float32, Nullable: nullable}, nil
	case rowsource.KindFloat64:
		return arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float64, Nullable: nullable}, nil
	case rowsource.KindString:
		return arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: nullable}, nil
	case rowsource.KindIntArray:
		return fslField(name, arrow.PrimitiveTypes.Int32, v.Arity(), nullable)
	case rowsource.KindLongArray:
		return fslField(name, arrow.PrimitiveTypes.Int64, v.Arity(), nullable)
	case rowsource.KindFloatArray:
		return fslField(name, arrow.PrimitiveTypes.Float32, v.Arity(), nullable)
	case rowsource.KindDoubleArray:
		return fslField(name, arrow.PrimitiveTypes.Float64, v.Arity(), nullable)
	case rowsource.KindList:
		return arrow.Field{Name: name, Type: arrow.ListOf(arrow.PrimitiveTypes.Float64), Nullable: nullable}, nil
	default:
		return arrow.Field{}, flighterrors.InvalidArgument("vector: unsupported row value kind %s for schema inference", v.Kind())
	}
}

func fslField(name string, elem arrow.DataType, stride int, nullable bool) (arrow.Field, error) {
	return arrow.Field{
		Name:     name,
		Type:     arrow.FixedSizeListOf(int32(stride), elem),
		Nullable: nullable,
	}, nil
}

// KindForField derives the rowsource.Kind a builder should be constructed
// with for field, used when allocating a partition's builders from an
// already-published schema.
func KindForField(field arrow.Field) (rowsource.Kind, int, error) {
	switch t := field.Type.(type) {
	case *arrow.Int32Type:
		return rowsource.KindInt32, 0, nil
	case *arrow.Int64Type:
		return rowsource.KindInt64, 0, nil
	case *arrow.Float32Type:
		return rowsource.KindFloat32, 0, nil
	case *arrow.Float64Type:
		return rowsource.KindFloat64, 0, nil
	case *arrow.StringType:
		return rowsource.KindString, 0, nil
	case *arrow.FixedSizeListType:
		stride := int(t.Len())
		switch t.Elem().(type) {
		case *arrow.Int32Type:
			return rowsource.KindIntArray, stride, nil
		case *arrow.Int64Type:
			return rowsource.KindLongArray, stride, nil
		case *arrow.Float32Type:
			return rowsource.KindFloatArray, stride, nil
		case *arrow.Float64Type:
			return rowsource.KindDoubleArray, stride, nil
		default:
			return 0, 0, flighterrors.InvalidArgument("vector: unsupported fixed-size-list element type %s", t.Elem())
		}
	case *arrow.ListType:
		if _, ok := t.Elem().(*arrow.Float64Type); !ok {
			return 0, 0, flighterrors.InvalidArgument("vector: unsupported list element type %s", t.Elem())
		}
		return rowsource.KindList, 0, nil
	default:
		return 0, 0, flighterrors.InvalidArgument("vector: unsupported field type %s", field.Type)
	}
}
