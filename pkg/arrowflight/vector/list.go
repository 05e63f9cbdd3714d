package vector

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/allocatortree"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/flighterrors"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/rowsource"
)

// FixedSizeListBuilder builds a fixed-size-list-of-primitive column.
// Every non-null list written must have exactly Stride elements.
type FixedSizeListBuilder struct {
	field  arrow.Field
	stride int
	elem   rowsource.Kind
	b      *array.FixedSizeListBuilder
	n      int
}

// NewFixedSizeListBuilder constructs a builder for a fixed-size list of
// elem, with the given stride (element count per row). elem must be one
// of KindInt32, KindInt64, KindFloat32, KindFloat64.
func NewFixedSizeListBuilder(node *allocatortree.Node, field arrow.Field, stride int, elem rowsource.Kind, initialCapacity int) (*FixedSizeListBuilder, error) {
	etype, err := arrowPrimitiveType(elem)
	if err != nil {
		return nil, err
	}
	b := array.NewFixedSizeListBuilder(node.Memory(), int32(stride), etype)
	b.Reserve(initialCapacity)
	return &FixedSizeListBuilder{field: field, stride: stride, elem: elem, b: b}, nil
}

func (c *FixedSizeListBuilder) Field() arrow.Field { return c.field }

func (c *FixedSizeListBuilder) SetSafe(index int, v rowsource.Value) error {
	if index != c.n {
		return indexOutOfOrder(c.field, index, c.n)
	}
	if v.IsNull() {
		if !c.field.Nullable {
			return nullErr(c.field)
		}
		c.b.AppendNull()
		c.n++
		return nil
	}
	elems, err := arrayElements(v)
	if err != nil {
		return err
	}
	if len(elems) != c.stride {
		return flighterrors.InvalidArgument("vector: field %q expects fixed-size list of stride %d, got %d", c.field.Name, c.stride, len(elems))
	}
	c.b.Append(true)
	values := c.b.ValueBuilder()
	for _, elem := range elems {
		if err := appendPrimitive(values, elem); err != nil {
			return err
		}
	}
	c.n++
	return nil
}

func (c *FixedSizeListBuilder) SetValueCount(n int) { c.n = n }
func (c *FixedSizeListBuilder) Clear()              { c.b.Resize(0); c.n = 0 }
func (c *FixedSizeListBuilder) Close()              { c.b.Release() }

func (c *FixedSizeListBuilder) TransferTo(dest *allocatortree.Node) (arrow.Array, error) {
	arr := c.b.NewListArray()
	c.n = 0
	return transfer(dest, arr)
}

// ListBuilder builds a variable-size-list-of-float64 column. Per the
// system's resolved open question, only float64 elements are supported;
// SetSafe fails InvalidArgument for a value with any other element kind.
type ListBuilder struct {
	field    arrow.Field
	b        *array.ListBuilder
	n        int
	lastSet  int
}

func NewListBuilder(node *allocatortree.Node, field arrow.Field, initialCapacity int) *ListBuilder {
	b := array.NewListBuilder(node.Memory(), arrow.PrimitiveTypes.Float64)
	b.Reserve(initialCapacity)
	return &ListBuilder{field: field, b: b}
}

func (c *ListBuilder) Field() arrow.Field { return c.field }

func (c *ListBuilder) SetSafe(index int, v rowsource.Value) error {
	if index != c.n {
		return indexOutOfOrder(c.field, index, c.n)
	}
	if v.IsNull() {
		if !c.field.Nullable {
			return nullErr(c.field)
		}
		c.b.AppendNull()
		c.n++
		return nil
	}
	if v.Kind() != rowsource.KindList && v.Kind() != rowsource.KindDoubleArray {
		return flighterrors.InvalidArgument("vector: field %q only supports float64 list elements, got %s", c.field.Name, v.Kind())
	}
	elems, err := arrayElements(v)
	if err != nil {
		return err
	}
	c.b.Append(true)
	values := c.b.ValueBuilder().(*array.Float64Builder)
	for _, elem := range elems {
		if elem.Kind() != rowsource.KindFloat64 {
			return flighterrors.InvalidArgument("vector: field %q only supports float64 list elements, got %s", c.field.Name, elem.Kind())
		}
		f, err := elem.AsFloat64()
		if err != nil {
			return err
		}
		values.Append(f)
	}
	c.n++
	c.lastSet = c.n - 1
	return nil
}

// SetLastSet marks the last fully-written offset; required before
// TransferTo per the variable-size list write protocol.
func (c *ListBuilder) SetLastSet(n int) { c.lastSet = n }

func (c *ListBuilder) SetValueCount(n int) { c.n = n }
func (c *ListBuilder) Clear()              { c.b.Resize(0); c.n = 0; c.lastSet = 0 }
func (c *ListBuilder) Close()              { c.b.Release() }

func (c *ListBuilder) TransferTo(dest *allocatortree.Node) (arrow.Array, error) {
	if c.lastSet != c.n-1 && c.n > 0 {
		return nil, flighterrors.InvalidArgument("vector: field %q transferred before SetLastSet(%d)", c.field.Name, c.n-1)
	}
	arr := c.b.NewListArray()
	c.n, c.lastSet = 0, 0
	return transfer(dest, arr)
}

func arrowPrimitiveType(k rowsource.Kind) (arrow.DataType, error) {
	switch k {
	case rowsource.KindInt32:
		return arrow.PrimitiveTypes.Int32, nil
	case rowsource.KindInt64:
		return arrow.PrimitiveTypes.Int64, nil
	case rowsource.KindFloat32:
		return arrow.PrimitiveTypes.Float32, nil
	case rowsource.KindFloat64:
		return arrow.PrimitiveTypes.Float64, nil
	default:
		return nil, flighterrors.InvalidArgument("vector: unsupported fixed-size-list element kind %s", k)
	}
}

// arrayElements extracts the element Values from an array-kinded Value,
// normalizing typed-array kinds (KindIntArray, etc.) into []Value.
func arrayElements(v rowsource.Value) ([]rowsource.Value, error) {
	switch v.Kind() {
	case rowsource.KindList:
		return v.AsList()
	case rowsource.KindIntArray:
		arr, err := v.AsIntArray()
		if err != nil {
			return nil, err
		}
		out := make([]rowsource.Value, len(arr))
		for i, e := range arr {
			out[i] = rowsource.NewInt32(e)
		}
		return out, nil
	case rowsource.KindLongArray:
		arr, err := v.AsLongArray()
		if err != nil {
			return nil, err
		}
		out := make([]rowsource.Value, len(arr))
		for i, e := range arr {
			out[i] = rowsource.NewInt64(e)
		}
		return out, nil
	case rowsource.KindFloatArray:
		arr, err := v.AsFloatArray()
		if err != nil {
			return nil, err
		}
		out := make([]rowsource.Value, len(arr))
		for i, e := range arr {
			out[i] = rowsource.NewFloat32(e)
		}
		return out, nil
	case rowsource.KindDoubleArray:
		arr, err := v.AsDoubleArray()
		if err != nil {
			return nil, err
		}
		out := make([]rowsource.Value, len(arr))
		for i, e := range arr {
			out[i] = rowsource.NewFloat64(e)
		}
		return out, nil
	default:
		return nil, flighterrors.InvalidArgument("vector: value of kind %s is not array-shaped", v.Kind())
	}
}

func appendPrimitive(b array.Builder, v rowsource.Value) error {
	switch bb := b.(type) {
	case *array.Int32Builder:
		val, err := v.AsInt32()
		if err != nil {
			return err
		}
		bb.Append(val)
	case *array.Int64Builder:
		val, err := v.AsInt64()
		if err != nil {
			return err
		}
		bb.Append(val)
	case *array.Float32Builder:
		val, err := v.AsFloat32()
		if err != nil {
			return err
		}
		bb.Append(val)
	case *array.Float64Builder:
		val, err := v.AsFloat64()
		if err != nil {
			return err
		}
		bb.Append(val)
	default:
		return flighterrors.Internal("vector: unsupported element builder %T", b)
	}
	return nil
}
