package vector

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/allocatortree"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/rowsource"
)

// Int32Builder builds an arrow.PrimitiveTypes.Int32 column.
type Int32Builder struct {
	field arrow.Field
	b     *array.Int32Builder
	n     int
}

func NewInt32Builder(node *allocatortree.Node, field arrow.Field, initialCapacity int) *Int32Builder {
	b := array.NewInt32Builder(node.Memory())
	b.Reserve(initialCapacity)
	return &Int32Builder{field: field, b: b}
}

func (c *Int32Builder) Field() arrow.Field { return c.field }

func (c *Int32Builder) SetSafe(index int, v rowsource.Value) error {
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
	val, err := v.AsInt32()
	if err != nil {
		return err
	}
	c.b.Append(val)
	c.n++
	return nil
}

func (c *Int32Builder) SetValueCount(n int) { c.n = n }
func (c *Int32Builder) Clear()              { c.b.Resize(0); c.n = 0 }
func (c *Int32Builder) Close()              { c.b.Release() }

func (c *Int32Builder) TransferTo(dest *allocatortree.Node) (arrow.Array, error) {
	arr := c.b.NewInt32Array()
	c.n = 0
	return transfer(dest, arr)
}

// Int64Builder builds an arrow.PrimitiveTypes.Int64 column.
type Int64Builder struct {
	field arrow.Field
	b     *array.Int64Builder
	n     int
}

func NewInt64Builder(node *allocatortree.Node, field arrow.Field, initialCapacity int) *Int64Builder {
	b := array.NewInt64Builder(node.Memory())
	b.Reserve(initialCapacity)
	return &Int64Builder{field: field, b: b}
}

func (c *Int64Builder) Field() arrow.Field { return c.field }

func (c *Int64Builder) SetSafe(index int, v rowsource.Value) error {
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
	val, err := v.AsInt64()
	if err != nil {
		return err
	}
	c.b.Append(val)
	c.n++
	return nil
}

func (c *Int64Builder) SetValueCount(n int) { c.n = n }
func (c *Int64Builder) Clear()              { c.b.Resize(0); c.n = 0 }
func (c *Int64Builder) Close()              { c.b.Release() }

func (c *Int64Builder) TransferTo(dest *allocatortree.Node) (arrow.Array, error) {
	arr := c.b.NewInt64Array()
	c.n = 0
	return transfer(dest, arr)
}

// Float32Builder builds an arrow.PrimitiveTypes.Float32 column.
type Float32Builder struct {
	field arrow.Field
	b     *array.Float32Builder
	n     int
}

func NewFloat32Builder(node *allocatortree.Node, field arrow.Field, initialCapacity int) *Float32Builder {
	b := array.NewFloat32Builder(node.Memory())
	b.Reserve(initialCapacity)
	return &Float32Builder{field: field, b: b}
}

func (c *Float32Builder) Field() arrow.Field { return c.field }

func (c *Float32Builder) SetSafe(index int, v rowsource.Value) error {
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
	val, err := v.AsFloat32()
	if err != nil {
		return err
	}
	c.b.Append(val)
	c.n++
	return nil
}

func (c *Float32Builder) SetValueCount(n int) { c.n = n }
func (c *Float32Builder) Clear()              { c.b.Resize(0); c.n = 0 }
func (c *Float32Builder) Close()              { c.b.Release() }

func (c *Float32Builder) TransferTo(dest *allocatortree.Node) (arrow.Array, error) {
	arr := c.b.NewFloat32Array()
	c.n = 0
	return transfer(dest, arr)
}

// Float64Builder builds an arrow.PrimitiveTypes.Float64 column.
type Float64Builder struct {
	field arrow.Field
	b     *array.Float64Builder
	n     int
}

func NewFloat64Builder(node *allocatortree.Node, field arrow.Field, initialCapacity int) *Float64Builder {
	b := array.NewFloat64Builder(node.Memory())
	b.Reserve(initialCapacity)
	return &Float64Builder{field: field, b: b}
}

func (c *Float64Builder) Field() arrow.Field { return c.field }

func (c *Float64Builder) SetSafe(index int, v rowsource.Value) error {
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
	val, err := v.AsFloat64()
	if err != nil {
		return err
	}
	c.b.Append(val)
	c.n++
	return nil
}

func (c *Float64Builder) SetValueCount(n int) { c.n = n }
func (c *Float64Builder) Clear()              { c.b.Resize(0); c.n = 0 }
func (c *Float64Builder) Close()              { c.b.Release() }

func (c *Float64Builder) TransferTo(dest *allocatortree.Node) (arrow.Array, error) {
	arr := c.b.NewFloat64Array()
	c.n = 0
	return transfer(dest, arr)
}

// StringBuilder builds a utf8 column, UTF-8 encoding on write.
type StringBuilder struct {
	field arrow.Field
	b     *array.StringBuilder
	n     int
}

func NewStringBuilder(node *allocatortree.Node, field arrow.Field, initialCapacity int) *StringBuilder {
	b := array.NewStringBuilder(node.Memory())
	b.Reserve(initialCapacity)
	return &StringBuilder{field: field, b: b}
}

func (c *StringBuilder) Field() arrow.Field { return c.field }

func (c *StringBuilder) SetSafe(index int, v rowsource.Value) error {
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
	val, err := v.AsString()
	if err != nil {
		return err
	}
	c.b.Append(val)
	c.n++
	return nil
}

func (c *StringBuilder) SetValueCount(n int) { c.n = n }
func (c *StringBuilder) Clear()              { c.b.Resize(0); c.n = 0 }
func (c *StringBuilder) Close()              { c.b.Release() }

func (c *StringBuilder) TransferTo(dest *allocatortree.Node) (arrow.Array, error) {
	arr := c.b.NewStringArray()
	c.n = 0
	return transfer(dest, arr)
}

func indexOutOfOrder(field arrow.Field, index, expected int) error {
	return flightIndexErr(field.Name, index, expected)
}
