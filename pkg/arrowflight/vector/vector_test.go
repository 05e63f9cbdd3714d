package vector_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/allocatortree"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/rowsource"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/vector"
)

func newNode(t *testing.T) *allocatortree.Node {
	t.Helper()
	root := allocatortree.NewRoot("root", allocatortree.Unbounded, memory.NewGoAllocator())
	return root.NewChild("child", allocatortree.Unbounded)
}

func TestInt32BuilderSetAndTransfer(t *testing.T) {
	node := newNode(t)
	field := arrow.Field{Name: "n", Type: arrow.PrimitiveTypes.Int32, Nullable: false}
	b := vector.NewInt32Builder(node, field, 4)

	require.NoError(t, b.SetSafe(0, rowsource.NewInt32(1)))
	require.NoError(t, b.SetSafe(1, rowsource.NewInt32(2)))

	dest := newNode(t)
	arr, err := b.TransferTo(dest)
	require.NoError(t, err)
	defer arr.Release()
	require.Equal(t, 2, arr.Len())
	b.Close()
}

func TestBuilderRejectsOutOfOrderIndex(t *testing.T) {
	node := newNode(t)
	field := arrow.Field{Name: "n", Type: arrow.PrimitiveTypes.Int64, Nullable: true}
	b := vector.NewInt64Builder(node, field, 4)

	err := b.SetSafe(1, rowsource.NewInt64(5))
	require.Error(t, err)
}

func TestBuilderRejectsNullOnNonNullable(t *testing.T) {
	node := newNode(t)
	field := arrow.Field{Name: "n", Type: arrow.PrimitiveTypes.Float64, Nullable: false}
	b := vector.NewFloat64Builder(node, field, 4)

	err := b.SetSafe(0, rowsource.NewNull(rowsource.KindFloat64))
	require.Error(t, err)
}

func TestFixedSizeListBuilderEnforcesStride(t *testing.T) {
	node := newNode(t)
	field := arrow.Field{Name: "embedding", Type: arrow.FixedSizeListOf(3, arrow.PrimitiveTypes.Float64), Nullable: false}
	b, err := vector.NewFixedSizeListBuilder(node, field, 3, rowsource.KindFloat64, 2)
	require.NoError(t, err)

	require.NoError(t, b.SetSafe(0, rowsource.NewDoubleArray([]float64{1, 2, 3})))

	err = b.SetSafe(1, rowsource.NewDoubleArray([]float64{1, 2}))
	require.Error(t, err)
	b.Close()
}

func TestFixedSizeListBuilderRejectsUnsupportedElemKind(t *testing.T) {
	node := newNode(t)
	field := arrow.Field{Name: "bad", Type: arrow.FixedSizeListOf(2, arrow.BinaryTypes.String), Nullable: false}
	_, err := vector.NewFixedSizeListBuilder(node, field, 2, rowsource.KindString, 2)
	require.Error(t, err)
}

func TestListBuilderOnlySupportsFloat64Elements(t *testing.T) {
	node := newNode(t)
	field := arrow.Field{Name: "scores", Type: arrow.ListOf(arrow.PrimitiveTypes.Float64), Nullable: false}
	b := vector.NewListBuilder(node, field, 2)

	err := b.SetSafe(0, rowsource.NewIntArray([]int32{1, 2}))
	require.Error(t, err)
}

func TestListBuilderRequiresSetLastSetBeforeTransfer(t *testing.T) {
	node := newNode(t)
	field := arrow.Field{Name: "scores", Type: arrow.ListOf(arrow.PrimitiveTypes.Float64), Nullable: false}
	b := vector.NewListBuilder(node, field, 2)

	require.NoError(t, b.SetSafe(0, rowsource.NewDoubleArray([]float64{1.5, 2.5})))
	b.SetValueCount(1)

	dest := newNode(t)
	_, err := b.TransferTo(dest)
	require.Error(t, err)

	b.SetLastSet(0)
	arr, err := b.TransferTo(dest)
	require.NoError(t, err)
	arr.Release()
	b.Close()
}

func TestFieldForAndKindForFieldRoundTrip(t *testing.T) {
	field, err := vector.FieldFor("age", rowsource.NewInt64(42), true)
	require.NoError(t, err)
	require.Equal(t, arrow.PrimitiveTypes.Int64, field.Type)

	kind, stride, err := vector.KindForField(field)
	require.NoError(t, err)
	require.Equal(t, rowsource.KindInt64, kind)
	require.Equal(t, 0, stride)
}

func TestFieldForFixedSizeListRoundTrip(t *testing.T) {
	field, err := vector.FieldFor("vec", rowsource.NewDoubleArray([]float64{1, 2, 3, 4}), false)
	require.NoError(t, err)

	kind, stride, err := vector.KindForField(field)
	require.NoError(t, err)
	require.Equal(t, rowsource.KindDoubleArray, kind)
	require.Equal(t, 4, stride)
}

func TestArraySizeSumsBufferLengths(t *testing.T) {
	node := newNode(t)
	field := arrow.Field{Name: "n", Type: arrow.PrimitiveTypes.Int32, Nullable: false}
	b := vector.NewInt32Builder(node, field, 4)
	require.NoError(t, b.SetSafe(0, rowsource.NewInt32(1)))

	dest := newNode(t)
	arr, err := b.TransferTo(dest)
	require.NoError(t, err)
	defer arr.Release()

	require.True(t, vector.ArraySize(arr) > 0)
	b.Close()
}
