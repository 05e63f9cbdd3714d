package colstore_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/allocatortree"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/colstore"
)

func newStoreNode(t *testing.T) *allocatortree.Node {
	t.Helper()
	root := allocatortree.NewRoot("root", allocatortree.Unbounded, memory.NewGoAllocator())
	return root.NewChild("store", allocatortree.Unbounded)
}

func testSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
}

func batch(mem memory.Allocator, schema *arrow.Schema, ids []int64, names []string) arrow.RecordBatch {
	idB := array.NewInt64Builder(mem)
	defer idB.Release()
	for _, id := range ids {
		idB.Append(id)
	}
	nameB := array.NewStringBuilder(mem)
	defer nameB.Release()
	for _, n := range names {
		nameB.Append(n)
	}
	idArr := idB.NewInt64Array()
	nameArr := nameB.NewStringArray()
	return array.NewRecordBatch(schema, []arrow.Array{idArr, nameArr}, int64(len(ids)))
}

func TestAppendBatchAndGetByIndex(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := testSchema()
	node := newStoreNode(t)
	store := colstore.NewStore(node, schema, 2)

	b1 := batch(mem, schema, []int64{1, 2}, []string{"a", "b"})
	defer b1.Release()
	require.NoError(t, store.AppendBatch(b1))

	b2 := batch(mem, schema, []int64{3, 4}, []string{"c", "d"})
	defer b2.Release()
	require.NoError(t, store.AppendBatch(b2))

	require.Equal(t, 4, store.RowCount())

	v, err := store.GetByIndex("id", 0)
	require.NoError(t, err)
	n, err := v.AsInt64()
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	v, err = store.GetByIndex("id", 3)
	require.NoError(t, err)
	n, err = v.AsInt64()
	require.NoError(t, err)
	require.Equal(t, int64(4), n)

	got, err := store.GetInt64("id", 2)
	require.NoError(t, err)
	require.Equal(t, int64(3), got)

	require.NoError(t, store.Close())
}

func TestAppendBatchRejectsOversizeAfterFirstBatch(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := testSchema()
	node := newStoreNode(t)
	store := colstore.NewStore(node, schema, 0)

	first := batch(mem, schema, []int64{1, 2}, []string{"a", "b"})
	defer first.Release()
	require.NoError(t, store.AppendBatch(first))

	oversize := batch(mem, schema, []int64{1, 2, 3}, []string{"a", "b", "c"})
	defer oversize.Release()
	err := store.AppendBatch(oversize)
	require.Error(t, err)

	require.NoError(t, store.Close())
}

func TestGetByIndexOutOfRange(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := testSchema()
	node := newStoreNode(t)
	store := colstore.NewStore(node, schema, 2)

	b := batch(mem, schema, []int64{1}, []string{"a"})
	defer b.Release()
	require.NoError(t, store.AppendBatch(b))

	_, err := store.GetByIndex("id", 5)
	require.Error(t, err)

	require.NoError(t, store.Close())
}

func TestGetInt64TypeMismatch(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := testSchema()
	node := newStoreNode(t)
	store := colstore.NewStore(node, schema, 2)

	b := batch(mem, schema, []int64{1}, []string{"a"})
	defer b.Release()
	require.NoError(t, store.AppendBatch(b))

	_, err := store.GetInt64("name", 0)
	require.Error(t, err)

	require.NoError(t, store.Close())
}

func TestAppendAfterCloseFails(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := testSchema()
	node := newStoreNode(t)
	store := colstore.NewStore(node, schema, 2)
	require.NoError(t, store.Close())

	b := batch(mem, schema, []int64{1}, []string{"a"})
	defer b.Release()
	err := store.AppendBatch(b)
	require.Error(t, err)
}

func TestCloseIsIdempotent(t *testing.T) {
	node := newStoreNode(t)
	store := colstore.NewStore(node, testSchema(), 2)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
