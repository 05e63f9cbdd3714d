package flush_test

import (
	"context"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/flush"
)

type fakeWriter struct {
	mu       chan struct{}
	written  []int64
	failWith error
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{mu: make(chan struct{}, 1)}
}

func (w *fakeWriter) WriteRecord(rec arrow.RecordBatch) error {
	if w.failWith != nil {
		return w.failWith
	}
	w.written = append(w.written, rec.NumRows())
	return nil
}

func testSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
	}, nil)
}

func idColumn(mem memory.Allocator, vals []int64) arrow.Array {
	b := array.NewInt64Builder(mem)
	defer b.Release()
	for _, v := range vals {
		b.Append(v)
	}
	return b.NewInt64Array()
}

func TestPipelineDrainsQueueAndStops(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := testSchema()
	w := newFakeWriter()
	p := flush.New(schema, w, nil)

	p.Enqueue(&flush.Work{Vectors: []arrow.Array{idColumn(mem, []int64{1, 2})}, RowCount: 2})
	p.Enqueue(&flush.Work{Vectors: []arrow.Array{idColumn(mem, []int64{3})}, RowCount: 1})
	p.StopFeeding()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p.Run(ctx)

	select {
	case <-p.Done():
	default:
		t.Fatal("expected pipeline to be done after Run returns")
	}

	require.NoError(t, p.Err())
	require.Equal(t, []int64{2, 1}, w.written)
}

func TestPipelineLatchesFirstError(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := testSchema()
	w := newFakeWriter()
	w.failWith = errBoom{}
	p := flush.New(schema, w, nil)

	p.Enqueue(&flush.Work{Vectors: []arrow.Array{idColumn(mem, []int64{1})}, RowCount: 1})
	p.StopFeeding()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p.Run(ctx)

	require.Error(t, p.Err())
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func TestPipelineCancelledByContext(t *testing.T) {
	schema := testSchema()
	w := newFakeWriter()
	p := flush.New(schema, w, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Run(ctx)

	require.Error(t, p.Err())
}
