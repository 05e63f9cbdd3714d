package partition_test

import (
	"context"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/allocatortree"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/flush"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/partition"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/rowsource"
)

type fakeWriter struct {
	written []int64
}

func (w *fakeWriter) WriteRecord(rec arrow.RecordBatch) error {
	w.written = append(w.written, rec.NumRows())
	return nil
}

func testSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
	}, nil)
}

func idRow(id int64) rowsource.Row {
	return rowsource.NewMapRow([]string{"id"}, map[string]rowsource.Value{"id": rowsource.NewInt64(id)})
}

func setup(t *testing.T, batchSize, maxPartitions int) (*partition.Pool, *flush.Pipeline, *fakeWriter, func()) {
	t.Helper()
	schema := testSchema()
	root := allocatortree.NewRoot("root", allocatortree.Unbounded, memory.NewGoAllocator())
	base := root.NewChild("base", allocatortree.Unbounded)
	transmit := root.NewChild("transmit", allocatortree.Unbounded)
	w := &fakeWriter{}
	pipeline := flush.New(schema, w, nil)
	pool := partition.New(schema, batchSize, maxPartitions, base, transmit, &partition.TransferMutex{}, pipeline)

	ctx, cancel := context.WithCancel(context.Background())
	go pipeline.Run(ctx)

	return pool, pipeline, w, cancel
}

func TestConsumeFlushesOnFullBatch(t *testing.T) {
	pool, pipeline, w, cancel := setup(t, 2, 1)
	defer cancel()

	pool.Consume(idRow(1), 0)
	pool.Consume(idRow(2), 0)

	require.Eventually(t, func() bool { return len(w.written) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, int64(2), w.written[0])

	errored, err := pool.Errored()
	require.False(t, errored)
	require.NoError(t, err)

	pipeline.StopFeeding()
	<-pipeline.Done()
}

func TestConsumeRoutesByPartitionKeyModulo(t *testing.T) {
	pool, pipeline, w, cancel := setup(t, 1, 2)
	defer cancel()

	// partitionKey 0 and 2 both land in lane 0 (mod 2); each batch size 1
	// triggers an immediate flush.
	pool.Consume(idRow(1), 0)
	pool.Consume(idRow(2), 2)
	pool.Consume(idRow(3), -2)

	require.Eventually(t, func() bool { return len(w.written) == 3 }, time.Second, 5*time.Millisecond)

	pipeline.StopFeeding()
	<-pipeline.Done()
}

func TestFlushStragglersFlushesPartialLane(t *testing.T) {
	pool, pipeline, w, cancel := setup(t, 10, 1)
	defer cancel()

	pool.Consume(idRow(1), 0)
	require.Empty(t, w.written)

	require.NoError(t, pool.FlushStragglers())
	require.Eventually(t, func() bool { return len(w.written) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, int64(1), w.written[0])

	pipeline.StopFeeding()
	<-pipeline.Done()
}

func TestConsumeLatchesErrorOnMissingField(t *testing.T) {
	pool, pipeline, _, cancel := setup(t, 2, 1)
	defer cancel()

	badRow := rowsource.NewMapRow([]string{"other"}, map[string]rowsource.Value{"other": rowsource.NewInt64(1)})
	pool.Consume(badRow, 0)

	errored, err := pool.Errored()
	require.True(t, errored)
	require.Error(t, err)

	// further Consume calls are dropped silently once errored.
	pool.Consume(idRow(1), 0)

	pipeline.StopFeeding()
	<-pipeline.Done()
}

func TestCloseReleasesLanes(t *testing.T) {
	pool, pipeline, _, cancel := setup(t, 10, 1)
	defer cancel()

	pool.Consume(idRow(1), 0)
	pool.Close()

	pipeline.StopFeeding()
	<-pipeline.Done()
}
