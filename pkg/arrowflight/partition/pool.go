// Package partition implements the fixed-arity partitioned builder pool:
// one set of per-field column builders per partition lane, each guarded
// by its own mutex, flushing a full batch into the shared flush pipeline,
// per spec.md §4.5.
package partition

import (
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/cockroachdb/errors"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/allocatortree"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/flighterrors"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/flush"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/rowsource"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/vector"
)

const allocateRetryAttempts = 1000
const allocateRetrySleep = time.Millisecond

// TransferMutex serializes cross-partition transfers into the flush
// pipeline so the wire order of batches equals the order in which a
// producing goroutine held this lock, per spec.md §4.6's ordering
// guarantee.
type TransferMutex struct {
	mu sync.Mutex
}

func (t *TransferMutex) Lock()   { t.mu.Lock() }
func (t *TransferMutex) Unlock() { t.mu.Unlock() }

// lane is one partition's staged builders and bookkeeping.
type lane struct {
	mu       sync.Mutex
	node     *allocatortree.Node
	builders []vector.Builder
	idx      int
}

// Pool is the fixed-arity (P) set of per-partition builder lanes feeding
// one flush pipeline.
type Pool struct {
	schema    *arrow.Schema
	batchSize int
	base      *allocatortree.Node
	transmit  *allocatortree.Node
	transfer  *TransferMutex
	pipeline  *flush.Pipeline

	lanes []*lane

	erroredMu sync.Mutex
	errored   bool
	firstErr  error
}

// New creates a Pool of arity maxPartitions. base is the allocator
// children's parent for per-partition builders; transmit is the node
// flushed snapshots are attributed to; transfer is shared across every
// concurrent consumer of the same stream.
func New(schema *arrow.Schema, batchSize, maxPartitions int, base, transmit *allocatortree.Node, transfer *TransferMutex, pipeline *flush.Pipeline) *Pool {
	p := &Pool{
		schema:    schema,
		batchSize: batchSize,
		base:      base,
		transmit:  transmit,
		transfer:  transfer,
		pipeline:  pipeline,
		lanes:     make([]*lane, maxPartitions),
	}
	for i := range p.lanes {
		p.lanes[i] = &lane{}
	}
	return p
}

// Errored reports whether the one-shot error latch has tripped, and the
// error that tripped it.
func (p *Pool) Errored() (bool, error) {
	p.erroredMu.Lock()
	defer p.erroredMu.Unlock()
	return p.errored, p.firstErr
}

func (p *Pool) latch(err error) {
	p.erroredMu.Lock()
	defer p.erroredMu.Unlock()
	if !p.errored {
		p.errored = true
		p.firstErr = err
	}
}

// Consume writes row into the lane for partitionKey mod len(lanes),
// flushing the lane if it fills. Any error trips the one-shot error latch
// and cancels further writes; subsequent calls are dropped silently once
// errored, per spec.md §4.5's error policy.
func (p *Pool) Consume(row rowsource.Row, partitionKey int) {
	if errored, _ := p.Errored(); errored {
		return
	}
	idx := partitionKey % len(p.lanes)
	if idx < 0 {
		idx += len(p.lanes)
	}
	l := p.lanes[idx]

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.idx == 0 {
		if err := p.ensureBuilders(l); err != nil {
			p.latch(err)
			return
		}
	}

	for i, field := range p.schema.Fields() {
		v, err := row.GetByName(field.Name)
		if err != nil {
			p.latch(err)
			return
		}
		if err := l.builders[i].SetSafe(l.idx, v); err != nil {
			p.latch(err)
			return
		}
	}
	l.idx++

	if l.idx == p.batchSize {
		if err := p.flushLane(l); err != nil {
			p.latch(err)
			return
		}
	}
}

// ensureBuilders allocates this lane's per-field builders, retrying a
// transient allocator failure up to allocateRetryAttempts times before
// failing with OutOfMemory, per spec.md §4.5 step 1.
func (p *Pool) ensureBuilders(l *lane) error {
	if l.builders != nil {
		return nil
	}
	if l.node == nil {
		l.node = p.base.NewChild("", allocatortree.Unbounded)
	}
	var err error
	for attempt := 0; attempt < allocateRetryAttempts; attempt++ {
		l.builders, err = buildersFor(l.node, p.schema, p.batchSize)
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		time.Sleep(allocateRetrySleep)
	}
	return flighterrors.OutOfMemory("partition: exhausted %d allocation retries: %v", allocateRetryAttempts, err)
}

func isTransient(err error) bool {
	return errors.Is(err, flighterrors.ErrOutOfMemory)
}

func buildersFor(node *allocatortree.Node, schema *arrow.Schema, batchSize int) ([]vector.Builder, error) {
	out := make([]vector.Builder, len(schema.Fields()))
	for i, field := range schema.Fields() {
		kind, stride, err := vector.KindForField(field)
		if err != nil {
			return nil, err
		}
		b, err := builderFor(node, field, kind, stride, batchSize)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func builderFor(node *allocatortree.Node, field arrow.Field, kind rowsource.Kind, stride, initialCapacity int) (vector.Builder, error) {
	switch kind {
	case rowsource.KindInt32:
		return vector.NewInt32Builder(node, field, initialCapacity), nil
	case rowsource.KindInt64:
		return vector.NewInt64Builder(node, field, initialCapacity), nil
	case rowsource.KindFloat32:
		return vector.NewFloat32Builder(node, field, initialCapacity), nil
	case rowsource.KindFloat64:
		return vector.NewFloat64Builder(node, field, initialCapacity), nil
	case rowsource.KindString:
		return vector.NewStringBuilder(node, field, initialCapacity), nil
	case rowsource.KindIntArray, rowsource.KindLongArray, rowsource.KindFloatArray, rowsource.KindDoubleArray:
		elem := elemKindFor(kind)
		return vector.NewFixedSizeListBuilder(node, field, stride, elem, initialCapacity)
	case rowsource.KindList:
		return vector.NewListBuilder(node, field, initialCapacity), nil
	default:
		return nil, flighterrors.InvalidArgument("partition: unsupported field kind %s", kind)
	}
}

func elemKindFor(arrayKind rowsource.Kind) rowsource.Kind {
	switch arrayKind {
	case rowsource.KindIntArray:
		return rowsource.KindInt32
	case rowsource.KindLongArray:
		return rowsource.KindInt64
	case rowsource.KindFloatArray:
		return rowsource.KindFloat32
	case rowsource.KindDoubleArray:
		return rowsource.KindFloat64
	default:
		return arrayKind
	}
}

// flushLane snapshots l's builders into the transmit allocator and
// enqueues them as a flush.Work item, then resets the lane. Must be
// called with l.mu held.
func (p *Pool) flushLane(l *lane) error {
	p.transfer.Lock()
	defer p.transfer.Unlock()

	n := l.idx
	vectors := make([]arrow.Array, len(l.builders))
	for i, b := range l.builders {
		b.SetValueCount(n)
		arr, err := b.TransferTo(p.transmit)
		if err != nil {
			for _, done := range vectors[:i] {
				if done != nil {
					done.Release()
				}
			}
			return err
		}
		vectors[i] = arr
	}
	p.pipeline.Enqueue(&flush.Work{Vectors: vectors, RowCount: n})

	l.idx = 0
	for _, b := range l.builders {
		b.Clear()
	}
	return nil
}

// FlushStragglers flushes every lane with outstanding rows, called once
// the job has completed and no further Consume calls will arrive.
func (p *Pool) FlushStragglers() error {
	for _, l := range p.lanes {
		l.mu.Lock()
		if l.idx > 0 {
			if err := p.flushLane(l); err != nil {
				l.mu.Unlock()
				return err
			}
		}
		l.mu.Unlock()
	}
	return nil
}

// Close releases every lane's builders and allocator node.
func (p *Pool) Close() {
	for _, l := range p.lanes {
		l.mu.Lock()
		for _, b := range l.builders {
			b.Close()
		}
		l.builders = nil
		if l.node != nil {
			_ = l.node.Close()
		}
		l.mu.Unlock()
	}
}
