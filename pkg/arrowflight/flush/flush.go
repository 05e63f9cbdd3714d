// Package flush implements the single-consumer pipeline that turns built
// partition batches into wire record batches, per spec.md §4.6.
package flush

import (
	"context"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/sirupsen/logrus"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/flighterrors"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/metrics"
)

// Work is a snapshot of one partition's built chunks, transferred into the
// transmit allocator, with the row count to emit. Ownership passes from
// the producer to the pipeline on Enqueue.
type Work struct {
	Vectors  []arrow.Array
	RowCount int
}

// Writer is the narrow interface the pipeline needs from a Flight stream:
// load a record batch and push it to the client, LZ4-compressed.
type Writer interface {
	WriteRecord(rec arrow.RecordBatch) error
}

// Pipeline drains a queue of Work items on a single goroutine and writes
// each as one wire record batch, in enqueue order. The queue has no
// capacity limit: Enqueue never blocks, so producers get no back-pressure
// from it.
type Pipeline struct {
	schema *arrow.Schema
	writer Writer
	log    *logrus.Entry

	mu       sync.Mutex
	queue    []*Work
	feeding  bool
	errOnce  sync.Once
	firstErr error
	done     chan struct{}
}

// New creates a pipeline for schema, writing through w.
func New(schema *arrow.Schema, w Writer, log *logrus.Entry) *Pipeline {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Pipeline{
		schema:  schema,
		writer:  w,
		log:     log,
		feeding: true,
		done:    make(chan struct{}),
	}
}

// Enqueue pushes a Work item onto the pipeline's queue. Safe to call
// concurrently with Run; callers serialize cross-partition enqueues via
// their own transfer mutex, per spec.md §4.5/§4.6.
func (p *Pipeline) Enqueue(w *Work) {
	p.mu.Lock()
	p.queue = append(p.queue, w)
	p.mu.Unlock()
}

// StopFeeding marks that no further Work will be enqueued; Run drains the
// remaining queue then returns.
func (p *Pipeline) StopFeeding() {
	p.mu.Lock()
	p.feeding = false
	p.mu.Unlock()
}

// Err returns the first error observed during serialization, if any.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.firstErr
}

// Run drains the queue until StopFeeding has been called and the queue is
// empty, polling every second when idle. It closes the Done channel on
// return, whether draining completed cleanly or an error was latched.
func (p *Pipeline) Run(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		work, ok := p.dequeue()
		if ok {
			if err := p.process(work); err != nil {
				p.latch(err)
				return
			}
			continue
		}
		if p.exhausted() {
			return
		}
		select {
		case <-ctx.Done():
			p.latch(flighterrors.Cancelled("flush: pipeline cancelled"))
			return
		case <-ticker.C:
		}
	}
}

// Done signals when Run has returned.
func (p *Pipeline) Done() <-chan struct{} { return p.done }

func (p *Pipeline) dequeue() (*Work, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return nil, false
	}
	w := p.queue[0]
	p.queue = p.queue[1:]
	return w, true
}

func (p *Pipeline) exhausted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.feeding && len(p.queue) == 0
}

func (p *Pipeline) latch(err error) {
	p.errOnce.Do(func() {
		p.mu.Lock()
		p.firstErr = err
		p.mu.Unlock()
		metrics.FlushErrors.Inc()
	})
}

// process builds and writes one wire record batch from work, closing
// every vector in the snapshot afterward regardless of outcome.
func (p *Pipeline) process(work *Work) error {
	defer func() {
		for _, v := range work.Vectors {
			v.Release()
		}
	}()

	cols := make([]arrow.Array, len(work.Vectors))
	copy(cols, work.Vectors)

	rec := array.NewRecordBatch(p.schema, cols, int64(work.RowCount))
	defer rec.Release()

	if err := p.writer.WriteRecord(rec); err != nil {
		return flighterrors.Wrap(err, flighterrors.ErrInternal, "flush: write record batch")
	}
	metrics.FlushedBatches.Inc()
	metrics.FlushedRows.Add(float64(work.RowCount))
	p.log.WithFields(logrus.Fields{"rows": work.RowCount}).Debug("flushed record batch")
	return nil
}

// FlightRecordWriter is the narrow contract a *flight.Writer (the
// IPC-over-Flight record writer returned by flight.NewRecordWriter)
// satisfies.
type FlightRecordWriter interface {
	Write(rec arrow.RecordBatch) error
}

// IPCWriter adapts a FlightRecordWriter, configured with LZ4 frame body
// compression at construction (see flight.NewRecordWriter's
// ipc.WithCompressCodec option), to the flush pipeline's Writer
// interface, per spec.md §6.
type IPCWriter struct {
	w FlightRecordWriter
}

// NewIPCWriter wraps w for the flush pipeline.
func NewIPCWriter(w FlightRecordWriter) *IPCWriter {
	return &IPCWriter{w: w}
}

func (i *IPCWriter) WriteRecord(rec arrow.RecordBatch) error {
	return i.w.Write(rec)
}
