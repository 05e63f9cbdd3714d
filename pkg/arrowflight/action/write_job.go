package action

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/colstore"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/flighterrors"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/job"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/neo4j"
)

// WriteJob commits a colstore.Store, built by the producer from a
// client's acceptPut stream, to a neo4j.GraphSink, implementing
// job.WriteJob.
type WriteJob struct {
	*job.Job
	ticket job.Ticket
	sink   neo4j.GraphSink
	label  string
	schema *arrow.Schema
	done   chan error
}

func newWriteJob(sink neo4j.GraphSink, label string, schema *arrow.Schema, batchSize int) *WriteJob {
	return &WriteJob{
		Job:    job.NewJob(),
		ticket: job.NewTicket(),
		sink:   sink,
		label:  label,
		schema: schema,
		done:   make(chan error, 1),
	}
}

func (w *WriteJob) Ticket() job.Ticket    { return w.ticket }
func (w *WriteJob) Schema() *arrow.Schema { return w.schema }

// SetSchema records the schema observed from the client's first uploaded
// record batch, when the job was created without one known in advance.
func (w *WriteJob) SetSchema(schema *arrow.Schema) { w.schema = schema }

// Completion signals the commit outcome once Commit has run.
func (w *WriteJob) Completion() <-chan error { return w.done }

// Commit writes store to the sink and reports the outcome on Completion,
// per spec.md §9's write-path resolution.
func (w *WriteJob) Commit(ctx context.Context, store *colstore.Store) {
	if err := w.Job.Transition(job.Producing); err != nil {
		w.done <- err
		return
	}
	if _, err := w.sink.WriteNodes(ctx, w.label, store); err != nil {
		err = flighterrors.Wrap(err, flighterrors.ErrInternal, "action: gds.write.nodes commit")
		w.Job.Fail(err)
		w.done <- err
		return
	}
	_ = w.Job.Transition(job.Complete)
	w.done <- nil
}
