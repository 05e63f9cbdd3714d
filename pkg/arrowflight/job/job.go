// Package job implements the Flight job lifecycle: tickets, flight info,
// and the read/write job state machine, per spec.md §4.2 and §5.
package job

import (
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/google/uuid"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/flighterrors"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/metrics"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/rowsource"
)

// State is one of the job lifecycle states, transitioning only forward
// except into ERROR or CANCELLED, which are terminal from any state.
type State int

const (
	Initializing State = iota
	Pending
	Producing
	Complete
	Error
	Cancelled
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "INITIALIZING"
	case Pending:
		return "PENDING"
	case Producing:
		return "PRODUCING"
	case Complete:
		return "COMPLETE"
	case Error:
		return "ERROR"
	case Cancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

func (s State) terminal() bool {
	return s == Complete || s == Error || s == Cancelled
}

// Ticket is the 16-byte opaque handle minted for a job and returned to
// Flight clients via FlightInfo/FlightEndpoint.
type Ticket [16]byte

// NewTicket mints a fresh random ticket.
func NewTicket() Ticket {
	return Ticket(uuid.New())
}

func (t Ticket) String() string {
	return uuid.UUID(t).String()
}

func (t Ticket) Bytes() []byte {
	return t[:]
}

// ParseTicket decodes a wire ticket payload back into a Ticket.
func ParseTicket(b []byte) (Ticket, error) {
	id, err := uuid.FromBytes(b)
	if err != nil {
		return Ticket{}, flighterrors.InvalidArgument("job: malformed ticket: %v", err)
	}
	return Ticket(id), nil
}

// FlightInfo is the descriptor/schema/endpoint tuple published for a job,
// matching Arrow Flight's FlightInfo semantics.
type FlightInfo struct {
	Ticket   Ticket
	Schema   *arrow.Schema
	Total    int64 // -1 when unknown, per Flight convention
	Location string
}

// Job is the shared state machine both read and write jobs embed.
type Job struct {
	mu    sync.Mutex
	state State
	err   error
}

// NewJob creates a job in the Initializing state.
func NewJob() *Job {
	metrics.JobsByState.WithLabelValues(Initializing.String()).Inc()
	return &Job{state: Initializing}
}

func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Transition moves the job to next, refusing to move backward and to
// leave a terminal state except idempotently (transitioning to the same
// terminal state again is a no-op), per spec.md §5's forward-only
// lifecycle.
func (j *Job) Transition(next State) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.terminal() {
		if next == j.state {
			return nil
		}
		return flighterrors.InvalidArgument("job: cannot leave terminal state %s for %s", j.state, next)
	}
	if next < j.state {
		return flighterrors.InvalidArgument("job: cannot move backward from %s to %s", j.state, next)
	}
	metrics.JobsByState.WithLabelValues(j.state.String()).Dec()
	metrics.JobsByState.WithLabelValues(next.String()).Inc()
	j.state = next
	return nil
}

// Fail latches err and transitions to Error. Idempotent: only the first
// error is retained.
func (j *Job) Fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.terminal() {
		return
	}
	metrics.JobsByState.WithLabelValues(j.state.String()).Dec()
	metrics.JobsByState.WithLabelValues(Error.String()).Inc()
	j.err = err
	j.state = Error
}

// Cancel transitions to Cancelled, refusing only if already terminal.
func (j *Job) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.terminal() {
		return
	}
	metrics.JobsByState.WithLabelValues(j.state.String()).Dec()
	metrics.JobsByState.WithLabelValues(Cancelled.String()).Inc()
	j.state = Cancelled
}

// RowConsumer receives rows produced by a ReadJob's underlying source,
// matching the signature of a partition.Pool.
type RowConsumer interface {
	Consume(row rowsource.Row, partitionKey int)
}

// ReadJob is the contract a cypherRead/gdsNodeProperties/gdsRelProperties
// action implements: produce a first record (to establish the schema),
// then drive a consumer with the remaining rows.
type ReadJob interface {
	Ticket() Ticket
	Schema() (*arrow.Schema, error)
	Consume(consumer RowConsumer) error
	State() State
	Err() error
	Cancel()
}

// WriteJob is the contract a gds.write.nodes-style action implements: it
// receives the column store assembled from the client's uploaded record
// batches, hands it to its GraphSink, and reports the outcome on
// Completion.
type WriteJob interface {
	Ticket() Ticket
	Schema() *arrow.Schema
	Completion() <-chan error
	State() State
	Cancel()
}
