package action

import (
	"context"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/flighterrors"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/job"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/neo4j"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/rowsource"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/vector"
)

// cypherJob drives a single neo4j.ResultStream as a job.ReadJob, inferring
// its wire schema from the first row's raw values, per spec.md §4.8.
type cypherJob struct {
	*job.Job
	ticket job.Ticket
	stream neo4j.ResultStream

	fields []neo4j.FieldSpec
	schema *arrow.Schema

	firstValues map[string]interface{}
	firstDrawn  bool
}

func newCypherJob(stream neo4j.ResultStream) *cypherJob {
	return &cypherJob{
		Job:    job.NewJob(),
		ticket: job.NewTicket(),
		stream: stream,
	}
}

func (j *cypherJob) Ticket() job.Ticket { return j.ticket }

// Schema pulls the first row (if not already pulled), infers a Kind per
// column from its Go value type, and builds the wire schema. Subsequent
// calls are idempotent.
func (j *cypherJob) Schema() (*arrow.Schema, error) {
	if j.schema != nil {
		return j.schema, nil
	}
	if err := j.Job.Transition(job.Pending); err != nil {
		return nil, err
	}
	if !j.firstDrawn {
		ctx := context.Background()
		if !j.stream.Next(ctx) {
			if err := j.stream.Err(); err != nil {
				return nil, flighterrors.Wrap(err, flighterrors.ErrInternal, "action: cypherRead first row")
			}
			return nil, flighterrors.NotFound("action: query produced no rows to infer a schema from")
		}
		j.firstValues = j.stream.Values()
		j.firstDrawn = true
	}

	names := make([]string, 0, len(j.firstValues))
	for name := range j.firstValues {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]neo4j.FieldSpec, len(names))
	wireFields := make([]arrow.Field, len(names))
	for i, name := range names {
		kind, err := inferKind(j.firstValues[name])
		if err != nil {
			return nil, err
		}
		fields[i] = neo4j.FieldSpec{Name: name, Kind: kind}
		v, err := neo4j.FromDriverValue(kind, j.firstValues[name])
		if err != nil {
			return nil, err
		}
		wf, err := vector.FieldFor(name, v, true)
		if err != nil {
			return nil, err
		}
		wireFields[i] = wf
	}
	j.fields = fields
	j.schema = arrow.NewSchema(wireFields, nil)
	return j.schema, nil
}

// Consume drives the remaining rows (plus the already-drawn first row)
// into consumer, assigning each row a monotonically increasing partition
// key since Cypher results carry no inherent partition affinity.
func (j *cypherJob) Consume(consumer job.RowConsumer) error {
	if j.schema == nil {
		if _, err := j.Schema(); err != nil {
			return err
		}
	}
	if err := j.Job.Transition(job.Producing); err != nil {
		return err
	}

	key := 0
	emit := func(values map[string]interface{}) error {
		row, err := rowFor(j.fields, values)
		if err != nil {
			return err
		}
		consumer.Consume(row, key)
		key++
		return nil
	}

	if err := emit(j.firstValues); err != nil {
		j.Job.Fail(err)
		return err
	}

	ctx := context.Background()
	for j.stream.Next(ctx) {
		if err := emit(j.stream.Values()); err != nil {
			j.Job.Fail(err)
			return err
		}
	}
	if err := j.stream.Err(); err != nil {
		err = flighterrors.Wrap(err, flighterrors.ErrInternal, "action: cypherRead stream")
		j.Job.Fail(err)
		return err
	}
	return j.Job.Transition(job.Complete)
}

func (j *cypherJob) Cancel() {
	j.Job.Cancel()
	_ = j.stream.Close()
}

type simpleRow struct {
	fields []neo4j.FieldSpec
	values map[string]interface{}
}

func rowFor(fields []neo4j.FieldSpec, values map[string]interface{}) (rowsource.Row, error) {
	return &simpleRow{fields: fields, values: values}, nil
}

func (r *simpleRow) Keys() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

func (r *simpleRow) Get(i int) (rowsource.Value, error) {
	return r.GetByName(r.fields[i].Name)
}

func (r *simpleRow) GetByName(name string) (rowsource.Value, error) {
	for _, f := range r.fields {
		if f.Name == name {
			return neo4j.FromDriverValue(f.Kind, r.values[name])
		}
	}
	return rowsource.Value{}, flighterrors.InvalidArgument("action: no such projected field %q", name)
}

// inferKind guesses a Kind from a raw driver value's Go type. Bolt
// integers decode as int64 and floats as float64; we default integer
// columns to INT64 (INT32 is only produced when a handler knows the
// narrower type ahead of time).
func inferKind(v interface{}) (rowsource.Kind, error) {
	switch t := v.(type) {
	case int64:
		return rowsource.KindInt64, nil
	case float64:
		return rowsource.KindFloat64, nil
	case string:
		return rowsource.KindString, nil
	case []interface{}:
		return inferListKind(t)
	case nil:
		return rowsource.KindString, flighterrors.InvalidArgument("action: cannot infer a type for an all-null first-row column")
	default:
		return 0, flighterrors.InvalidArgument("action: cannot infer a wire type for %T", v)
	}
}

func inferListKind(elems []interface{}) (rowsource.Kind, error) {
	if len(elems) == 0 {
		return rowsource.KindList, nil
	}
	switch elems[0].(type) {
	case float64:
		return rowsource.KindList, nil
	default:
		return 0, flighterrors.InvalidArgument("action: unsupported list element type %T", elems[0])
	}
}
