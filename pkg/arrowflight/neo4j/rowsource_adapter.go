package neo4j

import (
	"context"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/flighterrors"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/rowsource"
)

func rowNotFound(name string) error {
	return flighterrors.InvalidArgument("neo4j: no such field %q in projection", name)
}

// FieldSpec names one projected field and the Kind its values decode to.
// Schema inference (spec.md §4.8) derives these from the first returned
// row, but a caller invoking a GDS procedure with a known result shape
// may supply them up front instead.
type FieldSpec struct {
	Name string
	Kind rowsource.Kind
}

// driverRow adapts one Bolt record, keyed by field name, into a
// rowsource.Row using the query's FieldSpec order.
type driverRow struct {
	fields []FieldSpec
	values map[string]interface{}
}

func (r *driverRow) Keys() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

func (r *driverRow) Get(i int) (rowsource.Value, error) {
	return r.GetByName(r.fields[i].Name)
}

func (r *driverRow) GetByName(name string) (rowsource.Value, error) {
	for _, f := range r.fields {
		if f.Name == name {
			return FromDriverValue(f.Kind, r.values[name])
		}
	}
	return rowsource.Value{}, rowNotFound(name)
}

// StreamRows pulls every row from stream, converts it via fields, and
// hands it to emit along with a monotonically increasing partition key
// (the row's ordinal), matching the round-robin key spec.md §4.5 assumes
// when no natural partition key exists in the query result.
func StreamRows(ctx context.Context, stream ResultStream, fields []FieldSpec, emit func(rowsource.Row, int)) error {
	key := 0
	for stream.Next(ctx) {
		row := &driverRow{fields: fields, values: stream.Values()}
		emit(row, key)
		key++
	}
	return stream.Err()
}
