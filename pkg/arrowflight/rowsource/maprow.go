package rowsource

import "github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/flighterrors"

// MapRow is a simple Row backed by an ordered key slice and a value map,
// used by tests.
type MapRow struct {
	keys   []string
	values map[string]Value
}

// NewMapRow builds a MapRow. keys defines both field order and identity;
// values must contain an entry for every key.
func NewMapRow(keys []string, values map[string]Value) *MapRow {
	return &MapRow{keys: keys, values: values}
}

func (r *MapRow) Keys() []string { return r.keys }

func (r *MapRow) Get(i int) (Value, error) {
	if i < 0 || i >= len(r.keys) {
		return Value{}, flighterrors.InvalidArgument("rowsource: ordinal %d out of range [0,%d)", i, len(r.keys))
	}
	return r.GetByName(r.keys[i])
}

func (r *MapRow) GetByName(name string) (Value, error) {
	v, ok := r.values[name]
	if !ok {
		return Value{}, flighterrors.InvalidArgument("rowsource: no field %q", name)
	}
	return v, nil
}
