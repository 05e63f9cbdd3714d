package neo4j_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/neo4j"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/rowsource"
)

func TestFromDriverValueScalarConversions(t *testing.T) {
	v, err := neo4j.FromDriverValue(rowsource.KindInt64, int64(42))
	require.NoError(t, err)
	n, err := v.AsInt64()
	require.NoError(t, err)
	require.Equal(t, int64(42), n)

	v, err = neo4j.FromDriverValue(rowsource.KindFloat64, float64(1.5))
	require.NoError(t, err)
	f, err := v.AsFloat64()
	require.NoError(t, err)
	require.Equal(t, 1.5, f)

	v, err = neo4j.FromDriverValue(rowsource.KindString, "hi")
	require.NoError(t, err)
	s, err := v.AsString()
	require.NoError(t, err)
	require.Equal(t, "hi", s)
}

func TestFromDriverValueNullIsPreserved(t *testing.T) {
	v, err := neo4j.FromDriverValue(rowsource.KindInt64, nil)
	require.NoError(t, err)
	require.True(t, v.IsNull())
}

func TestFromDriverValueRejectsKindMismatch(t *testing.T) {
	_, err := neo4j.FromDriverValue(rowsource.KindInt64, "not a number")
	require.Error(t, err)
}

func TestFromDriverValueListConversions(t *testing.T) {
	v, err := neo4j.FromDriverValue(rowsource.KindDoubleArray, []interface{}{1.0, 2.0, 3.0})
	require.NoError(t, err)
	arr, err := v.AsDoubleArray()
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3}, arr)

	_, err = neo4j.FromDriverValue(rowsource.KindList, []interface{}{"not-a-float"})
	require.Error(t, err)

	v, err = neo4j.FromDriverValue(rowsource.KindList, []interface{}{1.0, 2.0})
	require.NoError(t, err)
	elems, err := v.AsList()
	require.NoError(t, err)
	require.Len(t, elems, 2)
}

type fakeResultStream struct {
	rows []map[string]interface{}
	idx  int
	cur  map[string]interface{}
}

func (s *fakeResultStream) Next(ctx context.Context) bool {
	if s.idx >= len(s.rows) {
		return false
	}
	s.cur = s.rows[s.idx]
	s.idx++
	return true
}

func (s *fakeResultStream) Values() map[string]interface{} { return s.cur }
func (s *fakeResultStream) Err() error                      { return nil }
func (s *fakeResultStream) Close() error                    { return nil }

func TestStreamRowsEmitsEveryRowWithIncreasingKeys(t *testing.T) {
	stream := &fakeResultStream{rows: []map[string]interface{}{
		{"id": int64(1)},
		{"id": int64(2)},
	}}
	fields := []neo4j.FieldSpec{{Name: "id", Kind: rowsource.KindInt64}}

	var gotKeys []int
	var gotIDs []int64
	err := neo4j.StreamRows(context.Background(), stream, fields, func(row rowsource.Row, key int) {
		gotKeys = append(gotKeys, key)
		v, verr := row.GetByName("id")
		require.NoError(t, verr)
		id, verr := v.AsInt64()
		require.NoError(t, verr)
		gotIDs = append(gotIDs, id)
	})

	require.NoError(t, err)
	require.Equal(t, []int{0, 1}, gotKeys)
	require.Equal(t, []int64{1, 2}, gotIDs)
}

func TestDriverRowGetByNameMissingField(t *testing.T) {
	stream := &fakeResultStream{rows: []map[string]interface{}{{"id": int64(1)}}}
	fields := []neo4j.FieldSpec{{Name: "id", Kind: rowsource.KindInt64}}

	err := neo4j.StreamRows(context.Background(), stream, fields, func(row rowsource.Row, key int) {
		_, verr := row.GetByName("missing")
		require.Error(t, verr)
	})
	require.NoError(t, err)
}
