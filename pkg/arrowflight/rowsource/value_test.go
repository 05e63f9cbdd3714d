package rowsource_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/rowsource"
)

func TestInt64WidensFromInt32(t *testing.T) {
	v := rowsource.NewInt32(7)
	n, err := v.AsInt64()
	require.NoError(t, err)
	require.Equal(t, int64(7), n)
}

func TestConversionFailsOnKindMismatch(t *testing.T) {
	v := rowsource.NewString("x")
	_, err := v.AsInt64()
	require.Error(t, err)
}

func TestNullValueIsNull(t *testing.T) {
	v := rowsource.NewNull(rowsource.KindFloat64)
	require.True(t, v.IsNull())
	require.Equal(t, rowsource.KindFloat64, v.Kind())
}

func TestArrayArity(t *testing.T) {
	v := rowsource.NewDoubleArray([]float64{1, 2, 3})
	require.Equal(t, 3, v.Arity())
	out, err := v.AsDoubleArray()
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3}, out)
}

func TestMapRowOrdinalAndName(t *testing.T) {
	row := rowsource.NewMapRow([]string{"a", "b"}, map[string]rowsource.Value{
		"a": rowsource.NewInt64(1),
		"b": rowsource.NewString("two"),
	})

	v, err := row.Get(1)
	require.NoError(t, err)
	s, err := v.AsString()
	require.NoError(t, err)
	require.Equal(t, "two", s)

	_, err = row.GetByName("missing")
	require.Error(t, err)

	_, err = row.Get(5)
	require.Error(t, err)
}
