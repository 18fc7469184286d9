package record

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testSchema(t *testing.T) Schema {
	t.Helper()
	s, err := NewSchema([]Attr{
		{Name: "a", Type: AttrInt},
		{Name: "b", Type: AttrString, Length: 8},
		{Name: "c", Type: AttrFloat},
	})
	require.NoError(t, err)
	return s
}

func TestEncodeDecodeTuple_RoundTrip(t *testing.T) {
	s := testSchema(t)
	require.Equal(t, 4+8+4, s.TupleLength())

	buf, err := EncodeTuple(s, []any{int32(42), "hi", float32(3.5)})
	require.NoError(t, err)
	require.Len(t, buf, s.TupleLength())

	values, err := DecodeTuple(s, buf)
	require.NoError(t, err)
	require.Equal(t, int32(42), values[0])
	require.Equal(t, "hi", values[1])
	require.Equal(t, float32(3.5), values[2])
}

func TestEncodeTuple_StringTooLong(t *testing.T) {
	s := testSchema(t)
	_, err := EncodeTuple(s, []any{int32(1), "waytoolongforeight", float32(0)})
	require.Error(t, err)
}

func TestCompareField_IntAndString(t *testing.T) {
	s := testSchema(t)
	aAttr := s.Attrs[0]
	one, err := FieldBytes(aAttr, int32(1))
	require.NoError(t, err)
	two, err := FieldBytes(aAttr, int32(2))
	require.NoError(t, err)
	require.Equal(t, -1, CompareField(aAttr, one, two))
	require.Equal(t, 1, CompareField(aAttr, two, one))
	require.Equal(t, 0, CompareField(aAttr, one, one))

	bAttr := s.Attrs[1]
	x, err := FieldBytes(bAttr, "x")
	require.NoError(t, err)
	xx, err := FieldBytes(bAttr, "xx")
	require.NoError(t, err)
	require.Equal(t, -1, CompareField(bAttr, x, xx))
}

func TestSatisfies_Operators(t *testing.T) {
	s := testSchema(t)
	aAttr := s.Attrs[0]
	field, _ := FieldBytes(aAttr, int32(5))
	value, _ := FieldBytes(aAttr, int32(5))

	require.True(t, Satisfies(aAttr, EqOp, field, value))
	require.False(t, Satisfies(aAttr, NeOp, field, value))
	require.True(t, Satisfies(aAttr, LeOp, field, value))
	require.True(t, Satisfies(aAttr, GeOp, field, value))
	require.True(t, Satisfies(aAttr, NoOp, field, value))
}
