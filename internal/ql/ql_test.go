package ql

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ntmai/redbase/internal/astshim"
	"github.com/ntmai/redbase/internal/ix"
	"github.com/ntmai/redbase/internal/pf"
	"github.com/ntmai/redbase/internal/record"
	"github.com/ntmai/redbase/internal/sm"
)

func newTestDB(t *testing.T) *sm.Manager {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "db")
	pfm := pf.NewManager(32)
	m, err := sm.CreateDB(pfm, dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func studentsTable() []astshim.AttrInfo {
	return []astshim.AttrInfo{
		{AttrName: "id", Type: record.AttrInt},
		{AttrName: "name", Type: record.AttrString, Length: 20},
		{AttrName: "gpa", Type: record.AttrFloat},
	}
}

func eqCond(attr string, v astshim.Value) astshim.Condition {
	return astshim.Condition{LHS: astshim.RelAttr{AttrName: attr}, Op: record.EqOp, RHSValue: v}
}

func intVal(i int32) astshim.Value {
	b, _ := record.FieldBytes(record.Attr{Type: record.AttrInt, Length: 4}, i)
	return astshim.Value{Type: record.AttrInt, Bytes: b}
}

func drainAll(t *testing.T, op Op) []Tuple {
	t.Helper()
	require.NoError(t, op.Open())
	defer op.Close()
	var out []Tuple
	for {
		tup, err := op.Next()
		if err != nil {
			require.ErrorIs(t, err, ErrEOF)
			break
		}
		out = append(out, tup)
	}
	return out
}

func TestInsertThenFileScan(t *testing.T) {
	m := newTestDB(t)
	require.NoError(t, m.CreateTable("students", studentsTable()))

	_, err := Insert(m, "students", []any{int32(1), "ada", float32(4.0)})
	require.NoError(t, err)
	_, err = Insert(m, "students", []any{int32(2), "grace", float32(3.8)})
	require.NoError(t, err)

	schema, err := m.GetSchema("students")
	require.NoError(t, err)
	rel, err := m.OpenRelation("students")
	require.NoError(t, err)
	defer rel.Close()

	op := NewFileScanOp("students", rel, schema, record.Attr{}, record.NoOp, nil)
	tuples := drainAll(t, op)
	require.Len(t, tuples, 2)
}

func TestIndexScanOrdering(t *testing.T) {
	m := newTestDB(t)
	require.NoError(t, m.CreateTable("students", studentsTable()))
	require.NoError(t, m.CreateIndex("students", "id"))

	for _, id := range []int32{3, 1, 2} {
		_, err := Insert(m, "students", []any{id, "x", float32(0)})
		require.NoError(t, err)
	}

	schema, err := m.GetSchema("students")
	require.NoError(t, err)
	rel, err := m.OpenRelation("students")
	require.NoError(t, err)
	defer rel.Close()
	tree, err := m.OpenIndex("students", "id")
	require.NoError(t, err)
	defer tree.Close()

	op := NewIndexScanOp("students", "id", tree, rel, schema, record.NoOp, nil)
	tuples := drainAll(t, op)
	require.Len(t, tuples, 3)
	var got []int32
	for _, tup := range tuples {
		values, err := record.DecodeTuple(schema, tup.Bytes)
		require.NoError(t, err)
		got = append(got, values[0].(int32))
	}
	require.Equal(t, []int32{1, 2, 3}, got)
}

func TestFilterOp(t *testing.T) {
	m := newTestDB(t)
	require.NoError(t, m.CreateTable("students", studentsTable()))
	_, err := Insert(m, "students", []any{int32(1), "ada", float32(4.0)})
	require.NoError(t, err)
	_, err = Insert(m, "students", []any{int32(2), "grace", float32(3.8)})
	require.NoError(t, err)

	schema, err := m.GetSchema("students")
	require.NoError(t, err)
	rel, err := m.OpenRelation("students")
	require.NoError(t, err)
	defer rel.Close()

	scan := NewFileScanOp("students", rel, schema, record.Attr{}, record.NoOp, nil)
	filter, err := NewFilterOp(scan, eqCond("id", intVal(2)))
	require.NoError(t, err)
	tuples := drainAll(t, filter)
	require.Len(t, tuples, 1)
}

func TestProjectOp(t *testing.T) {
	m := newTestDB(t)
	require.NoError(t, m.CreateTable("students", studentsTable()))
	_, err := Insert(m, "students", []any{int32(1), "ada", float32(4.0)})
	require.NoError(t, err)

	schema, err := m.GetSchema("students")
	require.NoError(t, err)
	rel, err := m.OpenRelation("students")
	require.NoError(t, err)
	defer rel.Close()

	scan := NewFileScanOp("students", rel, schema, record.Attr{}, record.NoOp, nil)
	proj, err := NewProjectOp(scan, []string{"name"})
	require.NoError(t, err)
	tuples := drainAll(t, proj)
	require.Len(t, tuples, 1)
	require.Len(t, proj.Schema().Attrs, 1)
}

func TestDeleteUnderIndex(t *testing.T) {
	m := newTestDB(t)
	require.NoError(t, m.CreateTable("students", studentsTable()))
	require.NoError(t, m.CreateIndex("students", "id"))
	for _, id := range []int32{1, 2, 3} {
		_, err := Insert(m, "students", []any{id, "x", float32(0)})
		require.NoError(t, err)
	}

	n, err := Delete(m, "students", []astshim.Condition{eqCond("id", intVal(2))})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	schema, err := m.GetSchema("students")
	require.NoError(t, err)
	rel, err := m.OpenRelation("students")
	require.NoError(t, err)
	defer rel.Close()
	op := NewFileScanOp("students", rel, schema, record.Attr{}, record.NoOp, nil)
	tuples := drainAll(t, op)
	require.Len(t, tuples, 2)

	tree, err := m.OpenIndex("students", "id")
	require.NoError(t, err)
	defer tree.Close()
	key, err := record.FieldBytes(schema.Attrs[0], int32(2))
	require.NoError(t, err)
	got, err := tree.Get(key)
	require.ErrorIs(t, err, ix.ErrKeyNotFound)
	require.Len(t, got, 0)
}

func TestUpdateReshufflesIndex(t *testing.T) {
	m := newTestDB(t)
	require.NoError(t, m.CreateTable("students", studentsTable()))
	require.NoError(t, m.CreateIndex("students", "id"))
	rid1, err := Insert(m, "students", []any{int32(1), "ada", float32(4.0)})
	require.NoError(t, err)

	set := astshim.SetClause{Attr: astshim.RelAttr{AttrName: "id"}, RHSValue: intVal(9)}
	n, err := Update(m, "students", set, []astshim.Condition{eqCond("id", intVal(1))})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	schema, err := m.GetSchema("students")
	require.NoError(t, err)
	tree, err := m.OpenIndex("students", "id")
	require.NoError(t, err)
	defer tree.Close()

	oldKey, err := record.FieldBytes(schema.Attrs[0], int32(1))
	require.NoError(t, err)
	got, err := tree.Get(oldKey)
	require.ErrorIs(t, err, ix.ErrKeyNotFound)
	require.Len(t, got, 0)

	newKey, err := record.FieldBytes(schema.Attrs[0], int32(9))
	require.NoError(t, err)
	got, err = tree.Get(newKey)
	require.NoError(t, err)
	require.Equal(t, rid1, got[0])
}

func TestCrossProductAndJoin(t *testing.T) {
	m := newTestDB(t)
	require.NoError(t, m.CreateTable("students", studentsTable()))
	_, err := Insert(m, "students", []any{int32(1), "ada", float32(4.0)})
	require.NoError(t, err)

	courses := []astshim.AttrInfo{
		{AttrName: "sid", Type: record.AttrInt},
		{AttrName: "course", Type: record.AttrString, Length: 10},
	}
	require.NoError(t, m.CreateTable("enrolled", courses))
	_, err = Insert(m, "enrolled", []any{int32(1), "cs101"})
	require.NoError(t, err)
	_, err = Insert(m, "enrolled", []any{int32(2), "cs102"})
	require.NoError(t, err)

	sschema, err := m.GetSchema("students")
	require.NoError(t, err)
	srel, err := m.OpenRelation("students")
	require.NoError(t, err)
	defer srel.Close()
	cschema, err := m.GetSchema("enrolled")
	require.NoError(t, err)
	crel, err := m.OpenRelation("enrolled")
	require.NoError(t, err)
	defer crel.Close()

	left := NewFileScanOp("students", srel, sschema, record.Attr{}, record.NoOp, nil)
	right := NewFileScanOp("enrolled", crel, cschema, record.Attr{}, record.NoOp, nil)
	cross := NewCrossProductOp(left, right)
	tuples := drainAll(t, cross)
	require.Len(t, tuples, 2)

	left2 := NewFileScanOp("students", srel, sschema, record.Attr{}, record.NoOp, nil)
	right2 := NewFileScanOp("enrolled", crel, cschema, record.Attr{}, record.NoOp, nil)
	join, err := NewNLJoinOp(left2, right2, astshim.Condition{
		LHS:       astshim.RelAttr{AttrName: "id"},
		Op:        record.EqOp,
		RHSIsAttr: true,
		RHSAttr:   astshim.RelAttr{AttrName: "sid"},
	})
	require.NoError(t, err)
	joined := drainAll(t, join)
	require.Len(t, joined, 1)
}
