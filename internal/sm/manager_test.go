package sm

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ntmai/redbase/internal/astshim"
	"github.com/ntmai/redbase/internal/pf"
	"github.com/ntmai/redbase/internal/record"
)

func newTestDB(t *testing.T) *Manager {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "db")
	pfm := pf.NewManager(32)
	m, err := CreateDB(pfm, dir)
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

func TestCreateDBBootstrapsCatalog(t *testing.T) {
	m := newTestDB(t)
	attrs, rows, err := m.Help()
	require.NoError(t, err)
	require.Len(t, attrs, 4)
	require.Len(t, rows, 2) // relcat describes itself and attrcat

	_, arows, err := m.HelpRelation(RelcatFile)
	require.NoError(t, err)
	require.Len(t, arows, 4)
}

func TestCreateTableRejectsDuplicateAndCatalogNames(t *testing.T) {
	m := newTestDB(t)
	require.NoError(t, m.CreateTable("students", studentsTable()))
	require.ErrorIs(t, m.CreateTable("students", studentsTable()), ErrTableAlreadyExists)
	require.ErrorIs(t, m.CreateTable(RelcatFile, studentsTable()), ErrSystemCatalog)
}

func TestCreateTableThenGetSchema(t *testing.T) {
	m := newTestDB(t)
	require.NoError(t, m.CreateTable("students", studentsTable()))

	schema, err := m.GetSchema("students")
	require.NoError(t, err)
	require.Len(t, schema.Attrs, 3)
	require.Equal(t, "id", schema.Attrs[0].Name)
	require.Equal(t, 0, schema.Attrs[0].Offset)
	require.Equal(t, 4, schema.Attrs[1].Offset)
}

func TestCreateIndexBackfillsExistingRows(t *testing.T) {
	m := newTestDB(t)
	require.NoError(t, m.CreateTable("students", studentsTable()))

	schema, err := m.GetSchema("students")
	require.NoError(t, err)
	rf, err := m.OpenRelation("students")
	require.NoError(t, err)
	buf, err := record.EncodeTuple(schema, []any{int32(1), "ada", float32(4.0)})
	require.NoError(t, err)
	rid, err := rf.InsertRecord(buf)
	require.NoError(t, err)
	require.NoError(t, rf.Close())

	require.NoError(t, m.CreateIndex("students", "id"))

	tree, err := m.OpenIndex("students", "id")
	require.NoError(t, err)
	defer tree.Close()
	key, err := record.FieldBytes(schema.Attrs[0], int32(1))
	require.NoError(t, err)
	got, err := tree.Get(key)
	require.NoError(t, err)
	require.Equal(t, rid, got[0])
}

func TestCreateIndexRejectsSecondIndexOnSameAttribute(t *testing.T) {
	m := newTestDB(t)
	require.NoError(t, m.CreateTable("students", studentsTable()))
	require.NoError(t, m.CreateIndex("students", "id"))
	require.ErrorIs(t, m.CreateIndex("students", "id"), ErrIndexExists)
}

func TestDropIndexThenDropTable(t *testing.T) {
	m := newTestDB(t)
	require.NoError(t, m.CreateTable("students", studentsTable()))
	require.NoError(t, m.CreateIndex("students", "id"))
	require.NoError(t, m.DropIndex("students", "id"))
	require.ErrorIs(t, m.DropIndex("students", "id"), ErrIndexDoesNotExist)

	require.NoError(t, m.DropTable("students"))
	require.ErrorIs(t, m.DropTable("students"), ErrTableDoesNotExist)
	_, err := m.GetSchema("students")
	require.ErrorIs(t, err, ErrTableDoesNotExist)
}

func TestLoadRejectsLineWithBadField(t *testing.T) {
	m := newTestDB(t)
	require.NoError(t, m.CreateTable("students", studentsTable()))

	good := "1,ada,4.0\n2,grace,3.8\n"
	n, err := m.Load("students", strings.NewReader(good))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	bad := "3,turing,notafloat\n"
	_, err = m.Load("students", strings.NewReader(bad))
	require.ErrorIs(t, err, ErrLoadParseFailed)
}

func TestLoadInsertsIntoIndex(t *testing.T) {
	m := newTestDB(t)
	require.NoError(t, m.CreateTable("students", studentsTable()))
	require.NoError(t, m.CreateIndex("students", "id"))

	n, err := m.Load("students", strings.NewReader("1,ada,4.0\n2,grace,3.8\n"))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	tree, err := m.OpenIndex("students", "id")
	require.NoError(t, err)
	defer tree.Close()
	schema, err := m.GetSchema("students")
	require.NoError(t, err)
	key, err := record.FieldBytes(schema.Attrs[0], int32(2))
	require.NoError(t, err)
	got, err := tree.Get(key)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestSetSessionParameters(t *testing.T) {
	m := newTestDB(t)
	require.NoError(t, m.Set("printCommands", "TRUE"))
	require.True(t, m.Session.PrintCommands)
	require.NoError(t, m.Set("bQueryPlans", "1"))
	require.True(t, m.Session.QueryPlans)
	require.ErrorIs(t, m.Set("bogus", "TRUE"), ErrInvalidParameter)
	require.ErrorIs(t, m.Set("printCommands", "nope"), ErrInvalidValue)
}
