package ix

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ntmai/redbase/internal/bx"
	"github.com/ntmai/redbase/internal/pf"
	"github.com/ntmai/redbase/internal/record"
	"github.com/ntmai/redbase/internal/rm"
)

func intKey(n int32) []byte {
	b := make([]byte, 4)
	bx.PutI32(b, n)
	return b
}

func newTestTree(t *testing.T) *Tree {
	t.Helper()
	path := filepath.Join(t.TempDir(), "idx")
	pfm := pf.NewManager(16)
	attr := record.Attr{Type: record.AttrInt, Length: 4}
	require.NoError(t, CreateFile(pfm, path, attr))
	tree, err := OpenFile(pfm, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tree.Close() })
	return tree
}

func TestInsertGetRoundTrip(t *testing.T) {
	tree := newTestTree(t)
	rid := rm.RID{Page: 1, Slot: 1}
	require.NoError(t, tree.Insert(intKey(5), rid))

	got, err := tree.Get(intKey(5))
	require.NoError(t, err)
	require.Equal(t, []rm.RID{rid}, got)

	_, err = tree.Get(intKey(6))
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestInsertDuplicateKeyChainsBucket(t *testing.T) {
	tree := newTestTree(t)
	r1 := rm.RID{Page: 1, Slot: 1}
	r2 := rm.RID{Page: 1, Slot: 2}
	r3 := rm.RID{Page: 2, Slot: 1}
	require.NoError(t, tree.Insert(intKey(7), r1))
	require.NoError(t, tree.Insert(intKey(7), r2))
	require.NoError(t, tree.Insert(intKey(7), r3))

	got, err := tree.Get(intKey(7))
	require.NoError(t, err)
	require.ElementsMatch(t, []rm.RID{r1, r2, r3}, got)

	require.ErrorIs(t, tree.Insert(intKey(7), r1), ErrEntryExists)
}

func TestInsertManyKeysCausesSplits(t *testing.T) {
	tree := newTestTree(t)
	const n = 1000
	for i := 0; i < n; i++ {
		require.NoError(t, tree.Insert(intKey(int32(i)), rm.RID{Page: pf.PageNum(i/4 + 1), Slot: uint16(i%4 + 1)}))
	}
	require.NotEqual(t, pf.PageNum(1), tree.hdr.rootPage, "enough inserts must have split the original root leaf")

	for i := 0; i < n; i++ {
		got, err := tree.Get(intKey(int32(i)))
		require.NoError(t, err, "key %d", i)
		require.Equal(t, rm.RID{Page: pf.PageNum(i/4 + 1), Slot: uint16(i%4 + 1)}, got[0])
	}
}

func TestScanNoOpYieldsAscendingOrder(t *testing.T) {
	tree := newTestTree(t)
	values := []int32{5, 1, 9, 3, 7}
	for _, v := range values {
		require.NoError(t, tree.Insert(intKey(v), rm.RID{Page: pf.PageNum(v), Slot: 1}))
	}

	scan, err := tree.OpenScan(record.NoOp, nil)
	require.NoError(t, err)
	var seen []int32
	for {
		rid, err := scan.Next()
		if errors.Is(err, ErrEOF) {
			break
		}
		require.NoError(t, err)
		seen = append(seen, int32(rid.Page))
	}
	require.Equal(t, []int32{1, 3, 5, 7, 9}, seen)
	require.NoError(t, scan.Close())
}

func TestScanRangeOperators(t *testing.T) {
	tree := newTestTree(t)
	for v := int32(0); v < 20; v++ {
		require.NoError(t, tree.Insert(intKey(v), rm.RID{Page: pf.PageNum(v), Slot: 1}))
	}

	collect := func(op record.CompareOp, value []byte) []int32 {
		scan, err := tree.OpenScan(op, value)
		require.NoError(t, err)
		var out []int32
		for {
			rid, err := scan.Next()
			if errors.Is(err, ErrEOF) {
				break
			}
			require.NoError(t, err)
			out = append(out, int32(rid.Page))
		}
		return out
	}

	require.Equal(t, []int32{0, 1, 2, 3, 4}, collect(record.LtOp, intKey(5)))
	require.Equal(t, []int32{0, 1, 2, 3, 4, 5}, collect(record.LeOp, intKey(5)))
	require.Equal(t, []int32{16, 17, 18, 19}, collect(record.GtOp, intKey(15)))
	require.Equal(t, []int32{15, 16, 17, 18, 19}, collect(record.GeOp, intKey(15)))
}

func TestDeleteRemovesEntry(t *testing.T) {
	tree := newTestTree(t)
	rid := rm.RID{Page: 1, Slot: 1}
	require.NoError(t, tree.Insert(intKey(42), rid))
	require.NoError(t, tree.Delete(intKey(42), rid))

	_, err := tree.Get(intKey(42))
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.ErrorIs(t, tree.Delete(intKey(42), rid), ErrEntryNotFound)
}

func TestDeleteOneOfDuplicatesKeepsOthers(t *testing.T) {
	tree := newTestTree(t)
	r1 := rm.RID{Page: 1, Slot: 1}
	r2 := rm.RID{Page: 1, Slot: 2}
	require.NoError(t, tree.Insert(intKey(8), r1))
	require.NoError(t, tree.Insert(intKey(8), r2))
	require.NoError(t, tree.Delete(intKey(8), r1))

	got, err := tree.Get(intKey(8))
	require.NoError(t, err)
	require.Equal(t, []rm.RID{r2}, got)
}

func TestScanSurvivesDeleteOfAlreadyReturnedEntry(t *testing.T) {
	tree := newTestTree(t)
	rids := make(map[int32]rm.RID, 10)
	for v := int32(0); v < 10; v++ {
		rid := rm.RID{Page: pf.PageNum(v), Slot: 1}
		rids[v] = rid
		require.NoError(t, tree.Insert(intKey(v), rid))
	}

	scan, err := tree.OpenScan(record.NoOp, nil)
	require.NoError(t, err)

	var seen []int32
	rid, err := scan.Next()
	require.NoError(t, err)
	seen = append(seen, int32(rid.Page))

	// Delete the entry just returned through the same Tree the scan is
	// reading from, as ql.Delete/ql.Update do: this shifts every later
	// entry in the leaf's array down by one slot.
	require.NoError(t, tree.Delete(intKey(seen[0]), rids[seen[0]]))

	for {
		rid, err := scan.Next()
		if errors.Is(err, ErrEOF) {
			break
		}
		require.NoError(t, err)
		seen = append(seen, int32(rid.Page))
	}
	require.NoError(t, scan.Close())

	require.Equal(t, []int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, seen,
		"deleting an already-returned entry mid-scan must not skip a surviving sibling")
}

func TestDeleteAfterManySplitsStillFindsSurvivors(t *testing.T) {
	tree := newTestTree(t)
	const n = 1000
	for i := 0; i < n; i++ {
		require.NoError(t, tree.Insert(intKey(int32(i)), rm.RID{Page: pf.PageNum(i + 1), Slot: 1}))
	}
	for i := 0; i < n; i += 2 {
		require.NoError(t, tree.Delete(intKey(int32(i)), rm.RID{Page: pf.PageNum(i + 1), Slot: 1}))
	}
	for i := 0; i < n; i++ {
		_, err := tree.Get(intKey(int32(i)))
		if i%2 == 0 {
			require.ErrorIs(t, err, ErrKeyNotFound)
		} else {
			require.NoError(t, err)
		}
	}
}
