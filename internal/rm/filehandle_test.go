package rm

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ntmai/redbase/internal/pf"
	"github.com/ntmai/redbase/internal/record"
)

func recordAttr() record.Attr {
	return record.Attr{Name: "a", Type: record.AttrInt, Length: 4, Offset: 0}
}

func newTestFile(t *testing.T, recordSize int) (*pf.Manager, *FileHandle) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rel")
	pfm := pf.NewManager(16)
	require.NoError(t, CreateFile(pfm, path, recordSize))
	fh, err := OpenFile(pfm, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fh.Close() })
	return pfm, fh
}

func TestInsertGetRoundTrip(t *testing.T) {
	_, fh := newTestFile(t, 16)

	data := make([]byte, 16)
	copy(data, "hello world")
	rid, err := fh.InsertRecord(data)
	require.NoError(t, err)
	require.Equal(t, pf.PageNum(1), rid.Page)
	require.Equal(t, uint16(1), rid.Slot)

	got, err := fh.GetRecord(rid)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestInsertFillsPageThenAllocatesNext(t *testing.T) {
	_, fh := newTestFile(t, 16)
	n := fh.SlotsPerPage()

	var rids []RID
	for i := 0; i < n; i++ {
		data := make([]byte, 16)
		data[0] = byte(i)
		rid, err := fh.InsertRecord(data)
		require.NoError(t, err)
		rids = append(rids, rid)
	}
	// Page 1 is now full: one more insert must land on page 2.
	data := make([]byte, 16)
	rid, err := fh.InsertRecord(data)
	require.NoError(t, err)
	require.Equal(t, pf.PageNum(2), rid.Page)
	require.Equal(t, 2, fh.NumberPages())
	require.Len(t, rids, n)
}

func TestDeleteThenReinsertReusesSlot(t *testing.T) {
	_, fh := newTestFile(t, 16)
	data := make([]byte, 16)
	rid, err := fh.InsertRecord(data)
	require.NoError(t, err)

	require.NoError(t, fh.DeleteRecord(rid))
	_, err = fh.GetRecord(rid)
	require.ErrorIs(t, err, ErrRecordNotValid)

	data2 := make([]byte, 16)
	data2[0] = 9
	rid2, err := fh.InsertRecord(data2)
	require.NoError(t, err)
	require.Equal(t, rid, rid2, "a freed slot should be reused before growing the file")
}

func TestDeleteFullPagePrependsFreeList(t *testing.T) {
	_, fh := newTestFile(t, 16)
	n := fh.SlotsPerPage()

	var rids []RID
	for i := 0; i < n; i++ {
		rid, err := fh.InsertRecord(make([]byte, 16))
		require.NoError(t, err)
		rids = append(rids, rid)
	}
	require.Equal(t, pf.NoPage, fh.hdr.firstFreePage, "page should be full and off the free-list")

	require.NoError(t, fh.DeleteRecord(rids[0]))
	require.Equal(t, pf.PageNum(1), fh.hdr.firstFreePage)
}

func TestScan_NoOpYieldsEveryLiveRecord(t *testing.T) {
	_, fh := newTestFile(t, 16)
	for i := 0; i < 5; i++ {
		data := make([]byte, 16)
		data[0] = byte(i)
		_, err := fh.InsertRecord(data)
		require.NoError(t, err)
	}

	scan := fh.OpenScan(recordAttr(), 0, nil)
	count := 0
	for {
		_, _, err := scan.Next()
		if errors.Is(err, ErrEOF) {
			break
		}
		require.NoError(t, err)
		count++
	}
	require.Equal(t, 5, count)
	require.NoError(t, scan.Close())
}

func TestScan_EmptyFileYieldsEOFImmediately(t *testing.T) {
	_, fh := newTestFile(t, 16)
	scan := fh.OpenScan(recordAttr(), 0, nil)
	_, _, err := scan.Next()
	require.ErrorIs(t, err, ErrEOF)
}
