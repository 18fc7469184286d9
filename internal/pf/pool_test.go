package pf

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestFile(t *testing.T) *File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.pf")
	f, err := CreateFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestFile_AllocateAndReadWrite(t *testing.T) {
	f := newTestFile(t)

	n0, err := f.AllocatePage()
	require.NoError(t, err)
	require.Equal(t, PageNum(0), n0)

	n1, err := f.AllocatePage()
	require.NoError(t, err)
	require.Equal(t, PageNum(1), n1)
	require.Equal(t, uint32(2), f.PageCount())

	buf := make([]byte, PageSize)
	buf[10] = 7
	require.NoError(t, f.writePage(n0, buf))

	out := make([]byte, PageSize)
	require.NoError(t, f.readPage(n0, out))
	require.Equal(t, byte(7), out[10])
}

func TestFile_DisposeAndReallocate(t *testing.T) {
	f := newTestFile(t)

	n0, err := f.AllocatePage()
	require.NoError(t, err)
	n1, err := f.AllocatePage()
	require.NoError(t, err)
	require.NoError(t, f.DisposePage(n0))

	n2, err := f.AllocatePage()
	require.NoError(t, err)
	require.Equal(t, n0, n2, "disposed page should be reused before growing the file")
	require.Equal(t, uint32(2), f.PageCount())
	_ = n1
}

func TestBufferPool_PinUnpinAndEvict(t *testing.T) {
	f := newTestFile(t)
	pool := NewBufferPool(f, 1)

	p0, err := pool.AllocatePage()
	require.NoError(t, err)
	p0.Data[0] = 42
	require.NoError(t, pool.UnpinPage(p0.Num, true))

	// Pool capacity is 1: requesting a second page must evict page 0,
	// flushing it to disk first since it was marked dirty.
	p1, err := pool.AllocatePage()
	require.NoError(t, err)
	require.NotNil(t, p1)
	require.NoError(t, pool.UnpinPage(p1.Num, false))

	reread, err := pool.GetPage(p0.Num)
	require.NoError(t, err)
	require.Equal(t, byte(42), reread.Data[0])
	require.NoError(t, pool.UnpinPage(p0.Num, false))
}

func TestBufferPool_NoFreeFrame(t *testing.T) {
	f := newTestFile(t)
	pool := NewBufferPool(f, 1)

	p0, err := pool.AllocatePage()
	require.NoError(t, err)
	require.NotNil(t, p0)

	_, err = pool.AllocatePage()
	require.ErrorIs(t, err, ErrNoFreeFrame)
}

func TestBufferPool_DisposeRequiresUnpinned(t *testing.T) {
	f := newTestFile(t)
	pool := NewBufferPool(f, 4)

	p0, err := pool.AllocatePage()
	require.NoError(t, err)

	err = pool.DisposePage(p0.Num)
	require.ErrorIs(t, err, ErrPagePinned)

	require.NoError(t, pool.UnpinPage(p0.Num, false))
	require.NoError(t, pool.DisposePage(p0.Num))
}

func TestFileHandle_CloseRequiresNoPinnedPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pf")
	m := NewManager(4)
	require.NoError(t, m.CreateFile(path))
	fh, err := m.OpenFile(path)
	require.NoError(t, err)

	page, err := fh.AllocatePage()
	require.NoError(t, err)

	require.ErrorIs(t, fh.Close(), ErrPagePinned)

	require.NoError(t, fh.UnpinPage(page.Num, false))
	require.NoError(t, fh.Close())
}
