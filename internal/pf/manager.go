package pf

// Manager creates, destroys and opens PF files, mirroring PF_Manager's
// role as the single entry point RM/IX go through to get a FileHandle.
type Manager struct {
	defaultPoolPages int
}

// NewManager returns a Manager whose opened files get a buffer pool sized
// at poolPages frames (spec.md section 2, buffer pool capacity).
func NewManager(poolPages int) *Manager {
	if poolPages <= 0 {
		poolPages = 128
	}
	return &Manager{defaultPoolPages: poolPages}
}

// CreateFile creates a new, empty PF file on disk.
func (m *Manager) CreateFile(path string) error {
	f, err := CreateFile(path)
	if err != nil {
		return err
	}
	return f.Close()
}

// DestroyFile removes a PF file from disk. It must not be open.
func (m *Manager) DestroyFile(path string) error {
	return DestroyFile(path)
}

// OpenFile opens path and returns a FileHandle backed by a fresh buffer
// pool of the manager's default capacity.
func (m *Manager) OpenFile(path string) (*FileHandle, error) {
	f, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	return &FileHandle{file: f, pool: NewBufferPool(f, m.defaultPoolPages)}, nil
}

// FileHandle is the per-open-file handle RM/IX operate through: pinned
// page access via the buffer pool, plus allocation/disposal and forced
// flush, exactly the operations PF_FileHandle exposes in the original.
type FileHandle struct {
	file *File
	pool *BufferPool
}

// GetFirstPage returns the lowest-numbered live page, or ErrEOF if the
// file has no pages at all. "Live" here just means allocated; callers
// that keep their own free list (RM) skip free pages themselves.
func (fh *FileHandle) GetFirstPage() (*Page, error) {
	return fh.GetNextPage(NoPage)
}

// GetNextPage returns the next page after cur in ascending PageNum order,
// or ErrEOF once the last page has been returned.
func (fh *FileHandle) GetNextPage(cur PageNum) (*Page, error) {
	next := cur + 1
	if uint32(next) >= fh.file.PageCount() {
		return nil, ErrEOF
	}
	return fh.pool.GetPage(next)
}

// GetThisPage pins and returns the page numbered num.
func (fh *FileHandle) GetThisPage(num PageNum) (*Page, error) {
	return fh.pool.GetPage(num)
}

// AllocatePage grows the file and returns a freshly pinned page.
func (fh *FileHandle) AllocatePage() (*Page, error) {
	return fh.pool.AllocatePage()
}

// DisposePage frees a page (which must be unpinned) back to the file's
// free list.
func (fh *FileHandle) DisposePage(num PageNum) error {
	return fh.pool.DisposePage(num)
}

// UnpinPage decreases a page's pin count.
func (fh *FileHandle) UnpinPage(num PageNum, dirty bool) error {
	return fh.pool.UnpinPage(num, dirty)
}

// MarkDirty flags a pinned page dirty without unpinning it.
func (fh *FileHandle) MarkDirty(num PageNum) error {
	return fh.pool.MarkDirty(num)
}

// ForcePages flushes every dirty buffered page and the file header.
func (fh *FileHandle) ForcePages() error {
	if err := fh.pool.ForceAll(); err != nil {
		return err
	}
	return fh.file.ForcePages()
}

// PageCount returns the number of pages ever allocated in the file.
func (fh *FileHandle) PageCount() uint32 { return fh.file.PageCount() }

// Pool exposes the buffer pool for the RESET/PRINT/RESIZE BUFFER
// utility commands.
func (fh *FileHandle) Pool() *BufferPool { return fh.pool }

// Close forces all pages and closes the backing OS file. It fails, per
// spec.md sections 4.1 and 4.6, if any page is still pinned; the handle
// stays open and usable in that case.
func (fh *FileHandle) Close() error {
	if fh.pool.AnyPinned() {
		return ErrPagePinned
	}
	if err := fh.ForcePages(); err != nil {
		return err
	}
	return fh.file.Close()
}
