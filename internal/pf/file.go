package pf

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/ntmai/redbase/internal/bx"
)

// fileMagic tags the hidden header block so OpenFile can sanity-check a
// path actually holds a PF file.
const fileMagic = 0x50465631 // "PFV1"

// headerBlockSize reserves exactly one page-sized block at the start of
// the OS file for PF's own bookkeeping: page count and the head of the
// disposed-page free list. This block sits outside the PageNum numbering
// RM/IX see, so RM's own header page occupies PageNum(0), matching how
// RM_Manager::CreateFile in the original writes its header into the first
// PF-numbered page.
const headerBlockSize = PageSize

const (
	hdrMagicOff     = 0
	hdrPageSizeOff  = 4
	hdrPageCountOff = 8
	hdrFreeListOff  = 12
)

// File is a single OS file storing fixed-size pages, with PF's hidden
// header block (page count + disposed-page free list) living before
// PageNum(0).
type File struct {
	mu        sync.Mutex
	f         *os.File
	path      string
	pageCount uint32
	freeHead  PageNum // head of disposed-page singly-linked free list
	hdrDirty  bool
}

// CreateFile creates a new, empty PF file at path. It fails if the file
// already exists.
func CreateFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("pf: create %s: %w", path, err)
	}
	file := &File{f: f, path: path, pageCount: 0, freeHead: NoPage, hdrDirty: true}
	if err := file.writeHeader(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return file, nil
}

// OpenFile opens an existing PF file at path.
func OpenFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("pf: open %s: %w", path, err)
	}
	file := &File{f: f, path: path}
	if err := file.readHeader(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return file, nil
}

// DestroyFile removes the OS file backing a closed PF file.
func DestroyFile(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("pf: destroy %s: %w", path, err)
	}
	return nil
}

func (file *File) readHeader() error {
	buf := make([]byte, headerBlockSize)
	if _, err := file.f.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("pf: read header %s: %w", file.path, err)
	}
	if bx.U32(buf[hdrMagicOff:]) != fileMagic {
		return ErrHeaderCorrupt
	}
	if int(bx.U32(buf[hdrPageSizeOff:])) != PageSize {
		return fmt.Errorf("pf: %s: page size mismatch", file.path)
	}
	file.pageCount = bx.U32(buf[hdrPageCountOff:])
	file.freeHead = PageNum(int32(bx.U32(buf[hdrFreeListOff:])))
	return nil
}

func (file *File) writeHeader() error {
	buf := make([]byte, headerBlockSize)
	bx.PutU32(buf[hdrMagicOff:], fileMagic)
	bx.PutU32(buf[hdrPageSizeOff:], uint32(PageSize))
	bx.PutU32(buf[hdrPageCountOff:], file.pageCount)
	bx.PutU32(buf[hdrFreeListOff:], uint32(int32(file.freeHead)))
	if _, err := file.f.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("pf: write header %s: %w", file.path, err)
	}
	file.hdrDirty = false
	return nil
}

func (file *File) offsetOf(num PageNum) int64 {
	return int64(headerBlockSize) + int64(num)*int64(PageSize)
}

// PageCount returns the number of pages ever allocated (disposed pages
// still count; their slot is reused by a later AllocatePage).
func (file *File) PageCount() uint32 {
	file.mu.Lock()
	defer file.mu.Unlock()
	return file.pageCount
}

// AllocatePage grows the file by one page, or reuses the head of the
// disposed-page free list if one exists.
func (file *File) AllocatePage() (PageNum, error) {
	file.mu.Lock()
	defer file.mu.Unlock()

	if file.freeHead != NoPage {
		num := file.freeHead
		var next [4]byte
		if _, err := file.f.ReadAt(next[:], file.offsetOf(num)); err != nil {
			return NoPage, fmt.Errorf("pf: read free-list link: %w", err)
		}
		file.freeHead = PageNum(int32(binary.LittleEndian.Uint32(next[:])))
		file.hdrDirty = true
		if err := file.writeHeader(); err != nil {
			return NoPage, err
		}
		return num, nil
	}

	num := PageNum(file.pageCount)
	file.pageCount++
	file.hdrDirty = true
	zero := make([]byte, PageSize)
	if _, err := file.f.WriteAt(zero, file.offsetOf(num)); err != nil {
		return NoPage, fmt.Errorf("pf: extend file: %w", err)
	}
	if err := file.writeHeader(); err != nil {
		return NoPage, err
	}
	return num, nil
}

// DisposePage returns a page to the free list for future reuse. The
// caller must have unpinned the page first.
func (file *File) DisposePage(num PageNum) error {
	file.mu.Lock()
	defer file.mu.Unlock()

	if num < 0 || uint32(num) >= file.pageCount {
		return ErrInvalidPageNum
	}

	var link [PageSize]byte
	binary.LittleEndian.PutUint32(link[:4], uint32(int32(file.freeHead)))
	if _, err := file.f.WriteAt(link[:], file.offsetOf(num)); err != nil {
		return fmt.Errorf("pf: write free-list link: %w", err)
	}
	file.freeHead = num
	return file.writeHeader()
}

func (file *File) readPage(num PageNum, data []byte) error {
	file.mu.Lock()
	defer file.mu.Unlock()
	if num < 0 || uint32(num) >= file.pageCount {
		return ErrInvalidPageNum
	}
	_, err := file.f.ReadAt(data, file.offsetOf(num))
	return err
}

func (file *File) writePage(num PageNum, data []byte) error {
	file.mu.Lock()
	defer file.mu.Unlock()
	if num < 0 || uint32(num) >= file.pageCount {
		return ErrInvalidPageNum
	}
	_, err := file.f.WriteAt(data, file.offsetOf(num))
	return err
}

// ForcePages flushes the OS file to disk, including the hidden header.
func (file *File) ForcePages() error {
	file.mu.Lock()
	if file.hdrDirty {
		file.mu.Unlock()
		if err := file.writeHeader(); err != nil {
			return err
		}
	} else {
		file.mu.Unlock()
	}
	return file.f.Sync()
}

// Close flushes and closes the underlying OS file. File itself tracks no
// pin state (BufferPool does); its callers are Manager.CreateFile, on a
// fresh file with nothing pinned, and FileHandle.Close, which refuses to
// reach here while any page is still pinned.
func (file *File) Close() error {
	if err := file.ForcePages(); err != nil {
		return err
	}
	return file.f.Close()
}
