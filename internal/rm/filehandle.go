package rm

import (
	"fmt"
	"log/slog"

	"github.com/ntmai/redbase/internal/pf"
)

const headerPageNum = pf.PageNum(0)

// FileHandle is an open RM file: fixed-length records in slotted pages,
// addressed by RID, with a per-file free-list threaded through each page's
// next-free-page field.
type FileHandle struct {
	pfh *pf.FileHandle
	hdr header
}

// CreateFile creates a new RM file of fixed-length records.
func CreateFile(pfm *pf.Manager, path string, recordSize int) error {
	if recordSize <= 0 {
		return ErrRecordTooSmall
	}
	n := slotsPerPage(recordSize)
	if n < 1 {
		return ErrRecordTooLarge
	}

	if err := pfm.CreateFile(path); err != nil {
		return err
	}
	pfh, err := pfm.OpenFile(path)
	if err != nil {
		return err
	}
	defer pfh.Close()

	hdrPage, err := pfh.AllocatePage()
	if err != nil {
		return err
	}
	h := header{recordSize: int32(recordSize), slotsPerPage: int32(n), numberPages: 0, firstFreePage: pf.NoPage}
	h.encode(hdrPage.Data)
	return pfh.UnpinPage(hdrPage.Num, true)
}

// DestroyFile removes an RM file from disk. It must be closed.
func DestroyFile(pfm *pf.Manager, path string) error {
	return pfm.DestroyFile(path)
}

// OpenFile opens an existing RM file.
func OpenFile(pfm *pf.Manager, path string) (*FileHandle, error) {
	pfh, err := pfm.OpenFile(path)
	if err != nil {
		return nil, err
	}
	hdrPage, err := pfh.GetThisPage(headerPageNum)
	if err != nil {
		_ = pfh.Close()
		return nil, err
	}
	var h header
	h.decode(hdrPage.Data)
	if err := pfh.UnpinPage(headerPageNum, false); err != nil {
		_ = pfh.Close()
		return nil, err
	}
	return &FileHandle{pfh: pfh, hdr: h}, nil
}

// Close flushes and closes the file.
func (f *FileHandle) Close() error {
	return f.pfh.Close()
}

// ForcePages flushes every dirty buffered page, delegating to PF.
func (f *FileHandle) ForcePages() error {
	return f.pfh.ForcePages()
}

// RecordSize returns the fixed record length this file was created with.
func (f *FileHandle) RecordSize() int { return int(f.hdr.recordSize) }

func (f *FileHandle) syncHeader() error {
	hdrPage, err := f.pfh.GetThisPage(headerPageNum)
	if err != nil {
		return err
	}
	f.hdr.encode(hdrPage.Data)
	return f.pfh.UnpinPage(headerPageNum, true)
}

func (f *FileHandle) view(data []byte) *dataPage {
	return newDataPageView(data, int(f.hdr.recordSize), int(f.hdr.slotsPerPage))
}

func (f *FileHandle) validateRID(rid RID) error {
	if rid.Page <= headerPageNum {
		return ErrInvalidPageNum
	}
	if rid.Slot < 1 || int(rid.Slot) > int(f.hdr.slotsPerPage) {
		return ErrInvalidSlotNum
	}
	return nil
}

// InsertRecord copies data (which must be exactly RecordSize() bytes) into
// the first free slot of the first-free page, allocating a new page if the
// free-list is empty. Returns the new record's RID.
func (f *FileHandle) InsertRecord(data []byte) (RID, error) {
	if len(data) != int(f.hdr.recordSize) {
		return NilRID, fmt.Errorf("rm: record is %d bytes, want %d", len(data), f.hdr.recordSize)
	}

	if f.hdr.firstFreePage == pf.NoPage {
		page, err := f.pfh.AllocatePage()
		if err != nil {
			return NilRID, err
		}
		dp := f.view(page.Data)
		dp.initEmpty(pf.NoPage)
		if err := f.pfh.UnpinPage(page.Num, true); err != nil {
			return NilRID, err
		}
		f.hdr.numberPages++
		f.hdr.firstFreePage = page.Num
		if err := f.syncHeader(); err != nil {
			return NilRID, err
		}
		slog.Debug("rm: allocated page for free-list", "page", page.Num)
	}

	pageNum := f.hdr.firstFreePage
	page, err := f.pfh.GetThisPage(pageNum)
	if err != nil {
		return NilRID, err
	}
	dp := f.view(page.Data)

	idx, ok := dp.firstZeroBit()
	if !ok {
		_ = f.pfh.UnpinPage(pageNum, false)
		return NilRID, ErrInconsistentBitmap
	}
	copy(dp.slot(idx), data)
	dp.setBit(idx)

	becameFull := dp.allOnes()
	var nextFree pf.PageNum
	if becameFull {
		nextFree = dp.nextFreePage()
	}
	if err := f.pfh.UnpinPage(pageNum, true); err != nil {
		return NilRID, err
	}

	if becameFull {
		f.hdr.firstFreePage = nextFree
		if err := f.syncHeader(); err != nil {
			return NilRID, err
		}
	}

	return RID{Page: pageNum, Slot: uint16(idx + 1)}, nil
}

// GetRecord returns a copy of the live record at rid.
func (f *FileHandle) GetRecord(rid RID) ([]byte, error) {
	if err := f.validateRID(rid); err != nil {
		return nil, err
	}
	page, err := f.pfh.GetThisPage(rid.Page)
	if err != nil {
		return nil, err
	}
	dp := f.view(page.Data)
	idx := int(rid.Slot) - 1
	if !dp.isBitSet(idx) {
		_ = f.pfh.UnpinPage(rid.Page, false)
		return nil, ErrRecordNotValid
	}
	out := make([]byte, f.hdr.recordSize)
	copy(out, dp.slot(idx))
	return out, f.pfh.UnpinPage(rid.Page, false)
}

// UpdateRecord overwrites the bytes of the live record at rid.
func (f *FileHandle) UpdateRecord(rid RID, data []byte) error {
	if len(data) != int(f.hdr.recordSize) {
		return fmt.Errorf("rm: record is %d bytes, want %d", len(data), f.hdr.recordSize)
	}
	if err := f.validateRID(rid); err != nil {
		return err
	}
	page, err := f.pfh.GetThisPage(rid.Page)
	if err != nil {
		return err
	}
	dp := f.view(page.Data)
	idx := int(rid.Slot) - 1
	if !dp.isBitSet(idx) {
		_ = f.pfh.UnpinPage(rid.Page, false)
		return ErrRecordNotValid
	}
	copy(dp.slot(idx), data)
	return f.pfh.UnpinPage(rid.Page, true)
}

// DeleteRecord clears the slot's occupancy bit. If the page was full
// before this delete, it is prepended to the free-list. Empty pages are
// never reclaimed, per spec.md section 9.
func (f *FileHandle) DeleteRecord(rid RID) error {
	if err := f.validateRID(rid); err != nil {
		return err
	}
	page, err := f.pfh.GetThisPage(rid.Page)
	if err != nil {
		return err
	}
	dp := f.view(page.Data)
	idx := int(rid.Slot) - 1
	if !dp.isBitSet(idx) {
		_ = f.pfh.UnpinPage(rid.Page, false)
		return ErrRecordNotValid
	}

	wasFull := dp.allOnes()
	dp.clearBit(idx)
	if wasFull {
		dp.setNextFreePage(f.hdr.firstFreePage)
	}
	if err := f.pfh.UnpinPage(rid.Page, true); err != nil {
		return err
	}

	if wasFull {
		f.hdr.firstFreePage = rid.Page
		if err := f.syncHeader(); err != nil {
			return err
		}
	}
	return nil
}

// NumberPages is the number of data pages (excludes the header page),
// mirroring RM_FileHeaderPage.numberPages.
func (f *FileHandle) NumberPages() int { return int(f.hdr.numberPages) }

// SlotsPerPage is N, the number of fixed-size slots per data page.
func (f *FileHandle) SlotsPerPage() int { return int(f.hdr.slotsPerPage) }

// Pool exposes the underlying buffer pool for the RESET/PRINT/RESIZE
// BUFFER utility commands (SPEC_FULL.md section 4).
func (f *FileHandle) Pool() *pf.BufferPool { return f.pfh.Pool() }
