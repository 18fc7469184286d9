package rm

import (
	"github.com/ntmai/redbase/internal/pf"
	"github.com/ntmai/redbase/internal/record"
)

// Scan is a conditional file scan over one RM file: iterates pages in
// order and, within each page, slots 1..N, yielding every live record
// whose attribute field satisfies (op, value). NoOp yields every live
// record. A Scan always delivers each record with its page already
// unpinned (the original's "no-hint" pinning mode) - it pins at most one
// page at a time, for the duration of one slot lookup.
type Scan struct {
	f      *FileHandle
	attr   record.Attr
	op     record.CompareOp
	value  []byte
	hasCond bool

	curPage pf.PageNum
	curSlot int // next slot index to examine, 0-based
	closed  bool
}

// OpenScan opens a scan with no predicate (attr is the zero value) when op
// is record.NoOp; otherwise every live record is checked against
// (attr, op, value). A nil value forces NoOp, per spec.md section 4.2.
func (f *FileHandle) OpenScan(attr record.Attr, op record.CompareOp, value []byte) *Scan {
	if value == nil {
		op = record.NoOp
	}
	return &Scan{
		f:       f,
		attr:    attr,
		op:      op,
		value:   value,
		hasCond: op != record.NoOp,
		curPage: pf.PageNum(1),
		curSlot: 0,
	}
}

// Next returns the next matching (RID, record bytes), or ErrEOF once the
// file has been fully scanned.
func (s *Scan) Next() (RID, []byte, error) {
	if s.closed {
		return NilRID, nil, ErrEOF
	}

	lastPage := pf.PageNum(s.f.hdr.numberPages) // data pages are 1..numberPages
	for s.curPage <= lastPage {
		page, err := s.f.pfh.GetThisPage(s.curPage)
		if err != nil {
			return NilRID, nil, err
		}
		dp := s.f.view(page.Data)

		for s.curSlot < dp.n {
			idx := s.curSlot
			s.curSlot++
			if !dp.isBitSet(idx) {
				continue
			}
			raw := dp.slot(idx)
			if s.hasCond {
				field := raw[s.attr.Offset : s.attr.Offset+s.attr.Length]
				if !record.Satisfies(s.attr, s.op, field, s.value) {
					continue
				}
			}
			out := make([]byte, len(raw))
			copy(out, raw)
			rid := RID{Page: s.curPage, Slot: uint16(idx + 1)}
			if err := s.f.pfh.UnpinPage(s.curPage, false); err != nil {
				return NilRID, nil, err
			}
			return rid, out, nil
		}

		if err := s.f.pfh.UnpinPage(s.curPage, false); err != nil {
			return NilRID, nil, err
		}
		s.curPage++
		s.curSlot = 0
	}

	s.closed = true
	return NilRID, nil, ErrEOF
}

// Close ends the scan. Idempotent.
func (s *Scan) Close() error {
	s.closed = true
	return nil
}
