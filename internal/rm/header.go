package rm

import (
	"github.com/ntmai/redbase/internal/bx"
	"github.com/ntmai/redbase/internal/pf"
)

// header is the RM file header, carried verbatim per the original
// RM_FileHeaderPage: record size, records-per-page, number of data pages
// and the free-list head. It occupies PF PageNum(0); PF's own hidden
// bookkeeping lives below that, see internal/pf/file.go.
type header struct {
	recordSize    int32
	slotsPerPage  int32
	numberPages   int32 // count of data pages (excludes the header page itself)
	firstFreePage pf.PageNum
}

const (
	hdrRecordSizeOff   = 0
	hdrSlotsPerPageOff = 4
	hdrNumberPagesOff  = 8
	hdrFirstFreeOff    = 12
)

func (h *header) decode(data []byte) {
	h.recordSize = bx.I32(data[hdrRecordSizeOff:])
	h.slotsPerPage = bx.I32(data[hdrSlotsPerPageOff:])
	h.numberPages = bx.I32(data[hdrNumberPagesOff:])
	h.firstFreePage = pf.PageNum(bx.I32(data[hdrFirstFreeOff:]))
}

func (h *header) encode(data []byte) {
	bx.PutI32(data[hdrRecordSizeOff:], h.recordSize)
	bx.PutI32(data[hdrSlotsPerPageOff:], h.slotsPerPage)
	bx.PutI32(data[hdrNumberPagesOff:], h.numberPages)
	bx.PutI32(data[hdrFirstFreeOff:], int32(h.firstFreePage))
}
