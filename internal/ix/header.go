package ix

import (
	"github.com/ntmai/redbase/internal/bx"
	"github.com/ntmai/redbase/internal/pf"
	"github.com/ntmai/redbase/internal/record"
)

// header is the IX file header, occupying PF PageNum(0): the indexed
// attribute's type/length (so keys can be compared with record.CompareField
// without a separate catalog lookup), the root node's page number, and the
// node degree computed once at creation time from the key length.
type header struct {
	attrType  record.AttrType
	keyLen    int32
	rootPage  pf.PageNum
	degree    int32
	nodeCount int32 // pages ever allocated as node/bucket pages, for diagnostics only
}

const (
	hdrAttrTypeOff  = 0
	hdrKeyLenOff    = 4
	hdrRootPageOff  = 8
	hdrDegreeOff    = 12
	hdrNodeCountOff = 16
)

func (h *header) decode(data []byte) {
	h.attrType = record.AttrType(bx.I32(data[hdrAttrTypeOff:]))
	h.keyLen = bx.I32(data[hdrKeyLenOff:])
	h.rootPage = pf.PageNum(bx.I32(data[hdrRootPageOff:]))
	h.degree = bx.I32(data[hdrDegreeOff:])
	h.nodeCount = bx.I32(data[hdrNodeCountOff:])
}

func (h *header) encode(data []byte) {
	bx.PutI32(data[hdrAttrTypeOff:], int32(h.attrType))
	bx.PutI32(data[hdrKeyLenOff:], h.keyLen)
	bx.PutI32(data[hdrRootPageOff:], int32(h.rootPage))
	bx.PutI32(data[hdrDegreeOff:], h.degree)
	bx.PutI32(data[hdrNodeCountOff:], h.nodeCount)
}

func (h *header) attr() record.Attr {
	return record.Attr{Type: h.attrType, Length: int(h.keyLen)}
}
