package rm

import (
	"github.com/ntmai/redbase/internal/bx"
	"github.com/ntmai/redbase/internal/pf"
)

// A data page is laid out as:
//
//	[4 bytes: next-free-page PageNum][bitmap: ceil(N/8) bytes][N fixed-size slots]
//
// N is chosen at file creation as the largest count that fits, per
// spec.md section 3.
const pageHeaderSize = 4

// slotsPerPage returns the largest N such that
// pageHeaderSize + ceil(N/8) + N*recordSize <= pf.PageSize.
func slotsPerPage(recordSize int) int {
	if recordSize <= 0 {
		return 0
	}
	n := 0
	for {
		bitmapBytes := (n + 1 + 7) / 8
		total := pageHeaderSize + bitmapBytes + (n+1)*recordSize
		if total > pf.PageSize {
			break
		}
		n++
	}
	return n
}

// dataPage is a view over one RM data page's raw bytes.
type dataPage struct {
	data       []byte
	recordSize int
	n          int
	bitmapOff  int
	slotsOff   int
}

func newDataPageView(data []byte, recordSize, n int) *dataPage {
	bitmapBytes := (n + 7) / 8
	return &dataPage{
		data:       data,
		recordSize: recordSize,
		n:          n,
		bitmapOff:  pageHeaderSize,
		slotsOff:   pageHeaderSize + bitmapBytes,
	}
}

func (p *dataPage) nextFreePage() pf.PageNum {
	return pf.PageNum(bx.I32(p.data[0:4]))
}

func (p *dataPage) setNextFreePage(num pf.PageNum) {
	bx.PutI32(p.data[0:4], int32(num))
}

func (p *dataPage) initEmpty(next pf.PageNum) {
	for i := range p.data {
		p.data[i] = 0
	}
	p.setNextFreePage(next)
}

func (p *dataPage) isBitSet(i int) bool {
	b := p.data[p.bitmapOff+i/8]
	return b&(1<<uint(i%8)) != 0
}

func (p *dataPage) setBit(i int) {
	p.data[p.bitmapOff+i/8] |= 1 << uint(i%8)
}

func (p *dataPage) clearBit(i int) {
	p.data[p.bitmapOff+i/8] &^= 1 << uint(i%8)
}

// firstZeroBit returns the lowest-index unset slot, or ok=false if every
// slot is occupied.
func (p *dataPage) firstZeroBit() (int, bool) {
	for i := 0; i < p.n; i++ {
		if !p.isBitSet(i) {
			return i, true
		}
	}
	return -1, false
}

// allOnes reports whether every slot bit is set (the page is full).
func (p *dataPage) allOnes() bool {
	_, ok := p.firstZeroBit()
	return !ok
}

func (p *dataPage) slot(i int) []byte {
	off := p.slotsOff + i*p.recordSize
	return p.data[off : off+p.recordSize]
}
