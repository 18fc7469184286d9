package ix

import (
	"github.com/ntmai/redbase/internal/bx"
	"github.com/ntmai/redbase/internal/pf"
	"github.com/ntmai/redbase/internal/rm"
)

// A bucket page holds the overflow RIDs for one duplicate key value once a
// leaf's single inline child slot is not enough: header {count, capacity,
// nextBucket} followed by a flat RID array. nextBucket chains to another
// bucket page when capacity is exceeded, per spec.md section 4.3's explicit
// duplicate-key bucket chain requirement (the original left this field
// commented out; here it is live).
const (
	bucketCountOff      = 0
	bucketCapacityOff   = 4
	bucketNextBucketOff = 8
	bucketHeaderSize    = 12
	bucketRIDSize       = 6 // PageNum(4) + slot(2)
)

func bucketCapacity() int {
	return (pf.PageSize - bucketHeaderSize) / bucketRIDSize
}

type bucket struct {
	data []byte
}

func newBucketView(data []byte) *bucket {
	return &bucket{data: data}
}

func (b *bucket) count() int      { return int(bx.I32(b.data[bucketCountOff:])) }
func (b *bucket) setCount(c int)  { bx.PutI32(b.data[bucketCountOff:], int32(c)) }
func (b *bucket) capacity() int   { return int(bx.I32(b.data[bucketCapacityOff:])) }
func (b *bucket) nextBucket() pf.PageNum {
	return pf.PageNum(bx.I32(b.data[bucketNextBucketOff:]))
}
func (b *bucket) setNextBucket(p pf.PageNum) {
	bx.PutI32(b.data[bucketNextBucketOff:], int32(p))
}

func (b *bucket) initEmpty() {
	for i := range b.data {
		b.data[i] = 0
	}
	bx.PutI32(b.data[bucketCapacityOff:], int32(bucketCapacity()))
	b.setNextBucket(pf.NoPage)
}

func (b *bucket) ridAt(i int) rm.RID {
	off := bucketHeaderSize + i*bucketRIDSize
	return rm.RID{Page: pf.PageNum(bx.I32(b.data[off:])), Slot: bx.U16(b.data[off+4:])}
}

func (b *bucket) setRIDAt(i int, rid rm.RID) {
	off := bucketHeaderSize + i*bucketRIDSize
	bx.PutI32(b.data[off:], int32(rid.Page))
	bx.PutU16(b.data[off+4:], rid.Slot)
}

// append adds rid to the bucket if there is room, returning ok=false when
// full (the caller must chain a new bucket page).
func (b *bucket) append(rid rm.RID) bool {
	c := b.count()
	if c >= b.capacity() {
		return false
	}
	b.setRIDAt(c, rid)
	b.setCount(c + 1)
	return true
}

// removeAt deletes the entry at index i, compacting the tail.
func (b *bucket) removeAt(i int) {
	c := b.count()
	for j := i; j < c-1; j++ {
		b.setRIDAt(j, b.ridAt(j+1))
	}
	b.setCount(c - 1)
}

// find returns the index of rid in this bucket, or -1.
func (b *bucket) find(rid rm.RID) int {
	c := b.count()
	for i := 0; i < c; i++ {
		r := b.ridAt(i)
		if r.Page == rid.Page && r.Slot == rid.Slot {
			return i
		}
	}
	return -1
}
