package ix

import (
	"github.com/ntmai/redbase/internal/bx"
	"github.com/ntmai/redbase/internal/pf"
	"github.com/ntmai/redbase/internal/rm"
)

// NodeKind is one of the four B+-tree node roles spec.md section 3 names.
// A fresh tree starts as a single RootLeaf; its first split promotes it to
// RootInternal with two Leaf children; a root collapse during delete may
// revert it to RootLeaf.
type NodeKind uint8

const (
	RootLeaf NodeKind = iota
	RootInternal
	Internal
	Leaf
)

func (k NodeKind) IsLeaf() bool { return k == RootLeaf || k == Leaf }
func (k NodeKind) IsRoot() bool { return k == RootLeaf || k == RootInternal }

// childState tags the union a child value holds, per spec.md section 3:
// empty, page-only (an internal child or a bucket head), or rid-filled (a
// single RID inlined at a leaf).
type childState uint8

const (
	childEmpty childState = iota
	childPage
	childRID
)

// childValue is one entry of a node's capacity+1 child array.
type childValue struct {
	state childState
	page  pf.PageNum // meaningful when state == childPage (subtree, or bucket head at a leaf)
	rid   rm.RID     // meaningful when state == childRID
}

const childValueSize = 1 + 4 + 2 // state + pageNum + slot

func encodeChild(cv childValue, dst []byte) {
	dst[0] = byte(cv.state)
	switch cv.state {
	case childPage:
		bx.PutU32(dst[1:5], uint32(int32(cv.page)))
		bx.PutU16(dst[5:7], 0)
	case childRID:
		bx.PutU32(dst[1:5], uint32(int32(cv.rid.Page)))
		bx.PutU16(dst[5:7], cv.rid.Slot)
	default:
		bx.PutU32(dst[1:5], uint32(int32(pf.NoPage)))
		bx.PutU16(dst[5:7], 0)
	}
}

func decodeChild(b []byte) childValue {
	state := childState(b[0])
	num := pf.PageNum(bx.I32(b[1:5]))
	slot := bx.U16(b[5:7])
	switch state {
	case childPage:
		return childValue{state: childPage, page: num}
	case childRID:
		return childValue{state: childRID, rid: rm.RID{Page: num, Slot: slot}}
	default:
		return childValue{state: childEmpty}
	}
}

// node header layout: keyCount(4) capacity(4) kind(1) parent(4) left(4)
const (
	nodeKeyCountOff = 0
	nodeCapacityOff = 4
	nodeKindOff     = 8
	nodeParentOff   = 9
	nodeLeftOff     = 13
	nodeHeaderSize  = 17
)

// degreeFor returns the node capacity d (max keys per node) such that a
// node of this keyLen fits in one page, per spec.md section 4.3
// ("Fan-out d is computed at file creation from attribute length").
func degreeFor(keyLen int) int {
	d := 0
	for {
		total := nodeHeaderSize + (d+1)*keyLen + (d+2)*childValueSize
		if total > pf.PageSize {
			break
		}
		d++
	}
	return d
}

// node is a view over one index node page's raw bytes.
type node struct {
	data     []byte
	keyLen   int
	capacity int
}

func newNodeView(data []byte, keyLen, capacity int) *node {
	return &node{data: data, keyLen: keyLen, capacity: capacity}
}

func (n *node) keyCount() int        { return int(bx.I32(n.data[nodeKeyCountOff:])) }
func (n *node) setKeyCount(c int)    { bx.PutI32(n.data[nodeKeyCountOff:], int32(c)) }
func (n *node) kind() NodeKind       { return NodeKind(n.data[nodeKindOff]) }
func (n *node) setKind(k NodeKind)   { n.data[nodeKindOff] = byte(k) }
func (n *node) parent() pf.PageNum   { return pf.PageNum(bx.I32(n.data[nodeParentOff:])) }
func (n *node) setParent(p pf.PageNum) { bx.PutI32(n.data[nodeParentOff:], int32(p)) }
func (n *node) left() pf.PageNum     { return pf.PageNum(bx.I32(n.data[nodeLeftOff:])) }
func (n *node) setLeft(p pf.PageNum) { bx.PutI32(n.data[nodeLeftOff:], int32(p)) }

func (n *node) initEmpty(kind NodeKind) {
	for i := range n.data {
		n.data[i] = 0
	}
	n.setKind(kind)
	n.setParent(pf.NoPage)
	n.setLeft(pf.NoPage)
	for i := 0; i <= n.capacity; i++ {
		n.setChild(i, childValue{state: childEmpty})
	}
}

func (n *node) keysOff() int { return nodeHeaderSize }
func (n *node) childrenOff() int {
	return nodeHeaderSize + n.capacity*n.keyLen
}

func (n *node) key(i int) []byte {
	off := n.keysOff() + i*n.keyLen
	return n.data[off : off+n.keyLen]
}

func (n *node) setKey(i int, b []byte) {
	copy(n.key(i), b)
}

func (n *node) child(i int) childValue {
	off := n.childrenOff() + i*childValueSize
	return decodeChild(n.data[off : off+childValueSize])
}

func (n *node) setChild(i int, cv childValue) {
	off := n.childrenOff() + i*childValueSize
	encodeChild(cv, n.data[off:off+childValueSize])
}

// insertKeyChildAt shifts keys[i:] and children[i+1:] right by one slot
// and writes key/child at index i / i+1. Used when inserting into an
// internal node after a child split promotes a median key.
func (n *node) insertKeyChildAt(i int, key []byte, rightChild childValue) {
	kc := n.keyCount()
	for j := kc; j > i; j-- {
		n.setKey(j, n.key(j-1))
	}
	for j := kc + 1; j > i+1; j-- {
		n.setChild(j, n.child(j-1))
	}
	n.setKey(i, key)
	n.setChild(i+1, rightChild)
	n.setKeyCount(kc + 1)
}

// insertLeafEntryAt shifts keys/children[i:] right by one and writes a new
// (key, value) pair for a leaf node.
func (n *node) insertLeafEntryAt(i int, key []byte, value childValue) {
	kc := n.keyCount()
	for j := kc; j > i; j-- {
		n.setKey(j, n.key(j-1))
		n.setChild(j, n.child(j-1))
	}
	n.setKey(i, key)
	n.setChild(i, value)
	n.setKeyCount(kc + 1)
}

// removeLeafEntryAt removes the (key, value) pair at index i in a leaf.
func (n *node) removeLeafEntryAt(i int) {
	kc := n.keyCount()
	for j := i; j < kc-1; j++ {
		n.setKey(j, n.key(j+1))
		n.setChild(j, n.child(j+1))
	}
	n.setChild(kc-1, childValue{state: childEmpty})
	n.setKeyCount(kc - 1)
}

// removeInternalChildAt removes the child pointer at childIdx along with
// one adjacent separator key (the key to its right, or its left if
// childIdx is the last child), shifting the remaining keys/children left.
func (n *node) removeInternalChildAt(childIdx int) {
	kc := n.keyCount()
	keyIdx := childIdx
	if keyIdx >= kc {
		keyIdx = kc - 1
	}
	for j := keyIdx; j < kc-1; j++ {
		n.setKey(j, n.key(j+1))
	}
	for j := childIdx; j < kc; j++ {
		n.setChild(j, n.child(j+1))
	}
	n.setChild(kc, childValue{state: childEmpty})
	n.setKeyCount(kc - 1)
}
