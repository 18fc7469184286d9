package ix

import (
	"errors"

	"github.com/ntmai/redbase/internal/pf"
	"github.com/ntmai/redbase/internal/record"
	"github.com/ntmai/redbase/internal/rm"
)

// Scan iterates the RIDs an index stores under a condition (op, value),
// per spec.md section 4.3. A nil value or record.NoOp yields every entry
// in ascending key order. Scan remembers the last key it returned, not a
// raw leaf position, and relocates by value on every call: a Delete of an
// already-returned entry (or any other entry) made through the same Tree
// between Next calls can shift, split, merge or free leaf pages, but
// cannot make the scan skip or repeat a surviving sibling entry.
type Scan struct {
	t   *Tree
	op  record.CompareOp
	val []byte

	pending []rm.RID

	curLeaf   pf.PageNum // only meaningful while !haveLast, set by OpenScan
	lastKey   []byte
	haveLast  bool
	exhausted bool
}

// OpenScan opens a scan. A nil value forces NoOp, matching rm's file scan.
func (t *Tree) OpenScan(op record.CompareOp, value []byte) (*Scan, error) {
	if value == nil {
		op = record.NoOp
	}
	s := &Scan{t: t, op: op, val: value}

	if op == record.EqOp {
		rids, err := t.Get(value)
		if err != nil {
			if errors.Is(err, ErrKeyNotFound) {
				s.exhausted = true
				return s, nil
			}
			return nil, err
		}
		s.pending = rids
		return s, nil
	}

	var start pf.PageNum
	var err error
	switch op {
	case record.GtOp, record.GeOp:
		start, err = t.findLeaf(value)
	default: // NoOp, LtOp, LeOp, NeOp: must see every key from the start
		start, err = t.leftmostLeafFrom(t.hdr.rootPage)
	}
	if err != nil {
		return nil, err
	}
	s.curLeaf = start
	return s, nil
}

// Next returns the next matching RID, or ErrEOF once the scan is done.
func (s *Scan) Next() (rm.RID, error) {
	if s.op == record.EqOp {
		if len(s.pending) == 0 {
			return rm.NilRID, ErrEOF
		}
		r := s.pending[0]
		s.pending = s.pending[1:]
		return r, nil
	}

	for {
		if len(s.pending) > 0 {
			r := s.pending[0]
			s.pending = s.pending[1:]
			return r, nil
		}
		if s.exhausted {
			return rm.NilRID, ErrEOF
		}

		key, cv, err := s.advance()
		if err != nil {
			return rm.NilRID, err
		}
		if key == nil {
			s.exhausted = true
			return rm.NilRID, ErrEOF
		}

		attr := s.t.attr()
		if s.op == record.LtOp && record.CompareField(attr, key, s.val) >= 0 {
			s.exhausted = true
			return rm.NilRID, ErrEOF
		}
		if s.op == record.LeOp && record.CompareField(attr, key, s.val) > 0 {
			s.exhausted = true
			return rm.NilRID, ErrEOF
		}
		if !record.Satisfies(attr, s.op, key, s.val) {
			continue
		}

		switch cv.state {
		case childRID:
			return cv.rid, nil
		case childPage:
			rids, err := s.t.collectBucketChain(cv.page)
			if err != nil {
				return rm.NilRID, err
			}
			if len(rids) == 0 {
				continue
			}
			s.pending = rids[1:]
			return rids[0], nil
		default:
			return rm.NilRID, ErrInconsistentNode
		}
	}
}

// advance locates the smallest leaf entry greater than the last key this
// scan returned (or the first entry of the scan's start leaf, if nothing
// has been returned yet) and records it as the new last key. It returns a
// nil key once the index has no entry left. Locating by value rather than
// by a remembered leaf/index lets it recover correctly even if the prior
// entry's leaf was merged or freed by a Delete since the previous call.
func (s *Scan) advance() ([]byte, childValue, error) {
	var leafNum pf.PageNum
	var err error
	if s.haveLast {
		leafNum, err = s.t.findLeaf(s.lastKey)
		if err != nil {
			return nil, childValue{}, err
		}
	} else {
		leafNum = s.curLeaf
	}

	attr := s.t.attr()
	for leafNum != pf.NoPage {
		leaf, _, err := s.t.loadNode(leafNum)
		if err != nil {
			return nil, childValue{}, err
		}

		idx := 0
		if s.haveLast {
			i, found := findKeyIndexInLeaf(attr, leaf, s.lastKey)
			idx = i
			if found {
				idx = i + 1
			}
		}

		if idx < leaf.keyCount() {
			key := append([]byte{}, leaf.key(idx)...)
			cv := leaf.child(idx)
			if err := s.t.pfh.UnpinPage(leafNum, false); err != nil {
				return nil, childValue{}, err
			}
			s.lastKey = key
			s.haveLast = true
			return key, cv, nil
		}

		if err := s.t.pfh.UnpinPage(leafNum, false); err != nil {
			return nil, childValue{}, err
		}
		next, err := s.t.nextLeafPage(leafNum)
		if err != nil {
			return nil, childValue{}, err
		}
		leafNum = next
	}
	return nil, childValue{}, nil
}

// Close ends the scan. Idempotent.
func (s *Scan) Close() error {
	s.exhausted = true
	s.pending = nil
	return nil
}

// leftmostLeafFrom descends the leftmost child path starting at num until
// it reaches a leaf.
func (t *Tree) leftmostLeafFrom(num pf.PageNum) (pf.PageNum, error) {
	cur := num
	for {
		n, _, err := t.loadNode(cur)
		if err != nil {
			return pf.NoPage, err
		}
		if n.kind().IsLeaf() {
			if err := t.pfh.UnpinPage(cur, false); err != nil {
				return pf.NoPage, err
			}
			return cur, nil
		}
		next := n.child(0).page
		if err := t.pfh.UnpinPage(cur, false); err != nil {
			return pf.NoPage, err
		}
		cur = next
	}
}

// nextLeafPage returns the leaf immediately to the right of leafNum in key
// order, or pf.NoPage once leafNum is the last leaf. It climbs parent
// pointers to find a next sibling subtree rather than relying on a
// right-sibling pointer, since node headers only carry a left pointer.
func (t *Tree) nextLeafPage(leafNum pf.PageNum) (pf.PageNum, error) {
	child := leafNum
	for {
		n, _, err := t.loadNode(child)
		if err != nil {
			return pf.NoPage, err
		}
		parent := n.parent()
		if err := t.pfh.UnpinPage(child, false); err != nil {
			return pf.NoPage, err
		}
		if parent == pf.NoPage {
			return pf.NoPage, nil
		}

		pn, _, err := t.loadNode(parent)
		if err != nil {
			return pf.NoPage, err
		}
		idx := -1
		for i := 0; i <= pn.keyCount(); i++ {
			if c := pn.child(i); c.state == childPage && c.page == child {
				idx = i
				break
			}
		}
		if idx < 0 {
			_ = t.pfh.UnpinPage(parent, false)
			return pf.NoPage, ErrInconsistentNode
		}
		if idx < pn.keyCount() {
			nextSubtree := pn.child(idx + 1).page
			if err := t.pfh.UnpinPage(parent, false); err != nil {
				return pf.NoPage, err
			}
			return t.leftmostLeafFrom(nextSubtree)
		}
		if err := t.pfh.UnpinPage(parent, false); err != nil {
			return pf.NoPage, err
		}
		child = parent
	}
}
