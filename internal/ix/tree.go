package ix

import (
	"github.com/ntmai/redbase/internal/pf"
	"github.com/ntmai/redbase/internal/record"
	"github.com/ntmai/redbase/internal/rm"
)

// Tree is an open B+-tree index file: one node per page, keys compared with
// record.CompareField under the attribute this index was created on.
// Duplicate keys are held as a single leaf entry that fans out into a
// bucket page chain once more than one RID shares a key, per spec.md
// section 4.3.
type Tree struct {
	pfh *pf.FileHandle
	hdr header
}

func (t *Tree) attr() record.Attr { return t.hdr.attr() }

func (t *Tree) loadNode(num pf.PageNum) (*node, *pf.Page, error) {
	page, err := t.pfh.GetThisPage(num)
	if err != nil {
		return nil, nil, err
	}
	return newNodeView(page.Data, int(t.hdr.keyLen), int(t.hdr.degree)), page, nil
}

func (t *Tree) allocateNode(kind NodeKind) (pf.PageNum, *node, *pf.Page, error) {
	page, err := t.pfh.AllocatePage()
	if err != nil {
		return pf.NoPage, nil, nil, err
	}
	n := newNodeView(page.Data, int(t.hdr.keyLen), int(t.hdr.degree))
	n.initEmpty(kind)
	t.hdr.nodeCount++
	return page.Num, n, page, nil
}

func (t *Tree) syncHeader() error {
	page, err := t.pfh.GetThisPage(headerPageNum)
	if err != nil {
		return err
	}
	t.hdr.encode(page.Data)
	return t.pfh.UnpinPage(headerPageNum, true)
}

// findLeaf descends from the root to the leaf that owns key, per the usual
// B+-tree rule: a child is followed whenever key is still >= the separator,
// so equal keys always route to the same leaf across repeated descents.
func (t *Tree) findLeaf(key []byte) (pf.PageNum, error) {
	attr := t.attr()
	cur := t.hdr.rootPage
	for {
		n, page, err := t.loadNode(cur)
		if err != nil {
			return pf.NoPage, err
		}
		if n.kind().IsLeaf() {
			if err := t.pfh.UnpinPage(cur, false); err != nil {
				return pf.NoPage, err
			}
			return cur, nil
		}
		i := 0
		for i < n.keyCount() && record.CompareField(attr, key, n.key(i)) >= 0 {
			i++
		}
		next := n.child(i).page
		if err := t.pfh.UnpinPage(cur, false); err != nil {
			return pf.NoPage, err
		}
		cur = next
	}
}

func findKeyIndexInLeaf(attr record.Attr, n *node, key []byte) (int, bool) {
	count := n.keyCount()
	for i := 0; i < count; i++ {
		c := record.CompareField(attr, key, n.key(i))
		if c == 0 {
			return i, true
		}
		if c < 0 {
			return i, false
		}
	}
	return count, false
}

// Insert adds (key, rid). A second insert of the same (key, rid) pair
// returns ErrEntryExists; a second rid under an existing key is chained
// into a bucket page rather than rejected.
func (t *Tree) Insert(key []byte, rid rm.RID) error {
	attr := t.attr()
	leafNum, err := t.findLeaf(key)
	if err != nil {
		return err
	}
	leaf, page, err := t.loadNode(leafNum)
	if err != nil {
		return err
	}
	i, found := findKeyIndexInLeaf(attr, leaf, key)
	if found {
		cv := leaf.child(i)
		switch cv.state {
		case childRID:
			if cv.rid == rid {
				_ = t.pfh.UnpinPage(leafNum, false)
				return ErrEntryExists
			}
			bucketNum, _, bpage, err := t.allocateBucket()
			if err != nil {
				_ = t.pfh.UnpinPage(leafNum, false)
				return err
			}
			bv := newBucketView(bpage.Data)
			bv.append(cv.rid)
			bv.append(rid)
			if err := t.pfh.UnpinPage(bucketNum, true); err != nil {
				return err
			}
			leaf.setChild(i, childValue{state: childPage, page: bucketNum})
			if err := t.pfh.UnpinPage(leafNum, true); err != nil {
				return err
			}
			return t.syncHeader()
		case childPage:
			ok, err := t.appendToBucketChain(cv.page, rid)
			if err != nil {
				_ = t.pfh.UnpinPage(leafNum, false)
				return err
			}
			if err := t.pfh.UnpinPage(leafNum, false); err != nil {
				return err
			}
			if !ok {
				return ErrEntryExists
			}
			return nil
		}
	}

	if leaf.keyCount() < int(t.hdr.degree) {
		leaf.insertLeafEntryAt(i, key, childValue{state: childRID, rid: rid})
		return t.pfh.UnpinPage(leafNum, true)
	}

	return t.splitLeafAndInsert(leafNum, leaf, i, key, rid)
}

// appendToBucketChain walks an existing bucket chain, rejecting an exact
// duplicate (key, rid) pair and otherwise appending rid to the first bucket
// with room, chaining a fresh bucket page if every existing one is full.
func (t *Tree) appendToBucketChain(first pf.PageNum, rid rm.RID) (bool, error) {
	cur := first
	var lastNum pf.PageNum
	for cur != pf.NoPage {
		page, err := t.pfh.GetThisPage(cur)
		if err != nil {
			return false, err
		}
		bv := newBucketView(page.Data)
		if bv.find(rid) >= 0 {
			_ = t.pfh.UnpinPage(cur, false)
			return false, nil
		}
		if bv.append(rid) {
			return true, t.pfh.UnpinPage(cur, true)
		}
		lastNum = cur
		next := bv.nextBucket()
		if err := t.pfh.UnpinPage(cur, false); err != nil {
			return false, err
		}
		cur = next
	}
	newNum, _, bpage, err := t.allocateBucket()
	if err != nil {
		return false, err
	}
	bv := newBucketView(bpage.Data)
	bv.append(rid)
	if err := t.pfh.UnpinPage(newNum, true); err != nil {
		return false, err
	}
	page, err := t.pfh.GetThisPage(lastNum)
	if err != nil {
		return false, err
	}
	newBucketView(page.Data).setNextBucket(newNum)
	return true, t.pfh.UnpinPage(lastNum, true)
}

func (t *Tree) allocateBucket() (pf.PageNum, *bucket, *pf.Page, error) {
	page, err := t.pfh.AllocatePage()
	if err != nil {
		return pf.NoPage, nil, nil, err
	}
	bv := newBucketView(page.Data)
	bv.initEmpty()
	t.hdr.nodeCount++
	return page.Num, bv, page, nil
}

// splitLeafAndInsert splits an overflowing leaf, inserting (key,val) at
// insertIdx into the conceptual merged array before dividing it, and
// promotes a copy of the right half's first key to the parent.
func (t *Tree) splitLeafAndInsert(leafNum pf.PageNum, leaf *node, insertIdx int, key []byte, rid rm.RID) error {
	originalParent := leaf.parent()
	keys, vals := mergeInsert(leaf, insertIdx, key, childValue{state: childRID, rid: rid})
	total := len(keys)
	leftCount := (total + 1) / 2

	rightNum, right, _, err := t.allocateNode(Leaf)
	if err != nil {
		return err
	}
	for i := leftCount; i < total; i++ {
		right.setKey(i-leftCount, keys[i])
		right.setChild(i-leftCount, vals[i])
	}
	right.setKeyCount(total - leftCount)
	right.setLeft(leafNum)
	right.setParent(originalParent)

	leaf.initEmpty(Leaf)
	leaf.setParent(originalParent)
	for i := 0; i < leftCount; i++ {
		leaf.setKey(i, keys[i])
		leaf.setChild(i, vals[i])
	}
	leaf.setKeyCount(leftCount)

	wasRoot := leafIsRoot(t, leafNum)
	separator := keys[leftCount]

	if err := t.pfh.UnpinPage(rightNum, true); err != nil {
		return err
	}
	if err := t.pfh.UnpinPage(leafNum, true); err != nil {
		return err
	}

	if wasRoot {
		return t.newRootAfterSplit(leafNum, rightNum, separator)
	}
	return t.insertIntoParent(originalParent, separator, leafNum, rightNum)
}

func leafIsRoot(t *Tree, num pf.PageNum) bool { return num == t.hdr.rootPage }

// newRootAfterSplit builds a fresh RootInternal page over two just-split
// children and points the file header at it.
func (t *Tree) newRootAfterSplit(leftNum, rightNum pf.PageNum, separator []byte) error {
	rootNum, root, _, err := t.allocateNode(RootInternal)
	if err != nil {
		return err
	}
	root.setKey(0, separator)
	root.setChild(0, childValue{state: childPage, page: leftNum})
	root.setChild(1, childValue{state: childPage, page: rightNum})
	root.setKeyCount(1)
	if err := t.pfh.UnpinPage(rootNum, true); err != nil {
		return err
	}

	leftPage, err := t.pfh.GetThisPage(leftNum)
	if err != nil {
		return err
	}
	newNodeView(leftPage.Data, int(t.hdr.keyLen), int(t.hdr.degree)).setParent(rootNum)
	if err := t.pfh.UnpinPage(leftNum, true); err != nil {
		return err
	}

	rightPage, err := t.pfh.GetThisPage(rightNum)
	if err != nil {
		return err
	}
	newNodeView(rightPage.Data, int(t.hdr.keyLen), int(t.hdr.degree)).setParent(rootNum)
	if err := t.pfh.UnpinPage(rightNum, true); err != nil {
		return err
	}

	t.hdr.rootPage = rootNum
	return t.syncHeader()
}

// insertIntoParent inserts separator and a pointer to rightNum just after
// leftNum in parent, splitting parent (and recursing upward) if it
// overflows.
func (t *Tree) insertIntoParent(parentNum pf.PageNum, separator []byte, leftNum, rightNum pf.PageNum) error {
	parent, _, err := t.loadNode(parentNum)
	if err != nil {
		return err
	}
	idx := -1
	for i := 0; i <= parent.keyCount(); i++ {
		if c := parent.child(i); c.state == childPage && c.page == leftNum {
			idx = i
			break
		}
	}
	if idx < 0 {
		_ = t.pfh.UnpinPage(parentNum, false)
		return ErrInconsistentNode
	}

	if parent.keyCount() < int(t.hdr.degree) {
		parent.insertKeyChildAt(idx, separator, childValue{state: childPage, page: rightNum})
		if err := t.pfh.UnpinPage(parentNum, true); err != nil {
			return err
		}
		rp, err := t.pfh.GetThisPage(rightNum)
		if err != nil {
			return err
		}
		newNodeView(rp.Data, int(t.hdr.keyLen), int(t.hdr.degree)).setParent(parentNum)
		return t.pfh.UnpinPage(rightNum, true)
	}

	return t.splitInternalAndInsert(parentNum, parent, idx, separator, rightNum)
}

func (t *Tree) splitInternalAndInsert(parentNum pf.PageNum, parent *node, insertIdx int, key []byte, rightChildNum pf.PageNum) error {
	grandparent := parent.parent()
	originalKind := parent.kind()
	keys, children := mergeInsertInternal(parent, insertIdx, key, childValue{state: childPage, page: rightChildNum})
	total := len(keys)
	leftCount := total / 2
	medianKey := keys[leftCount]

	rightNum, right, _, err := t.allocateNode(Internal)
	if err != nil {
		return err
	}
	for i := leftCount + 1; i < total; i++ {
		right.setKey(i-leftCount-1, keys[i])
	}
	for i := leftCount + 1; i < len(children); i++ {
		right.setChild(i-leftCount-1, children[i])
	}
	right.setKeyCount(total - leftCount - 1)
	right.setParent(grandparent)

	parent.initEmpty(originalKind)
	parent.setParent(grandparent)
	for i := 0; i < leftCount; i++ {
		parent.setKey(i, keys[i])
	}
	for i := 0; i <= leftCount; i++ {
		parent.setChild(i, children[i])
	}
	parent.setKeyCount(leftCount)

	if err := t.reparentChildren(right, rightNum); err != nil {
		return err
	}
	if err := t.reparentChildren(parent, parentNum); err != nil {
		return err
	}

	wasRoot := parentNum == t.hdr.rootPage
	if err := t.pfh.UnpinPage(rightNum, true); err != nil {
		return err
	}
	if err := t.pfh.UnpinPage(parentNum, true); err != nil {
		return err
	}

	if wasRoot {
		return t.newRootAfterInternalSplit(parentNum, rightNum, medianKey)
	}
	return t.insertIntoParent(grandparent, medianKey, parentNum, rightNum)
}

func (t *Tree) newRootAfterInternalSplit(leftNum, rightNum pf.PageNum, median []byte) error {
	rootNum, root, _, err := t.allocateNode(RootInternal)
	if err != nil {
		return err
	}
	root.setKey(0, median)
	root.setChild(0, childValue{state: childPage, page: leftNum})
	root.setChild(1, childValue{state: childPage, page: rightNum})
	root.setKeyCount(1)
	if err := t.pfh.UnpinPage(rootNum, true); err != nil {
		return err
	}

	leftPage, err := t.pfh.GetThisPage(leftNum)
	if err != nil {
		return err
	}
	ln := newNodeView(leftPage.Data, int(t.hdr.keyLen), int(t.hdr.degree))
	ln.setParent(rootNum)
	ln.setKind(Internal)
	if err := t.pfh.UnpinPage(leftNum, true); err != nil {
		return err
	}

	rightPage, err := t.pfh.GetThisPage(rightNum)
	if err != nil {
		return err
	}
	newNodeView(rightPage.Data, int(t.hdr.keyLen), int(t.hdr.degree)).setParent(rootNum)
	if err := t.pfh.UnpinPage(rightNum, true); err != nil {
		return err
	}

	t.hdr.rootPage = rootNum
	return t.syncHeader()
}

// reparentChildren fixes the parent pointer of every live child of n (an
// internal node) to point at num, after n's contents were rewritten by a
// split.
func (t *Tree) reparentChildren(n *node, num pf.PageNum) error {
	for i := 0; i <= n.keyCount(); i++ {
		c := n.child(i)
		if c.state != childPage {
			continue
		}
		cp, err := t.pfh.GetThisPage(c.page)
		if err != nil {
			return err
		}
		newNodeView(cp.Data, int(t.hdr.keyLen), int(t.hdr.degree)).setParent(num)
		if err := t.pfh.UnpinPage(c.page, true); err != nil {
			return err
		}
	}
	return nil
}

func mergeInsert(n *node, insertIdx int, key []byte, val childValue) ([][]byte, []childValue) {
	total := n.keyCount() + 1
	keys := make([][]byte, total)
	vals := make([]childValue, total)
	pos := 0
	for i := 0; i < n.keyCount(); i++ {
		if pos == insertIdx {
			keys[pos] = append([]byte{}, key...)
			vals[pos] = val
			pos++
		}
		keys[pos] = append([]byte{}, n.key(i)...)
		vals[pos] = n.child(i)
		pos++
	}
	if pos == insertIdx {
		keys[pos] = append([]byte{}, key...)
		vals[pos] = val
	}
	return keys, vals
}

// mergeInsertInternal is mergeInsert's counterpart for internal nodes,
// where the child array has one more entry than the key array and a new
// child is always inserted immediately after the existing child at
// insertIdx (the child insertIntoParent found leftNum at).
func mergeInsertInternal(n *node, insertIdx int, key []byte, newChild childValue) ([][]byte, []childValue) {
	oldKC := n.keyCount()

	keys := make([][]byte, oldKC+1)
	pos := 0
	for i := 0; i < oldKC; i++ {
		if pos == insertIdx {
			keys[pos] = append([]byte{}, key...)
			pos++
		}
		keys[pos] = append([]byte{}, n.key(i)...)
		pos++
	}
	if pos == insertIdx {
		keys[pos] = append([]byte{}, key...)
	}

	children := make([]childValue, oldKC+2)
	pos = 0
	for i := 0; i <= oldKC; i++ {
		children[pos] = n.child(i)
		pos++
		if pos == insertIdx+1 {
			children[pos] = newChild
			pos++
		}
	}
	return keys, children
}

// Get returns every RID stored under key, resolving a bucket chain when
// more than one rid shares it. Returns ErrKeyNotFound if key is absent.
func (t *Tree) Get(key []byte) ([]rm.RID, error) {
	leafNum, err := t.findLeaf(key)
	if err != nil {
		return nil, err
	}
	leaf, _, err := t.loadNode(leafNum)
	if err != nil {
		return nil, err
	}
	i, found := findKeyIndexInLeaf(t.attr(), leaf, key)
	if !found {
		_ = t.pfh.UnpinPage(leafNum, false)
		return nil, ErrKeyNotFound
	}
	cv := leaf.child(i)
	if err := t.pfh.UnpinPage(leafNum, false); err != nil {
		return nil, err
	}
	switch cv.state {
	case childRID:
		return []rm.RID{cv.rid}, nil
	case childPage:
		return t.collectBucketChain(cv.page)
	default:
		return nil, ErrInconsistentNode
	}
}

func (t *Tree) collectBucketChain(first pf.PageNum) ([]rm.RID, error) {
	var out []rm.RID
	cur := first
	for cur != pf.NoPage {
		page, err := t.pfh.GetThisPage(cur)
		if err != nil {
			return nil, err
		}
		bv := newBucketView(page.Data)
		for i := 0; i < bv.count(); i++ {
			out = append(out, bv.ridAt(i))
		}
		next := bv.nextBucket()
		if err := t.pfh.UnpinPage(cur, false); err != nil {
			return nil, err
		}
		cur = next
	}
	return out, nil
}

// Delete removes (key, rid). Returns ErrEntryNotFound if the pair is not
// present. A leaf that becomes completely empty is unlinked from its
// parent and deallocated; full redistribution/merging of surviving
// siblings is deliberately deferred, per spec.md section 9 - the tree
// remains searchable and correctly ordered even though it is not kept
// maximally compact.
func (t *Tree) Delete(key []byte, rid rm.RID) error {
	leafNum, err := t.findLeaf(key)
	if err != nil {
		return err
	}
	leaf, _, err := t.loadNode(leafNum)
	if err != nil {
		return err
	}
	i, found := findKeyIndexInLeaf(t.attr(), leaf, key)
	if !found {
		_ = t.pfh.UnpinPage(leafNum, false)
		return ErrEntryNotFound
	}

	cv := leaf.child(i)
	removeLeafEntry := false
	switch cv.state {
	case childRID:
		if cv.rid != rid {
			_ = t.pfh.UnpinPage(leafNum, false)
			return ErrEntryNotFound
		}
		removeLeafEntry = true
	case childPage:
		emptied, err := t.removeFromBucketChain(cv.page, rid)
		if err != nil {
			_ = t.pfh.UnpinPage(leafNum, false)
			return err
		}
		if emptied == bucketEntryMissing {
			_ = t.pfh.UnpinPage(leafNum, false)
			return ErrEntryNotFound
		}
		if emptied == bucketChainNowEmpty {
			removeLeafEntry = true
		}
	default:
		_ = t.pfh.UnpinPage(leafNum, false)
		return ErrInconsistentNode
	}

	if removeLeafEntry {
		leaf.removeLeafEntryAt(i)
	}
	nowEmpty := leaf.keyCount() == 0 && leaf.kind() != RootLeaf
	if err := t.pfh.UnpinPage(leafNum, true); err != nil {
		return err
	}
	if nowEmpty {
		return t.removeEmptyLeaf(leafNum)
	}
	return nil
}

type bucketRemoveResult int

const (
	bucketEntryMissing bucketRemoveResult = iota
	bucketEntryRemoved
	bucketChainNowEmpty
)

// removeFromBucketChain removes rid from the chain rooted at first. It
// never deallocates interior bucket pages once used, keeping chain removal
// simple; only the case where every bucket in the chain is left empty is
// reported back, so the caller can drop the leaf's pointer to the chain
// entirely (collapsing back to a direct rid once only one remains is left
// for a future pass, not required for correctness here).
func (t *Tree) removeFromBucketChain(first pf.PageNum, rid rm.RID) (bucketRemoveResult, error) {
	cur := first
	anyLeft := false
	removed := false
	for cur != pf.NoPage {
		page, err := t.pfh.GetThisPage(cur)
		if err != nil {
			return bucketEntryMissing, err
		}
		bv := newBucketView(page.Data)
		if idx := bv.find(rid); idx >= 0 {
			bv.removeAt(idx)
			removed = true
		}
		if bv.count() > 0 {
			anyLeft = true
		}
		next := bv.nextBucket()
		if err := t.pfh.UnpinPage(cur, true); err != nil {
			return bucketEntryMissing, err
		}
		cur = next
	}
	if !removed {
		return bucketEntryMissing, nil
	}
	if !anyLeft {
		return bucketChainNowEmpty, nil
	}
	return bucketEntryRemoved, nil
}

// removeEmptyLeaf unlinks a now-empty leaf from its parent and frees its
// page. If the parent itself becomes childless as a result and is the
// root, the leaf's one remaining sibling is promoted to be the new root.
func (t *Tree) removeEmptyLeaf(leafNum pf.PageNum) error {
	leaf, _, err := t.loadNode(leafNum)
	if err != nil {
		return err
	}
	parentNum := leaf.parent()
	if err := t.pfh.UnpinPage(leafNum, false); err != nil {
		return err
	}
	if err := t.pfh.DisposePage(leafNum); err != nil {
		return err
	}
	if parentNum == pf.NoPage {
		return nil
	}
	return t.removeChildFromInternal(parentNum, leafNum)
}

// removeChildFromInternal removes the pointer to target from parent. If
// parent is the root and is left with exactly one child, that child is
// promoted to replace it as the new root. A non-root parent whose only
// child was target is freed and removed from its own parent in turn.
func (t *Tree) removeChildFromInternal(parentNum, target pf.PageNum) error {
	parent, _, err := t.loadNode(parentNum)
	if err != nil {
		return err
	}
	idx := -1
	for i := 0; i <= parent.keyCount(); i++ {
		if c := parent.child(i); c.state == childPage && c.page == target {
			idx = i
			break
		}
	}
	if idx < 0 {
		_ = t.pfh.UnpinPage(parentNum, false)
		return ErrInconsistentNode
	}
	if parentNum != t.hdr.rootPage && parent.keyCount() == 0 {
		grand := parent.parent()
		if err := t.pfh.UnpinPage(parentNum, false); err != nil {
			return err
		}
		if err := t.pfh.DisposePage(parentNum); err != nil {
			return err
		}
		return t.removeChildFromInternal(grand, parentNum)
	}
	parent.removeInternalChildAt(idx)

	if parentNum == t.hdr.rootPage && parent.keyCount() == 0 {
		sole := parent.child(0)
		if err := t.pfh.UnpinPage(parentNum, true); err != nil {
			return err
		}
		if sole.state != childPage {
			return nil
		}
		if err := t.pfh.DisposePage(parentNum); err != nil {
			return err
		}
		solePage, err := t.pfh.GetThisPage(sole.page)
		if err != nil {
			return err
		}
		soleNode := newNodeView(solePage.Data, int(t.hdr.keyLen), int(t.hdr.degree))
		switch soleNode.kind() {
		case Internal:
			soleNode.setKind(RootInternal)
		case Leaf:
			soleNode.setKind(RootLeaf)
		}
		soleNode.setParent(pf.NoPage)
		if err := t.pfh.UnpinPage(sole.page, true); err != nil {
			return err
		}
		t.hdr.rootPage = sole.page
		return t.syncHeader()
	}

	return t.pfh.UnpinPage(parentNum, true)
}
