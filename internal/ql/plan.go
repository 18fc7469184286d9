package ql

import (
	"errors"

	"github.com/ntmai/redbase/internal/astshim"
	"github.com/ntmai/redbase/internal/ix"
	"github.com/ntmai/redbase/internal/record"
	"github.com/ntmai/redbase/internal/rm"
	"github.com/ntmai/redbase/internal/sm"
)

// tupleSource yields (RID, tuple bytes) pairs. *rm.Scan.Next already has
// this exact signature; indexSource adapts an *ix.Scan to it, so
// Delete/Update can drive either access path through one loop.
type tupleSource func() (rm.RID, []byte, error)

func indexSource(scan *ix.Scan, rel *rm.FileHandle) tupleSource {
	return func() (rm.RID, []byte, error) {
		rid, err := scan.Next()
		if err != nil {
			return rm.NilRID, nil, err
		}
		buf, err := rel.GetRecord(rid)
		if err != nil {
			return rm.NilRID, nil, err
		}
		return rid, buf, nil
	}
}

func isSourceEOF(err error) bool {
	return errors.Is(err, rm.ErrEOF) || errors.Is(err, ix.ErrEOF)
}

type scanKind int

const (
	scanFull scanKind = iota
	scanFile
	scanIndex
)

// scanPlan is the Delete/Update access-path choice of spec.md section
// 4.5: an index on an indexed attribute beats a conditional file scan,
// which beats a full scan.
type scanPlan struct {
	Kind  scanKind
	Attr  record.Attr
	Op    record.CompareOp
	Value []byte
}

func chooseScanPlan(schema record.Schema, conditions []astshim.Condition, indexedAttrs []record.Attr) scanPlan {
	indexed := make(map[string]bool, len(indexedAttrs))
	for _, a := range indexedAttrs {
		indexed[a.Name] = true
	}
	for _, c := range conditions {
		if c.RHSIsAttr || c.Op == record.NoOp {
			continue
		}
		attr, _, ok := schema.Find(c.LHS.AttrName)
		if !ok || !indexed[attr.Name] {
			continue
		}
		return scanPlan{Kind: scanIndex, Attr: attr, Op: c.Op, Value: c.RHSValue.Bytes}
	}
	for _, c := range conditions {
		if c.RHSIsAttr {
			continue
		}
		attr, _, ok := schema.Find(c.LHS.AttrName)
		if !ok {
			continue
		}
		return scanPlan{Kind: scanFile, Attr: attr, Op: c.Op, Value: c.RHSValue.Bytes}
	}
	return scanPlan{Kind: scanFull}
}

// openPlanScan opens the chosen plan against trees, the relation's
// already-open index handles keyed by attribute name. Delete/Update share
// one *ix.Tree instance per attribute between the scan cursor and their
// own index maintenance, rather than opening the same file twice.
func openPlanScan(plan scanPlan, rel *rm.FileHandle, trees map[string]*ix.Tree) (tupleSource, func() error, error) {
	switch plan.Kind {
	case scanIndex:
		scan, err := trees[plan.Attr.Name].OpenScan(plan.Op, plan.Value)
		if err != nil {
			return nil, nil, err
		}
		return indexSource(scan, rel), scan.Close, nil
	case scanFile:
		s := rel.OpenScan(plan.Attr, plan.Op, plan.Value)
		return s.Next, s.Close, nil
	default:
		s := rel.OpenScan(record.Attr{}, record.NoOp, nil)
		return s.Next, s.Close, nil
	}
}

// openIndexTrees opens one *ix.Tree per attribute, for callers that need
// every index on a relation open at once (Insert/Delete/Update).
func openIndexTrees(m *sm.Manager, relName string, attrs []record.Attr) (map[string]*ix.Tree, error) {
	trees := make(map[string]*ix.Tree, len(attrs))
	for _, a := range attrs {
		t, err := m.OpenIndex(relName, a.Name)
		if err != nil {
			_ = closeIndexTrees(trees)
			return nil, err
		}
		trees[a.Name] = t
	}
	return trees, nil
}

func closeIndexTrees(trees map[string]*ix.Tree) error {
	var first error
	for _, t := range trees {
		if err := t.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
