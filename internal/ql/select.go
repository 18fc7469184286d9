package ql

import (
	"fmt"

	"github.com/ntmai/redbase/internal/astshim"
	"github.com/ntmai/redbase/internal/record"
	"github.com/ntmai/redbase/internal/sm"
)

// NewSelect builds the operator tree for a single-relation query: an
// access-path scan chosen the same way Delete/Update choose one (spec.md
// section 4.5), a FilterOp per condition, and an optional ProjectOp. There
// is no cost-based optimizer here (spec.md's explicit Non-goal); the only
// choice made is index-scan-vs-file-scan-vs-full-scan on whichever
// condition qualifies first.
//
// The returned cleanup function must be called after the operator tree is
// closed, to release the relation file and any index handles opened for
// the scan.
func NewSelect(m *sm.Manager, relName string, attrNames []string, conditions []astshim.Condition) (Op, func() error, error) {
	schema, err := m.GetSchema(relName)
	if err != nil {
		return nil, nil, err
	}
	if err := validateConditions(relName, schema, conditions); err != nil {
		return nil, nil, err
	}

	rel, err := m.OpenRelation(relName)
	if err != nil {
		return nil, nil, err
	}

	indexedAttrs, _, err := m.IndexedAttrs(relName)
	if err != nil {
		_ = rel.Close()
		return nil, nil, err
	}
	trees, err := openIndexTrees(m, relName, indexedAttrs)
	if err != nil {
		_ = rel.Close()
		return nil, nil, err
	}
	cleanup := func() error {
		first := closeIndexTrees(trees)
		if err := rel.Close(); err != nil && first == nil {
			first = err
		}
		return first
	}

	plan := chooseScanPlan(schema, conditions, indexedAttrs)
	var op Op
	switch plan.Kind {
	case scanIndex:
		op = NewIndexScanOp(relName, plan.Attr.Name, trees[plan.Attr.Name], rel, schema, plan.Op, plan.Value)
	case scanFile:
		op = NewFileScanOp(relName, rel, schema, plan.Attr, plan.Op, plan.Value)
	default:
		op = NewFileScanOp(relName, rel, schema, record.Attr{}, record.NoOp, nil)
	}

	for _, c := range conditions {
		op, err = NewFilterOp(op, c)
		if err != nil {
			_ = cleanup()
			return nil, nil, err
		}
	}

	if len(attrNames) > 0 {
		proj, err := NewProjectOp(op, attrNames)
		if err != nil {
			_ = cleanup()
			return nil, nil, fmt.Errorf("ql: select %s: %w", relName, err)
		}
		op = proj
	}
	return op, cleanup, nil
}
