package ql

import (
	"fmt"
	"log/slog"

	"github.com/ntmai/redbase/internal/astshim"
	"github.com/ntmai/redbase/internal/sm"
)

// Update sets set.Attr to set.RHSValue (or the value of set.RHSAttr, for
// another attribute of the same relation and type) on every tuple of
// relName satisfying all conditions, and reports the count updated.
// Only the updated attribute's own index, if any, is deleted and
// reinserted; other indexes on relName are untouched, per spec.md
// section 4.5.
func Update(m *sm.Manager, relName string, set astshim.SetClause, conditions []astshim.Condition) (int, error) {
	schema, err := m.GetSchema(relName)
	if err != nil {
		return 0, err
	}
	if err := validateConditions(relName, schema, conditions); err != nil {
		return 0, err
	}
	updAttr, _, ok := schema.Find(set.Attr.AttrName)
	if !ok {
		return 0, fmt.Errorf("ql: unknown attribute %q: %w", set.Attr.AttrName, ErrInvalidCondition)
	}
	var rhsAttr = updAttr
	if set.RHSIsAttr {
		rhsAttr, _, ok = schema.Find(set.RHSAttr.AttrName)
		if !ok {
			return 0, fmt.Errorf("ql: unknown attribute %q: %w", set.RHSAttr.AttrName, ErrInvalidCondition)
		}
		if rhsAttr.Type != updAttr.Type || rhsAttr.Length != updAttr.Length {
			return 0, fmt.Errorf("ql: update %s from %s: %w", updAttr.Name, rhsAttr.Name, ErrTypeMismatch)
		}
	} else if set.RHSValue.Type != updAttr.Type || len(set.RHSValue.Bytes) != updAttr.Length {
		return 0, fmt.Errorf("ql: update %s: %w", updAttr.Name, ErrTypeMismatch)
	}

	rel, err := m.OpenRelation(relName)
	if err != nil {
		return 0, err
	}
	defer rel.Close()

	indexedAttrs, _, err := m.IndexedAttrs(relName)
	if err != nil {
		return 0, err
	}
	trees, err := openIndexTrees(m, relName, indexedAttrs)
	if err != nil {
		return 0, err
	}
	defer closeIndexTrees(trees)
	updTree, hasIndex := trees[updAttr.Name]

	plan := chooseScanPlan(schema, conditions, indexedAttrs)
	next, closeScan, err := openPlanScan(plan, rel, trees)
	if err != nil {
		return 0, err
	}
	defer closeScan()

	count := 0
	for {
		rid, buf, err := next()
		if err != nil {
			if isSourceEOF(err) {
				break
			}
			return count, err
		}
		if !satisfiesAll(schema, conditions, buf) {
			continue
		}

		newBuf := make([]byte, len(buf))
		copy(newBuf, buf)
		var newVal []byte
		if set.RHSIsAttr {
			newVal = buf[rhsAttr.Offset : rhsAttr.Offset+rhsAttr.Length]
		} else {
			newVal = set.RHSValue.Bytes
		}
		copy(newBuf[updAttr.Offset:updAttr.Offset+updAttr.Length], newVal)

		if hasIndex {
			oldKey := buf[updAttr.Offset : updAttr.Offset+updAttr.Length]
			if err := updTree.Delete(oldKey, rid); err != nil {
				return count, err
			}
		}
		if err := rel.UpdateRecord(rid, newBuf); err != nil {
			return count, err
		}
		if hasIndex {
			newKey := newBuf[updAttr.Offset : updAttr.Offset+updAttr.Length]
			if err := updTree.Insert(newKey, rid); err != nil {
				return count, err
			}
		}
		count++
	}
	slog.Debug("ql: updated tuples", "relation", relName, "count", count)
	return count, nil
}
