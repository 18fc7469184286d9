package ql

import (
	"log/slog"

	"github.com/ntmai/redbase/internal/astshim"
	"github.com/ntmai/redbase/internal/sm"
)

// Delete removes every tuple of relName satisfying all conditions,
// maintaining every index on relName, and reports the count removed.
// Access-path selection follows spec.md section 4.5: an index scan on
// an indexed attribute beats a conditional file scan, which beats a
// full scan; every candidate tuple is re-checked against all
// conditions regardless of which scan delivered it.
func Delete(m *sm.Manager, relName string, conditions []astshim.Condition) (int, error) {
	schema, err := m.GetSchema(relName)
	if err != nil {
		return 0, err
	}
	if err := validateConditions(relName, schema, conditions); err != nil {
		return 0, err
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
		for _, a := range indexedAttrs {
			key := buf[a.Offset : a.Offset+a.Length]
			if err := trees[a.Name].Delete(key, rid); err != nil {
				return count, err
			}
		}
		if err := rel.DeleteRecord(rid); err != nil {
			return count, err
		}
		count++
	}
	slog.Debug("ql: deleted tuples", "relation", relName, "count", count)
	return count, nil
}
