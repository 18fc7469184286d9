package ql

import (
	"fmt"
	"log/slog"

	"github.com/ntmai/redbase/internal/record"
	"github.com/ntmai/redbase/internal/rm"
	"github.com/ntmai/redbase/internal/sm"
)

// Insert writes values (one per attribute, in declaration order) to
// relName's RM file and then into every index on relName, per spec.md
// section 4.5.
func Insert(m *sm.Manager, relName string, values []any) (rm.RID, error) {
	schema, err := m.GetSchema(relName)
	if err != nil {
		return rm.NilRID, err
	}
	if len(values) != len(schema.Attrs) {
		return rm.NilRID, fmt.Errorf("ql: insert into %s: %w: got %d values, want %d", relName, ErrArityMismatch, len(values), len(schema.Attrs))
	}
	buf, err := record.EncodeTuple(schema, values)
	if err != nil {
		return rm.NilRID, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
	}

	rel, err := m.OpenRelation(relName)
	if err != nil {
		return rm.NilRID, err
	}
	defer rel.Close()

	rid, err := rel.InsertRecord(buf)
	if err != nil {
		return rm.NilRID, err
	}

	indexedAttrs, _, err := m.IndexedAttrs(relName)
	if err != nil {
		return rid, err
	}
	trees, err := openIndexTrees(m, relName, indexedAttrs)
	if err != nil {
		return rid, err
	}
	defer closeIndexTrees(trees)
	for _, a := range indexedAttrs {
		key := buf[a.Offset : a.Offset+a.Length]
		if err := trees[a.Name].Insert(key, rid); err != nil {
			return rid, err
		}
	}
	slog.Debug("ql: inserted tuple", "relation", relName, "rid", rid)
	return rid, nil
}
