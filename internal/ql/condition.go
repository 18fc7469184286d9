package ql

import (
	"fmt"

	"github.com/ntmai/redbase/internal/astshim"
	"github.com/ntmai/redbase/internal/record"
)

// validateConditions checks every condition against relName's schema
// before any I/O happens, per spec.md section 4.5: the LHS attribute must
// resolve, an attr-on-attr condition must name an attribute of the same
// relation, and both sides must agree in type and length.
func validateConditions(relName string, schema record.Schema, conditions []astshim.Condition) error {
	for _, c := range conditions {
		if c.LHS.RelName != "" && c.LHS.RelName != relName {
			return fmt.Errorf("ql: condition on %s.%s does not name %s: %w", c.LHS.RelName, c.LHS.AttrName, relName, ErrInvalidCondition)
		}
		lhs, _, ok := schema.Find(c.LHS.AttrName)
		if !ok {
			return fmt.Errorf("ql: unknown attribute %q: %w", c.LHS.AttrName, ErrInvalidCondition)
		}
		if c.RHSIsAttr {
			if c.RHSAttr.RelName != "" && c.RHSAttr.RelName != relName {
				return fmt.Errorf("ql: condition references %s.%s, not %s: %w", c.RHSAttr.RelName, c.RHSAttr.AttrName, relName, ErrInvalidCondition)
			}
			rhs, _, ok := schema.Find(c.RHSAttr.AttrName)
			if !ok {
				return fmt.Errorf("ql: unknown attribute %q: %w", c.RHSAttr.AttrName, ErrInvalidCondition)
			}
			if rhs.Type != lhs.Type || rhs.Length != lhs.Length {
				return fmt.Errorf("ql: condition %s vs %s: %w", lhs.Name, rhs.Name, ErrInvalidCondition)
			}
			continue
		}
		if c.RHSValue.Type != lhs.Type || len(c.RHSValue.Bytes) != lhs.Length {
			return fmt.Errorf("ql: condition on %s: %w", lhs.Name, ErrInvalidCondition)
		}
	}
	return nil
}

// satisfiesAll re-checks every condition against a tuple's raw bytes, the
// defensive re-check spec.md section 4.5 requires of Delete/Update since
// the chosen scan may have pushed down only one of them.
func satisfiesAll(schema record.Schema, conditions []astshim.Condition, buf []byte) bool {
	for _, c := range conditions {
		lhs, _, ok := schema.Find(c.LHS.AttrName)
		if !ok {
			return false
		}
		field := buf[lhs.Offset : lhs.Offset+lhs.Length]
		var rhs []byte
		if c.RHSIsAttr {
			rattr, _, ok := schema.Find(c.RHSAttr.AttrName)
			if !ok {
				return false
			}
			rhs = buf[rattr.Offset : rattr.Offset+rattr.Length]
		} else {
			rhs = c.RHSValue.Bytes
		}
		if !record.Satisfies(lhs, c.Op, field, rhs) {
			return false
		}
	}
	return true
}
