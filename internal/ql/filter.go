package ql

import (
	"fmt"

	"github.com/ntmai/redbase/internal/astshim"
	"github.com/ntmai/redbase/internal/record"
)

// FilterOp evaluates one condition per tuple (attr op value or attr op
// attr) and drops non-matches, per spec.md section 4.5.
type FilterOp struct {
	child Op
	cond  astshim.Condition

	lhs     record.Attr
	rhsAttr record.Attr
	isAttr  bool

	open bool
}

// NewFilterOp resolves cond against child's schema: both attributes must
// exist and agree in type/length, checked once here rather than per
// tuple.
func NewFilterOp(child Op, cond astshim.Condition) (*FilterOp, error) {
	schema := child.Schema()
	lhs, _, ok := schema.Find(cond.LHS.AttrName)
	if !ok {
		return nil, fmt.Errorf("ql: filter: unknown attribute %q: %w", cond.LHS.AttrName, ErrInvalidCondition)
	}
	f := &FilterOp{child: child, cond: cond, lhs: lhs}
	if cond.RHSIsAttr {
		rhs, _, ok := schema.Find(cond.RHSAttr.AttrName)
		if !ok {
			return nil, fmt.Errorf("ql: filter: unknown attribute %q: %w", cond.RHSAttr.AttrName, ErrInvalidCondition)
		}
		if rhs.Type != lhs.Type || rhs.Length != lhs.Length {
			return nil, fmt.Errorf("ql: filter: %s vs %s: %w", lhs.Name, rhs.Name, ErrInvalidCondition)
		}
		f.rhsAttr = rhs
		f.isAttr = true
	} else if cond.RHSValue.Type != lhs.Type || len(cond.RHSValue.Bytes) != lhs.Length {
		return nil, fmt.Errorf("ql: filter: %s: %w", lhs.Name, ErrInvalidCondition)
	}
	return f, nil
}

func (f *FilterOp) Open() error {
	if f.open {
		return ErrAlreadyOpen
	}
	if err := f.child.Open(); err != nil {
		return err
	}
	f.open = true
	return nil
}

func (f *FilterOp) Next() (Tuple, error) {
	if !f.open {
		return Tuple{}, ErrNotOpen
	}
	for {
		t, err := f.child.Next()
		if err != nil {
			return Tuple{}, err
		}
		field := t.Bytes[f.lhs.Offset : f.lhs.Offset+f.lhs.Length]
		var rhs []byte
		if f.isAttr {
			rhs = t.Bytes[f.rhsAttr.Offset : f.rhsAttr.Offset+f.rhsAttr.Length]
		} else {
			rhs = f.cond.RHSValue.Bytes
		}
		if record.Satisfies(f.lhs, f.cond.Op, field, rhs) {
			return t, nil
		}
	}
}

func (f *FilterOp) Close() error {
	if !f.open {
		return nil
	}
	f.open = false
	return f.child.Close()
}

func (f *FilterOp) Schema() record.Schema { return f.child.Schema() }

func (f *FilterOp) Print(indent int) string {
	rhs := "?"
	if f.isAttr {
		rhs = f.rhsAttr.Name
	}
	return fmt.Sprintf("%sFilter(%s %s %s)\n%s", indentPad(indent), f.lhs.Name, opSymbol(f.cond.Op), rhs, f.child.Print(indent+1))
}
