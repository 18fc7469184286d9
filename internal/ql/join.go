package ql

import (
	"fmt"

	"github.com/ntmai/redbase/internal/astshim"
	"github.com/ntmai/redbase/internal/record"
)

// NLJoinOp is a CrossProductOp filtered by one equality/inequality
// condition between the two children, per spec.md section 4.5.
type NLJoinOp struct {
	cross *CrossProductOp
	cond  astshim.Condition
	lhs   record.Attr
	rhs   record.Attr
	open  bool
}

// NewNLJoinOp resolves cond against the concatenated left+right schema;
// cond must compare two attributes (one from each side, in practice).
func NewNLJoinOp(left, right Op, cond astshim.Condition) (*NLJoinOp, error) {
	cross := NewCrossProductOp(left, right)
	schema := cross.Schema()
	lhs, _, ok := schema.Find(cond.LHS.AttrName)
	if !ok {
		return nil, fmt.Errorf("ql: join: unknown attribute %q: %w", cond.LHS.AttrName, ErrInvalidCondition)
	}
	if !cond.RHSIsAttr {
		return nil, fmt.Errorf("ql: join: condition must compare two attributes: %w", ErrInvalidCondition)
	}
	rhs, _, ok := schema.Find(cond.RHSAttr.AttrName)
	if !ok {
		return nil, fmt.Errorf("ql: join: unknown attribute %q: %w", cond.RHSAttr.AttrName, ErrInvalidCondition)
	}
	if rhs.Type != lhs.Type || rhs.Length != lhs.Length {
		return nil, fmt.Errorf("ql: join: %s vs %s: %w", lhs.Name, rhs.Name, ErrInvalidCondition)
	}
	return &NLJoinOp{cross: cross, cond: cond, lhs: lhs, rhs: rhs}, nil
}

func (j *NLJoinOp) Open() error {
	if j.open {
		return ErrAlreadyOpen
	}
	if err := j.cross.Open(); err != nil {
		return err
	}
	j.open = true
	return nil
}

func (j *NLJoinOp) Next() (Tuple, error) {
	if !j.open {
		return Tuple{}, ErrNotOpen
	}
	for {
		t, err := j.cross.Next()
		if err != nil {
			return Tuple{}, err
		}
		l := t.Bytes[j.lhs.Offset : j.lhs.Offset+j.lhs.Length]
		r := t.Bytes[j.rhs.Offset : j.rhs.Offset+j.rhs.Length]
		if record.Satisfies(j.lhs, j.cond.Op, l, r) {
			return t, nil
		}
	}
}

func (j *NLJoinOp) Close() error {
	if !j.open {
		return nil
	}
	j.open = false
	return j.cross.Close()
}

func (j *NLJoinOp) Schema() record.Schema { return j.cross.Schema() }

func (j *NLJoinOp) Print(indent int) string {
	return fmt.Sprintf("%sNLJoin(%s %s %s)\n%s\n%s", indentPad(indent), j.lhs.Name, opSymbol(j.cond.Op), j.rhs.Name,
		j.cross.left.Print(indent+1), j.cross.right.Print(indent+1))
}
