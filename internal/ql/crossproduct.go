package ql

import (
	"errors"
	"fmt"

	"github.com/ntmai/redbase/internal/record"
	"github.com/ntmai/redbase/internal/rm"
)

// CrossProductOp is a nested-loop Cartesian product: for each left tuple
// it replays right from the start, per spec.md section 4.5.
type CrossProductOp struct {
	left, right Op
	schema      record.Schema

	open      bool
	leftTuple Tuple
	leftLive  bool
	rightOpen bool
}

func NewCrossProductOp(left, right Op) *CrossProductOp {
	return &CrossProductOp{left: left, right: right, schema: concatSchema(left.Schema(), right.Schema())}
}

func (c *CrossProductOp) Open() error {
	if c.open {
		return ErrAlreadyOpen
	}
	if err := c.left.Open(); err != nil {
		return err
	}
	c.open = true
	c.leftLive = false
	c.rightOpen = false
	return nil
}

// advanceLeft pulls the next left tuple and replays right from its start,
// per spec.md section 4.5 ("for each left tuple, replays the right
// child").
func (c *CrossProductOp) advanceLeft() error {
	t, err := c.left.Next()
	if err != nil {
		return err
	}
	c.leftTuple = t
	c.leftLive = true
	if c.rightOpen {
		if err := c.right.Close(); err != nil {
			return err
		}
		c.rightOpen = false
	}
	if err := c.right.Open(); err != nil {
		return err
	}
	c.rightOpen = true
	return nil
}

func (c *CrossProductOp) Next() (Tuple, error) {
	if !c.open {
		return Tuple{}, ErrNotOpen
	}
	if !c.leftLive {
		if err := c.advanceLeft(); err != nil {
			return Tuple{}, err
		}
	}
	for {
		rt, err := c.right.Next()
		if err != nil {
			if !errors.Is(err, ErrEOF) {
				return Tuple{}, err
			}
			if err := c.advanceLeft(); err != nil {
				return Tuple{}, err
			}
			continue
		}
		out := make([]byte, len(c.leftTuple.Bytes)+len(rt.Bytes))
		n := copy(out, c.leftTuple.Bytes)
		copy(out[n:], rt.Bytes)
		return Tuple{RID: rm.NilRID, Bytes: out}, nil
	}
}

func (c *CrossProductOp) Close() error {
	if !c.open {
		return nil
	}
	c.open = false
	var first error
	if c.rightOpen {
		if err := c.right.Close(); err != nil {
			first = err
		}
		c.rightOpen = false
	}
	if err := c.left.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

func (c *CrossProductOp) Schema() record.Schema { return c.schema }

func (c *CrossProductOp) Print(indent int) string {
	return fmt.Sprintf("%sCrossProduct\n%s\n%s", indentPad(indent), c.left.Print(indent+1), c.right.Print(indent+1))
}
