package ql

import (
	"fmt"
	"strings"

	"github.com/ntmai/redbase/internal/record"
)

// ProjectOp re-packs tuples to a narrowed schema with recomputed offsets,
// per spec.md section 4.5. Unlike the other operators it does not simply
// concatenate its child's schema: the whole point is to narrow it.
type ProjectOp struct {
	child  Op
	names  []string
	src    []record.Attr
	schema record.Schema
	open   bool
}

// NewProjectOp narrows child to attrNames, in the given order. A repeated
// name in attrNames is legal and repeats the source field.
func NewProjectOp(child Op, attrNames []string) (*ProjectOp, error) {
	childSchema := child.Schema()
	src := make([]record.Attr, len(attrNames))
	for i, name := range attrNames {
		a, _, ok := childSchema.Find(name)
		if !ok {
			return nil, fmt.Errorf("ql: project: unknown attribute %q", name)
		}
		src[i] = a
	}
	out := make([]record.Attr, len(src))
	offset := 0
	for i, a := range src {
		out[i] = record.Attr{Name: a.Name, Type: a.Type, Length: a.Length, Offset: offset}
		offset += a.Length
	}
	return &ProjectOp{child: child, names: attrNames, src: src, schema: record.Schema{Attrs: out}}, nil
}

func (p *ProjectOp) Open() error {
	if p.open {
		return ErrAlreadyOpen
	}
	if err := p.child.Open(); err != nil {
		return err
	}
	p.open = true
	return nil
}

func (p *ProjectOp) Next() (Tuple, error) {
	if !p.open {
		return Tuple{}, ErrNotOpen
	}
	t, err := p.child.Next()
	if err != nil {
		return Tuple{}, err
	}
	out := make([]byte, p.schema.TupleLength())
	for i, a := range p.src {
		dst := p.schema.Attrs[i]
		copy(out[dst.Offset:dst.Offset+dst.Length], t.Bytes[a.Offset:a.Offset+a.Length])
	}
	return Tuple{RID: t.RID, Bytes: out}, nil
}

func (p *ProjectOp) Close() error {
	if !p.open {
		return nil
	}
	p.open = false
	return p.child.Close()
}

func (p *ProjectOp) Schema() record.Schema { return p.schema }

func (p *ProjectOp) Print(indent int) string {
	return fmt.Sprintf("%sProject(%s)\n%s", indentPad(indent), strings.Join(p.names, ", "), p.child.Print(indent+1))
}
