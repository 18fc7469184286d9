package ql

import (
	"errors"
	"fmt"

	"github.com/ntmai/redbase/internal/record"
	"github.com/ntmai/redbase/internal/rm"
)

// FileScanOp wraps a conditional rm.Scan, optionally pushing one
// attr-op-value predicate down to RM, per spec.md section 4.5.
type FileScanOp struct {
	relName string
	rel     *rm.FileHandle
	schema  record.Schema
	attr    record.Attr
	op      record.CompareOp
	value   []byte

	scan *rm.Scan
	open bool
}

// NewFileScanOp builds a scan over rel with schema. op/value may be
// record.NoOp/nil for an unconditional scan.
func NewFileScanOp(relName string, rel *rm.FileHandle, schema record.Schema, attr record.Attr, op record.CompareOp, value []byte) *FileScanOp {
	return &FileScanOp{relName: relName, rel: rel, schema: schema, attr: attr, op: op, value: value}
}

func (f *FileScanOp) Open() error {
	if f.open {
		return ErrAlreadyOpen
	}
	f.scan = f.rel.OpenScan(f.attr, f.op, f.value)
	f.open = true
	return nil
}

func (f *FileScanOp) Next() (Tuple, error) {
	if !f.open {
		return Tuple{}, ErrNotOpen
	}
	rid, buf, err := f.scan.Next()
	if err != nil {
		if errors.Is(err, rm.ErrEOF) {
			return Tuple{}, ErrEOF
		}
		return Tuple{}, err
	}
	return Tuple{RID: rid, Bytes: buf}, nil
}

func (f *FileScanOp) Close() error {
	if !f.open {
		return nil
	}
	f.open = false
	return f.scan.Close()
}

func (f *FileScanOp) Schema() record.Schema { return f.schema }

func (f *FileScanOp) Print(indent int) string {
	if f.op == record.NoOp {
		return fmt.Sprintf("%sFileScan(%s)", indentPad(indent), f.relName)
	}
	return fmt.Sprintf("%sFileScan(%s, %s %s ?)", indentPad(indent), f.relName, f.attr.Name, opSymbol(f.op))
}
