package ql

import (
	"errors"
	"fmt"

	"github.com/ntmai/redbase/internal/ix"
	"github.com/ntmai/redbase/internal/record"
	"github.com/ntmai/redbase/internal/rm"
)

// IndexScanOp opens relName.attrName's index and translates each RID the
// tree yields into a full tuple via rel, per spec.md section 4.5.
type IndexScanOp struct {
	relName, attrName string
	tree              *ix.Tree
	rel               *rm.FileHandle
	schema            record.Schema
	op                record.CompareOp
	value             []byte

	scan *ix.Scan
	open bool
}

func NewIndexScanOp(relName, attrName string, tree *ix.Tree, rel *rm.FileHandle, schema record.Schema, op record.CompareOp, value []byte) *IndexScanOp {
	return &IndexScanOp{relName: relName, attrName: attrName, tree: tree, rel: rel, schema: schema, op: op, value: value}
}

func (s *IndexScanOp) Open() error {
	if s.open {
		return ErrAlreadyOpen
	}
	scan, err := s.tree.OpenScan(s.op, s.value)
	if err != nil {
		return err
	}
	s.scan = scan
	s.open = true
	return nil
}

func (s *IndexScanOp) Next() (Tuple, error) {
	if !s.open {
		return Tuple{}, ErrNotOpen
	}
	rid, err := s.scan.Next()
	if err != nil {
		if errors.Is(err, ix.ErrEOF) {
			return Tuple{}, ErrEOF
		}
		return Tuple{}, err
	}
	buf, err := s.rel.GetRecord(rid)
	if err != nil {
		return Tuple{}, err
	}
	return Tuple{RID: rid, Bytes: buf}, nil
}

func (s *IndexScanOp) Close() error {
	if !s.open {
		return nil
	}
	s.open = false
	return s.scan.Close()
}

func (s *IndexScanOp) Schema() record.Schema { return s.schema }

func (s *IndexScanOp) Print(indent int) string {
	return fmt.Sprintf("%sIndexScan(%s.%s %s ?)", indentPad(indent), s.relName, s.attrName, opSymbol(s.op))
}
