// Package ql is the query pipeline: physical operators (FileScan,
// IndexScan, Filter, Project, CrossProduct, NLJoin) composed into a tree
// over RM/IX, plus Insert/Delete/Update executors that drive a scan and
// maintain every index of the touched relation, per spec.md section 4.5.
package ql

import (
	"strings"

	"github.com/ntmai/redbase/internal/record"
	"github.com/ntmai/redbase/internal/rm"
)

// Tuple is one row flowing through an operator tree: its source RID when
// the operator tracks one (FileScan/IndexScan/Project pass it through)
// and rm.NilRID for tuples composed from more than one source (cross
// product/join), plus its bytes under the operator's Schema().
type Tuple struct {
	RID   rm.RID
	Bytes []byte
}

// Op is the uniform open/next/close contract every physical operator
// implements, per spec.md section 4.5. Calling Next on a closed operator
// or Open on an open one is an error, not a warning.
type Op interface {
	Open() error
	Next() (Tuple, error)
	Close() error
	Schema() record.Schema
	Print(indent int) string
}

func indentPad(indent int) string { return strings.Repeat("  ", indent) }

func opSymbol(op record.CompareOp) string {
	switch op {
	case record.EqOp:
		return "="
	case record.LtOp:
		return "<"
	case record.LeOp:
		return "<="
	case record.GtOp:
		return ">"
	case record.GeOp:
		return ">="
	case record.NeOp:
		return "!="
	default:
		return "*"
	}
}

// concatSchema appends b's attributes after a's, recomputing offsets for
// the concatenated tuple layout. Every operator concatenates its inputs'
// schemas without deduplication, per spec.md section 4.5; ProjectOp is
// the only operator that narrows.
func concatSchema(a, b record.Schema) record.Schema {
	attrs := make([]record.Attr, 0, len(a.Attrs)+len(b.Attrs))
	offset := 0
	for _, at := range a.Attrs {
		at.Offset = offset
		offset += at.Length
		attrs = append(attrs, at)
	}
	for _, at := range b.Attrs {
		at.Offset = offset
		offset += at.Length
		attrs = append(attrs, at)
	}
	return record.Schema{Attrs: attrs}
}
