// Package astshim holds the plain data types a caller uses to describe a
// query or DML statement to internal/ql. It carries no grammar and no
// parsing logic: something above this layer (a REPL, a driver program, a
// future real parser) is responsible for producing these values already
// resolved to names. This mirrors original_source/ql.h's RelAttr/
// Condition/Value shapes, minus the tokenizer/grammar that built them.
package astshim

import "github.com/ntmai/redbase/internal/record"

// RelAttr names one attribute, optionally qualified by its relation, per
// ql.h's RelAttr (relName/attrName). RelName is empty when the attribute
// name alone is unambiguous in context (a single-relation statement).
type RelAttr struct {
	RelName  string
	AttrName string
}

// Value is a literal of a known type, per ql.h's Value{type, data}. Bytes
// holds the value already encoded the way record.EncodeTuple would encode
// a field of this type (4-byte INT/FLOAT, declared-length STRING).
type Value struct {
	Type  record.AttrType
	Bytes []byte
}

// Condition is one WHERE-clause comparison: LHS op RHS, where RHS is
// either another attribute of the same relation or a literal Value, per
// ql.h's Condition{lhsAttr, op, bRhsIsAttr, rhsAttr, rhsValue}.
type Condition struct {
	LHS       RelAttr
	Op        record.CompareOp
	RHSIsAttr bool
	RHSAttr   RelAttr
	RHSValue  Value
}

// SetClause is UPDATE's "SET attr = rhs" clause: rhs is either a literal
// Value or another attribute of the same relation, per ql.h's
// QL_Manager::Update(relName, updAttr, bIsValue, rhsValue, rhsRelAttr, ...).
type SetClause struct {
	Attr      RelAttr
	RHSIsAttr bool
	RHSAttr   RelAttr
	RHSValue  Value
}

// AttrInfo describes one attribute of a table being created, per sm.h's
// AttrInfo (attrName, attrType, attrLength) passed to SM_Manager::CreateTable.
type AttrInfo struct {
	AttrName string
	Type     record.AttrType
	Length   int
}
