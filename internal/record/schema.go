// Package record defines the three fixed-width attribute types the engine
// supports (INT, FLOAT, STRING) and the byte-level tuple codec RM pages
// and IX keys are built from.
package record

import "fmt"

// Limits on catalog identifiers and relation shape, named after the
// original's MAXNAME/MAXATTRS/MAXSTRINGLEN constants.
const (
	MaxName      = 24
	MaxAttrs     = 40
	MaxStringLen = 255
)

// AttrType is one of the three fixed-width value domains spec.md section 3
// defines. INT and FLOAT are always 4 bytes; STRING carries its own
// declared length.
type AttrType int

const (
	AttrInt AttrType = iota
	AttrFloat
	AttrString
)

func (t AttrType) String() string {
	switch t {
	case AttrInt:
		return "INT"
	case AttrFloat:
		return "FLOAT"
	case AttrString:
		return "STRING"
	default:
		return "UNKNOWN"
	}
}

// FixedLength returns the on-disk length of the type, or 0 for STRING
// (whose length is declared per-attribute).
func (t AttrType) FixedLength() int {
	switch t {
	case AttrInt, AttrFloat:
		return 4
	default:
		return 0
	}
}

// Attr describes one column: its type, declared length (4 for INT/FLOAT,
// 1..MaxStringLen for STRING) and byte offset within the tuple.
type Attr struct {
	Name   string
	Type   AttrType
	Length int
	Offset int
}

// Schema is the ordered attribute list of a relation, matching one or more
// attrcat rows.
type Schema struct {
	Attrs []Attr
}

// NewSchema assigns offsets left to right with no alignment padding beyond
// each attribute's own declared length, per spec.md section 4.4 ("no
// further alignment beyond user-declared lengths").
func NewSchema(attrs []Attr) (Schema, error) {
	if len(attrs) == 0 || len(attrs) > MaxAttrs {
		return Schema{}, fmt.Errorf("record: attribute count %d out of range [1,%d]", len(attrs), MaxAttrs)
	}
	out := make([]Attr, len(attrs))
	offset := 0
	for i, a := range attrs {
		if a.Type == AttrString {
			if a.Length < 1 || a.Length > MaxStringLen {
				return Schema{}, fmt.Errorf("record: attribute %q string length %d out of range", a.Name, a.Length)
			}
		} else {
			a.Length = a.Type.FixedLength()
		}
		a.Offset = offset
		offset += a.Length
		out[i] = a
	}
	return Schema{Attrs: out}, nil
}

// TupleLength is the fixed byte width of one record under this schema.
func (s Schema) TupleLength() int {
	n := 0
	for _, a := range s.Attrs {
		n += a.Length
	}
	return n
}

// Find looks up an attribute by name.
func (s Schema) Find(name string) (Attr, int, bool) {
	for i, a := range s.Attrs {
		if a.Name == name {
			return a, i, true
		}
	}
	return Attr{}, -1, false
}
