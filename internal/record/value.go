package record

import (
	"fmt"
	"math"

	"github.com/ntmai/redbase/internal/bx"
)

// EncodeTuple packs values (one per schema attribute, as int32/float32/
// string) into the tuple's fixed-width byte layout: INT/FLOAT 4 bytes
// two's-complement/IEEE-754, STRING right-padded with 0x00 to its
// declared length.
func EncodeTuple(schema Schema, values []any) ([]byte, error) {
	if len(values) != len(schema.Attrs) {
		return nil, fmt.Errorf("record: expected %d values, got %d", len(schema.Attrs), len(values))
	}
	buf := make([]byte, schema.TupleLength())
	for i, a := range schema.Attrs {
		field := buf[a.Offset : a.Offset+a.Length]
		if err := encodeField(a, values[i], field); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func encodeField(a Attr, v any, dst []byte) error {
	switch a.Type {
	case AttrInt:
		n, err := asInt32(v)
		if err != nil {
			return fmt.Errorf("record: attribute %q: %w", a.Name, err)
		}
		bx.PutI32(dst, n)
	case AttrFloat:
		f, err := asFloat32(v)
		if err != nil {
			return fmt.Errorf("record: attribute %q: %w", a.Name, err)
		}
		bx.PutU32(dst, math.Float32bits(f))
	case AttrString:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("record: attribute %q: expected string, got %T", a.Name, v)
		}
		if len(s) > a.Length {
			return fmt.Errorf("record: attribute %q: string %q longer than %d", a.Name, s, a.Length)
		}
		for i := range dst {
			dst[i] = 0
		}
		copy(dst, s)
	default:
		return fmt.Errorf("record: attribute %q: unknown type", a.Name)
	}
	return nil
}

// DecodeTuple unpacks a tuple's raw bytes back into []any (int32, float32,
// string), the mirror of EncodeTuple.
func DecodeTuple(schema Schema, buf []byte) ([]any, error) {
	if len(buf) != schema.TupleLength() {
		return nil, fmt.Errorf("record: tuple length %d, expected %d", len(buf), schema.TupleLength())
	}
	out := make([]any, len(schema.Attrs))
	for i, a := range schema.Attrs {
		field := buf[a.Offset : a.Offset+a.Length]
		out[i] = decodeField(a, field)
	}
	return out, nil
}

func decodeField(a Attr, field []byte) any {
	switch a.Type {
	case AttrInt:
		return bx.I32(field)
	case AttrFloat:
		return math.Float32frombits(bx.U32(field))
	case AttrString:
		n := 0
		for n < len(field) && field[n] != 0 {
			n++
		}
		return string(field[:n])
	default:
		return nil
	}
}

func asInt32(v any) (int32, error) {
	switch n := v.(type) {
	case int32:
		return n, nil
	case int:
		return int32(n), nil
	case int64:
		return int32(n), nil
	default:
		return 0, fmt.Errorf("expected int, got %T", v)
	}
}

func asFloat32(v any) (float32, error) {
	switch f := v.(type) {
	case float32:
		return f, nil
	case float64:
		return float32(f), nil
	case int:
		return float32(f), nil
	default:
		return 0, fmt.Errorf("expected float, got %T", v)
	}
}

// FieldBytes returns the encoded bytes of a single value for attribute a,
// without encoding an entire tuple: SM uses it to build the compare
// operand of its catalog scans, and cmd/redbase to encode INT/FLOAT
// literals.
func FieldBytes(a Attr, v any) ([]byte, error) {
	dst := make([]byte, a.Length)
	if err := encodeField(a, v, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// CompareOp is the set of scan comparison operators spec.md section 4.2/
// 4.3 refers to.
type CompareOp int

const (
	NoOp CompareOp = iota
	EqOp
	LtOp
	LeOp
	GtOp
	GeOp
	NeOp
)

// CompareField compares two encoded field values of the same attribute
// type/length. INT/FLOAT compare numerically; STRING compares
// lexicographically over the full declared length including any trailing
// 0x00 padding, so "x\0\0" < "xx\0" the same way a C string compare over
// fixed buffers would behave once padding is byte-identical. Returns
// -1, 0, 1.
func CompareField(a Attr, lhs, rhs []byte) int {
	switch a.Type {
	case AttrInt:
		l, r := bx.I32(lhs), bx.I32(rhs)
		switch {
		case l < r:
			return -1
		case l > r:
			return 1
		default:
			return 0
		}
	case AttrFloat:
		l := math.Float32frombits(bx.U32(lhs))
		r := math.Float32frombits(bx.U32(rhs))
		switch {
		case l < r:
			return -1
		case l > r:
			return 1
		default:
			return 0
		}
	default: // AttrString
		for i := 0; i < a.Length; i++ {
			if lhs[i] != rhs[i] {
				if lhs[i] < rhs[i] {
					return -1
				}
				return 1
			}
		}
		return 0
	}
}

// Satisfies evaluates field (attribute a's raw bytes from a tuple) against
// value (the already-encoded right-hand operand) under op.
func Satisfies(a Attr, op CompareOp, field, value []byte) bool {
	if op == NoOp {
		return true
	}
	c := CompareField(a, field, value)
	switch op {
	case EqOp:
		return c == 0
	case LtOp:
		return c < 0
	case LeOp:
		return c <= 0
	case GtOp:
		return c > 0
	case GeOp:
		return c >= 0
	case NeOp:
		return c != 0
	default:
		return false
	}
}
