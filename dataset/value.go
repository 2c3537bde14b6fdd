package dataset

import (
	"strconv"
)

// ============================================================================
// VALUE — Scalar cell of a Dataset
// ============================================================================
// Every cell is one of: null, integer, float, string. Columns carry a single
// Kind; a Null value may appear in a column of any Kind.
// ============================================================================

// Kind is the scalar type of a value or a column.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
)

// String returns the lower-case kind name ("int", "float", ...).
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Value is a single tagged scalar.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

// Null returns the null value.
func Null() Value { return Value{} }

// Int returns an integer value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float returns a float value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// String returns a string value.
func String(v string) Value { return Value{kind: KindString, s: v} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsInt returns the integer payload. ok is false for non-integer values.
func (v Value) AsInt() (int64, bool) {
	return v.i, v.kind == KindInt
}

// AsFloat returns the value as float64. Integers are widened.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

// AsString returns the string payload. ok is false for non-string values.
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// String renders the value for display and for model input.
// Null renders as the empty string; floats use the shortest representation.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindString:
		return v.s
	default:
		return ""
	}
}

// convert re-types v into a column of kind k.
// Callers only convert upwards (int → float, anything → string).
func (v Value) convert(k Kind) Value {
	if v.kind == KindNull || v.kind == k {
		return v
	}
	switch k {
	case KindFloat:
		if f, ok := v.AsFloat(); ok {
			return Float(f)
		}
	case KindString:
		return String(v.String())
	}
	return v
}
