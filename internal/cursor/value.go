package cursor

import "fmt"

// Kind discriminates the variants of a dynamically-typed SQL value, per
// spec.md's Design Note calling for "dynamically-typed SQL rows" at the
// Cursor/Query Coordinator boundary.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt64
	KindFloat64
	KindBool
	KindBytes
)

// Value is a tagged union over the column value types the SQL engine
// can hand back (spec.md §6: "streaming statement execution yielding
// rows of typed values: string, integer, float, blob, null"), plus
// Bool for the boolean projection introduced by DESIGN.md's Open
// Question decision #2.
type Value struct {
	kind  Kind
	str   string
	i64   int64
	f64   float64
	b     bool
	bytes []byte
}

func NullValue() Value             { return Value{kind: KindNull} }
func StringValue(s string) Value   { return Value{kind: KindString, str: s} }
func Int64Value(i int64) Value     { return Value{kind: KindInt64, i64: i} }
func Float64Value(f float64) Value { return Value{kind: KindFloat64, f64: f} }
func BoolValue(b bool) Value       { return Value{kind: KindBool, b: b} }
func BytesValue(b []byte) Value    { return Value{kind: KindBytes, bytes: b} }

// FromSQL converts a value scanned out of database/sql (always one of
// nil, int64, float64, bool, []byte, string once passed through a
// driver.Value-compatible destination) into a Value.
func FromSQL(v any) Value {
	switch val := v.(type) {
	case nil:
		return NullValue()
	case int64:
		return Int64Value(val)
	case float64:
		return Float64Value(val)
	case bool:
		return BoolValue(val)
	case []byte:
		return BytesValue(val)
	case string:
		return StringValue(val)
	default:
		return StringValue(fmt.Sprintf("%v", val))
	}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

func (v Value) AsInt64() (int64, bool) {
	if v.kind != KindInt64 {
		return 0, false
	}
	return v.i64, true
}

func (v Value) AsFloat64() (float64, bool) {
	if v.kind != KindFloat64 {
		return 0, false
	}
	return v.f64, true
}

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (v Value) AsBytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return v.bytes, true
}

// String renders a Value as display text: NULL, the string itself,
// decimal numbers, true/false, or hex for bytes.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindString:
		return v.str
	case KindInt64:
		return fmt.Sprintf("%d", v.i64)
	case KindFloat64:
		return fmt.Sprintf("%g", v.f64)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindBytes:
		return fmt.Sprintf("%x", v.bytes)
	default:
		return "<invalid value>"
	}
}

// Row is one result row, keyed by column name.
type Row map[string]Value
