package shape

import (
	"bytes"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Value is a tagged variant holding exactly one field value. The zero Value
// is invalid and means "unset".
type Value struct {
	kind Kind
	str  string
	num  int64
	flt  float64
	b    bool
	ts   time.Time
	blob []byte
	list []Value
	m    map[string]Value
	st   Struct
}

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: String, str: s} }

// EnumValue wraps an enum symbol. Membership is not checked.
func EnumValue(s string) Value { return Value{kind: Enum, str: s} }

// IntegerValue wraps any integral number up to 64 bits.
func IntegerValue(n int64) Value { return Value{kind: Integer, num: n} }

// DoubleValue wraps a float, including NaN and the infinities.
func DoubleValue(f float64) Value { return Value{kind: Double, flt: f} }

// BooleanValue wraps a bool.
func BooleanValue(b bool) Value { return Value{kind: Boolean, b: b} }

// TimestampValue wraps an instant. The location of t is preserved; equality
// compares instants.
func TimestampValue(t time.Time) Value { return Value{kind: Timestamp, ts: t} }

// BlobValue wraps raw bytes; the slice is not copied.
func BlobValue(b []byte) Value { return Value{kind: Blob, blob: b} }

// ListValue wraps an ordered sequence. A nil argument list yields an empty,
// present list.
func ListValue(vs ...Value) Value {
	if vs == nil {
		vs = []Value{}
	}
	return Value{kind: List, list: vs}
}

// MapValue wraps string-keyed entries. A nil map yields an empty, present
// map.
func MapValue(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: Map, m: m}
}

// StructValue wraps a nested structure.
func StructValue(s Struct) Value {
	if s == nil {
		s = Struct{}
	}
	return Value{kind: Structure, st: s}
}

// Kind returns the tag, or 0 for the zero Value.
func (v Value) Kind() Kind { return v.kind }

// IsSet reports whether v holds a value.
func (v Value) IsSet() bool { return v.kind != 0 }

// AsString returns String and Enum values.
func (v Value) AsString() (string, bool) {
	if v.kind == String || v.kind == Enum {
		return v.str, true
	}
	return "", false
}

// AsInteger returns Integer values.
func (v Value) AsInteger() (int64, bool) { return v.num, v.kind == Integer }

// AsDouble returns Double values, widening Integer values.
func (v Value) AsDouble() (float64, bool) {
	switch v.kind {
	case Double:
		return v.flt, true
	case Integer:
		return float64(v.num), true
	}
	return 0, false
}

// AsBoolean returns Boolean values.
func (v Value) AsBoolean() (bool, bool) { return v.b, v.kind == Boolean }

// AsTimestamp returns Timestamp values.
func (v Value) AsTimestamp() (time.Time, bool) { return v.ts, v.kind == Timestamp }

// AsBlob returns Blob values.
func (v Value) AsBlob() ([]byte, bool) { return v.blob, v.kind == Blob }

// AsList returns List values.
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == List }

// AsMap returns Map values.
func (v Value) AsMap() (map[string]Value, bool) { return v.m, v.kind == Map }

// AsStruct returns Structure values.
func (v Value) AsStruct() (Struct, bool) { return v.st, v.kind == Structure }

// SortedKeys returns the keys of a Map value in lexical order.
func (v Value) SortedKeys() []string {
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal compares two values structurally. String and Enum compare as text,
// NaN equals NaN and a nil blob equals an empty one.
func (v Value) Equal(o Value) bool {
	if textual(v.kind) && textual(o.kind) {
		return v.str == o.str
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case 0:
		return true
	case Integer:
		return v.num == o.num
	case Double:
		if math.IsNaN(v.flt) && math.IsNaN(o.flt) {
			return true
		}
		return v.flt == o.flt
	case Boolean:
		return v.b == o.b
	case Timestamp:
		return v.ts.Equal(o.ts)
	case Blob:
		return bytes.Equal(v.blob, o.blob)
	case List:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case Map:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, a := range v.m {
			b, ok := o.m[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	case Structure:
		return v.st.Equal(o.st)
	}
	return false
}

func textual(k Kind) bool { return k == String || k == Enum }

// String renders the value for logs and test failures.
func (v Value) String() string {
	switch v.kind {
	case 0:
		return "<unset>"
	case String, Enum:
		return strconv.Quote(v.str)
	case Integer:
		return strconv.FormatInt(v.num, 10)
	case Double:
		return strconv.FormatFloat(v.flt, 'g', -1, 64)
	case Boolean:
		return strconv.FormatBool(v.b)
	case Timestamp:
		return v.ts.UTC().Format(time.RFC3339Nano)
	case Blob:
		return "blob(" + strconv.Itoa(len(v.blob)) + ")"
	case List:
		parts := make([]string, len(v.list))
		for i, m := range v.list {
			parts[i] = m.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	case Map:
		keys := v.SortedKeys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ":" + v.m[k].String()
		}
		return "map[" + strings.Join(parts, " ") + "]"
	case Structure:
		return formatStruct(v.st)
	}
	return "<invalid>"
}
