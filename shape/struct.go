package shape

import (
	"sort"
	"strings"
	"time"
)

// Struct is an instance of a shape: field values keyed by field name. An
// absent key means the field is unset.
type Struct map[string]Value

// Marshaler is implemented by typed models that expose their field values.
type Marshaler interface {
	MarshalShape() (Struct, error)
}

// Unmarshaler is implemented by typed models that populate themselves from
// decoded field values.
type Unmarshaler interface {
	UnmarshalShape(Struct) error
}

var (
	_ Marshaler   = Struct(nil)
	_ Unmarshaler = (*Struct)(nil)
)

// MarshalShape lets a Struct be passed wherever a Marshaler is accepted.
func (s Struct) MarshalShape() (Struct, error) { return s, nil }

// UnmarshalShape replaces s with the decoded values.
func (s *Struct) UnmarshalShape(v Struct) error {
	*s = v
	return nil
}

// Get returns the value of name and whether it is set.
func (s Struct) Get(name string) (Value, bool) {
	v, ok := s[name]
	return v, ok && v.IsSet()
}

// String returns name if it holds a String or Enum value.
func (s Struct) String(name string) (string, bool) {
	return s[name].AsString()
}

// Integer returns name if it holds an Integer value.
func (s Struct) Integer(name string) (int64, bool) {
	return s[name].AsInteger()
}

// Double returns name as a float, widening Integer values.
func (s Struct) Double(name string) (float64, bool) {
	return s[name].AsDouble()
}

// Boolean returns name if it holds a Boolean value.
func (s Struct) Boolean(name string) (bool, bool) {
	return s[name].AsBoolean()
}

// Timestamp returns name if it holds a Timestamp value.
func (s Struct) Timestamp(name string) (time.Time, bool) {
	return s[name].AsTimestamp()
}

// Blob returns name if it holds a Blob value.
func (s Struct) Blob(name string) ([]byte, bool) {
	return s[name].AsBlob()
}

// List returns name if it holds a List value.
func (s Struct) List(name string) ([]Value, bool) {
	return s[name].AsList()
}

// Map returns name if it holds a Map value.
func (s Struct) Map(name string) (map[string]Value, bool) {
	return s[name].AsMap()
}

// Struct returns name if it holds a nested structure.
func (s Struct) Struct(name string) (Struct, bool) {
	return s[name].AsStruct()
}

// Equal compares field by field, ignoring keys holding unset values.
func (s Struct) Equal(o Struct) bool {
	count := func(m Struct) int {
		n := 0
		for _, v := range m {
			if v.IsSet() {
				n++
			}
		}
		return n
	}
	if count(s) != count(o) {
		return false
	}
	for k, v := range s {
		if !v.IsSet() {
			continue
		}
		w, ok := o[k]
		if !ok || !v.Equal(w) {
			return false
		}
	}
	return true
}

func formatStruct(s Struct) string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ":" + s[k].String()
	}
	return "{" + strings.Join(parts, " ") + "}"
}
