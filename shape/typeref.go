package shape

import "fmt"

// TypeRef is the declared type of a field. Composite kinds carry their
// element type (List member, Map value) or their nested Shape.
type TypeRef struct {
	Kind            Kind
	Elem            *TypeRef
	Shape           *Shape
	Enum            []string
	TimestampFormat TimestampFormat
}

// Of returns a scalar type reference.
func Of(k Kind) TypeRef {
	return TypeRef{Kind: k}
}

// ListOf returns a list type whose members have the given type.
func ListOf(elem TypeRef) TypeRef {
	return TypeRef{Kind: List, Elem: &elem}
}

// MapOf returns a string-keyed map type whose values have the given type.
func MapOf(value TypeRef) TypeRef {
	return TypeRef{Kind: Map, Elem: &value}
}

// StructureOf returns a type that nests the given shape.
func StructureOf(s *Shape) TypeRef {
	return TypeRef{Kind: Structure, Shape: s}
}

// EnumOf returns an enum type with the given known values. Unknown values
// are carried as-is so newer service responses still decode.
func EnumOf(values ...string) TypeRef {
	return TypeRef{Kind: Enum, Enum: append([]string(nil), values...)}
}

// TimestampAs returns a timestamp type pinned to one textual format,
// overriding the protocol default.
func TimestampAs(f TimestampFormat) TypeRef {
	return TypeRef{Kind: Timestamp, TimestampFormat: f}
}

// Member returns the element type of a List or the value type of a Map.
func (t TypeRef) Member() TypeRef {
	if t.Elem == nil {
		return TypeRef{}
	}
	return *t.Elem
}

// HasEnumValue reports whether v is one of the declared enum values.
func (t TypeRef) HasEnumValue(v string) bool {
	for _, e := range t.Enum {
		if e == v {
			return true
		}
	}
	return false
}

func (t TypeRef) String() string {
	switch t.Kind {
	case List:
		return "List<" + t.Member().String() + ">"
	case Map:
		return "Map<String," + t.Member().String() + ">"
	case Structure:
		if t.Shape != nil && t.Shape.Name() != "" {
			return "Structure(" + t.Shape.Name() + ")"
		}
		return "Structure"
	}
	return t.Kind.String()
}

func (t TypeRef) validate() error {
	if !t.Kind.valid() {
		return fmt.Errorf("unknown kind %d", int(t.Kind))
	}
	switch t.Kind {
	case List, Map:
		if t.Elem == nil {
			return fmt.Errorf("%s requires an element type", t.Kind)
		}
		if err := t.Elem.validate(); err != nil {
			return fmt.Errorf("%s element: %w", t.Kind, err)
		}
	case Structure:
		if t.Shape == nil {
			return fmt.Errorf("structure requires a shape")
		}
	default:
		if t.Elem != nil || t.Shape != nil {
			return fmt.Errorf("scalar %s cannot carry nested types", t.Kind)
		}
	}
	if t.TimestampFormat != DefaultTimestampFormat && t.Kind != Timestamp {
		return fmt.Errorf("timestamp format set on %s", t.Kind)
	}
	return nil
}
