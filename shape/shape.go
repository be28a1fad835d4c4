package shape

import (
	"fmt"
	"strings"
)

// ErrInvalidShape is returned when shape metadata violates a structural rule.
var ErrInvalidShape = fmt.Errorf("invalid shape")

// Field describes one member of a shape.
type Field struct {
	Name     string   // Name used by the caller (key in Struct)
	WireName string   // Name on the wire; defaults to Name
	Location Location // Where the value travels
	Required bool     // Building without a value is an error
	Type     TypeRef
}

// Shape is a named, ordered set of field descriptors. It is immutable once
// returned by New.
type Shape struct {
	name    string
	fields  []Field
	byName  map[string]int
	byWire  map[Location]map[string]int
	payload int

	flattened  bool
	memberName string
	keyName    string
	valueName  string

	payloadName string
}

// Option configures a shape at construction.
type Option func(*Shape)

// WithPayload designates the named field as the payload field. Its encoded
// value becomes the entire body.
func WithPayload(field string) Option {
	return func(s *Shape) {
		s.payloadName = field
	}
}

// FlattenLists makes lists and maps of this shape repeat their own element
// name in XML and Query encodings instead of nesting member elements.
func FlattenLists() Option {
	return func(s *Shape) {
		s.flattened = true
	}
}

// WithMemberName sets the element name of wrapped list members.
func WithMemberName(name string) Option {
	return func(s *Shape) {
		s.memberName = name
	}
}

// WithMapNames sets the element names of map keys and values.
func WithMapNames(key, value string) Option {
	return func(s *Shape) {
		s.keyName = key
		s.valueName = value
	}
}

// New validates the field descriptors and returns an immutable shape.
func New(name string, fields []Field, opts ...Option) (*Shape, error) {
	s := &Shape{
		name:       name,
		fields:     make([]Field, 0, len(fields)),
		byName:     make(map[string]int, len(fields)),
		byWire:     make(map[Location]map[string]int),
		payload:    -1,
		memberName: "member",
		keyName:    "key",
		valueName:  "value",
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: %s: field with empty name", ErrInvalidShape, name)
		}
		if _, dup := s.byName[f.Name]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate field %q", ErrInvalidShape, name, f.Name)
		}
		if f.WireName == "" {
			f.WireName = f.Name
		}
		if err := f.Type.validate(); err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %v", ErrInvalidShape, name, f.Name, err)
		}
		if err := checkLocation(f); err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %v", ErrInvalidShape, name, f.Name, err)
		}

		wire := wireKey(f.Location, f.WireName)
		idx, ok := s.byWire[f.Location]
		if !ok {
			idx = make(map[string]int)
			s.byWire[f.Location] = idx
		}
		if _, dup := idx[wire]; dup && (f.Location == Body || f.Location == URIPath) {
			return nil, fmt.Errorf("%w: %s: duplicate %s wire name %q", ErrInvalidShape, name, f.Location, f.WireName)
		}
		if _, dup := idx[wire]; !dup {
			idx[wire] = len(s.fields)
		}

		s.byName[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}

	if s.payloadName != "" {
		i, ok := s.byName[s.payloadName]
		if !ok {
			return nil, fmt.Errorf("%w: %s: payload field %q not declared", ErrInvalidShape, name, s.payloadName)
		}
		p := s.fields[i]
		if p.Location != Body {
			return nil, fmt.Errorf("%w: %s: payload field %q must be body located", ErrInvalidShape, name, p.Name)
		}
		if p.Type.Kind != Structure && p.Type.Kind != Blob {
			return nil, fmt.Errorf("%w: %s: payload field %q must be a structure or blob, got %s", ErrInvalidShape, name, p.Name, p.Type.Kind)
		}
		for _, f := range s.fields {
			if f.Location == Body && f.Name != p.Name {
				return nil, fmt.Errorf("%w: %s: payload field %q cannot be mixed with body field %q", ErrInvalidShape, name, p.Name, f.Name)
			}
		}
		s.payload = i
	}
	return s, nil
}

// MustNew is like New but panics on invalid metadata. It is meant for static
// shape tables initialised at package load.
func MustNew(name string, fields []Field, opts ...Option) *Shape {
	s, err := New(name, fields, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func checkLocation(f Field) error {
	k := f.Type.Kind
	switch f.Location {
	case Body:
		return nil
	case Header, QueryString:
		if k == Structure {
			return fmt.Errorf("structure cannot travel in %s", f.Location)
		}
		if k == List || k == Map {
			if m := f.Type.Member().Kind; !m.IsScalar() {
				return fmt.Errorf("%s of %s cannot travel in %s", k, m, f.Location)
			}
		}
	case URIPath:
		if !k.IsScalar() {
			return fmt.Errorf("%s cannot travel in %s", k, f.Location)
		}
	default:
		return fmt.Errorf("unknown location %d", int(f.Location))
	}
	return nil
}

// Header names compare case-insensitively.
func wireKey(loc Location, wire string) string {
	if loc == Header {
		return strings.ToLower(wire)
	}
	return wire
}

// Name returns the shape name. REST-XML uses it as the body root element.
func (s *Shape) Name() string { return s.name }

// Fields returns the descriptors in declaration order.
func (s *Shape) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Len returns the number of declared fields.
func (s *Shape) Len() int { return len(s.fields) }

// Field looks up a descriptor by field name.
func (s *Shape) Field(name string) (Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// FieldByWire looks up the first descriptor at loc with the given wire name.
func (s *Shape) FieldByWire(loc Location, wire string) (Field, bool) {
	i, ok := s.byWire[loc][wireKey(loc, wire)]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Payload returns the payload field, if one is designated.
func (s *Shape) Payload() (Field, bool) {
	if s.payload < 0 {
		return Field{}, false
	}
	return s.fields[s.payload], true
}

// FieldsAt returns the descriptors carried at loc, in declaration order.
func (s *Shape) FieldsAt(loc Location) []Field {
	var out []Field
	for _, f := range s.fields {
		if f.Location == loc {
			out = append(out, f)
		}
	}
	return out
}

// IsFlattened reports whether lists and maps of this shape are flattened.
func (s *Shape) IsFlattened() bool { return s.flattened }

// MemberName is the element name of wrapped list members.
func (s *Shape) MemberName() string { return s.memberName }

// KeyName is the element name of map keys.
func (s *Shape) KeyName() string { return s.keyName }

// ValueName is the element name of map values.
func (s *Shape) ValueName() string { return s.valueName }
