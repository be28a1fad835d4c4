// Package shape describes the static wire layout of an operation's input and
// output: which fields exist, where each one travels on the wire and how its
// value is typed. Shapes are built once, validated at construction, and then
// shared read-only by every codec, builder and validator.
package shape

import "fmt"

// Kind is the closed set of value types a field may carry.
type Kind int

const (
	String Kind = iota + 1
	Integer
	Double
	Boolean
	Timestamp
	Blob
	List
	Map
	Structure
	Enum
)

var kindNames = map[Kind]string{
	String:    "String",
	Integer:   "Integer",
	Double:    "Double",
	Boolean:   "Boolean",
	Timestamp: "Timestamp",
	Blob:      "Blob",
	List:      "List",
	Map:       "Map",
	Structure: "Structure",
	Enum:      "Enum",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsScalar reports whether values of the kind are encoded as a single text
// or number token.
func (k Kind) IsScalar() bool {
	switch k {
	case List, Map, Structure:
		return false
	}
	return true
}

func (k Kind) valid() bool {
	_, ok := kindNames[k]
	return ok
}

// Location is where a field's value is carried on the wire. The zero value
// is Body.
type Location int

const (
	Body Location = iota
	Header
	QueryString
	URIPath
)

func (l Location) String() string {
	switch l {
	case Body:
		return "Body"
	case Header:
		return "Header"
	case QueryString:
		return "QueryString"
	case URIPath:
		return "URIPath"
	}
	return fmt.Sprintf("Location(%d)", int(l))
}

// TimestampFormat selects the textual form of a timestamp. The zero value
// defers to the protocol and location of the field.
type TimestampFormat int

const (
	DefaultTimestampFormat TimestampFormat = iota
	ISO8601
	HTTPDate
	EpochSeconds
)

func (f TimestampFormat) String() string {
	switch f {
	case DefaultTimestampFormat:
		return "default"
	case ISO8601:
		return "iso8601"
	case HTTPDate:
		return "http-date"
	case EpochSeconds:
		return "epoch-seconds"
	}
	return fmt.Sprintf("TimestampFormat(%d)", int(f))
}
