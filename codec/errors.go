// Package codec converts field values to and from their protocol-specific wire
// representations: header and query strings, JSON values, XML elements and
// Query form parameters. Every function is driven by shape metadata and never
// inspects Go types at run time.
package codec

import (
	"fmt"

	"github.com/gurre/awscore/shape"
)

// DecodeReason classifies a decode failure.
type DecodeReason int

const (
	TypeMismatch DecodeReason = iota + 1
	MalformedValue
	MissingRequiredField
)

func (r DecodeReason) String() string {
	switch r {
	case TypeMismatch:
		return "type mismatch"
	case MalformedValue:
		return "malformed value"
	case MissingRequiredField:
		return "missing required field"
	}
	return fmt.Sprintf("DecodeReason(%d)", int(r))
}

// DecodeError reports wire input that does not match the declared shape.
type DecodeError struct {
	Reason DecodeReason
	Field  string // dotted path from the shape root, empty for the whole body
	Err    error
}

func (e *DecodeError) Error() string {
	msg := "failed to decode"
	if e.Field != "" {
		msg += " " + e.Field
	}
	msg += ": " + e.Reason.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeReason classifies an encode failure.
type EncodeReason int

const (
	UnsupportedLocationForType EncodeReason = iota + 1
	KindMismatch
	// EmptyFlattenedCollection is an empty list or map in a flattened XML
	// field. Flattened members leave no element behind to mark emptiness.
	EmptyFlattenedCollection
)

func (r EncodeReason) String() string {
	switch r {
	case UnsupportedLocationForType:
		return "unsupported location for type"
	case KindMismatch:
		return "value kind does not match declared type"
	case EmptyFlattenedCollection:
		return "empty collection in flattened form"
	}
	return fmt.Sprintf("EncodeReason(%d)", int(r))
}

// EncodeError reports a value that cannot be placed where its descriptor
// says it goes.
type EncodeError struct {
	Reason   EncodeReason
	Field    string
	Type     shape.TypeRef
	Location shape.Location
	Got      shape.Kind
}

func (e *EncodeError) Error() string {
	switch e.Reason {
	case UnsupportedLocationForType:
		return fmt.Sprintf("failed to encode %s: %s cannot be encoded in %s", e.Field, e.Type, e.Location)
	case KindMismatch:
		return fmt.Sprintf("failed to encode %s: expected %s, got %s", e.Field, e.Type, e.Got)
	case EmptyFlattenedCollection:
		return fmt.Sprintf("failed to encode %s: empty %s cannot be flattened", e.Field, e.Type)
	}
	return fmt.Sprintf("failed to encode %s: %s", e.Field, e.Reason)
}

func decodeErr(reason DecodeReason, field string, err error) error {
	return &DecodeError{Reason: reason, Field: field, Err: err}
}

func kindErr(field string, ref shape.TypeRef, got shape.Value) error {
	return &EncodeError{Reason: KindMismatch, Field: field, Type: ref, Got: got.Kind()}
}

func emptyFlattenedErr(field string, ref shape.TypeRef) error {
	return &EncodeError{Reason: EmptyFlattenedCollection, Field: field, Type: ref, Location: shape.Body}
}

func locationErr(field string, ref shape.TypeRef, loc shape.Location) error {
	return &EncodeError{Reason: UnsupportedLocationForType, Field: field, Type: ref, Location: loc}
}

func joinPath(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}

func indexPath(parent string, i int) string {
	return fmt.Sprintf("%s[%d]", parent, i)
}

func keyPath(parent, key string) string {
	return fmt.Sprintf("%s[%q]", parent, key)
}
