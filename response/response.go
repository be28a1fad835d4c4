// Package response turns a raw wire response into a decoded output struct or
// a ServiceError.
package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gurre/awscore/codec"
	"github.com/gurre/awscore/protocol"
	"github.com/gurre/awscore/shape"
)

// Response is a received HTTP response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Validator decodes responses for one protocol.
type Validator struct {
	Protocol protocol.Protocol
	// RequireFields reports absent required output fields as
	// codec.DecodeError{MissingRequiredField}.
	RequireFields bool
}

// Validate classifies resp and decodes a successful one into the fields of
// s. Service errors come back as *ServiceError. Decoding failures wrap
// *codec.DecodeError.
func (v Validator) Validate(s *shape.Shape, resp *Response) (shape.Struct, error) {
	if !v.Protocol.Valid() {
		return nil, fmt.Errorf("%w: %s", protocol.ErrUnknownProtocol, v.Protocol)
	}
	if resp == nil {
		return nil, fmt.Errorf("failed to validate response: nil response")
	}
	if s == nil {
		s = shape.Empty
	}
	if v.isError(resp) {
		return nil, parseServiceError(v.Protocol, resp)
	}

	out := shape.Struct{}
	if err := v.decodeHeaders(s, resp.Header, out); err != nil {
		return nil, err
	}
	if err := v.decodeBody(s, resp.Body, out); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", v.Protocol, err)
	}
	if v.RequireFields {
		for _, f := range s.Fields() {
			if _, ok := out.Get(f.Name); f.Required && !ok {
				return nil, &codec.DecodeError{Reason: codec.MissingRequiredField, Field: f.Name}
			}
		}
	}
	return out, nil
}

func (v Validator) isError(resp *Response) bool {
	if resp.StatusCode >= 300 {
		return true
	}
	switch v.Protocol {
	case protocol.JSON:
		return hasJSONErrorType(resp.Body)
	case protocol.Query:
		return isXMLErrorResponse(resp.Body)
	}
	return false
}

func (v Validator) decodeHeaders(s *shape.Shape, h http.Header, out shape.Struct) error {
	for _, f := range s.FieldsAt(shape.Header) {
		if f.Type.Kind == shape.Map {
			m, err := v.decodePrefixHeaders(f, h)
			if err != nil {
				return err
			}
			if len(m) > 0 {
				out[f.Name] = shape.MapValue(m)
			}
			continue
		}
		values := h.Values(f.WireName)
		if len(values) == 0 {
			continue
		}
		val, err := codec.DecodeText(f.Name, values, f.Type, v.Protocol, shape.Header)
		if err != nil {
			return err
		}
		out[f.Name] = val
	}
	return nil
}

// decodePrefixHeaders collects every header starting with the field's wire
// name. Keys are the lower-cased remainder.
func (v Validator) decodePrefixHeaders(f shape.Field, h http.Header) (map[string]shape.Value, error) {
	prefix := strings.ToLower(f.WireName)
	var m map[string]shape.Value
	for name, values := range h {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, prefix) || len(lower) == len(prefix) {
			continue
		}
		key := lower[len(prefix):]
		val, err := codec.DecodeText(f.Name+"."+key, values, f.Type.Member(), v.Protocol, shape.Header)
		if err != nil {
			return nil, err
		}
		if m == nil {
			m = make(map[string]shape.Value)
		}
		m[key] = val
	}
	return m, nil
}

func (v Validator) decodeBody(s *shape.Shape, body []byte, out shape.Struct) error {
	if pf, ok := s.Payload(); ok {
		return v.decodePayload(pf, body, out)
	}
	if len(s.FieldsAt(shape.Body)) == 0 {
		return nil
	}
	fields, err := v.decodeDocument(s, body)
	if err != nil {
		return err
	}
	for k, val := range fields {
		out[k] = val
	}
	return nil
}

func (v Validator) decodePayload(pf shape.Field, body []byte, out shape.Struct) error {
	if len(body) == 0 {
		return nil
	}
	if pf.Type.Kind == shape.Blob {
		out[pf.Name] = shape.BlobValue(append([]byte{}, body...))
		return nil
	}
	nested, err := v.decodeDocument(pf.Type.Shape, body)
	if err != nil {
		return err
	}
	out[pf.Name] = shape.StructValue(nested)
	return nil
}

func (v Validator) decodeDocument(s *shape.Shape, body []byte) (shape.Struct, error) {
	switch v.Protocol {
	case protocol.JSON, protocol.RESTJSON:
		return codec.DecodeJSON(body, s, v.Protocol)
	case protocol.RESTXML:
		return codec.DecodeXML(body, s, v.Protocol, codec.XMLOptions{})
	case protocol.Query:
		return codec.DecodeXML(body, s, v.Protocol, codec.XMLOptions{UnwrapResult: true})
	}
	return nil, fmt.Errorf("%w: %s", protocol.ErrUnknownProtocol, v.Protocol)
}
