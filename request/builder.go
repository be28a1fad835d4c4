package request

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gurre/awscore/codec"
	"github.com/gurre/awscore/protocol"
	"github.com/gurre/awscore/shape"
)

// Builder turns shape-described input into a Request for one service.
// A Builder holds no mutable state and may be shared.
type Builder struct {
	Protocol     protocol.Protocol
	APIVersion   string // Query protocol Version parameter
	TargetPrefix string // JSON protocol X-Amz-Target prefix, e.g. DynamoDB_20120810
	JSONVersion  string // JSON protocol content type version, defaults to 1.0
	XMLNamespace string // xmlns of REST-XML request documents
}

// Build validates input against s and assembles the request. basePath may
// carry {Label} and greedy {Label+} placeholders and a static query such as
// "/{Bucket}?uploads". An empty method means POST.
func (b *Builder) Build(s *shape.Shape, input shape.Struct, operation, basePath, method string) (*Request, error) {
	if !b.Protocol.Valid() {
		return nil, fmt.Errorf("%w: %s", protocol.ErrUnknownProtocol, b.Protocol)
	}
	if s == nil {
		s = shape.Empty
	}
	if method == "" {
		method = http.MethodPost
	}
	if err := checkRequired(s, input, ""); err != nil {
		return nil, err
	}

	tmpl, staticQuery, _ := strings.Cut(basePath, "?")
	path, err := b.expandPath(tmpl, s, input)
	if err != nil {
		return nil, err
	}
	req := New(method, path)
	req.Query = ParseQuery(staticQuery)

	if err := b.addQuery(req, s, input); err != nil {
		return nil, err
	}
	if err := b.addHeaders(req, s, input); err != nil {
		return nil, err
	}
	if err := b.addBody(req, s, input, operation); err != nil {
		return nil, err
	}

	if b.Protocol == protocol.JSON {
		target := operation
		if b.TargetPrefix != "" {
			target = b.TargetPrefix + "." + operation
		}
		req.Header.Set("X-Amz-Target", target)
	}
	if req.ContentType != "" {
		req.Header.Set("Content-Type", req.ContentType)
	}
	return req, nil
}

// checkRequired walks body structures too, so nested required members are
// reported with their dotted path.
func checkRequired(s *shape.Shape, st shape.Struct, path string) error {
	for _, f := range s.Fields() {
		name := f.Name
		if path != "" {
			name = path + "." + f.Name
		}
		v, ok := st.Get(f.Name)
		if !ok {
			if f.Required {
				return &BuildError{Reason: MissingRequiredField, Field: name}
			}
			continue
		}
		if err := checkNested(f.Type, v, name); err != nil {
			return err
		}
	}
	return nil
}

func checkNested(ref shape.TypeRef, v shape.Value, path string) error {
	switch ref.Kind {
	case shape.Structure:
		if st, ok := v.AsStruct(); ok {
			return checkRequired(ref.Shape, st, path)
		}
	case shape.List:
		members, _ := v.AsList()
		for i, m := range members {
			if err := checkNested(ref.Member(), m, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case shape.Map:
		entries, _ := v.AsMap()
		for _, k := range v.SortedKeys() {
			if err := checkNested(ref.Member(), entries[k], fmt.Sprintf("%s[%q]", path, k)); err != nil {
				return err
			}
		}
	}
	return nil
}

func pathField(s *shape.Shape, label string) (shape.Field, bool) {
	if f, ok := s.FieldByWire(shape.URIPath, label); ok {
		return f, true
	}
	if f, ok := s.Field(label); ok && f.Location == shape.URIPath {
		return f, true
	}
	return shape.Field{}, false
}

func (b *Builder) expandPath(tmpl string, s *shape.Shape, input shape.Struct) (string, error) {
	if tmpl == "" {
		return "/", nil
	}
	var out strings.Builder
	for {
		open := strings.IndexByte(tmpl, '{')
		if open < 0 {
			out.WriteString(tmpl)
			break
		}
		end := strings.IndexByte(tmpl[open:], '}')
		if end < 0 {
			return "", &BuildError{Reason: UnresolvedPathParameter, Field: tmpl[open:]}
		}
		end += open

		label := tmpl[open+1 : end]
		greedy := strings.HasSuffix(label, "+")
		label = strings.TrimSuffix(label, "+")

		f, ok := pathField(s, label)
		if !ok {
			return "", &BuildError{Reason: UnresolvedPathParameter, Field: label}
		}
		v, ok := input.Get(f.Name)
		if !ok {
			return "", &BuildError{Reason: UnresolvedPathParameter, Field: label}
		}
		text, err := codec.EncodeText(f.Name, v, f.Type, b.Protocol, shape.URIPath)
		if err != nil {
			return "", err
		}

		out.WriteString(tmpl[:open])
		out.WriteString(EscapePath(text[0], !greedy))
		tmpl = tmpl[end+1:]
	}
	return out.String(), nil
}

func (b *Builder) addQuery(req *Request, s *shape.Shape, input shape.Struct) error {
	for _, f := range s.FieldsAt(shape.QueryString) {
		v, ok := input.Get(f.Name)
		if !ok {
			continue
		}
		if f.Type.Kind == shape.Map {
			entries, ok := v.AsMap()
			if !ok {
				return &codec.EncodeError{Reason: codec.KindMismatch, Field: f.Name, Type: f.Type, Got: v.Kind()}
			}
			for _, k := range v.SortedKeys() {
				texts, err := codec.EncodeText(f.Name+"."+k, entries[k], f.Type.Member(), b.Protocol, shape.QueryString)
				if err != nil {
					return err
				}
				for _, t := range texts {
					req.AddQuery(k, t)
				}
			}
			continue
		}
		texts, err := codec.EncodeText(f.Name, v, f.Type, b.Protocol, shape.QueryString)
		if err != nil {
			return err
		}
		for _, t := range texts {
			req.AddQuery(f.WireName, t)
		}
	}
	return nil
}

func addHeader(h http.Header, name, value string) {
	if existing := h.Get(name); existing != "" {
		value = existing + "," + value
	}
	h.Set(name, value)
}

func (b *Builder) addHeaders(req *Request, s *shape.Shape, input shape.Struct) error {
	for _, f := range s.FieldsAt(shape.Header) {
		v, ok := input.Get(f.Name)
		if !ok {
			continue
		}
		if f.Type.Kind == shape.Map {
			entries, ok := v.AsMap()
			if !ok {
				return &codec.EncodeError{Reason: codec.KindMismatch, Field: f.Name, Type: f.Type, Got: v.Kind()}
			}
			for _, k := range v.SortedKeys() {
				texts, err := codec.EncodeText(f.Name+"."+k, entries[k], f.Type.Member(), b.Protocol, shape.Header)
				if err != nil {
					return err
				}
				addHeader(req.Header, f.WireName+k, texts[0])
			}
			continue
		}
		texts, err := codec.EncodeText(f.Name, v, f.Type, b.Protocol, shape.Header)
		if err != nil {
			return err
		}
		addHeader(req.Header, f.WireName, texts[0])
	}
	return nil
}

func hasBodyValues(s *shape.Shape, input shape.Struct) bool {
	for _, f := range s.FieldsAt(shape.Body) {
		if _, ok := input.Get(f.Name); ok {
			return true
		}
	}
	return false
}

func (b *Builder) addBody(req *Request, s *shape.Shape, input shape.Struct, operation string) error {
	if pf, ok := s.Payload(); ok {
		return b.addPayload(req, pf, input, operation)
	}

	var (
		body []byte
		err  error
	)
	switch b.Protocol {
	case protocol.Query:
		body, err = codec.EncodeQuery(input, s, operation, b.APIVersion)
	case protocol.JSON:
		body, err = codec.EncodeJSON(input, s, b.Protocol)
	case protocol.RESTJSON:
		if hasBodyValues(s, input) {
			body, err = codec.EncodeJSON(input, s, b.Protocol)
		}
	case protocol.RESTXML:
		if hasBodyValues(s, input) {
			body, err = codec.EncodeXML(input, s, b.Protocol, s.Name(), b.XMLNamespace)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s body: %w", b.Protocol, err)
	}
	if body != nil {
		req.Body = body
		req.ContentType = b.Protocol.ContentType(b.JSONVersion)
	}
	return nil
}

func (b *Builder) addPayload(req *Request, pf shape.Field, input shape.Struct, operation string) error {
	v, ok := input.Get(pf.Name)
	if !ok {
		if b.Protocol == protocol.JSON {
			req.Body = []byte("{}")
			req.ContentType = b.Protocol.ContentType(b.JSONVersion)
		}
		return nil
	}

	if pf.Type.Kind == shape.Blob {
		blob, ok := v.AsBlob()
		if !ok {
			return &codec.EncodeError{Reason: codec.KindMismatch, Field: pf.Name, Type: pf.Type, Got: v.Kind()}
		}
		req.Body = append([]byte{}, blob...)
		req.ContentType = protocol.ContentTypeOctetStream
		return nil
	}

	nested, ok := v.AsStruct()
	if !ok {
		return &codec.EncodeError{Reason: codec.KindMismatch, Field: pf.Name, Type: pf.Type, Got: v.Kind()}
	}
	var (
		body []byte
		err  error
	)
	switch b.Protocol {
	case protocol.Query:
		body, err = codec.EncodeQuery(nested, pf.Type.Shape, operation, b.APIVersion)
	case protocol.JSON, protocol.RESTJSON:
		body, err = codec.EncodeJSON(nested, pf.Type.Shape, b.Protocol)
	case protocol.RESTXML:
		body, err = codec.EncodeXML(nested, pf.Type.Shape, b.Protocol, pf.WireName, b.XMLNamespace)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", pf.Name, err)
	}
	req.Body = body
	req.ContentType = b.Protocol.ContentType(b.JSONVersion)
	return nil
}
