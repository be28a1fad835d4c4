package codec

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	smithyxml "github.com/aws/smithy-go/encoding/xml"
	"github.com/gurre/awscore/protocol"
	"github.com/gurre/awscore/shape"
)

// XMLOptions controls document-level XML decoding.
type XMLOptions struct {
	// UnwrapResult descends into top-level elements named *Result that are
	// not declared fields. Query responses nest their output that way.
	UnwrapResult bool
}

// EncodeXML writes the body-located fields of st under a root element. An
// empty root falls back to the shape name.
func EncodeXML(st shape.Struct, s *shape.Shape, p protocol.Protocol, root, namespace string) ([]byte, error) {
	if root == "" {
		root = s.Name()
	}
	if root == "" {
		return nil, fmt.Errorf("%w: XML document needs a root element name", shape.ErrInvalidShape)
	}

	start := smithyxml.StartElement{Name: smithyxml.Name{Local: root}}
	if namespace != "" {
		start.Attr = append(start.Attr, smithyxml.NewNamespaceAttribute("", namespace))
	}
	enc := smithyxml.NewEncoder(bytes.NewBuffer(nil))
	x := xmlCodec{p: p}
	if err := x.encodeStruct(enc.RootElement(start), "", st, s); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

// DecodeXML parses an XML document into the body-located fields of s.
// Elements without a matching field are skipped.
func DecodeXML(body []byte, s *shape.Shape, p protocol.Protocol, opts XMLOptions) (shape.Struct, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return shape.Struct{}, nil
	}
	d := xml.NewDecoder(bytes.NewReader(body))
	root, err := smithyxml.FetchRootElement(d)
	if err != nil {
		return nil, decodeErr(MalformedValue, "", err)
	}
	x := xmlCodec{p: p, unwrap: opts.UnwrapResult}
	out := shape.Struct{}
	if err := x.decodeStruct(smithyxml.WrapNodeDecoder(d, root), "", s, out); err != nil {
		return nil, err
	}
	return out, nil
}

type xmlCodec struct {
	p      protocol.Protocol
	unwrap bool
}

func element(name string) smithyxml.StartElement {
	return smithyxml.StartElement{Name: smithyxml.Name{Local: name}}
}

func flattenedField(s *shape.Shape, ref shape.TypeRef) bool {
	return s.IsFlattened() && (ref.Kind == shape.List || ref.Kind == shape.Map)
}

// encodeStruct closes xv when done.
func (x xmlCodec) encodeStruct(xv smithyxml.Value, path string, st shape.Struct, s *shape.Shape) error {
	defer xv.Close()
	for _, f := range s.FieldsAt(shape.Body) {
		v, ok := st.Get(f.Name)
		if !ok {
			continue
		}
		fp := joinPath(path, f.Name)
		var err error
		if flattenedField(s, f.Type) {
			err = x.encodeFlattened(xv, element(f.WireName), fp, v, f.Type, s)
		} else {
			err = x.encodeValue(xv.MemberElement(element(f.WireName)), fp, v, f.Type, s)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// encodeFlattened repeats el once per list member or map entry directly
// inside the parent. Empty collections are rejected since they would decode
// as unset.
func (x xmlCodec) encodeFlattened(parent smithyxml.Value, el smithyxml.StartElement, path string, v shape.Value, ref shape.TypeRef, s *shape.Shape) error {
	if ref.Kind == shape.List {
		members, ok := v.AsList()
		if !ok {
			return kindErr(path, ref, v)
		}
		if len(members) == 0 {
			return emptyFlattenedErr(path, ref)
		}
		for i, m := range members {
			if err := x.encodeValue(parent.MemberElement(el), indexPath(path, i), m, ref.Member(), s); err != nil {
				return err
			}
		}
		return nil
	}

	entries, ok := v.AsMap()
	if !ok {
		return kindErr(path, ref, v)
	}
	if len(entries) == 0 {
		return emptyFlattenedErr(path, ref)
	}
	for _, k := range v.SortedKeys() {
		if err := x.encodeEntry(parent.MemberElement(el), keyPath(path, k), k, entries[k], ref.Member(), s); err != nil {
			return err
		}
	}
	return nil
}

func (x xmlCodec) encodeEntry(entry smithyxml.Value, path, key string, v shape.Value, elem shape.TypeRef, s *shape.Shape) error {
	defer entry.Close()
	entry.MemberElement(element(s.KeyName())).String(key)
	return x.encodeValue(entry.MemberElement(element(s.ValueName())), path, v, elem, s)
}

// encodeValue writes v into xv and closes it. s supplies the list and map
// naming conventions.
func (x xmlCodec) encodeValue(xv smithyxml.Value, path string, v shape.Value, ref shape.TypeRef, s *shape.Shape) error {
	switch ref.Kind {
	case shape.String, shape.Enum:
		str, ok := v.AsString()
		if !ok {
			return kindErr(path, ref, v)
		}
		xv.String(str)
	case shape.Integer:
		n, ok := v.AsInteger()
		if !ok {
			return kindErr(path, ref, v)
		}
		xv.Long(n)
	case shape.Double:
		f, ok := v.AsDouble()
		if !ok {
			return kindErr(path, ref, v)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			xv.String(FormatDouble(f))
		} else {
			xv.Double(f)
		}
	case shape.Boolean:
		b, ok := v.AsBoolean()
		if !ok {
			return kindErr(path, ref, v)
		}
		xv.Boolean(b)
	case shape.Timestamp:
		t, ok := v.AsTimestamp()
		if !ok {
			return kindErr(path, ref, v)
		}
		xv.String(FormatTimestamp(t, resolveFormat(ref, x.p, shape.Body)))
	case shape.Blob:
		b, ok := v.AsBlob()
		if !ok {
			return kindErr(path, ref, v)
		}
		if len(b) == 0 {
			xv.String("")
		} else {
			xv.Base64EncodeBytes(b)
		}
	case shape.List:
		members, ok := v.AsList()
		if !ok {
			return kindErr(path, ref, v)
		}
		defer xv.Close()
		member := element(s.MemberName())
		for i, m := range members {
			if err := x.encodeValue(xv.MemberElement(member), indexPath(path, i), m, ref.Member(), s); err != nil {
				return err
			}
		}
	case shape.Map:
		entries, ok := v.AsMap()
		if !ok {
			return kindErr(path, ref, v)
		}
		defer xv.Close()
		for _, k := range v.SortedKeys() {
			if err := x.encodeEntry(xv.MemberElement(element("entry")), keyPath(path, k), k, entries[k], ref.Member(), s); err != nil {
				return err
			}
		}
	case shape.Structure:
		st, ok := v.AsStruct()
		if !ok {
			return kindErr(path, ref, v)
		}
		return x.encodeStruct(xv, path, st, ref.Shape)
	default:
		return kindErr(path, ref, v)
	}
	return nil
}

// decodeStruct reads child elements of nd into out until nd's end element.
func (x xmlCodec) decodeStruct(nd smithyxml.NodeDecoder, path string, s *shape.Shape, out shape.Struct) error {
	for {
		t, done, err := nd.Token()
		if err != nil {
			return decodeErr(MalformedValue, path, err)
		}
		if done {
			return nil
		}
		if t.Name.Local == "" {
			continue
		}
		child := smithyxml.WrapNodeDecoder(nd.Decoder, t)

		f, ok := s.FieldByWire(shape.Body, t.Name.Local)
		if !ok {
			if x.unwrap && path == "" && strings.HasSuffix(t.Name.Local, "Result") {
				if err := x.decodeStruct(child, path, s, out); err != nil {
					return err
				}
				continue
			}
			if err := nd.Decoder.Skip(); err != nil {
				return decodeErr(MalformedValue, path, err)
			}
			continue
		}

		fp := joinPath(path, f.Name)
		if flattenedField(s, f.Type) {
			if err := x.decodeFlattened(child, fp, f, s, out); err != nil {
				return err
			}
			continue
		}
		v, err := x.decodeValue(child, fp, f.Type, s)
		if err != nil {
			return err
		}
		out[f.Name] = v
	}
}

// decodeFlattened merges one occurrence of a flattened list member or map
// entry into out.
func (x xmlCodec) decodeFlattened(nd smithyxml.NodeDecoder, path string, f shape.Field, s *shape.Shape, out shape.Struct) error {
	if f.Type.Kind == shape.List {
		existing, _ := out[f.Name].AsList()
		v, err := x.decodeValue(nd, indexPath(path, len(existing)), f.Type.Member(), s)
		if err != nil {
			return err
		}
		out[f.Name] = shape.ListValue(append(existing, v)...)
		return nil
	}

	k, v, err := x.decodeEntry(nd, path, f.Type.Member(), s)
	if err != nil {
		return err
	}
	existing, _ := out[f.Name].AsMap()
	merged := make(map[string]shape.Value, len(existing)+1)
	for ek, ev := range existing {
		merged[ek] = ev
	}
	merged[k] = v
	out[f.Name] = shape.MapValue(merged)
	return nil
}

func (x xmlCodec) decodeEntry(nd smithyxml.NodeDecoder, path string, elem shape.TypeRef, s *shape.Shape) (string, shape.Value, error) {
	var (
		key    string
		hasKey bool
		value  shape.Value
	)
	for {
		t, done, err := nd.Token()
		if err != nil {
			return "", shape.Value{}, decodeErr(MalformedValue, path, err)
		}
		if done {
			break
		}
		if t.Name.Local == "" {
			continue
		}
		child := smithyxml.WrapNodeDecoder(nd.Decoder, t)
		switch t.Name.Local {
		case s.KeyName():
			c, err := child.Value()
			if err != nil {
				return "", shape.Value{}, decodeErr(MalformedValue, path, err)
			}
			key, hasKey = string(c), true
		case s.ValueName():
			value, err = x.decodeValue(child, path, elem, s)
			if err != nil {
				return "", shape.Value{}, err
			}
		default:
			if err := nd.Decoder.Skip(); err != nil {
				return "", shape.Value{}, decodeErr(MalformedValue, path, err)
			}
		}
	}
	if !hasKey {
		return "", shape.Value{}, decodeErr(MalformedValue, path, fmt.Errorf("map entry without <%s>", s.KeyName()))
	}
	return key, value, nil
}

func (x xmlCodec) decodeValue(nd smithyxml.NodeDecoder, path string, ref shape.TypeRef, s *shape.Shape) (shape.Value, error) {
	switch ref.Kind {
	case shape.Structure:
		st := shape.Struct{}
		nested := xmlCodec{p: x.p}
		if err := nested.decodeStruct(nd, path, ref.Shape, st); err != nil {
			return shape.Value{}, err
		}
		return shape.StructValue(st), nil
	case shape.List:
		members := []shape.Value{}
		for {
			t, done, err := nd.Token()
			if err != nil {
				return shape.Value{}, decodeErr(MalformedValue, path, err)
			}
			if done {
				return shape.ListValue(members...), nil
			}
			if t.Name.Local == "" {
				continue
			}
			v, err := x.decodeValue(smithyxml.WrapNodeDecoder(nd.Decoder, t), indexPath(path, len(members)), ref.Member(), s)
			if err != nil {
				return shape.Value{}, err
			}
			members = append(members, v)
		}
	case shape.Map:
		entries := map[string]shape.Value{}
		for {
			t, done, err := nd.Token()
			if err != nil {
				return shape.Value{}, decodeErr(MalformedValue, path, err)
			}
			if done {
				return shape.MapValue(entries), nil
			}
			if t.Name.Local == "" {
				continue
			}
			k, v, err := x.decodeEntry(smithyxml.WrapNodeDecoder(nd.Decoder, t), path, ref.Member(), s)
			if err != nil {
				return shape.Value{}, err
			}
			entries[k] = v
		}
	}

	c, err := nd.Value()
	if err != nil {
		var syntaxErr *xml.SyntaxError
		if errors.As(err, &syntaxErr) || errors.Is(err, io.EOF) {
			return shape.Value{}, decodeErr(MalformedValue, path, err)
		}
		return shape.Value{}, decodeErr(TypeMismatch, path, fmt.Errorf("expected %s text: %w", ref, err))
	}
	return parseScalar(path, string(c), ref, resolveFormat(ref, x.p, shape.Body))
}
