package codec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"

	smithyjson "github.com/aws/smithy-go/encoding/json"
	smithytime "github.com/aws/smithy-go/time"
	json "github.com/goccy/go-json"
	"github.com/gurre/awscore/protocol"
	"github.com/gurre/awscore/shape"
)

var jsonNull = []byte("null")

// EncodeJSON writes the body-located fields of st as a JSON object. Fields
// appear in declaration order, map keys in lexical order.
func EncodeJSON(st shape.Struct, s *shape.Shape, p protocol.Protocol) ([]byte, error) {
	enc := smithyjson.NewEncoder()
	if err := encodeJSONStruct(enc.Value, "", st, s, p); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

// EncodeJSONValue writes a single value as a JSON document.
func EncodeJSONValue(v shape.Value, ref shape.TypeRef, p protocol.Protocol) ([]byte, error) {
	enc := smithyjson.NewEncoder()
	if err := encodeJSONValue(enc.Value, "", v, ref, p); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

// EncodeJSONFields writes every field of st, whatever its location, as a
// JSON object keyed by field name. It is the inverse of DecodeJSONFields.
func EncodeJSONFields(st shape.Struct, s *shape.Shape, p protocol.Protocol) ([]byte, error) {
	enc := smithyjson.NewEncoder()
	obj := enc.Value.Object()
	for _, f := range s.Fields() {
		v, ok := st.Get(f.Name)
		if !ok {
			continue
		}
		if err := encodeJSONValue(obj.Key(f.Name), f.Name, v, f.Type, p); err != nil {
			return nil, err
		}
	}
	obj.Close()
	return enc.Bytes(), nil
}

// DecodeJSONFields reads a JSON object keyed by field name into every field
// of s, including header, query string and URI fields. Nested structures
// follow DecodeJSON.
func DecodeJSONFields(body []byte, s *shape.Shape, p protocol.Protocol) (shape.Struct, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return shape.Struct{}, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, decodeErr(MalformedValue, "", fmt.Errorf("expected a JSON object: %w", err))
	}
	out := make(shape.Struct, len(obj))
	for _, f := range s.Fields() {
		r, ok := obj[f.Name]
		if !ok || isJSONNull(r) {
			continue
		}
		v, err := decodeJSONValue(f.Name, r, f.Type, p)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

func encodeJSONStruct(jv smithyjson.Value, path string, st shape.Struct, s *shape.Shape, p protocol.Protocol) error {
	obj := jv.Object()
	defer obj.Close()
	for _, f := range s.FieldsAt(shape.Body) {
		v, ok := st.Get(f.Name)
		if !ok {
			continue
		}
		if err := encodeJSONValue(obj.Key(f.WireName), joinPath(path, f.Name), v, f.Type, p); err != nil {
			return err
		}
	}
	return nil
}

func encodeJSONValue(jv smithyjson.Value, path string, v shape.Value, ref shape.TypeRef, p protocol.Protocol) error {
	switch ref.Kind {
	case shape.String, shape.Enum:
		s, ok := v.AsString()
		if !ok {
			return kindErr(path, ref, v)
		}
		jv.String(s)
	case shape.Integer:
		n, ok := v.AsInteger()
		if !ok {
			return kindErr(path, ref, v)
		}
		jv.Long(n)
	case shape.Double:
		f, ok := v.AsDouble()
		if !ok {
			return kindErr(path, ref, v)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			jv.String(FormatDouble(f))
		} else {
			jv.Double(f)
		}
	case shape.Boolean:
		b, ok := v.AsBoolean()
		if !ok {
			return kindErr(path, ref, v)
		}
		jv.Boolean(b)
	case shape.Timestamp:
		t, ok := v.AsTimestamp()
		if !ok {
			return kindErr(path, ref, v)
		}
		if tf := resolveFormat(ref, p, shape.Body); tf == shape.EpochSeconds {
			jv.Double(smithytime.FormatEpochSeconds(t))
		} else {
			jv.String(FormatTimestamp(t, tf))
		}
	case shape.Blob:
		b, ok := v.AsBlob()
		if !ok {
			return kindErr(path, ref, v)
		}
		if b == nil {
			b = []byte{}
		}
		jv.Base64EncodeBytes(b)
	case shape.List:
		members, ok := v.AsList()
		if !ok {
			return kindErr(path, ref, v)
		}
		arr := jv.Array()
		defer arr.Close()
		for i, m := range members {
			if err := encodeJSONValue(arr.Value(), indexPath(path, i), m, ref.Member(), p); err != nil {
				return err
			}
		}
	case shape.Map:
		entries, ok := v.AsMap()
		if !ok {
			return kindErr(path, ref, v)
		}
		obj := jv.Object()
		defer obj.Close()
		for _, k := range v.SortedKeys() {
			if err := encodeJSONValue(obj.Key(k), keyPath(path, k), entries[k], ref.Member(), p); err != nil {
				return err
			}
		}
	case shape.Structure:
		st, ok := v.AsStruct()
		if !ok {
			return kindErr(path, ref, v)
		}
		return encodeJSONStruct(jv, path, st, ref.Shape, p)
	default:
		return kindErr(path, ref, v)
	}
	return nil
}

// DecodeJSON parses a JSON object body into the body-located fields of s.
// Unknown members and null values are ignored; an empty body decodes to an
// empty struct.
func DecodeJSON(body []byte, s *shape.Shape, p protocol.Protocol) (shape.Struct, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return shape.Struct{}, nil
	}
	if !json.Valid(body) {
		return nil, decodeErr(MalformedValue, "", fmt.Errorf("invalid JSON document"))
	}
	return decodeJSONStruct("", body, s, p)
}

// DecodeJSONValue parses a single JSON document of the given type.
func DecodeJSONValue(body []byte, ref shape.TypeRef, p protocol.Protocol) (shape.Value, error) {
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return shape.Value{}, decodeErr(MalformedValue, "", fmt.Errorf("invalid JSON document"))
	}
	return decodeJSONValue("", body, ref, p)
}

func isJSONNull(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), jsonNull)
}

func decodeJSONStruct(path string, raw []byte, s *shape.Shape, p protocol.Protocol) (shape.Struct, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, decodeErr(TypeMismatch, path, fmt.Errorf("expected object"))
	}
	out := make(shape.Struct, len(obj))
	for _, f := range s.FieldsAt(shape.Body) {
		r, ok := obj[f.WireName]
		if !ok || isJSONNull(r) {
			continue
		}
		v, err := decodeJSONValue(joinPath(path, f.Name), r, f.Type, p)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

func decodeJSONValue(path string, raw []byte, ref shape.TypeRef, p protocol.Protocol) (shape.Value, error) {
	raw = bytes.TrimSpace(raw)
	mismatch := func(want string) error {
		return decodeErr(TypeMismatch, path, fmt.Errorf("expected %s, got %.32s", want, raw))
	}

	switch ref.Kind {
	case shape.String, shape.Enum:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return shape.Value{}, mismatch("string")
		}
		if ref.Kind == shape.Enum {
			return shape.EnumValue(s), nil
		}
		return shape.StringValue(s), nil
	case shape.Integer:
		var n int64
		if err := json.Unmarshal(raw, &n); err != nil {
			return shape.Value{}, mismatch("integer")
		}
		return shape.IntegerValue(n), nil
	case shape.Double:
		if len(raw) > 0 && raw[0] == '"' {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return shape.Value{}, mismatch("number")
			}
			if s != "NaN" && s != "Infinity" && s != "-Infinity" {
				return shape.Value{}, mismatch("number")
			}
			f, _ := ParseDouble(s)
			return shape.DoubleValue(f), nil
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return shape.Value{}, mismatch("number")
		}
		return shape.DoubleValue(f), nil
	case shape.Boolean:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return shape.Value{}, mismatch("boolean")
		}
		return shape.BooleanValue(b), nil
	case shape.Timestamp:
		if len(raw) > 0 && raw[0] == '"' {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return shape.Value{}, mismatch("timestamp")
			}
			t, err := ParseTimestamp(s, resolveFormat(ref, p, shape.Body))
			if err != nil {
				return shape.Value{}, decodeErr(MalformedValue, path, err)
			}
			return shape.TimestampValue(t), nil
		}
		if len(raw) == 0 || (raw[0] != '-' && (raw[0] < '0' || raw[0] > '9')) {
			return shape.Value{}, mismatch("timestamp")
		}
		t, err := parseEpochSeconds(string(raw))
		if err != nil {
			return shape.Value{}, decodeErr(MalformedValue, path, err)
		}
		return shape.TimestampValue(t), nil
	case shape.Blob:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return shape.Value{}, mismatch("base64 string")
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return shape.Value{}, decodeErr(MalformedValue, path, err)
		}
		return shape.BlobValue(b), nil
	case shape.List:
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return shape.Value{}, mismatch("array")
		}
		out := make([]shape.Value, 0, len(items))
		for i, item := range items {
			if isJSONNull(item) {
				continue
			}
			v, err := decodeJSONValue(indexPath(path, i), item, ref.Member(), p)
			if err != nil {
				return shape.Value{}, err
			}
			out = append(out, v)
		}
		return shape.ListValue(out...), nil
	case shape.Map:
		var entries map[string]json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil || entries == nil {
			return shape.Value{}, mismatch("object")
		}
		out := make(map[string]shape.Value, len(entries))
		for k, item := range entries {
			if isJSONNull(item) {
				continue
			}
			v, err := decodeJSONValue(keyPath(path, k), item, ref.Member(), p)
			if err != nil {
				return shape.Value{}, err
			}
			out[k] = v
		}
		return shape.MapValue(out), nil
	case shape.Structure:
		if len(raw) == 0 || raw[0] != '{' {
			return shape.Value{}, mismatch("object")
		}
		st, err := decodeJSONStruct(path, raw, ref.Shape, p)
		if err != nil {
			return shape.Value{}, err
		}
		return shape.StructValue(st), nil
	}
	return shape.Value{}, mismatch(ref.String())
}
