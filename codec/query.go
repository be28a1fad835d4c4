package codec

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/protocol/query"
	"github.com/gurre/awscore/protocol"
	"github.com/gurre/awscore/shape"
)

// EncodeQuery writes the body-located fields of st as an
// application/x-www-form-urlencoded document. Action and Version are added
// when non-empty. Keys are sorted on output. Empty lists, maps and
// structures are written as "Key=" so they decode as empty, not unset.
func EncodeQuery(st shape.Struct, s *shape.Shape, action, version string) ([]byte, error) {
	var buf bytes.Buffer
	enc := query.NewEncoder(&buf)
	body := enc.Object()
	if action != "" {
		body.Key("Action").String(action)
	}
	if version != "" {
		body.Key("Version").String(version)
	}
	if err := encodeQueryStruct(body, "", st, s); err != nil {
		return nil, err
	}
	if err := enc.Encode(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeQueryStruct(obj *query.Object, path string, st shape.Struct, s *shape.Shape) error {
	for _, f := range s.FieldsAt(shape.Body) {
		v, ok := st.Get(f.Name)
		if !ok {
			continue
		}
		qv := obj.Key(f.WireName)
		if flattenedField(s, f.Type) {
			qv = obj.FlatKey(f.WireName)
		}
		if err := encodeQueryValue(qv, joinPath(path, f.Name), v, f.Type, s); err != nil {
			return err
		}
	}
	return nil
}

func encodeQueryValue(qv query.Value, path string, v shape.Value, ref shape.TypeRef, s *shape.Shape) error {
	switch ref.Kind {
	case shape.String, shape.Enum:
		str, ok := v.AsString()
		if !ok {
			return kindErr(path, ref, v)
		}
		qv.String(str)
	case shape.Integer:
		n, ok := v.AsInteger()
		if !ok {
			return kindErr(path, ref, v)
		}
		qv.Long(n)
	case shape.Double:
		f, ok := v.AsDouble()
		if !ok {
			return kindErr(path, ref, v)
		}
		qv.String(FormatDouble(f))
	case shape.Boolean:
		b, ok := v.AsBoolean()
		if !ok {
			return kindErr(path, ref, v)
		}
		qv.Boolean(b)
	case shape.Timestamp:
		t, ok := v.AsTimestamp()
		if !ok {
			return kindErr(path, ref, v)
		}
		qv.String(FormatTimestamp(t, resolveFormat(ref, protocol.Query, shape.Body)))
	case shape.Blob:
		b, ok := v.AsBlob()
		if !ok {
			return kindErr(path, ref, v)
		}
		qv.Base64EncodeBytes(b)
	case shape.List:
		members, ok := v.AsList()
		if !ok {
			return kindErr(path, ref, v)
		}
		arr := qv.Array(s.MemberName())
		for i, m := range members {
			if err := encodeQueryValue(arr.Value(), indexPath(path, i), m, ref.Member(), s); err != nil {
				return err
			}
		}
	case shape.Map:
		entries, ok := v.AsMap()
		if !ok {
			return kindErr(path, ref, v)
		}
		if len(entries) == 0 {
			// Same empty marker the encoder writes for arrays.
			qv.String("")
			return nil
		}
		m := qv.Map(s.KeyName(), s.ValueName())
		for _, k := range v.SortedKeys() {
			if err := encodeQueryValue(m.Key(k), keyPath(path, k), entries[k], ref.Member(), s); err != nil {
				return err
			}
		}
	case shape.Structure:
		st, ok := v.AsStruct()
		if !ok {
			return kindErr(path, ref, v)
		}
		if !anyBodyField(st, ref.Shape) {
			qv.String("")
			return nil
		}
		return encodeQueryStruct(qv.Object(), path, st, ref.Shape)
	default:
		return kindErr(path, ref, v)
	}
	return nil
}

// anyBodyField reports whether st sets at least one body field of s.
func anyBodyField(st shape.Struct, s *shape.Shape) bool {
	for _, f := range s.FieldsAt(shape.Body) {
		if _, ok := st.Get(f.Name); ok {
			return true
		}
	}
	return false
}

// DecodeQuery parses a form-encoded document produced by EncodeQuery back
// into the body-located fields of s. Action and Version are ignored.
func DecodeQuery(body []byte, s *shape.Shape) (shape.Struct, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, decodeErr(MalformedValue, "", err)
	}
	return decodeQueryStruct(values, "", "", s)
}

func decodeQueryStruct(values url.Values, prefix, path string, s *shape.Shape) (shape.Struct, error) {
	out := shape.Struct{}
	for _, f := range s.FieldsAt(shape.Body) {
		key := f.WireName
		if prefix != "" {
			key = prefix + "." + f.WireName
		}
		v, ok, err := decodeQueryValue(values, key, flattenedField(s, f.Type), joinPath(path, f.Name), f.Type, s)
		if err != nil {
			return nil, err
		}
		if ok {
			out[f.Name] = v
		}
	}
	return out, nil
}

func hasKeyPrefix(values url.Values, prefix string) bool {
	for k := range values {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

func decodeQueryValue(values url.Values, key string, flat bool, path string, ref shape.TypeRef, s *shape.Shape) (shape.Value, bool, error) {
	switch ref.Kind {
	case shape.Structure:
		if !hasKeyPrefix(values, key+".") {
			if _, marked := values[key]; marked {
				return shape.StructValue(shape.Struct{}), true, nil
			}
			return shape.Value{}, false, nil
		}
		st, err := decodeQueryStruct(values, key, path, ref.Shape)
		if err != nil {
			return shape.Value{}, false, err
		}
		return shape.StructValue(st), true, nil
	case shape.List:
		base := key
		if !flat {
			base = key + "." + s.MemberName()
		}
		_, marked := values[key]
		var members []shape.Value
		for i := 1; ; i++ {
			v, ok, err := decodeQueryValue(values, fmt.Sprintf("%s.%d", base, i), false, indexPath(path, i-1), ref.Member(), s)
			if err != nil {
				return shape.Value{}, false, err
			}
			if !ok {
				break
			}
			members = append(members, v)
		}
		if len(members) == 0 && !marked {
			return shape.Value{}, false, nil
		}
		return shape.ListValue(members...), true, nil
	case shape.Map:
		base := key
		if !flat {
			base = key + ".entry"
		}
		entries := map[string]shape.Value{}
		for i := 1; ; i++ {
			k, ok := values[fmt.Sprintf("%s.%d.%s", base, i, s.KeyName())]
			if !ok || len(k) == 0 {
				break
			}
			v, ok, err := decodeQueryValue(values, fmt.Sprintf("%s.%d.%s", base, i, s.ValueName()), false, keyPath(path, k[0]), ref.Member(), s)
			if err != nil {
				return shape.Value{}, false, err
			}
			if ok {
				entries[k[0]] = v
			}
		}
		if _, marked := values[key]; len(entries) == 0 && !marked {
			return shape.Value{}, false, nil
		}
		return shape.MapValue(entries), true, nil
	}

	vs, ok := values[key]
	if !ok || len(vs) == 0 {
		return shape.Value{}, false, nil
	}
	v, err := parseScalar(path, vs[0], ref, resolveFormat(ref, protocol.Query, shape.Body))
	if err != nil {
		return shape.Value{}, false, err
	}
	return v, true, nil
}
