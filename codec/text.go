package codec

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aws/smithy-go/encoding"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/gurre/awscore/protocol"
	"github.com/gurre/awscore/shape"
)

// EncodeText renders a header, query string or URI path value. Scalars yield
// one string. Lists yield one string per member in a query string and a
// single comma-joined string in a header. Maps and structures are rejected;
// the request builder expands header and query maps itself.
func EncodeText(name string, v shape.Value, ref shape.TypeRef, p protocol.Protocol, loc shape.Location) ([]string, error) {
	switch ref.Kind {
	case shape.List:
		if loc == shape.URIPath || loc == shape.Body {
			return nil, locationErr(name, ref, loc)
		}
		members, ok := v.AsList()
		if !ok {
			return nil, kindErr(name, ref, v)
		}
		elem := ref.Member()
		out := make([]string, 0, len(members))
		for i, m := range members {
			s, err := scalarText(indexPath(name, i), m, elem, p, loc)
			if err != nil {
				return nil, err
			}
			if loc == shape.Header && elem.Kind != shape.Timestamp {
				s = quoteListMember(s)
			}
			out = append(out, s)
		}
		if loc == shape.Header {
			return []string{strings.Join(out, ",")}, nil
		}
		return out, nil
	case shape.Map, shape.Structure:
		return nil, locationErr(name, ref, loc)
	}

	s, err := scalarText(name, v, ref, p, loc)
	if err != nil {
		return nil, err
	}
	return []string{s}, nil
}

// DecodeText parses the wire strings of a header, query string or URI path
// value. Header lists may arrive as one comma-joined value or as repeated
// headers; query lists arrive as repeated parameters.
func DecodeText(name string, values []string, ref shape.TypeRef, p protocol.Protocol, loc shape.Location) (shape.Value, error) {
	if ref.Kind == shape.List {
		elem := ref.Member()
		members := values
		if loc == shape.Header {
			var err error
			if resolveFormat(elem, p, loc) == shape.HTTPDate && elem.Kind == shape.Timestamp {
				members, err = smithyhttp.SplitHTTPDateTimestampHeaderListValues(values)
			} else {
				members, err = smithyhttp.SplitHeaderListValues(values)
			}
			if err != nil {
				return shape.Value{}, decodeErr(MalformedValue, name, err)
			}
		}
		out := make([]shape.Value, 0, len(members))
		for i, m := range members {
			v, err := parseScalar(indexPath(name, i), m, elem, resolveFormat(elem, p, loc))
			if err != nil {
				return shape.Value{}, err
			}
			out = append(out, v)
		}
		return shape.ListValue(out...), nil
	}
	if len(values) == 0 {
		return shape.Value{}, decodeErr(MissingRequiredField, name, nil)
	}
	return parseScalar(name, values[0], ref, resolveFormat(ref, p, loc))
}

func scalarText(name string, v shape.Value, ref shape.TypeRef, p protocol.Protocol, loc shape.Location) (string, error) {
	switch ref.Kind {
	case shape.String, shape.Enum:
		if s, ok := v.AsString(); ok {
			return s, nil
		}
	case shape.Integer:
		if n, ok := v.AsInteger(); ok {
			return strconv.FormatInt(n, 10), nil
		}
	case shape.Double:
		if f, ok := v.AsDouble(); ok {
			return FormatDouble(f), nil
		}
	case shape.Boolean:
		if b, ok := v.AsBoolean(); ok {
			return strconv.FormatBool(b), nil
		}
	case shape.Timestamp:
		if t, ok := v.AsTimestamp(); ok {
			return FormatTimestamp(t, resolveFormat(ref, p, loc)), nil
		}
	case shape.Blob:
		if b, ok := v.AsBlob(); ok {
			return base64.StdEncoding.EncodeToString(b), nil
		}
	default:
		return "", locationErr(name, ref, loc)
	}
	return "", kindErr(name, ref, v)
}

// parseScalar is shared by the text, XML and Query decoders.
func parseScalar(name, s string, ref shape.TypeRef, tf shape.TimestampFormat) (shape.Value, error) {
	switch ref.Kind {
	case shape.String:
		return shape.StringValue(s), nil
	case shape.Enum:
		return shape.EnumValue(s), nil
	case shape.Integer:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return shape.Value{}, decodeErr(TypeMismatch, name, fmt.Errorf("expected integer, got %q", s))
		}
		return shape.IntegerValue(n), nil
	case shape.Double:
		f, err := ParseDouble(strings.TrimSpace(s))
		if err != nil {
			return shape.Value{}, decodeErr(TypeMismatch, name, err)
		}
		return shape.DoubleValue(f), nil
	case shape.Boolean:
		switch strings.TrimSpace(s) {
		case "true":
			return shape.BooleanValue(true), nil
		case "false":
			return shape.BooleanValue(false), nil
		}
		return shape.Value{}, decodeErr(TypeMismatch, name, fmt.Errorf("expected boolean, got %q", s))
	case shape.Timestamp:
		t, err := ParseTimestamp(s, tf)
		if err != nil {
			return shape.Value{}, decodeErr(MalformedValue, name, err)
		}
		return shape.TimestampValue(t), nil
	case shape.Blob:
		b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
		if err != nil {
			return shape.Value{}, decodeErr(MalformedValue, name, err)
		}
		return shape.BlobValue(b), nil
	}
	return shape.Value{}, decodeErr(TypeMismatch, name, fmt.Errorf("%s is not a scalar", ref))
}

// FormatDouble renders a float the way the JSON and XML writers do, with
// NaN and the infinities spelled out.
func FormatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return string(encoding.EncodeFloat(nil, f, 64))
}

// ParseDouble accepts decimal and exponent notation plus NaN and the
// spelled-out infinities.
func ParseDouble(s string) (float64, error) {
	switch s {
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("expected number, got %q", s)
	}
	return f, nil
}

func quoteListMember(s string) string {
	if s == "" || strings.ContainsAny(s, ",\"") || strings.TrimSpace(s) != s {
		return strconv.Quote(s)
	}
	return s
}
