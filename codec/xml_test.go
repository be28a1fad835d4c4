package codec

import (
	"errors"
	"testing"

	"github.com/gurre/awscore/protocol"
	"github.com/gurre/awscore/shape"
)

func TestDecodeXML(t *testing.T) {
	body := []byte(`<Output><item1>Hello</item1><item2>5</item2><item3>3.141</item3><item4>2001-12-23T15:34:12.590Z</item4></Output>`)
	got, err := DecodeXML(body, outputShape(), protocol.RESTXML, XMLOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := shape.Struct{
		"item1": shape.StringValue("Hello"),
		"item2": shape.IntegerValue(5),
		"item3": shape.DoubleValue(3.141),
		"item4": shape.TimestampValue(sampleTime),
	}
	if !got.Equal(expected) {
		t.Errorf("expected %v, got %v", shape.StructValue(expected), shape.StructValue(got))
	}
}

func TestEncodeXML(t *testing.T) {
	in := shape.Struct{
		"item1": shape.StringValue("Hello"),
		"item2": shape.IntegerValue(5),
		"item3": shape.DoubleValue(3.141),
		"item4": shape.TimestampValue(sampleTime),
	}
	got, err := EncodeXML(in, outputShape(), protocol.RESTXML, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := `<Output><item1>Hello</item1><item2>5</item2><item3>3.141</item3><item4>2001-12-23T15:34:12.590Z</item4></Output>`
	if string(got) != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}
}

func TestEncodeXMLNamespace(t *testing.T) {
	s := shape.MustNew("Config", []shape.Field{{Name: "Status", Type: shape.Of(shape.String)}})
	got, err := EncodeXML(shape.Struct{"Status": shape.StringValue("Enabled")}, s, protocol.RESTXML,
		"VersioningConfiguration", "http://s3.amazonaws.com/doc/2006-03-01/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := `<VersioningConfiguration xmlns="http://s3.amazonaws.com/doc/2006-03-01/"><Status>Enabled</Status></VersioningConfiguration>`
	if string(got) != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}

	out, err := DecodeXML(got, s, protocol.RESTXML, XMLOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status, _ := out.String("Status"); status != "Enabled" {
		t.Errorf("expected Enabled, got %s", status)
	}
}

func TestEncodeXMLCollections(t *testing.T) {
	in := shape.Struct{
		"Names":  shape.ListValue(shape.StringValue("a"), shape.StringValue("b")),
		"Scores": shape.MapValue(map[string]shape.Value{"y": shape.IntegerValue(2), "x": shape.IntegerValue(1)}),
	}

	testCases := []struct {
		name     string
		shape    *shape.Shape
		expected string
	}{
		{
			name:     "wrapped",
			shape:    richShape(),
			expected: `<Rich><Names><member>a</member><member>b</member></Names><Scores><entry><key>x</key><value>1</value></entry><entry><key>y</key><value>2</value></entry></Scores></Rich>`,
		},
		{
			name:     "flattened",
			shape:    richShape(shape.FlattenLists()),
			expected: `<Rich><Names>a</Names><Names>b</Names><Scores><key>x</key><value>1</value></Scores><Scores><key>y</key><value>2</value></Scores></Rich>`,
		},
		{
			name:     "custom names",
			shape:    richShape(shape.WithMemberName("item"), shape.WithMapNames("k", "v")),
			expected: `<Rich><Names><item>a</item><item>b</item></Names><Scores><entry><k>x</k><v>1</v></entry><entry><k>y</k><v>2</v></entry></Scores></Rich>`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EncodeXML(in, tc.shape, protocol.RESTXML, "", "")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tc.expected {
				t.Errorf("expected %s, got %s", tc.expected, got)
			}
			out, err := DecodeXML(got, tc.shape, protocol.RESTXML, XMLOptions{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !out.Equal(in) {
				t.Errorf("expected %v, got %v", shape.StructValue(in), shape.StructValue(out))
			}
		})
	}
}

func TestDecodeXMLUnwrapResult(t *testing.T) {
	user := shape.MustNew("User", []shape.Field{{Name: "UserName", Type: shape.Of(shape.String)}})
	s := shape.MustNew("GetUserOutput", []shape.Field{{Name: "User", Type: shape.StructureOf(user)}})
	body := []byte(`<GetUserResponse xmlns="https://iam.amazonaws.com/doc/2010-05-08/">
  <GetUserResult>
    <User><UserName>bob</UserName></User>
  </GetUserResult>
  <ResponseMetadata><RequestId>7a62c49f</RequestId></ResponseMetadata>
</GetUserResponse>`)

	got, err := DecodeXML(body, s, protocol.Query, XMLOptions{UnwrapResult: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, ok := got.Struct("User")
	if !ok {
		t.Fatalf("expected User to be decoded, got %v", shape.StructValue(got))
	}
	if name, _ := u.String("UserName"); name != "bob" {
		t.Errorf("expected bob, got %s", name)
	}

	got, err = DecodeXML(body, s, protocol.Query, XMLOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected nothing without unwrapping, got %v", shape.StructValue(got))
	}
}

func TestDecodeXMLErrors(t *testing.T) {
	testCases := []struct {
		name   string
		body   string
		reason DecodeReason
		field  string
	}{
		{"word for integer", `<Output><item2>five</item2></Output>`, TypeMismatch, "item2"},
		{"word for double", `<Output><item3>pi</item3></Output>`, TypeMismatch, "item3"},
		{"bad timestamp", `<Output><item4>soon</item4></Output>`, MalformedValue, "item4"},
		{"element for scalar", `<Output><item1><b>x</b></item1></Output>`, TypeMismatch, "item1"},
		{"truncated", `<Output><item1>Hello</item1>`, MalformedValue, ""},
		{"no root", `just text`, MalformedValue, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeXML([]byte(tc.body), outputShape(), protocol.RESTXML, XMLOptions{})
			var decErr *DecodeError
			if !errors.As(err, &decErr) {
				t.Fatalf("expected DecodeError, got %v", err)
			}
			if decErr.Reason != tc.reason {
				t.Errorf("expected %s, got %s", tc.reason, decErr.Reason)
			}
			if decErr.Field != tc.field {
				t.Errorf("expected field %q, got %q", tc.field, decErr.Field)
			}
		})
	}
}

func TestDecodeXMLSkipsUnknown(t *testing.T) {
	body := []byte(`<Output><extra><deep>1</deep></extra><item1>Hi</item1></Output>`)
	got, err := DecodeXML(body, outputShape(), protocol.RESTXML, XMLOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s, _ := got.String("item1"); s != "Hi" || len(got) != 1 {
		t.Errorf("expected only item1=Hi, got %v", shape.StructValue(got))
	}
}

func TestEncodeXMLNoRoot(t *testing.T) {
	s := shape.MustNew("", []shape.Field{{Name: "A", Type: shape.Of(shape.String)}})
	if _, err := EncodeXML(shape.Struct{}, s, protocol.RESTXML, "", ""); !errors.Is(err, shape.ErrInvalidShape) {
		t.Errorf("expected ErrInvalidShape, got %v", err)
	}
}
