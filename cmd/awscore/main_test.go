package main

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gurre/awscore/registry"
	"github.com/gurre/awscore/request"
	"github.com/gurre/awscore/shape"
)

func TestParseFlags(t *testing.T) {
	testCases := []struct {
		name      string
		args      []string
		expectErr bool
	}{
		{"minimal", []string{"-c", "svc.json", "-o", "GetThing"}, false},
		{"list without operation", []string{"--catalog", "svc.json", "--list"}, false},
		{"presign", []string{"-c", "svc.json", "-o", "GetObject", "--presign", "15m"}, false},
		{"missing catalog", []string{"-o", "GetThing"}, true},
		{"missing operation", []string{"-c", "svc.json"}, true},
		{"presign and send", []string{"-c", "svc.json", "-o", "X", "--presign", "1m", "--send"}, true},
		{"unknown flag", []string{"-c", "svc.json", "-o", "X", "--bogus"}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseFlags(tc.args, io.Discard)
			if tc.expectErr && err == nil {
				t.Errorf("expected error")
			}
			if !tc.expectErr && err != nil {
				t.Errorf("expected no error, got: %v", err)
			}
		})
	}
}

func TestParseFlagsDefaults(t *testing.T) {
	o, err := parseFlags([]string{"-c", "svc.json", "-o", "GetThing"}, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.input != "{}" {
		t.Errorf("expected empty JSON input, got %s", o.input)
	}
	if o.timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", o.timeout)
	}
}

func TestClientConfig(t *testing.T) {
	md := registry.Metadata{
		Protocol:       "rest-xml",
		SigningName:    "s3",
		EndpointPrefix: "s3",
		XMLNamespace:   "http://s3.amazonaws.com/doc/2006-03-01/",
	}
	cfg := clientConfig(&options{timeout: time.Second}, md, "eu-west-1")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
	if cfg.Service != "s3" || cfg.Region != "eu-west-1" {
		t.Errorf("expected s3 in eu-west-1, got %s in %s", cfg.Service, cfg.Region)
	}
	if !cfg.DisableURIPathEscaping || !cfg.AddPayloadHashHeader {
		t.Error("expected S3 signing rules")
	}

	cfg = clientConfig(&options{service: "dynamodb-fips"}, registry.Metadata{Protocol: "json", SigningName: "dynamodb"}, "us-east-1")
	if cfg.Service != "dynamodb-fips" || cfg.GetSigningName() != "dynamodb" {
		t.Errorf("expected service override with dynamodb signing, got %s/%s", cfg.Service, cfg.GetSigningName())
	}
	if cfg.DisableURIPathEscaping {
		t.Error("expected path escaping outside S3")
	}
}

func TestWriteRequest(t *testing.T) {
	req := request.New("POST", "/")
	req.Host = "dynamodb.us-east-1.amazonaws.com"
	req.Header.Set("X-Amz-Target", "DynamoDB_20120810.ListTables")
	req.Header.Set("Content-Type", "application/x-amz-json-1.0")
	req.Body = []byte(`{}`)

	var b strings.Builder
	if err := writeRequest(&b, req, "https"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "POST https://dynamodb.us-east-1.amazonaws.com/\n" +
		"Content-Type: application/x-amz-json-1.0\n" +
		"X-Amz-Target: DynamoDB_20120810.ListTables\n" +
		"\n{}\n"
	if b.String() != expected {
		t.Errorf("expected %q, got %q", expected, b.String())
	}
}

func TestWriteOutput(t *testing.T) {
	s := shape.MustNew("Out", []shape.Field{{Name: "TableNames", Type: shape.ListOf(shape.Of(shape.String))}})
	var b strings.Builder
	out := shape.Struct{"TableNames": shape.ListValue(shape.StringValue("a"), shape.StringValue("b"))}
	if err := writeOutput(&b, out, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.String() != `{"TableNames":["a","b"]}`+"\n" {
		t.Errorf("expected JSON output, got %q", b.String())
	}
}

var s3Catalog = filepath.Join("..", "..", "registry", "testdata", "s3.json")

// isolateAWSEnv points the SDK at static environment credentials so run
// never reads the user's profile or the instance metadata service.
func isolateAWSEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIDCLI")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_SESSION_TOKEN", "")
}

func TestRunHeadObject(t *testing.T) {
	isolateAWSEnv(t)
	input := `{"Bucket":"b","Key":"dir/a b.jpg","IfModifiedSince":"2001-12-23T15:34:12Z","PartNumber":2}`

	var stdout strings.Builder
	err := run([]string{"-c", s3Catalog, "-o", "HeadObject", "--region", "us-east-1", "-i", input}, &stdout, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(stdout.String(), "\n")
	if lines[0] != "HEAD https://s3.us-east-1.amazonaws.com/b/dir/a%20b.jpg?partNumber=2" {
		t.Errorf("unexpected request line %q", lines[0])
	}
	out := stdout.String()
	if !strings.Contains(out, "If-Modified-Since: Sun, 23 Dec 2001 15:34:12 GMT\n") {
		t.Errorf("expected the header input to be sent, got %s", out)
	}
	if !strings.Contains(out, "Authorization: AWS4-HMAC-SHA256 Credential=AKIDCLI/") {
		t.Errorf("expected a signed request, got %s", out)
	}
}

func TestRunPresign(t *testing.T) {
	isolateAWSEnv(t)

	var stdout strings.Builder
	args := []string{"-c", s3Catalog, "-o", "HeadObject", "--region", "us-east-1", "--presign", "10m", "-i", `{"Bucket":"b","Key":"k"}`}
	if err := run(args, &stdout, io.Discard); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	line, _, _ := strings.Cut(stdout.String(), "\n")
	if !strings.HasPrefix(line, "HEAD https://s3.us-east-1.amazonaws.com/b/k?") {
		t.Errorf("unexpected request line %q", line)
	}
	for _, want := range []string{"X-Amz-Expires=600", "X-Amz-Credential=AKIDCLI%2F", "X-Amz-Signature="} {
		if !strings.Contains(line, want) {
			t.Errorf("expected %s in %s", want, line)
		}
	}
	if strings.Contains(stdout.String(), "Authorization:") {
		t.Errorf("expected no Authorization header on a presigned URL")
	}
}

func TestRunList(t *testing.T) {
	isolateAWSEnv(t)

	var stdout strings.Builder
	if err := run([]string{"-c", s3Catalog, "--list", "--region", "us-east-1"}, &stdout, io.Discard); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stdout.String() != "HeadObject\nPutBucketTagging\n" {
		t.Errorf("unexpected operations %q", stdout.String())
	}
}

func TestWriteOutputHeaders(t *testing.T) {
	src, err := registry.NewSource(s3Catalog, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, reg, err := registry.Load(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	op, err := reg.Lookup("HeadObject")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := shape.Struct{
		"ContentLength": shape.IntegerValue(42),
		"ETag":          shape.StringValue(`"abc"`),
		"Metadata":      shape.MapValue(map[string]shape.Value{"owner": shape.StringValue("alice")}),
	}
	var b strings.Builder
	if err := writeOutput(&b, out, op.OutputShape()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := `{"ContentLength":42,"ETag":"\"abc\"","Metadata":{"owner":"alice"}}` + "\n"
	if b.String() != expected {
		t.Errorf("expected %q, got %q", expected, b.String())
	}
}
