package integration

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/gurre/awscore/client"
	"github.com/gurre/awscore/config"
	"github.com/gurre/awscore/registry"
	"github.com/gurre/awscore/request"
	"github.com/gurre/awscore/response"
	"github.com/gurre/awscore/shape"
	"github.com/gurre/awscore/signer"
	"github.com/gurre/awscore/transport"
)

const (
	accessKeyID     = "AKIDEXAMPLE"
	secretAccessKey = "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY"
)

var signingTime = time.Date(2015, 8, 30, 12, 36, 0, 0, time.UTC)

// capture records the request an SDK client sends and fails it so that no
// response is ever parsed.
type capture struct {
	req  *http.Request
	body []byte
}

func (c *capture) Do(r *http.Request) (*http.Response, error) {
	c.req = r
	if r.Body != nil {
		c.body, _ = io.ReadAll(r.Body)
	}
	return nil, io.ErrUnexpectedEOF
}

func sdkConfig(region string, c *capture) aws.Config {
	return aws.Config{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		HTTPClient:  c,
		Retryer:     func() aws.Retryer { return aws.NopRetryer{} },
	}
}

func newClient(t *testing.T, cfg config.Config, reg *registry.Registry) *client.Client {
	t.Helper()
	cfg.AccessKeyID = accessKeyID
	cfg.SecretAccessKey = secretAccessKey
	c, err := client.New(cfg, func(o *client.Options) {
		o.Registry = reg
		o.Transport = transport.Func(func(ctx context.Context, req *request.Request) (*response.Response, error) {
			t.Fatal("conformance tests never send")
			return nil, nil
		})
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

func loadCatalog(t *testing.T, path string) (*registry.Catalog, *registry.Registry) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read catalog: %v", err)
	}
	catalog, err := registry.ParseCatalog(data)
	if err != nil {
		t.Fatalf("failed to parse catalog: %v", err)
	}
	reg, err := catalog.Registry()
	if err != nil {
		t.Fatalf("failed to resolve catalog: %v", err)
	}
	return catalog, reg
}

func decodeJSON(t *testing.T, data []byte) any {
	t.Helper()
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("failed to decode %s: %v", data, err)
	}
	return v
}

func mediaType(t *testing.T, ct string) string {
	t.Helper()
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		t.Fatalf("failed to parse content type %q: %v", ct, err)
	}
	return mt
}

func TestSignerMatchesSDK(t *testing.T) {
	creds := aws.Credentials{AccessKeyID: accessKeyID, SecretAccessKey: secretAccessKey}
	testCases := []struct {
		name            string
		region, service string
		disableEscaping bool
		token           string
		build           func() *request.Request
	}{
		{
			name: "query GET", region: "us-east-1", service: "iam",
			build: func() *request.Request {
				req := request.New("GET", "/")
				req.Host = "iam.amazonaws.com"
				req.AddQuery("Action", "ListUsers")
				req.AddQuery("Version", "2010-05-08")
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
				return req
			},
		},
		{
			name: "json POST", region: "us-west-2", service: "dynamodb",
			build: func() *request.Request {
				req := request.New("POST", "/")
				req.Host = "dynamodb.us-west-2.amazonaws.com"
				req.Header.Set("X-Amz-Target", "DynamoDB_20120810.DescribeTable")
				req.Header.Set("Content-Type", "application/x-amz-json-1.0")
				req.Body = []byte(`{"TableName":"things"}`)
				return req
			},
		},
		{
			name: "s3 path with session token", region: "eu-west-1", service: "s3",
			disableEscaping: true, token: "session-token",
			build: func() *request.Request {
				req := request.New("GET", "/my-bucket/photos/a%20b.jpg")
				req.Host = "s3.eu-west-1.amazonaws.com"
				req.AddQuery("versionId", "v 1")
				return req
			},
		},
		{
			name: "header values with excess spaces", region: "us-east-1", service: "execute-api",
			build: func() *request.Request {
				req := request.New("PUT", "/stage/items/42")
				req.Host = "abc123.execute-api.us-east-1.amazonaws.com"
				req.Header.Set("X-Amz-Meta-Note", "  two   words  ")
				req.Header.Set("Content-Type", "application/json")
				req.Body = []byte(`{"name":"x"}`)
				return req
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := creds
			c.SessionToken = tc.token
			base := tc.build()

			sg, err := signer.New(signer.Options{Region: tc.region, Service: tc.service, DisableURIPathEscaping: tc.disableEscaping})
			if err != nil {
				t.Fatalf("failed to create signer: %v", err)
			}
			ours, err := sg.Sign(base, c, signingTime)
			if err != nil {
				t.Fatalf("failed to sign: %v", err)
			}

			hreq, err := base.HTTPRequest(context.Background(), "https")
			if err != nil {
				t.Fatalf("failed to convert request: %v", err)
			}
			sdk := v4.NewSigner(func(o *v4.SignerOptions) {
				o.DisableURIPathEscaping = tc.disableEscaping
			})
			if err := sdk.SignHTTP(context.Background(), c, hreq, signer.PayloadHash(base.Body), tc.service, tc.region, signingTime); err != nil {
				t.Fatalf("sdk failed to sign: %v", err)
			}

			if got, want := ours.Header.Get("Authorization"), hreq.Header.Get("Authorization"); got != want {
				t.Errorf("expected %s, got %s", want, got)
			}
			if got, want := ours.Header.Get("X-Amz-Date"), hreq.Header.Get("X-Amz-Date"); got != want {
				t.Errorf("expected date %s, got %s", want, got)
			}
			if got, want := ours.Header.Get("X-Amz-Security-Token"), hreq.Header.Get("X-Amz-Security-Token"); got != want {
				t.Errorf("expected token %q, got %q", want, got)
			}
		})
	}
}

func TestPresignMatchesSDK(t *testing.T) {
	creds := aws.Credentials{AccessKeyID: accessKeyID, SecretAccessKey: secretAccessKey}
	base := request.New("GET", "/my-bucket/reports/2024%20q1.csv")
	base.Host = "s3.eu-west-1.amazonaws.com"

	sg, _ := signer.New(signer.Options{
		Region:                 "eu-west-1",
		Service:                "s3",
		DisableURIPathEscaping: true,
		Payload:                signer.UnsignedPayloadMode,
	})
	ours, err := sg.Presign(base, creds, signingTime, 15*time.Minute)
	if err != nil {
		t.Fatalf("failed to presign: %v", err)
	}

	hreq, err := base.HTTPRequest(context.Background(), "https")
	if err != nil {
		t.Fatalf("failed to convert request: %v", err)
	}
	q := hreq.URL.Query()
	q.Set("X-Amz-Expires", "900")
	hreq.URL.RawQuery = q.Encode()
	sdk := v4.NewSigner(func(o *v4.SignerOptions) { o.DisableURIPathEscaping = true })
	signedURI, _, err := sdk.PresignHTTP(context.Background(), creds, hreq, signer.UnsignedPayload, "s3", "eu-west-1", signingTime)
	if err != nil {
		t.Fatalf("sdk failed to presign: %v", err)
	}
	sdkURL, err := url.Parse(signedURI)
	if err != nil {
		t.Fatalf("failed to parse sdk URL: %v", err)
	}

	for _, key := range []string{"X-Amz-Signature", "X-Amz-SignedHeaders", "X-Amz-Credential", "X-Amz-Date", "X-Amz-Expires"} {
		got, _ := ours.QueryValue(key)
		if want := sdkURL.Query().Get(key); got != want {
			t.Errorf("expected %s=%s, got %s", key, want, got)
		}
	}
}

func TestDynamoDBGetItemMatchesSDK(t *testing.T) {
	catalog, reg := loadCatalog(t, "testdata/dynamodb.json")

	captured := &capture{}
	key, err := attributevalue.MarshalMap(map[string]any{"id": "abc", "n": 5})
	if err != nil {
		t.Fatalf("failed to marshal key: %v", err)
	}
	ddb := dynamodb.NewFromConfig(sdkConfig("us-east-1", captured))
	_, _ = ddb.GetItem(context.Background(), &dynamodb.GetItemInput{
		TableName:      aws.String("things"),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if captured.req == nil {
		t.Fatal("expected the SDK to send a request")
	}

	md := catalog.Metadata
	c := newClient(t, config.Config{
		Region:       "us-east-1",
		Service:      md.EndpointPrefix,
		Protocol:     md.Protocol,
		TargetPrefix: md.TargetPrefix,
		JSONVersion:  md.JSONVersion,
	}, reg)
	op, err := reg.Lookup("GetItem")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req, err := c.CreateRequest(op, shape.Struct{
		"TableName": shape.StringValue("things"),
		"Key": shape.MapValue(map[string]shape.Value{
			"id": shape.StructValue(shape.Struct{"S": shape.StringValue("abc")}),
			"n":  shape.StructValue(shape.Struct{"N": shape.StringValue("5")}),
		}),
		"ConsistentRead": shape.BooleanValue(true),
	})
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}

	if req.Method != captured.req.Method {
		t.Errorf("expected method %s, got %s", captured.req.Method, req.Method)
	}
	if req.Path != captured.req.URL.EscapedPath() {
		t.Errorf("expected path %s, got %s", captured.req.URL.EscapedPath(), req.Path)
	}
	if req.Host != captured.req.URL.Host {
		t.Errorf("expected host %s, got %s", captured.req.URL.Host, req.Host)
	}
	for _, h := range []string{"X-Amz-Target", "Content-Type"} {
		if got, want := req.Header.Get(h), captured.req.Header.Get(h); got != want {
			t.Errorf("expected %s %q, got %q", h, want, got)
		}
	}
	if diff := cmp.Diff(decodeJSON(t, captured.body), decodeJSON(t, req.Body)); diff != "" {
		t.Errorf("body mismatch (-sdk +ours):\n%s", diff)
	}
}

func TestDynamoDBDescribeTableMatchesSDK(t *testing.T) {
	catalog, reg := loadCatalog(t, "testdata/dynamodb.json")

	captured := &capture{}
	ddb := dynamodb.NewFromConfig(sdkConfig("eu-north-1", captured))
	_, _ = ddb.DescribeTable(context.Background(), &dynamodb.DescribeTableInput{TableName: aws.String("things")})
	if captured.req == nil {
		t.Fatal("expected the SDK to send a request")
	}

	md := catalog.Metadata
	c := newClient(t, config.Config{
		Region:       "eu-north-1",
		Service:      md.EndpointPrefix,
		Protocol:     md.Protocol,
		TargetPrefix: md.TargetPrefix,
	}, reg)
	op, _ := reg.Lookup("DescribeTable")
	req, err := c.CreateRequest(op, shape.Struct{"TableName": shape.StringValue("things")})
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}

	if got, want := req.Header.Get("X-Amz-Target"), captured.req.Header.Get("X-Amz-Target"); got != want {
		t.Errorf("expected target %s, got %s", want, got)
	}
	if got, want := req.Header.Get("Content-Type"), captured.req.Header.Get("Content-Type"); got != want {
		t.Errorf("expected content type %s, got %s", want, got)
	}
	if req.Host != captured.req.URL.Host {
		t.Errorf("expected host %s, got %s", captured.req.URL.Host, req.Host)
	}
	if diff := cmp.Diff(decodeJSON(t, captured.body), decodeJSON(t, req.Body)); diff != "" {
		t.Errorf("body mismatch (-sdk +ours):\n%s", diff)
	}
}

func iamRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New(
		shape.Operation{
			Name: "GetUser",
			Input: shape.MustNew("GetUserRequest", []shape.Field{
				{Name: "UserName", Type: shape.Of(shape.String)},
			}),
		},
		shape.Operation{
			Name: "ListUsers",
			Input: shape.MustNew("ListUsersRequest", []shape.Field{
				{Name: "PathPrefix", Type: shape.Of(shape.String)},
				{Name: "Marker", Type: shape.Of(shape.String)},
				{Name: "MaxItems", Type: shape.Of(shape.Integer)},
			}),
		},
	)
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	return reg
}

func TestIAMQueryMatchesSDK(t *testing.T) {
	testCases := []struct {
		name  string
		op    string
		call  func(*iam.Client) error
		input shape.Struct
	}{
		{
			name: "GetUser",
			op:   "GetUser",
			call: func(c *iam.Client) error {
				_, err := c.GetUser(context.Background(), &iam.GetUserInput{UserName: aws.String("alice")})
				return err
			},
			input: shape.Struct{"UserName": shape.StringValue("alice")},
		},
		{
			name: "ListUsers",
			op:   "ListUsers",
			call: func(c *iam.Client) error {
				_, err := c.ListUsers(context.Background(), &iam.ListUsersInput{
					PathPrefix: aws.String("/dev/ops/"),
					MaxItems:   aws.Int32(10),
				})
				return err
			},
			input: shape.Struct{
				"PathPrefix": shape.StringValue("/dev/ops/"),
				"MaxItems":   shape.IntegerValue(10),
			},
		},
	}
	reg := iamRegistry(t)
	c := newClient(t, config.Config{
		Region:     "us-east-1",
		Service:    "iam",
		Protocol:   "query",
		APIVersion: "2010-05-08",
	}, reg)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			captured := &capture{}
			_ = tc.call(iam.NewFromConfig(sdkConfig("us-east-1", captured)))
			if captured.req == nil {
				t.Fatal("expected the SDK to send a request")
			}

			op, _ := reg.Lookup(tc.op)
			req, err := c.CreateRequest(op, tc.input)
			if err != nil {
				t.Fatalf("failed to build request: %v", err)
			}

			if req.Method != captured.req.Method {
				t.Errorf("expected method %s, got %s", captured.req.Method, req.Method)
			}
			if got, want := mediaType(t, req.Header.Get("Content-Type")), mediaType(t, captured.req.Header.Get("Content-Type")); got != want {
				t.Errorf("expected media type %s, got %s", want, got)
			}
			sdkForm, err := url.ParseQuery(string(captured.body))
			if err != nil {
				t.Fatalf("failed to parse sdk body: %v", err)
			}
			ourForm, err := url.ParseQuery(string(req.Body))
			if err != nil {
				t.Fatalf("failed to parse body: %v", err)
			}
			if diff := cmp.Diff(sdkForm, ourForm); diff != "" {
				t.Errorf("form mismatch (-sdk +ours):\n%s", diff)
			}
		})
	}
}

func TestS3HeadObjectMatchesSDK(t *testing.T) {
	captured := &capture{}
	s3c := s3.NewFromConfig(sdkConfig("eu-west-1", captured), func(o *s3.Options) {
		o.UsePathStyle = true
	})
	_, _ = s3c.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: aws.String("my-bucket"),
		Key:    aws.String("photos/2024/a b.jpg"),
		Range:  aws.String("bytes=0-99"),
	})
	if captured.req == nil {
		t.Fatal("expected the SDK to send a request")
	}

	reg, err := registry.New(shape.Operation{
		Name:   "HeadObject",
		Method: "HEAD",
		Path:   "/{Bucket}/{Key+}",
		Input: shape.MustNew("HeadObjectRequest", []shape.Field{
			{Name: "Bucket", Location: shape.URIPath, Required: true, Type: shape.Of(shape.String)},
			{Name: "Key", Location: shape.URIPath, Required: true, Type: shape.Of(shape.String)},
			{Name: "Range", Location: shape.Header, Type: shape.Of(shape.String)},
		}),
	})
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	c := newClient(t, config.Config{
		Region:                 "eu-west-1",
		Service:                "s3",
		Protocol:               "rest-xml",
		DisableURIPathEscaping: true,
	}, reg)
	op, _ := reg.Lookup("HeadObject")
	req, err := c.CreateRequest(op, shape.Struct{
		"Bucket": shape.StringValue("my-bucket"),
		"Key":    shape.StringValue("photos/2024/a b.jpg"),
		"Range":  shape.StringValue("bytes=0-99"),
	})
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}

	if req.Method != captured.req.Method {
		t.Errorf("expected method %s, got %s", captured.req.Method, req.Method)
	}
	if req.Path != captured.req.URL.EscapedPath() {
		t.Errorf("expected path %s, got %s", captured.req.URL.EscapedPath(), req.Path)
	}
	if req.Host != captured.req.URL.Host {
		t.Errorf("expected host %s, got %s", captured.req.URL.Host, req.Host)
	}
	if got, want := req.Header.Get("Range"), captured.req.Header.Get("Range"); got != want {
		t.Errorf("expected range %s, got %s", want, got)
	}
	if len(req.Body) != 0 {
		t.Errorf("expected no body, got %q", req.Body)
	}
}
