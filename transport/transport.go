// Package transport sends built requests and reads back whole responses.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/gurre/awscore/request"
	"github.com/gurre/awscore/response"
)

// Transport delivers one request and returns the complete response.
type Transport interface {
	Send(ctx context.Context, req *request.Request) (*response.Response, error)
}

// Func adapts a function to Transport.
type Func func(ctx context.Context, req *request.Request) (*response.Response, error)

func (f Func) Send(ctx context.Context, req *request.Request) (*response.Response, error) {
	return f(ctx, req)
}

// HTTPTransport sends requests through any HTTP client.
type HTTPTransport struct {
	client smithyhttp.ClientDo
	scheme string
}

var (
	_ Transport           = (*HTTPTransport)(nil)
	_ Transport           = Func(nil)
	_ smithyhttp.ClientDo = (*http.Client)(nil)
	_ smithyhttp.ClientDo = (*awshttp.BuildableClient)(nil)
)

// NewHTTPTransport returns a transport over client. An empty scheme means
// https.
func NewHTTPTransport(client smithyhttp.ClientDo, scheme string) *HTTPTransport {
	if scheme == "" {
		scheme = "https"
	}
	return &HTTPTransport{client: client, scheme: scheme}
}

// NewDefault returns a transport over the SDK's default client with an
// overall request timeout. A zero timeout leaves requests unbounded.
func NewDefault(scheme string, timeout time.Duration) *HTTPTransport {
	client := awshttp.NewBuildableClient()
	if timeout > 0 {
		client = client.WithTimeout(timeout)
	}
	return NewHTTPTransport(client, scheme)
}

// Send converts req to an http.Request, sends it and reads the whole body.
func (t *HTTPTransport) Send(ctx context.Context, req *request.Request) (*response.Response, error) {
	hreq, err := req.HTTPRequest(ctx, t.scheme)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("failed to send %s %s: %w", req.Method, req.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return &response.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
