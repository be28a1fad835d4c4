// Package request holds the protocol-neutral request produced by the
// builder and consumed by the signer and transports.
package request

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// QueryParam is one key/value pair of a query string. Keys may repeat.
type QueryParam struct {
	Key   string
	Value string
}

// Request is an unsent HTTP request. Path is already escaped. Header holds
// one value per name; repeated values are comma-joined by the builder.
type Request struct {
	Method      string
	Host        string
	Path        string
	Query       []QueryParam
	Header      http.Header
	Body        []byte
	ContentType string
}

// New returns an empty request for method and escaped path.
func New(method, path string) *Request {
	if path == "" {
		path = "/"
	}
	return &Request{
		Method: method,
		Path:   path,
		Header: make(http.Header),
	}
}

// Clone returns a deep copy of r.
func (r *Request) Clone() *Request {
	c := *r
	c.Header = r.Header.Clone()
	if c.Header == nil {
		c.Header = make(http.Header)
	}
	if r.Query != nil {
		c.Query = append([]QueryParam(nil), r.Query...)
	}
	if r.Body != nil {
		c.Body = append([]byte{}, r.Body...)
	}
	return &c
}

// AddQuery appends a query parameter.
func (r *Request) AddQuery(key, value string) {
	r.Query = append(r.Query, QueryParam{Key: key, Value: value})
}

// SetQuery replaces every parameter named key with a single value.
func (r *Request) SetQuery(key, value string) {
	kept := r.Query[:0:0]
	for _, p := range r.Query {
		if p.Key != key {
			kept = append(kept, p)
		}
	}
	r.Query = append(kept, QueryParam{Key: key, Value: value})
}

// QueryValue returns the first value of key.
func (r *Request) QueryValue(key string) (string, bool) {
	for _, p := range r.Query {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// RawQuery encodes the parameters in their current order.
func (r *Request) RawQuery() string {
	return EncodeQuery(r.Query)
}

// URL assembles the absolute URL of r.
func (r *Request) URL(scheme string) (*url.URL, error) {
	if scheme == "" {
		scheme = "https"
	}
	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(r.Host)
	if !strings.HasPrefix(r.Path, "/") {
		b.WriteByte('/')
	}
	b.WriteString(r.Path)
	if q := r.RawQuery(); q != "" {
		b.WriteByte('?')
		b.WriteString(q)
	}
	u, err := url.Parse(b.String())
	if err != nil {
		return nil, fmt.Errorf("failed to assemble request URL: %w", err)
	}
	return u, nil
}

// HTTPRequest converts r into a net/http request bound to ctx.
func (r *Request) HTTPRequest(ctx context.Context, scheme string) (*http.Request, error) {
	u, err := r.URL(scheme)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), bytes.NewReader(r.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header = r.Header.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if r.ContentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", r.ContentType)
	}
	req.ContentLength = int64(len(r.Body))
	if len(r.Body) == 0 {
		req.Body = http.NoBody
		req.GetBody = nil
	}
	req.Host = r.Host
	return req, nil
}
