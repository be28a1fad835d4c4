package request

import (
	"net/url"
	"sort"
	"strings"

	"github.com/aws/smithy-go/encoding/httpbinding"
)

// EscapePath percent-encodes every byte outside the RFC 3986 unreserved set
// using uppercase hex. '/' survives when encodeSep is false.
func EscapePath(p string, encodeSep bool) string {
	return httpbinding.EscapePath(p, encodeSep)
}

// EscapeQuery encodes a query key or value with the same table as
// EscapePath. Spaces become %20, never '+'.
func EscapeQuery(s string) string {
	return httpbinding.EscapePath(s, true)
}

// EncodeQuery renders params in order as key=value pairs joined by '&'.
func EncodeQuery(params []QueryParam) string {
	if len(params) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(EscapeQuery(p.Key))
		b.WriteByte('=')
		b.WriteString(EscapeQuery(p.Value))
	}
	return b.String()
}

// CanonicalQuery renders params sorted by encoded key, then encoded value.
func CanonicalQuery(params []QueryParam) string {
	if len(params) == 0 {
		return ""
	}
	encoded := make([][2]string, len(params))
	for i, p := range params {
		encoded[i] = [2]string{EscapeQuery(p.Key), EscapeQuery(p.Value)}
	}
	sort.Slice(encoded, func(i, j int) bool {
		if encoded[i][0] != encoded[j][0] {
			return encoded[i][0] < encoded[j][0]
		}
		return encoded[i][1] < encoded[j][1]
	})

	var b strings.Builder
	for i, kv := range encoded {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(kv[0])
		b.WriteByte('=')
		b.WriteString(kv[1])
	}
	return b.String()
}

// ParseQuery splits a raw query string such as "uploads&max-keys=5" into
// params. Undecodable escapes are kept literally.
func ParseQuery(raw string) []QueryParam {
	var params []QueryParam
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		params = append(params, QueryParam{Key: unescape(k), Value: unescape(v)})
	}
	return params
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}
