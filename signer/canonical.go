package signer

import (
	"net/http"
	"net/textproto"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/gurre/awscore/request"
)

// CanonicalRequest is the first stage of a signature.
type CanonicalRequest struct {
	String        string // METHOD\nURI\nQUERY\nHEADERS\nSIGNED\nHASH
	SignedHeaders string // lower-cased names joined by ';'
}

// Canonicalize renders req with the given payload hash. The host header is
// always signed and content-length is signed when the body is non-empty.
// When disablePathEscaping is false the already-escaped path is escaped a
// second time after dot segments are removed; S3 disables both.
func Canonicalize(req *request.Request, payloadHash string, disablePathEscaping bool) CanonicalRequest {
	names, values := canonicalHeaders(req.Host, req.Header, int64(len(req.Body)))
	signed := strings.Join(names, ";")

	var b strings.Builder
	b.WriteString(req.Method)
	b.WriteByte('\n')
	b.WriteString(canonicalURI(req.Path, disablePathEscaping))
	b.WriteByte('\n')
	b.WriteString(request.CanonicalQuery(req.Query))
	b.WriteByte('\n')
	for i, n := range names {
		b.WriteString(n)
		b.WriteByte(':')
		b.WriteString(values[i])
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(signed)
	b.WriteByte('\n')
	b.WriteString(payloadHash)

	return CanonicalRequest{String: b.String(), SignedHeaders: signed}
}

func canonicalURI(p string, disableEscaping bool) string {
	if p == "" {
		return "/"
	}
	if disableEscaping {
		return p
	}
	return request.EscapePath(removeDotSegments(p), false)
}

func removeDotSegments(p string) string {
	dotted := false
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			dotted = true
			break
		}
	}
	if !dotted {
		return p
	}
	cleaned := path.Clean(p)
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}

// canonicalHeaders returns the sorted lower-case header names and their
// canonical values.
func canonicalHeaders(host string, header http.Header, length int64) ([]string, []string) {
	const (
		hostHeader          = "host"
		contentLengthHeader = "content-length"
	)
	signed := map[string][]string{hostHeader: {host}}
	names := []string{hostHeader}
	if length > 0 {
		signed[contentLengthHeader] = []string{strconv.FormatInt(length, 10)}
		names = append(names, contentLengthHeader)
	}

	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := header[k]
		if !signableHeaders.IsValid(textproto.CanonicalMIMEHeaderKey(k)) {
			continue
		}
		lower := strings.ToLower(k)
		if lower == contentLengthHeader || lower == hostHeader {
			continue
		}
		if _, seen := signed[lower]; !seen {
			names = append(names, lower)
		}
		signed[lower] = append(signed[lower], v...)
	}
	sort.Strings(names)

	values := make([]string, len(names))
	for i, n := range names {
		vs := signed[n]
		cleaned := make([]string, len(vs))
		for j, v := range vs {
			cleaned[j] = stripExcessSpaces(v)
		}
		values[i] = strings.Join(cleaned, ",")
	}
	return names, values
}

// stripExcessSpaces trims the value and collapses inner runs of spaces.
func stripExcessSpaces(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "  ") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' {
			if space {
				continue
			}
			space = true
		} else {
			space = false
		}
		b.WriteByte(c)
	}
	return b.String()
}
