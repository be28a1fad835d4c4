package signer

import "strings"

// rule decides whether a canonical header name qualifies.
type rule interface {
	IsValid(value string) bool
}

// anyOf passes when one member passes.
type anyOf []rule

func (r anyOf) IsValid(value string) bool {
	for _, rl := range r {
		if rl.IsValid(value) {
			return true
		}
	}
	return false
}

// allOf passes when every member passes.
type allOf []rule

func (r allOf) IsValid(value string) bool {
	for _, rl := range r {
		if !rl.IsValid(value) {
			return false
		}
	}
	return true
}

type nameSet map[string]struct{}

func (m nameSet) IsValid(value string) bool {
	_, ok := m[value]
	return ok
}

func newNameSet(names ...string) nameSet {
	m := make(nameSet, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

type exclude struct{ rule }

func (e exclude) IsValid(value string) bool { return !e.rule.IsValid(value) }

// prefixes matches case-insensitively.
type prefixes []string

func (p prefixes) IsValid(value string) bool {
	for _, prefix := range p {
		if len(value) >= len(prefix) && strings.EqualFold(value[:len(prefix)], prefix) {
			return true
		}
	}
	return false
}

// signableHeaders admits every header except those proxies and clients
// rewrite in flight.
var signableHeaders = exclude{newNameSet(
	"Authorization",
	"User-Agent",
	"X-Amzn-Trace-Id",
	"Expect",
	"Transfer-Encoding",
)}

// requiredSignedHeaders must stay headers when presigning.
var requiredSignedHeaders = anyOf{
	newNameSet(
		"Cache-Control",
		"Content-Disposition",
		"Content-Encoding",
		"Content-Language",
		"Content-Md5",
		"Content-Type",
		"Expires",
		"If-Match",
		"If-Modified-Since",
		"If-None-Match",
		"If-Unmodified-Since",
		"Range",
		"X-Amz-Acl",
		"X-Amz-Copy-Source",
		"X-Amz-Copy-Source-If-Match",
		"X-Amz-Copy-Source-If-Modified-Since",
		"X-Amz-Copy-Source-If-None-Match",
		"X-Amz-Copy-Source-If-Unmodified-Since",
		"X-Amz-Copy-Source-Range",
		"X-Amz-Copy-Source-Server-Side-Encryption-Customer-Algorithm",
		"X-Amz-Copy-Source-Server-Side-Encryption-Customer-Key",
		"X-Amz-Copy-Source-Server-Side-Encryption-Customer-Key-Md5",
		"X-Amz-Grant-Full-Control",
		"X-Amz-Grant-Read",
		"X-Amz-Grant-Read-Acp",
		"X-Amz-Grant-Write",
		"X-Amz-Grant-Write-Acp",
		"X-Amz-Metadata-Directive",
		"X-Amz-Mfa",
		"X-Amz-Server-Side-Encryption",
		"X-Amz-Server-Side-Encryption-Aws-Kms-Key-Id",
		"X-Amz-Server-Side-Encryption-Context",
		"X-Amz-Server-Side-Encryption-Customer-Algorithm",
		"X-Amz-Server-Side-Encryption-Customer-Key",
		"X-Amz-Server-Side-Encryption-Customer-Key-Md5",
		"X-Amz-Storage-Class",
		"X-Amz-Website-Redirect-Location",
		"X-Amz-Content-Sha256",
		"X-Amz-Tagging",
	),
	prefixes{"X-Amz-Object-Lock-"},
	prefixes{"X-Amz-Meta-"},
}

// hoistableHeaders move into the query string of a presigned URL.
var hoistableHeaders = allOf{
	exclude{requiredSignedHeaders},
	prefixes{"X-Amz-"},
}
