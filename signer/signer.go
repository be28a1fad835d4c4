package signer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gurre/awscore/request"
)

// ErrInvalidExpiry is returned by Presign for lifetimes outside [1s, 7d].
var ErrInvalidExpiry = fmt.Errorf("presign expiry must be between 1 second and 7 days")

const maxPresignExpiry = 7 * 24 * time.Hour

// PayloadMode selects the value of the payload hash.
type PayloadMode int

const (
	SignedPayload PayloadMode = iota
	UnsignedPayloadMode
	StreamingPayloadMode
)

// Options configures a Signer.
type Options struct {
	Region  string
	Service string // signing name, e.g. s3, dynamodb

	// DisableURIPathEscaping signs the path exactly as sent (S3).
	DisableURIPathEscaping bool
	// AddPayloadHashHeader sends X-Amz-Content-Sha256.
	AddPayloadHashHeader bool
	Payload              PayloadMode
	// DisableHeaderHoisting keeps X-Amz-* headers out of presigned URLs.
	DisableHeaderHoisting bool
}

// Validate checks that all required fields are set.
func (o Options) Validate() error {
	if o.Region == "" {
		return fmt.Errorf("region is required")
	}
	if o.Service == "" {
		return fmt.Errorf("service is required")
	}
	return nil
}

// Signer signs requests for one region and service. It is safe for
// concurrent use.
type Signer struct {
	opts Options
	keys *keyCache
}

// New validates opts and returns a Signer with an empty key cache.
func New(opts Options) (*Signer, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid signer options: %w", err)
	}
	return &Signer{opts: opts, keys: newKeyCache()}, nil
}

// Options returns the configuration the signer was built with.
func (s *Signer) Options() Options { return s.opts }

// PayloadHash returns the hex SHA-256 of body.
func PayloadHash(body []byte) string {
	if len(body) == 0 {
		return EmptyStringSHA256
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// payloadHash honours an X-Amz-Content-Sha256 already on the request.
func (s *Signer) payloadHash(req *request.Request) string {
	if h := req.Header.Get(ContentSHAKey); h != "" {
		return h
	}
	switch s.opts.Payload {
	case UnsignedPayloadMode:
		return UnsignedPayload
	case StreamingPayloadMode:
		return StreamingPayload
	}
	return PayloadHash(req.Body)
}

// BuildCredentialScope returns date/region/service/aws4_request.
func BuildCredentialScope(t SigningTime, region, service string) string {
	return strings.Join([]string{t.ShortTimeFormat(), region, service, "aws4_request"}, "/")
}

// BuildStringToSign returns ALGORITHM\nTIMESTAMP\nSCOPE\nHEX(SHA256(canonical)).
func BuildStringToSign(t SigningTime, credentialScope, canonicalRequest string) string {
	sum := sha256.Sum256([]byte(canonicalRequest))
	return strings.Join([]string{
		SigningAlgorithm,
		t.TimeFormat(),
		credentialScope,
		hex.EncodeToString(sum[:]),
	}, "\n")
}

// BuildSignature returns the hex HMAC-SHA256 of stringToSign.
func BuildSignature(key []byte, stringToSign string) string {
	return hex.EncodeToString(HMACSHA256(key, []byte(stringToSign)))
}

// BuildAuthorizationHeader formats the Authorization header value.
func BuildAuthorizationHeader(credential, signedHeaders, signature string) string {
	var b strings.Builder
	b.Grow(len(SigningAlgorithm) + len(credential) + len(signedHeaders) + len(signature) + 41)
	b.WriteString(SigningAlgorithm)
	b.WriteString(" Credential=")
	b.WriteString(credential)
	b.WriteString(", SignedHeaders=")
	b.WriteString(signedHeaders)
	b.WriteString(", Signature=")
	b.WriteString(signature)
	return b.String()
}

func (s *Signer) sign(canonical CanonicalRequest, creds aws.Credentials, t SigningTime) (scope, signature string) {
	scope = BuildCredentialScope(t, s.opts.Region, s.opts.Service)
	stringToSign := BuildStringToSign(t, scope, canonical.String)
	key := s.keys.derive(creds.AccessKeyID, creds.SecretAccessKey, s.opts.Service, s.opts.Region, t)
	return scope, BuildSignature(key, stringToSign)
}

// Sign returns a clone of req carrying X-Amz-Date, an optional
// X-Amz-Security-Token and the Authorization header. Credentials without an
// access key produce an unsigned clone.
func (s *Signer) Sign(req *request.Request, creds aws.Credentials, t time.Time) (*request.Request, error) {
	out := req.Clone()
	if creds.AccessKeyID == "" {
		return out, nil
	}
	clearSignature(out)
	st := NewSigningTime(t)

	hash := s.payloadHash(out)
	if s.opts.AddPayloadHashHeader {
		out.Header.Set(ContentSHAKey, hash)
	}
	out.Header.Set(AmzDateKey, st.TimeFormat())
	if creds.SessionToken != "" {
		out.Header.Set(AmzSecurityTokenKey, creds.SessionToken)
	}

	canonical := Canonicalize(out, hash, s.opts.DisableURIPathEscaping)
	scope, signature := s.sign(canonical, creds, st)
	out.Header.Set(AuthorizationHeader, BuildAuthorizationHeader(creds.AccessKeyID+"/"+scope, canonical.SignedHeaders, signature))
	return out, nil
}

// Presign returns a clone of req whose query string carries the signature.
// Headers left on the clone were signed and must be sent with the URL.
func (s *Signer) Presign(req *request.Request, creds aws.Credentials, t time.Time, expires time.Duration) (*request.Request, error) {
	if expires < time.Second || expires > maxPresignExpiry {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidExpiry, expires)
	}
	out := req.Clone()
	if creds.AccessKeyID == "" {
		return out, nil
	}
	clearSignature(out)
	st := NewSigningTime(t)
	hash := s.payloadHash(out)
	scope := BuildCredentialScope(st, s.opts.Region, s.opts.Service)

	out.SetQuery(AmzAlgorithmKey, SigningAlgorithm)
	out.SetQuery(AmzCredentialKey, creds.AccessKeyID+"/"+scope)
	out.SetQuery(AmzDateKey, st.TimeFormat())
	out.SetQuery(AmzExpiresKey, strconv.FormatInt(int64(expires/time.Second), 10))
	if creds.SessionToken != "" {
		out.SetQuery(AmzSecurityTokenKey, creds.SessionToken)
	}
	if !s.opts.DisableHeaderHoisting {
		hoistHeaders(out)
	}

	names, _ := canonicalHeaders(out.Host, out.Header, int64(len(out.Body)))
	out.SetQuery(AmzSignedHeadersKey, strings.Join(names, ";"))

	canonical := Canonicalize(out, hash, s.opts.DisableURIPathEscaping)
	_, signature := s.sign(canonical, creds, st)
	out.SetQuery(AmzSignatureKey, signature)
	return out, nil
}

// clearSignature drops the headers an earlier Sign left behind. A stale
// X-Amz-Date would otherwise be hoisted over the fresh query value.
func clearSignature(req *request.Request) {
	for _, k := range []string{AuthorizationHeader, AmzDateKey, AmzSecurityTokenKey} {
		req.Header.Del(k)
	}
}

// hoistHeaders moves X-Amz-* headers that need not stay headers into the
// query string.
func hoistHeaders(req *request.Request) {
	keys := make([]string, 0, len(req.Header))
	for k := range req.Header {
		if hoistableHeaders.IsValid(textproto.CanonicalMIMEHeaderKey(k)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		req.SetQuery(k, strings.Join(req.Header[k], ","))
		delete(req.Header, k)
	}
}
