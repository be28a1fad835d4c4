// Package signer implements AWS Signature Version 4 over request.Request.
// Signing never mutates its input; it returns a signed clone.
package signer

const (
	// EmptyStringSHA256 is the hex SHA-256 of an empty body.
	EmptyStringSHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	// UnsignedPayload replaces the body hash when the body is not signed.
	UnsignedPayload = "UNSIGNED-PAYLOAD"

	// StreamingPayload announces chunk-signed bodies.
	StreamingPayload = "STREAMING-AWS4-HMAC-SHA256-PAYLOAD"

	SigningAlgorithm    = "AWS4-HMAC-SHA256"
	AuthorizationHeader = "Authorization"

	AmzAlgorithmKey     = "X-Amz-Algorithm"
	AmzCredentialKey    = "X-Amz-Credential"
	AmzDateKey          = "X-Amz-Date"
	AmzExpiresKey       = "X-Amz-Expires"
	AmzSecurityTokenKey = "X-Amz-Security-Token"
	AmzSignedHeadersKey = "X-Amz-SignedHeaders"
	AmzSignatureKey     = "X-Amz-Signature"
	ContentSHAKey       = "X-Amz-Content-Sha256"

	// TimeFormat is the X-Amz-Date layout.
	TimeFormat = "20060102T150405Z"
	// ShortTimeFormat is the credential scope date layout.
	ShortTimeFormat = "20060102"
)
