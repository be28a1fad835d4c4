// Package config holds the settings of one service client and validates
// them before the client is built.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gurre/awscore/protocol"
)

// DefaultPresignExpires applies when PresignExpires is zero.
const DefaultPresignExpires = 15 * time.Minute

const maxPresignExpires = 7 * 24 * time.Hour

// Config describes the service a client talks to, how requests are signed
// and optional static credentials.
type Config struct {
	Region       string // AWS region, e.g. us-east-1
	Service      string // endpoint prefix, e.g. dynamodb
	SigningName  string // SigV4 service name; defaults to Service
	Protocol     string // query, json, rest-json or rest-xml
	APIVersion   string // Query protocol Version parameter
	Endpoint     string // overrides https://{service}.{region}.amazonaws.com
	TargetPrefix string // JSON protocol X-Amz-Target prefix
	JSONVersion  string // JSON protocol content type version
	XMLNamespace string // REST-XML body namespace

	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	DisableURIPathEscaping bool          // S3 signs the path as sent
	AddPayloadHashHeader   bool          // send X-Amz-Content-Sha256
	UnsignedPayload        bool          // sign UNSIGNED-PAYLOAD instead of the body hash
	PresignExpires         time.Duration // default lifetime of presigned URLs
	Timeout                time.Duration // per-request HTTP timeout, zero for none

	// Internal fields
	protocol protocol.Protocol
	endpoint *url.URL
}

// GetProtocol returns the protocol parsed by Validate.
func (c *Config) GetProtocol() protocol.Protocol {
	return c.protocol
}

// GetSigningName returns SigningName, falling back to Service.
func (c *Config) GetSigningName() string {
	if c.SigningName != "" {
		return c.SigningName
	}
	return c.Service
}

// GetPresignExpires returns PresignExpires or DefaultPresignExpires.
func (c *Config) GetPresignExpires() time.Duration {
	if c.PresignExpires == 0 {
		return DefaultPresignExpires
	}
	return c.PresignExpires
}

// HasStaticCredentials reports whether keys are configured inline.
func (c *Config) HasStaticCredentials() bool {
	return c.AccessKeyID != ""
}

// EndpointURL returns the endpoint parsed by Validate.
func (c *Config) EndpointURL() *url.URL {
	if c.endpoint == nil {
		return nil
	}
	u := *c.endpoint
	return &u
}

// DefaultEndpoint returns the public endpoint of service in region.
func DefaultEndpoint(service, region string) string {
	domain := "amazonaws.com"
	if strings.HasPrefix(region, "cn-") {
		domain = "amazonaws.com.cn"
	}
	return "https://" + service + "." + region + "." + domain
}

// Validate checks every field and resolves the protocol and endpoint.
func (c *Config) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}
	if c.Service == "" {
		return fmt.Errorf("service is required")
	}

	p, err := protocol.Parse(c.Protocol)
	if err != nil {
		return fmt.Errorf("invalid protocol: %w", err)
	}
	c.protocol = p

	if p == protocol.Query && c.APIVersion == "" {
		return fmt.Errorf("API version is required for the query protocol")
	}

	raw := c.Endpoint
	if raw == "" {
		raw = DefaultEndpoint(c.Service, c.Region)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("endpoint must use http or https scheme")
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint must include a host")
	}
	c.endpoint = u

	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("access key ID and secret access key must be set together")
	}
	if c.SessionToken != "" && c.AccessKeyID == "" {
		return fmt.Errorf("session token requires static keys")
	}

	if c.PresignExpires != 0 && (c.PresignExpires < time.Second || c.PresignExpires > maxPresignExpires) {
		return fmt.Errorf("presign expiry must be between 1 second and 7 days")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}

	return nil
}
