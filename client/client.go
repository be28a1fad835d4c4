// Package client ties the builder, signer, transport and validator together
// for one configured service.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/gurre/awscore/codec"
	"github.com/gurre/awscore/config"
	"github.com/gurre/awscore/metrics"
	"github.com/gurre/awscore/registry"
	"github.com/gurre/awscore/request"
	"github.com/gurre/awscore/response"
	"github.com/gurre/awscore/shape"
	"github.com/gurre/awscore/signer"
	"github.com/gurre/awscore/transport"
	"github.com/sirupsen/logrus"
)

// Options holds the collaborators of a Client. Zero fields get defaults.
type Options struct {
	// Credentials is wrapped in an aws.CredentialsCache. Static keys in the
	// config are used when it is nil; with neither the client is anonymous.
	Credentials aws.CredentialsProvider
	Transport   transport.Transport
	Registry    *registry.Registry
	Logger      logrus.FieldLogger
	Metrics     *metrics.Metrics
	Clock       func() time.Time
	// RequireFields rejects responses missing required output fields.
	RequireFields bool
}

// Client builds, signs, sends and decodes operations of one service. It is
// safe for concurrent use.
type Client struct {
	cfg       config.Config
	endpoint  *url.URL
	builder   request.Builder
	signer    *signer.Signer
	validator response.Validator

	creds    *aws.CredentialsCache // nil when anonymous
	snapshot atomic.Pointer[aws.Credentials]

	transport transport.Transport
	registry  *registry.Registry
	logger    logrus.FieldLogger
	metrics   *metrics.Metrics
	clock     func() time.Time
}

// New validates cfg and assembles a Client.
func New(cfg config.Config, optFns ...func(*Options)) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	endpoint := cfg.EndpointURL()

	if opts.Transport == nil {
		opts.Transport = transport.NewDefault(endpoint.Scheme, cfg.Timeout)
	}
	if opts.Registry == nil {
		opts.Registry = &registry.Registry{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewMetrics()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	payload := signer.SignedPayload
	if cfg.UnsignedPayload {
		payload = signer.UnsignedPayloadMode
	}
	sg, err := signer.New(signer.Options{
		Region:                 cfg.Region,
		Service:                cfg.GetSigningName(),
		DisableURIPathEscaping: cfg.DisableURIPathEscaping,
		AddPayloadHashHeader:   cfg.AddPayloadHashHeader,
		Payload:                payload,
	})
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:      cfg,
		endpoint: endpoint,
		builder: request.Builder{
			Protocol:     cfg.GetProtocol(),
			APIVersion:   cfg.APIVersion,
			TargetPrefix: cfg.TargetPrefix,
			JSONVersion:  cfg.JSONVersion,
			XMLNamespace: cfg.XMLNamespace,
		},
		signer: sg,
		validator: response.Validator{
			Protocol:      cfg.GetProtocol(),
			RequireFields: opts.RequireFields,
		},
		transport: opts.Transport,
		registry:  opts.Registry,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		clock:     opts.Clock,
	}

	provider := opts.Credentials
	if cfg.HasStaticCredentials() {
		c.snapshot.Store(&aws.Credentials{
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			SessionToken:    cfg.SessionToken,
			Source:          credentials.StaticCredentialsName,
		})
		if provider == nil {
			provider = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
		}
	}
	if provider != nil {
		c.creds = aws.NewCredentialsCache(provider)
	}
	return c, nil
}

// Config returns the validated configuration.
func (c *Client) Config() config.Config { return c.cfg }

// Registry returns the operation table used by Do.
func (c *Client) Registry() *registry.Registry { return c.registry }

// Metrics returns the client's counters.
func (c *Client) Metrics() *metrics.Metrics { return c.metrics }

// Credentials returns the current credential snapshot. It is empty for an
// anonymous client.
func (c *Client) Credentials() aws.Credentials {
	if p := c.snapshot.Load(); p != nil {
		return *p
	}
	return aws.Credentials{}
}

// SetCredentials replaces the snapshot used by later signing calls.
func (c *Client) SetCredentials(creds aws.Credentials) {
	c.snapshot.Store(&creds)
}

// RefreshCredentials drops cached credentials and retrieves them again from
// the provider. It is a no-op for an anonymous client.
func (c *Client) RefreshCredentials(ctx context.Context) error {
	return c.retrieve(ctx, true)
}

func (c *Client) retrieve(ctx context.Context, invalidate bool) error {
	if c.creds == nil {
		return nil
	}
	if invalidate {
		c.creds.Invalidate()
	}
	creds, err := c.creds.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve credentials: %w", err)
	}
	c.snapshot.Store(&creds)
	return nil
}

// ensureCredentials fetches credentials when the snapshot is empty or has
// expired.
func (c *Client) ensureCredentials(ctx context.Context) error {
	if c.creds == nil {
		return nil
	}
	if cur := c.snapshot.Load(); cur != nil && cur.HasKeys() && !cur.Expired() {
		return nil
	}
	return c.retrieve(ctx, false)
}

// CreateRequest builds the wire request of op and points it at the
// configured endpoint. A path on the endpoint prefixes the operation path.
func (c *Client) CreateRequest(op shape.Operation, input shape.Struct) (*request.Request, error) {
	req, err := c.builder.Build(op.InputShape(), input, op.Name, op.Path, op.HTTPMethod())
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", op.Name, err)
	}
	req.Host = request.SanitizeHost(c.endpoint.Scheme, c.endpoint.Host)
	if prefix := strings.TrimSuffix(c.endpoint.EscapedPath(), "/"); prefix != "" {
		req.Path = prefix + req.Path
	}
	c.metrics.RecordBuilt()
	c.logger.WithFields(logrus.Fields{
		"operation": op.Name,
		"protocol":  c.builder.Protocol.String(),
		"method":    req.Method,
		"path":      req.Path,
	}).Debug("built request")
	return req, nil
}

// SignRequest signs a copy of req with the current snapshot at t. An
// anonymous client returns an unsigned copy.
func (c *Client) SignRequest(req *request.Request, t time.Time) (*request.Request, error) {
	creds := c.Credentials()
	out, err := c.signer.Sign(req, creds, t)
	if err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}
	if creds.HasKeys() {
		c.metrics.RecordSigned()
	}
	return out, nil
}

// PresignRequest returns a copy of req with the signature in its query
// string. A zero expires uses the configured presign lifetime.
func (c *Client) PresignRequest(req *request.Request, t time.Time, expires time.Duration) (*request.Request, error) {
	if expires == 0 {
		expires = c.cfg.GetPresignExpires()
	}
	creds := c.Credentials()
	out, err := c.signer.Presign(req, creds, t, expires)
	if err != nil {
		return nil, fmt.Errorf("failed to presign request: %w", err)
	}
	if creds.HasKeys() {
		c.metrics.RecordPresigned()
	}
	return out, nil
}

// PresignURL presigns req and returns its absolute URL.
func (c *Client) PresignURL(req *request.Request, t time.Time, expires time.Duration) (*url.URL, error) {
	out, err := c.PresignRequest(req, t, expires)
	if err != nil {
		return nil, err
	}
	return out.URL(c.endpoint.Scheme)
}

// Validate decodes resp as the output of op.
func (c *Client) Validate(op shape.Operation, resp *response.Response) (shape.Struct, error) {
	out, err := c.validator.Validate(op.OutputShape(), resp)
	if err == nil {
		return out, nil
	}

	var svcErr *response.ServiceError
	var decErr *codec.DecodeError
	switch {
	case errors.As(err, &svcErr):
		c.metrics.RecordServiceError()
		c.logger.WithFields(logrus.Fields{
			"operation": op.Name,
			"status":    svcErr.HTTPStatus,
			"code":      svcErr.Code,
		}).Debug("service error")
	case errors.As(err, &decErr):
		c.metrics.RecordDecodeError()
	}
	return nil, err
}

// Do runs the named operation: build, sign, send and decode. Transport
// errors are returned unchanged.
func (c *Client) Do(ctx context.Context, opName string, input shape.Struct) (shape.Struct, error) {
	op, err := c.registry.Lookup(opName)
	if err != nil {
		return nil, err
	}
	req, err := c.CreateRequest(op, input)
	if err != nil {
		return nil, err
	}
	if err := c.ensureCredentials(ctx); err != nil {
		return nil, err
	}
	signed, err := c.SignRequest(req, c.clock())
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.transport.Send(ctx, signed)
	if err != nil {
		c.metrics.RecordTransportError()
		c.logger.WithField("operation", op.Name).WithError(err).Debug("transport error")
		return nil, err
	}
	c.metrics.RecordRoundTrip(time.Since(start))
	c.metrics.RecordSent()
	c.logger.WithFields(logrus.Fields{
		"operation": op.Name,
		"status":    resp.StatusCode,
	}).Debug("received response")

	return c.Validate(op, resp)
}

// Invoke is Do for typed models.
func (c *Client) Invoke(ctx context.Context, opName string, in shape.Marshaler, out shape.Unmarshaler) error {
	var input shape.Struct
	if in != nil {
		var err error
		if input, err = in.MarshalShape(); err != nil {
			return fmt.Errorf("failed to marshal %s input: %w", opName, err)
		}
	}
	output, err := c.Do(ctx, opName, input)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := out.UnmarshalShape(output); err != nil {
		return fmt.Errorf("failed to unmarshal %s output: %w", opName, err)
	}
	return nil
}
