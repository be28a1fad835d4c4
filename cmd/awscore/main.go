// Command awscore builds, signs and optionally sends one operation described
// by a service catalog, resolving credentials and region the way the AWS CLI
// does.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	json "github.com/goccy/go-json"
	"github.com/gurre/awscore/client"
	"github.com/gurre/awscore/codec"
	"github.com/gurre/awscore/config"
	"github.com/gurre/awscore/protocol"
	"github.com/gurre/awscore/registry"
	"github.com/gurre/awscore/request"
	"github.com/gurre/awscore/shape"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	catalog   string
	operation string
	input     string
	region    string
	service   string
	endpoint  string
	presign   time.Duration
	timeout   time.Duration
	send      bool
	list      bool
	report    bool
	debug     bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := pflag.NewFlagSet("awscore", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVarP(&o.catalog, "catalog", "c", "", "service catalog: path, file:// or s3:// URI")
	fs.StringVarP(&o.operation, "operation", "o", "", "operation name")
	fs.StringVarP(&o.input, "input", "i", "{}", "operation input as JSON keyed by field name")
	fs.StringVar(&o.region, "region", "", "AWS region (defaults to the shared config)")
	fs.StringVar(&o.service, "service", "", "endpoint prefix (defaults to the catalog)")
	fs.StringVar(&o.endpoint, "endpoint", "", "endpoint URL override")
	fs.DurationVar(&o.presign, "presign", 0, "print a presigned URL valid for this long")
	fs.DurationVar(&o.timeout, "timeout", 30*time.Second, "HTTP request timeout")
	fs.BoolVar(&o.send, "send", false, "send the request and print the decoded output")
	fs.BoolVar(&o.list, "list", false, "list the catalog's operations")
	fs.BoolVar(&o.report, "report", false, "print client metrics to stderr")
	fs.BoolVar(&o.debug, "debug", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}
	if o.catalog == "" {
		return nil, fmt.Errorf("--catalog is required")
	}
	if o.operation == "" && !o.list {
		return nil, fmt.Errorf("--operation is required")
	}
	if o.presign != 0 && o.send {
		return nil, fmt.Errorf("--presign and --send are mutually exclusive")
	}
	return &o, nil
}

func newLogger(w io.Writer, debug bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// clientConfig merges catalog metadata with the command line.
func clientConfig(o *options, md registry.Metadata, region string) config.Config {
	service := o.service
	if service == "" {
		service = md.EndpointPrefix
	}
	if service == "" {
		service = md.SigningName
	}
	return config.Config{
		Region:                 region,
		Service:                service,
		SigningName:            md.SigningName,
		Protocol:               md.Protocol,
		APIVersion:             md.APIVersion,
		Endpoint:               o.endpoint,
		TargetPrefix:           md.TargetPrefix,
		JSONVersion:            md.JSONVersion,
		XMLNamespace:           md.XMLNamespace,
		DisableURIPathEscaping: md.SigningName == "s3",
		AddPayloadHashHeader:   md.SigningName == "s3",
		Timeout:                o.timeout,
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	logger := newLogger(stderr, o.debug)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var loadOpts []func(*awsconfig.LoadOptions) error
	if o.region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(o.region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	src, err := registry.NewSource(o.catalog, s3.NewFromConfig(awsCfg))
	if err != nil {
		return fmt.Errorf("invalid catalog location: %w", err)
	}
	catalog, reg, err := registry.Load(ctx, src)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	logger.WithField("operations", len(reg.Operations())).Debug("loaded catalog")

	if o.list {
		for _, name := range reg.Operations() {
			fmt.Fprintln(stdout, name)
		}
		return nil
	}

	c, err := client.New(clientConfig(o, catalog.Metadata, awsCfg.Region), func(opts *client.Options) {
		opts.Credentials = awsCfg.Credentials
		opts.Registry = reg
		opts.Logger = logger
	})
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	if o.report {
		defer func() {
			data, _ := json.Marshal(c.Metrics().GenerateReport())
			fmt.Fprintln(stderr, string(data))
		}()
	}

	op, err := reg.Lookup(o.operation)
	if err != nil {
		return err
	}
	input, err := codec.DecodeJSONFields([]byte(o.input), op.InputShape(), protocol.JSON)
	if err != nil {
		return fmt.Errorf("failed to decode input: %w", err)
	}

	if o.send {
		out, err := c.Do(ctx, op.Name, input)
		if err != nil {
			return err
		}
		return writeOutput(stdout, out, op.OutputShape())
	}

	req, err := c.CreateRequest(op, input)
	if err != nil {
		return err
	}
	if err := c.RefreshCredentials(ctx); err != nil {
		return err
	}
	cfg := c.Config()
	scheme := cfg.EndpointURL().Scheme

	if o.presign != 0 {
		presigned, err := c.PresignRequest(req, time.Now(), o.presign)
		if err != nil {
			return err
		}
		return writeRequest(stdout, presigned, scheme)
	}
	signed, err := c.SignRequest(req, time.Now())
	if err != nil {
		return err
	}
	return writeRequest(stdout, signed, scheme)
}

// writeRequest prints the request line, sorted headers and body.
func writeRequest(w io.Writer, req *request.Request, scheme string) error {
	u, err := req.URL(scheme)
	if err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", req.Method, u)
	names := make([]string, 0, len(req.Header))
	for name := range req.Header {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(&b, "%s: %s\n", name, strings.Join(req.Header[name], ","))
	}
	if len(req.Body) > 0 {
		b.WriteByte('\n')
		b.Write(req.Body)
		b.WriteByte('\n')
	}
	_, err = io.WriteString(w, b.String())
	return err
}

// writeOutput prints every output field, header-bound ones included, as JSON
// keyed by field name.
func writeOutput(w io.Writer, out shape.Struct, s *shape.Shape) error {
	data, err := codec.EncodeJSONFields(out, s, protocol.JSON)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
