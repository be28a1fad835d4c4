package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrCatalogNotFound is returned when a source has no catalog object.
var ErrCatalogNotFound = fmt.Errorf("catalog not found")

// Source yields the raw bytes of a catalog.
type Source interface {
	Load(ctx context.Context) ([]byte, error)
}

// S3Client is the subset of the S3 API a catalog source needs.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var _ S3Client = (*s3.Client)(nil)

// NewSource picks a source by URI scheme. Bare paths read from the local
// filesystem. client may be nil unless uri is an s3:// URI.
func NewSource(uri string, client S3Client) (Source, error) {
	var (
		src Source
		err error
	)
	switch {
	case strings.HasPrefix(uri, "s3://"):
		if client == nil {
			return nil, fmt.Errorf("S3 client is required for %s", uri)
		}
		src, err = NewS3Source(client, uri)
	case strings.HasPrefix(uri, "file://"):
		src, err = NewFileSource(uri)
	default:
		src, err = newFileSource(uri)
	}
	if err != nil {
		return nil, err
	}
	return src, nil
}

// S3Source reads a catalog object from S3.
type S3Source struct {
	client S3Client
	bucket string
	key    string
}

// NewS3Source parses s3://bucket/key.
func NewS3Source(client S3Client, uri string) (*S3Source, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid S3 URI: %w", err)
	}
	if u.Scheme != "s3" {
		return nil, fmt.Errorf("invalid S3 URI scheme: %s", u.Scheme)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return nil, fmt.Errorf("S3 URI needs a bucket and key: %s", uri)
	}
	return &S3Source{client: client, bucket: u.Host, key: key}, nil
}

func (s *S3Source) Load(ctx context.Context) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &s.key,
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrCatalogNotFound, s.bucket, s.key)
		}
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrCatalogNotFound, s.bucket, s.key)
		}
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return data, nil
}

// FileSource reads a catalog from the local filesystem.
type FileSource struct {
	path string
}

// NewFileSource parses file:///abs/path. Relative paths are resolved
// against the working directory.
func NewFileSource(uri string) (*FileSource, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid file URI: %w", err)
	}
	if u.Scheme != "file" {
		return nil, fmt.Errorf("invalid file URI scheme: %s", u.Scheme)
	}
	p := u.Path
	if u.Host != "" {
		// file://relative/path parses the first segment as the host.
		p = u.Host + "/" + strings.TrimPrefix(p, "/")
	}
	return newFileSource(p)
}

func newFileSource(p string) (*FileSource, error) {
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog path: %w", err)
	}
	return &FileSource{path: abs}, nil
}

// Load reads the whole file.
func (f *FileSource) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrCatalogNotFound, f.path)
		}
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return data, nil
}

// Load reads and resolves the catalog at src.
func Load(ctx context.Context, src Source) (*Catalog, *Registry, error) {
	data, err := src.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, nil, err
	}
	r, err := c.Registry()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve catalog: %w", err)
	}
	return c, r, nil
}
