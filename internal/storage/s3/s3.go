// Package s3 resolves document storage keys to time-limited presigned URLs
// on an S3-compatible object store.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/fruitsalade/docportal/internal/logging"
	"github.com/fruitsalade/docportal/internal/metrics"
	"github.com/fruitsalade/docportal/pkg/models"
)

// ErrNoLocation is returned for documents with neither a storage key nor
// an external URL.
var ErrNoLocation = errors.New("document has no stored content")

// Config holds S3 connection settings.
type Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	// TTL is how long presigned URLs stay valid.
	TTL time.Duration
}

// Presigner is the subset of s3.PresignClient the resolver needs.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Resolver turns documents into URLs for viewing or downloading.
type Resolver struct {
	presign Presigner
	bucket  string
	ttl     time.Duration
}

// New creates a Resolver for the configured bucket. No request is made
// until a URL is resolved.
func New(ctx context.Context, cfg Config) (*Resolver, error) {
	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewWithPresigner(s3.NewPresignClient(client), cfg.Bucket, cfg.TTL), nil
}

func newClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.Endpoint,
				HostnameImmutable: true,
			}, nil
		},
	)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	}), nil
}

// NewWithPresigner creates a Resolver around an existing presigner.
func NewWithPresigner(p Presigner, bucket string, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Resolver{presign: p, bucket: bucket, ttl: ttl}
}

// ResolveURL returns a presigned GET URL for doc. Downloads carry an
// attachment disposition so browsers save instead of display. Documents
// hosted elsewhere are returned by their URL.
func (r *Resolver) ResolveURL(ctx context.Context, doc models.Document, action models.Action) (string, error) {
	if doc.StorageKey == "" {
		if doc.URL != "" {
			return doc.URL, nil
		}
		return "", fmt.Errorf("resolve %s: %w", doc.ID, ErrNoLocation)
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(doc.StorageKey),
	}
	if action == models.ActionDownload {
		disposition := mime.FormatMediaType("attachment", map[string]string{"filename": doc.Name})
		if disposition == "" {
			disposition = "attachment"
		}
		input.ResponseContentDisposition = aws.String(disposition)
	}

	start := time.Now()
	req, err := r.presign.PresignGetObject(ctx, input, s3.WithPresignExpires(r.ttl))
	if err != nil {
		metrics.RecordS3Operation("presign_get", time.Since(start), false)
		return "", fmt.Errorf("presign %s: %w", doc.StorageKey, err)
	}
	metrics.RecordS3Operation("presign_get", time.Since(start), true)

	logging.Debug("presigned document URL",
		zap.String("document", doc.ID),
		zap.String("key", doc.StorageKey),
		zap.String("action", string(action)),
		zap.Duration("ttl", r.ttl))
	return req.URL, nil
}

// ─── Uploads ────────────────────────────────────────────────────────────────

// ObjectPutter is the subset of s3.Client the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader stores document content under storage keys.
type Uploader struct {
	client ObjectPutter
	bucket string
}

// NewUploader creates an Uploader for the configured bucket.
func NewUploader(ctx context.Context, cfg Config) (*Uploader, error) {
	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Uploader{client: client, bucket: cfg.Bucket}, nil
}

// NewUploaderWithClient creates an Uploader around an existing client.
func NewUploaderWithClient(c ObjectPutter, bucket string) *Uploader {
	return &Uploader{client: c, bucket: bucket}
}

// Put uploads size bytes from body under key.
func (u *Uploader) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	start := time.Now()
	if _, err := u.client.PutObject(ctx, input); err != nil {
		metrics.RecordS3Operation("put_object", time.Since(start), false)
		return fmt.Errorf("put object %s: %w", key, err)
	}
	metrics.RecordS3Operation("put_object", time.Since(start), true)

	logging.Debug("uploaded document content", zap.String("key", key), zap.Int64("size", size))
	return nil
}
