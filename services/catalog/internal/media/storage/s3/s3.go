// Package s3 stores media objects in an S3 bucket.
package s3

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/utafrali/marketplace/services/catalog/internal/media/storage"
)

// API is the part of *s3.Client used by Storage.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config selects the bucket and how objects are addressed.
type Config struct {
	Bucket string
	Region string
	// Endpoint overrides the S3 endpoint, for S3-compatible stores.
	Endpoint       string
	ForcePathStyle bool
	// PublicURL prefixes object keys in returned URLs. Empty means the
	// virtual-hosted bucket URL.
	PublicURL string
}

// NewClient builds an S3 client from the default AWS credential chain.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if awsCfg.Region == "" {
		awsCfg.Region = "us-east-1"
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	}), nil
}

// Storage implements storage.Storage on an S3 bucket.
type Storage struct {
	api     API
	bucket  string
	baseURL string
}

// New creates a bucket-backed storage.
func New(api API, cfg Config) *Storage {
	base := strings.TrimRight(cfg.PublicURL, "/")
	if base == "" {
		region := cfg.Region
		if region == "" {
			region = "us-east-1"
		}
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
	}
	return &Storage{api: api, bucket: cfg.Bucket, baseURL: base}
}

// Upload puts the object and returns its public URL.
func (s *Storage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	put := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(input.Key),
		Body:        input.Data,
		ContentType: aws.String(input.ContentType),
	}
	if input.Size > 0 {
		put.ContentLength = aws.Int64(input.Size)
	}

	if _, err := s.api.PutObject(ctx, put); err != nil {
		return nil, fmt.Errorf("s3 put %s: %w", input.Key, err)
	}

	return &storage.UploadResult{
		Key: input.Key,
		URL: s.baseURL + "/" + input.Key,
	}, nil
}

// Delete removes the object. S3 does not report missing keys.
func (s *Storage) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}
