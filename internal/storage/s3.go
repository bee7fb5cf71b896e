package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// S3Config holds the settings for the S3 backend. Endpoint may point at any
// S3-compatible store (MinIO, R2, AWS itself).
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string

	// PublicBaseURL is the prefix of the public object URL. Defaults to
	// "<endpoint>/<bucket>" when empty.
	PublicBaseURL string

	// UsePathStyle forces path-style addressing, required by MinIO.
	UsePathStyle bool
}

// S3Backend stores files in an S3-compatible bucket. Locators are the
// public object URLs, so downloads can be served straight from the bucket.
type S3Backend struct {
	client  *s3.Client
	bucket  string
	baseURL string
	logger  zerolog.Logger
}

// NewS3Backend creates an S3 backend from static credentials.
func NewS3Backend(ctx context.Context, cfg S3Config, logger zerolog.Logger) (*S3Backend, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	baseURL := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		baseURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	return &S3Backend{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: baseURL,
		logger:  logger.With().Str("storage", "s3").Logger(),
	}, nil
}

// Put uploads the content to <folder>/<uuid>_<name> and returns the public
// object URL.
func (b *S3Backend) Put(ctx context.Context, folder, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	key := sanitizeSegment(folder) + "/" + uuid.New().String() + "_" + sanitizeSegment(filename)

	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   reader,
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := b.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	b.logger.Debug().Str("key", key).Int64("bytes", size).Msg("object uploaded")

	return b.baseURL + "/" + key, nil
}

// Get fetches the object behind a locator issued by Put.
func (b *S3Backend) Get(ctx context.Context, locator string) (*Object, error) {
	key, err := b.keyFromLocator(locator)
	if err != nil {
		return nil, err
	}

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}

	name := key
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		name = key[idx+1:]
	}
	if idx := strings.Index(name, "_"); idx >= 0 {
		name = name[idx+1:]
	}

	obj := &Object{
		Body:        out.Body,
		Name:        name,
		ContentType: aws.ToString(out.ContentType),
		Size:        -1,
	}
	if out.ContentLength != nil {
		obj.Size = *out.ContentLength
	}
	if obj.ContentType == "" {
		obj.ContentType = "application/octet-stream"
	}

	return obj, nil
}

// Delete removes the object behind a locator. S3 deletes are idempotent.
func (b *S3Backend) Delete(ctx context.Context, locator string) error {
	key, err := b.keyFromLocator(locator)
	if err != nil {
		return err
	}

	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}

func (b *S3Backend) keyFromLocator(locator string) (string, error) {
	key, ok := strings.CutPrefix(locator, b.baseURL+"/")
	if !ok || key == "" {
		return "", ErrInvalidLocator
	}
	return key, nil
}

// Ensure S3Backend implements Backend.
var _ Backend = (*S3Backend)(nil)
