// Package storage uploads post images to object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/daybreak/internal/source"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	// PublicURL is the base URL objects are served from. Defaults to
	// Endpoint/Bucket.
	PublicURL string
}

// Enabled reports whether enough is configured to upload.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// S3Uploader stores images in an S3-compatible bucket.
type S3Uploader struct {
	cfg    S3Config
	client s3Client
	logger *slog.Logger
}

var _ source.Uploader = (*S3Uploader)(nil)

// NewS3Uploader creates an uploader for the configured bucket.
func NewS3Uploader(cfg S3Config, logger *slog.Logger) *S3Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Uploader{cfg: cfg, client: NewClient(cfg), logger: logger}
}

// NewClient builds a path-style S3 client from cfg.
func NewClient(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// UploadImage puts data at path and returns its public URL.
func (u *S3Uploader) UploadImage(ctx context.Context, data []byte, path string) (string, error) {
	key := strings.TrimLeft(path, "/")
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(http.DetectContentType(data)),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	u.logger.Debug("image uploaded", "key", key, "bytes", len(data))
	return u.URL(key), nil
}

// URL returns the public address of key.
func (u *S3Uploader) URL(key string) string {
	base := u.cfg.PublicURL
	if base == "" {
		endpoint := u.cfg.Endpoint
		if endpoint == "" {
			endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", u.cfg.Region)
		}
		base = strings.TrimRight(endpoint, "/") + "/" + u.cfg.Bucket
	}
	return strings.TrimRight(base, "/") + "/" + key
}
