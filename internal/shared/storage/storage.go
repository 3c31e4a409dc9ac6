// Package storage keeps delivery-note documents in an S3 compatible bucket (MinIO).
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("object storage not configured")

// DefaultRetryDelay is the pause before the single upload retry.
const DefaultRetryDelay = 2 * time.Second

type objectClient interface {
	putObject(ctx context.Context, bucket, object string, data []byte, contentType string) error
	getObject(ctx context.Context, bucket, object string) (io.ReadCloser, error)
	presignedGet(ctx context.Context, bucket, object string, expiry time.Duration) (*url.URL, error)
}

type minioClient struct {
	c *minio.Client
}

func (m minioClient) putObject(ctx context.Context, bucket, object string, data []byte, contentType string) error {
	_, err := m.c.PutObject(ctx, bucket, object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (m minioClient) getObject(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	return m.c.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
}

func (m minioClient) presignedGet(ctx context.Context, bucket, object string, expiry time.Duration) (*url.URL, error) {
	return m.c.PresignedGetObject(ctx, bucket, object, expiry, url.Values{})
}

// Options MinIO connection settings.
type Options struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	UseSSL     bool
	RetryDelay time.Duration
}

// Store uploads and fetches objects. A nil *Store behaves as unconfigured storage.
type Store struct {
	client     objectClient
	bucket     string
	retryDelay time.Duration
	logger     *zap.Logger
}

// New connects to MinIO. An empty endpoint yields (nil, nil): storage is optional.
func New(opts Options, logger *zap.Logger) (*Store, error) {
	if opts.Endpoint == "" {
		return nil, nil
	}
	c, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	return newStore(minioClient{c: c}, opts.Bucket, opts.RetryDelay, logger), nil
}

func newStore(client objectClient, bucket string, retryDelay time.Duration, logger *zap.Logger) *Store {
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, bucket: bucket, retryDelay: retryDelay, logger: logger}
}

// Upload writes data to path, retrying once after the fixed delay.
func (s *Store) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	if s == nil {
		return ErrNotConfigured
	}
	err := s.client.putObject(ctx, s.bucket, path, data, contentType)
	if err == nil {
		return nil
	}
	s.logger.Warn("object upload failed, retrying once",
		zap.String("path", path),
		zap.Duration("delay", s.retryDelay),
		zap.Error(err),
	)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.retryDelay):
	}

	if err := s.client.putObject(ctx, s.bucket, path, data, contentType); err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	return nil
}

func (s *Store) Download(ctx context.Context, path string) ([]byte, error) {
	if s == nil {
		return nil, ErrNotConfigured
	}
	obj, err := s.client.getObject(ctx, s.bucket, path)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", path, err)
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

// PublicURL returns a presigned GET URL valid for expiry.
func (s *Store) PublicURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	if s == nil {
		return "", ErrNotConfigured
	}
	u, err := s.client.presignedGet(ctx, s.bucket, path, expiry)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", path, err)
	}
	return u.String(), nil
}
