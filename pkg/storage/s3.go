package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

type s3Storage struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// NewS3Storage creates a FileStore on any S3 compatible endpoint (MinIO, AWS).
// endpoint may carry an http:// or https:// scheme, which then overrides useSSL.
func NewS3Storage(endpoint, accessKey, secretKey, bucket string, useSSL bool, logger *zap.Logger) (FileStore, error) {
	host, secure := normalizeEndpoint(endpoint, useSSL)
	if host == "" {
		return nil, fmt.Errorf("s3 endpoint is empty")
	}
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is empty")
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	logger.Info("Initialized S3 storage",
		zap.String("endpoint", host),
		zap.Bool("secure", secure),
		zap.String("bucket", bucket),
	)

	return &s3Storage{client: client, bucket: bucket, logger: logger}, nil
}

func (s *s3Storage) DeleteObject(ctx context.Context, key string) error {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return fmt.Errorf("empty object key")
	}

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %q: %w", key, err)
	}

	s.logger.Debug("Deleted object", zap.String("bucket", s.bucket), zap.String("key", key))
	return nil
}

func normalizeEndpoint(endpoint string, useSSL bool) (string, bool) {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "https://"), "/"), true
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "http://"), "/"), false
	default:
		return strings.TrimSuffix(endpoint, "/"), useSSL
	}
}
