package objectstore

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pollsite/poll-api/internal/logger"
)

// MinioConfig holds the connection settings for a MinIO or S3 compatible server
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioStore implements ImageStore on a single bucket
type MinioStore struct {
	client *minio.Client
	bucket string
	log    *log.Logger
}

// NewMinioStore connects and creates the bucket if it does not exist
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket cannot be empty")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	store := &MinioStore{
		client: client,
		bucket: cfg.Bucket,
		log:    logger.For(logger.Blobs, ""),
	}

	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}

	store.log.Info("Connected to object storage", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	return store, nil
}

func (s *MinioStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	s.log.Info("Created bucket", "bucket", s.bucket)
	return nil
}

func (s *MinioStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	info, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		s.log.Error("Failed to upload object", "key", key, "error", err)
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	s.log.Debug("Uploaded object", "key", key, "size", info.Size)
	return nil
}

func (s *MinioStore) Get(ctx context.Context, key string) (*Object, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}

	// GetObject is lazy; Stat surfaces a missing key
	stat, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", key, err)
	}

	return &Object{
		Body:        obj,
		ContentType: stat.ContentType,
		Size:        stat.Size,
	}, nil
}

func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		s.log.Error("Failed to delete object", "key", key, "error", err)
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
