// Package objectstore stores question image bytes outside the database.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pollsite/poll-api/internal/config"
	"github.com/pollsite/poll-api/internal/logger"
)

// ErrObjectNotFound is returned when no object exists under a key
var ErrObjectNotFound = errors.New("object not found")

// Object is an open blob and its metadata. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// ImageStore persists blobs under opaque keys. Delete of a missing key is not an error.
type ImageStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

// NewFromConfig returns a MinIO-backed store when an endpoint is configured,
// otherwise an in-memory store
func NewFromConfig(ctx context.Context, cfg *config.Config) (ImageStore, error) {
	log := logger.For(logger.Blobs, "")

	if cfg.MinIO.Endpoint == "" {
		log.Warn("MINIO_ENDPOINT not set, keeping images in memory")
		return NewMemoryStore(), nil
	}

	store, err := NewMinioStore(ctx, MinioConfig{
		Endpoint:  cfg.MinIO.Endpoint,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Bucket:    cfg.MinIO.Bucket,
		UseSSL:    cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object store: %w", err)
	}
	return store, nil
}
