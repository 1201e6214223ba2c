package storage

import (
	"context"
	"io"
	"time"
)

// ObjectStorage defines the interface for object storage operations.
// Two instances are wired at startup: one over the upload bucket that
// asset ingestion writes to, one over the results bucket that holds
// exported task artifacts.
type ObjectStorage interface {
	// Upload uploads an object to storage
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download downloads an object from storage
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// PresignedGetURL returns a time-limited signed URL for an object
	PresignedGetURL(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Delete deletes an object from storage
	Delete(ctx context.Context, key string) error

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)
}
