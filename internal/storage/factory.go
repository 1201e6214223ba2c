package storage

import (
	"fmt"

	"github.com/getnara/unstruct/internal/config"
)

// NewStorage creates an ObjectStorage instance for the given bucket.
// Parameters:
//   - cfg: storage configuration including type, endpoint, and credentials.
//   - bucket: bucket name this instance operates on.
// Returns:
//   - ObjectStorage: initialized storage client implementation.
//   - error: non-nil if the storage client cannot be created.
func NewStorage(cfg *config.StorageConfig, bucket string) (ObjectStorage, error) {
	switch cfg.Type {
	case "minio":
		return NewMinIOStorage(&MinIOConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    bucket,
		})
	case "s3", "":
		return NewS3Storage(&S3Config{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    bucket,
			Region:    cfg.Region,
		})
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
