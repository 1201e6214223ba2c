package resolver

import (
	"context"

	"github.com/getnara/unstruct/internal/domain"
)

// resolveUpload fetches a directly uploaded asset from the platform's
// own upload bucket.
func (r *AssetResolver) resolveUpload(ctx context.Context, asset *domain.Asset, localPath string) error {
	if asset.StorageKey == "" {
		return &ConfigurationError{Source: "UPLOAD", Field: "storage_key"}
	}

	exists, err := r.uploads.Exists(ctx, asset.StorageKey)
	if err != nil {
		return &SourceUnavailableError{Source: "UPLOAD", Err: err}
	}
	if !exists {
		return &NotFoundError{Source: "UPLOAD", Ref: asset.StorageKey}
	}

	body, err := r.uploads.Download(ctx, asset.StorageKey)
	if err != nil {
		return &SourceUnavailableError{Source: "UPLOAD", Err: err}
	}
	defer body.Close()

	return writeFile(localPath, body)
}
