package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/getnara/unstruct/internal/domain"
	"github.com/getnara/unstruct/internal/logger"
	"github.com/getnara/unstruct/internal/storage"
)

// AssetResolver materializes remote assets as local files so the
// extraction pipeline can feed them to parsers and model clients.
// Downloads land at a deterministic path derived from the asset ID, so
// a second resolve of the same asset is a stat call, not a download.
type AssetResolver struct {
	tempDir string
	retries int
	uploads storage.ObjectStorage
	http    *resty.Client
	log     *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewAssetResolver creates a resolver rooted at tempDir.
// Parameters:
//   - tempDir: directory for materialized asset files.
//   - retries: attempts per download before giving up on transient failures.
//   - uploads: object storage backing the UPLOAD source.
//   - log: structured logger.
// Returns:
//   - *AssetResolver: initialized resolver.
func NewAssetResolver(tempDir string, retries int, uploads storage.ObjectStorage, log *logger.Logger) *AssetResolver {
	if retries < 1 {
		retries = 1
	}
	return &AssetResolver{
		tempDir: tempDir,
		retries: retries,
		uploads: uploads,
		http:    resty.New().SetTimeout(2 * time.Minute),
		log:     log.WithField(logger.FieldComponent, "resolver"),
		locks:   make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex guarding one asset ID. Concurrent tasks
// resolving the same asset serialize here instead of racing on the
// partially written file.
func (r *AssetResolver) lockFor(assetID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[assetID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[assetID] = l
	}
	return l
}

// LocalPath returns the deterministic path an asset resolves to.
func (r *AssetResolver) LocalPath(asset *domain.Asset) string {
	ext := filepath.Ext(asset.Name)
	if ext == "" {
		ext = "." + strings.ToLower(string(asset.FileType))
	}
	return filepath.Join(r.tempDir, asset.ID+ext)
}

// Resolve downloads the asset from its upload source and returns the
// local file path. An already materialized file is reused as is.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - asset: asset record including source fields and credentials.
// Returns:
//   - string: local path of the materialized file.
//   - error: typed resolver error on failure.
func (r *AssetResolver) Resolve(ctx context.Context, asset *domain.Asset) (string, error) {
	lock := r.lockFor(asset.ID)
	lock.Lock()
	defer lock.Unlock()

	localPath := r.LocalPath(asset)
	if info, err := os.Stat(localPath); err == nil && info.Size() > 0 {
		return localPath, nil
	}

	if err := os.MkdirAll(r.tempDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= r.retries; attempt++ {
		err := r.download(ctx, asset, localPath)
		if err == nil {
			r.log.WithField(logger.FieldAssetID, asset.ID).
				WithField(logger.FieldSource, string(asset.UploadSource)).
				Debug("asset materialized")
			return localPath, nil
		}

		lastErr = err

		// Configuration and not-found failures are permanent.
		var cfgErr *ConfigurationError
		var nfErr *NotFoundError
		if errors.As(err, &cfgErr) || errors.As(err, &nfErr) {
			return "", err
		}

		if attempt < r.retries {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}

	// Leave no partial file behind so the next resolve retries cleanly.
	os.Remove(localPath)

	return "", lastErr
}

func (r *AssetResolver) download(ctx context.Context, asset *domain.Asset, localPath string) error {
	switch asset.UploadSource {
	case domain.SourceUpload:
		return r.resolveUpload(ctx, asset, localPath)
	case domain.SourceAWSS3:
		return r.resolveS3(ctx, asset, localPath)
	case domain.SourceGoogleDrive:
		return r.resolveGoogleDrive(ctx, asset, localPath)
	case domain.SourceDropbox:
		return r.resolveDropbox(ctx, asset, localPath)
	default:
		return &ConfigurationError{Source: string(asset.UploadSource), Field: "upload_source"}
	}
}

// writeFile streams body to localPath, writing to a temp file first so
// a failed download never leaves a truncated file at the final path.
func writeFile(localPath string, body io.Reader) error {
	tmp := localPath + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close file: %w", err)
	}

	return os.Rename(tmp, localPath)
}
