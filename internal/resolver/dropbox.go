package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getnara/unstruct/internal/domain"
)

const dropboxDownloadURL = "https://content.dropboxapi.com/2/files/download"

// resolveDropbox fetches an asset from Dropbox using the access token
// stored on the asset record. The file path travels in the
// Dropbox-API-Arg header per the content API contract.
func (r *AssetResolver) resolveDropbox(ctx context.Context, asset *domain.Asset, localPath string) error {
	if asset.DropboxPath == "" {
		return &ConfigurationError{Source: "DROPBOX", Field: "dropbox_path"}
	}
	token := asset.Credentials["access_token"]
	if token == "" {
		return &ConfigurationError{Source: "DROPBOX", Field: "credentials"}
	}

	arg, err := json.Marshal(map[string]string{"path": asset.DropboxPath})
	if err != nil {
		return fmt.Errorf("failed to encode dropbox arg: %w", err)
	}

	resp, err := r.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Dropbox-API-Arg", string(arg)).
		Post(dropboxDownloadURL)
	if err != nil {
		return &SourceUnavailableError{Source: "DROPBOX", Err: err}
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusConflict, http.StatusNotFound:
		// The content API reports a missing path as 409 with a
		// path lookup error body.
		return &NotFoundError{Source: "DROPBOX", Ref: asset.DropboxPath}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &ConfigurationError{Source: "DROPBOX", Field: "credentials"}
	default:
		return &SourceUnavailableError{
			Source: "DROPBOX",
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode()),
		}
	}

	return writeFile(localPath, bytes.NewReader(resp.Body()))
}
