package resolver

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/getnara/unstruct/internal/domain"
)

const driveDownloadURL = "https://www.googleapis.com/drive/v3/files/%s?alt=media"

// resolveGoogleDrive fetches an asset from Google Drive using the OAuth
// access token stored on the asset record.
func (r *AssetResolver) resolveGoogleDrive(ctx context.Context, asset *domain.Asset, localPath string) error {
	if asset.DriveFileID == "" {
		return &ConfigurationError{Source: "GOOGLE_DRIVE", Field: "drive_file_id"}
	}
	token := asset.Credentials["access_token"]
	if token == "" {
		return &ConfigurationError{Source: "GOOGLE_DRIVE", Field: "credentials"}
	}

	resp, err := r.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		Get(fmt.Sprintf(driveDownloadURL, asset.DriveFileID))
	if err != nil {
		return &SourceUnavailableError{Source: "GOOGLE_DRIVE", Err: err}
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return &NotFoundError{Source: "GOOGLE_DRIVE", Ref: asset.DriveFileID}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &ConfigurationError{Source: "GOOGLE_DRIVE", Field: "credentials"}
	default:
		return &SourceUnavailableError{
			Source: "GOOGLE_DRIVE",
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode()),
		}
	}

	return writeFile(localPath, bytes.NewReader(resp.Body()))
}
