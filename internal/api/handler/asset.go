package handler

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/getnara/unstruct/internal/api/middleware"
	"github.com/getnara/unstruct/internal/domain"
	"github.com/getnara/unstruct/internal/index"
	"github.com/getnara/unstruct/internal/repository"
	"github.com/getnara/unstruct/internal/resolver"
)

// AssetHandler handles asset endpoints.
type AssetHandler struct {
	assets   *repository.AssetRepository
	idx      *index.MultimodalIndex
	resolver *resolver.AssetResolver
}

// NewAssetHandler creates a new asset handler.
// Parameters:
//   - assets: asset persistence.
//   - idx: multimodal index, used to drop sub-indices on delete.
//   - res: resolver, used to locate temp copies for cleanup.
// Returns:
//   - *AssetHandler: initialized handler.
func NewAssetHandler(assets *repository.AssetRepository, idx *index.MultimodalIndex, res *resolver.AssetResolver) *AssetHandler {
	return &AssetHandler{assets: assets, idx: idx, resolver: res}
}

type createAssetRequest struct {
	Name         string              `json:"name" binding:"required"`
	Description  string              `json:"description"`
	ProjectID    string              `json:"project_id" binding:"required"`
	URL          string              `json:"url"`
	UploadSource domain.UploadSource `json:"upload_source" binding:"required"`
	FileType     domain.FileType     `json:"file_type"`
	StorageKey   string              `json:"storage_key"`
	Bucket       string              `json:"bucket"`
	ObjectKey    string              `json:"object_key"`
	DriveFileID  string              `json:"drive_file_id"`
	DropboxPath  string              `json:"dropbox_path"`
	Credentials  domain.Credentials  `json:"credentials"`
	FileSize     int64               `json:"file_size"`
}

// CreateAsset handles POST /api/v1/assets. The asset's bytes are not
// uploaded here; the record points at wherever its source keeps them.
func (h *AssetHandler) CreateAsset(c *gin.Context) {
	var req createAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.UploadSource {
	case domain.SourceUpload, domain.SourceGoogleDrive, domain.SourceDropbox, domain.SourceAWSS3:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown upload_source: " + string(req.UploadSource)})
		return
	}

	fileType := req.FileType
	if fileType == "" {
		fileType = domain.FileTypeFromName(req.Name)
	}

	asset := &domain.Asset{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Description:  req.Description,
		ProjectID:    req.ProjectID,
		URL:          req.URL,
		UploadSource: req.UploadSource,
		FileType:     fileType,
		StorageKey:   req.StorageKey,
		Bucket:       req.Bucket,
		ObjectKey:    req.ObjectKey,
		DriveFileID:  req.DriveFileID,
		DropboxPath:  req.DropboxPath,
		Credentials:  req.Credentials,
		FileSize:     req.FileSize,
	}

	if err := h.assets.Create(c.Request.Context(), asset); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create asset: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, asset)
}

// GetAsset handles GET /api/v1/assets/:id.
func (h *AssetHandler) GetAsset(c *gin.Context) {
	asset, err := h.assets.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, asset)
}

// ListAssets handles GET /api/v1/assets.
func (h *AssetHandler) ListAssets(c *gin.Context) {
	projectID := c.Query("project_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	assets, total, err := h.assets.List(c.Request.Context(), projectID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list assets: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"assets": assets, "total": total})
}

// DeleteAsset handles DELETE /api/v1/assets/:id. The record is soft
// deleted; the retrieval sub-indices and any temp copy are cleaned up
// on a best-effort basis.
func (h *AssetHandler) DeleteAsset(c *gin.Context) {
	ctx := c.Request.Context()
	log := middleware.GetLogger(c)

	asset, err := h.assets.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.assets.SoftDelete(ctx, asset.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete asset: " + err.Error()})
		return
	}

	if h.idx != nil {
		if err := h.idx.Drop(ctx, asset.ID); err != nil {
			log.WithError(err).Warn("failed to drop asset sub-indices")
		}
	}
	if h.resolver != nil {
		os.Remove(h.resolver.LocalPath(asset))
	}

	c.JSON(http.StatusOK, gin.H{"deleted": asset.ID})
}
