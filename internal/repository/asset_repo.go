package repository

import (
	"context"
	"fmt"

	"github.com/getnara/unstruct/internal/domain"
	"gorm.io/gorm"
)

// AssetRepository handles asset data operations.
type AssetRepository struct {
	db *gorm.DB
}

// NewAssetRepository creates a new AssetRepository.
func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// Create inserts a new asset record.
func (r *AssetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	return r.db.WithContext(ctx).Create(asset).Error
}

// GetByID returns an asset by ID.
func (r *AssetRepository) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	var asset domain.Asset
	err := r.db.WithContext(ctx).First(&asset, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("asset %s not found: %w", id, err)
		}
		return nil, fmt.Errorf("failed to load asset: %w", err)
	}
	return &asset, nil
}

// GetByIDs returns the assets matching the given IDs. Missing IDs are
// reported as an error so a task can never silently reference nothing.
func (r *AssetRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Asset, error) {
	var assets []domain.Asset
	if len(ids) == 0 {
		return assets, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&assets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}
	if len(assets) != len(ids) {
		return nil, fmt.Errorf("unknown asset in list: got %d of %d", len(assets), len(ids))
	}
	return assets, nil
}

// List returns assets for a project, newest first.
func (r *AssetRepository) List(ctx context.Context, projectID string, limit, offset int) ([]domain.Asset, int64, error) {
	var assets []domain.Asset
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Asset{})
	if projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count assets: %w", err)
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&assets).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list assets: %w", err)
	}
	return assets, total, nil
}

// SoftDelete marks an asset deleted. Local temp copies are cleaned up
// by the caller on a best-effort basis.
func (r *AssetRepository) SoftDelete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&domain.Asset{}, "id = ?", id).Error
}
