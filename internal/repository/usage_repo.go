package repository

import (
	"context"
	"fmt"

	"github.com/getnara/unstruct/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UsageRepository persists per-organization consumption counters.
type UsageRepository struct {
	db *gorm.DB
}

// NewUsageRepository creates a new UsageRepository.
func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// AddDocuments increments the document counter for an organization.
func (r *UsageRepository) AddDocuments(ctx context.Context, orgID string, count int64) error {
	return r.increment(ctx, orgID, "document_count", count)
}

// AddMediaBytes increments the media-size counter for an organization.
func (r *UsageRepository) AddMediaBytes(ctx context.Context, orgID string, bytes int64) error {
	return r.increment(ctx, orgID, "media_bytes", bytes)
}

func (r *UsageRepository) increment(ctx context.Context, orgID, column string, delta int64) error {
	res := r.db.WithContext(ctx).Model(&domain.UsageRecord{}).
		Where("organization_id = ?", orgID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("failed to update usage: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	rec := &domain.UsageRecord{ID: uuid.New().String(), OrganizationID: orgID}
	switch column {
	case "document_count":
		rec.DocumentCount = delta
	case "media_bytes":
		rec.MediaBytes = delta
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create usage record: %w", err)
	}
	return nil
}

// Get returns the usage record for an organization, zero-valued if none exists.
func (r *UsageRepository) Get(ctx context.Context, orgID string) (*domain.UsageRecord, error) {
	var rec domain.UsageRecord
	err := r.db.WithContext(ctx).First(&rec, "organization_id = ?", orgID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &domain.UsageRecord{OrganizationID: orgID}, nil
		}
		return nil, fmt.Errorf("failed to load usage record: %w", err)
	}
	return &rec, nil
}
