package service

import (
	"context"

	"github.com/getnara/unstruct/internal/domain"
	"github.com/getnara/unstruct/internal/repository"
)

// UsageRecorder meters what a finished task consumed: documents by
// count, media by byte size.
type UsageRecorder interface {
	RecordTaskUsage(ctx context.Context, organizationID string, assets []domain.Asset) error
}

// GormUsageRecorder persists usage counters through the usage repository.
type GormUsageRecorder struct {
	usage *repository.UsageRepository
}

// NewGormUsageRecorder creates a new recorder.
func NewGormUsageRecorder(usage *repository.UsageRepository) *GormUsageRecorder {
	return &GormUsageRecorder{usage: usage}
}

// RecordTaskUsage increments the organization's counters for every
// processed asset.
func (r *GormUsageRecorder) RecordTaskUsage(ctx context.Context, organizationID string, assets []domain.Asset) error {
	docs := int64(0)
	mediaBytes := int64(0)
	for _, asset := range assets {
		switch {
		case asset.FileType.IsDocument():
			docs++
		case asset.FileType.IsMedia():
			mediaBytes += asset.FileSize
		}
	}

	if docs > 0 {
		if err := r.usage.AddDocuments(ctx, organizationID, docs); err != nil {
			return err
		}
	}
	if mediaBytes > 0 {
		if err := r.usage.AddMediaBytes(ctx, organizationID, mediaBytes); err != nil {
			return err
		}
	}
	return nil
}
