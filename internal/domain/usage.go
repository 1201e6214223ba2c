package domain

import "time"

// UsageRecord accumulates per-organization consumption counters.
// Documents are metered by count, video/audio by cumulative size.
// The core only reports consumption; quota policy lives with the caller.
type UsageRecord struct {
	ID             string `gorm:"type:text;primaryKey" json:"id"`
	OrganizationID string `gorm:"type:text;not null;uniqueIndex" json:"organization_id"`
	DocumentCount  int64  `gorm:"default:0" json:"document_count"`
	MediaBytes     int64  `gorm:"default:0" json:"media_bytes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for UsageRecord.
func (UsageRecord) TableName() string {
	return "usage_records"
}

// MediaGB returns the media consumption in gigabytes.
func (u *UsageRecord) MediaGB() float64 {
	return float64(u.MediaBytes) / (1024 * 1024 * 1024)
}
