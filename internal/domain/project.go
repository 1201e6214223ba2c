package domain

import (
	"time"

	"gorm.io/gorm"
)

// Project groups assets and tasks under one organization.
type Project struct {
	ID             string `gorm:"type:text;primaryKey" json:"id"`
	Name           string `gorm:"type:text;not null" json:"name"`
	OrganizationID string `gorm:"type:text;not null;index" json:"organization_id"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the database table name for Project.
func (Project) TableName() string {
	return "projects"
}
