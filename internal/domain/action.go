package domain

import (
	"time"

	"gorm.io/gorm"
)

// ActionType distinguishes per-asset field extraction from free-form
// generation that runs once per action.
type ActionType string

const (
	ActionTypeExtraction ActionType = "EXTRACTION"
	ActionTypeGeneration ActionType = "GENERATION"
)

// Action is one unit of work applied by a task. For extraction actions
// OutputColumnName is the result key and Description the field spec;
// for generation actions Description is the whole prompt.
type Action struct {
	ID               string     `gorm:"type:text;primaryKey" json:"id"`
	TaskID           string     `gorm:"type:text;not null;index" json:"task_id"`
	OutputColumnName string     `gorm:"type:text;not null" json:"output_column_name"`
	Description      string     `gorm:"type:text;not null" json:"description"`
	ActionType       ActionType `gorm:"type:text;default:EXTRACTION" json:"action_type"`
	Position         int        `gorm:"default:0" json:"position"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the database table name for Action.
func (Action) TableName() string {
	return "actions"
}
