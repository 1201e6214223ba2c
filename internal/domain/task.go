package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// TaskStatus represents the lifecycle state of an extraction task.
// Values include TaskStatusPending, TaskStatusRunning, TaskStatusFinished,
// and TaskStatusFailed.
type TaskStatus string

const (
	TaskStatusPending  TaskStatus = "PENDING"
	TaskStatusRunning  TaskStatus = "RUNNING"
	TaskStatusFinished TaskStatus = "FINISHED"
	TaskStatusFailed   TaskStatus = "FAILED"
)

// JSONMap is a custom type for storing arbitrary JSON objects in the database.
type JSONMap map[string]interface{}

// Value implements the driver.Valuer interface for database serialization.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for database deserialization.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan JSONMap")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, m)
}

// Task represents one extraction job: a set of assets crossed with a set
// of actions, plus progress metadata and the accumulated results.
type Task struct {
	ID        string     `gorm:"type:text;primaryKey" json:"id"`
	Name      string     `gorm:"type:text;not null" json:"name"`
	ProjectID string     `gorm:"type:text;not null;index" json:"project_id"`
	Status    TaskStatus `gorm:"type:text;default:PENDING;index" json:"status"`

	Assets  []Asset  `gorm:"many2many:task_assets" json:"assets,omitempty"`
	Actions []Action `gorm:"foreignKey:TaskID" json:"actions,omitempty"`

	ProcessResults JSONMap `gorm:"type:text" json:"process_results,omitempty"`
	Preview        JSONMap `gorm:"type:text" json:"preview,omitempty"`
	ResultFileURL  string  `gorm:"type:text" json:"result_file_url,omitempty"`

	TotalFiles     int `gorm:"default:0" json:"total_files"`
	ProcessedFiles int `gorm:"default:0" json:"processed_files"`
	FailedFiles    int `gorm:"default:0" json:"failed_files"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the database table name for Task.
func (Task) TableName() string {
	return "tasks"
}

// ExtractionActions returns the task's extraction actions in declaration order.
func (t *Task) ExtractionActions() []Action {
	return t.actionsOfType(ActionTypeExtraction)
}

// GenerationActions returns the task's generation actions in declaration order.
func (t *Task) GenerationActions() []Action {
	return t.actionsOfType(ActionTypeGeneration)
}

func (t *Task) actionsOfType(at ActionType) []Action {
	var out []Action
	for _, a := range t.Actions {
		if a.ActionType == at {
			out = append(out, a)
		}
	}
	return out
}
