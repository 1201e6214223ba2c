package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/getnara/unstruct/internal/domain"
	"gorm.io/gorm"
)

// TaskRepository handles task data operations.
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a new task record with its action set.
func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// GetByID loads a task with its assets and actions. Actions come back
// in declaration order; the processing loop depends on that ordering.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	err := r.db.WithContext(ctx).
		Preload("Assets").
		Preload("Actions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, created_at ASC")
		}).
		First(&task, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("task %s not found: %w", id, err)
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return &task, nil
}

// MarkRunning transitions the task to RUNNING and stamps the start time.
func (r *TaskRepository) MarkRunning(ctx context.Context, id string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     domain.TaskStatusRunning,
			"started_at": &now,
		}).Error
}

// Finalize stamps the terminal status and completion time. Called from a
// deferred block so a task is never left RUNNING.
func (r *TaskRepository) Finalize(ctx context.Context, id string, status domain.TaskStatus) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       status,
			"completed_at": &now,
		}).Error
}

// SaveResults persists the full structured output, the bounded preview,
// the signed result URL, and the progress counters.
func (r *TaskRepository) SaveResults(ctx context.Context, task *domain.Task) error {
	return r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"process_results": task.ProcessResults,
			"preview":         task.Preview,
			"result_file_url": task.ResultFileURL,
			"total_files":     task.TotalFiles,
			"processed_files": task.ProcessedFiles,
			"failed_files":    task.FailedFiles,
		}).Error
}

// List returns tasks for a project, newest first.
func (r *TaskRepository) List(ctx context.Context, projectID string, limit, offset int) ([]domain.Task, int64, error) {
	var tasks []domain.Task
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Task{})
	if projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&tasks).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}
