package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/getnara/unstruct/internal/api/middleware"
	"github.com/getnara/unstruct/internal/domain"
	"github.com/getnara/unstruct/internal/repository"
	"github.com/getnara/unstruct/internal/service"
)

// TaskHandler handles task endpoints.
type TaskHandler struct {
	tasks     *repository.TaskRepository
	assets    *repository.AssetRepository
	processor *service.TaskProcessor
}

// NewTaskHandler creates a new task handler.
// Parameters:
//   - tasks: task persistence.
//   - assets: asset lookup for task membership.
//   - processor: the task processing pipeline.
// Returns:
//   - *TaskHandler: initialized handler.
func NewTaskHandler(tasks *repository.TaskRepository, assets *repository.AssetRepository, processor *service.TaskProcessor) *TaskHandler {
	return &TaskHandler{tasks: tasks, assets: assets, processor: processor}
}

type actionRequest struct {
	OutputColumnName string            `json:"output_column_name" binding:"required"`
	Description      string            `json:"description" binding:"required"`
	ActionType       domain.ActionType `json:"action_type" binding:"required"`
}

type createTaskRequest struct {
	Name      string          `json:"name" binding:"required"`
	ProjectID string          `json:"project_id" binding:"required"`
	AssetIDs  []string        `json:"asset_ids"`
	Actions   []actionRequest `json:"actions" binding:"required"`
}

// CreateTask handles POST /api/v1/tasks.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for _, a := range req.Actions {
		if a.ActionType != domain.ActionTypeExtraction && a.ActionType != domain.ActionTypeGeneration {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action_type: " + string(a.ActionType)})
			return
		}
	}

	ctx := c.Request.Context()
	assets, err := h.assets.GetByIDs(ctx, req.AssetIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	taskID := uuid.New().String()
	actions := make([]domain.Action, len(req.Actions))
	for i, a := range req.Actions {
		actions[i] = domain.Action{
			ID:               uuid.New().String(),
			TaskID:           taskID,
			OutputColumnName: a.OutputColumnName,
			Description:      a.Description,
			ActionType:       a.ActionType,
			Position:         i,
		}
	}

	task := &domain.Task{
		ID:        taskID,
		Name:      req.Name,
		ProjectID: req.ProjectID,
		Status:    domain.TaskStatusPending,
		Assets:    assets,
		Actions:   actions,
	}

	if err := h.tasks.Create(ctx, task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, task)
}

// GetTask handles GET /api/v1/tasks/:id.
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.tasks.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, task)
}

// ListTasks handles GET /api/v1/tasks.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	projectID := c.Query("project_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	tasks, total, err := h.tasks.List(c.Request.Context(), projectID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list tasks: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "total": total})
}

// ProcessTask handles POST /api/v1/tasks/:id/process. The call is
// synchronous: it returns once the task reaches a terminal status.
// Partial failures ride inside the 200 response; only an unknown task
// or an infrastructure failure changes the status code.
func (h *TaskHandler) ProcessTask(c *gin.Context) {
	taskID := c.Param("id")
	log := middleware.GetLogger(c)

	task, err := h.processor.Process(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		log.WithError(err).Error("task processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process task: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, task)
}
