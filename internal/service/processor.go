package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/getnara/unstruct/internal/domain"
	"github.com/getnara/unstruct/internal/logger"
	"github.com/getnara/unstruct/internal/storage"
)

// TaskStore is the slice of the task repository the processor uses.
type TaskStore interface {
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	MarkRunning(ctx context.Context, id string) error
	Finalize(ctx context.Context, id string, status domain.TaskStatus) error
	SaveResults(ctx context.Context, task *domain.Task) error
}

// ProjectStore resolves a task's project for usage attribution.
type ProjectStore interface {
	GetByID(ctx context.Context, id string) (*domain.Project, error)
}

// TaskAgent runs a task's actions and returns the structured output.
type TaskAgent interface {
	ProcessTask(ctx context.Context, task *domain.Task) *domain.TaskOutput
}

// TaskProcessor orchestrates one task run end to end: status
// transitions, agent execution, preview, artifact export, and usage
// metering.
type TaskProcessor struct {
	tasks       TaskStore
	projects    ProjectStore
	agent       TaskAgent
	results     storage.ObjectStorage
	usage       UsageRecorder
	previewSize int
	urlTTL      time.Duration
	log         *logger.Logger
}

// NewTaskProcessor creates a new processor.
// Parameters:
//   - tasks: task persistence.
//   - projects: project lookup for usage attribution.
//   - agent: action executor.
//   - results: object storage for exported artifacts.
//   - usage: consumption recorder.
//   - previewSize: max entries per column in the stored preview.
//   - urlTTL: lifetime of the signed result URL.
//   - log: structured logger.
// Returns:
//   - *TaskProcessor: initialized processor.
func NewTaskProcessor(tasks TaskStore, projects ProjectStore, agent TaskAgent, results storage.ObjectStorage, usage UsageRecorder, previewSize int, urlTTL time.Duration, log *logger.Logger) *TaskProcessor {
	return &TaskProcessor{
		tasks:       tasks,
		projects:    projects,
		agent:       agent,
		results:     results,
		usage:       usage,
		previewSize: previewSize,
		urlTTL:      urlTTL,
		log:         log.WithField(logger.FieldComponent, "processor"),
	}
}

// Process runs a task to completion. The task always reaches a terminal
// status: the finalizer runs even when processing fails partway.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - taskID: the task to run.
// Returns:
//   - *domain.Task: the task with results populated.
//   - error: non-nil when the task cannot be loaded or exported.
func (p *TaskProcessor) Process(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := p.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	ctx = logger.SetTaskID(ctx, taskID)
	log := p.log.WithField(logger.FieldTaskID, taskID)

	if err := p.tasks.MarkRunning(ctx, taskID); err != nil {
		return nil, fmt.Errorf("failed to mark task running: %w", err)
	}

	status := domain.TaskStatusFailed
	defer func() {
		if err := p.tasks.Finalize(ctx, taskID, status); err != nil {
			log.WithError(err).Error("failed to finalize task status")
		}
	}()

	started := time.Now()
	output := p.agent.ProcessTask(ctx, task)
	logger.With(logger.Fields{logger.FieldDurationMs: time.Since(started).Milliseconds()}).
		Info(ctx, "agent run complete")

	task.TotalFiles = len(task.Assets)
	task.FailedFiles = countFailedAssets(output, len(task.Assets))
	task.ProcessedFiles = task.TotalFiles - task.FailedFiles

	if task.ProcessResults, err = toJSONMap(output); err != nil {
		return nil, err
	}
	if task.Preview, err = toJSONMap(truncateOutput(output, p.previewSize)); err != nil {
		return nil, err
	}

	if url, err := p.exportArtifacts(ctx, task, output); err != nil {
		log.WithError(err).Error("failed to export result artifacts")
		return nil, err
	} else {
		task.ResultFileURL = url
	}

	p.recordUsage(ctx, task, output)

	if err := p.tasks.SaveResults(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to save results: %w", err)
	}

	if output.Error == "" {
		status = domain.TaskStatusFinished
	}
	task.Status = status

	return task, nil
}

// exportArtifacts uploads the JSON and CSV renditions of the output and
// returns a signed URL for the CSV.
func (p *TaskProcessor) exportArtifacts(ctx context.Context, task *domain.Task, output *domain.TaskOutput) (string, error) {
	jsonData, err := BuildJSON(output)
	if err != nil {
		return "", err
	}
	csvData, err := BuildCSV(output, task.Actions)
	if err != nil {
		return "", err
	}

	jsonKey := fmt.Sprintf("tasks/%s/results.json", task.ID)
	csvKey := fmt.Sprintf("tasks/%s/results.csv", task.ID)

	if err := p.results.Upload(ctx, jsonKey, bytes.NewReader(jsonData), int64(len(jsonData)), "application/json"); err != nil {
		return "", err
	}
	if err := p.results.Upload(ctx, csvKey, bytes.NewReader(csvData), int64(len(csvData)), "text/csv"); err != nil {
		return "", err
	}

	return p.results.PresignedGetURL(ctx, csvKey, p.urlTTL)
}

// recordUsage meters each asset that processed cleanly against the
// task's organization. Failed assets are not billed. Usage failures are
// logged, never fatal to the run.
func (p *TaskProcessor) recordUsage(ctx context.Context, task *domain.Task, output *domain.TaskOutput) {
	if p.usage == nil || p.projects == nil {
		return
	}

	project, err := p.projects.GetByID(ctx, task.ProjectID)
	if err != nil {
		p.log.WithError(err).Warn("usage attribution skipped, project not found")
		return
	}

	for i := range task.Assets {
		if assetFailed(output, i) {
			continue
		}
		if err := p.usage.RecordTaskUsage(ctx, project.OrganizationID, task.Assets[i:i+1]); err != nil {
			p.log.WithError(err).
				WithField(logger.FieldAssetID, task.Assets[i].ID).
				Warn("failed to record usage")
		}
	}
}

// assetFailed reports whether the asset at index i produced an error
// entry in any extraction column.
func assetFailed(output *domain.TaskOutput, i int) bool {
	for _, entries := range output.Extractions {
		if i < len(entries) && entries[i].Data.IsError() {
			return true
		}
	}
	return false
}

// countFailedAssets counts assets that produced at least one error
// entry in any extraction column.
func countFailedAssets(output *domain.TaskOutput, assetCount int) int {
	failed := 0
	for i := 0; i < assetCount; i++ {
		if assetFailed(output, i) {
			failed++
		}
	}
	return failed
}

// truncateOutput bounds every extraction column to at most n entries
// for the inline preview.
func truncateOutput(output *domain.TaskOutput, n int) *domain.TaskOutput {
	preview := &domain.TaskOutput{
		Extractions: make(map[string][]domain.ExtractionEntry, len(output.Extractions)),
		Generations: output.Generations,
		Error:       output.Error,
	}
	for col, entries := range output.Extractions {
		if len(entries) > n {
			entries = entries[:n]
		}
		preview.Extractions[col] = entries
	}
	return preview
}

func toJSONMap(v interface{}) (domain.JSONMap, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode output: %w", err)
	}
	var m domain.JSONMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode output: %w", err)
	}
	return m, nil
}
