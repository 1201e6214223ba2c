package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/getnara/unstruct/internal/domain"
	"github.com/getnara/unstruct/internal/logger"
)

type fakeTaskStore struct {
	task      *domain.Task
	getErr    error
	running   bool
	finalized []domain.TaskStatus
	saved     *domain.Task
}

func (f *fakeTaskStore) GetByID(context.Context, string) (*domain.Task, error) {
	return f.task, f.getErr
}

func (f *fakeTaskStore) MarkRunning(context.Context, string) error {
	f.running = true
	return nil
}

func (f *fakeTaskStore) Finalize(_ context.Context, _ string, status domain.TaskStatus) error {
	f.finalized = append(f.finalized, status)
	return nil
}

func (f *fakeTaskStore) SaveResults(_ context.Context, task *domain.Task) error {
	f.saved = task
	return nil
}

type fakeProjectStore struct {
	project *domain.Project
}

func (f *fakeProjectStore) GetByID(context.Context, string) (*domain.Project, error) {
	if f.project == nil {
		return nil, errors.New("project not found")
	}
	return f.project, nil
}

type fakeAgent struct {
	output *domain.TaskOutput
}

func (f *fakeAgent) ProcessTask(context.Context, *domain.Task) *domain.TaskOutput {
	return f.output
}

type fakeObjectStorage struct {
	uploads map[string][]byte
	upErr   error
}

func (f *fakeObjectStorage) Upload(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	if f.upErr != nil {
		return f.upErr
	}
	if f.uploads == nil {
		f.uploads = make(map[string][]byte)
	}
	var buf bytes.Buffer
	buf.ReadFrom(reader)
	f.uploads[key] = buf.Bytes()
	return nil
}

func (f *fakeObjectStorage) Download(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeObjectStorage) PresignedGetURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed.example.com/" + key, nil
}

func (f *fakeObjectStorage) Delete(context.Context, string) error { return nil }

func (f *fakeObjectStorage) Exists(context.Context, string) (bool, error) { return false, nil }

type fakeUsageRecorder struct {
	orgID  string
	calls  int
	assets int
}

func (f *fakeUsageRecorder) RecordTaskUsage(_ context.Context, orgID string, assets []domain.Asset) error {
	f.orgID = orgID
	f.calls++
	f.assets += len(assets)
	return nil
}

func processorFixture(output *domain.TaskOutput, assetCount int) (*TaskProcessor, *fakeTaskStore, *fakeObjectStorage, *fakeUsageRecorder) {
	assets := make([]domain.Asset, assetCount)
	for i := range assets {
		assets[i] = domain.Asset{ID: string(rune('a' + i)), Name: "f.pdf", FileType: domain.FileTypePDF}
	}
	task := &domain.Task{
		ID:        "task-1",
		ProjectID: "proj-1",
		Assets:    assets,
		Actions: []domain.Action{
			{OutputColumnName: "total", ActionType: domain.ActionTypeExtraction},
		},
	}

	store := &fakeTaskStore{task: task}
	objects := &fakeObjectStorage{}
	usage := &fakeUsageRecorder{}
	p := NewTaskProcessor(
		store,
		&fakeProjectStore{project: &domain.Project{ID: "proj-1", OrganizationID: "org-9"}},
		&fakeAgent{output: output},
		objects,
		usage,
		1,
		time.Hour,
		logger.New(nil),
	)
	return p, store, objects, usage
}

func TestProcessFinishesHealthyTask(t *testing.T) {
	output := &domain.TaskOutput{
		Extractions: map[string][]domain.ExtractionEntry{
			"total": {
				{Asset: "f.pdf", Data: domain.FieldData{"total": 1.0}},
				{Asset: "f.pdf", Data: domain.ErrorData("boom")},
			},
		},
		Generations: map[string]string{},
	}
	p, store, objects, usage := processorFixture(output, 2)

	task, err := p.Process(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if !store.running {
		t.Error("task should have been marked running")
	}
	if len(store.finalized) != 1 || store.finalized[0] != domain.TaskStatusFinished {
		t.Errorf("expected single FINISHED finalization, got %v", store.finalized)
	}

	if task.TotalFiles != 2 || task.ProcessedFiles != 1 || task.FailedFiles != 1 {
		t.Errorf("unexpected counters: total=%d processed=%d failed=%d",
			task.TotalFiles, task.ProcessedFiles, task.FailedFiles)
	}

	if _, ok := objects.uploads["tasks/task-1/results.json"]; !ok {
		t.Error("JSON artifact should be uploaded")
	}
	if _, ok := objects.uploads["tasks/task-1/results.csv"]; !ok {
		t.Error("CSV artifact should be uploaded")
	}
	if task.ResultFileURL != "https://signed.example.com/tasks/task-1/results.csv" {
		t.Errorf("unexpected result URL: %q", task.ResultFileURL)
	}

	if usage.orgID != "org-9" {
		t.Errorf("usage should be attributed to the project's organization, got %q", usage.orgID)
	}
	// One asset failed, so only the healthy one is metered.
	if usage.calls != 1 || usage.assets != 1 {
		t.Errorf("only clean assets should be metered, got %d calls over %d assets", usage.calls, usage.assets)
	}

	if store.saved == nil {
		t.Fatal("results should be persisted")
	}
}

func TestProcessMarksFailedOnAbort(t *testing.T) {
	output := &domain.TaskOutput{
		Extractions: map[string][]domain.ExtractionEntry{},
		Generations: map[string]string{},
		Error:       "something tore through",
	}
	p, store, _, _ := processorFixture(output, 0)

	task, err := p.Process(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(store.finalized) != 1 || store.finalized[0] != domain.TaskStatusFailed {
		t.Errorf("aborted run should finalize FAILED, got %v", store.finalized)
	}
	if task.Status != domain.TaskStatusFailed {
		t.Errorf("task status should be FAILED, got %v", task.Status)
	}
}

func TestProcessFinalizesWhenExportFails(t *testing.T) {
	output := &domain.TaskOutput{
		Extractions: map[string][]domain.ExtractionEntry{},
		Generations: map[string]string{},
	}
	p, store, objects, _ := processorFixture(output, 0)
	objects.upErr = errors.New("bucket on fire")

	_, err := p.Process(context.Background(), "task-1")
	if err == nil {
		t.Fatal("expected export failure to surface")
	}

	// The finalizer must still run so the task is not stuck RUNNING.
	if len(store.finalized) != 1 || store.finalized[0] != domain.TaskStatusFailed {
		t.Errorf("failed export should finalize FAILED, got %v", store.finalized)
	}
}

func TestProcessPreviewTruncation(t *testing.T) {
	entries := make([]domain.ExtractionEntry, 5)
	for i := range entries {
		entries[i] = domain.ExtractionEntry{Asset: "f.pdf", Data: domain.FieldData{"total": float64(i)}}
	}
	output := &domain.TaskOutput{
		Extractions: map[string][]domain.ExtractionEntry{"total": entries},
		Generations: map[string]string{},
	}
	p, store, _, _ := processorFixture(output, 5)

	if _, err := p.Process(context.Background(), "task-1"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	preview := store.saved.Preview
	extractions, ok := preview["extractions"].(map[string]interface{})
	if !ok {
		t.Fatalf("preview missing extractions: %v", preview)
	}
	column, ok := extractions["total"].([]interface{})
	if !ok {
		t.Fatalf("preview missing total column: %v", extractions)
	}
	if len(column) != 1 {
		t.Errorf("preview should be truncated to preview size 1, got %d entries", len(column))
	}

	// Full results stay untruncated.
	full := store.saved.ProcessResults["extractions"].(map[string]interface{})
	if got := len(full["total"].([]interface{})); got != 5 {
		t.Errorf("full results should keep all entries, got %d", got)
	}
}

func TestProcessUnknownTask(t *testing.T) {
	p, store, _, _ := processorFixture(&domain.TaskOutput{}, 0)
	store.task = nil
	store.getErr = errors.New("task missing not found")

	if _, err := p.Process(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for unknown task")
	}
	if store.running {
		t.Error("unknown task must not be marked running")
	}
	if len(store.finalized) != 0 {
		t.Error("unknown task must not be finalized")
	}
}
