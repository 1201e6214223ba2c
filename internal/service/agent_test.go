package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/getnara/unstruct/internal/domain"
	"github.com/getnara/unstruct/internal/logger"
)

// fakeModelClient returns canned responses keyed by a substring of the
// prompt text, or a fixed error.
type fakeModelClient struct {
	response string
	err      error
	calls    int
}

func (f *fakeModelClient) Generate(_ context.Context, prompt *Prompt) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeClientProvider struct {
	client ModelClient
	err    error
}

func (f *fakeClientProvider) ClientFor(context.Context, domain.FileType) (ModelClient, error) {
	return f.client, f.err
}

func (f *fakeClientProvider) DefaultClient(context.Context) (ModelClient, error) {
	return f.client, f.err
}

type fakeHandler struct {
	err error
}

func (f *fakeHandler) ConstructPrompt(_ context.Context, in *HandlerInput) (*Prompt, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &Prompt{Parts: []PromptPart{TextPart(in.Action.Description)}}, nil
}

type fakeResolver struct {
	failFor map[string]error
}

func (f *fakeResolver) Resolve(_ context.Context, asset *domain.Asset) (string, error) {
	if err, ok := f.failFor[asset.ID]; ok {
		return "", err
	}
	return "/tmp/" + asset.ID, nil
}

func testTask(assets []domain.Asset, actions []domain.Action) *domain.Task {
	return &domain.Task{ID: "task-1", Assets: assets, Actions: actions}
}

func newTestAgent(client ModelClient, handlers map[domain.FileType]ExtractionHandler, resolver Resolver) *AgentService {
	return NewAgentService(&fakeClientProvider{client: client}, handlers, resolver, logger.New(nil))
}

func TestProcessTaskSiblingIsolation(t *testing.T) {
	assets := []domain.Asset{
		{ID: "a1", Name: "good.pdf", FileType: domain.FileTypePDF},
		{ID: "a2", Name: "bad.pdf", FileType: domain.FileTypePDF},
	}
	actions := []domain.Action{
		{ID: "act1", OutputColumnName: "total", Description: "extract total", ActionType: domain.ActionTypeExtraction},
	}

	agent := newTestAgent(
		&fakeModelClient{response: `{"total": 10, "total_confidence": 0.9, "total_reference": "p1"}`},
		map[domain.FileType]ExtractionHandler{domain.FileTypePDF: &fakeHandler{}},
		&fakeResolver{failFor: map[string]error{"a2": errors.New("object not found")}},
	)

	output := agent.ProcessTask(context.Background(), testTask(assets, actions))
	if output.Error != "" {
		t.Fatalf("unexpected task-level error: %s", output.Error)
	}

	entries := output.Extractions["total"]
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Data.IsError() {
		t.Errorf("healthy sibling should succeed, got %v", entries[0].Data)
	}
	if !entries[1].Data.IsError() {
		t.Errorf("failed asset should carry error data, got %v", entries[1].Data)
	}
	if entries[1].Asset != "bad.pdf" {
		t.Errorf("entry order should follow asset membership order, got %q", entries[1].Asset)
	}
}

func TestProcessTaskUnsupportedFileType(t *testing.T) {
	assets := []domain.Asset{
		{ID: "a1", Name: "mystery.zip", FileType: domain.FileTypeOther},
	}
	actions := []domain.Action{
		{ID: "act1", OutputColumnName: "total", Description: "extract", ActionType: domain.ActionTypeExtraction},
	}

	client := &fakeModelClient{response: `{}`}
	agent := newTestAgent(client, map[domain.FileType]ExtractionHandler{}, &fakeResolver{})

	output := agent.ProcessTask(context.Background(), testTask(assets, actions))

	entries := output.Extractions["total"]
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if !entries[0].Data.IsError() {
		t.Fatal("unhandled file type should produce an explicit error entry")
	}
	if msg, _ := entries[0].Data["error"].(string); !strings.Contains(msg, "OTHER") {
		t.Errorf("error should name the file type, got %q", msg)
	}
	if client.calls != 0 {
		t.Error("no model call should happen for unhandled file types")
	}
}

func TestProcessTaskEmptyActionFields(t *testing.T) {
	assets := []domain.Asset{{ID: "a1", Name: "doc.pdf", FileType: domain.FileTypePDF}}

	tests := []struct {
		name   string
		action domain.Action
	}{
		{
			name:   "empty field name",
			action: domain.Action{ID: "e1", OutputColumnName: "", Description: "extract", ActionType: domain.ActionTypeExtraction},
		},
		{
			name:   "empty description",
			action: domain.Action{ID: "e2", OutputColumnName: "total", Description: "  ", ActionType: domain.ActionTypeExtraction},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeModelClient{response: `{}`}
			resolver := &countingResolver{}
			agent := newTestAgent(client,
				map[domain.FileType]ExtractionHandler{domain.FileTypePDF: &fakeHandler{}},
				resolver,
			)

			output := agent.ProcessTask(context.Background(), testTask(assets, []domain.Action{tt.action}))
			entries := output.Extractions[tt.action.OutputColumnName]
			if len(entries) != 1 {
				t.Fatalf("expected 1 entry, got %d", len(entries))
			}
			if entries[0].Data["error"] != "Field name or description is empty" {
				t.Errorf("expected invalid-action error entry, got %v", entries[0].Data)
			}
			if client.calls != 0 {
				t.Error("invalid action must not reach the model")
			}
			if resolver.calls != 0 {
				t.Error("invalid action must not resolve the asset")
			}
		})
	}
}

func TestProcessTaskInvalidModelJSON(t *testing.T) {
	assets := []domain.Asset{{ID: "a1", Name: "doc.pdf", FileType: domain.FileTypePDF}}
	actions := []domain.Action{
		{ID: "act1", OutputColumnName: "total", Description: "extract", ActionType: domain.ActionTypeExtraction},
	}

	agent := newTestAgent(
		&fakeModelClient{response: "I could not find the total."},
		map[domain.FileType]ExtractionHandler{domain.FileTypePDF: &fakeHandler{}},
		&fakeResolver{},
	)

	output := agent.ProcessTask(context.Background(), testTask(assets, actions))
	entry := output.Extractions["total"][0]
	if entry.Data["error"] != domain.ErrInvalidJSONResponse {
		t.Errorf("expected invalid-JSON sentinel, got %v", entry.Data)
	}
}

func TestProcessTaskGeneration(t *testing.T) {
	actions := []domain.Action{
		{ID: "g1", OutputColumnName: "summary", Description: "write a summary", ActionType: domain.ActionTypeGeneration},
	}

	agent := newTestAgent(&fakeModelClient{response: "A fine summary."}, nil, &fakeResolver{})
	output := agent.ProcessTask(context.Background(), testTask(nil, actions))

	if output.Generations["summary"] != "A fine summary." {
		t.Errorf("unexpected generation output: %q", output.Generations["summary"])
	}
	if len(output.Extractions) != 0 {
		t.Errorf("no extraction columns expected, got %v", output.Extractions)
	}
}

func TestProcessTaskGenerationFailure(t *testing.T) {
	actions := []domain.Action{
		{ID: "g1", OutputColumnName: "summary", Description: "write", ActionType: domain.ActionTypeGeneration},
		{ID: "e1", OutputColumnName: "total", Description: "extract", ActionType: domain.ActionTypeExtraction},
	}
	assets := []domain.Asset{{ID: "a1", Name: "doc.pdf", FileType: domain.FileTypePDF}}

	agent := newTestAgent(
		&fakeModelClient{err: errors.New("backend down")},
		map[domain.FileType]ExtractionHandler{domain.FileTypePDF: &fakeHandler{}},
		&fakeResolver{},
	)
	output := agent.ProcessTask(context.Background(), testTask(assets, actions))

	if !strings.Contains(output.Generations["summary"], "backend down") {
		t.Errorf("generation failure should be recorded inline, got %q", output.Generations["summary"])
	}
	if !output.Extractions["total"][0].Data.IsError() {
		t.Error("extraction failure should be recorded as error data")
	}
	if output.Error != "" {
		t.Errorf("per-action failures must not abort the task, got %q", output.Error)
	}
}

func TestProcessTaskZeroAssets(t *testing.T) {
	actions := []domain.Action{
		{ID: "e1", OutputColumnName: "total", Description: "extract", ActionType: domain.ActionTypeExtraction},
	}

	agent := newTestAgent(&fakeModelClient{response: `{}`}, nil, &fakeResolver{})
	output := agent.ProcessTask(context.Background(), testTask(nil, actions))

	entries, ok := output.Extractions["total"]
	if !ok {
		t.Fatal("extraction column should exist even with zero assets")
	}
	if len(entries) != 0 {
		t.Errorf("expected empty column, got %d entries", len(entries))
	}
}

func TestProcessTaskResolvesAssetOncePerRun(t *testing.T) {
	assets := []domain.Asset{{ID: "a1", Name: "doc.pdf", FileType: domain.FileTypePDF}}
	actions := []domain.Action{
		{ID: "e1", OutputColumnName: "total", Description: "extract total", ActionType: domain.ActionTypeExtraction},
		{ID: "e2", OutputColumnName: "vendor", Description: "extract vendor", ActionType: domain.ActionTypeExtraction},
	}

	resolver := &countingResolver{}
	agent := newTestAgent(
		&fakeModelClient{response: `{}`},
		map[domain.FileType]ExtractionHandler{domain.FileTypePDF: &fakeHandler{}},
		resolver,
	)
	agent.ProcessTask(context.Background(), testTask(assets, actions))

	if resolver.calls != 1 {
		t.Errorf("asset should resolve once per run, resolved %d times", resolver.calls)
	}
}

type countingResolver struct {
	calls int
}

func (c *countingResolver) Resolve(_ context.Context, asset *domain.Asset) (string, error) {
	c.calls++
	return fmt.Sprintf("/tmp/%s", asset.ID), nil
}
