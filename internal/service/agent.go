package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/getnara/unstruct/internal/domain"
	"github.com/getnara/unstruct/internal/logger"
)

// Resolver materializes an asset as a local file.
type Resolver interface {
	Resolve(ctx context.Context, asset *domain.Asset) (string, error)
}

// ClientProvider routes file types to model clients.
type ClientProvider interface {
	ClientFor(ctx context.Context, fileType domain.FileType) (ModelClient, error)
	DefaultClient(ctx context.Context) (ModelClient, error)
}

// AgentService runs the actions of a task against its assets. Failures
// are isolated to the single action-asset pair they occur in: a sibling
// entry records its error data while the rest of the task proceeds.
type AgentService struct {
	clients  ClientProvider
	handlers map[domain.FileType]ExtractionHandler
	resolver Resolver
	log      *logger.Logger
}

// NewAgentService creates a new agent service.
// Parameters:
//   - clients: model client routing.
//   - handlers: per-file-type prompt handlers.
//   - resolver: asset materializer.
//   - log: structured logger.
// Returns:
//   - *AgentService: initialized service.
func NewAgentService(clients ClientProvider, handlers map[domain.FileType]ExtractionHandler, resolver Resolver, log *logger.Logger) *AgentService {
	return &AgentService{
		clients:  clients,
		handlers: handlers,
		resolver: resolver,
		log:      log.WithField(logger.FieldComponent, "agent"),
	}
}

type resolveResult struct {
	path string
	err  error
}

// ProcessTask executes every action of the task. Extraction actions run
// per asset in membership order; generation actions run once each. The
// returned output always has every extraction column populated with one
// entry per asset, error entries included.
func (s *AgentService) ProcessTask(ctx context.Context, task *domain.Task) (output *domain.TaskOutput) {
	output = &domain.TaskOutput{
		Extractions: make(map[string][]domain.ExtractionEntry),
		Generations: make(map[string]string),
	}

	// A panic anywhere below aborts the run but still yields a result
	// object carrying the failure.
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField(logger.FieldTaskID, task.ID).Error(fmt.Sprintf("task processing panicked: %v", r))
			output.Error = fmt.Sprintf("%v", r)
		}
	}()

	// Each asset resolves at most once per run, no matter how many
	// actions touch it.
	resolved := make(map[string]resolveResult, len(task.Assets))
	resolve := func(asset *domain.Asset) (string, error) {
		if r, ok := resolved[asset.ID]; ok {
			return r.path, r.err
		}
		path, err := s.resolver.Resolve(ctx, asset)
		resolved[asset.ID] = resolveResult{path: path, err: err}
		return path, err
	}

	for _, action := range task.ExtractionActions() {
		entries := make([]domain.ExtractionEntry, 0, len(task.Assets))
		for i := range task.Assets {
			asset := &task.Assets[i]
			entries = append(entries, s.runExtraction(ctx, &action, asset, resolve))
		}
		output.Extractions[action.OutputColumnName] = entries
	}

	for _, action := range task.GenerationActions() {
		output.Generations[action.OutputColumnName] = s.runGeneration(ctx, &action)
	}

	return output
}

// runExtraction executes one action-asset pair and always returns an
// entry, recording any failure as error data.
func (s *AgentService) runExtraction(ctx context.Context, action *domain.Action, asset *domain.Asset, resolve func(*domain.Asset) (string, error)) domain.ExtractionEntry {
	entry := domain.ExtractionEntry{
		Asset:  asset.Name,
		Source: assetSource(asset),
	}

	log := s.log.WithField(logger.FieldAssetID, asset.ID).WithField(logger.FieldActionID, action.ID)

	if strings.TrimSpace(action.OutputColumnName) == "" || strings.TrimSpace(action.Description) == "" {
		log.Warn("extraction action has no field name or description")
		entry.Data = domain.ErrorData("Field name or description is empty")
		return entry
	}

	handler, ok := s.handlers[asset.FileType]
	if !ok {
		log.Warn(fmt.Sprintf("no handler for file type %s", asset.FileType))
		entry.Data = domain.ErrorData(fmt.Sprintf("unsupported file type: %s", asset.FileType))
		return entry
	}

	localPath, err := resolve(asset)
	if err != nil {
		log.WithError(err).Warn("asset resolution failed")
		entry.Data = domain.ErrorData(err.Error())
		return entry
	}

	prompt, err := handler.ConstructPrompt(ctx, &HandlerInput{
		Asset:     asset,
		Action:    action,
		LocalPath: localPath,
	})
	if err != nil {
		log.WithError(err).Warn("prompt construction failed")
		entry.Data = domain.ErrorData(err.Error())
		return entry
	}

	client, err := s.clients.ClientFor(ctx, asset.FileType)
	if err != nil {
		log.WithError(err).Warn("model client unavailable")
		entry.Data = domain.ErrorData(err.Error())
		return entry
	}

	raw, err := client.Generate(ctx, prompt)
	if err != nil {
		log.WithError(err).Warn("model call failed")
		entry.Data = domain.ErrorData(err.Error())
		return entry
	}

	entry.Data = ParseFieldData(raw)
	return entry
}

// runGeneration executes one generation action. The description is the
// whole prompt; no asset content is involved.
func (s *AgentService) runGeneration(ctx context.Context, action *domain.Action) string {
	log := s.log.WithField(logger.FieldActionID, action.ID)

	client, err := s.clients.DefaultClient(ctx)
	if err != nil {
		log.WithError(err).Warn("model client unavailable")
		return fmt.Sprintf("Error: %v", err)
	}

	raw, err := client.Generate(ctx, &Prompt{
		Parts: []PromptPart{TextPart(action.Description)},
	})
	if err != nil {
		log.WithError(err).Warn("generation failed")
		return fmt.Sprintf("Error: %v", err)
	}

	return raw
}

func assetSource(asset *domain.Asset) string {
	if asset.URL != "" {
		return asset.URL
	}
	return string(asset.UploadSource)
}
