package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/getnara/unstruct/internal/config"
	"github.com/getnara/unstruct/internal/domain"
)

// ClientFactory routes file types to model backends and memoizes the
// constructed clients. Documents always route to Gemini, whose Files
// API handles whole-document prompts; everything else uses the
// configured default backend. Injected where needed rather than held
// in a package-level singleton so tests can substitute backends.
type ClientFactory struct {
	models *config.ModelsConfig

	mu    sync.Mutex
	cache map[string]ModelClient
}

// NewClientFactory creates a new factory.
func NewClientFactory(models *config.ModelsConfig) *ClientFactory {
	return &ClientFactory{
		models: models,
		cache:  make(map[string]ModelClient),
	}
}

// backendFor picks the backend name for a file type.
func (f *ClientFactory) backendFor(fileType domain.FileType) string {
	if fileType.IsDocument() {
		return "gemini"
	}
	backend := f.models.Default
	if backend == "" {
		backend = "openai"
	}
	return backend
}

// ClientFor returns the model client serving a file type, constructing
// it on first use.
// Parameters:
//   - ctx: context for client initialization.
//   - fileType: asset file type driving backend selection.
// Returns:
//   - ModelClient: memoized client for the routed backend.
//   - error: non-nil if the backend is unknown or construction fails.
func (f *ClientFactory) ClientFor(ctx context.Context, fileType domain.FileType) (ModelClient, error) {
	backend := f.backendFor(fileType)

	f.mu.Lock()
	defer f.mu.Unlock()

	if client, ok := f.cache[backend]; ok {
		return client, nil
	}

	var client ModelClient
	var err error
	switch backend {
	case "openai":
		client = NewOpenAIClient(&f.models.OpenAI)
	case "gemini":
		client, err = NewGeminiClient(ctx, &f.models.Gemini)
	default:
		return nil, fmt.Errorf("unknown model backend %q", backend)
	}
	if err != nil {
		return nil, err
	}

	f.cache[backend] = client
	return client, nil
}

// DefaultClient returns the client for the default backend. Generation
// actions, which carry no asset, run through it.
func (f *ClientFactory) DefaultClient(ctx context.Context) (ModelClient, error) {
	return f.ClientFor(ctx, domain.FileTypeOther)
}
