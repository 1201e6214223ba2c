package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"github.com/getnara/unstruct/internal/config"
)

// GeminiClient implements ModelClient against the Gemini API. Documents
// are uploaded through the Files API once and the returned file handle
// is cached, so running many actions over the same document pays the
// upload cost a single time.
type GeminiClient struct {
	client *genai.Client
	model  string

	mu    sync.Mutex
	files map[string]*genai.File // local path -> uploaded file handle
}

// NewGeminiClient creates a new client.
// Parameters:
//   - ctx: context for client initialization.
//   - cfg: model name and API key.
// Returns:
//   - *GeminiClient: initialized client.
//   - error: non-nil if the underlying SDK client cannot be created.
func NewGeminiClient(ctx context.Context, cfg *config.GeminiConfig) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  cfg.Model,
		files:  make(map[string]*genai.File),
	}, nil
}

// uploadFile uploads a local file once and memoizes the handle.
func (c *GeminiClient) uploadFile(ctx context.Context, path, mimeType string) (*genai.File, error) {
	c.mu.Lock()
	if f, ok := c.files[path]; ok {
		c.mu.Unlock()
		return f, nil
	}
	c.mu.Unlock()

	f, err := c.client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{
		MIMEType: mimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload file to gemini: %w", err)
	}

	c.mu.Lock()
	c.files[path] = f
	c.mu.Unlock()

	return f, nil
}

// Generate runs a multimodal prompt through the Gemini API.
func (c *GeminiClient) Generate(ctx context.Context, prompt *Prompt) (string, error) {
	parts := make([]*genai.Part, 0, len(prompt.Parts))
	for _, part := range prompt.Parts {
		switch {
		case part.FilePath != "":
			f, err := c.uploadFile(ctx, part.FilePath, part.MIMEType)
			if err != nil {
				return "", err
			}
			parts = append(parts, genai.NewPartFromFile(*f))
		case part.ImageB64 != "":
			data, err := base64.StdEncoding.DecodeString(part.ImageB64)
			if err != nil {
				return "", fmt.Errorf("invalid image data: %w", err)
			}
			mime := part.MIMEType
			if mime == "" {
				mime = "image/jpeg"
			}
			parts = append(parts, genai.NewPartFromBytes(data, mime))
		default:
			parts = append(parts, genai.NewPartFromText(part.Text))
		}
	}

	var genCfg *genai.GenerateContentConfig
	if prompt.System != "" {
		genCfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		}
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, genCfg)
	if err != nil {
		return "", fmt.Errorf("failed to call gemini API: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty gemini response")
	}
	return text, nil
}
