package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/getnara/unstruct/internal/config"
)

// OpenAIClient implements ModelClient against an OpenAI-compatible chat
// completions endpoint.
type OpenAIClient struct {
	client   *resty.Client
	model    string
	endpoint string
}

// NewOpenAIClient creates a new client.
// Parameters:
//   - cfg: model name, API key, and optional base URL override.
// Returns:
//   - *OpenAIClient: initialized client.
func NewOpenAIClient(cfg *config.OpenAIConfig) *OpenAIClient {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(120 * time.Second)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &OpenAIClient{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
	}
}

// OpenAI-compatible Chat Completion API request/response structures
type openAIRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string for system, []interface{} for multimodal user content
}

type openAITextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type openAIImageContent struct {
	Type     string         `json:"type"`
	ImageURL openAIImageURL `json:"image_url"`
}

type openAIImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate runs a multimodal prompt through the chat completions API.
// File-attachment parts are not supported here; document extraction
// routes to the Gemini backend instead.
func (c *OpenAIClient) Generate(ctx context.Context, prompt *Prompt) (string, error) {
	content := make([]interface{}, 0, len(prompt.Parts))
	for _, part := range prompt.Parts {
		switch {
		case part.FilePath != "":
			return "", fmt.Errorf("file attachments are not supported by the openai backend")
		case part.ImageB64 != "":
			mime := part.MIMEType
			if mime == "" {
				mime = "image/jpeg"
			}
			content = append(content, openAIImageContent{
				Type: "image_url",
				ImageURL: openAIImageURL{
					URL:    fmt.Sprintf("data:%s;base64,%s", mime, part.ImageB64),
					Detail: "auto",
				},
			})
		default:
			content = append(content, openAITextContent{Type: "text", Text: part.Text})
		}
	}

	messages := make([]openAIMessage, 0, 2)
	if prompt.System != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: prompt.System})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: content})

	req := openAIRequest{
		Model:    c.model,
		Messages: messages,
	}

	var resp openAIResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call model API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		if resp.Error != nil {
			return "", fmt.Errorf("model API returned error: HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		}
		return "", fmt.Errorf("model API returned error: HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
	}

	if resp.Error != nil {
		return "", fmt.Errorf("model API error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in model response (status: %d)", httpResp.StatusCode())
	}

	return resp.Choices[0].Message.Content, nil
}
