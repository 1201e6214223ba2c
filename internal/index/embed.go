package index

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/getnara/unstruct/internal/config"
)

const jinaEndpoint = "https://api.jina.ai/v1/embeddings"

// JinaEmbedder generates embeddings through the Jina API. Text passages
// go through the text model, frame and page images through the CLIP
// model whose text tower also embeds queries against the image space.
type JinaEmbedder struct {
	client     *resty.Client
	textModel  string
	imageModel string
	textDims   int
	imageDims  int
}

// NewJinaEmbedder creates a new embedder from configuration.
func NewJinaEmbedder(cfg *config.EmbeddingConfig) *JinaEmbedder {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	return &JinaEmbedder{
		client:     client,
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		textDims:   cfg.TextDimensions,
		imageDims:  cfg.ImageDimensions,
	}
}

// TextDimensions returns the dimensionality of text embeddings.
func (e *JinaEmbedder) TextDimensions() int { return e.textDims }

// ImageDimensions returns the dimensionality of image embeddings.
func (e *JinaEmbedder) ImageDimensions() int { return e.imageDims }

type jinaTextRequest struct {
	Model         string   `json:"model"`
	Task          string   `json:"task,omitempty"`
	Dimensions    int      `json:"dimensions,omitempty"`
	Input         []string `json:"input"`
	EmbeddingType string   `json:"embedding_type,omitempty"`
}

// jinaMultimodalRequest carries CLIP inputs. Each input holds either a
// text or a base64 image, never both.
type jinaMultimodalRequest struct {
	Model      string              `json:"model"`
	Dimensions int                 `json:"dimensions,omitempty"`
	Input      []map[string]string `json:"input"`
}

type jinaResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Detail string `json:"detail,omitempty"`
}

func (e *JinaEmbedder) post(ctx context.Context, body interface{}, expected int) ([][]float32, error) {
	var resp jinaResponse
	httpResp, err := e.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&resp).
		Post(jinaEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call Jina API: %w", err)
	}

	if httpResp.StatusCode() != 200 {
		if resp.Detail != "" {
			return nil, fmt.Errorf("Jina API error: %s", resp.Detail)
		}
		return nil, fmt.Errorf("Jina API error: status %d", httpResp.StatusCode())
	}

	if len(resp.Data) != expected {
		return nil, fmt.Errorf("unexpected number of embeddings: got %d, expected %d", len(resp.Data), expected)
	}

	// Sort by index to ensure correct order
	embeddings := make([][]float32, expected)
	for _, item := range resp.Data {
		if item.Index < len(embeddings) {
			embeddings[item.Index] = item.Embedding
		}
	}
	return embeddings, nil
}

// EmbedPassages generates embeddings for text passages being indexed.
func (e *JinaEmbedder) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return e.post(ctx, jinaTextRequest{
		Model:         e.textModel,
		Task:          "retrieval.passage",
		Dimensions:    e.textDims,
		Input:         texts,
		EmbeddingType: "float",
	}, len(texts))
}

// EmbedTextQuery generates a query embedding against the text sub-index.
func (e *JinaEmbedder) EmbedTextQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := e.post(ctx, jinaTextRequest{
		Model:         e.textModel,
		Task:          "retrieval.query",
		Dimensions:    e.textDims,
		Input:         []string{query},
		EmbeddingType: "float",
	}, 1)
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedImages generates CLIP embeddings for base64-encoded images.
func (e *JinaEmbedder) EmbedImages(ctx context.Context, imagesB64 []string) ([][]float32, error) {
	if len(imagesB64) == 0 {
		return [][]float32{}, nil
	}
	input := make([]map[string]string, len(imagesB64))
	for i, img := range imagesB64 {
		input[i] = map[string]string{"image": img}
	}
	return e.post(ctx, jinaMultimodalRequest{
		Model:      e.imageModel,
		Dimensions: e.imageDims,
		Input:      input,
	}, len(imagesB64))
}

// EmbedImageQuery embeds a text query into the CLIP space so it can be
// searched against indexed images.
func (e *JinaEmbedder) EmbedImageQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := e.post(ctx, jinaMultimodalRequest{
		Model:      e.imageModel,
		Dimensions: e.imageDims,
		Input:      []map[string]string{{"text": query}},
	}, 1)
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}
