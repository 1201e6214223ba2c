package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/getnara/unstruct/internal/domain"
	"github.com/getnara/unstruct/internal/index"
	"github.com/getnara/unstruct/internal/prompts"
)

// HandlerInput carries one action-asset pairing through prompt construction.
type HandlerInput struct {
	Asset     *domain.Asset
	Action    *domain.Action
	LocalPath string
}

// ExtractionHandler builds the model prompt for one asset modality.
type ExtractionHandler interface {
	ConstructPrompt(ctx context.Context, in *HandlerInput) (*Prompt, error)
}

// Retriever is the slice of the multimodal index handlers depend on.
type Retriever interface {
	IndexVideo(ctx context.Context, assetID, localPath string) error
	IndexAudio(ctx context.Context, assetID, localPath string) error
	IndexDocument(ctx context.Context, assetID, localPath string) error
	Invoke(ctx context.Context, assetID, query string, topK int) (*index.Retrieved, error)
}

// NewHandlerMap wires the per-file-type handler table. File types absent
// from the map have no extraction support and surface as error entries.
func NewHandlerMap(retriever Retriever, topK int) map[domain.FileType]ExtractionHandler {
	doc := &DocumentHandler{retriever: retriever, topK: topK}
	img := &ImageHandler{}
	vid := &VideoHandler{retriever: retriever, topK: topK}
	aud := &AudioHandler{retriever: retriever, topK: topK}

	return map[domain.FileType]ExtractionHandler{
		domain.FileTypePDF:  doc,
		domain.FileTypeDOC:  doc,
		domain.FileTypeTXT:  doc,
		domain.FileTypeJPEG: img,
		domain.FileTypeJPG:  img,
		domain.FileTypePNG:  img,
		domain.FileTypeMP4:  vid,
		domain.FileTypeMP3:  aud,
	}
}

// DocumentHandler attaches the whole document to the prompt and adds
// the passages and page images most relevant to the action, so the
// model sees full context with the pertinent sections surfaced.
type DocumentHandler struct {
	retriever Retriever
	topK      int
}

func (h *DocumentHandler) ConstructPrompt(ctx context.Context, in *HandlerInput) (*Prompt, error) {
	if err := h.retriever.IndexDocument(ctx, in.Asset.ID, in.LocalPath); err != nil {
		return nil, fmt.Errorf("failed to index document: %w", err)
	}

	retrieved, err := h.retriever.Invoke(ctx, in.Asset.ID, retrievalQuery(in.Action), h.topK)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve document content: %w", err)
	}

	parts := []PromptPart{
		FilePart(in.LocalPath, documentMIMEType(in.LocalPath)),
		TextPart(prompts.DocumentExtractionPrompt(in.Action.OutputColumnName, in.Action.Description)),
	}
	if len(retrieved.Texts) > 0 {
		parts = append(parts, TextPart("Relevant passages:\n"+joinPassages(retrieved)))
	}
	for _, hit := range retrieved.Images {
		parts = append(parts, ImagePart(hit.Payload.Content, "image/jpeg"))
	}

	return &Prompt{Parts: parts}, nil
}

// ImageHandler passes the image bytes to the model directly; images are
// small enough that retrieval adds nothing.
type ImageHandler struct{}

func (h *ImageHandler) ConstructPrompt(_ context.Context, in *HandlerInput) (*Prompt, error) {
	data, err := os.ReadFile(in.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	return &Prompt{
		Parts: []PromptPart{
			TextPart(prompts.ImageExtractionPrompt(in.Action.OutputColumnName, in.Action.Description)),
			ImagePart(base64.StdEncoding.EncodeToString(data), imageMIMEType(in.LocalPath)),
		},
	}, nil
}

// VideoHandler retrieves the frames and transcript passages most
// relevant to the action and feeds those to the model instead of the
// raw video.
type VideoHandler struct {
	retriever Retriever
	topK      int
}

func (h *VideoHandler) ConstructPrompt(ctx context.Context, in *HandlerInput) (*Prompt, error) {
	if err := h.retriever.IndexVideo(ctx, in.Asset.ID, in.LocalPath); err != nil {
		return nil, fmt.Errorf("failed to index video: %w", err)
	}

	retrieved, err := h.retriever.Invoke(ctx, in.Asset.ID, retrievalQuery(in.Action), h.topK)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve video content: %w", err)
	}
	if len(retrieved.Images) == 0 && len(retrieved.Texts) == 0 {
		return nil, fmt.Errorf("no retrievable content in video")
	}

	parts := []PromptPart{
		TextPart(prompts.VideoExtractionPrompt(in.Action.OutputColumnName, in.Action.Description)),
	}
	for _, hit := range retrieved.Images {
		parts = append(parts, ImagePart(hit.Payload.Content, "image/jpeg"))
	}
	if len(retrieved.Texts) > 0 {
		parts = append(parts, TextPart("Transcript passages:\n"+joinPassages(retrieved)))
	}

	return &Prompt{Parts: parts}, nil
}

// AudioHandler retrieves transcript passages relevant to the action.
type AudioHandler struct {
	retriever Retriever
	topK      int
}

func (h *AudioHandler) ConstructPrompt(ctx context.Context, in *HandlerInput) (*Prompt, error) {
	if err := h.retriever.IndexAudio(ctx, in.Asset.ID, in.LocalPath); err != nil {
		return nil, fmt.Errorf("failed to index audio: %w", err)
	}

	retrieved, err := h.retriever.Invoke(ctx, in.Asset.ID, retrievalQuery(in.Action), h.topK)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve transcript: %w", err)
	}
	if len(retrieved.Texts) == 0 {
		return nil, fmt.Errorf("no transcript content in audio")
	}

	return &Prompt{
		Parts: []PromptPart{
			TextPart(prompts.AudioExtractionPrompt(
				in.Action.OutputColumnName,
				in.Action.Description,
				joinPassages(retrieved),
			)),
		},
	}, nil
}

// retrievalQuery is the search string for one action: field name plus
// description, so both the column label and its definition steer
// retrieval.
func retrievalQuery(action *domain.Action) string {
	return action.OutputColumnName + " " + action.Description
}

func joinPassages(retrieved *index.Retrieved) string {
	passages := make([]string, 0, len(retrieved.Texts))
	for _, hit := range retrieved.Texts {
		passages = append(passages, hit.Payload.Content)
	}
	return strings.Join(passages, "\n---\n")
}

func documentMIMEType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".doc":
		return "application/msword"
	default:
		return "application/octet-stream"
	}
}

func imageMIMEType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
