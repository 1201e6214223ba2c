package service

import (
	"context"
	"strings"
	"testing"

	"github.com/getnara/unstruct/internal/domain"
	"github.com/getnara/unstruct/internal/index"
	"github.com/getnara/unstruct/internal/repository"
)

type fakeRetriever struct {
	retrieved *index.Retrieved
	queries   []string
	indexed   []string
}

func (f *fakeRetriever) IndexVideo(_ context.Context, assetID, _ string) error {
	f.indexed = append(f.indexed, assetID)
	return nil
}

func (f *fakeRetriever) IndexAudio(_ context.Context, assetID, _ string) error {
	f.indexed = append(f.indexed, assetID)
	return nil
}

func (f *fakeRetriever) IndexDocument(_ context.Context, assetID, _ string) error {
	f.indexed = append(f.indexed, assetID)
	return nil
}

func (f *fakeRetriever) Invoke(_ context.Context, _, query string, _ int) (*index.Retrieved, error) {
	f.queries = append(f.queries, query)
	if f.retrieved == nil {
		return &index.Retrieved{}, nil
	}
	return f.retrieved, nil
}

func handlerInput() *HandlerInput {
	return &HandlerInput{
		Asset:     &domain.Asset{ID: "a1", Name: "invoice.pdf", FileType: domain.FileTypePDF},
		Action:    &domain.Action{ID: "e1", OutputColumnName: "total", Description: "extract the total"},
		LocalPath: "/tmp/a1.pdf",
	}
}

func TestDocumentHandlerIncludesRetrievedContent(t *testing.T) {
	retriever := &fakeRetriever{retrieved: &index.Retrieved{
		Texts: []repository.ScoredContent{
			{Payload: repository.ContentPayload{Content: "total due: 42.50", Reference: "Passage 1"}, Score: 0.9},
		},
		Images: []repository.ScoredContent{
			{Payload: repository.ContentPayload{Content: "b64pagedata", Reference: "Image 1"}, Score: 0.8},
		},
	}}
	h := &DocumentHandler{retriever: retriever, topK: 4}

	prompt, err := h.ConstructPrompt(context.Background(), handlerInput())
	if err != nil {
		t.Fatalf("ConstructPrompt failed: %v", err)
	}

	if len(retriever.indexed) != 1 || retriever.indexed[0] != "a1" {
		t.Errorf("document should be indexed once, got %v", retriever.indexed)
	}
	if len(retriever.queries) != 1 || retriever.queries[0] != "total extract the total" {
		t.Errorf("query should combine field name and description, got %v", retriever.queries)
	}

	if prompt.Parts[0].FilePath != "/tmp/a1.pdf" {
		t.Errorf("prompt should attach the document, got %+v", prompt.Parts[0])
	}

	var passageText string
	var imageCount int
	for _, part := range prompt.Parts {
		if strings.Contains(part.Text, "total due: 42.50") {
			passageText = part.Text
		}
		if part.ImageB64 != "" {
			imageCount++
		}
	}
	if passageText == "" {
		t.Error("retrieved passages should appear in the prompt")
	}
	if imageCount != 1 {
		t.Errorf("retrieved page image should appear in the prompt, got %d image parts", imageCount)
	}
}

func TestDocumentHandlerNoRetrievedContent(t *testing.T) {
	retriever := &fakeRetriever{}
	h := &DocumentHandler{retriever: retriever, topK: 4}

	prompt, err := h.ConstructPrompt(context.Background(), handlerInput())
	if err != nil {
		t.Fatalf("empty retrieval must not fail the document path: %v", err)
	}
	// The full document still carries the context on its own.
	if len(prompt.Parts) != 2 {
		t.Errorf("expected file and instructions only, got %d parts", len(prompt.Parts))
	}
}

func TestVideoHandlerQueryIncludesFieldName(t *testing.T) {
	retriever := &fakeRetriever{retrieved: &index.Retrieved{
		Texts: []repository.ScoredContent{
			{Payload: repository.ContentPayload{Content: "spoken words", Reference: "Transcript 1"}, Score: 0.7},
		},
	}}
	h := &VideoHandler{retriever: retriever, topK: 4}

	in := handlerInput()
	in.Asset.FileType = domain.FileTypeMP4
	if _, err := h.ConstructPrompt(context.Background(), in); err != nil {
		t.Fatalf("ConstructPrompt failed: %v", err)
	}

	if len(retriever.queries) != 1 || retriever.queries[0] != "total extract the total" {
		t.Errorf("query should combine field name and description, got %v", retriever.queries)
	}
}

func TestAudioHandlerQueryAndEmptyTranscript(t *testing.T) {
	retriever := &fakeRetriever{}
	h := &AudioHandler{retriever: retriever, topK: 4}

	in := handlerInput()
	in.Asset.FileType = domain.FileTypeMP3
	_, err := h.ConstructPrompt(context.Background(), in)
	if err == nil {
		t.Fatal("audio with no transcript content should fail prompt construction")
	}
	if len(retriever.queries) != 1 || retriever.queries[0] != "total extract the total" {
		t.Errorf("query should combine field name and description, got %v", retriever.queries)
	}
}
