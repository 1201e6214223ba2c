package service

import (
	"context"
	"testing"

	"github.com/getnara/unstruct/internal/config"
	"github.com/getnara/unstruct/internal/domain"
)

func TestClientFactoryRouting(t *testing.T) {
	f := NewClientFactory(&config.ModelsConfig{Default: "openai"})

	tests := []struct {
		name     string
		fileType domain.FileType
		expected string
	}{
		{"pdf routes to gemini", domain.FileTypePDF, "gemini"},
		{"doc routes to gemini", domain.FileTypeDOC, "gemini"},
		{"txt routes to gemini", domain.FileTypeTXT, "gemini"},
		{"image uses default", domain.FileTypeJPG, "openai"},
		{"video uses default", domain.FileTypeMP4, "openai"},
		{"audio uses default", domain.FileTypeMP3, "openai"},
		{"other uses default", domain.FileTypeOther, "openai"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.backendFor(tt.fileType); got != tt.expected {
				t.Errorf("backendFor(%v) = %q, want %q", tt.fileType, got, tt.expected)
			}
		})
	}
}

func TestClientFactoryDefaultsToOpenAI(t *testing.T) {
	f := NewClientFactory(&config.ModelsConfig{})
	if got := f.backendFor(domain.FileTypeJPG); got != "openai" {
		t.Errorf("empty default should fall back to openai, got %q", got)
	}
}

func TestClientFactoryMemoizesClients(t *testing.T) {
	f := NewClientFactory(&config.ModelsConfig{Default: "openai"})

	ctx := context.Background()
	first, err := f.ClientFor(ctx, domain.FileTypeJPG)
	if err != nil {
		t.Fatalf("ClientFor failed: %v", err)
	}
	second, err := f.ClientFor(ctx, domain.FileTypeMP4)
	if err != nil {
		t.Fatalf("ClientFor failed: %v", err)
	}

	if first != second {
		t.Error("same backend should return the memoized client")
	}

	viaDefault, err := f.DefaultClient(ctx)
	if err != nil {
		t.Fatalf("DefaultClient failed: %v", err)
	}
	if viaDefault != first {
		t.Error("default client should share the memoized instance")
	}
}

func TestClientFactoryUnknownBackend(t *testing.T) {
	f := NewClientFactory(&config.ModelsConfig{Default: "llama-on-a-floppy"})
	if _, err := f.ClientFor(context.Background(), domain.FileTypeJPG); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
