package service

import "context"

// PromptPart is one piece of a multimodal prompt. Exactly one of Text,
// ImageB64, or FilePath is set.
type PromptPart struct {
	Text     string
	ImageB64 string // base64-encoded image bytes, no data-URL prefix
	MIMEType string // MIME type for image and file parts
	FilePath string // local path of a file to attach (backend uploads it)
}

// TextPart builds a text part.
func TextPart(text string) PromptPart {
	return PromptPart{Text: text}
}

// ImagePart builds an image part from base64 data.
func ImagePart(b64, mimeType string) PromptPart {
	return PromptPart{ImageB64: b64, MIMEType: mimeType}
}

// FilePart builds a file-attachment part.
func FilePart(path, mimeType string) PromptPart {
	return PromptPart{FilePath: path, MIMEType: mimeType}
}

// Prompt is an ordered multimodal request to a language model.
type Prompt struct {
	System string
	Parts  []PromptPart
}

// ModelClient abstracts a language-model backend. Implementations are
// safe for concurrent use.
type ModelClient interface {
	// Generate runs the prompt and returns the raw model text.
	Generate(ctx context.Context, prompt *Prompt) (string, error)
}
