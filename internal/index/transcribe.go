package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/getnara/unstruct/internal/config"
	"github.com/getnara/unstruct/internal/logger"
)

const deepgramEndpoint = "https://api.deepgram.com/v1/listen"

// DeepgramTranscriber converts speech audio to text through Deepgram's
// prerecorded API.
type DeepgramTranscriber struct {
	client *resty.Client
	model  string
	log    *logger.Logger
}

// NewDeepgramTranscriber creates a transcriber from configuration.
func NewDeepgramTranscriber(cfg *config.TranscriptionConfig, log *logger.Logger) *DeepgramTranscriber {
	client := resty.New()
	client.SetHeader("Authorization", "Token "+cfg.APIKey)

	return &DeepgramTranscriber{
		client: client,
		model:  cfg.Model,
		log:    log.WithField(logger.FieldComponent, "transcriber"),
	}
}

type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe returns the transcript of an audio file. Failures are
// logged and collapse to an empty transcript so that a transcription
// outage degrades retrieval instead of failing the whole asset.
func (t *DeepgramTranscriber) Transcribe(ctx context.Context, audioPath string) string {
	transcript, err := t.transcribe(ctx, audioPath)
	if err != nil {
		t.log.WithError(err).Warn("transcription failed, continuing without transcript")
		return ""
	}
	return transcript
}

func (t *DeepgramTranscriber) transcribe(ctx context.Context, audioPath string) (string, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to read audio file: %w", err)
	}

	var resp deepgramResponse
	httpResp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", audioContentType(audioPath)).
		SetBody(audio).
		SetResult(&resp).
		SetQueryParams(map[string]string{
			"model":        t.model,
			"smart_format": "true",
		}).
		Post(deepgramEndpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call Deepgram API: %w", err)
	}

	if httpResp.StatusCode() != 200 {
		return "", fmt.Errorf("Deepgram API error: status %d", httpResp.StatusCode())
	}

	if len(resp.Results.Channels) == 0 || len(resp.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}

	return resp.Results.Channels[0].Alternatives[0].Transcript, nil
}

func audioContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".flac":
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}
