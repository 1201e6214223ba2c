package index

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
)

// ffmpeg is shelled out to for frame sampling and audio track
// extraction. Decoding arbitrary video containers in pure Go is not
// practical, so the binary is a runtime requirement for media assets.

// extractFrames samples up to maxFrames still frames from a video at
// one frame per second and returns their paths in timeline order.
func extractFrames(ctx context.Context, videoPath, outDir string, maxFrames int) ([]string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create frame directory: %w", err)
	}

	pattern := filepath.Join(outDir, "frame_%05d.jpg")
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-vf", "fps=1",
		"-frames:v", fmt.Sprintf("%d", maxFrames),
		"-y",
		pattern,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg frame extraction failed: %s: %w", string(out), err)
	}

	frames, err := filepath.Glob(filepath.Join(outDir, "frame_*.jpg"))
	if err != nil {
		return nil, fmt.Errorf("failed to list frames: %w", err)
	}
	sort.Strings(frames)
	return frames, nil
}

// extractAudioTrack demuxes the audio track of a video into a mono
// 16kHz WAV suitable for transcription. Videos without an audio track
// produce an error, which callers treat as "nothing to transcribe".
func extractAudioTrack(ctx context.Context, videoPath, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create audio directory: %w", err)
	}

	wavPath := filepath.Join(outDir, "audio.wav")
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-y",
		wavPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("ffmpeg audio extraction failed: %s: %w", string(out), err)
	}

	return wavPath, nil
}
