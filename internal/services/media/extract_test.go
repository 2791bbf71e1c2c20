package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"conspect/internal/services"
)

// fakeFFmpeg writes a stub executable that copies a marker into the last
// argument, standing in for a real ffmpeg conversion.
func fakeFFmpeg(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}
	return path
}

func TestExtractAudioProducesOutput(t *testing.T) {
	dir := t.TempDir()
	videoPath := filepath.Join(dir, "video.mp4")
	audioPath := filepath.Join(dir, "audio.wav")
	if err := os.WriteFile(videoPath, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	extractor := NewExtractor(fakeFFmpeg(t, `for last; do :; done; printf audio > "$last"`))
	if err := extractor.ExtractAudio(context.Background(), videoPath, audioPath); err != nil {
		t.Fatalf("ExtractAudio failed: %v", err)
	}

	data, err := os.ReadFile(audioPath)
	if err != nil {
		t.Fatalf("read audio: %v", err)
	}
	if string(data) != "audio" {
		t.Fatalf("unexpected audio contents: %q", data)
	}
}

func TestExtractAudioFailsWhenSourceMissing(t *testing.T) {
	dir := t.TempDir()
	extractor := NewExtractor(fakeFFmpeg(t, "exit 0"))

	err := extractor.ExtractAudio(context.Background(), filepath.Join(dir, "missing.mp4"), filepath.Join(dir, "audio.wav"))
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestExtractAudioFailsOnNonZeroExit(t *testing.T) {
	dir := t.TempDir()
	videoPath := filepath.Join(dir, "video.mp4")
	if err := os.WriteFile(videoPath, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	extractor := NewExtractor(fakeFFmpeg(t, `echo "corrupt input" >&2; exit 1`))
	err := extractor.ExtractAudio(context.Background(), videoPath, filepath.Join(dir, "audio.wav"))
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestExtractAudioFailsOnEmptyOutput(t *testing.T) {
	dir := t.TempDir()
	videoPath := filepath.Join(dir, "video.mp4")
	if err := os.WriteFile(videoPath, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	extractor := NewExtractor(fakeFFmpeg(t, `for last; do :; done; : > "$last"`))
	err := extractor.ExtractAudio(context.Background(), videoPath, filepath.Join(dir, "audio.wav"))
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}
