// Package media extracts speech-ready audio tracks from downloaded video
// files using ffmpeg.
package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"conspect/internal/services"
)

// Extractor runs ffmpeg to pull a mono 16 kHz PCM track out of a video file.
// The output format is fixed because the speech recognizer expects LPCM at
// that rate.
type Extractor struct {
	ffmpegBin string
}

// NewExtractor constructs an extractor using the given ffmpeg binary name or
// path.
func NewExtractor(ffmpegBin string) *Extractor {
	if strings.TrimSpace(ffmpegBin) == "" {
		ffmpegBin = "ffmpeg"
	}
	return &Extractor{ffmpegBin: ffmpegBin}
}

// ExtractAudio converts videoPath into a mono 16 kHz WAV at audioPath.
func (e *Extractor) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	if _, err := os.Stat(videoPath); err != nil {
		return services.Wrap(services.ErrExtraction, "extract", "ffmpeg", "source video missing", err)
	}

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		audioPath,
	}

	cmd := exec.CommandContext(ctx, e.ffmpegBin, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = err.Error()
		}
		return services.Wrap(services.ErrExtraction, "extract", "ffmpeg",
			fmt.Sprintf("conversion failed: %s", detail), err)
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		return services.Wrap(services.ErrExtraction, "extract", "ffmpeg", "output file missing", err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrExtraction, "extract", "ffmpeg", "output file is empty", nil)
	}

	return nil
}
