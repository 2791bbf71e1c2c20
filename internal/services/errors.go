package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for the pipeline failure taxonomy. Stage capabilities tag
// their failures with one of these so the orchestrator can persist a status
// message that names both the failing stage and the underlying cause.
var (
	ErrInvalidLink   = errors.New("invalid link")
	ErrNotVideo      = errors.New("not a video")
	ErrTooLarge      = errors.New("source too large")
	ErrDownload      = errors.New("download failed")
	ErrExtraction    = errors.New("audio extraction failed")
	ErrTranscription = errors.New("transcription failed")
	ErrTimeout       = errors.New("timeout")
	ErrSummary       = errors.New("summary failed")
	ErrRender        = errors.New("render failed")
	ErrUpload        = errors.New("upload failed")
	ErrConfiguration = errors.New("configuration error")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Message extracts the human-readable portion of a stage error for
// persistence in the task record.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimSpace(err.Error())
}

// IsTimeout reports whether the error carries the timeout marker, which the
// pipeline must keep distinguishable from a provider-reported failure.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
