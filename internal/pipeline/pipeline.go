package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"conspect/internal/logging"
	"conspect/internal/queue"
	"conspect/internal/services"
	"conspect/internal/services/disklink"
	"conspect/internal/services/storage"
	"conspect/internal/workspace"
)

// LinkResolver resolves a public share link into source metadata and a
// direct download URL.
type LinkResolver interface {
	Resolve(ctx context.Context, link string) (disklink.Metadata, error)
	DownloadURL(ctx context.Context, link string) (string, error)
}

// Downloader streams a source file to local disk.
type Downloader interface {
	Fetch(ctx context.Context, sourceURL, destPath string) (int64, error)
}

// AudioExtractor pulls a speech-ready audio track out of a video file.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoPath, audioPath string) error
}

// Transcriber converts uploaded audio into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURI string) (string, error)
}

// Summarizer turns a transcript into structured lecture notes.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// DocumentRenderer writes lecture notes into a PDF file.
type DocumentRenderer interface {
	Render(title, body, outputPath string) error
}

// ArtifactStore persists pipeline artifacts in the shared bucket.
type ArtifactStore interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
	Remove(ctx context.Context, key string) error
}

// Deps collects the capabilities a pipeline run needs.
type Deps struct {
	Store      *queue.Store
	Workspaces *workspace.Manager
	Resolver   LinkResolver
	Downloader Downloader
	Extractor  AudioExtractor
	Transcribe Transcriber
	Summarize  Summarizer
	Renderer   DocumentRenderer
	Artifacts  ArtifactStore
	Logger     *slog.Logger
}

// Pipeline runs a queued task through the full conversion: resolve, download,
// extract, transcribe, summarize, render, upload.
type Pipeline struct {
	deps   Deps
	logger *slog.Logger
}

// New constructs a pipeline from its dependencies.
func New(deps Deps) (*Pipeline, error) {
	switch {
	case deps.Store == nil:
		return nil, fmt.Errorf("pipeline: task store is required")
	case deps.Workspaces == nil:
		return nil, fmt.Errorf("pipeline: workspace manager is required")
	case deps.Resolver == nil:
		return nil, fmt.Errorf("pipeline: link resolver is required")
	case deps.Downloader == nil:
		return nil, fmt.Errorf("pipeline: downloader is required")
	case deps.Extractor == nil:
		return nil, fmt.Errorf("pipeline: audio extractor is required")
	case deps.Transcribe == nil:
		return nil, fmt.Errorf("pipeline: transcriber is required")
	case deps.Summarize == nil:
		return nil, fmt.Errorf("pipeline: summarizer is required")
	case deps.Renderer == nil:
		return nil, fmt.Errorf("pipeline: renderer is required")
	case deps.Artifacts == nil:
		return nil, fmt.Errorf("pipeline: artifact store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{deps: deps, logger: logger.With(logging.String(logging.FieldComponent, "pipeline"))}, nil
}

// Process runs one task to a terminal state.
//
// Unknown task ids and tasks already in a terminal state are no-ops, so
// redelivered triggers never rerun completed work. Stage failures are
// absorbed into the task record as a terminal error status; only a store
// write failure propagates to the caller.
func (p *Pipeline) Process(ctx context.Context, taskID string) (err error) {
	ctx = services.WithTaskID(ctx, taskID)
	logger := logging.WithContext(ctx, p.logger)

	task, getErr := p.deps.Store.GetByID(ctx, taskID)
	if getErr != nil {
		return fmt.Errorf("load task %s: %w", taskID, getErr)
	}
	if task == nil {
		logger.Warn("trigger for unknown task",
			logging.String(logging.FieldEventType, "task_unknown"))
		return nil
	}
	if task.Status.IsTerminal() {
		logger.Info("task already finished, skipping",
			logging.String("status", string(task.Status)),
			logging.String(logging.FieldEventType, "task_skipped"))
		return nil
	}

	if err := p.deps.Store.SetProcessing(ctx, taskID); err != nil {
		return fmt.Errorf("mark task %s processing: %w", taskID, err)
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("pipeline run panicked",
				logging.Any("panic", recovered),
				logging.String(logging.FieldEventType, "pipeline_panic"))
			err = p.fail(ctx, logger, taskID, services.Wrap(services.ErrTransient, "pipeline", "run",
				fmt.Sprintf("unexpected failure: %v", recovered), nil))
		}
	}()

	started := time.Now()
	logger.Info("task processing started",
		logging.String("video_link", task.VideoLink),
		logging.String(logging.FieldEventType, "task_started"))

	artifactKey, runErr := p.run(ctx, logger, task)
	if runErr != nil {
		return p.fail(ctx, logger, taskID, runErr)
	}

	if err := p.deps.Store.SetCompleted(ctx, taskID, artifactKey); err != nil {
		return fmt.Errorf("mark task %s completed: %w", taskID, err)
	}
	logger.Info("task completed",
		logging.String("artifact_key", artifactKey),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "task_completed"))
	return nil
}

// run executes the stage sequence and returns the final artifact key. The
// workspace is released on every path.
func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, task *queue.Task) (string, error) {
	taskID := task.TaskID

	meta, err := p.deps.Resolver.Resolve(services.WithStage(ctx, "validate"), task.VideoLink)
	if err != nil {
		return "", err
	}
	logger.Info("source accepted",
		logging.String(logging.FieldStage, "validate"),
		logging.String("source_name", meta.Name),
		logging.Int64("source_bytes", meta.Size))

	ws, err := p.deps.Workspaces.Allocate(taskID, meta.Size)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "download", "workspace", "could not allocate workspace", err)
	}
	defer func() {
		if releaseErr := p.deps.Workspaces.Release(taskID); releaseErr != nil {
			logger.Warn("workspace release failed",
				logging.Error(releaseErr),
				logging.String(logging.FieldEventType, "workspace_release_failed"))
		}
	}()

	downloadCtx := services.WithStage(ctx, "download")
	downloadURL, err := p.deps.Resolver.DownloadURL(downloadCtx, task.VideoLink)
	if err != nil {
		return "", err
	}
	written, err := p.deps.Downloader.Fetch(downloadCtx, downloadURL, ws.VideoPath)
	if err != nil {
		return "", err
	}
	logger.Info("source downloaded",
		logging.String(logging.FieldStage, "download"),
		logging.Int64("bytes", written))

	if err := p.deps.Extractor.ExtractAudio(services.WithStage(ctx, "extract"), ws.VideoPath, ws.AudioPath); err != nil {
		return "", err
	}
	// The video is not needed past extraction; drop it before the audio
	// upload so the workspace never holds both large files.
	if err := os.Remove(ws.VideoPath); err != nil {
		logger.Warn("could not remove downloaded video",
			logging.Error(err),
			logging.String(logging.FieldStage, "extract"))
	}

	audioKey := storage.AudioKey(taskID)
	audioURI, err := p.deps.Artifacts.Upload(services.WithStage(ctx, "upload"), ws.AudioPath, audioKey)
	if err != nil {
		return "", err
	}
	logger.Info("audio uploaded",
		logging.String(logging.FieldStage, "upload"),
		logging.String("artifact_key", audioKey))

	transcript, err := p.deps.Transcribe.Transcribe(services.WithStage(ctx, "transcribe"), audioURI)
	if err != nil {
		return "", err
	}
	if removeErr := p.deps.Artifacts.Remove(ctx, audioKey); removeErr != nil {
		logger.Warn("could not remove intermediate audio object",
			logging.Error(removeErr),
			logging.String("artifact_key", audioKey))
	}
	logger.Info("transcription finished",
		logging.String(logging.FieldStage, "transcribe"),
		logging.Int("transcript_chars", len(transcript)))

	notes, err := p.deps.Summarize.Summarize(services.WithStage(ctx, "summarize"), transcript)
	if err != nil {
		return "", err
	}

	if err := p.deps.Renderer.Render(task.Title, notes, ws.DocumentPath); err != nil {
		return "", err
	}

	documentKey := storage.DocumentKey(taskID)
	if _, err := p.deps.Artifacts.Upload(services.WithStage(ctx, "upload"), ws.DocumentPath, documentKey); err != nil {
		return "", err
	}

	return documentKey, nil
}

// fail records a terminal error status. Only a store write failure is
// returned to the caller.
func (p *Pipeline) fail(ctx context.Context, logger *slog.Logger, taskID string, stageErr error) error {
	message := services.Message(stageErr)
	logger.Error("task failed",
		logging.Error(stageErr),
		logging.String("error_message", message),
		logging.Bool("timed_out", services.IsTimeout(stageErr)),
		logging.String(logging.FieldEventType, "task_failed"))

	if err := p.deps.Store.SetError(ctx, taskID, message); err != nil {
		return fmt.Errorf("mark task %s failed: %w", taskID, err)
	}
	return nil
}
