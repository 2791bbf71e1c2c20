// Command conspectd runs the processing daemon: it serves the queue trigger
// endpoint and the task API, and drives queued tasks through the pipeline.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"conspect/internal/api"
	"conspect/internal/config"
	"conspect/internal/daemon"
	"conspect/internal/logging"
	"conspect/internal/pipeline"
	"conspect/internal/queue"
	"conspect/internal/render"
	"conspect/internal/services/disklink"
	"conspect/internal/services/fetch"
	"conspect/internal/services/llm"
	"conspect/internal/services/media"
	"conspect/internal/services/storage"
	"conspect/internal/services/transcribe"
	"conspect/internal/trigger"
	"conspect/internal/workspace"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, resolvedPath, found, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "conspectd.log")},
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	if found {
		logger.Info("config loaded", logging.String("path", resolvedPath))
	} else {
		logger.Warn("config file not found, using defaults", logging.String("path", resolvedPath))
	}

	lock, err := daemon.AcquireLock(filepath.Join(filepath.Dir(cfg.Store.Path), "conspectd.lock"))
	if err != nil {
		logger.Error("daemon lock", logging.Error(err))
		return
	}
	defer func() {
		_ = lock.Release()
	}()

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open task store", logging.Error(err))
		return
	}
	defer store.Close()

	workspaces, err := workspace.NewManager(cfg.Paths.WorkDir)
	if err != nil {
		logger.Error("init workspace manager", logging.Error(err))
		return
	}
	maxAge := time.Duration(cfg.Workflow.WorkspaceMaxAgeHours) * time.Hour
	if maxAge > 0 {
		workspaces.CleanStale(maxAge, logger)
	}

	artifacts, err := storage.NewClient(cfg)
	if err != nil {
		logger.Error("init artifact store", logging.Error(err))
		return
	}

	pipe, err := pipeline.New(pipeline.Deps{
		Store:      store,
		Workspaces: workspaces,
		Resolver:   disklink.NewClient(cfg, nil),
		Downloader: fetch.NewDownloader(nil),
		Extractor:  media.NewExtractor(cfg.FFmpegBinary()),
		Transcribe: transcribe.NewClient(cfg),
		Summarize:  llm.NewClient(cfg),
		Renderer:   render.NewRenderer(cfg),
		Artifacts:  artifacts,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("build pipeline", logging.Error(err))
		return
	}

	consumer, err := trigger.NewConsumer(pipe, cfg.Workflow.TriggerConcurrency, logger)
	if err != nil {
		logger.Error("build trigger consumer", logging.Error(err))
		return
	}

	tasks, err := api.NewService(store, artifacts)
	if err != nil {
		logger.Error("build task service", logging.Error(err))
		return
	}

	dispatch := func(taskID string) {
		go func() {
			if err := pipe.Process(ctx, taskID); err != nil {
				logger.Error("dispatched task failed at the store",
					logging.String(logging.FieldTaskID, taskID),
					logging.Error(err))
			}
		}()
	}

	server, err := daemon.NewServer(cfg, store, tasks, consumer, dispatch, logger)
	if err != nil {
		logger.Error("build api server", logging.Error(err))
		return
	}
	if err := server.Start(ctx); err != nil {
		logger.Error("start api server", logging.Error(err))
		return
	}

	<-ctx.Done()
	server.Stop()
	logger.Info("conspectd shutting down")
}
