// Package testsupport provides shared helpers for package tests: temp-dir
// configs and a real task store backed by a throwaway database file.
package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"conspect/internal/config"
	"conspect/internal/queue"
)

// NewConfig returns a config rooted in a per-test temp directory.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(dir, "work")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Store.Path = filepath.Join(dir, "tasks.db")
	cfg.Cloud.APIKey = "test-key"
	cfg.Cloud.FolderID = "test-folder"
	cfg.Storage.Bucket = "test-bucket"
	return &cfg
}

// MustOpenStore opens a task store for the test and closes it on cleanup.
func MustOpenStore(t *testing.T, cfg *config.Config) *queue.Store {
	t.Helper()
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open task store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustNewTask inserts a queued task and returns it.
func MustNewTask(t *testing.T, store *queue.Store, title, videoLink string) *queue.Task {
	t.Helper()
	task, err := store.NewTask(context.Background(), title, videoLink)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}
