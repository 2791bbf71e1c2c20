package queue_test

import (
	"context"
	"strings"
	"testing"

	"conspect/internal/queue"
	"conspect/internal/testsupport"
)

func TestOpenAppliesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	task, err := store.NewTask(ctx, "Лекция", "https://disk.example.net/d/abc")
	if err != nil {
		t.Fatalf("NewTask failed: %v", err)
	}
	if task.TaskID == "" {
		t.Fatal("expected a task id to be assigned")
	}
	if task.Status != queue.StatusQueued {
		t.Fatalf("new tasks must start queued, got %s", task.Status)
	}
	if task.CreatedAt.IsZero() || task.UpdatedAt.IsZero() {
		t.Fatalf("timestamps must be set: %#v", task)
	}

	fetched, err := store.GetByID(ctx, task.TaskID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.Title != "Лекция" {
		t.Fatalf("unexpected fetched task: %#v", fetched)
	}
}

func TestNewTaskRequiresTitleAndLink(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.NewTask(ctx, "", "https://disk.example.net/d/abc"); err == nil {
		t.Fatal("expected error for missing title")
	}
	if _, err := store.NewTask(ctx, "t", "  "); err == nil {
		t.Fatal("expected error for missing link")
	}
}

func TestGetByIDMissingTask(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	task, err := store.GetByID(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if task != nil {
		t.Fatalf("missing tasks must return nil, got %#v", task)
	}
}

func TestStatusTransitions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	task := testsupport.MustNewTask(t, store, "Лекция", "https://disk.example.net/d/abc")

	if err := store.SetProcessing(ctx, task.TaskID); err != nil {
		t.Fatalf("SetProcessing failed: %v", err)
	}
	updated, _ := store.GetByID(ctx, task.TaskID)
	if updated.Status != queue.StatusProcessing {
		t.Fatalf("expected processing, got %s", updated.Status)
	}
	if !updated.UpdatedAt.After(task.UpdatedAt) && !updated.UpdatedAt.Equal(task.UpdatedAt) {
		t.Fatalf("updated_at must move forward")
	}

	if err := store.SetCompleted(ctx, task.TaskID, "pdfs/x.pdf"); err != nil {
		t.Fatalf("SetCompleted failed: %v", err)
	}
	updated, _ = store.GetByID(ctx, task.TaskID)
	if updated.Status != queue.StatusCompleted || updated.ArtifactKey != "pdfs/x.pdf" {
		t.Fatalf("unexpected completed task: %#v", updated)
	}
	if updated.ErrorMessage != "" {
		t.Fatalf("completing must clear any error message")
	}
}

func TestSetErrorClearsArtifactKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	task := testsupport.MustNewTask(t, store, "Лекция", "https://disk.example.net/d/abc")
	if err := store.SetProcessing(ctx, task.TaskID); err != nil {
		t.Fatalf("SetProcessing failed: %v", err)
	}
	if err := store.SetCompleted(ctx, task.TaskID, "pdfs/x.pdf"); err != nil {
		t.Fatalf("SetCompleted failed: %v", err)
	}
	if err := store.SetError(ctx, task.TaskID, "transcribe: operation: failed"); err != nil {
		t.Fatalf("SetError failed: %v", err)
	}

	updated, _ := store.GetByID(ctx, task.TaskID)
	if updated.Status != queue.StatusError {
		t.Fatalf("expected error status, got %s", updated.Status)
	}
	if updated.ArtifactKey != "" {
		t.Fatalf("error state must not carry an artifact key")
	}
	if !strings.Contains(updated.ErrorMessage, "transcribe") {
		t.Fatalf("unexpected error message: %q", updated.ErrorMessage)
	}
}

func TestSetCompletedRequiresKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	task := testsupport.MustNewTask(t, store, "Лекция", "https://disk.example.net/d/abc")

	if err := store.SetCompleted(context.Background(), task.TaskID, "  "); err == nil {
		t.Fatal("expected error for empty artifact key")
	}
}

func TestStatusWritesRequireExistingTask(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := store.SetProcessing(ctx, "missing"); err != queue.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.SetError(ctx, "missing", "boom"); err != queue.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.SetCompleted(ctx, "missing", "pdfs/x.pdf"); err != queue.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListFiltersAndOrders(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.MustNewTask(t, store, "A", "https://disk.example.net/d/a")
	testsupport.MustNewTask(t, store, "B", "https://disk.example.net/d/b")
	if err := store.SetProcessing(ctx, first.TaskID); err != nil {
		t.Fatalf("SetProcessing failed: %v", err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(all))
	}

	processing, err := store.List(ctx, queue.StatusProcessing)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(processing) != 1 || processing[0].TaskID != first.TaskID {
		t.Fatalf("unexpected filtered list: %#v", processing)
	}
}

func TestHealthCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a := testsupport.MustNewTask(t, store, "A", "https://disk.example.net/d/a")
	testsupport.MustNewTask(t, store, "B", "https://disk.example.net/d/b")
	if err := store.SetProcessing(ctx, a.TaskID); err != nil {
		t.Fatalf("SetProcessing failed: %v", err)
	}
	if err := store.SetError(ctx, a.TaskID, "boom"); err != nil {
		t.Fatalf("SetError failed: %v", err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 2 || health.Queued != 1 || health.Error != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}
}
