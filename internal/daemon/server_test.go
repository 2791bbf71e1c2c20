package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"conspect/internal/api"
	"conspect/internal/queue"
	"conspect/internal/testsupport"
	"conspect/internal/trigger"
)

type recordingRunner struct {
	mu        sync.Mutex
	processed []string
}

func (r *recordingRunner) Process(ctx context.Context, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed = append(r.processed, taskID)
	return nil
}

type testHarness struct {
	server *Server
	store  *queue.Store
	runner *recordingRunner

	dispatchMu sync.Mutex
	dispatched []string
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	tasks, err := api.NewService(store, nil)
	if err != nil {
		t.Fatalf("task service: %v", err)
	}

	h := &testHarness{store: store, runner: &recordingRunner{}}
	consumer, err := trigger.NewConsumer(h.runner, 2, nil)
	if err != nil {
		t.Fatalf("trigger consumer: %v", err)
	}

	h.server, err = NewServer(cfg, store, tasks, consumer, func(taskID string) {
		h.dispatchMu.Lock()
		h.dispatched = append(h.dispatched, taskID)
		h.dispatchMu.Unlock()
	}, nil)
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	return h
}

func (h *testHarness) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.server.Router().ServeHTTP(rec, req)
	return rec
}

func TestCreateTaskEndpoint(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/tasks", `{"title":"Лекция","video_link":"https://disk.example.net/d/abc"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	var view api.TaskView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.TaskID == "" || view.Status != string(queue.StatusQueued) {
		t.Fatalf("unexpected task view: %+v", view)
	}
	if len(h.dispatched) != 1 || h.dispatched[0] != view.TaskID {
		t.Fatalf("new tasks must be dispatched: %v", h.dispatched)
	}
}

func TestCreateTaskRequiresLink(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/tasks", `{"title":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTriggerEndpointAcknowledgesBatches(t *testing.T) {
	h := newHarness(t)
	task := testsupport.MustNewTask(t, h.store, "Лекция", "https://disk.example.net/d/abc")

	payload := `{"messages":[{"details":{"message":{"body":"{\"task_id\":\"` + task.TaskID + `\"}"}}}]}`
	rec := h.do(t, http.MethodPost, "/trigger", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("trigger must acknowledge, got %d", rec.Code)
	}
	if len(h.runner.processed) != 1 || h.runner.processed[0] != task.TaskID {
		t.Fatalf("unexpected processed tasks: %v", h.runner.processed)
	}
}

func TestTriggerEndpointAcknowledgesMalformedPayload(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/trigger", "not json")
	if rec.Code != http.StatusOK {
		t.Fatalf("trigger must not provoke redelivery, got %d", rec.Code)
	}
	if len(h.runner.processed) != 0 {
		t.Fatalf("nothing should run for a malformed payload")
	}
}

func TestGetTaskEndpoint(t *testing.T) {
	h := newHarness(t)
	task := testsupport.MustNewTask(t, h.store, "Лекция", "https://disk.example.net/d/abc")

	rec := h.do(t, http.MethodGet, "/api/tasks/"+task.TaskID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}

	rec = h.do(t, http.MethodGet, "/api/tasks/unknown-id", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown task, got %d", rec.Code)
	}
}

func TestListTasksEndpointFiltersByStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := testsupport.MustNewTask(t, h.store, "A", "https://disk.example.net/d/a")
	testsupport.MustNewTask(t, h.store, "B", "https://disk.example.net/d/b")
	if err := h.store.SetProcessing(ctx, first.TaskID); err != nil {
		t.Fatalf("set processing: %v", err)
	}

	rec := h.do(t, http.MethodGet, "/api/tasks?status=queued", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var payload struct {
		Tasks []api.TaskView `json:"tasks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Tasks) != 1 || payload.Tasks[0].Title != "B" {
		t.Fatalf("unexpected filtered tasks: %+v", payload.Tasks)
	}

	rec = h.do(t, http.MethodGet, "/api/tasks?status=bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown status, got %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := newHarness(t)
	testsupport.MustNewTask(t, h.store, "A", "https://disk.example.net/d/a")

	rec := h.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Status string `json:"status"`
		Tasks  struct {
			Total  int `json:"Total"`
			Queued int `json:"Queued"`
		} `json:"tasks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Status != "ok" || payload.Tasks.Total != 1 {
		t.Fatalf("unexpected health payload: %s", rec.Body.String())
	}
}

func TestAcquireLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conspectd.lock")

	lock, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	defer func() {
		_ = lock.Release()
	}()

	if _, err := AcquireLock(path); err == nil {
		t.Fatalf("second acquire should fail while the lock is held")
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	second, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
	_ = second.Release()
}
