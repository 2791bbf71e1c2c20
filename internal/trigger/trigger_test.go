package trigger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
)

type recordingRunner struct {
	mu        sync.Mutex
	processed []string
	errs      map[string]error
	active    int
	maxActive int
}

func (r *recordingRunner) Process(ctx context.Context, taskID string) error {
	r.mu.Lock()
	r.active++
	if r.active > r.maxActive {
		r.maxActive = r.active
	}
	r.processed = append(r.processed, taskID)
	err := r.errs[taskID]
	r.mu.Unlock()

	r.mu.Lock()
	r.active--
	r.mu.Unlock()
	return err
}

func envelope(bodies ...string) []byte {
	payload := `{"messages":[`
	for i, body := range bodies {
		if i > 0 {
			payload += ","
		}
		payload += `{"details":{"message":{"body":` + body + `}}}`
	}
	return []byte(payload + `]}`)
}

func quotedTaskBody(taskID string) string {
	return `"{\"task_id\":\"` + taskID + `\"}"`
}

func TestExtractTaskIDs(t *testing.T) {
	payload := envelope(quotedTaskBody("task-1"), quotedTaskBody("task-2"))

	taskIDs, skipped, err := ExtractTaskIDs(payload)
	if err != nil {
		t.Fatalf("ExtractTaskIDs failed: %v", err)
	}
	if skipped != 0 {
		t.Fatalf("unexpected skips: %d", skipped)
	}
	if len(taskIDs) != 2 || taskIDs[0] != "task-1" || taskIDs[1] != "task-2" {
		t.Fatalf("unexpected task ids: %v", taskIDs)
	}
}

func TestExtractTaskIDsSkipsMalformedBodies(t *testing.T) {
	payload := envelope(`"not json at all"`, quotedTaskBody("task-1"), `"{\"other\":true}"`)

	taskIDs, skipped, err := ExtractTaskIDs(payload)
	if err != nil {
		t.Fatalf("ExtractTaskIDs failed: %v", err)
	}
	if skipped != 2 {
		t.Fatalf("expected 2 skips, got %d", skipped)
	}
	if len(taskIDs) != 1 || taskIDs[0] != "task-1" {
		t.Fatalf("unexpected task ids: %v", taskIDs)
	}
}

func TestExtractTaskIDsRejectsNonEnvelope(t *testing.T) {
	if _, _, err := ExtractTaskIDs([]byte("not json")); err == nil {
		t.Fatalf("expected an error for a non-envelope payload")
	}
}

func TestHandleBatchProcessesAllMessages(t *testing.T) {
	runner := &recordingRunner{}
	consumer, err := NewConsumer(runner, 2, nil)
	if err != nil {
		t.Fatalf("NewConsumer failed: %v", err)
	}

	payload := envelope(quotedTaskBody("a"), quotedTaskBody("b"), quotedTaskBody("c"))
	if err := consumer.HandleBatch(context.Background(), payload); err != nil {
		t.Fatalf("HandleBatch failed: %v", err)
	}

	sort.Strings(runner.processed)
	if len(runner.processed) != 3 {
		t.Fatalf("expected 3 processed tasks, got %v", runner.processed)
	}
	if runner.maxActive > 2 {
		t.Fatalf("concurrency limit exceeded: %d", runner.maxActive)
	}
}

func TestHandleBatchIsolatesFailures(t *testing.T) {
	runner := &recordingRunner{errs: map[string]error{"b": errors.New("store write failed")}}
	consumer, err := NewConsumer(runner, 1, nil)
	if err != nil {
		t.Fatalf("NewConsumer failed: %v", err)
	}

	payload := envelope(quotedTaskBody("a"), quotedTaskBody("b"), quotedTaskBody("c"))
	batchErr := consumer.HandleBatch(context.Background(), payload)
	if batchErr == nil {
		t.Fatalf("expected the consumer error to surface")
	}

	if len(runner.processed) != 3 {
		t.Fatalf("a failing message must not block the rest: %v", runner.processed)
	}
}

func TestHandleBatchEmptyEnvelope(t *testing.T) {
	runner := &recordingRunner{}
	consumer, err := NewConsumer(runner, 4, nil)
	if err != nil {
		t.Fatalf("NewConsumer failed: %v", err)
	}

	if err := consumer.HandleBatch(context.Background(), []byte(`{"messages":[]}`)); err != nil {
		t.Fatalf("empty batches must succeed: %v", err)
	}
	if len(runner.processed) != 0 {
		t.Fatalf("nothing should be processed for an empty batch")
	}
}
