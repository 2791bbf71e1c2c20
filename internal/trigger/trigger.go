// Package trigger consumes queue push batches: it unwraps the delivery
// envelope, extracts task ids, and dispatches each to the pipeline with
// bounded concurrency. Messages are isolated from each other so one bad
// delivery never blocks the rest of the batch.
package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"conspect/internal/logging"
)

// Runner processes a single task to a terminal state.
type Runner interface {
	Process(ctx context.Context, taskID string) error
}

type batchEnvelope struct {
	Messages []struct {
		Details struct {
			Message struct {
				Body string `json:"body"`
			} `json:"message"`
		} `json:"details"`
	} `json:"messages"`
}

type messageBody struct {
	TaskID string `json:"task_id"`
}

// Consumer dispatches trigger batches to the pipeline.
type Consumer struct {
	runner      Runner
	concurrency int
	logger      *slog.Logger
}

// NewConsumer constructs a batch consumer. Concurrency below one is clamped
// to serial processing.
func NewConsumer(runner Runner, concurrency int, logger *slog.Logger) (*Consumer, error) {
	if runner == nil {
		return nil, errors.New("trigger: runner is required")
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Consumer{
		runner:      runner,
		concurrency: concurrency,
		logger:      logger.With(logging.String(logging.FieldComponent, "trigger")),
	}, nil
}

// ExtractTaskIDs unwraps a delivery envelope into the task ids it carries.
// Messages with an unparseable body are skipped and reported via the skipped
// count; a payload that is not an envelope at all is an error.
func ExtractTaskIDs(payload []byte) (taskIDs []string, skipped int, err error) {
	var envelope batchEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, 0, fmt.Errorf("decode trigger envelope: %w", err)
	}

	for _, msg := range envelope.Messages {
		var body messageBody
		if err := json.Unmarshal([]byte(msg.Details.Message.Body), &body); err != nil {
			skipped++
			continue
		}
		taskID := strings.TrimSpace(body.TaskID)
		if taskID == "" {
			skipped++
			continue
		}
		taskIDs = append(taskIDs, taskID)
	}
	return taskIDs, skipped, nil
}

// HandleBatch processes every task id in the payload. Pipeline-absorbed
// failures (terminal error statuses) do not surface here; only consumer-level
// errors such as store write failures are returned, joined across the batch.
func (c *Consumer) HandleBatch(ctx context.Context, payload []byte) error {
	taskIDs, skipped, err := ExtractTaskIDs(payload)
	if err != nil {
		c.logger.Error("rejected malformed trigger payload",
			logging.Error(err),
			logging.String(logging.FieldEventType, "trigger_rejected"))
		return err
	}
	if skipped > 0 {
		c.logger.Warn("skipped undecodable trigger messages",
			logging.Int("skipped", skipped),
			logging.String(logging.FieldEventType, "trigger_skipped"))
	}
	if len(taskIDs) == 0 {
		return nil
	}

	c.logger.Info("trigger batch received",
		logging.Int("tasks", len(taskIDs)),
		logging.String(logging.FieldEventType, "trigger_batch"))

	var (
		wg        sync.WaitGroup
		semaphore = make(chan struct{}, c.concurrency)
		mu        sync.Mutex
		runErrs   []error
	)

	for _, taskID := range taskIDs {
		wg.Add(1)
		go func(taskID string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if err := c.runner.Process(ctx, taskID); err != nil {
				c.logger.Error("trigger processing failed",
					logging.String(logging.FieldTaskID, taskID),
					logging.Error(err),
					logging.String(logging.FieldEventType, "trigger_failed"))
				mu.Lock()
				runErrs = append(runErrs, fmt.Errorf("task %s: %w", taskID, err))
				mu.Unlock()
			}
		}(taskID)
	}
	wg.Wait()

	return errors.Join(runErrs...)
}
