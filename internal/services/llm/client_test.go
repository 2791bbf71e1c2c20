package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"conspect/internal/config"
	"conspect/internal/services"
)

type scriptedDoer struct {
	responses []*http.Response
	err       error
	requests  []*http.Request
}

func (s *scriptedDoer) Do(req *http.Request) (*http.Response, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	index := len(s.requests) - 1
	if index >= len(s.responses) {
		index = len(s.responses) - 1
	}
	return s.responses[index], nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Cloud.APIKey = "test-key"
	cfg.Cloud.FolderID = "folder-1"
	cfg.LLM.CompletionURL = "https://llm.example.net/completion"
	return &cfg
}

func TestSummarizeReturnsCompletionText(t *testing.T) {
	doer := &scriptedDoer{responses: []*http.Response{
		jsonResponse(http.StatusOK,
			`{"result":{"alternatives":[{"message":{"role":"assistant","text":"# Конспект\n\nОсновные темы."},"status":"ALTERNATIVE_STATUS_FINAL"}]}}`),
	}}
	client := NewClient(testConfig(), WithHTTPClient(doer))

	notes, err := client.Summarize(context.Background(), "расшифровка лекции")
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if notes != "# Конспект\n\nОсновные темы." {
		t.Fatalf("unexpected notes: %q", notes)
	}

	req := doer.requests[0]
	if got := req.Header.Get("Authorization"); got != "Api-Key test-key" {
		t.Fatalf("unexpected auth header: %q", got)
	}
	if got := req.Header.Get("x-folder-id"); got != "folder-1" {
		t.Fatalf("unexpected folder header: %q", got)
	}
}

func TestSummarizeSendsModelURIAndTemperature(t *testing.T) {
	doer := &scriptedDoer{responses: []*http.Response{
		jsonResponse(http.StatusOK,
			`{"result":{"alternatives":[{"message":{"text":"ok"}}]}}`),
	}}
	cfg := testConfig()
	cfg.LLM.Temperature = 0.6
	client := NewClient(cfg, WithHTTPClient(doer))

	if _, err := client.Summarize(context.Background(), "текст"); err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	var payload completionRequest
	body, _ := io.ReadAll(doer.requests[0].Body)
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode request payload: %v", err)
	}
	if payload.ModelURI != "gpt://folder-1/yandexgpt" {
		t.Fatalf("unexpected model uri: %q", payload.ModelURI)
	}
	if payload.CompletionOptions.Temperature != 0.6 {
		t.Fatalf("unexpected temperature: %v", payload.CompletionOptions.Temperature)
	}
	if payload.CompletionOptions.Stream {
		t.Fatalf("streaming must be disabled")
	}
	if len(payload.Messages) != 2 || payload.Messages[1].Text != "текст" {
		t.Fatalf("unexpected messages: %+v", payload.Messages)
	}
}

func TestSummarizeRetriesOnServerError(t *testing.T) {
	doer := &scriptedDoer{responses: []*http.Response{
		jsonResponse(http.StatusServiceUnavailable, `{"error":"overloaded"}`),
		jsonResponse(http.StatusOK,
			`{"result":{"alternatives":[{"message":{"text":"после повтора"}}]}}`),
	}}
	var slept []time.Duration
	client := NewClient(testConfig(), WithHTTPClient(doer), WithSleeper(func(d time.Duration) {
		slept = append(slept, d)
	}))

	notes, err := client.Summarize(context.Background(), "текст")
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if notes != "после повтора" {
		t.Fatalf("unexpected notes: %q", notes)
	}
	if len(slept) != 1 {
		t.Fatalf("expected one backoff sleep, got %d", len(slept))
	}
}

func TestSummarizeDoesNotRetryClientErrors(t *testing.T) {
	doer := &scriptedDoer{responses: []*http.Response{
		jsonResponse(http.StatusUnauthorized, `{"error":"bad key"}`),
	}}
	client := NewClient(testConfig(), WithHTTPClient(doer), WithSleeper(func(time.Duration) {}))

	_, err := client.Summarize(context.Background(), "текст")
	if !errors.Is(err, services.ErrSummary) {
		t.Fatalf("expected ErrSummary, got %v", err)
	}
	if len(doer.requests) != 1 {
		t.Fatalf("client errors must not be retried, got %d requests", len(doer.requests))
	}
}

func TestSummarizeRequiresCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.Cloud.APIKey = ""
	client := NewClient(cfg, WithHTTPClient(&scriptedDoer{}))

	_, err := client.Summarize(context.Background(), "текст")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestSummarizeRejectsEmptyTranscript(t *testing.T) {
	client := NewClient(testConfig(), WithHTTPClient(&scriptedDoer{}))

	_, err := client.Summarize(context.Background(), "   ")
	if !errors.Is(err, services.ErrSummary) {
		t.Fatalf("expected ErrSummary, got %v", err)
	}
}
