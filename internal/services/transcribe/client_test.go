package transcribe

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"conspect/internal/config"
	"conspect/internal/services"
)

type scriptedDoer struct {
	submitBody string
	pollBodies []string
	pollIndex  int
	requests   []*http.Request
}

func (s *scriptedDoer) Do(req *http.Request) (*http.Response, error) {
	s.requests = append(s.requests, req)
	body := s.submitBody
	if req.Method == http.MethodGet {
		if s.pollIndex < len(s.pollBodies) {
			body = s.pollBodies[s.pollIndex]
			s.pollIndex++
		} else if len(s.pollBodies) > 0 {
			body = s.pollBodies[len(s.pollBodies)-1]
		}
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}, nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Cloud.APIKey = "test-key"
	cfg.Transcribe.RecognizeURL = "https://stt.example.net/longRunningRecognize"
	cfg.Transcribe.OperationURL = "https://operation.example.net/operations"
	cfg.Transcribe.MaxWait = 300
	return &cfg
}

func TestTranscribeReturnsJoinedTranscript(t *testing.T) {
	doer := &scriptedDoer{
		submitBody: `{"id":"op-1","done":false}`,
		pollBodies: []string{
			`{"id":"op-1","done":false}`,
			`{"id":"op-1","done":true,"response":{"chunks":[
				{"channelTag":"1","alternatives":[{"text":"первая часть"}]},
				{"channelTag":"1","alternatives":[{"text":"вторая часть"}]}
			]}}`,
		},
	}
	client := NewClient(testConfig(), WithHTTPClient(doer), WithPollInterval(time.Millisecond))

	transcript, err := client.Transcribe(context.Background(), "https://bucket.example.net/temp/t1/audio.wav")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if transcript != "первая часть вторая часть" {
		t.Fatalf("unexpected transcript: %q", transcript)
	}

	submit := doer.requests[0]
	if submit.Method != http.MethodPost {
		t.Fatalf("first request should be the submission, got %s", submit.Method)
	}
	if got := submit.Header.Get("Authorization"); got != "Api-Key test-key" {
		t.Fatalf("unexpected auth header: %q", got)
	}
}

func TestTranscribeIgnoresSecondaryChannels(t *testing.T) {
	doer := &scriptedDoer{
		submitBody: `{"id":"op-1","done":false}`,
		pollBodies: []string{
			`{"id":"op-1","done":true,"response":{"chunks":[
				{"channelTag":"1","alternatives":[{"text":"основной канал"}]},
				{"channelTag":"2","alternatives":[{"text":"дубликат"}]}
			]}}`,
		},
	}
	client := NewClient(testConfig(), WithHTTPClient(doer), WithPollInterval(time.Millisecond))

	transcript, err := client.Transcribe(context.Background(), "uri")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if transcript != "основной канал" {
		t.Fatalf("unexpected transcript: %q", transcript)
	}
}

func TestTranscribeReportsProviderFailure(t *testing.T) {
	doer := &scriptedDoer{
		submitBody: `{"id":"op-1","done":false}`,
		pollBodies: []string{
			`{"id":"op-1","done":true,"error":{"code":3,"message":"audio decoding failed"}}`,
		},
	}
	client := NewClient(testConfig(), WithHTTPClient(doer), WithPollInterval(time.Millisecond))

	_, err := client.Transcribe(context.Background(), "uri")
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected ErrTranscription, got %v", err)
	}
	if services.IsTimeout(err) {
		t.Fatalf("provider failure must not look like a timeout: %v", err)
	}
	if !strings.Contains(err.Error(), "audio decoding failed") {
		t.Fatalf("error should carry the provider message: %v", err)
	}
}

func TestTranscribeTimesOutWhenBudgetExhausted(t *testing.T) {
	doer := &scriptedDoer{
		submitBody: `{"id":"op-1","done":false}`,
		pollBodies: []string{`{"id":"op-1","done":false}`},
	}

	// Step the clock past the budget after the first poll.
	current := time.Now()
	clock := func() time.Time {
		current = current.Add(200 * time.Second)
		return current
	}

	client := NewClient(testConfig(), WithHTTPClient(doer), WithPollInterval(time.Millisecond), WithClock(clock))

	_, err := client.Transcribe(context.Background(), "uri")
	if !services.IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if errors.Is(err, services.ErrTranscription) {
		t.Fatalf("timeout must stay distinct from a provider failure: %v", err)
	}
}

func TestTranscribeRequiresAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.Cloud.APIKey = ""
	client := NewClient(cfg, WithHTTPClient(&scriptedDoer{}))

	_, err := client.Transcribe(context.Background(), "uri")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestTranscribeFailsWithoutOperationID(t *testing.T) {
	doer := &scriptedDoer{submitBody: `{"done":false}`}
	client := NewClient(testConfig(), WithHTTPClient(doer))

	_, err := client.Transcribe(context.Background(), "uri")
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected ErrTranscription, got %v", err)
	}
}
