package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"conspect/internal/config"
	"conspect/internal/services"
)

// HTTPDoer abstracts the HTTP client so tests can inject fakes.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client drives the long-running speech recognition API: one submission
// request followed by operation polling until the result arrives or the wait
// budget runs out.
type Client struct {
	recognizeURL string
	operationURL string
	apiKey       string
	language     string
	model        string
	pollInterval time.Duration
	maxWait      time.Duration
	httpClient   HTTPDoer

	// now is swappable in tests to step the poll budget forward.
	now func() time.Time
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(httpClient HTTPDoer) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithPollInterval overrides the configured poll interval.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// WithClock overrides the wall clock used for the wait budget.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient constructs a transcription client from configuration.
func NewClient(cfg *config.Config, opts ...Option) *Client {
	client := &Client{
		recognizeURL: strings.TrimSpace(cfg.Transcribe.RecognizeURL),
		operationURL: strings.TrimRight(strings.TrimSpace(cfg.Transcribe.OperationURL), "/"),
		apiKey:       strings.TrimSpace(cfg.Cloud.APIKey),
		language:     cfg.Transcribe.Language,
		model:        cfg.Transcribe.Model,
		pollInterval: time.Duration(cfg.Transcribe.PollInterval) * time.Second,
		maxWait:      time.Duration(cfg.Transcribe.MaxWait) * time.Second,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		now:          time.Now,
	}
	if client.pollInterval <= 0 {
		client.pollInterval = 5 * time.Second
	}
	if client.maxWait <= 0 {
		client.maxWait = 300 * time.Second
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type recognizeRequest struct {
	Config recognizeConfig `json:"config"`
	Audio  recognizeAudio  `json:"audio"`
}

type recognizeConfig struct {
	Specification recognizeSpecification `json:"specification"`
}

type recognizeSpecification struct {
	LanguageCode      string `json:"languageCode"`
	Model             string `json:"model"`
	AudioEncoding     string `json:"audioEncoding"`
	SampleRateHertz   int    `json:"sampleRateHertz"`
	AudioChannelCount int    `json:"audioChannelCount"`
}

type recognizeAudio struct {
	URI string `json:"uri"`
}

type operationResponse struct {
	ID       string          `json:"id"`
	Done     bool            `json:"done"`
	Error    *operationError `json:"error"`
	Response *operationResult
}

type operationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type operationResult struct {
	Chunks []resultChunk `json:"chunks"`
}

type resultChunk struct {
	ChannelTag   string `json:"channelTag"`
	Alternatives []struct {
		Text string `json:"text"`
	} `json:"alternatives"`
}

// UnmarshalJSON tolerates both "response" and "result" envelope keys for the
// finished operation payload.
func (o *operationResponse) UnmarshalJSON(data []byte) error {
	type alias struct {
		ID       string           `json:"id"`
		Done     bool             `json:"done"`
		Error    *operationError  `json:"error"`
		Response *operationResult `json:"response"`
		Result   *operationResult `json:"result"`
	}
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	o.ID = decoded.ID
	o.Done = decoded.Done
	o.Error = decoded.Error
	o.Response = decoded.Response
	if o.Response == nil {
		o.Response = decoded.Result
	}
	return nil
}

// Transcribe submits audioURI for recognition and polls the operation until
// it finishes. An exhausted wait budget is reported as a timeout, kept
// distinct from a provider-reported recognition failure.
func (c *Client) Transcribe(ctx context.Context, audioURI string) (string, error) {
	if c.apiKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "transcribe", "submit", "api key is not configured", nil)
	}

	operationID, err := c.submit(ctx, audioURI)
	if err != nil {
		return "", err
	}

	deadline := c.now().Add(c.maxWait)
	for {
		op, err := c.pollOnce(ctx, operationID)
		if err != nil {
			return "", err
		}
		if op.Done {
			if op.Error != nil {
				return "", services.Wrap(services.ErrTranscription, "transcribe", "operation",
					fmt.Sprintf("recognition failed: %s", op.Error.Message), nil)
			}
			return joinChunks(op.Response), nil
		}

		if !c.now().Add(c.pollInterval).Before(deadline) {
			return "", services.Wrap(services.ErrTimeout, "transcribe", "operation",
				fmt.Sprintf("recognition did not finish within %s", c.maxWait), nil)
		}

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", services.Wrap(services.ErrTranscription, "transcribe", "operation", "cancelled", ctx.Err())
		case <-timer.C:
		}
	}
}

func (c *Client) submit(ctx context.Context, audioURI string) (string, error) {
	payload := recognizeRequest{
		Config: recognizeConfig{
			Specification: recognizeSpecification{
				LanguageCode:      c.language,
				Model:             c.model,
				AudioEncoding:     "LINEAR16_PCM",
				SampleRateHertz:   16000,
				AudioChannelCount: 1,
			},
		},
		Audio: recognizeAudio{URI: audioURI},
	}

	body, err := c.postJSON(ctx, c.recognizeURL, payload)
	if err != nil {
		return "", services.Wrap(services.ErrTranscription, "transcribe", "submit", "submission failed", err)
	}

	var op operationResponse
	if err := json.Unmarshal(body, &op); err != nil {
		return "", services.Wrap(services.ErrTranscription, "transcribe", "submit", "decode operation", err)
	}
	if strings.TrimSpace(op.ID) == "" {
		return "", services.Wrap(services.ErrTranscription, "transcribe", "submit", "no operation id in response", nil)
	}
	return op.ID, nil
}

func (c *Client) pollOnce(ctx context.Context, operationID string) (*operationResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.operationURL+"/"+operationID, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrTranscription, "transcribe", "poll", "build request", err)
	}
	req.Header.Set("Authorization", "Api-Key "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTranscription, "transcribe", "poll", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrTranscription, "transcribe", "poll", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrTranscription, "transcribe", "poll",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var op operationResponse
	if err := json.Unmarshal(body, &op); err != nil {
		return nil, services.Wrap(services.ErrTranscription, "transcribe", "poll", "decode operation", err)
	}
	return &op, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Api-Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// joinChunks assembles the final transcript from recognized chunks, keeping
// only the first channel so stereo duplicates do not double the text.
func joinChunks(result *operationResult) string {
	if result == nil {
		return ""
	}

	chunks := make([]resultChunk, len(result.Chunks))
	copy(chunks, result.Chunks)
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].ChannelTag < chunks[j].ChannelTag
	})

	var parts []string
	for _, chunk := range chunks {
		if chunk.ChannelTag != "" && chunk.ChannelTag != "1" {
			continue
		}
		for _, alt := range chunk.Alternatives {
			if text := strings.TrimSpace(alt.Text); text != "" {
				parts = append(parts, text)
				break
			}
		}
	}
	return strings.Join(parts, " ")
}
