package disklink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"conspect/internal/config"
	"conspect/internal/services"
)

// HTTPDoer abstracts the HTTP client so tests can inject fakes.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Metadata describes a publicly shared source file.
type Metadata struct {
	Name     string
	MimeType string
	Size     int64
}

// Client resolves public share links against the disk API: it fetches source
// metadata for acceptance checks and exchanges the link for a direct download
// URL.
type Client struct {
	baseURL        string
	maxSourceBytes int64
	httpClient     HTTPDoer
}

// NewClient constructs a resolver client from configuration. Pass a nil
// httpClient to use a default client with the configured request timeout.
func NewClient(cfg *config.Config, httpClient HTTPDoer) *Client {
	if httpClient == nil {
		timeout := time.Duration(cfg.Resolver.RequestTimeout) * time.Second
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.Resolver.BaseURL, "/"),
		maxSourceBytes: cfg.Resolver.MaxSourceBytes,
		httpClient:     httpClient,
	}
}

type resourceResponse struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Type     string `json:"type"`
}

type downloadResponse struct {
	Href string `json:"href"`
}

// Resolve fetches metadata for the shared link and applies the acceptance
// policy: the target must be a video file and must not exceed the configured
// size cap. Policy violations are reported before any download starts.
func (c *Client) Resolve(ctx context.Context, link string) (Metadata, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return Metadata{}, services.Wrap(services.ErrInvalidLink, "validate", "resolve", "empty link", nil)
	}

	var resource resourceResponse
	if err := c.getJSON(ctx, c.resourceURL(link, ""), &resource); err != nil {
		return Metadata{}, services.Wrap(services.ErrInvalidLink, "validate", "resolve", "link is not accessible", err)
	}

	meta := Metadata{Name: resource.Name, MimeType: resource.MimeType, Size: resource.Size}

	if !strings.HasPrefix(strings.ToLower(resource.MimeType), "video/") {
		return meta, services.Wrap(services.ErrNotVideo, "validate", "resolve",
			fmt.Sprintf("shared file is %q, expected a video", resource.MimeType), nil)
	}
	if c.maxSourceBytes > 0 && resource.Size > c.maxSourceBytes {
		return meta, services.Wrap(services.ErrTooLarge, "validate", "resolve",
			fmt.Sprintf("source is %d bytes, limit is %d", resource.Size, c.maxSourceBytes), nil)
	}

	return meta, nil
}

// DownloadURL exchanges a public share link for a direct download URL.
func (c *Client) DownloadURL(ctx context.Context, link string) (string, error) {
	var download downloadResponse
	if err := c.getJSON(ctx, c.resourceURL(link, "/download"), &download); err != nil {
		return "", services.Wrap(services.ErrDownload, "download", "resolve url", "could not obtain download url", err)
	}
	if strings.TrimSpace(download.Href) == "" {
		return "", services.Wrap(services.ErrDownload, "download", "resolve url", "empty download url in response", nil)
	}
	return download.Href, nil
}

func (c *Client) resourceURL(link, suffix string) string {
	return c.baseURL + "/v1/disk/public/resources" + suffix + "?public_key=" + url.QueryEscape(link)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
