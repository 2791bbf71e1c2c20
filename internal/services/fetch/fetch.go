// Package fetch streams remote files to local disk without buffering them in
// memory.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"conspect/internal/services"
)

// HTTPDoer abstracts the HTTP client so tests can inject fakes.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Downloader streams source files to the workspace.
type Downloader struct {
	httpClient HTTPDoer
}

// NewDownloader constructs a downloader. Pass nil to use a client without a
// global timeout; cancellation is driven by the request context so large
// sources are not cut off mid-stream.
func NewDownloader(httpClient HTTPDoer) *Downloader {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Downloader{httpClient: httpClient}
}

// Fetch downloads the URL to destPath, writing as the bytes arrive. A partial
// file is removed on failure.
func (d *Downloader) Fetch(ctx context.Context, sourceURL, destPath string) (int64, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return 0, services.Wrap(services.ErrDownload, "download", "fetch", "empty source url", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return 0, services.Wrap(services.ErrDownload, "download", "fetch", "build request", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, services.Wrap(services.ErrDownload, "download", "fetch", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, services.Wrap(services.ErrDownload, "download", "fetch",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, services.Wrap(services.ErrDownload, "download", "fetch", "create destination directory", err)
	}

	file, err := os.Create(destPath)
	if err != nil {
		return 0, services.Wrap(services.ErrDownload, "download", "fetch", "create destination file", err)
	}

	written, err := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(destPath)
		return 0, services.Wrap(services.ErrDownload, "download", "fetch", "stream to disk", err)
	}

	return written, nil
}
