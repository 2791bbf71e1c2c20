package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"conspect/internal/api"
	"conspect/internal/config"
)

// daemonClient talks to a running conspectd over its HTTP API.
type daemonClient struct {
	base string
	http *http.Client
}

func newDaemonClient(cfg *config.Config) *daemonClient {
	return &daemonClient{
		base: "http://" + strings.TrimSpace(cfg.Paths.APIBind),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *daemonClient) createTask(ctx context.Context, title, videoLink string) (*api.TaskView, error) {
	payload, err := json.Marshal(map[string]string{"title": title, "video_link": videoLink})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/tasks", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var view api.TaskView
	if err := c.do(req, http.StatusCreated, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *daemonClient) listTasks(ctx context.Context, status string) ([]api.TaskView, error) {
	endpoint := c.base + "/api/tasks"
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Tasks []api.TaskView `json:"tasks"`
	}
	if err := c.do(req, http.StatusOK, &payload); err != nil {
		return nil, err
	}
	return payload.Tasks, nil
}

func (c *daemonClient) getTask(ctx context.Context, taskID string) (*api.TaskView, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/tasks/"+url.PathEscape(taskID), nil)
	if err != nil {
		return nil, err
	}

	var view api.TaskView
	if err := c.do(req, http.StatusOK, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *daemonClient) do(req *http.Request, wantStatus int, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("is conspectd running? %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != wantStatus {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon: unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
