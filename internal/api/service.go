package api

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"conspect/internal/queue"
)

const presignTTL = time.Hour

// Signer issues time-limited download URLs for stored artifacts.
type Signer interface {
	PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// TaskView is the task representation returned by the API: the stored record
// plus a presigned download URL for completed tasks.
type TaskView struct {
	TaskID       string    `json:"task_id"`
	Title        string    `json:"title"`
	VideoLink    string    `json:"video_link"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ErrorMessage string    `json:"error_message,omitempty"`
	DownloadURL  string    `json:"download_url,omitempty"`
}

// Service implements task creation and read access for the HTTP surface.
type Service struct {
	store  *queue.Store
	signer Signer
}

// NewService constructs the task service. The signer may be nil, in which
// case completed tasks are returned without download URLs.
func NewService(store *queue.Store, signer Signer) (*Service, error) {
	if store == nil {
		return nil, errors.New("api: task store is required")
	}
	return &Service{store: store, signer: signer}, nil
}

// Create inserts a new queued task. An empty title is derived from the link's
// file name.
func (s *Service) Create(ctx context.Context, title, videoLink string) (*queue.Task, error) {
	videoLink = strings.TrimSpace(videoLink)
	if videoLink == "" {
		return nil, errors.New("video link is required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = DeriveTitle(videoLink)
	}
	return s.store.NewTask(ctx, title, videoLink)
}

// Get returns a single task view, or (nil, nil) when the id is unknown.
func (s *Service) Get(ctx context.Context, taskID string) (*TaskView, error) {
	task, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, nil
	}
	view := s.view(ctx, task)
	return &view, nil
}

// List returns task views, optionally filtered by status, newest first.
func (s *Service) List(ctx context.Context, statuses ...queue.Status) ([]TaskView, error) {
	tasks, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	views := make([]TaskView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, s.view(ctx, task))
	}
	return views, nil
}

func (s *Service) view(ctx context.Context, task *queue.Task) TaskView {
	view := TaskView{
		TaskID:       task.TaskID,
		Title:        task.Title,
		VideoLink:    task.VideoLink,
		Status:       string(task.Status),
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
		ErrorMessage: task.ErrorMessage,
	}
	if s.signer != nil && task.Status == queue.StatusCompleted && task.ArtifactKey != "" {
		signed, err := s.signer.PresignedGetURL(ctx, task.ArtifactKey, presignTTL)
		if err == nil {
			view.DownloadURL = signed
		}
	}
	return view
}

// DeriveTitle builds a human-readable title from a share link's file name:
// the last path segment without its extension, separators replaced with
// spaces, words title-cased. Links without a usable segment fall back to a
// generic title.
func DeriveTitle(videoLink string) string {
	segment := ""
	if parsed, err := url.Parse(videoLink); err == nil {
		segment = path.Base(parsed.Path)
	}
	if segment == "" || segment == "." || segment == "/" {
		return "Без названия"
	}

	segment = strings.TrimSuffix(segment, path.Ext(segment))
	segment = strings.NewReplacer("_", " ", "-", " ", "+", " ").Replace(segment)
	segment = strings.Join(strings.Fields(segment), " ")
	if segment == "" {
		return "Без названия"
	}

	return cases.Title(language.Und, cases.NoLower).String(segment)
}
