package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"conspect/internal/api"
	"conspect/internal/config"
	"conspect/internal/logging"
	"conspect/internal/queue"
	"conspect/internal/trigger"
)

const maxTriggerPayloadBytes = 1 << 20

// Server exposes the HTTP surface: the queue trigger endpoint, the task API,
// and a health probe.
type Server struct {
	bind     string
	logger   *slog.Logger
	store    *queue.Store
	tasks    *api.Service
	consumer *trigger.Consumer
	dispatch func(taskID string)

	listener net.Listener
	server   *http.Server
}

// NewServer constructs the HTTP server. dispatch is invoked after task
// creation to kick off processing; it may be nil when the daemon relies on
// external queue pushes only.
func NewServer(cfg *config.Config, store *queue.Store, tasks *api.Service, consumer *trigger.Consumer, dispatch func(taskID string), logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("daemon: config is required")
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("daemon: api bind address is required")
	}
	if store == nil {
		return nil, errors.New("daemon: task store is required")
	}
	if tasks == nil {
		return nil, errors.New("daemon: task service is required")
	}
	if consumer == nil {
		return nil, errors.New("daemon: trigger consumer is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	srv := &Server{
		bind:     bind,
		logger:   logger.With(logging.String(logging.FieldComponent, "api-server")),
		store:    store,
		tasks:    tasks,
		consumer: consumer,
		dispatch: dispatch,
	}
	srv.server = &http.Server{
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// Router builds the route table. Exposed so tests can drive handlers without
// a listener.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/trigger", s.handleTrigger)
	r.Get("/health", s.handleHealth)
	r.Route("/api/tasks", func(r chi.Router) {
		r.Post("/", s.handleCreateTask)
		r.Get("/", s.handleListTasks)
		r.Get("/{taskID}", s.handleGetTask)
	})
	return r
}

// Start begins serving until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down immediately.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// handleTrigger accepts queue push deliveries. The queue redelivers on
// non-200 responses, so the handler acknowledges every well-formed request
// and leaves failure handling to the task records.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxTriggerPayloadBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}

	if err := s.consumer.HandleBatch(r.Context(), payload); err != nil {
		s.logger.Error("trigger batch had consumer errors", logging.Error(err))
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createTaskRequest struct {
	Title     string `json:"title"`
	VideoLink string `json:"video_link"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxTriggerPayloadBytes)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.VideoLink) == "" {
		s.writeError(w, http.StatusBadRequest, "video_link is required")
		return
	}

	task, err := s.tasks.Create(r.Context(), req.Title, req.VideoLink)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.dispatch != nil {
		s.dispatch(task.TaskID)
	}

	view, err := s.tasks.Get(r.Context(), task.TaskID)
	if err != nil || view == nil {
		s.writeError(w, http.StatusInternalServerError, "task created but could not be loaded")
		return
	}
	s.writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	var statuses []queue.Status
	for _, value := range r.URL.Query()["status"] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		status, ok := queue.ParseStatus(trimmed)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", trimmed))
			return
		}
		statuses = append(statuses, status)
	}

	views, err := s.tasks.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"tasks": views})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	view, err := s.tasks.Get(r.Context(), taskID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if view == nil {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	health, err := s.store.Health(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "tasks": health})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
