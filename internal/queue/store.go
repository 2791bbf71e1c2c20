package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"conspect/internal/config"
)

// ErrNotFound is returned by status writes addressing an unknown task id.
var ErrNotFound = errors.New("task not found")

// Store manages task persistence backed by SQLite.
//
// Every write touches a single row and sets status, the variant field
// (error message or artifact key), and updated_at in one UPDATE, so
// concurrent writers to the same task id never observe partial updates.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the task database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.Store.Path
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// NewTask inserts a new task in the queued state and returns it.
func (s *Store) NewTask(ctx context.Context, title, videoLink string) (*Task, error) {
	title = strings.TrimSpace(title)
	videoLink = strings.TrimSpace(videoLink)
	if title == "" {
		return nil, errors.New("title is required")
	}
	if videoLink == "" {
		return nil, errors.New("video link is required")
	}

	taskID := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO tasks (task_id, title, video_link, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		taskID,
		title,
		videoLink,
		StatusQueued,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	return s.GetByID(ctx, taskID)
}

// GetByID fetches a task by identifier. A missing task returns (nil, nil).
func (s *Store) GetByID(ctx context.Context, taskID string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE task_id = ?`, taskID)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// SetProcessing transitions a task into the processing state.
func (s *Store) SetProcessing(ctx context.Context, taskID string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE task_id = ?`,
		StatusProcessing,
		time.Now().UTC().Format(time.RFC3339Nano),
		taskID,
	)
	if err != nil {
		return fmt.Errorf("set processing: %w", err)
	}
	return requireRow(res)
}

// SetError transitions a task into the terminal error state with a message
// naming the failing stage. Any artifact key is cleared in the same write.
func (s *Store) SetError(ctx context.Context, taskID, message string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE tasks
         SET status = ?, error_message = ?, artifact_key = NULL, updated_at = ?
         WHERE task_id = ?`,
		StatusError,
		strings.TrimSpace(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		taskID,
	)
	if err != nil {
		return fmt.Errorf("set error: %w", err)
	}
	return requireRow(res)
}

// SetCompleted transitions a task into the terminal completed state with the
// artifact key. Any error message is cleared in the same write.
func (s *Store) SetCompleted(ctx context.Context, taskID, artifactKey string) error {
	artifactKey = strings.TrimSpace(artifactKey)
	if artifactKey == "" {
		return errors.New("artifact key is required")
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE tasks
         SET status = ?, artifact_key = ?, error_message = NULL, updated_at = ?
         WHERE task_id = ?`,
		StatusCompleted,
		artifactKey,
		time.Now().UTC().Format(time.RFC3339Nano),
		taskID,
	)
	if err != nil {
		return fmt.Errorf("set completed: %w", err)
	}
	return requireRow(res)
}

// List returns tasks filtered by status set (or all tasks when no status is
// provided), newest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Task, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + taskColumns + ` FROM tasks`
	orderClause := ` ORDER BY created_at DESC`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// Stats returns a count of tasks grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates task state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusQueued:
			health.Queued += count
		case StatusProcessing:
			health.Processing += count
		case StatusCompleted:
			health.Completed += count
		case StatusError:
			health.Error += count
		}
	}
	return health, nil
}

// Ping verifies the database connection is usable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("task database connection unavailable")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

const taskColumns = "task_id, title, video_link, status, created_at, updated_at, error_message, artifact_key"

func scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		taskID       string
		title        string
		videoLink    string
		statusStr    string
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		errorMessage sql.NullString
		artifactKey  sql.NullString
	)

	if err := scanner.Scan(
		&taskID,
		&title,
		&videoLink,
		&statusStr,
		&createdRaw,
		&updatedRaw,
		&errorMessage,
		&artifactKey,
	); err != nil {
		return nil, err
	}

	task := &Task{
		TaskID:       taskID,
		Title:        title,
		VideoLink:    videoLink,
		Status:       Status(statusStr),
		ErrorMessage: errorMessage.String,
		ArtifactKey:  artifactKey.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		task.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		task.UpdatedAt = updated
	}
	return task, nil
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
