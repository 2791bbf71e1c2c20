package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Workspace holds the deterministic per-task scratch paths. Paths are a pure
// function of the task id so a later cleanup call finds a prior run's
// leftovers, while different task ids never collide.
type Workspace struct {
	TaskID       string
	Dir          string
	VideoPath    string
	AudioPath    string
	DocumentPath string
}

// Manager allocates and releases per-task scratch directories under a
// configured root.
type Manager struct {
	root string
}

// NewManager constructs a workspace manager rooted at dir.
func NewManager(root string) (*Manager, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("workspace root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root %q: %w", root, err)
	}
	return &Manager{root: root}, nil
}

// Root returns the workspace root directory.
func (m *Manager) Root() string {
	return m.root
}

// Paths returns the scratch paths for a task id without touching the
// filesystem.
func (m *Manager) Paths(taskID string) Workspace {
	dir := filepath.Join(m.root, taskID)
	return Workspace{
		TaskID:       taskID,
		Dir:          dir,
		VideoPath:    filepath.Join(dir, "video.mp4"),
		AudioPath:    filepath.Join(dir, "audio.wav"),
		DocumentPath: filepath.Join(dir, "summary.pdf"),
	}
}

// Allocate creates the scratch directory for a task and verifies the backing
// filesystem has room for requiredBytes before any download starts.
func (m *Manager) Allocate(taskID string, requiredBytes int64) (Workspace, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return Workspace{}, errors.New("task id is required")
	}

	ws := m.Paths(taskID)
	if err := os.MkdirAll(ws.Dir, 0o755); err != nil {
		return Workspace{}, fmt.Errorf("create workspace %q: %w", ws.Dir, err)
	}

	if requiredBytes > 0 {
		free, err := freeBytes(m.root)
		if err == nil && free < uint64(requiredBytes) {
			_ = os.RemoveAll(ws.Dir)
			return Workspace{}, fmt.Errorf("insufficient disk space in %q: need %d bytes, have %d", m.root, requiredBytes, free)
		}
	}

	return ws, nil
}

// Release removes any scratch files for the task id. It is idempotent and
// never fails the caller when nothing exists.
func (m *Manager) Release(taskID string) error {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil
	}
	dir := filepath.Join(m.root, taskID)
	if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove workspace %q: %w", dir, err)
	}
	return nil
}

func freeBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
