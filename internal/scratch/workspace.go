package scratch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Workspace holds the job-scoped directories the pipeline writes into.
type Workspace struct {
	Root        string
	DownloadDir string
	OutputDir   string
}

// Manager allocates and releases lesson-scoped scratch directories under a
// shared root. The root is shared across all workers on a machine; isolation
// comes from keying every workspace by lesson id.
type Manager struct {
	root string
}

// NewManager constructs a manager rooted at the given directory.
func NewManager(root string) (*Manager, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("scratch root required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch root: %w", err)
	}
	return &Manager{root: root}, nil
}

// Root returns the shared scratch root directory.
func (m *Manager) Root() string {
	return m.root
}

// Allocate creates the download and output directories for a lesson's job.
// Any leftovers from a prior attempt for the same lesson are removed first so
// retries start from a clean tree.
func (m *Manager) Allocate(lessonID string) (Workspace, error) {
	dir, err := m.workspaceDir(lessonID)
	if err != nil {
		return Workspace{}, err
	}
	if err := os.RemoveAll(dir); err != nil {
		return Workspace{}, fmt.Errorf("clear prior workspace: %w", err)
	}

	ws := Workspace{
		Root:        dir,
		DownloadDir: filepath.Join(dir, "download"),
		OutputDir:   filepath.Join(dir, "output"),
	}
	for _, sub := range []string{ws.DownloadDir, ws.OutputDir} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return Workspace{}, fmt.Errorf("create workspace directory: %w", err)
		}
	}
	return ws, nil
}

// Release recursively removes the lesson's workspace.
func (m *Manager) Release(lessonID string) error {
	dir, err := m.workspaceDir(lessonID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("release workspace: %w", err)
	}
	return nil
}

func (m *Manager) workspaceDir(lessonID string) (string, error) {
	id := strings.TrimSpace(lessonID)
	if !validLessonID(id) {
		return "", fmt.Errorf("invalid lesson id %q", lessonID)
	}
	return filepath.Join(m.root, id), nil
}

// validLessonID restricts workspace names to a safe character set. Ids are
// rejected, never rewritten: stripping characters would let distinct ids
// collide on one workspace.
func validLessonID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
