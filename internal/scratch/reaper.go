package scratch

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"lectern/internal/logging"
)

// Sweep removes workspaces whose contents have not been touched within maxAge.
// It covers jobs killed by the scheduler's hard timeout, where the pipeline's
// own cleanup stage never ran. Returns the number of workspaces removed.
func (m *Manager) Sweep(maxAge time.Duration, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(m.root, entry.Name())
		modified, err := newestModTime(dir)
		if err != nil {
			logger.Warn("skip unreadable workspace", logging.String("path", dir), logging.Error(err))
			continue
		}
		if modified.After(cutoff) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("failed to reap workspace", logging.String("path", dir), logging.Error(err))
			continue
		}
		removed++
		logger.Info("reaped stale workspace",
			logging.String("path", dir),
			logging.String(logging.FieldEventType, "scratch_reaped"),
		)
	}
	return removed, nil
}

// newestModTime walks a workspace and returns the most recent modification
// time seen, so a long-running download keeps its workspace alive.
func newestModTime(root string) (time.Time, error) {
	newest := time.Time{}
	err := filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	return newest, err
}
