// Package daemonrun wires the worker process: logger, single-instance lock,
// stores, object store client, pipeline, and the workflow manager.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"lectern/internal/config"
	"lectern/internal/deps"
	"lectern/internal/lessons"
	"lectern/internal/logging"
	"lectern/internal/media"
	"lectern/internal/objectstore"
	"lectern/internal/queue"
	"lectern/internal/scratch"
	"lectern/internal/transcode"
	"lectern/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the lectern worker runtime loop and blocks until a shutdown
// signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("lectern-%s.log", runID))
	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.Paths.DataDir, "lectern.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another lectern daemon is already running")
	}
	defer lock.Unlock()

	pidPath := filepath.Join(cfg.Paths.DataDir, "lectern.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	logDependencySnapshot(logger, cfg)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	lessonStore, err := lessons.Open(cfg)
	if err != nil {
		logger.Error("open lesson store", logging.Error(err))
		return err
	}
	defer lessonStore.Close()

	objects, err := objectstore.NewMinio(cfg.ObjectStore)
	if err != nil {
		logger.Error("connect object store", logging.Error(err))
		return err
	}

	scratchMgr, err := scratch.NewManager(cfg.Paths.ScratchDir)
	if err != nil {
		logger.Error("prepare scratch root", logging.Error(err))
		return err
	}

	adapter := media.NewAdapter(cfg.Transcode, media.WithLogger(logger))
	pipeline := transcode.New(cfg, objects, adapter, scratchMgr, lessonStore, logger)
	manager := workflow.NewManager(cfg, store, lessonStore, pipeline, scratchMgr, logger)

	if err := manager.Start(signalCtx); err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}

	logger.Info("lectern daemon started",
		logging.String("queue_db", store.Path()),
		logging.Int("workers", cfg.Scheduler.Workers),
	)

	<-signalCtx.Done()
	logger.Info("lectern daemon shutting down")
	manager.Stop()
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// logDependencySnapshot records external binary availability once at startup
// so a missing tool is visible before the first job fails.
func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	for _, status := range statuses {
		attrs := []logging.Attr{
			logging.String("dependency", status.Name),
			logging.String("command", status.Command),
			logging.Bool("available", status.Available),
		}
		if status.Detail != "" {
			attrs = append(attrs, logging.String("detail", status.Detail))
		}
		if status.Available {
			logger.Info("dependency check", logging.Args(attrs...)...)
		} else if status.Optional {
			logger.Warn("optional dependency unavailable", logging.Args(attrs...)...)
		} else {
			logger.Error("required dependency unavailable", logging.Args(attrs...)...)
		}
	}
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		logger.Warn("jobs will fail until required tools are installed",
			logging.String("missing", strings.Join(missing, ", ")),
		)
	}
}
