package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"lectern/internal/config"
	"lectern/internal/lessons"
	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/scratch"
	"lectern/internal/services"
	"lectern/internal/transcode"
)

// JobRunner executes one job attempt. Satisfied by *transcode.Pipeline.
type JobRunner interface {
	Run(ctx context.Context, job *queue.Job) (*transcode.Result, error)
}

// Manager coordinates the worker pool over the job queue.
type Manager struct {
	cfg     *config.Config
	store   *queue.Store
	lessons *lessons.Store
	runner  JobRunner
	scratch *scratch.Manager
	logger  *slog.Logger

	workers        int
	pollInterval   time.Duration
	attemptTimeout time.Duration
	maxAttempts    int
	reaperInterval time.Duration
	reaperMaxAge   time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a workflow manager.
func NewManager(
	cfg *config.Config,
	store *queue.Store,
	lessonStore *lessons.Store,
	runner JobRunner,
	scratchMgr *scratch.Manager,
	logger *slog.Logger,
) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	workers := cfg.Scheduler.Workers
	if workers < 1 {
		workers = 1
	}
	return &Manager{
		cfg:            cfg,
		store:          store,
		lessons:        lessonStore,
		runner:         runner,
		scratch:        scratchMgr,
		logger:         logging.NewComponentLogger(logger, "workflow"),
		workers:        workers,
		pollInterval:   time.Duration(cfg.Scheduler.PollIntervalSeconds) * time.Second,
		attemptTimeout: time.Duration(cfg.Scheduler.AttemptTimeoutSeconds) * time.Second,
		maxAttempts:    cfg.Scheduler.MaxAttempts,
		reaperInterval: time.Duration(cfg.Scheduler.ReaperIntervalMinutes) * time.Minute,
		reaperMaxAge:   time.Duration(cfg.Scheduler.ReaperMaxAgeHours) * time.Hour,
	}
}

// Start reclaims jobs stranded in running state, then launches the worker
// goroutines and the scratch reaper.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.mu.Unlock()

	reclaimed, err := m.store.ResetStuckRunning(runCtx)
	if err != nil {
		m.logger.Error("reset of stranded running jobs failed", logging.Error(err))
	} else if reclaimed > 0 {
		m.logger.Info("requeued jobs stranded by previous shutdown",
			logging.Int64("jobs", reclaimed))
	}

	m.wg.Add(m.workers + 1)
	for i := 0; i < m.workers; i++ {
		go m.runWorker(runCtx, i)
	}
	go m.runReaper(runCtx)
	return nil
}

// Stop cancels all workers and waits for in-flight attempts to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runWorker(ctx context.Context, index int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int("worker", index))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := m.store.ClaimNext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error("claim next job failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_claim_failed"),
			)
			m.waitOrShutdown(ctx)
			continue
		}
		if job == nil {
			m.waitOrShutdown(ctx)
			continue
		}

		m.processJob(ctx, logger, job)
	}
}

func (m *Manager) waitOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}

// processJob runs a single attempt under the hard attempt deadline and
// resolves the outcome: complete, reschedule, or terminal failure.
func (m *Manager) processJob(ctx context.Context, logger *slog.Logger, job *queue.Job) {
	requestID := uuid.NewString()
	jobCtx := services.WithLessonID(ctx, job.LessonID)
	jobCtx = services.WithJobID(jobCtx, job.ID)
	jobCtx = services.WithRequestID(jobCtx, requestID)

	attemptCtx := jobCtx
	if m.attemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(jobCtx, m.attemptTimeout)
		defer cancel()
	}

	attrs := append(logging.ContextFields(jobCtx), logging.Int(logging.FieldAttempt, job.Attempt))
	logger.Info("job attempt started", logging.Args(attrs...)...)

	started := time.Now()
	result, err := m.runner.Run(attemptCtx, job)
	if err == nil {
		if markErr := m.store.MarkCompleted(jobCtx, job.ID); markErr != nil {
			logger.Error("mark completed failed", logging.Args(append(attrs, logging.Error(markErr))...)...)
			return
		}
		logger.Info("job completed",
			logging.Args(append(attrs,
				logging.Duration("elapsed", time.Since(started)),
				logging.Int("duration_seconds", result.DurationSeconds),
				logging.Bool("placeholder_thumbnail", result.PlaceholderThumbnail),
				logging.Int("uploaded_objects", result.UploadedObjects),
			)...)...)
		return
	}

	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		err = services.Wrap(services.ErrTransient, "", "attempt deadline",
			"processing exceeded the attempt timeout", err)
	} else if errors.Is(err, context.Canceled) {
		// Shutdown mid-attempt; startup reclamation requeues the job.
		return
	}

	m.resolveFailure(jobCtx, logger, job, err)
}

// resolveFailure records the failure on the lesson, then applies the retry
// policy uniformly: every failure kind reschedules with backoff until attempts
// are exhausted, at which point the job also becomes failed. The scheduler
// does not second-guess the pipeline's error classification. The lesson's
// failure is written per attempt; the next attempt's markProcessing clears it.
func (m *Manager) resolveFailure(ctx context.Context, logger *slog.Logger, job *queue.Job, jobErr error) {
	message := services.FailureMessage(jobErr)
	attrs := append(logging.ContextFields(ctx),
		logging.Int(logging.FieldAttempt, job.Attempt),
		logging.Error(jobErr),
	)

	if err := m.lessons.MarkFailed(ctx, job.LessonID, message); err != nil {
		logger.Error("mark lesson failed errored", logging.Args(append(attrs, logging.Error(err))...)...)
	}

	if job.Attempt < m.maxAttempts {
		delay := time.Duration(m.cfg.Backoff(job.Attempt)) * time.Second
		if err := m.store.Reschedule(ctx, job.ID, delay, message); err != nil {
			logger.Error("reschedule failed", logging.Args(append(attrs, logging.Error(err))...)...)
			return
		}
		logger.Warn("job attempt failed, retry scheduled",
			logging.Args(append(attrs, logging.Duration("retry_in", delay))...)...)
		return
	}

	if err := m.store.MarkFailed(ctx, job.ID, message); err != nil {
		logger.Error("mark job failed errored", logging.Args(append(attrs, logging.Error(err))...)...)
	}
	logger.Error("job failed permanently",
		logging.Args(append(attrs, logging.String(logging.FieldEventType, "job_failed"))...)...)
}

func (m *Manager) runReaper(ctx context.Context) {
	defer m.wg.Done()
	if m.scratch == nil || m.reaperInterval <= 0 {
		return
	}

	m.sweepScratch()
	ticker := time.NewTicker(m.reaperInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweepScratch()
		}
	}
}

func (m *Manager) sweepScratch() {
	removed, err := m.scratch.Sweep(m.reaperMaxAge, m.logger)
	if err != nil {
		m.logger.Warn("scratch sweep failed", logging.Error(err))
		return
	}
	if removed > 0 {
		m.logger.Info("swept abandoned workspaces", logging.Int("removed", removed))
	}
}
