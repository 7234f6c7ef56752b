package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return fmt.Errorf("paths.data_dir is required")
	}
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		return fmt.Errorf("paths.scratch_dir is required")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return fmt.Errorf("paths.log_dir is required")
	}
	if strings.TrimSpace(c.ObjectStore.Bucket) == "" {
		return fmt.Errorf("object_store.bucket is required")
	}
	if c.Transcode.SegmentSeconds <= 0 {
		return fmt.Errorf("transcode.segment_seconds must be positive, got %d", c.Transcode.SegmentSeconds)
	}
	if c.Transcode.SegmentTimeoutSeconds <= 0 {
		return fmt.Errorf("transcode.segment_timeout must be positive, got %d", c.Transcode.SegmentTimeoutSeconds)
	}
	if c.Scheduler.Workers <= 0 {
		return fmt.Errorf("scheduler.workers must be positive, got %d", c.Scheduler.Workers)
	}
	if c.Scheduler.MaxAttempts <= 0 {
		return fmt.Errorf("scheduler.max_attempts must be positive, got %d", c.Scheduler.MaxAttempts)
	}
	if len(c.Scheduler.BackoffSeconds) == 0 {
		return fmt.Errorf("scheduler.backoff_seconds must not be empty")
	}
	for i, backoff := range c.Scheduler.BackoffSeconds {
		if backoff < 0 {
			return fmt.Errorf("scheduler.backoff_seconds[%d] must be non-negative, got %d", i, backoff)
		}
	}
	if c.Scheduler.AttemptTimeoutSeconds <= 0 {
		return fmt.Errorf("scheduler.attempt_timeout must be positive, got %d", c.Scheduler.AttemptTimeoutSeconds)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

// Backoff returns the delay in seconds applied before the given retry attempt
// (1-based). Attempts beyond the configured schedule reuse the final delay.
func (c *Config) Backoff(attempt int) int {
	schedule := c.Scheduler.BackoffSeconds
	if len(schedule) == 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(schedule) {
		attempt = len(schedule)
	}
	return schedule[attempt-1]
}
