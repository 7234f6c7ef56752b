package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"lectern/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	cfg.ObjectStore.Bucket = "test-bucket"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	_ = cfg
	if exists {
		t.Fatalf("expected exists=false for missing file")
	}
	if resolved != path {
		t.Fatalf("resolved path mismatch: %q", resolved)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
scratch_dir = "` + filepath.Join(dir, "scratch") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[object_store]
bucket = "media"
namespace = "/lessons/"

[scheduler]
workers = 4
backoff_seconds = [1, 2, 3]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatalf("expected exists=true")
	}
	if cfg.Scheduler.Workers != 4 {
		t.Fatalf("workers = %d, want 4", cfg.Scheduler.Workers)
	}
	if cfg.ObjectStore.Namespace != "lessons" {
		t.Fatalf("namespace not trimmed: %q", cfg.ObjectStore.Namespace)
	}
	if cfg.Transcode.FFmpegBinary != "ffmpeg" {
		t.Fatalf("ffmpeg default missing: %q", cfg.Transcode.FFmpegBinary)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing bucket", func(c *config.Config) { c.ObjectStore.Bucket = "" }},
		{"zero workers", func(c *config.Config) { c.Scheduler.Workers = 0 }},
		{"zero max attempts", func(c *config.Config) { c.Scheduler.MaxAttempts = 0 }},
		{"empty backoff", func(c *config.Config) { c.Scheduler.BackoffSeconds = nil }},
		{"negative backoff", func(c *config.Config) { c.Scheduler.BackoffSeconds = []int{-1} }},
		{"zero attempt timeout", func(c *config.Config) { c.Scheduler.AttemptTimeoutSeconds = 0 }},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "yaml" }},
		{"zero segment seconds", func(c *config.Config) { c.Transcode.SegmentSeconds = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.ObjectStore.Bucket = "media"
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestBackoffSchedule(t *testing.T) {
	cfg := config.Default()
	want := map[int]int{1: 60, 2: 120, 3: 300, 4: 300, 0: 60}
	for attempt, delay := range want {
		if got := cfg.Backoff(attempt); got != delay {
			t.Fatalf("Backoff(%d) = %d, want %d", attempt, got, delay)
		}
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatalf("expected overwrite refusal")
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil || !exists {
		t.Fatalf("sample config should load: exists=%v err=%v", exists, err)
	}
	if cfg.Scheduler.MaxAttempts != 3 {
		t.Fatalf("sample max_attempts = %d, want 3", cfg.Scheduler.MaxAttempts)
	}
}
