package media

import (
	"log/slog"
	"strings"
	"time"

	"lectern/internal/config"
	"lectern/internal/logging"
)

// Artifact filenames written under a job's output directory and mirrored into
// the object store under the lesson's namespace.
const (
	ManifestFilename  = "manifest.m3u8"
	ThumbnailFilename = "thumbnail.png"
	segmentPattern    = "segment-%03d.ts"
)

// Adapter invokes the external media tools with bounded timeouts.
type Adapter struct {
	ffmpeg  string
	ffprobe string

	segmentSeconds   int
	probeTimeout     time.Duration
	thumbnailTimeout time.Duration
	segmentTimeout   time.Duration

	exec   Executor
	logger *slog.Logger
}

// Option configures the adapter.
type Option func(*Adapter)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(a *Adapter) {
		if exec != nil {
			a.exec = exec
		}
	}
}

// WithLogger attaches a logger for degraded-mode diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAdapter constructs an adapter from transcode configuration.
func NewAdapter(cfg config.Transcode, opts ...Option) *Adapter {
	adapter := &Adapter{
		ffmpeg:           strings.TrimSpace(cfg.FFmpegBinary),
		ffprobe:          strings.TrimSpace(cfg.FFprobeBinary),
		segmentSeconds:   cfg.SegmentSeconds,
		probeTimeout:     time.Duration(cfg.ProbeTimeoutSeconds) * time.Second,
		thumbnailTimeout: time.Duration(cfg.ThumbnailTimeoutSecs) * time.Second,
		segmentTimeout:   time.Duration(cfg.SegmentTimeoutSeconds) * time.Second,
		exec:             commandExecutor{},
		logger:           logging.NewNop(),
	}
	if adapter.ffmpeg == "" {
		adapter.ffmpeg = "ffmpeg"
	}
	if adapter.ffprobe == "" {
		adapter.ffprobe = "ffprobe"
	}
	if adapter.segmentSeconds <= 0 {
		adapter.segmentSeconds = 6
	}
	for _, opt := range opts {
		opt(adapter)
	}
	return adapter
}
