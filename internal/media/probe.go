package media

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"lectern/internal/logging"
)

// ProbeDuration inspects the media file and returns its duration in whole
// seconds, truncated. Duration is best-effort metadata: unparseable tool
// output yields 0 rather than an error, and only the invocation itself can
// fail.
func (a *Adapter) ProbeDuration(ctx context.Context, path string) (int, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, errors.New("probe duration: empty path")
	}

	runCtx := ctx
	if a.probeTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, a.probeTimeout)
		defer cancel()
	}

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		"--", path,
	}
	stdout, stderr, err := a.exec.Run(runCtx, a.ffprobe, args)
	if err != nil {
		return 0, errors.New("probe duration: " + firstNonEmpty(tailLines(stderr, 3), err.Error()))
	}

	seconds, ok := parseDurationSeconds(stdout)
	if !ok {
		a.logger.Debug("unparseable probe output",
			logging.String("path", path),
			logging.String("output", strings.TrimSpace(stdout)),
		)
		return 0, nil
	}
	return seconds, nil
}

// parseDurationSeconds extracts the first numeric line and truncates it.
// ffprobe reports fractional seconds; 125.9 stores as 125.
func parseDurationSeconds(output string) (int, bool) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		value, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return 0, false
		}
		if value < 0 {
			return 0, false
		}
		return int(value), true
	}
	return 0, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
