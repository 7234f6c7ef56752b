package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"lectern/internal/services"
)

// SegmentToStreamFormat transcodes the source into a fixed-duration-segment
// HLS rendition using a baseline compatibility profile and returns the
// manifest path. A non-zero exit or a missing manifest fails the call; this is
// the one invocation whose output is the product.
func (a *Adapter) SegmentToStreamFormat(ctx context.Context, path, outDir string) (string, error) {
	path = strings.TrimSpace(path)
	outDir = strings.TrimSpace(outDir)
	if path == "" {
		return "", services.Wrap(services.ErrConversionFailed, "segmenting", "ffmpeg", "empty source path", nil)
	}
	if outDir == "" {
		return "", services.Wrap(services.ErrConversionFailed, "segmenting", "ffmpeg", "empty output directory", nil)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConversionFailed, "segmenting", "prepare output", "", err)
	}

	runCtx := ctx
	if a.segmentTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, a.segmentTimeout)
		defer cancel()
	}

	manifestPath := filepath.Join(outDir, ManifestFilename)
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", path,
		"-codec:v", "libx264",
		"-profile:v", "baseline",
		"-level", "3.0",
		"-pix_fmt", "yuv420p",
		"-codec:a", "aac",
		"-ar", "48000",
		"-start_number", "0",
		"-hls_time", strconv.Itoa(a.segmentSeconds),
		"-hls_list_size", "0",
		"-hls_segment_filename", filepath.Join(outDir, segmentPattern),
		"-f", "hls",
		"-y", manifestPath,
	}
	_, stderr, err := a.exec.Run(runCtx, a.ffmpeg, args)
	if err != nil {
		detail := firstNonEmpty(tailLines(stderr, 5), err.Error())
		return "", services.Wrap(services.ErrConversionFailed, "segmenting", "ffmpeg", detail, err)
	}

	info, statErr := os.Stat(manifestPath)
	if statErr != nil || info.Size() == 0 {
		return "", services.Wrap(services.ErrConversionFailed, "segmenting", "ffmpeg",
			fmt.Sprintf("manifest missing after transcode: %s", manifestPath), statErr)
	}
	return manifestPath, nil
}
