package media

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"

	"lectern/internal/logging"
)

// Thumbnail capture parameters. The early offset avoids black lead-in frames
// without seeking deep into large files.
const (
	thumbnailOffset = "0.5"
	thumbnailWidth  = 640
	thumbnailHeight = 360
)

// ExtractThumbnail captures a single still frame at a fixed early offset. On
// tool failure or empty output it writes a deterministic placeholder image at
// outPath instead; thumbnail generation never blocks pipeline success. The
// returned bool reports whether the placeholder was used. An error is returned
// only when even the placeholder could not be written.
func (a *Adapter) ExtractThumbnail(ctx context.Context, path, outPath string) (placeholder bool, err error) {
	path = strings.TrimSpace(path)
	outPath = strings.TrimSpace(outPath)
	if outPath == "" {
		return false, fmt.Errorf("extract thumbnail: empty output path")
	}

	runCtx := ctx
	if a.thumbnailTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, a.thumbnailTimeout)
		defer cancel()
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", thumbnailOffset,
		"-i", path,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
			thumbnailWidth, thumbnailHeight, thumbnailWidth, thumbnailHeight),
		"-y", outPath,
	}
	_, stderr, runErr := a.exec.Run(runCtx, a.ffmpeg, args)
	if runErr == nil {
		if info, statErr := os.Stat(outPath); statErr == nil && info.Size() > 0 {
			return false, nil
		}
	}

	a.logger.Warn("thumbnail capture failed, writing placeholder",
		logging.String("path", path),
		logging.String("detail", firstNonEmpty(tailLines(stderr, 3), errString(runErr), "empty output")),
		logging.String(logging.FieldEventType, "thumbnail_degraded"),
	)
	if err := writePlaceholder(outPath); err != nil {
		return true, fmt.Errorf("write placeholder thumbnail: %w", err)
	}
	return true, nil
}

// writePlaceholder renders a flat dark frame at the standard thumbnail
// dimensions. Output is byte-for-byte deterministic.
func writePlaceholder(outPath string) error {
	img := image.NewRGBA(image.Rect(0, 0, thumbnailWidth, thumbnailHeight))
	fill := color.RGBA{R: 0x2b, G: 0x2f, B: 0x36, A: 0xff}
	for y := 0; y < thumbnailHeight; y++ {
		for x := 0; x < thumbnailWidth; x++ {
			img.Set(x, y, fill)
		}
	}

	file, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return err
	}
	return file.Close()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
