package media_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"lectern/internal/config"
	"lectern/internal/media"
	"lectern/internal/services"
)

// stubExecutor scripts tool behavior per invocation.
type stubExecutor struct {
	stdout string
	stderr string
	err    error
	// onRun lets a test create output files the way the real tool would.
	onRun func(binary string, args []string)
	calls [][]string
}

func (s *stubExecutor) Run(_ context.Context, binary string, args []string) (string, string, error) {
	s.calls = append(s.calls, append([]string{binary}, args...))
	if s.onRun != nil {
		s.onRun(binary, args)
	}
	return s.stdout, s.stderr, s.err
}

func testConfig() config.Transcode {
	cfg := config.Default()
	return cfg.Transcode
}

func TestProbeDurationTruncates(t *testing.T) {
	exec := &stubExecutor{stdout: "125.904583\n"}
	adapter := media.NewAdapter(testConfig(), media.WithExecutor(exec))

	seconds, err := adapter.ProbeDuration(context.Background(), "/tmp/source.mp4")
	if err != nil {
		t.Fatalf("ProbeDuration: %v", err)
	}
	if seconds != 125 {
		t.Fatalf("seconds = %d, want 125 (truncated, not rounded)", seconds)
	}
}

func TestProbeDurationUnparseableIsZeroNotError(t *testing.T) {
	exec := &stubExecutor{stdout: "N/A\n"}
	adapter := media.NewAdapter(testConfig(), media.WithExecutor(exec))

	seconds, err := adapter.ProbeDuration(context.Background(), "/tmp/source.mp4")
	if err != nil {
		t.Fatalf("parse failure must not error: %v", err)
	}
	if seconds != 0 {
		t.Fatalf("seconds = %d, want 0", seconds)
	}
}

func TestProbeDurationToolFailure(t *testing.T) {
	exec := &stubExecutor{err: errors.New("exit status 1"), stderr: "no such file"}
	adapter := media.NewAdapter(testConfig(), media.WithExecutor(exec))

	if _, err := adapter.ProbeDuration(context.Background(), "/tmp/source.mp4"); err == nil {
		t.Fatalf("expected invocation error")
	}
}

func TestExtractThumbnailRealFrame(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "thumbnail.png")
	exec := &stubExecutor{
		onRun: func(_ string, _ []string) {
			if err := os.WriteFile(outPath, []byte("frame-bytes"), 0o644); err != nil {
				t.Fatalf("stub write: %v", err)
			}
		},
	}
	adapter := media.NewAdapter(testConfig(), media.WithExecutor(exec))

	placeholder, err := adapter.ExtractThumbnail(context.Background(), "/tmp/source.mp4", outPath)
	if err != nil {
		t.Fatalf("ExtractThumbnail: %v", err)
	}
	if placeholder {
		t.Fatalf("expected real frame, got placeholder")
	}
}

func TestExtractThumbnailFallsBackToPlaceholder(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "thumbnail.png")
	exec := &stubExecutor{err: errors.New("exit status 1"), stderr: "decode error"}
	adapter := media.NewAdapter(testConfig(), media.WithExecutor(exec))

	placeholder, err := adapter.ExtractThumbnail(context.Background(), "/tmp/source.mp4", outPath)
	if err != nil {
		t.Fatalf("ExtractThumbnail: %v", err)
	}
	if !placeholder {
		t.Fatalf("expected placeholder fallback")
	}
	info, statErr := os.Stat(outPath)
	if statErr != nil || info.Size() == 0 {
		t.Fatalf("placeholder not written: %v", statErr)
	}
}

func TestExtractThumbnailEmptyOutputIsPlaceholder(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "thumbnail.png")
	exec := &stubExecutor{
		onRun: func(_ string, _ []string) {
			// Tool exits zero but produces an empty file.
			if err := os.WriteFile(outPath, nil, 0o644); err != nil {
				t.Fatalf("stub write: %v", err)
			}
		},
	}
	adapter := media.NewAdapter(testConfig(), media.WithExecutor(exec))

	placeholder, err := adapter.ExtractThumbnail(context.Background(), "/tmp/source.mp4", outPath)
	if err != nil {
		t.Fatalf("ExtractThumbnail: %v", err)
	}
	if !placeholder {
		t.Fatalf("expected placeholder for empty tool output")
	}
}

func TestPlaceholderIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	exec := &stubExecutor{err: errors.New("exit status 1")}
	adapter := media.NewAdapter(testConfig(), media.WithExecutor(exec))

	first := filepath.Join(dir, "a.png")
	second := filepath.Join(dir, "b.png")
	if _, err := adapter.ExtractThumbnail(context.Background(), "/tmp/x.mp4", first); err != nil {
		t.Fatalf("ExtractThumbnail: %v", err)
	}
	if _, err := adapter.ExtractThumbnail(context.Background(), "/tmp/y.mp4", second); err != nil {
		t.Fatalf("ExtractThumbnail: %v", err)
	}
	a, _ := os.ReadFile(first)
	b, _ := os.ReadFile(second)
	if string(a) != string(b) {
		t.Fatalf("placeholder bytes differ between runs")
	}
}

func TestSegmentProducesManifest(t *testing.T) {
	outDir := t.TempDir()
	exec := &stubExecutor{
		onRun: func(_ string, _ []string) {
			manifest := filepath.Join(outDir, "manifest.m3u8")
			if err := os.WriteFile(manifest, []byte("#EXTM3U\nsegment-000.ts\n"), 0o644); err != nil {
				t.Fatalf("stub write: %v", err)
			}
		},
	}
	adapter := media.NewAdapter(testConfig(), media.WithExecutor(exec))

	manifest, err := adapter.SegmentToStreamFormat(context.Background(), "/tmp/source.mp4", outDir)
	if err != nil {
		t.Fatalf("SegmentToStreamFormat: %v", err)
	}
	if filepath.Base(manifest) != "manifest.m3u8" {
		t.Fatalf("manifest = %s", manifest)
	}
}

func TestSegmentToolFailureIsConversionFailed(t *testing.T) {
	exec := &stubExecutor{err: errors.New("exit status 1"), stderr: "unsupported codec"}
	adapter := media.NewAdapter(testConfig(), media.WithExecutor(exec))

	_, err := adapter.SegmentToStreamFormat(context.Background(), "/tmp/source.mp4", t.TempDir())
	if !errors.Is(err, services.ErrConversionFailed) {
		t.Fatalf("expected ErrConversionFailed, got %v", err)
	}
}

func TestSegmentMissingManifestIsConversionFailed(t *testing.T) {
	// Tool exits zero but never writes the manifest.
	exec := &stubExecutor{}
	adapter := media.NewAdapter(testConfig(), media.WithExecutor(exec))

	_, err := adapter.SegmentToStreamFormat(context.Background(), "/tmp/source.mp4", t.TempDir())
	if !errors.Is(err, services.ErrConversionFailed) {
		t.Fatalf("expected ErrConversionFailed, got %v", err)
	}
}
