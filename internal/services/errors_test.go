package services_test

import (
	"errors"
	"strings"
	"testing"

	"lectern/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	cause := errors.New("exit status 1")
	err := services.Wrap(services.ErrConversionFailed, "segmenting", "ffmpeg", "hls segmenting failed", cause)
	if !errors.Is(err, services.ErrConversionFailed) {
		t.Fatalf("expected ErrConversionFailed, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to survive, got %v", err)
	}
	if !strings.Contains(err.Error(), "segmenting: ffmpeg: hls segmenting failed") {
		t.Fatalf("unexpected detail: %v", err)
	}
}

func TestWrapNilMarkerDefaultsTransient(t *testing.T) {
	err := services.Wrap(nil, "downloading", "get", "", errors.New("boom"))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient fallback, got %v", err)
	}
}

func TestFailureMessage(t *testing.T) {
	if got := services.FailureMessage(nil); got != "processing failed without error detail" {
		t.Fatalf("unexpected message for nil error: %q", got)
	}
	err := services.Wrap(services.ErrEmptySource, "downloading", "size", "source object is empty", nil)
	if got := services.FailureMessage(err); !strings.Contains(got, "empty source") {
		t.Fatalf("expected kind prefix in message, got %q", got)
	}
}
