package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers classify pipeline failures. Stage code wraps errors with one
// of these via Wrap; the pipeline boundary and tests branch on errors.Is.
var (
	// ErrInvalidInput marks jobs rejected before any work started (empty source key).
	ErrInvalidInput = errors.New("invalid input")
	// ErrSourceNotFound marks a source object absent from the object store.
	ErrSourceNotFound = errors.New("source not found")
	// ErrEmptySource marks a zero-length source object.
	ErrEmptySource = errors.New("empty source")
	// ErrConversionFailed marks a failed segmenting run, the one correctness-critical tool call.
	ErrConversionFailed = errors.New("conversion failed")
	// ErrStorage marks object store transport failures.
	ErrStorage = errors.New("storage error")
	// ErrConfiguration marks unusable configuration detected at runtime.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient marks failures with no better classification.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureMessage flattens a stage error into the human-readable string persisted
// on the lesson record. The sentinel prefix is kept; instructors see it as the
// failure kind.
func FailureMessage(err error) string {
	if err == nil {
		return "processing failed without error detail"
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return "processing failed without error detail"
	}
	return msg
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
