package lessons

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a lesson's media asset.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusProcessed,
	StatusFailed,
}

var statusSet = map[Status]struct{}{
	StatusPending:    {},
	StatusProcessing: {},
	StatusProcessed:  {},
	StatusFailed:     {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status ends a processing attempt.
func (s Status) IsTerminal() bool {
	return s == StatusProcessed || s == StatusFailed
}

// Lesson is the media asset record the pipeline transforms.
//
// SourceKey is set once at creation and never modified by the pipeline.
// ManifestKey and ThumbnailKey are populated on success; ProcessingError on
// terminal failure, cleared when a new attempt starts.
type Lesson struct {
	ID              string
	SourceKey       string
	Status          Status
	ManifestKey     string
	ThumbnailKey    string
	DurationSeconds int
	ProcessedAt     *time.Time
	ProcessingError string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
