// Package lessons persists lesson records and exposes the narrow state
// transitions the transcode pipeline commits: processing, processed, failed.
// Terminal transitions are idempotent so retried jobs can safely re-commit.
package lessons
