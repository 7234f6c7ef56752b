// Package queue persists transcode jobs in SQLite and implements the
// scheduler's bookkeeping: attempt counts, retry eligibility times, and
// terminal outcomes. Dequeue semantics are at-least-once; downstream commits
// are idempotent to compensate.
package queue
