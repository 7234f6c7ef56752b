// Package scratch manages per-job local working directories, partitioned by
// lesson id so concurrent jobs never share paths, plus an age-based reaper for
// workspaces orphaned by forcefully terminated jobs.
package scratch
