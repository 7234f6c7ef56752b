// Command lectern runs the lecture video processing worker and its
// operational CLI: enqueueing uploads, inspecting the job queue, and
// managing configuration.
package main
