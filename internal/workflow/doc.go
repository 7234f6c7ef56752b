// Package workflow runs the background worker loop: claiming transcode jobs
// from the queue, executing the pipeline under a per-attempt deadline, and
// applying the retry schedule until a job completes or exhausts its attempts.
package workflow
