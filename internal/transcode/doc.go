// Package transcode orchestrates a single lesson ingestion job from source
// validation through HLS segmenting, artifact upload, and the final lesson
// commit. The pipeline runs entirely inside a job-scoped scratch workspace
// and is safe to re-run for the same lesson.
package transcode
