// Package objectstore provides the durable blob store boundary used by the
// transcode pipeline. The client is a thin, deterministic I/O layer: it
// performs no retries and reports every transport failure as a StorageError,
// leaving retry policy to the scheduler.
package objectstore
