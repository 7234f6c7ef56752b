package objectstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Client describes the object store operations the pipeline depends on.
// Implementations must treat Put as an overwrite so repeated job attempts
// remain safe under at-least-once delivery.
type Client interface {
	// Exists reports whether an object is present. A missing object is not an error.
	Exists(ctx context.Context, key string) (bool, error)
	// Size returns the object size in bytes.
	Size(ctx context.Context, key string) (int64, error)
	// Get opens the object for streaming reads. The caller closes the stream.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Put stores the object, replacing any prior content under the key.
	// size may be -1 when unknown.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
	// SignedReadURL issues a short-lived URL granting read access to the object.
	SignedReadURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// StorageError wraps a transport failure with the operation and key involved.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("object store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ArtifactKey builds the object key for a derived artifact of a lesson,
// following the {namespace}/{lessonId}/{filename} convention.
func ArtifactKey(namespace, lessonID, filename string) string {
	return path.Join(strings.Trim(namespace, "/"), lessonID, filename)
}
