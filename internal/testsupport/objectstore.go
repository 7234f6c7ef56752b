package testsupport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"lectern/internal/objectstore"
)

// MemoryObjectStore is an in-memory objectstore.Client for tests. Individual
// operations can be forced to fail per key through FailPut, FailGet, and
// FailDelete.
type MemoryObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	FailPut    map[string]error
	FailGet    map[string]error
	FailDelete map[string]error
}

// NewMemoryObjectStore returns an empty in-memory object store.
func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{
		objects:    make(map[string][]byte),
		FailPut:    make(map[string]error),
		FailGet:    make(map[string]error),
		FailDelete: make(map[string]error),
	}
}

// Seed stores an object directly, bypassing failure injection.
func (m *MemoryObjectStore) Seed(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
}

// Object returns the stored bytes for a key and whether it exists.
func (m *MemoryObjectStore) Object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Keys returns all stored object keys.
func (m *MemoryObjectStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		keys = append(keys, key)
	}
	return keys
}

func (m *MemoryObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *MemoryObjectStore) Size(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return 0, &objectstore.StorageError{Op: "size", Key: key, Err: fmt.Errorf("object not found")}
	}
	return int64(len(data)), nil
}

func (m *MemoryObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailGet[key]; err != nil {
		return nil, &objectstore.StorageError{Op: "get", Key: key, Err: err}
	}
	data, ok := m.objects[key]
	if !ok {
		return nil, &objectstore.StorageError{Op: "get", Key: key, Err: fmt.Errorf("object not found")}
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), data...))), nil
}

func (m *MemoryObjectStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return &objectstore.StorageError{Op: "put", Key: key, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailPut[key]; err != nil {
		return &objectstore.StorageError{Op: "put", Key: key, Err: err}
	}
	m.objects[key] = data
	return nil
}

func (m *MemoryObjectStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailDelete[key]; err != nil {
		return &objectstore.StorageError{Op: "delete", Key: key, Err: err}
	}
	delete(m.objects, key)
	return nil
}

func (m *MemoryObjectStore) SignedReadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return "", &objectstore.StorageError{Op: "presign", Key: key, Err: fmt.Errorf("object not found")}
	}
	return fmt.Sprintf("https://example.test/%s?expires=%d", key, int64(ttl.Seconds())), nil
}

var _ objectstore.Client = (*MemoryObjectStore)(nil)
