package testsupport

import (
	"context"
	"testing"

	"lectern/internal/config"
	"lectern/internal/lessons"
	"lectern/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenLessons opens a lessons.Store for tests and registers cleanup.
func MustOpenLessons(t testing.TB, cfg *config.Config) *lessons.Store {
	t.Helper()

	store, err := lessons.Open(cfg)
	if err != nil {
		t.Fatalf("lessons.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewLesson registers a lesson record for tests using the provided store.
func NewLesson(t testing.TB, store *lessons.Store, id, sourceKey string) *lessons.Lesson {
	t.Helper()

	lesson, err := store.Create(context.Background(), id, sourceKey)
	if err != nil {
		t.Fatalf("lessons.Create: %v", err)
	}
	return lesson
}
