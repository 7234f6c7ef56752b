package objectstore_test

import (
	"errors"
	"strings"
	"testing"

	"lectern/internal/config"
	"lectern/internal/objectstore"
)

func TestArtifactKey(t *testing.T) {
	cases := []struct {
		namespace, lessonID, filename, want string
	}{
		{"lessons", "abc-123", "manifest.m3u8", "lessons/abc-123/manifest.m3u8"},
		{"/lessons/", "abc-123", "thumbnail.png", "lessons/abc-123/thumbnail.png"},
		{"", "abc-123", "segment-000.ts", "abc-123/segment-000.ts"},
	}
	for _, tc := range cases {
		if got := objectstore.ArtifactKey(tc.namespace, tc.lessonID, tc.filename); got != tc.want {
			t.Fatalf("ArtifactKey(%q, %q, %q) = %q, want %q", tc.namespace, tc.lessonID, tc.filename, got, tc.want)
		}
	}
}

func TestStorageErrorUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := &objectstore.StorageError{Op: "put", Key: "lessons/a/manifest.m3u8", Err: cause}
	if !errors.Is(err, cause) {
		t.Fatalf("expected unwrap to reach cause")
	}
	if !strings.Contains(err.Error(), "put") || !strings.Contains(err.Error(), "manifest.m3u8") {
		t.Fatalf("error message missing context: %v", err)
	}
}

func TestNewMinioRejectsMissingSettings(t *testing.T) {
	if _, err := objectstore.NewMinio(config.ObjectStore{Bucket: "media"}); err == nil {
		t.Fatalf("expected error for missing endpoint")
	}
	if _, err := objectstore.NewMinio(config.ObjectStore{Endpoint: "s3.example.com"}); err == nil {
		t.Fatalf("expected error for missing bucket")
	}
}
