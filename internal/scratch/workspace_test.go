package scratch_test

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"lectern/internal/scratch"
)

func TestAllocateCreatesIsolatedDirs(t *testing.T) {
	mgr, err := scratch.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	ws, err := mgr.Allocate("lesson-a")
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	for _, dir := range []string{ws.DownloadDir, ws.OutputDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
		if !strings.Contains(dir, "lesson-a") {
			t.Fatalf("directory %s not scoped to lesson id", dir)
		}
	}
}

func TestAllocateClearsPriorAttempt(t *testing.T) {
	mgr, err := scratch.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ws, err := mgr.Allocate("lesson-a")
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	stale := filepath.Join(ws.OutputDir, "segment-000.ts")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatalf("write stale file: %v", err)
	}

	if _, err := mgr.Allocate("lesson-a"); err != nil {
		t.Fatalf("re-Allocate: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale file removed, got %v", err)
	}
}

func TestReleaseRemovesWorkspace(t *testing.T) {
	mgr, err := scratch.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ws, err := mgr.Allocate("lesson-a")
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := mgr.Release("lesson-a"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(ws.Root); !os.IsNotExist(err) {
		t.Fatalf("expected workspace removed, got %v", err)
	}
	// Releasing again is a no-op.
	if err := mgr.Release("lesson-a"); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}

func TestAllocateRejectsUnusableIDs(t *testing.T) {
	mgr, err := scratch.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	// Ids with disallowed characters are rejected outright. Stripping them
	// instead would collapse distinct ids like "a/b" and "ab" onto one
	// workspace.
	for _, id := range []string{"", "   ", "../..", "/", "a/b", "a b", "a.b", "a\x00b"} {
		if _, err := mgr.Allocate(id); err == nil {
			t.Fatalf("expected error for lesson id %q", id)
		}
	}

	if _, err := mgr.Allocate("ab"); err != nil {
		t.Fatalf("plain id rejected: %v", err)
	}
}

func TestConcurrentWorkspacesAreDisjoint(t *testing.T) {
	mgr, err := scratch.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	const jobs = 16
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ids := make([]string, jobs)
	for i := range ids {
		ids[i] = fmt.Sprintf("lesson-%d-%d", i, rng.Intn(1_000_000))
	}

	roots := make([]string, jobs)
	var wg sync.WaitGroup
	errs := make(chan error, jobs)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			ws, err := mgr.Allocate(id)
			if err != nil {
				errs <- err
				return
			}
			roots[i] = ws.Root
			marker := filepath.Join(ws.DownloadDir, "source.mp4")
			if err := os.WriteFile(marker, []byte(id), 0o644); err != nil {
				errs <- err
			}
		}(i, id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent allocate: %v", err)
	}

	seen := make(map[string]struct{}, jobs)
	for i, root := range roots {
		if _, dup := seen[root]; dup {
			t.Fatalf("duplicate workspace root %s", root)
		}
		seen[root] = struct{}{}
		body, err := os.ReadFile(filepath.Join(root, "download", "source.mp4"))
		if err != nil {
			t.Fatalf("read marker: %v", err)
		}
		if string(body) != ids[i] {
			t.Fatalf("workspace %s contains %q, want %q", root, body, ids[i])
		}
	}
}

func TestSweepReapsOnlyStaleWorkspaces(t *testing.T) {
	mgr, err := scratch.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	staleWS, err := mgr.Allocate("stale")
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	freshWS, err := mgr.Allocate("fresh")
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	old := time.Now().Add(-48 * time.Hour)
	for _, dir := range []string{staleWS.Root, staleWS.DownloadDir, staleWS.OutputDir} {
		if err := os.Chtimes(dir, old, old); err != nil {
			t.Fatalf("age workspace: %v", err)
		}
	}

	removed, err := mgr.Sweep(24*time.Hour, nil)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(staleWS.Root); !os.IsNotExist(err) {
		t.Fatalf("stale workspace should be gone")
	}
	if _, err := os.Stat(freshWS.Root); err != nil {
		t.Fatalf("fresh workspace should remain: %v", err)
	}
}
