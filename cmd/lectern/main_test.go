package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig creates a config file rooted in a temp directory and
// returns its path.
func writeTestConfig(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	content := fmt.Sprintf(`[paths]
data_dir = %q
scratch_dir = %q
log_dir = %q

[object_store]
endpoint = "127.0.0.1:9000"
access_key = "test"
secret_key = "test"
bucket = "lectern-test"
`,
		filepath.Join(base, "data"),
		filepath.Join(base, "scratch"),
		filepath.Join(base, "logs"),
	)
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("output %q does not contain %q", output, want)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// Refuses to clobber an existing file.
	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatalf("expected error when config already exists")
	}
}

func TestEnqueueAndQueueList(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, "--config", configPath, "enqueue", "uploads/lesson-1/raw.mp4", "--lesson", "lesson-1")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	requireContains(t, out, "queued job")
	requireContains(t, out, "lesson-1")

	out, err = runCLI(t, "--config", configPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "lesson-1")
	requireContains(t, out, "pending")
}

func TestEnqueueGeneratesLessonID(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, "--config", configPath, "enqueue", "uploads/raw.mp4")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	requireContains(t, out, "queued job")
}

func TestQueueListEmpty(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, "--config", configPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "queue is empty")
}

func TestQueueRetryRejectsBadID(t *testing.T) {
	configPath := writeTestConfig(t)

	if _, err := runCLI(t, "--config", configPath, "queue", "retry", "not-a-number"); err == nil {
		t.Fatalf("expected error for invalid id")
	}
}

func TestConfigShowMasksSecret(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, "--config", configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "********")
	if strings.Contains(strings.ReplaceAll(out, "********", ""), "secret_key = \"test\"") {
		t.Fatalf("secret leaked in output: %s", out)
	}
}

func TestStatusRendersSummaries(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, "--config", configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Jobs")
	requireContains(t, out, "Lessons")
	requireContains(t, out, "FFmpeg")
}
