package infra

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetWorkDirCreatesDirectory(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	dir, err := GetWorkDir(base, "nested", "db")
	if err != nil {
		t.Fatalf("get work dir: %v", err)
	}
	if dir != filepath.Join(base, "nested", "db") {
		t.Fatalf("unexpected dir %q", dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("dir not created: %v", err)
	}
}

func TestMonitorFileSignalsOnChange(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	file := filepath.Join(t.TempDir(), "bin")
	if err := os.WriteFile(file, []byte("v1"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	ch := monitorFile(ctx, file, 5*time.Millisecond)

	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(file, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("no change signal")
	}
}

func TestMonitorFileClosesWhenFileMissing(t *testing.T) {
	t.Parallel()

	ch := monitorFile(context.Background(), filepath.Join(t.TempDir(), "missing"), time.Millisecond)
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("unexpected change signal")
		}
	default:
		t.Fatalf("channel should be closed on return")
	}
}

func TestMonitorFileStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	file := filepath.Join(t.TempDir(), "bin")
	if err := os.WriteFile(file, []byte("v1"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	ch := monitorFile(ctx, file, 5*time.Millisecond)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("unexpected change signal")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("monitor did not stop")
	}
}

func TestGoRecoverableRestartsUntilBudgetSpent(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	exhausted := make(chan struct{})
	GoRecoverable(2, "test", func() {
		runs.Add(1)
		panic("boom")
	}, func() { close(exhausted) })

	select {
	case <-exhausted:
	case <-time.After(2 * time.Second):
		t.Fatalf("budget never exhausted")
	}
	if got := runs.Load(); got != 3 {
		t.Fatalf("runs = %d, want 3", got)
	}
}
