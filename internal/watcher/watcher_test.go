package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestSnapshotsEqual(t *testing.T) {
	now := time.Now()

	a := map[string]fileSnapshot{
		"main.go": {modTime: now, size: 100},
		"util.go": {modTime: now, size: 200},
	}
	b := map[string]fileSnapshot{
		"main.go": {modTime: now, size: 100},
		"util.go": {modTime: now, size: 200},
	}
	if !snapshotsEqual(a, b) {
		t.Error("identical snapshots should be equal")
	}

	c := map[string]fileSnapshot{
		"main.go": {modTime: now, size: 101},
		"util.go": {modTime: now, size: 200},
	}
	if snapshotsEqual(a, c) {
		t.Error("different size should not be equal")
	}

	d := map[string]fileSnapshot{
		"main.go": {modTime: now.Add(time.Second), size: 100},
		"util.go": {modTime: now, size: 200},
	}
	if snapshotsEqual(a, d) {
		t.Error("different mtime should not be equal")
	}

	e := map[string]fileSnapshot{
		"main.go": {modTime: now, size: 100},
	}
	if snapshotsEqual(a, e) {
		t.Error("different file count should not be equal")
	}
}

func TestPollInterval(t *testing.T) {
	cases := []struct {
		files int
		want  time.Duration
	}{
		{0, time.Second},
		{499, time.Second},
		{500, 2 * time.Second},
		{5000, 11 * time.Second},
		{1000000, 60 * time.Second},
	}
	for _, tc := range cases {
		if got := pollInterval(tc.files); got != tc.want {
			t.Errorf("pollInterval(%d) = %v, want %v", tc.files, got, tc.want)
		}
	}
}

func TestPollDetectsChange(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "routes.go")
	if err := os.WriteFile(path, []byte("package api\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var rescans atomic.Int32
	w := New(root, func(ctx context.Context) error {
		rescans.Add(1)
		return nil
	})

	// First poll captures the baseline without rescanning.
	w.poll(context.Background())
	if n := rescans.Load(); n != 0 {
		t.Fatalf("rescans after baseline = %d, want 0", n)
	}

	// Unchanged tree: no rescan.
	w.poll(context.Background())
	if n := rescans.Load(); n != 0 {
		t.Fatalf("rescans on unchanged tree = %d, want 0", n)
	}

	// Grow the file so size differs even if mtime granularity is coarse.
	if err := os.WriteFile(path, []byte("package api\n\n//route:GET /x\nfunc X() {}\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	w.poll(context.Background())
	if n := rescans.Load(); n != 1 {
		t.Fatalf("rescans after change = %d, want 1", n)
	}
}

func TestPollKeepsSnapshotOnRescanError(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "routes.go")
	if err := os.WriteFile(path, []byte("package api\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var calls atomic.Int32
	w := New(root, func(ctx context.Context) error {
		calls.Add(1)
		return context.DeadlineExceeded
	})

	w.poll(context.Background())
	if err := os.WriteFile(path, []byte("package api\n// changed\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	// Failed rescan keeps the old snapshot, so the next poll retries.
	w.poll(context.Background())
	w.poll(context.Background())
	if n := calls.Load(); n != 2 {
		t.Fatalf("rescan attempts = %d, want 2 (retry after failure)", n)
	}
}
