// Package watcher polls a repository for source changes and triggers
// rescans. Polling with mtime+size snapshots avoids platform watch APIs and
// their descriptor limits on large trees; the interval adapts to tree size.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/routelab/routemap/internal/discover"
)

const (
	baseInterval = 1 * time.Second
	maxInterval  = 60 * time.Second
)

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

// RescanFunc is the callback invoked when the watched tree changed.
type RescanFunc func(ctx context.Context) error

// Watcher polls one repository for file changes.
type Watcher struct {
	root     string
	rescan   RescanFunc
	snapshot map[string]fileSnapshot
	interval time.Duration
}

// New creates a Watcher over a repository root. rescan is called when a
// change is detected.
func New(root string, rescan RescanFunc) *Watcher {
	return &Watcher{root: root, rescan: rescan, interval: baseInterval}
}

// Run blocks until ctx is cancelled. The first poll captures a baseline
// without triggering a rescan; the caller is expected to have scanned once
// already.
func (w *Watcher) Run(ctx context.Context) {
	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			w.poll(ctx)
			timer.Reset(w.interval)
		}
	}
}

// poll captures a snapshot of the file tree and compares with the previous
// one, rescanning on any difference.
func (w *Watcher) poll(ctx context.Context) {
	if _, err := os.Stat(w.root); err != nil {
		slog.Warn("watcher.root_gone", "path", w.root)
		w.interval = maxInterval
		return
	}

	snap, err := captureSnapshot(ctx, w.root)
	if err != nil {
		slog.Warn("watcher.snapshot", "err", err)
		return
	}
	w.interval = pollInterval(len(snap))

	if w.snapshot == nil {
		slog.Debug("watcher.baseline", "files", len(snap))
		w.snapshot = snap
		return
	}
	if snapshotsEqual(w.snapshot, snap) {
		return
	}

	slog.Info("watcher.changed", "files", len(snap))
	if err := w.rescan(ctx); err != nil {
		slog.Warn("watcher.rescan", "err", err)
		// Keep the old snapshot so the next cycle retries.
		return
	}
	w.snapshot = snap
}

// captureSnapshot walks the tree with discover.Discover and records
// mtime+size for each source file.
func captureSnapshot(ctx context.Context, root string) (map[string]fileSnapshot, error) {
	files, err := discover.Discover(ctx, root, nil)
	if err != nil {
		return nil, err
	}
	snap := make(map[string]fileSnapshot, len(files))
	for _, f := range files {
		info, statErr := os.Stat(f.Path)
		if statErr != nil {
			continue
		}
		snap[f.RelPath] = fileSnapshot{modTime: info.ModTime(), size: info.Size()}
	}
	return snap, nil
}

// snapshotsEqual reports whether two snapshots hold identical files with the
// same mtime+size.
func snapshotsEqual(a, b map[string]fileSnapshot) bool {
	if len(a) != len(b) {
		return false
	}
	for path, aSnap := range a {
		bSnap, ok := b[path]
		if !ok {
			return false
		}
		if !aSnap.modTime.Equal(bSnap.modTime) || aSnap.size != bSnap.size {
			return false
		}
	}
	return true
}

// pollInterval computes the adaptive interval from file count.
// 1s base + 1s per 500 files, capped at 60s.
func pollInterval(fileCount int) time.Duration {
	ms := 1000 + (fileCount/500)*1000
	if ms > 60000 {
		ms = 60000
	}
	return time.Duration(ms) * time.Millisecond
}
