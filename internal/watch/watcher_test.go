package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventCollector struct {
	mu     sync.Mutex
	events []Event
}

func (c *eventCollector) handle(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *eventCollector) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

// waitFor polls until the predicate holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, pred func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if pred() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return pred()
}

func startWatcher(t *testing.T, root string, debounce time.Duration, ignore []string) (*Watcher, *eventCollector) {
	t.Helper()
	collector := &eventCollector{}
	w, err := New(root, debounce, ignore, collector.handle)
	require.NoError(t, err)
	require.NoError(t, w.Start(t.Context()))
	t.Cleanup(w.Stop)
	return w, collector
}

func TestDetectsNewFile(t *testing.T) {
	root := t.TempDir()
	_, collector := startWatcher(t, root, 50*time.Millisecond, nil)

	path := filepath.Join(root, "hello.py")
	require.NoError(t, os.WriteFile(path, []byte("print(1)"), 0644))

	ok := waitFor(t, 3*time.Second, func() bool {
		return len(collector.snapshot()) > 0
	})
	require.True(t, ok, "expected an event for the new file")

	events := collector.snapshot()
	assert.Equal(t, path, events[0].Path)
	assert.Equal(t, Added, events[0].Kind)
}

func TestDebounceCollapsesRapidWrites(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "burst.txt")
	require.NoError(t, os.WriteFile(path, []byte("v0"), 0644))

	_, collector := startWatcher(t, root, 200*time.Millisecond, nil)

	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(path, []byte("rapid"), 0644))
		time.Sleep(10 * time.Millisecond)
	}

	ok := waitFor(t, 3*time.Second, func() bool {
		return len(collector.snapshot()) > 0
	})
	require.True(t, ok)

	// Give any stragglers a chance to surface, then assert the burst
	// collapsed into a single notification.
	time.Sleep(500 * time.Millisecond)
	events := collector.snapshot()
	assert.Len(t, events, 1)
	assert.Equal(t, Modified, events[0].Kind)
}

func TestWritesAfterCreateStillSurfaceAsAdded(t *testing.T) {
	root := t.TempDir()
	_, collector := startWatcher(t, root, 200*time.Millisecond, nil)

	// inotify reports a create followed by writes for the same new file;
	// the coalesced event must keep the file's first appearance as Added.
	path := filepath.Join(root, "fresh.txt")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("v3"), 0644))

	ok := waitFor(t, 3*time.Second, func() bool {
		return len(collector.snapshot()) > 0
	})
	require.True(t, ok)

	events := collector.snapshot()
	assert.Len(t, events, 1)
	assert.Equal(t, Added, events[0].Kind)
}

func TestRemovalWinsOverEarlierWrite(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "doomed.txt")
	require.NoError(t, os.WriteFile(path, []byte("v0"), 0644))

	_, collector := startWatcher(t, root, 150*time.Millisecond, nil)

	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))
	require.NoError(t, os.Remove(path))

	ok := waitFor(t, 3*time.Second, func() bool {
		events := collector.snapshot()
		return len(events) > 0 && events[len(events)-1].Kind == Removed
	})
	require.True(t, ok, "remove after write must surface as a removal")
}

func TestIgnoredDirectoriesProduceNoEvents(t *testing.T) {
	root := t.TempDir()
	gitDir := filepath.Join(root, ".git")
	require.NoError(t, os.MkdirAll(gitDir, 0755))

	_, collector := startWatcher(t, root, 50*time.Millisecond, []string{".git"})

	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "index"), []byte("x"), 0644))
	visible := filepath.Join(root, "seen.txt")
	require.NoError(t, os.WriteFile(visible, []byte("x"), 0644))

	ok := waitFor(t, 3*time.Second, func() bool {
		for _, ev := range collector.snapshot() {
			if ev.Path == visible {
				return true
			}
		}
		return false
	})
	require.True(t, ok)

	for _, ev := range collector.snapshot() {
		assert.NotContains(t, ev.Path, ".git", "ignored directory leaked an event")
	}
}

func TestNewSubdirectoryIsPickedUp(t *testing.T) {
	root := t.TempDir()
	_, collector := startWatcher(t, root, 50*time.Millisecond, nil)

	subdir := filepath.Join(root, "pkg")
	require.NoError(t, os.MkdirAll(subdir, 0755))
	// The watcher registers the new directory asynchronously.
	time.Sleep(300 * time.Millisecond)

	path := filepath.Join(subdir, "new.go")
	require.NoError(t, os.WriteFile(path, []byte("package pkg"), 0644))

	ok := waitFor(t, 3*time.Second, func() bool {
		for _, ev := range collector.snapshot() {
			if ev.Path == path {
				return true
			}
		}
		return false
	})
	require.True(t, ok, "file in newly created subdirectory must be seen")
}

func TestStartAndStopAreIdempotent(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, 50*time.Millisecond, nil, nil)
	require.NoError(t, err)

	require.NoError(t, w.Start(t.Context()))
	require.NoError(t, w.Start(t.Context()))
	assert.True(t, w.IsWatching())

	w.Stop()
	w.Stop()
	assert.False(t, w.IsWatching())
}

func TestStatsTrackActivity(t *testing.T) {
	root := t.TempDir()
	w, collector := startWatcher(t, root, 50*time.Millisecond, nil)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0644))
	waitFor(t, 3*time.Second, func() bool {
		return len(collector.snapshot()) > 0
	})

	stats := w.GetStats()
	assert.Greater(t, stats.FilesAdded, 0)
	assert.Greater(t, stats.Delivered, 0)

	w.ResetStats()
	assert.Equal(t, Stats{}, w.GetStats())
}
