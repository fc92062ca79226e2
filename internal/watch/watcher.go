// Package watch detects external filesystem changes under the project root
// and reports them, debounced, to a handler. Rapid save bursts from editors
// and build tools collapse into a single notification per path.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"codemate/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// EventKind classifies a settled filesystem change.
type EventKind int

const (
	Added EventKind = iota
	Modified
	Removed
)

func (k EventKind) String() string {
	switch k {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is a debounced change notification for a single path.
type Event struct {
	Path string
	Kind EventKind
}

// Handler receives settled events. It is called from the watcher goroutine,
// one event at a time.
type Handler func(Event)

// Stats tracks watcher activity for debugging.
type Stats struct {
	FilesAdded    int
	FilesModified int
	FilesRemoved  int
	Delivered     int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
}

type pendingEvent struct {
	kind EventKind
	at   time.Time
}

// Watcher monitors a directory tree recursively. New subdirectories are
// picked up as they appear; directories in the ignore list are skipped
// entirely.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	root        string
	ignoreDirs  map[string]struct{}
	handler     Handler
	debounceMap map[string]pendingEvent
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats Stats
}

// New creates a watcher for the given root. The handler is invoked for each
// settled event; ignoreDirs are matched against path segments (".git",
// "node_modules", ...).
func New(root string, debounce time.Duration, ignoreDirs []string, handler Handler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	ignore := make(map[string]struct{}, len(ignoreDirs))
	for _, d := range ignoreDirs {
		ignore[d] = struct{}{}
	}

	return &Watcher{
		watcher:     fsw,
		root:        filepath.Clean(root),
		ignoreDirs:  ignore,
		handler:     handler,
		debounceMap: make(map[string]pendingEvent),
		debounceDur: debounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start registers the directory tree and begins delivering events. It is
// non-blocking; the event loop runs in its own goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addTree(w.root); err != nil {
		logging.WatchWarn("initial tree registration incomplete: %v", err)
	}
	logging.Watch("watching %s (debounce %s)", w.root, w.debounceDur)

	go w.run(ctx)
	return nil
}

// Stop shuts the watcher down and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		// Never started, or already stopped; fsnotify Close is idempotent.
		w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("close failed: %v", err)
	}
	logging.Watch("stopped")
}

// IsWatching reports whether the event loop is running.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// WatchedDirs returns the directories currently registered.
func (w *Watcher) WatchedDirs() []string {
	return w.watcher.WatchList()
}

// addTree walks dir and registers every non-ignored directory.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, skip
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			logging.WatchWarn("cannot watch %s: %v", path, err)
		}
		return nil
	})
}

// ignored reports whether any segment of the path relative to the root is
// in the ignore set.
func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		if _, ok := w.ignoreDirs[seg]; ok {
			return true
		}
	}
	return false
}

// run is the event loop: raw events land in the debounce map, a ticker
// flushes settled ones to the handler.
func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	flushTicker := time.NewTicker(100 * time.Millisecond)
	defer flushTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Watch("context cancelled")
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatch).Error("watch error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-flushTicker.C:
			w.flushSettled()
		}
	}
}

// handleEvent records a raw fsnotify event in the debounce map.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if w.ignored(event.Name) {
		return
	}

	var kind EventKind
	switch {
	case event.Op&fsnotify.Create != 0:
		kind = Added
		// A created directory extends the watched tree.
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err == nil {
				logging.WatchDebug("added new directory: %s", event.Name)
			}
			return
		}
	case event.Op&fsnotify.Write != 0:
		kind = Modified
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		kind = Removed
	default:
		return // chmod etc.
	}

	logging.WatchDebug("%s event for %s", kind, event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = event.Name
	switch kind {
	case Added:
		w.stats.FilesAdded++
	case Modified:
		w.stats.FilesModified++
	case Removed:
		w.stats.FilesRemoved++
	}

	// Later events for the same path win, with one exception: the write
	// that lands right after a create is still part of the creation, so a
	// pending Added keeps its kind. A remove always wins.
	if prev, ok := w.debounceMap[event.Name]; ok && prev.kind == Added && kind == Modified {
		kind = Added
	}
	w.debounceMap[event.Name] = pendingEvent{kind: kind, at: time.Now()}
}

// flushSettled delivers events whose last activity is older than the
// debounce window.
func (w *Watcher) flushSettled() {
	w.mu.Lock()
	now := time.Now()
	var due []Event
	for path, pending := range w.debounceMap {
		if now.Sub(pending.at) >= w.debounceDur {
			due = append(due, Event{Path: path, Kind: pending.kind})
			delete(w.debounceMap, path)
		}
	}
	w.stats.Delivered += len(due)
	w.mu.Unlock()

	for _, ev := range due {
		if w.handler != nil {
			w.handler(ev)
		}
	}
}

// GetStats returns a snapshot of the watcher statistics.
func (w *Watcher) GetStats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// ResetStats clears the watcher statistics.
func (w *Watcher) ResetStats() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats = Stats{}
}
