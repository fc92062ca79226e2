// Package reconcile is the file-system-facing state machine: it opens,
// creates, and saves files, tracks modified-vs-disk state per open file via
// content hashing, arbitrates collisions, and flags external edits without
// ever clobbering in-memory content. The last writer does not silently win.
package reconcile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"codemate/internal/config"
	"codemate/internal/history"
	"codemate/internal/logging"
)

// ExternalChangeKind classifies a watcher notification.
type ExternalChangeKind int

const (
	ExternalAdded ExternalChangeKind = iota
	ExternalModified
	ExternalRemoved
)

// Options configure the engine.
type Options struct {
	BackupEnabled     bool
	BackupRetention   int
	BackupDirName     string
	SuppressionWindow time.Duration
	AutoSaveInterval  time.Duration
}

// DefaultOptions mirror the config defaults.
func DefaultOptions() Options {
	return Options{
		BackupEnabled:     true,
		BackupRetention:   10,
		BackupDirName:     ".backups",
		SuppressionWindow: 500 * time.Millisecond,
		AutoSaveInterval:  30 * time.Second,
	}
}

// OptionsFromConfig maps the files section of the config onto Options.
func OptionsFromConfig(cfg *config.FilesConfig) Options {
	opts := DefaultOptions()
	opts.BackupEnabled = cfg.BackupEnabled
	if cfg.BackupRetention > 0 {
		opts.BackupRetention = cfg.BackupRetention
	}
	if cfg.BackupDirName != "" {
		opts.BackupDirName = cfg.BackupDirName
	}
	opts.SuppressionWindow = cfg.GetSuppressionWindow()
	opts.AutoSaveInterval = cfg.GetAutoSaveInterval()
	return opts
}

// Engine tracks open files and serializes operations per path. Calls
// against the same path never interleave; different paths proceed
// independently.
type Engine struct {
	mu       sync.Mutex
	files    map[string]*OpenFileState
	locks    map[string]*sync.Mutex
	suppress map[string]time.Time

	opts    Options
	journal history.Journal

	// auto-save loop lifecycle
	autoMu     sync.Mutex
	autoStop   chan struct{}
	autoDone   chan struct{}
	autoActive bool
}

// NewEngine builds an engine. A nil journal falls back to an in-memory one
// so engine code never has to nil-check.
func NewEngine(opts Options, journal history.Journal) *Engine {
	if journal == nil {
		journal = history.NewMemoryStore()
	}
	if opts.BackupDirName == "" {
		opts.BackupDirName = ".backups"
	}
	if opts.SuppressionWindow <= 0 {
		opts.SuppressionWindow = 500 * time.Millisecond
	}
	return &Engine{
		files:    make(map[string]*OpenFileState),
		locks:    make(map[string]*sync.Mutex),
		suppress: make(map[string]time.Time),
		opts:     opts,
		journal:  journal,
	}
}

// lockPath returns the per-path mutex, creating it on first use.
func (e *Engine) lockPath(path string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[path]
	if !ok {
		l = &sync.Mutex{}
		e.locks[path] = l
	}
	return l
}

// Open reads a file from disk and starts tracking it. Fails with
// ErrNotFound when the path does not exist.
func (e *Engine) Open(path string) (string, error) {
	path = filepath.Clean(path)
	l := e.lockPath(path)
	l.Lock()
	defer l.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.ReconcileWarn("open failed, not found: %s", path)
			return "", fmt.Errorf("open %s: %w", path, ErrNotFound)
		}
		logging.ReconcileError("open failed: %s - %v", path, err)
		return "", fmt.Errorf("open %s: %w", path, err)
	}

	content := string(data)
	state := &OpenFileState{
		Path:            path,
		EditorContent:   content,
		DiskContentHash: hashContent(content),
		Encoding:        "utf-8",
		LineEnding:      detectLineEnding(content),
	}

	e.mu.Lock()
	e.files[path] = state
	e.mu.Unlock()

	logging.Reconcile("opened %s (%d bytes, %s)", path, len(content), state.LineEnding)
	logging.Audit().LogFileOp(logging.AuditFileOpen, path, true, "")
	return content, nil
}

// Create writes a new file, honoring the collision policy when the target
// already exists. It returns the path actually written, which differs from
// the requested one under auto-rename.
func (e *Engine) Create(path, content string, policy CollisionPolicy) (string, error) {
	path = filepath.Clean(path)
	l := e.lockPath(path)
	l.Lock()
	defer l.Unlock()

	actual := path
	if _, err := os.Stat(path); err == nil {
		switch policy {
		case CollisionCancel:
			logging.ReconcileWarn("create cancelled, target exists: %s", path)
			return "", fmt.Errorf("create %s: %w", path, ErrCancelled)
		case CollisionOverwrite:
			logging.Reconcile("create overwriting existing file: %s", path)
		case CollisionAutoRename:
			actual = freeCopyName(path)
			logging.Reconcile("create auto-renamed %s -> %s", path, actual)
		}
	}

	if actual != path {
		al := e.lockPath(actual)
		al.Lock()
		defer al.Unlock()
	}

	if err := e.writeFile(actual, content); err != nil {
		logging.Audit().LogFileOp(logging.AuditFileCreate, actual, false, err.Error())
		return "", fmt.Errorf("create %s: %w", actual, err)
	}

	state := &OpenFileState{
		Path:            actual,
		EditorContent:   content,
		DiskContentHash: hashContent(content),
		Encoding:        "utf-8",
		LineEnding:      detectLineEnding(content),
	}
	e.mu.Lock()
	e.files[actual] = state
	e.mu.Unlock()

	rec := history.NewRecord(history.OpCreate, path)
	if actual != path {
		rec.Destination = actual
	}
	rec.Metadata = map[string]string{
		"policy": policy.String(),
		"bytes":  fmt.Sprintf("%d", len(content)),
	}
	if err := e.journal.Append(rec); err != nil {
		logging.ReconcileWarn("journal append failed for create %s: %v", actual, err)
	}

	logging.Audit().LogFileOp(logging.AuditFileCreate, actual, true, "")
	return actual, nil
}

// freeCopyName probes "{base}_copy{ext}", "{base}_copy2{ext}", ... until a
// path not present on disk is found.
func freeCopyName(path string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)

	candidate := base + "_copy" + ext
	for counter := 2; ; counter++ {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s_copy%d%s", base, counter, ext)
	}
}

// Save writes content to disk, taking a timestamped backup first when
// backups are enabled. On success the disk hash is recomputed and both
// external-change flags are cleared.
func (e *Engine) Save(path, content string) error {
	path = filepath.Clean(path)
	l := e.lockPath(path)
	l.Lock()
	defer l.Unlock()
	return e.saveLocked(path, content)
}

// saveLocked is Save with the per-path lock already held.
func (e *Engine) saveLocked(path, content string) error {
	timer := logging.StartTimer(logging.CategoryReconcile, "save "+path)
	defer timer.Stop()

	backedUp := false
	if e.opts.BackupEnabled {
		if _, err := os.Stat(path); err == nil {
			if backupPath, err := e.createBackup(path); err != nil {
				logging.ReconcileWarn("backup failed for %s: %v (saving anyway)", path, err)
			} else {
				backedUp = true
				logging.ReconcileDebug("backup written: %s", backupPath)
				logging.Audit().LogFileOp(logging.AuditFileBackup, backupPath, true, "")
			}
		}
	}

	if err := e.writeFile(path, content); err != nil {
		logging.ReconcileError("save failed: %s - %v", path, err)
		logging.Audit().LogFileOp(logging.AuditFileSave, path, false, err.Error())
		return fmt.Errorf("save %s: %w", path, err)
	}

	hash := hashContent(content)
	e.mu.Lock()
	state, ok := e.files[path]
	if !ok {
		state = &OpenFileState{
			Path:       path,
			Encoding:   "utf-8",
			LineEnding: detectLineEnding(content),
		}
		e.files[path] = state
	}
	state.EditorContent = content
	state.DiskContentHash = hash
	state.ExternallyModified = false
	state.ExternallyDeleted = false
	e.mu.Unlock()

	rec := history.NewRecord(history.OpSave, path)
	rec.Metadata = map[string]string{
		"bytes":  fmt.Sprintf("%d", len(content)),
		"backup": fmt.Sprintf("%t", backedUp),
	}
	if err := e.journal.Append(rec); err != nil {
		logging.ReconcileWarn("journal append failed for save %s: %v", path, err)
	}

	logging.Reconcile("saved %s (%d bytes)", path, len(content))
	logging.Audit().LogFileOp(logging.AuditFileSave, path, true, "")
	return nil
}

// writeFile performs the raw write, arming the self-echo suppression
// window first so the watcher's detection of this write is not reported
// back as an external change.
func (e *Engine) writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	e.touchSuppression(path)
	return os.WriteFile(path, []byte(content), 0644)
}

// UpdateEditorContent replaces the in-memory content of a tracked file.
// Nothing is written to disk; the modified flag follows from the hash.
func (e *Engine) UpdateEditorContent(path, content string) error {
	path = filepath.Clean(path)
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.files[path]
	if !ok {
		return fmt.Errorf("update %s: %w", path, ErrNotTracked)
	}
	state.EditorContent = content
	return nil
}

// OnExternalChange records a watcher notification for a tracked path. It
// only sets flags - editor content is never overwritten here; the conflict
// is surfaced for the caller to resolve. Returns true when a tracked entry
// was flagged, false for untracked paths and suppressed self-echoes.
func (e *Engine) OnExternalChange(path string, kind ExternalChangeKind) bool {
	path = filepath.Clean(path)

	e.mu.Lock()
	defer e.mu.Unlock()

	if expiry, ok := e.suppress[path]; ok {
		if time.Now().Before(expiry) {
			logging.ReconcileDebug("self-echo suppressed for %s", path)
			logging.Audit().LogFileOp(logging.AuditEchoSuppressed, path, true, "")
			return false
		}
		delete(e.suppress, path)
	}

	state, ok := e.files[path]
	if !ok {
		return false
	}

	switch kind {
	case ExternalModified, ExternalAdded:
		state.ExternallyModified = true
		logging.Reconcile("external modification flagged: %s", path)
	case ExternalRemoved:
		state.ExternallyDeleted = true
		logging.Reconcile("external deletion flagged: %s", path)
	}
	logging.Audit().LogFileOp(logging.AuditExternalChange, path, true, "")
	return true
}

// touchSuppression arms the per-path self-echo window.
func (e *Engine) touchSuppression(path string) {
	now := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()
	// Opportunistic pruning keeps the map from growing with dead entries.
	for p, expiry := range e.suppress {
		if now.After(expiry) {
			delete(e.suppress, p)
		}
	}
	e.suppress[path] = now.Add(e.opts.SuppressionWindow)
}

// Reload re-reads the file from disk, replacing editor content and
// clearing the external-change flags. Used to resolve a conflict in favor
// of the on-disk version.
func (e *Engine) Reload(path string) (string, error) {
	path = filepath.Clean(path)
	l := e.lockPath(path)
	l.Lock()
	defer l.Unlock()

	e.mu.Lock()
	_, tracked := e.files[path]
	e.mu.Unlock()
	if !tracked {
		return "", fmt.Errorf("reload %s: %w", path, ErrNotTracked)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("reload %s: %w", path, ErrNotFound)
		}
		return "", fmt.Errorf("reload %s: %w", path, err)
	}

	content := string(data)
	e.mu.Lock()
	state := e.files[path]
	state.EditorContent = content
	state.DiskContentHash = hashContent(content)
	state.LineEnding = detectLineEnding(content)
	state.ExternallyModified = false
	state.ExternallyDeleted = false
	e.mu.Unlock()

	logging.Reconcile("reloaded %s (%d bytes)", path, len(content))
	return content, nil
}

// Close removes a file from tracking. Unsaved edits require an explicit
// resolution; the engine never silently discards them. On-disk content is
// left alone except under CloseSave.
func (e *Engine) Close(path string, resolution CloseResolution) error {
	path = filepath.Clean(path)
	l := e.lockPath(path)
	l.Lock()
	defer l.Unlock()

	e.mu.Lock()
	state, ok := e.files[path]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("close %s: %w", path, ErrNotTracked)
	}
	modified := state.Modified()
	content := state.EditorContent
	e.mu.Unlock()

	if modified {
		switch resolution {
		case CloseSave:
			if err := e.saveLocked(path, content); err != nil {
				return err
			}
		case CloseDiscard:
			logging.Reconcile("closing %s, discarding unsaved edits", path)
		case CloseCancel:
			return fmt.Errorf("close %s: %w", path, ErrUnsavedChanges)
		}
	}

	// The per-path mutex stays in the map: a waiter may already hold a
	// reference to it, and a reopened file reuses it.
	e.mu.Lock()
	delete(e.files, path)
	e.mu.Unlock()

	logging.Audit().LogFileOp(logging.AuditFileClose, path, true, "")
	return nil
}

// State returns a snapshot of the tracked state for a path.
func (e *Engine) State(path string) (OpenFileState, bool) {
	path = filepath.Clean(path)
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.files[path]
	if !ok {
		return OpenFileState{}, false
	}
	return *state, true
}

// OpenPaths returns the tracked paths, sorted.
func (e *Engine) OpenPaths() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	paths := make([]string, 0, len(e.files))
	for p := range e.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
