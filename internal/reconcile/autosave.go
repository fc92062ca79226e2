package reconcile

import (
	"context"
	"time"

	"codemate/internal/logging"
)

// StartAutoSave launches the periodic save loop. Files that are modified
// and free of external conflicts are saved through the regular save path
// (backups, journal, suppression included). Conflicted files are skipped:
// auto-save must never clobber an unresolved external edit.
// Calling Start on a running loop is a no-op.
func (e *Engine) StartAutoSave(ctx context.Context) {
	e.autoMu.Lock()
	defer e.autoMu.Unlock()
	if e.autoActive {
		return
	}
	e.autoActive = true
	e.autoStop = make(chan struct{})
	e.autoDone = make(chan struct{})

	interval := e.opts.AutoSaveInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	go e.autoSaveLoop(ctx, interval, e.autoStop, e.autoDone)
	logging.Reconcile("auto-save started (interval %s)", interval)
}

// StopAutoSave stops the loop and waits for it to finish. Idempotent.
func (e *Engine) StopAutoSave() {
	e.autoMu.Lock()
	if !e.autoActive {
		e.autoMu.Unlock()
		return
	}
	e.autoActive = false
	stop, done := e.autoStop, e.autoDone
	e.autoMu.Unlock()

	close(stop)
	<-done
	logging.Reconcile("auto-save stopped")
}

func (e *Engine) autoSaveLoop(ctx context.Context, interval time.Duration, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			e.autoSavePass()
		}
	}
}

// autoSavePass saves every modified, non-conflicted file once.
func (e *Engine) autoSavePass() {
	e.mu.Lock()
	type pending struct {
		path    string
		content string
	}
	var work []pending
	for path, state := range e.files {
		if state.Modified() && !state.Conflicted() {
			work = append(work, pending{path: path, content: state.EditorContent})
		}
	}
	e.mu.Unlock()

	for _, w := range work {
		if err := e.Save(w.path, w.content); err != nil {
			logging.ReconcileWarn("auto-save failed for %s: %v", w.path, err)
		} else {
			logging.ReconcileDebug("auto-saved %s", w.path)
		}
	}
}
