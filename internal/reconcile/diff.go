package reconcile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffSummary quantifies the divergence between editor content and the
// current on-disk content, for surfacing external-edit conflicts.
type DiffSummary struct {
	InsertedLines int // lines present on disk but not in the editor
	DeletedLines  int // lines present in the editor but not on disk
	Identical     bool
}

// String renders the summary in the familiar +n/-m form.
func (d DiffSummary) String() string {
	if d.Identical {
		return "identical"
	}
	return fmt.Sprintf("+%d/-%d lines", d.InsertedLines, d.DeletedLines)
}

// ExternalDiffSummary diffs the tracked editor content of path against
// whatever is on disk right now. Fails with ErrNotTracked for unknown
// paths and ErrNotFound when the disk copy is gone.
func (e *Engine) ExternalDiffSummary(path string) (DiffSummary, error) {
	path = filepath.Clean(path)

	e.mu.Lock()
	state, ok := e.files[path]
	var editorContent string
	if ok {
		editorContent = state.EditorContent
	}
	e.mu.Unlock()
	if !ok {
		return DiffSummary{}, fmt.Errorf("diff %s: %w", path, ErrNotTracked)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DiffSummary{}, fmt.Errorf("diff %s: %w", path, ErrNotFound)
		}
		return DiffSummary{}, fmt.Errorf("diff %s: %w", path, err)
	}
	diskContent := string(data)

	if editorContent == diskContent {
		return DiffSummary{Identical: true}, nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(editorContent, diskContent, true)
	dmp.DiffCleanupSemantic(diffs)

	var summary DiffSummary
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			summary.InsertedLines += countLines(d.Text)
		case diffmatchpatch.DiffDelete:
			summary.DeletedLines += countLines(d.Text)
		}
	}
	return summary, nil
}

// countLines counts the lines a diff fragment spans, minimum one for any
// non-empty fragment.
func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
