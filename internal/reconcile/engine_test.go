package reconcile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codemate/internal/history"
)

func newTestEngine(t *testing.T, opts Options) (*Engine, *history.MemoryStore) {
	t.Helper()
	journal := history.NewMemoryStore()
	return NewEngine(opts, journal), journal
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestOpenMissingFileIsNotFound(t *testing.T) {
	e, _ := newTestEngine(t, DefaultOptions())

	_, err := e.Open(filepath.Join(t.TempDir(), "ghost.py"))

	require.ErrorIs(t, err, ErrNotFound)
}

func TestOpenTracksStateAndIsUnmodified(t *testing.T) {
	e, _ := newTestEngine(t, DefaultOptions())
	path := filepath.Join(t.TempDir(), "app.py")
	writeFile(t, path, "print(1)\n")

	content, err := e.Open(path)
	require.NoError(t, err)
	assert.Equal(t, "print(1)\n", content)

	state, ok := e.State(path)
	require.True(t, ok)
	assert.False(t, state.Modified())
	assert.Equal(t, LineEndingLF, state.LineEnding)
	assert.Equal(t, "utf-8", state.Encoding)
}

// modifiedFlag = hash(editorContent) != diskContentHash, recomputed on
// every content change rather than stored.
func TestHashBasedModifiedDetection(t *testing.T) {
	e, _ := newTestEngine(t, DefaultOptions())
	path := filepath.Join(t.TempDir(), "app.py")
	writeFile(t, path, "v1")

	_, err := e.Open(path)
	require.NoError(t, err)

	require.NoError(t, e.UpdateEditorContent(path, "v2"))
	state, _ := e.State(path)
	assert.True(t, state.Modified(), "divergent content must read as modified")

	require.NoError(t, e.UpdateEditorContent(path, "v1"))
	state, _ = e.State(path)
	assert.False(t, state.Modified(), "reverting content must clear modified")

	require.NoError(t, e.Save(path, "v3"))
	state, _ = e.State(path)
	assert.False(t, state.Modified(), "save must leave the file unmodified")
}

func TestCreateCollisionPolicies(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "app.py")
	writeFile(t, existing, "original")

	t.Run("cancel leaves disk untouched", func(t *testing.T) {
		e, _ := newTestEngine(t, DefaultOptions())
		_, err := e.Create(existing, "new", CollisionCancel)
		require.ErrorIs(t, err, ErrCancelled)

		data, _ := os.ReadFile(existing)
		assert.Equal(t, "original", string(data))
	})

	t.Run("overwrite replaces content", func(t *testing.T) {
		e, _ := newTestEngine(t, Options{BackupDirName: ".backups"})
		actual, err := e.Create(existing, "replaced", CollisionOverwrite)
		require.NoError(t, err)
		assert.Equal(t, existing, actual)

		data, _ := os.ReadFile(existing)
		assert.Equal(t, "replaced", string(data))
		writeFile(t, existing, "original") // restore for sibling subtests
	})

	t.Run("autorename probes copy names", func(t *testing.T) {
		e, _ := newTestEngine(t, DefaultOptions())
		writeFile(t, filepath.Join(dir, "app_copy.py"), "taken")

		actual, err := e.Create(existing, "fresh", CollisionAutoRename)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "app_copy2.py"), actual)

		data, _ := os.ReadFile(existing)
		assert.Equal(t, "original", string(data), "existing file must never be overwritten")
		data, _ = os.ReadFile(actual)
		assert.Equal(t, "fresh", string(data))
	})
}

func TestCreateJournalsRequestedAndActualPath(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "a.txt")
	writeFile(t, existing, "x")

	e, journal := newTestEngine(t, DefaultOptions())
	actual, err := e.Create(existing, "y", CollisionAutoRename)
	require.NoError(t, err)

	recs, err := journal.ByPath(existing, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, history.OpCreate, recs[0].Type)
	assert.Equal(t, existing, recs[0].Source)
	assert.Equal(t, actual, recs[0].Destination)
}

// onExternalChange sets flags only; editor content must survive untouched.
func TestExternalChangeNeverClobbersEditorContent(t *testing.T) {
	e, _ := newTestEngine(t, Options{SuppressionWindow: time.Nanosecond})
	path := filepath.Join(t.TempDir(), "app.py")
	writeFile(t, path, "disk v1")

	_, err := e.Open(path)
	require.NoError(t, err)
	require.NoError(t, e.UpdateEditorContent(path, "editor v2"))

	writeFile(t, path, "disk v3")
	time.Sleep(time.Millisecond)
	flagged := e.OnExternalChange(path, ExternalModified)
	require.True(t, flagged)

	state, _ := e.State(path)
	assert.Equal(t, "editor v2", state.EditorContent)
	assert.True(t, state.ExternallyModified)
	assert.False(t, state.ExternallyDeleted)
}

func TestExternalRemovalKeepsEntry(t *testing.T) {
	e, _ := newTestEngine(t, Options{SuppressionWindow: time.Nanosecond})
	path := filepath.Join(t.TempDir(), "app.py")
	writeFile(t, path, "content")

	_, err := e.Open(path)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	time.Sleep(time.Millisecond)
	require.True(t, e.OnExternalChange(path, ExternalRemoved))

	state, ok := e.State(path)
	require.True(t, ok, "deleted-but-open file keeps its entry")
	assert.True(t, state.ExternallyDeleted)
	assert.Equal(t, "content", state.EditorContent)
}

func TestSelfEchoSuppression(t *testing.T) {
	e, _ := newTestEngine(t, Options{SuppressionWindow: 150 * time.Millisecond})
	path := filepath.Join(t.TempDir(), "app.py")

	require.NoError(t, e.Save(path, "v1"))

	// Watcher echo of our own write, inside the window: ignored.
	assert.False(t, e.OnExternalChange(path, ExternalModified))
	state, _ := e.State(path)
	assert.False(t, state.ExternallyModified, "self-echo must not flag the file")

	// A genuinely external change after the window: flagged.
	time.Sleep(200 * time.Millisecond)
	assert.True(t, e.OnExternalChange(path, ExternalModified))
	state, _ = e.State(path)
	assert.True(t, state.ExternallyModified)
}

func TestSaveClearsExternalFlags(t *testing.T) {
	e, _ := newTestEngine(t, Options{SuppressionWindow: time.Nanosecond})
	path := filepath.Join(t.TempDir(), "app.py")
	writeFile(t, path, "v1")

	_, err := e.Open(path)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	e.OnExternalChange(path, ExternalModified)

	require.NoError(t, e.Save(path, "v2"))

	state, _ := e.State(path)
	assert.False(t, state.ExternallyModified)
	assert.False(t, state.ExternallyDeleted)
}

func TestCloseRequiresResolutionForUnsavedEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.py")
	writeFile(t, path, "v1")

	t.Run("cancel keeps entry", func(t *testing.T) {
		e, _ := newTestEngine(t, DefaultOptions())
		_, err := e.Open(path)
		require.NoError(t, err)
		require.NoError(t, e.UpdateEditorContent(path, "dirty"))

		err = e.Close(path, CloseCancel)
		require.ErrorIs(t, err, ErrUnsavedChanges)
		_, ok := e.State(path)
		assert.True(t, ok)
	})

	t.Run("save writes then removes", func(t *testing.T) {
		e, _ := newTestEngine(t, Options{})
		_, err := e.Open(path)
		require.NoError(t, err)
		require.NoError(t, e.UpdateEditorContent(path, "dirty"))

		require.NoError(t, e.Close(path, CloseSave))
		_, ok := e.State(path)
		assert.False(t, ok)
		data, _ := os.ReadFile(path)
		assert.Equal(t, "dirty", string(data))
	})

	t.Run("discard drops edits", func(t *testing.T) {
		writeFile(t, path, "v1")
		e, _ := newTestEngine(t, DefaultOptions())
		_, err := e.Open(path)
		require.NoError(t, err)
		require.NoError(t, e.UpdateEditorContent(path, "dirty"))

		require.NoError(t, e.Close(path, CloseDiscard))
		_, ok := e.State(path)
		assert.False(t, ok)
		data, _ := os.ReadFile(path)
		assert.Equal(t, "v1", string(data))
	})

	t.Run("clean close needs no resolution", func(t *testing.T) {
		writeFile(t, path, "v1")
		e, _ := newTestEngine(t, DefaultOptions())
		_, err := e.Open(path)
		require.NoError(t, err)
		require.NoError(t, e.Close(path, CloseCancel))
	})
}

func TestReloadResolvesConflictFromDisk(t *testing.T) {
	e, _ := newTestEngine(t, Options{SuppressionWindow: time.Nanosecond})
	path := filepath.Join(t.TempDir(), "app.py")
	writeFile(t, path, "v1")

	_, err := e.Open(path)
	require.NoError(t, err)
	require.NoError(t, e.UpdateEditorContent(path, "editor edit"))

	writeFile(t, path, "external edit")
	time.Sleep(time.Millisecond)
	e.OnExternalChange(path, ExternalModified)

	content, err := e.Reload(path)
	require.NoError(t, err)
	assert.Equal(t, "external edit", content)

	state, _ := e.State(path)
	assert.False(t, state.Modified())
	assert.False(t, state.ExternallyModified)
}

func TestBackupsWrittenAndPruned(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.py")
	e, _ := newTestEngine(t, Options{
		BackupEnabled:   true,
		BackupRetention: 2,
		BackupDirName:   ".backups",
	})

	// First save creates the file; the following saves each back it up.
	for i, content := range []string{"v1", "v2", "v3", "v4", "v5"} {
		require.NoError(t, e.Save(path, content))
		// The backup name carries second precision; spread the saves so
		// prune ordering is deterministic.
		if i < 4 {
			time.Sleep(1100 * time.Millisecond)
		}
	}

	entries, err := os.ReadDir(filepath.Join(dir, ".backups"))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "retention must prune the oldest backups")
}

func TestAutoSaveSkipsConflictedFiles(t *testing.T) {
	e, _ := newTestEngine(t, Options{SuppressionWindow: time.Nanosecond})
	dir := t.TempDir()
	clean := filepath.Join(dir, "clean.py")
	conflicted := filepath.Join(dir, "conflicted.py")
	writeFile(t, clean, "v1")
	writeFile(t, conflicted, "v1")

	_, err := e.Open(clean)
	require.NoError(t, err)
	_, err = e.Open(conflicted)
	require.NoError(t, err)

	require.NoError(t, e.UpdateEditorContent(clean, "edited"))
	require.NoError(t, e.UpdateEditorContent(conflicted, "edited"))
	time.Sleep(time.Millisecond)
	e.OnExternalChange(conflicted, ExternalModified)

	e.autoSavePass()

	data, _ := os.ReadFile(clean)
	assert.Equal(t, "edited", string(data))
	data, _ = os.ReadFile(conflicted)
	assert.Equal(t, "v1", string(data), "conflicted file must not be auto-clobbered")
}

func TestAutoSaveLifecycleIdempotent(t *testing.T) {
	e, _ := newTestEngine(t, Options{AutoSaveInterval: time.Hour})
	ctx := t.Context()

	e.StartAutoSave(ctx)
	e.StartAutoSave(ctx) // no-op
	e.StopAutoSave()
	e.StopAutoSave() // no-op
}

func TestExternalDiffSummary(t *testing.T) {
	e, _ := newTestEngine(t, DefaultOptions())
	path := filepath.Join(t.TempDir(), "app.py")
	writeFile(t, path, "line1\nline2\n")

	_, err := e.Open(path)
	require.NoError(t, err)

	t.Run("identical", func(t *testing.T) {
		sum, err := e.ExternalDiffSummary(path)
		require.NoError(t, err)
		assert.True(t, sum.Identical)
	})

	t.Run("diverged", func(t *testing.T) {
		writeFile(t, path, "line1\nchanged\nadded\n")
		sum, err := e.ExternalDiffSummary(path)
		require.NoError(t, err)
		assert.False(t, sum.Identical)
		assert.Greater(t, sum.InsertedLines, 0)
	})

	t.Run("untracked", func(t *testing.T) {
		_, err := e.ExternalDiffSummary(filepath.Join(t.TempDir(), "x"))
		require.ErrorIs(t, err, ErrNotTracked)
	})
}

func TestParseCollisionPolicy(t *testing.T) {
	for in, want := range map[string]CollisionPolicy{
		"overwrite":  CollisionOverwrite,
		"autorename": CollisionAutoRename,
		"AutoRename": CollisionAutoRename,
		"cancel":     CollisionCancel,
		"":           CollisionCancel,
	} {
		got, err := ParseCollisionPolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, "input %q", in)
	}

	_, err := ParseCollisionPolicy("ask_the_user")
	require.Error(t, err)
}
