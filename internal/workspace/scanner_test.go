package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codemate/internal/config"
)

func defaultScanner() *Scanner {
	return NewScanner(config.WorkspaceConfig{
		SearchWorkers: 4,
		MaxSearchHits: 100,
		MaxFileSizeKB: 1024,
		UseGitignore:  true,
	})
}

func seedProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	write("main.py", "import os\nprint('main')\n")
	write("lib/util.py", "def helper():\n    return 42\n")
	write("lib/data.json", "{}\n")
	write("README.md", "# demo\n")
	write(".git/HEAD", "ref: refs/heads/main\n")
	write("node_modules/pkg/index.js", "module.exports = {}\n")
	write("build/out.bin", "binary\n")
	write(".gitignore", "build/\n*.log\n")
	write("debug.log", "noise\n")

	return root
}

func TestListProjectFilesHonorsIgnores(t *testing.T) {
	root := seedProject(t)

	files, err := defaultScanner().ListProjectFiles(root)
	require.NoError(t, err)

	assert.Contains(t, files, "main.py")
	assert.Contains(t, files, "lib/util.py")
	assert.Contains(t, files, "README.md")

	assert.NotContains(t, files, ".git/HEAD", "fixed ignore set")
	assert.NotContains(t, files, "node_modules/pkg/index.js", "fixed ignore set")
	assert.NotContains(t, files, "build/out.bin", "gitignored directory")
	assert.NotContains(t, files, "debug.log", "gitignored pattern")

	assert.IsNonDecreasing(t, files)
}

func TestListIgnoresCustomIgnoreFile(t *testing.T) {
	root := seedProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".codemateignore"), []byte("README.md\n"), 0644))

	s := NewScanner(config.WorkspaceConfig{
		UseGitignore:   true,
		IgnoreFileName: ".codemateignore",
	})
	files, err := s.ListProjectFiles(root)
	require.NoError(t, err)

	assert.NotContains(t, files, "README.md")
	assert.Contains(t, files, "main.py")
}

func TestGlob(t *testing.T) {
	root := seedProject(t)

	matched, err := defaultScanner().Glob(root, "**/*.py")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main.py", "lib/util.py"}, matched)

	matched, err = defaultScanner().Glob(root, "lib/*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"lib/util.py", "lib/data.json"}, matched)
}

func TestSearchContent(t *testing.T) {
	root := seedProject(t)

	matches, err := defaultScanner().SearchContent(context.Background(), root, "helper")
	require.NoError(t, err)

	require.Len(t, matches, 1)
	assert.Equal(t, "lib/util.py", matches[0].Path)
	assert.Equal(t, 1, matches[0].Line)
	assert.Contains(t, matches[0].Text, "def helper")
}

func TestSearchContentOrderedAndCapped(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"c.txt", "a.txt", "b.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name),
			[]byte("needle one\nneedle two\n"), 0644))
	}

	s := NewScanner(config.WorkspaceConfig{
		SearchWorkers: 4,
		MaxSearchHits: 4,
		MaxFileSizeKB: 1024,
	})
	matches, err := s.SearchContent(context.Background(), root, "needle")
	require.NoError(t, err)

	require.Len(t, matches, 4, "hits must be capped")
	assert.Equal(t, "a.txt", matches[0].Path)
	assert.Equal(t, 1, matches[0].Line)
	assert.Equal(t, "a.txt", matches[1].Path)
	assert.Equal(t, 2, matches[1].Line)
	assert.Equal(t, "b.txt", matches[2].Path)
}

func TestSearchContentSkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	big := make([]byte, 3000)
	copy(big, []byte("needle"))
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.txt"), big, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "small.txt"), []byte("needle\n"), 0644))

	s := NewScanner(config.WorkspaceConfig{
		SearchWorkers: 2,
		MaxSearchHits: 10,
		MaxFileSizeKB: 2, // big.txt is over, small.txt under
	})
	matches, err := s.SearchContent(context.Background(), root, "needle")
	require.NoError(t, err)

	require.Len(t, matches, 1)
	assert.Equal(t, "small.txt", matches[0].Path)
}

func TestSearchContentHonorsCancellation(t *testing.T) {
	root := seedProject(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := defaultScanner().SearchContent(ctx, root, "anything")
	require.ErrorIs(t, err, context.Canceled)
}
