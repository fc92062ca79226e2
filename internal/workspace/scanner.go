// Package workspace enumerates and searches project files. Listings honor
// the project's .gitignore plus a fixed ignore set so generated trees and
// VCS internals never leak into prompts or search results.
package workspace

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"

	"codemate/internal/config"
	"codemate/internal/logging"
)

// Match is one content-search hit.
type Match struct {
	Path string // relative to the search root
	Line int    // 1-based
	Text string
}

// Scanner lists and searches files under a project root.
type Scanner struct {
	cfg        config.WorkspaceConfig
	ignoreDirs map[string]struct{}
}

// defaultIgnoreDirs are skipped regardless of gitignore contents.
var defaultIgnoreDirs = []string{
	".git", "__pycache__", "node_modules", ".DS_Store",
	".pytest_cache", ".venv", ".idea", ".backups", ".codemate",
}

// NewScanner builds a scanner from the workspace config section.
func NewScanner(cfg config.WorkspaceConfig) *Scanner {
	ignore := make(map[string]struct{}, len(defaultIgnoreDirs))
	for _, d := range defaultIgnoreDirs {
		ignore[d] = struct{}{}
	}
	if cfg.SearchWorkers <= 0 {
		cfg.SearchWorkers = 8
	}
	if cfg.MaxSearchHits <= 0 {
		cfg.MaxSearchHits = 200
	}
	if cfg.MaxFileSizeKB <= 0 {
		cfg.MaxFileSizeKB = 1024
	}
	return &Scanner{cfg: cfg, ignoreDirs: ignore}
}

// ListProjectFiles returns the project's files as sorted root-relative
// paths, honoring .gitignore (and the configured extra ignore file) when
// enabled.
func (s *Scanner) ListProjectFiles(root string) ([]string, error) {
	timer := logging.StartTimer(logging.CategoryWorkspace, "list "+root)
	defer timer.Stop()

	matcher := s.compileIgnores(root)

	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}

		if d.IsDir() {
			if _, ok := s.ignoreDirs[d.Name()]; ok {
				return filepath.SkipDir
			}
			if matcher != nil && matcher.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if matcher != nil && matcher.MatchesPath(rel) {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	logging.WorkspaceDebug("listed %d files under %s", len(files), root)
	return files, nil
}

// compileIgnores builds a matcher from .gitignore and the configured ignore
// file. Returns nil when there is nothing to ignore.
func (s *Scanner) compileIgnores(root string) *gitignore.GitIgnore {
	var lines []string
	sources := []string{}
	if s.cfg.UseGitignore {
		sources = append(sources, ".gitignore")
	}
	if s.cfg.IgnoreFileName != "" {
		sources = append(sources, s.cfg.IgnoreFileName)
	}

	for _, name := range sources {
		data, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			lines = append(lines, line)
		}
	}

	if len(lines) == 0 {
		return nil
	}
	return gitignore.CompileIgnoreLines(lines...)
}

// Glob returns the listing entries matching a doublestar pattern
// ("**/*.go" style).
func (s *Scanner) Glob(root, pattern string) ([]string, error) {
	files, err := s.ListProjectFiles(root)
	if err != nil {
		return nil, err
	}

	var matched []string
	for _, f := range files {
		ok, err := doublestar.Match(pattern, f)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, f)
		}
	}
	return matched, nil
}

// SearchContent scans the project for lines containing needle, in parallel
// across bounded workers. Results are capped at MaxSearchHits and files
// over MaxFileSizeKB are skipped. Order is deterministic (path, then line).
func (s *Scanner) SearchContent(ctx context.Context, root, needle string) ([]Match, error) {
	timer := logging.StartTimer(logging.CategoryWorkspace, "search "+needle)
	defer timer.Stop()

	files, err := s.ListProjectFiles(root)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		matches []Match
	)
	maxBytes := int64(s.cfg.MaxFileSizeKB) * 1024

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.SearchWorkers)

	for _, rel := range files {
		rel := rel
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			full := filepath.Join(root, rel)
			if info, err := os.Stat(full); err != nil || info.Size() > maxBytes {
				return nil
			}

			found, err := searchFile(full, rel, needle)
			if err != nil {
				return nil // unreadable or binary-ish, skip
			}
			if len(found) == 0 {
				return nil
			}

			mu.Lock()
			matches = append(matches, found...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Path != matches[j].Path {
			return matches[i].Path < matches[j].Path
		}
		return matches[i].Line < matches[j].Line
	})
	if len(matches) > s.cfg.MaxSearchHits {
		matches = matches[:s.cfg.MaxSearchHits]
	}

	logging.Workspace("search %q: %d hits", needle, len(matches))
	return matches, nil
}

// searchFile scans one file line by line for needle.
func searchFile(full, rel, needle string) ([]Match, error) {
	f, err := os.Open(full)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var found []Match
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.Contains(line, needle) {
			found = append(found, Match{Path: rel, Line: lineNo, Text: line})
		}
	}
	return found, scanner.Err()
}
