package session

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"codemate/internal/config"
	"codemate/internal/dispatch"
	"codemate/internal/history"
	"codemate/internal/llm"
	"codemate/internal/logging"
	"codemate/internal/prompt"
	"codemate/internal/reconcile"
	"codemate/internal/shell"
	"codemate/internal/watch"
	"codemate/internal/workspace"
)

// Session wires the full pipeline for one workspace root: engine, journal,
// watcher, scanner, LLM client, and coordinator. It is the embedding
// surface the CLI (and any other host) drives.
type Session struct {
	root      string
	cfg       *config.Config
	engine    *reconcile.Engine
	journal   history.Journal
	watcher   *watch.Watcher
	scanner   *workspace.Scanner
	client    llm.Client
	runner    *shell.Runner
	builder   *prompt.Builder
	coord     *Coordinator
	collision reconcile.CollisionPolicy

	mu         sync.Mutex
	activeFile string
}

// New assembles a session for root. The journal falls back to memory when
// history is disabled or the database cannot be opened.
func New(root string, cfg *config.Config) (*Session, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	collision, err := reconcile.ParseCollisionPolicy(cfg.Files.DefaultCollision)
	if err != nil {
		return nil, err
	}

	var journal history.Journal
	if cfg.History.Enabled {
		dbPath := cfg.History.DatabasePath
		if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(root, dbPath)
		}
		store, err := history.NewStore(dbPath)
		if err != nil {
			logging.SessionWarn("journal unavailable (%v), using in-memory fallback", err)
			journal = history.NewMemoryStore()
		} else {
			journal = store
		}
	} else {
		journal = history.NewMemoryStore()
	}

	engine := reconcile.NewEngine(reconcile.OptionsFromConfig(&cfg.Files), journal)

	client, err := llm.NewFromConfig(&cfg.LLM)
	if err != nil {
		journal.Close()
		return nil, err
	}

	s := &Session{
		root:      root,
		cfg:       cfg,
		engine:    engine,
		journal:   journal,
		scanner:   workspace.NewScanner(cfg.Workspace),
		client:    client,
		runner:    shell.NewRunner(shell.Options{WorkingDir: root}),
		builder:   prompt.NewBuilder(),
		collision: collision,
	}

	s.watcher, err = watch.New(root, cfg.Watcher.GetDebounce(), cfg.Watcher.IgnoreDirs, s.onWatchEvent)
	if err != nil {
		client.Close()
		journal.Close()
		return nil, fmt.Errorf("watcher: %w", err)
	}

	s.coord = NewCoordinator(client, s.builder.System(), s.bound)

	logging.Session("session ready (root=%s, llm=%s)", root, client.Name())
	return s, nil
}

// Start launches the watcher and, when configured, the auto-save loop.
func (s *Session) Start(ctx context.Context) error {
	if err := s.watcher.Start(ctx); err != nil {
		return err
	}
	if s.cfg.Files.AutoSaveEnabled {
		s.engine.StartAutoSave(ctx)
	}
	return nil
}

// bound snapshots the dispatch context for the coordinator.
func (s *Session) bound() dispatch.Bound {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dispatch.Bound{
		FilePath:  s.activeFile,
		Engine:    s.engine,
		Runner:    s.runner,
		Collision: s.collision,
	}
}

// onWatchEvent forwards settled watcher events into the engine.
func (s *Session) onWatchEvent(ev watch.Event) {
	var kind reconcile.ExternalChangeKind
	switch ev.Kind {
	case watch.Added:
		kind = reconcile.ExternalAdded
	case watch.Modified:
		kind = reconcile.ExternalModified
	case watch.Removed:
		kind = reconcile.ExternalRemoved
	}
	if s.engine.OnExternalChange(ev.Path, kind) {
		logging.Session("external change flagged: %s (%s)", ev.Path, ev.Kind)
	}
}

// OpenFile opens path through the engine and binds it as the active file.
func (s *Session) OpenFile(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	content, err := s.engine.Open(path)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.activeFile = filepath.Clean(path)
	s.mu.Unlock()
	return content, nil
}

// ActiveFile returns the currently bound file path, "" when none.
func (s *Session) ActiveFile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeFile
}

// SaveFile writes content to the bound (or named) file through the engine.
func (s *Session) SaveFile(path, content string) error {
	if path == "" {
		path = s.ActiveFile()
	}
	if path == "" {
		return dispatch.ErrNoActiveFile
	}
	return s.engine.Save(path, content)
}

// UpdateEditorContent replaces the in-memory content of the bound file.
func (s *Session) UpdateEditorContent(content string) error {
	path := s.ActiveFile()
	if path == "" {
		return dispatch.ErrNoActiveFile
	}
	return s.engine.UpdateEditorContent(path, content)
}

// Ask runs one full request: prompt assembly, submit, and drain until the
// terminal notification for that request arrives. Ask consumes the shared
// notification stream, so it serves one caller at a time; callers that need
// to overlap requests use Submit and drain Notifications themselves.
func (s *Session) Ask(ctx context.Context, input string) (*dispatch.Result, error) {
	text := s.buildPrompt(input)

	id, err := s.coord.Submit(ctx, text)
	if err != nil {
		return nil, err
	}

	superseded := fmt.Errorf("request %s: %w", id, context.Canceled)
	started := false
	for {
		select {
		case n, ok := <-s.coord.Notifications():
			if !ok {
				// Channel closed: the session shut down mid-request.
				return nil, superseded
			}
			if n.RequestID != id {
				// Notifications are ordered, and a successor starts only
				// after this request's worker has been cancelled and
				// joined. A foreign Started past our own therefore means
				// this request will emit nothing more.
				if started && n.Kind == Started {
					return nil, superseded
				}
				continue
			}
			switch n.Kind {
			case Started:
				started = true
			case Result:
				return n.Result, nil
			case Error:
				return nil, n.Err
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("request %s: %w", id, ctx.Err())
		}
	}
}

// Submit is the non-blocking variant; callers consume Notifications()
// themselves.
func (s *Session) Submit(ctx context.Context, input string) (string, error) {
	return s.coord.Submit(ctx, s.buildPrompt(input))
}

// Notifications exposes the coordinator's emission stream.
func (s *Session) Notifications() <-chan Notification {
	return s.coord.Notifications()
}

// buildPrompt assembles the prompt from the bound file state and a project
// listing. The user section rides below the system template the coordinator
// already sends, so only the context goes here.
func (s *Session) buildPrompt(input string) string {
	var currentCode, filePath string
	if active := s.ActiveFile(); active != "" {
		if state, ok := s.engine.State(active); ok {
			currentCode = state.EditorContent
			filePath = active
		}
	}

	files, err := s.scanner.ListProjectFiles(s.root)
	if err != nil {
		logging.SessionWarn("project listing failed: %v", err)
	}

	tokens := prompt.EstimateTokens(currentCode + input)
	logging.SessionDebug("prompt built (~%d tokens, %d project files)", tokens, len(files))

	var sb []byte
	if ctx := s.builder.ProjectContext(files); ctx != "" {
		sb = append(sb, ctx...)
		sb = append(sb, "\n\n"...)
	}
	sb = append(sb, s.builder.UserSection(input, currentCode, filePath)...)
	return string(sb)
}

// Engine exposes the reconciliation engine for hosts that drive file state
// directly.
func (s *Session) Engine() *reconcile.Engine { return s.engine }

// Journal exposes the operation journal.
func (s *Session) Journal() history.Journal { return s.journal }

// Scanner exposes the workspace scanner.
func (s *Session) Scanner() *workspace.Scanner { return s.scanner }

// Close shuts everything down: coordinator first (joins any in-flight
// worker), then watcher, auto-save, LLM client, and journal.
func (s *Session) Close() error {
	s.coord.Close()
	s.watcher.Stop()
	s.engine.StopAutoSave()

	var firstErr error
	if err := s.client.Close(); err != nil {
		firstErr = err
	}
	if err := s.journal.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	logging.Session("session closed")
	return firstErr
}
