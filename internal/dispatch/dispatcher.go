// Package dispatch routes a recovered action against the bound editor
// context. The routing table is deliberately flat: every kind maps to one
// effect, and a file-bound kind with no bound file is an error, never a
// guess at a target.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"codemate/internal/action"
	"codemate/internal/logging"
	"codemate/internal/reconcile"
	"codemate/internal/shell"
)

// ErrNoActiveFile is returned when a file-bound kind arrives with no bound
// file path.
var ErrNoActiveFile = errors.New("no active file bound")

// FileEngine is the slice of the reconciliation engine the dispatcher needs.
type FileEngine interface {
	Open(path string) (string, error)
	Create(path, content string, policy reconcile.CollisionPolicy) (string, error)
	Save(path, content string) error
	State(path string) (reconcile.OpenFileState, bool)
}

// CommandRunner executes execute_command actions.
type CommandRunner interface {
	Run(ctx context.Context, command string) (*shell.CommandResult, error)
}

// Bound carries the editor context a dispatch applies against.
type Bound struct {
	FilePath  string
	Engine    FileEngine
	Runner    CommandRunner
	Collision reconcile.CollisionPolicy
}

// Result describes what a dispatch did.
type Result struct {
	Action  action.Action
	Applied bool   // a file was written
	Path    string // the file written or created
	Display string // display-only content for non-mutating kinds
	Command *shell.CommandResult
}

// Dispatcher applies recovered actions.
type Dispatcher struct{}

// NewDispatcher creates a dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Dispatch routes act against bound. Effects for file-bound kinds go through
// the engine so hashing, backups, and the journal all apply.
func (d *Dispatcher) Dispatch(ctx context.Context, act action.Action, bound Bound) (Result, error) {
	logging.Dispatch("dispatching %s (bound=%s)", act.Kind, bound.FilePath)

	if act.Kind.RequiresBoundFile() && bound.FilePath == "" {
		logging.DispatchWarn("%s rejected: no active file", act.Kind)
		return Result{Action: act}, fmt.Errorf("dispatch %s: %w", act.Kind, ErrNoActiveFile)
	}

	result := Result{Action: act}

	switch act.Kind {
	case action.KindAddCode:
		return d.appendAndSave(bound, act, "\n\n")

	case action.KindAddComment:
		return d.appendAndSave(bound, act, "\n")

	case action.KindReplaceCode, action.KindOptimizeCode:
		if err := bound.Engine.Save(bound.FilePath, act.Content); err != nil {
			return result, err
		}
		result.Applied = true
		result.Path = bound.FilePath
		return result, nil

	case action.KindCreateFile:
		path := d.targetPath(act, bound)
		if path == "" {
			return result, fmt.Errorf("dispatch create_file: no file path or name given")
		}
		actual, err := bound.Engine.Create(path, act.Content, bound.Collision)
		if err != nil {
			return result, err
		}
		result.Applied = true
		result.Path = actual
		return result, nil

	case action.KindExecuteCommand:
		if bound.Runner == nil {
			return result, fmt.Errorf("dispatch execute_command: no runner configured")
		}
		cmdResult, err := bound.Runner.Run(ctx, act.Content)
		if err != nil {
			return result, err
		}
		result.Command = cmdResult
		return result, nil

	default:
		// Display-only kinds, including unstructured fallbacks.
		result.Display = act.Content
		logging.DispatchDebug("%s surfaced as display-only (%d chars)", act.Kind, len(act.Content))
		return result, nil
	}
}

// appendAndSave appends act.Content to the bound file's current content with
// the given separator and saves through the engine.
func (d *Dispatcher) appendAndSave(bound Bound, act action.Action, sep string) (Result, error) {
	result := Result{Action: act}

	current, err := d.currentContent(bound)
	if err != nil {
		return result, err
	}

	merged := act.Content
	if current != "" {
		merged = strings.TrimRight(current, "\n") + sep + act.Content
	}

	if err := bound.Engine.Save(bound.FilePath, merged); err != nil {
		return result, err
	}
	result.Applied = true
	result.Path = bound.FilePath
	return result, nil
}

// currentContent returns the bound file's editor content, opening the file
// if the engine is not yet tracking it.
func (d *Dispatcher) currentContent(bound Bound) (string, error) {
	if state, ok := bound.Engine.State(bound.FilePath); ok {
		return state.EditorContent, nil
	}
	return bound.Engine.Open(bound.FilePath)
}

// targetPath resolves the path for a create_file action: an explicit
// file_path wins; otherwise file_name, given an extension from file_type
// when it has none.
func (d *Dispatcher) targetPath(act action.Action, bound Bound) string {
	if act.FilePath != "" {
		return act.FilePath
	}
	if act.FileName == "" {
		return ""
	}
	name := act.FileName
	if filepath.Ext(name) == "" {
		name += action.ExtensionForType(act.FileType)
	}
	// A bare name lands next to the bound file when there is one.
	if bound.FilePath != "" && !filepath.IsAbs(name) && filepath.Dir(name) == "." {
		name = filepath.Join(filepath.Dir(bound.FilePath), name)
	}
	return name
}
