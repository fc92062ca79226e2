package reconcile

import (
	"errors"
	"fmt"
	"strings"
)

// Typed failures the engine reports. Callers decide whether to retry,
// surface, or escalate; nothing here unwinds as a panic.
var (
	// ErrNotFound: the path does not exist on disk.
	ErrNotFound = errors.New("file not found")

	// ErrNotTracked: the engine holds no open state for the path.
	ErrNotTracked = errors.New("file not tracked")

	// ErrExists: create target already present and policy forbids touching it.
	ErrExists = errors.New("file already exists")

	// ErrCancelled: the caller-supplied policy chose to abort the operation.
	ErrCancelled = errors.New("operation cancelled")

	// ErrUnsavedChanges: close requested on a modified file without a resolution.
	ErrUnsavedChanges = errors.New("unsaved changes")
)

// CollisionPolicy resolves a create whose target path already exists.
type CollisionPolicy int

const (
	// CollisionCancel aborts the create without touching disk.
	CollisionCancel CollisionPolicy = iota
	// CollisionOverwrite replaces the existing file.
	CollisionOverwrite
	// CollisionAutoRename probes "_copy", "_copy2", ... until a free path is found.
	CollisionAutoRename
)

// String returns the config-file spelling of the policy.
func (p CollisionPolicy) String() string {
	switch p {
	case CollisionOverwrite:
		return "overwrite"
	case CollisionAutoRename:
		return "autorename"
	default:
		return "cancel"
	}
}

// ParseCollisionPolicy maps a config or flag value to a policy. Unknown
// values fall back to cancel, the only policy that cannot lose data.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "overwrite":
		return CollisionOverwrite, nil
	case "autorename", "auto_rename", "rename":
		return CollisionAutoRename, nil
	case "cancel", "":
		return CollisionCancel, nil
	default:
		return CollisionCancel, fmt.Errorf("unknown collision policy %q", s)
	}
}

// CloseResolution tells Close what to do with unsaved edits.
type CloseResolution int

const (
	// CloseCancel keeps the entry open and reports ErrUnsavedChanges.
	CloseCancel CloseResolution = iota
	// CloseSave writes the editor content to disk, then removes the entry.
	CloseSave
	// CloseDiscard removes the entry, dropping the unsaved edits.
	CloseDiscard
)
