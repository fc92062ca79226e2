// Package history keeps the append-only journal of file operations. The
// reconciliation engine is the only writer; undo/redo bookkeeping and the
// CLI's history command read from it. Records are never updated in place.
package history

import (
	"time"

	"github.com/google/uuid"
)

// OpType identifies the kind of file operation a record describes.
type OpType string

const (
	OpCreate OpType = "create"
	OpSave   OpType = "save"
	OpDelete OpType = "delete"
	OpRename OpType = "rename"
	OpMove   OpType = "move"
	OpCopy   OpType = "copy"
)

// FileOperationRecord is one journal entry. Destination is only set for
// operations that involve a second path (rename/move/copy, and create under
// an auto-renamed collision, where Source is the requested path and
// Destination the path actually written).
type FileOperationRecord struct {
	ID          string            `json:"id"`
	Type        OpType            `json:"type"`
	Source      string            `json:"source"`
	Destination string            `json:"destination,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NewRecord builds a record with a fresh ID and the current time.
func NewRecord(op OpType, source string) FileOperationRecord {
	return FileOperationRecord{
		ID:        uuid.NewString(),
		Type:      op,
		Source:    source,
		Timestamp: time.Now(),
	}
}

// Journal is the append-only store the engine writes into. Implementations
// must be safe for concurrent use.
type Journal interface {
	Append(rec FileOperationRecord) error
	Recent(limit int) ([]FileOperationRecord, error)
	ByPath(path string, limit int) ([]FileOperationRecord, error)
	Close() error
}
