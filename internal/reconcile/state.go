package reconcile

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// LineEnding is the dominant line-ending style detected when a file was
// read. Recorded so saves can keep the original style intact.
type LineEnding string

const (
	LineEndingLF   LineEnding = "lf"
	LineEndingCRLF LineEnding = "crlf"
	LineEndingCR   LineEnding = "cr"
)

// OpenFileState is the engine's view of one tracked file. EditorContent is
// the latest in-memory text; DiskContentHash is the hash of the content at
// the last successful read or write. The modified flag is never stored -
// it is derived from the two, so the representations cannot drift.
type OpenFileState struct {
	Path            string
	EditorContent   string
	DiskContentHash string
	Encoding        string
	LineEnding      LineEnding

	// Set by external-change notifications, cleared on save or reload.
	// The entry outlives an on-disk deletion until the file is closed.
	ExternallyModified bool
	ExternallyDeleted  bool
}

// Modified reports whether the editor content diverges from the content
// last seen on disk.
func (s *OpenFileState) Modified() bool {
	return hashContent(s.EditorContent) != s.DiskContentHash
}

// Conflicted reports whether the file has pending external changes that
// the caller has not resolved yet.
func (s *OpenFileState) Conflicted() bool {
	return s.ExternallyModified || s.ExternallyDeleted
}

// hashContent returns the sha256 hex digest of content.
func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", sum)
}

// detectLineEnding classifies the dominant line-ending style of content.
func detectLineEnding(content string) LineEnding {
	if strings.Contains(content, "\r\n") {
		return LineEndingCRLF
	}
	if strings.Contains(content, "\r") {
		return LineEndingCR
	}
	return LineEndingLF
}
