package recovery

import "strings"

// extractBlock returns the candidate JSON block: the substring from the
// first '{' through the last '}' in raw, greedy so nested objects stay
// intact. The bool is false when no such pair exists, which routes the
// caller straight to the fallback action.
func extractBlock(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(raw, '}')
	if end < start {
		return "", false
	}
	return raw[start : end+1], true
}

// scanState walks a JSON-ish byte stream and tracks whether the cursor is
// inside a quoted string, honoring backslash escapes. The repair passes
// share it so their in-string decisions stay consistent.
type scanState struct {
	inString bool
	escape   bool
}

// step advances the state by one byte. Safe to drive byte-wise over UTF-8:
// the delimiters tracked here are ASCII and never occur inside a multi-byte
// sequence.
func (s *scanState) step(b byte) {
	if s.escape {
		s.escape = false
		return
	}
	if s.inString {
		switch b {
		case '\\':
			s.escape = true
		case '"':
			s.inString = false
		}
		return
	}
	if b == '"' {
		s.inString = true
	}
}
