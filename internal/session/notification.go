// Package session owns request lifecycle: the single-flight coordinator
// that serializes LLM requests, the notification stream reporting their
// progress, and the assembly that wires the rest of the system together.
package session

import (
	"codemate/internal/dispatch"
)

// NotificationKind classifies a coordinator emission.
type NotificationKind int

const (
	// Started is always the first emission for a request.
	Started NotificationKind = iota
	// Progress reports intermediate stages; zero or more per request.
	Progress
	// Result is the success terminal; exactly one terminal per
	// non-cancelled request.
	Result
	// Error is the failure terminal.
	Error
)

func (k NotificationKind) String() string {
	switch k {
	case Started:
		return "started"
	case Progress:
		return "progress"
	case Result:
		return "result"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Notification is one emission on the coordinator's stream.
type Notification struct {
	Kind      NotificationKind
	RequestID string
	Message   string // progress stage or error text
	Result    *dispatch.Result
	Err       error
}

// Terminal reports whether this notification ends its request.
func (n Notification) Terminal() bool {
	return n.Kind == Result || n.Kind == Error
}
