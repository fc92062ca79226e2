// Audit logging: structured JSONL events for the operations that touch disk,
// spawn processes, or call the LLM. One line per event, machine-parseable.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	// File engine events
	AuditFileOpen   AuditEventType = "file_open"
	AuditFileCreate AuditEventType = "file_create"
	AuditFileSave   AuditEventType = "file_save"
	AuditFileClose  AuditEventType = "file_close"
	AuditFileBackup AuditEventType = "file_backup"
	AuditFileError  AuditEventType = "file_error"

	// External change events
	AuditExternalChange AuditEventType = "external_change"
	AuditEchoSuppressed AuditEventType = "echo_suppressed"

	// LLM API events
	AuditLLMRequest  AuditEventType = "llm_request"
	AuditLLMResponse AuditEventType = "llm_response"
	AuditLLMError    AuditEventType = "llm_error"

	// Action routing events
	AuditActionRoute    AuditEventType = "action_route"
	AuditActionComplete AuditEventType = "action_complete"
	AuditActionError    AuditEventType = "action_error"

	// Shell execution events
	AuditCommandStart    AuditEventType = "command_start"
	AuditCommandComplete AuditEventType = "command_complete"
	AuditCommandError    AuditEventType = "command_error"

	// Request lifecycle events
	AuditRequestStart    AuditEventType = "request_start"
	AuditRequestCancel   AuditEventType = "request_cancel"
	AuditRequestComplete AuditEventType = "request_complete"
)

// =============================================================================
// AUDIT EVENT STRUCTURE
// =============================================================================

// AuditEvent represents one structured audit log entry.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"`      // Unix milliseconds
	EventType  AuditEventType         `json:"event"`   // What happened
	SessionID  string                 `json:"session"` // Session correlation
	RequestID  string                 `json:"req"`     // Request correlation
	Target     string                 `json:"target"`  // Path, command, or model
	Success    bool                   `json:"success"` // Operation succeeded
	DurationMs int64                  `json:"dur_ms"`  // Duration in milliseconds
	Error      string                 `json:"error"`   // Error message if failed
	Message    string                 `json:"msg"`     // Human-readable message
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// =============================================================================
// AUDIT LOGGER
// =============================================================================

var (
	auditFile   *os.File
	auditMu     sync.Mutex
	auditLogger *AuditLogger
)

// AuditLogger handles structured audit logging
type AuditLogger struct {
	sessionID string
	requestID string
}

// InitAudit initializes the audit logging system
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil // Already initialized
	}

	date := time.Now().Format("2006-01-02")
	auditPath := filepath.Join(logsDir, fmt.Sprintf("%s_audit.jsonl", date))

	file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file

	return nil
}

// CloseAudit closes the audit log file
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns the global audit logger
func Audit() *AuditLogger {
	if auditLogger == nil {
		auditLogger = &AuditLogger{}
	}
	return auditLogger
}

// AuditWithSession creates an audit logger scoped to a session
func AuditWithSession(sessionID string) *AuditLogger {
	return &AuditLogger{sessionID: sessionID}
}

// AuditWithRequest creates an audit logger scoped to a session and request
func AuditWithRequest(sessionID, requestID string) *AuditLogger {
	return &AuditLogger{sessionID: sessionID, requestID: requestID}
}

// Log writes an audit event
func (a *AuditLogger) Log(event AuditEvent) {
	if !IsDebugMode() || auditFile == nil {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.SessionID == "" && a.sessionID != "" {
		event.SessionID = a.sessionID
	}
	if event.RequestID == "" && a.requestID != "" {
		event.RequestID = a.requestID
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	data, err := json.Marshal(event)
	if err == nil {
		auditFile.WriteString(string(data) + "\n")
	}
}

// LogFileOp is a shorthand for file engine events.
func (a *AuditLogger) LogFileOp(eventType AuditEventType, path string, success bool, errMsg string) {
	a.Log(AuditEvent{
		EventType: eventType,
		Target:    path,
		Success:   success,
		Error:     errMsg,
	})
}

// LogCommand is a shorthand for shell execution events.
func (a *AuditLogger) LogCommand(eventType AuditEventType, command string, success bool, durationMs int64) {
	a.Log(AuditEvent{
		EventType:  eventType,
		Target:     command,
		Success:    success,
		DurationMs: durationMs,
	})
}
