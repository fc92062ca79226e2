// Package recovery turns raw LLM replies into usable actions. The model is
// an untrusted text source: it wraps JSON in prose, forgets commas, leaves
// raw newlines inside string values. Recovery is total - every input string
// yields an action, degraded output is always preferred over failure.
package recovery

import (
	"encoding/json"
	"sync"

	"codemate/internal/action"
	"codemate/internal/logging"
)

// ParseMethod records how an action was obtained from the raw reply.
type ParseMethod string

const (
	ParseDirect   ParseMethod = "direct"   // block parsed as-is
	ParseRepaired ParseMethod = "repaired" // block parsed after the repair passes
	ParseFallback ParseMethod = "fallback" // no block recoverable, raw text wrapped
)

// Stats tracks recovery outcomes for monitoring.
type Stats struct {
	TotalProcessed int
	DirectParses   int
	RepairedParses int
	Fallbacks      int
}

// Recoverer converts raw model output into actions. Safe for concurrent use.
type Recoverer struct {
	mu    sync.Mutex
	stats Stats
}

// NewRecoverer returns a ready Recoverer.
func NewRecoverer() *Recoverer {
	return &Recoverer{}
}

// wireAction is the untyped view of the JSON the model emits. Every field
// is optional on the wire; defaulting happens after parse.
type wireAction struct {
	Action      string `json:"action"`
	Content     string `json:"content"`
	FilePath    string `json:"file_path"`
	FileName    string `json:"file_name"`
	FileType    string `json:"file_type"`
	Explanation string `json:"explanation"`
	AutoCreate  bool   `json:"auto_create"`
}

// Recover extracts a single action from raw model output. It never returns
// an error and never panics; if nothing structured can be recovered the
// result is an Unstructured action carrying the full raw text.
func (r *Recoverer) Recover(raw string) action.Action {
	act, _ := r.RecoverDetailed(raw)
	return act
}

// RecoverDetailed is Recover plus the parse method, for logging and tests.
func (r *Recoverer) RecoverDetailed(raw string) (action.Action, ParseMethod) {
	r.mu.Lock()
	r.stats.TotalProcessed++
	r.mu.Unlock()

	block, ok := extractBlock(raw)
	if !ok {
		logging.RecoveryWarn("no JSON block in reply, falling back; raw=%q", raw)
		r.count(ParseFallback)
		return action.Unstructured(raw), ParseFallback
	}

	var wire wireAction
	if err := json.Unmarshal([]byte(block), &wire); err == nil {
		r.count(ParseDirect)
		return applyDefaults(wire, raw), ParseDirect
	}

	repaired := repair(block)
	if err := json.Unmarshal([]byte(repaired), &wire); err == nil {
		logging.Recovery("reply parsed after repair (%d -> %d bytes)", len(block), len(repaired))
		r.count(ParseRepaired)
		return applyDefaults(wire, raw), ParseRepaired
	}

	logging.RecoveryWarn("repair failed, falling back; raw=%q", raw)
	r.count(ParseFallback)
	return action.Unstructured(raw), ParseFallback
}

// applyDefaults fills the missing required fields: kind defaults to
// AddComment, content to the full raw reply, explanation to the generic
// string. Fields that were present pass through untouched.
func applyDefaults(wire wireAction, raw string) action.Action {
	kind := action.ParseKind(wire.Action)
	if kind == "" {
		logging.RecoveryWarn("action field missing, defaulting to add_comment")
		kind = action.KindAddComment
	}
	content := wire.Content
	if content == "" {
		content = raw
	}
	explanation := wire.Explanation
	if explanation == "" {
		explanation = action.DefaultExplanation
	}
	return action.Action{
		Kind:        kind,
		Content:     content,
		FilePath:    wire.FilePath,
		FileName:    wire.FileName,
		FileType:    wire.FileType,
		Explanation: explanation,
		AutoCreate:  wire.AutoCreate,
	}
}

func (r *Recoverer) count(m ParseMethod) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch m {
	case ParseDirect:
		r.stats.DirectParses++
	case ParseRepaired:
		r.stats.RepairedParses++
	case ParseFallback:
		r.stats.Fallbacks++
	}
}

// GetStats returns a snapshot of recovery statistics.
func (r *Recoverer) GetStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// ResetStats clears the statistics.
func (r *Recoverer) ResetStats() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = Stats{}
}
