// Package action defines the structured intent recovered from an LLM reply.
// It is the shared leaf type between prompt, recovery, dispatch, and session
// and exists to break import cycles between those packages.
package action

// Kind identifies what the assistant asked the editor to do.
// The constant values are the snake_case strings used on the wire.
type Kind string

const (
	KindAddCode        Kind = "add_code"
	KindReplaceCode    Kind = "replace_code"
	KindCreateFile     Kind = "create_file"
	KindAddComment     Kind = "add_comment"
	KindAskQuestion    Kind = "ask_question"
	KindExecuteCommand Kind = "execute_command"
	KindAnalyzeCode    Kind = "analyze_code"
	KindFixErrors      Kind = "fix_errors"
	KindOptimizeCode   Kind = "optimize_code"
	KindExplainCode    Kind = "explain_code"
	KindGenerateTests  Kind = "generate_tests"
	KindError          Kind = "error"
	KindUnstructured   Kind = "unstructured"
)

// Default explanation strings applied when the model omits the field.
const (
	DefaultExplanation  = "request processed"
	FallbackExplanation = "no structured action could be recovered"
)

var knownKinds = map[Kind]bool{
	KindAddCode:        true,
	KindReplaceCode:    true,
	KindCreateFile:     true,
	KindAddComment:     true,
	KindAskQuestion:    true,
	KindExecuteCommand: true,
	KindAnalyzeCode:    true,
	KindFixErrors:      true,
	KindOptimizeCode:   true,
	KindExplainCode:    true,
	KindGenerateTests:  true,
	KindError:          true,
	KindUnstructured:   true,
}

// ParseKind maps a wire string to a Kind. Empty input returns the empty Kind
// so the caller can apply its own default; any unrecognized non-empty string
// maps to KindUnstructured because the producer is untrusted.
func ParseKind(s string) Kind {
	if s == "" {
		return ""
	}
	k := Kind(s)
	if knownKinds[k] {
		return k
	}
	// Synthetic fallback name emitted by earlier assistant versions.
	if s == "general_response" {
		return KindUnstructured
	}
	return KindUnstructured
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return knownKinds[k]
}

// String returns the wire form of the kind.
func (k Kind) String() string {
	return string(k)
}

// RequiresBoundFile reports whether dispatching k needs an active file.
func (k Kind) RequiresBoundFile() bool {
	switch k {
	case KindAddCode, KindReplaceCode, KindAddComment, KindOptimizeCode:
		return true
	}
	return false
}

// DisplayOnly reports whether k produces no file or process effect.
func (k Kind) DisplayOnly() bool {
	switch k {
	case KindAskQuestion, KindError, KindAnalyzeCode, KindFixErrors,
		KindExplainCode, KindGenerateTests, KindUnstructured:
		return true
	}
	return false
}

// MutatesFiles reports whether dispatching k writes to disk.
func (k Kind) MutatesFiles() bool {
	return k.RequiresBoundFile() || k == KindCreateFile
}

// Action is the recovered intent from the LLM. After recovery, Kind and
// Content are always non-empty; the remaining fields are optional and only
// CreateFile consumes the file_* group.
type Action struct {
	Kind        Kind   `json:"action"`
	Content     string `json:"content"`
	FilePath    string `json:"file_path,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	FileType    string `json:"file_type,omitempty"`
	Explanation string `json:"explanation"`
	AutoCreate  bool   `json:"auto_create,omitempty"`
}

// Unstructured builds the fallback action for raw text that yielded no
// structured response.
func Unstructured(raw string) Action {
	return Action{
		Kind:        KindUnstructured,
		Content:     raw,
		Explanation: FallbackExplanation,
	}
}
