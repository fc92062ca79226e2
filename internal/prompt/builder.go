// Package prompt renders user instructions and editor context into the
// prompt text sent to the model. Everything here is pure string assembly:
// no I/O, no state, no failure modes. The system template pins down the
// JSON action contract that the recovery layer parses on the way back.
package prompt

import (
	"fmt"
	"strings"

	"codemate/internal/action"
)

// maxProjectFiles caps how many project files are embedded in the prompt.
// The list is advisory context only, so a fixed prefix is enough.
const maxProjectFiles = 10

// =============================================================================
// SYSTEM TEMPLATE
// =============================================================================
// The template has four parts: persona, action catalogue, response schema,
// and output rules. The schema block must stay in sync with action.Action's
// JSON tags; recovery depends on these exact field names.

const systemTemplate = `You are an expert coding assistant embedded in a code editor.

Your mission:
1. Analyze the user's command and the current file context.
2. Decide on exactly one action from the catalogue below.
3. Respond with a single JSON object and nothing else.
4. If the command mentions a file that does not exist, assume it should be created and set auto_create to true.
5. If the command is ambiguous or contains typos, infer the most likely intent rather than asking back.

Action catalogue:
- add_code: append new code to the current file
- replace_code: replace the entire content of the current file
- create_file: create a new file with the given content
- optimize_code: rewrite the current file with an improved version
- add_comment: add an explanatory comment to the current file
- analyze_code: report findings about the current file (display only)
- fix_errors: report corrected code for the errors described (display only)
- explain_code: explain what the current file does (display only)
- generate_tests: produce test code for the current file (display only)
- ask_question: answer a general question (display only)
- execute_command: run a shell command in the workspace
- error: report that the request cannot be fulfilled

Response schema:
{
  "action": "one of the catalogue names",
  "content": "the code, text, or command for this action",
  "file_path": "path of the file to act on, if any",
  "file_name": "name for a file to create, if any",
  "file_type": "language caption such as python, go, javascript",
  "explanation": "one short sentence describing what you did",
  "auto_create": true or false
}

Rules:
- Return the JSON object only. No prose, no markdown fences, no trailing commentary.
- Keep content complete: full code for replace_code and optimize_code, never a fragment.
- Pick smart file names that match the project's conventions.
- For general questions with no file involved, use add_comment with content starting with a comment marker.
- Keep explanation to a single sentence.

Example:
{"action": "add_code", "content": "def greet(name):\n    return f'Hello, {name}!'", "file_path": "app.py", "file_type": "python", "explanation": "Added a greet function.", "auto_create": false}

Example:
{"action": "create_file", "content": "body { margin: 0; }", "file_name": "style.css", "file_type": "css", "explanation": "Created a base stylesheet.", "auto_create": true}`

// =============================================================================
// BUILDER
// =============================================================================

// Builder assembles prompts from the fixed system template plus per-request
// context. The zero value is ready to use.
type Builder struct{}

// NewBuilder returns a prompt Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// System returns the fixed system template.
func (b *Builder) System() string {
	return systemTemplate
}

// Build renders a complete prompt: system template, project context, and the
// user section. Empty currentCode or filePath render as empty sections so
// the shape of the prompt stays stable across requests.
func (b *Builder) Build(userInput, currentCode, filePath string, projectFiles []string) string {
	var sb strings.Builder
	sb.WriteString(systemTemplate)
	sb.WriteString("\n\n")

	if ctx := b.ProjectContext(projectFiles); ctx != "" {
		sb.WriteString(ctx)
		sb.WriteString("\n\n")
	}

	sb.WriteString(b.UserSection(userInput, currentCode, filePath))
	return sb.String()
}

// UserSection renders the per-request block: command, current code, and file
// path. The code block is captioned with the language inferred from the
// file path so the model knows what it is looking at.
func (b *Builder) UserSection(userInput, currentCode, filePath string) string {
	caption := ""
	if filePath != "" {
		caption = action.LanguageForPath(filePath)
	}
	return fmt.Sprintf(
		"**User command:** %s\n\n**Current code:**\n```%s\n%s\n```\n\n**File path:** %s\n\n**Instructions:** Analyze the command and respond with a single valid JSON action.",
		userInput, caption, currentCode, filePath,
	)
}

// ProjectContext renders the advisory project-file list. Only the first
// maxProjectFiles entries are embedded; the rest are dropped, not
// summarized. Returns "" when there are no files.
func (b *Builder) ProjectContext(projectFiles []string) string {
	if len(projectFiles) == 0 {
		return ""
	}
	files := projectFiles
	if len(files) > maxProjectFiles {
		files = files[:maxProjectFiles]
	}
	var sb strings.Builder
	sb.WriteString("**Project files:**\n")
	for _, f := range files {
		sb.WriteString("- ")
		sb.WriteString(f)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
