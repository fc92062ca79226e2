package prompt

import "fmt"

// =============================================================================
// TASK TEMPLATES
// =============================================================================
// Canned user commands for the display-only actions. The CLI maps task
// flags onto these so a bare "analyze this" request carries enough
// instruction for the model to produce a useful report.

// AnalysisCommand asks for a structured review of the current file.
func AnalysisCommand() string {
	return "Analyze the current code. Report structure, potential bugs, and concrete improvement suggestions."
}

// FixErrorsCommand asks for corrected code given an error transcript.
func FixErrorsCommand(errorOutput string) string {
	if errorOutput == "" {
		return "Find and fix the errors in the current code. Return the corrected code with a note on each fix."
	}
	return fmt.Sprintf("Fix the errors in the current code. The following errors were reported:\n%s\nReturn the corrected code with a note on each fix.", errorOutput)
}

// OptimizeCommand asks for an improved rewrite of the current file.
func OptimizeCommand() string {
	return "Optimize the current code for readability and performance. Keep behavior identical and return the full optimized version."
}

// ExplainCommand asks for a plain-language walkthrough of the current file.
func ExplainCommand() string {
	return "Explain what the current code does, step by step, in plain language."
}

// GenerateTestsCommand asks for tests covering the current file.
func GenerateTestsCommand() string {
	return "Generate tests for the current code. Cover the main paths and the edge cases, using the conventions of the file's language."
}

// FileCreationCommand asks for a new file of the given type.
func FileCreationCommand(fileType, description string) string {
	return fmt.Sprintf("Create a new %s file: %s. Choose a fitting file name and return complete, runnable content.", fileType, description)
}
