package action

import (
	"path/filepath"
	"strings"
)

// =============================================================================
// FILE TYPE CAPTIONS
// =============================================================================
// The wire format carries file types as plain captions ("python", "go") in
// the file_type field. Both sides of the protocol need the same mapping:
// the prompt layer captions fenced code blocks with it, and the dispatcher
// uses it to pick an extension when the model names a file without one.

// typeExtensions maps a file-type caption to its canonical extension.
var typeExtensions = map[string]string{
	"python":     ".py",
	"go":         ".go",
	"javascript": ".js",
	"typescript": ".ts",
	"html":       ".html",
	"css":        ".css",
	"json":       ".json",
	"yaml":       ".yaml",
	"markdown":   ".md",
	"shell":      ".sh",
	"sql":        ".sql",
	"text":       ".txt",
}

// extensionTypes is the reverse mapping, derived once at init.
var extensionTypes = func() map[string]string {
	m := make(map[string]string, len(typeExtensions))
	for caption, ext := range typeExtensions {
		m[ext] = caption
	}
	// Aliases that share a caption with a canonical extension.
	m[".pyw"] = "python"
	m[".mjs"] = "javascript"
	m[".tsx"] = "typescript"
	m[".jsx"] = "javascript"
	m[".htm"] = "html"
	m[".yml"] = "yaml"
	m[".bash"] = "shell"
	return m
}()

// ExtensionForType returns the canonical extension for a file-type caption.
// Unknown captions fall back to ".txt" so generated files always land
// somewhere openable.
func ExtensionForType(fileType string) string {
	if ext, ok := typeExtensions[strings.ToLower(strings.TrimSpace(fileType))]; ok {
		return ext
	}
	return ".txt"
}

// LanguageForPath returns the file-type caption for a path based on its
// extension. Unknown or missing extensions report "text".
func LanguageForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "text"
	}
	if caption, ok := extensionTypes[ext]; ok {
		return caption
	}
	return "text"
}
