package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// resetState clears package globals between tests.
func resetState() {
	CloseAll()
	CloseAudit()
	loggers = make(map[Category]*Logger)
	logsDir = ""
	workspace = ""
	configLoaded = false
	auditLogger = nil
}

func writeTestConfig(t *testing.T, dir, content string) {
	t.Helper()
	configDir := filepath.Join(dir, ".codemate")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

// TestAllCategoriesLog tests that all categories create log files when debug_mode is true
func TestAllCategoriesLog(t *testing.T) {
	tempDir := t.TempDir()

	writeTestConfig(t, tempDir, `
logging:
  level: debug
  debug_mode: true
  categories:
    boot: true
    session: true
    prompt: true
    llm: true
    recovery: true
    dispatch: true
    reconcile: true
    watch: true
    history: true
    workspace: true
    shell: true
`)

	resetState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	defer resetState()

	if !IsDebugMode() {
		t.Error("Expected debug mode to be enabled")
	}

	categories := []Category{
		CategoryBoot,
		CategorySession,
		CategoryPrompt,
		CategoryLLM,
		CategoryRecovery,
		CategoryDispatch,
		CategoryReconcile,
		CategoryWatch,
		CategoryHistory,
		CategoryWorkspace,
		CategoryShell,
	}

	for _, cat := range categories {
		if !IsCategoryEnabled(cat) {
			t.Errorf("Category %s should be enabled", cat)
		}

		logger := Get(cat)
		logger.Info("Test info message for %s", cat)
		logger.Debug("Test debug message for %s", cat)
		logger.Warn("Test warn message for %s", cat)
		logger.Error("Test error message for %s", cat)
	}

	// Convenience functions should hit the same sinks
	Boot("Convenience boot log")
	Session("Convenience session log")
	Prompt("Convenience prompt log")
	LLM("Convenience llm log")
	Recovery("Convenience recovery log")
	Dispatch("Convenience dispatch log")
	Reconcile("Convenience reconcile log")
	Watch("Convenience watch log")
	History("Convenience history log")
	Workspace("Convenience workspace log")
	Shell("Convenience shell log")

	CloseAll()

	// Every category should have produced a log file
	logDir := filepath.Join(tempDir, ".codemate", "logs")
	for _, cat := range categories {
		path := filepath.Join(logDir, string(cat)+".log")
		data, err := os.ReadFile(path)
		if err != nil {
			t.Errorf("Expected log file for category %s: %v", cat, err)
			continue
		}
		if !strings.Contains(string(data), "Test info message") {
			t.Errorf("Log file for %s missing expected content", cat)
		}
	}
}

// TestNoLoggingWithoutDebugMode verifies production mode is a silent no-op
func TestNoLoggingWithoutDebugMode(t *testing.T) {
	tempDir := t.TempDir()

	writeTestConfig(t, tempDir, `
logging:
  level: info
  debug_mode: false
`)

	resetState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	defer resetState()

	if IsDebugMode() {
		t.Error("Expected debug mode to be disabled")
	}

	Reconcile("This should go nowhere")
	Get(CategoryLLM).Error("Neither should this")

	if _, err := os.Stat(filepath.Join(tempDir, ".codemate", "logs")); !os.IsNotExist(err) {
		t.Error("Logs directory should not exist in production mode")
	}
}

// TestCategoryFilter verifies per-category enable/disable
func TestCategoryFilter(t *testing.T) {
	tempDir := t.TempDir()

	writeTestConfig(t, tempDir, `
logging:
  level: debug
  debug_mode: true
  categories:
    reconcile: true
    llm: false
`)

	resetState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	defer resetState()

	if !IsCategoryEnabled(CategoryReconcile) {
		t.Error("reconcile category should be enabled")
	}
	if IsCategoryEnabled(CategoryLLM) {
		t.Error("llm category should be disabled")
	}
	// Unlisted categories default to enabled in debug mode
	if !IsCategoryEnabled(CategoryWatch) {
		t.Error("unlisted category should default to enabled")
	}
}

// TestMissingConfigDefaultsToProduction verifies absent config disables logging
func TestMissingConfigDefaultsToProduction(t *testing.T) {
	tempDir := t.TempDir()

	resetState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize should not fail on missing config: %v", err)
	}
	defer resetState()

	if IsDebugMode() {
		t.Error("Missing config should mean production mode")
	}
}

// TestRequestLogger verifies request correlation formatting
func TestRequestLogger(t *testing.T) {
	tempDir := t.TempDir()

	writeTestConfig(t, tempDir, `
logging:
  level: debug
  debug_mode: true
`)

	resetState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	defer resetState()

	rl := WithRequestID(CategorySession, "req-123")
	rl.WithField("prompt_tokens", 42)
	rl.Info("submitted")

	CloseAll()

	data, err := os.ReadFile(filepath.Join(tempDir, ".codemate", "logs", "session.log"))
	if err != nil {
		t.Fatalf("Expected session log: %v", err)
	}
	if !strings.Contains(string(data), "[req:req-123]") {
		t.Errorf("Expected request ID in log output, got: %s", data)
	}
}

// TestAuditLog verifies audit events are written as JSON lines
func TestAuditLog(t *testing.T) {
	tempDir := t.TempDir()

	writeTestConfig(t, tempDir, `
logging:
  level: debug
  debug_mode: true
`)

	resetState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	defer resetState()

	if err := InitAudit(); err != nil {
		t.Fatalf("Failed to init audit: %v", err)
	}

	AuditWithSession("sess-1").LogFileOp(AuditFileSave, "/tmp/example.go", true, "")
	Audit().LogCommand(AuditCommandComplete, "echo hi", true, 12)

	CloseAudit()

	entries, err := filepath.Glob(filepath.Join(tempDir, ".codemate", "logs", "*_audit.jsonl"))
	if err != nil || len(entries) != 1 {
		t.Fatalf("Expected one audit file, got %v (err=%v)", entries, err)
	}
	data, err := os.ReadFile(entries[0])
	if err != nil {
		t.Fatalf("Failed to read audit file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, `"event":"file_save"`) {
		t.Errorf("Expected file_save event, got: %s", content)
	}
	if !strings.Contains(content, `"session":"sess-1"`) {
		t.Errorf("Expected session correlation, got: %s", content)
	}
}
