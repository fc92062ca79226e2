package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all codemate configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// File engine configuration
	Files FilesConfig `yaml:"files"`

	// Filesystem watcher configuration
	Watcher WatcherConfig `yaml:"watcher"`

	// Operation journal configuration
	History HistoryConfig `yaml:"history"`

	// Workspace scanning configuration
	Workspace WorkspaceConfig `yaml:"workspace"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// HistoryConfig configures the file-operation journal.
type HistoryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "codemate",
		Version: "0.3.0",

		LLM: LLMConfig{
			Provider:        "gemini",
			Model:           "gemini-2.0-flash",
			Timeout:         "30s",
			Temperature:     0.7,
			TopP:            0.95,
			TopK:            40,
			MaxOutputTokens: 2048,
		},

		Files: FilesConfig{
			BackupEnabled:     true,
			BackupRetention:   10,
			BackupDirName:     ".backups",
			AutoSaveEnabled:   false,
			AutoSaveInterval:  "30s",
			SuppressionWindow: "500ms",
			DefaultCollision:  "autorename",
		},

		Watcher: WatcherConfig{
			Debounce: "500ms",
			IgnoreDirs: []string{
				".git", "__pycache__", "node_modules", ".DS_Store",
				".pytest_cache", ".venv", ".idea", ".backups", ".codemate",
			},
		},

		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: ".codemate/history.db",
		},

		Workspace: WorkspaceConfig{
			SearchWorkers:  8,
			MaxSearchHits:  200,
			MaxFileSizeKB:  1024,
			UseGitignore:   true,
			IgnoreFileName: ".codemateignore",
		},

		Logging: LoggingConfig{
			Level:     "info",
			DebugMode: false,
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "gemini"
		}
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "gemini"
		}
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" && c.LLM.Provider == "ollama" {
		c.LLM.BaseURL = host
	}

	if path := os.Getenv("CODEMATE_DB"); path != "" {
		c.History.DatabasePath = path
	}
}

// parseDuration parses a duration string with a fallback.
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
