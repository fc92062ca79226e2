package config

import "time"

// FilesConfig configures the file reconciliation engine.
type FilesConfig struct {
	// Backup behavior on save
	BackupEnabled   bool   `yaml:"backup_enabled"`
	BackupRetention int    `yaml:"backup_retention"` // backups kept per file; oldest pruned
	BackupDirName   string `yaml:"backup_dir_name"`  // sibling directory name, e.g. ".backups"

	// Auto-save loop
	AutoSaveEnabled  bool   `yaml:"auto_save_enabled"`
	AutoSaveInterval string `yaml:"auto_save_interval"`

	// Self-echo suppression window after engine writes
	SuppressionWindow string `yaml:"suppression_window"`

	// Default collision policy for create: overwrite, autorename, cancel
	DefaultCollision string `yaml:"default_collision"`
}

// GetAutoSaveInterval returns the auto-save interval as a duration.
func (c *FilesConfig) GetAutoSaveInterval() time.Duration {
	return parseDuration(c.AutoSaveInterval, 30*time.Second)
}

// GetSuppressionWindow returns the self-echo suppression window as a duration.
func (c *FilesConfig) GetSuppressionWindow() time.Duration {
	return parseDuration(c.SuppressionWindow, 500*time.Millisecond)
}

// WatcherConfig configures filesystem change detection.
type WatcherConfig struct {
	Debounce   string   `yaml:"debounce"`
	IgnoreDirs []string `yaml:"ignore_dirs"`
}

// GetDebounce returns the watcher debounce window as a duration.
func (c *WatcherConfig) GetDebounce() time.Duration {
	return parseDuration(c.Debounce, 500*time.Millisecond)
}
