package reconcile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"codemate/internal/logging"
)

const backupTimeFormat = "20060102_150405"

// createBackup copies path into the sibling backup directory under a
// timestamped name, then prunes the oldest copies beyond the retention
// count. Returns the backup path.
func (e *Engine) createBackup(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read for backup: %w", err)
	}

	backupDir := filepath.Join(filepath.Dir(path), e.opts.BackupDirName)
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	name := filepath.Base(path)
	backupName := fmt.Sprintf("%s.%s.backup", name, time.Now().Format(backupTimeFormat))
	backupPath := filepath.Join(backupDir, backupName)

	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	e.pruneBackups(backupDir, name)
	return backupPath, nil
}

// pruneBackups removes the oldest backups of name past the retention
// count. The timestamp format sorts lexicographically, so name order is
// age order.
func (e *Engine) pruneBackups(backupDir, name string) {
	retention := e.opts.BackupRetention
	if retention <= 0 {
		return
	}

	entries, err := os.ReadDir(backupDir)
	if err != nil {
		logging.ReconcileDebug("backup prune skipped, cannot read %s: %v", backupDir, err)
		return
	}

	prefix := name + "."
	var backups []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		n := entry.Name()
		if strings.HasPrefix(n, prefix) && strings.HasSuffix(n, ".backup") {
			backups = append(backups, n)
		}
	}
	if len(backups) <= retention {
		return
	}

	sort.Strings(backups)
	for _, old := range backups[:len(backups)-retention] {
		if err := os.Remove(filepath.Join(backupDir, old)); err != nil {
			logging.ReconcileDebug("failed to prune backup %s: %v", old, err)
		} else {
			logging.ReconcileDebug("pruned backup %s", old)
		}
	}
}
