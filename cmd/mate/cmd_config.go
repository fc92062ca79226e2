package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codemate/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	Long:  `Writes the default YAML configuration to the --config path. Refuses to overwrite an existing file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfgPath); err == nil {
			return fmt.Errorf("%s already exists", cfgPath)
		}
		if err := config.DefaultConfig().Save(cfgPath); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", cfgPath)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("provider:        %s (model %s)\n", cfg.LLM.Provider, cfg.LLM.Model)
		fmt.Printf("backups:         enabled=%t retention=%d dir=%s\n",
			cfg.Files.BackupEnabled, cfg.Files.BackupRetention, cfg.Files.BackupDirName)
		fmt.Printf("auto-save:       enabled=%t interval=%s\n",
			cfg.Files.AutoSaveEnabled, cfg.Files.GetAutoSaveInterval())
		fmt.Printf("collision:       %s\n", cfg.Files.DefaultCollision)
		fmt.Printf("watch debounce:  %s\n", cfg.Watcher.GetDebounce())
		fmt.Printf("journal:         enabled=%t path=%s\n", cfg.History.Enabled, cfg.History.DatabasePath)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
