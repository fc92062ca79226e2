package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"codemate/internal/config"
	"codemate/internal/logging"
)

const defaultConfigPath = ".codemate/config.yaml"

var (
	// Global flags
	cfgPath string
	verbose bool

	// Loaded in PersistentPreRunE, available to every subcommand
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mate",
	Short: "codemate - LLM-assisted editing for your working tree",
	Long: `codemate turns natural-language instructions into concrete file
operations: it prompts an LLM, recovers a structured action from whatever
the model actually returns, and applies it through a reconciliation engine
that tracks per-file state, takes backups, and never lets an external
writer silently clobber your edits.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		path := cfgPath
		if env := os.Getenv("CODEMATE_CONFIG"); env != "" && !cmd.Flags().Changed("config") {
			path = env
		}
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}

		if err := logging.Initialize("."); err != nil {
			logger.Warn("file logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
