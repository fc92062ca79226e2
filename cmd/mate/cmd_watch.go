package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"codemate/internal/reconcile"
	"codemate/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [root]",
	Short: "Watch a directory tree and report external changes",
	Long: `Runs the filesystem watcher against a root (default: current
directory), printing each settled change. Useful for checking what the
engine would flag as external modifications, and for tuning the ignore
list and debounce window.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	engine := reconcile.NewEngine(reconcile.OptionsFromConfig(&cfg.Files), nil)

	w, err := watch.New(root, cfg.Watcher.GetDebounce(), cfg.Watcher.IgnoreDirs, func(ev watch.Event) {
		flagged := false
		switch ev.Kind {
		case watch.Added:
			flagged = engine.OnExternalChange(ev.Path, reconcile.ExternalAdded)
		case watch.Modified:
			flagged = engine.OnExternalChange(ev.Path, reconcile.ExternalModified)
		case watch.Removed:
			flagged = engine.OnExternalChange(ev.Path, reconcile.ExternalRemoved)
		}
		marker := ""
		if flagged {
			marker = "  [conflicts with open file]"
		}
		fmt.Printf("%-8s %s%s\n", ev.Kind, ev.Path, marker)
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := w.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("watching %s (ctrl-c to stop)\n", root)

	<-ctx.Done()
	w.Stop()

	stats := w.GetStats()
	fmt.Printf("\n%d added, %d modified, %d removed, %d delivered\n",
		stats.FilesAdded, stats.FilesModified, stats.FilesRemoved, stats.Delivered)
	return nil
}
