package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"codemate/internal/history"
)

var (
	historyPath  string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent file operations from the journal",
	Long: `Dumps the most recent records from the operation journal, newest
first. With --path, only operations touching that path (as source or
destination) are shown.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historyPath, "path", "p", "", "filter to operations on this path")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum records to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := history.NewStore(cfg.History.DatabasePath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer store.Close()

	var recs []history.FileOperationRecord
	if historyPath != "" {
		recs, err = store.ByPath(historyPath, historyLimit)
	} else {
		recs, err = store.Recent(historyLimit)
	}
	if err != nil {
		return err
	}

	if len(recs) == 0 {
		fmt.Println("no records")
		return nil
	}

	for _, rec := range recs {
		line := fmt.Sprintf("%s  %-7s %s", rec.Timestamp.Format("2006-01-02 15:04:05"), rec.Type, rec.Source)
		if rec.Destination != "" {
			line += " -> " + rec.Destination
		}
		fmt.Println(line)
	}
	return nil
}
