package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyFile  string
	historyPrune bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent oracle operations",
	Long: `Lists the populate, check, edit and space operations recorded in the
workspace journal, newest first. --prune drops entries older than
journal.retentionDays.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries")
	historyCmd.Flags().StringVar(&historyFile, "file", "", "Only operations on this file")
	historyCmd.Flags().BoolVar(&historyPrune, "prune", false, "Delete entries past the retention period first")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	db := a.openJournal()
	if db == nil {
		return fmt.Errorf("journal is disabled or the workspace is not initialized")
	}

	ctx, cancel := newContext()
	defer cancel()
	var resp HistoryResponse
	if historyPrune && a.cfg.Journal.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -a.cfg.Journal.RetentionDays)
		if resp.Pruned, err = db.Prune(ctx, cutoff); err != nil {
			return err
		}
	}
	file := ""
	if historyFile != "" {
		file = a.ws.Resolve(historyFile)
	}
	if resp.Entries, err = db.Recent(ctx, historyLimit, file); err != nil {
		return err
	}
	return printResponse(&resp)
}
