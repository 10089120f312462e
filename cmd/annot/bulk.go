package main

import (
	"fmt"

	"annot/internal/store"

	"github.com/spf13/cobra"
)

var (
	bulkFile   string
	bulkStatus string
)

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Change many terms at once",
	Long: `Applies one change to every matching term, optionally limited to one file.

Examples:
  annot bulk done --file src/main.cpp     # Mark every pending term of a file done
  annot bulk undo                         # Reopen every done term
  annot bulk remove --status done         # Delete every done term`,
}

var bulkDoneCmd = &cobra.Command{
	Use:   "done",
	Short: "Mark every pending term done",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBulkStatus(store.StatusPending, store.StatusDone)
	},
}

var bulkUndoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Mark every done term pending",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBulkStatus(store.StatusDone, store.StatusPending)
	},
}

var bulkRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Delete every term with --status",
	Args:  cobra.NoArgs,
	RunE:  runBulkRemove,
}

func init() {
	bulkCmd.PersistentFlags().StringVar(&bulkFile, "file", "", "Only terms of this file")
	bulkRemoveCmd.Flags().StringVar(&bulkStatus, "status", "", "Status of the terms to delete (pending, done)")
	_ = bulkRemoveCmd.MarkFlagRequired("status")

	bulkCmd.AddCommand(bulkDoneCmd)
	bulkCmd.AddCommand(bulkUndoCmd)
	bulkCmd.AddCommand(bulkRemoveCmd)
	rootCmd.AddCommand(bulkCmd)
}

func (a *app) bulkFileName() string {
	if bulkFile == "" {
		return ""
	}
	return a.ws.Resolve(bulkFile)
}

func runBulkStatus(from, to store.Status) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := newContext()
	defer cancel()
	n, err := a.withStore().store.SetAllStatus(ctx, a.bulkFileName(), from, to)
	if err != nil {
		return err
	}
	return printResponse(&MessageResponse{
		Message: fmt.Sprintf("Marked %d term(s) %s.", n, to),
		Counts:  map[string]int{string(to): n},
	})
}

func runBulkRemove(cmd *cobra.Command, args []string) error {
	status, err := store.ParseStatus(bulkStatus)
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := newContext()
	defer cancel()
	n, err := a.withStore().store.RemoveAllByFileAndStatus(ctx, a.bulkFileName(), status)
	if err != nil {
		return err
	}
	return printResponse(&MessageResponse{
		Message: fmt.Sprintf("Removed %d %s term(s).", n, status),
		Counts:  map[string]int{"removed": n},
	})
}
