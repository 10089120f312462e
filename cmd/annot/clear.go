package main

import (
	"fmt"

	"annot/internal/interp"

	"github.com/spf13/cobra"
)

var (
	clearYes bool
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every term and constructor",
	Long: `Deletes every term and constructor after writing a compressed backup.
Coordinate spaces are kept, and ids are never reused. Restore with
'annot backup restore <name>'.`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := newContext()
	defer cancel()
	if !clearYes {
		if !isInteractive() {
			return fmt.Errorf("refusing to clear without --yes when stdin is not a terminal")
		}
		choice, err := interp.Choose(ctx, newPrompter(), "Delete every term and constructor?", []string{"No", "Yes"})
		if err != nil {
			return err
		}
		if choice != 1 {
			return interp.ErrCancelled
		}
	}

	res, err := a.withStore().store.ClearAll(ctx)
	if err != nil {
		return err
	}
	return printResponse(&MessageResponse{
		Message: fmt.Sprintf("Cleared annotations; backup %s.", res.Backup),
		Counts:  map[string]int{"terms": res.Terms, "constructors": res.Constructors},
	})
}
