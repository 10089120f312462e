package main

import (
	"fmt"

	"annot/internal/store"

	"github.com/spf13/cobra"
)

var doneCmd = &cobra.Command{
	Use:   "done <id>...",
	Short: "Mark terms or constructors as done",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMark(args, store.StatusDone)
	},
}

var undoCmd = &cobra.Command{
	Use:   "undo <id>...",
	Short: "Mark terms or constructors as pending again",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMark(args, store.StatusPending)
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove <id>...",
	Aliases: []string{"rm"},
	Short:   "Delete terms",
	Long:    "Deletes terms by id. Constructors are replaced by populate and cannot be removed.",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runRemove,
}

func init() {
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(removeCmd)
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func runMark(args []string, status store.Status) error {
	ids, err := parseIDs(args)
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
	st := a.withStore().store
	for _, id := range ids {
		if err := st.SetStatus(ctx, id, status); err != nil {
			return err
		}
	}
	return printResponse(&MessageResponse{
		Message: fmt.Sprintf("Marked %d item(s) %s.", len(ids), status),
		Counts:  map[string]int{string(status): len(ids)},
	})
}

func runRemove(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
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
	st := a.withStore().store
	for _, id := range ids {
		if err := st.RemoveByID(ctx, id); err != nil {
			return err
		}
	}
	return printResponse(&MessageResponse{
		Message: fmt.Sprintf("Removed %d term(s).", len(ids)),
		Counts:  map[string]int{"removed": len(ids)},
	})
}
