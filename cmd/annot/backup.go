package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Inspect and restore document backups",
	Long: `Backups are written before a legacy document is migrated, before clear and
before a restore. They are zstd compressed and named so they sort by time.`,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups",
	Args:  cobra.NoArgs,
	RunE:  runBackupList,
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Replace the document with a backup",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupRestore,
}

func init() {
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	rootCmd.AddCommand(backupCmd)
}

func runBackupList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	st := a.withStore().store
	backups, err := st.Backups()
	if err != nil {
		return err
	}
	return printResponse(&BackupsResponse{Dir: filepath.Join(st.Dir(), "backups"), Backups: backups})
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := newContext()
	defer cancel()
	doc, err := a.withStore().store.Restore(ctx, args[0])
	if err != nil {
		return err
	}
	return printResponse(&MessageResponse{
		Message: fmt.Sprintf("Restored %s.", args[0]),
		Counts:  map[string]int{"terms": len(doc.Terms), "constructors": len(doc.Constructors)},
	})
}
