package main

import (
	"fmt"
	"time"

	"annot/internal/report"
	"annot/internal/store"

	"github.com/spf13/cobra"
)

var (
	watchReport string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow changes to the annotation document",
	Long: `Prints a line whenever the annotation document is rewritten, by this or any
other process, until interrupted. With --report the Markdown summary is
regenerated on every change.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchReport, "report", "", "Rewrite this report on every change")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := newContext()
	defer cancel()
	st := a.withStore().store
	if _, err := st.Load(ctx); err != nil {
		return err
	}
	fmt.Printf("Watching %s (Ctrl-C to stop)\n", st.Path())

	return st.Watch(ctx, func(e store.Event) {
		fmt.Printf("%s  %s revision %d\n", time.Now().Format("15:04:05"), e.Kind, e.Revision)
		if watchReport == "" {
			return
		}
		doc, err := st.Load(ctx)
		if err != nil {
			a.logger.Warn("Reload failed", "error", err.Error())
			return
		}
		out := report.Render(doc, report.Options{
			Root:           a.ws.Root,
			ShowTimestamps: a.cfg.Display.ShowTimestamps,
			ShowFileName:   a.cfg.Display.ShowFileName,
		})
		if err := a.ws.WriteOutput(ctx, watchReport, []byte(out)); err != nil {
			a.logger.Warn("Report update failed", "error", err.Error())
		}
	})
}
