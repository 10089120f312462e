package main

import (
	"fmt"

	"annot/internal/report"

	"github.com/spf13/cobra"
)

var (
	reportOutput     string
	reportTimestamps bool
	reportFileNames  bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the annotations as Markdown",
	Long: `Renders pending and done terms, constructors and coordinate spaces as a
Markdown summary. Defaults for the optional lines come from display.* in the
configuration.

Examples:
  annot report                       # Print to stdout
  annot report -o SUMMARY.md         # Write a file
  annot report --timestamps=false    # Omit update times`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Write to a path or URL instead of stdout")
	reportCmd.Flags().BoolVar(&reportTimestamps, "timestamps", false, "Show when each term was last updated")
	reportCmd.Flags().BoolVar(&reportFileNames, "filenames", true, "Show the file and range of each term")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := newContext()
	defer cancel()
	doc, err := a.withStore().store.Load(ctx)
	if err != nil {
		return err
	}

	opts := report.Options{
		Root:           a.ws.Root,
		ShowTimestamps: a.cfg.Display.ShowTimestamps,
		ShowFileName:   a.cfg.Display.ShowFileName,
	}
	if cmd.Flags().Changed("timestamps") {
		opts.ShowTimestamps = reportTimestamps
	}
	if cmd.Flags().Changed("filenames") {
		opts.ShowFileName = reportFileNames
	}
	out := report.Render(doc, opts)

	if reportOutput == "" {
		fmt.Print(out)
		return nil
	}
	if err := a.ws.WriteOutput(ctx, reportOutput, []byte(out)); err != nil {
		return err
	}
	fmt.Printf("Report written to %s\n", reportOutput)
	return nil
}
