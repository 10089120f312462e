package main

import (
	"annot/internal/version"

	"github.com/spf13/cobra"
)

var (
	// verbosity is the number of -v flags
	verbosity int
	quiet     bool
	// rootFlag overrides workspace discovery
	rootFlag   string
	formatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "annot",
	Short: "annot - source code annotations checked by Peirce",
	Long: `annot attaches physical interpretations to ranges of source code, keeps
them in a JSON document next to the code, and synchronizes them with the Peirce
inference service, which proposes interpretable nodes and type checks the
annotations.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("annot version {{.Version}}\n")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log output (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "Workspace root (default: nearest directory containing .annot)")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", string(FormatHuman), "Output format (json, human)")
}

func outputFormat() OutputFormat {
	return OutputFormat(formatFlag)
}
