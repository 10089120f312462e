package main

import (
	"fmt"

	"annot/internal/version"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat() == FormatJSON {
			return printResponse(map[string]string{
				"version":   version.Version,
				"full":      version.Full(),
				"userAgent": version.UserAgent(),
			})
		}
		fmt.Println(version.Full())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
