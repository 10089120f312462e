package main

import (
	"github.com/spf13/cobra"
)

var populateCmd = &cobra.Command{
	Use:   "populate <file>",
	Short: "Replace a file's terms with the nodes Peirce reports",
	Long: `Sends the file to the Peirce service, replaces every stored term of that
file and the constructor list with the nodes it reports as interpretable, then
type checks the result. Nothing is changed when the service cannot be reached.`,
	Args: cobra.ExactArgs(1),
	RunE: runPopulate,
}

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Type check the stored annotations",
	Long:  "Submits every term, space and constructor to Peirce and stores the diagnostics it returns.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(populateCmd)
	rootCmd.AddCommand(checkCmd)
}

func runPopulate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	if _, err := a.withEngine(); err != nil {
		return err
	}

	ctx, cancel := newContext()
	defer cancel()
	file, err := a.fileContext(ctx, args[0])
	if err != nil {
		return err
	}
	res, err := a.engine.Populate(ctx, file)
	if err != nil {
		return err
	}
	return printResponse(&res)
}

func runCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	if _, err := a.withEngine(); err != nil {
		return err
	}

	ctx, cancel := newContext()
	defer cancel()
	file, err := a.fileContext(ctx, args[0])
	if err != nil {
		return err
	}
	res, err := a.engine.Check(ctx, file)
	if err != nil {
		return err
	}
	return printResponse(&res)
}
