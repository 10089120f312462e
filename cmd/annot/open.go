package main

import (
	"fmt"

	"annot/internal/anchor"
	annerrors "annot/internal/errors"
	"annot/internal/paths"
	"annot/internal/store"

	"github.com/spf13/cobra"
)

var openCmd = &cobra.Command{
	Use:   "open <id>",
	Short: "Print the editor location of a term",
	Long: `Prints path:line:column for a term, one-based, in the form editors accept
(for example 'code -g $(annot open 7)'). A warning is logged when the file no
longer holds the captured snippet at that range.`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

var copyCmd = &cobra.Command{
	Use:   "copy <id>",
	Short: "Print the text of a term",
	Args:  cobra.ExactArgs(1),
	RunE:  runCopy,
}

func init() {
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(copyCmd)
}

// LocationResponse is printed by open.
type LocationResponse struct {
	ID     int          `json:"id"`
	File   string       `json:"file"`
	Range  anchor.Range `json:"range"`
	Target string       `json:"target"`
	Stale  bool         `json:"stale"`
}

func (a *app) findTerm(args []string) (store.Term, error) {
	id, err := parseID(args[0])
	if err != nil {
		return store.Term{}, err
	}
	ctx, cancel := newContext()
	defer cancel()
	return a.withStore().store.FindTermByID(ctx, id)
}

// errNoLocation rejects opening a plain note.
func errNoLocation(t store.Term) error {
	return annerrors.Newf(annerrors.InvalidArgument, "term #%d is a plain note with no file location", t.ID)
}

func runOpen(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	t, err := a.findTerm(args)
	if err != nil {
		return err
	}
	if t.IsPlain() {
		return errNoLocation(t)
	}

	resp := LocationResponse{
		ID:     t.ID,
		File:   t.FileName,
		Range:  t.Range,
		Target: fmt.Sprintf("%s:%d:%d", t.FileName, t.Range.Start.Line+1, t.Range.Start.Character+1),
	}
	ctx, cancel := newContext()
	defer cancel()
	if text, readErr := a.ws.ReadSource(ctx, t.FileName); readErr != nil {
		a.logger.Warn("Cannot read annotated file", "file", paths.Display(t.FileName, a.ws.Root), "error", readErr.Error())
	} else if anchor.IsStale(text, t.Range, t.CodeSnippet) {
		resp.Stale = true
		a.logger.Warn("Annotated code has changed since it was captured", "id", t.ID, "range", t.Range.String())
	}

	if outputFormat() == FormatJSON {
		return printResponse(&resp)
	}
	fmt.Println(resp.Target)
	return nil
}

func runCopy(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	t, err := a.findTerm(args)
	if err != nil {
		return err
	}
	if outputFormat() == FormatJSON {
		return printResponse(map[string]interface{}{"id": t.ID, "text": t.Text})
	}
	fmt.Println(t.Text)
	return nil
}
