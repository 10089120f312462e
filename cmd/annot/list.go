package main

import (
	annerrors "annot/internal/errors"
	"annot/internal/paths"
	"annot/internal/store"

	"github.com/spf13/cobra"
)

var (
	listFile         string
	listStatus       string
	listSearch       string
	listConstructors bool
	listAt           string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List annotations",
	Long: `Lists stored terms in document order.

Examples:
  annot list                         # Every term
  annot list --status pending        # Only pending terms
  annot list --file src/main.cpp     # Terms of one file
  annot list --search velocity       # Match text, snippet or interpretation
  annot list --constructors          # Include constructors
  annot list --file src/main.cpp --at 12:6        # Terms under a cursor
  annot list --file src/main.cpp --at 10:0-14:0   # Terms touching a range`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one term",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	listCmd.Flags().StringVar(&listFile, "file", "", "Only terms of this file")
	listCmd.Flags().StringVar(&listStatus, "status", "all", "Filter by status (pending, done, all)")
	listCmd.Flags().StringVar(&listSearch, "search", "", "Case-insensitive text filter")
	listCmd.Flags().BoolVar(&listConstructors, "constructors", false, "Also list constructors")
	listCmd.Flags().StringVar(&listAt, "at", "", "Only terms covering line:char or touching line:char-line:char (needs --file)")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	status, filterStatus, err := optionalStatus(listStatus)
	if err != nil {
		return err
	}
	at, err := parseLocation(listAt)
	if err != nil {
		return err
	}
	if at != nil && listFile == "" {
		return annerrors.Newf(annerrors.InvalidArgument, "--at needs --file")
	}
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

	terms := doc.Terms
	if listSearch != "" {
		terms = doc.SearchTerms(listSearch)
	}
	fileName := ""
	if listFile != "" {
		fileName = a.ws.Resolve(listFile)
	}
	filtered := make([]store.Term, 0, len(terms))
	for _, t := range terms {
		if fileName != "" && paths.NormalizePath(t.FileName) != paths.NormalizePath(fileName) {
			continue
		}
		if filterStatus && t.Status != status {
			continue
		}
		if at != nil && !at(t.Range) {
			continue
		}
		filtered = append(filtered, t)
	}

	resp := ListResponse{Terms: termViews(filtered, a.ws.Root)}
	if listConstructors {
		for _, c := range doc.Constructors {
			if filterStatus && c.Status != status {
				continue
			}
			resp.Constructors = append(resp.Constructors, constructorView(c))
		}
	}
	return printResponse(&resp)
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
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
	t, err := a.withStore().store.FindTermByID(ctx, id)
	if err != nil {
		return err
	}
	view := termView(t, a.ws.Root)
	return printResponse(&view)
}
