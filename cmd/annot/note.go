package main

import (
	"strings"

	annerrors "annot/internal/errors"
	"annot/internal/store"

	"github.com/spf13/cobra"
)

var (
	noteFile  string
	noteRange string
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Manage hand-written notes",
}

var noteAddCmd = &cobra.Command{
	Use:   "add [text...]",
	Short: "Add a plain note or attach one to a range of a file",
	Long: `Stores a pending note. Without --file the note is plain and belongs to no
file. With --file and --range it is attached to that range, written
line:char-line:char with zero-based lines and UTF-16 character offsets.
An attached note without text takes the text of a '// TODO:' or '// FIX:'
comment inside the range, or of a notes.customTodo pattern.

Examples:
  annot note add check the unit conventions with the team
  annot note add --file src/main.cpp --range 12:4-12:9 velocity of the tracked body
  annot note add --file src/main.cpp --range 30:0-30:40`,
	RunE: runNoteAdd,
}

var noteEditCmd = &cobra.Command{
	Use:   "edit <id> <text...>",
	Short: "Replace the text of a note",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runNoteEdit,
}

func init() {
	noteAddCmd.Flags().StringVar(&noteFile, "file", "", "File the note is attached to")
	noteAddCmd.Flags().StringVar(&noteRange, "range", "", "Range in the file, line:char-line:char")
	noteCmd.AddCommand(noteAddCmd)
	noteCmd.AddCommand(noteEditCmd)
	rootCmd.AddCommand(noteCmd)
}

func runNoteAdd(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if (noteFile == "") != (noteRange == "") {
		return annerrors.Newf(annerrors.InvalidArgument, "--file and --range go together")
	}
	if noteFile == "" && strings.TrimSpace(text) == "" {
		return annerrors.Newf(annerrors.InvalidArgument, "a plain note needs text")
	}

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
	var t store.Term
	if noteFile == "" {
		t, err = a.engine.AddPlainNote(ctx, text)
	} else {
		r, perr := parseRange(noteRange)
		if perr != nil {
			return perr
		}
		file, ferr := a.fileContext(ctx, noteFile)
		if ferr != nil {
			return ferr
		}
		t, err = a.engine.AddNote(ctx, file, r, text)
	}
	if err != nil {
		return err
	}
	view := termView(t, a.ws.Root)
	return printResponse(&view)
}

func runNoteEdit(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
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
	t, err := a.engine.EditNote(ctx, id, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	view := termView(t, a.ws.Root)
	return printResponse(&view)
}
