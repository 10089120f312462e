package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"annot/internal/interp"
)

// huhPrompter asks through terminal forms.
type huhPrompter struct{}

func (huhPrompter) Select(ctx context.Context, title string, options []string) (int, error) {
	opts := make([]huh.Option[int], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o, i)
	}
	choice := -1
	field := huh.NewSelect[int]().Title(title).Options(opts...).Value(&choice)
	if err := huh.NewForm(huh.NewGroup(field)).RunWithContext(ctx); err != nil {
		return -1, formErr(err)
	}
	return choice, nil
}

func (huhPrompter) Input(ctx context.Context, title, placeholder string) (string, error) {
	var answer string
	field := huh.NewInput().Title(title).Placeholder(placeholder).Value(&answer)
	if err := huh.NewForm(huh.NewGroup(field)).RunWithContext(ctx); err != nil {
		return "", formErr(err)
	}
	return answer, nil
}

func formErr(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return interp.ErrAborted
	}
	return err
}

func isInteractive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// newPrompter replays answers when given, and otherwise uses forms on a
// terminal and numbered menus elsewhere.
func newPrompter(answers ...string) interp.Prompter {
	if len(answers) > 0 {
		return interp.NewScriptPrompter(answers...)
	}
	if isInteractive() {
		return huhPrompter{}
	}
	return interp.NewLinePrompter(os.Stdin, os.Stderr)
}

// warnUnusedAnswers logs scripted answers the flow never asked for.
func warnUnusedAnswers(logger *slog.Logger, p interp.Prompter) {
	if sp, ok := p.(*interp.ScriptPrompter); ok && sp.Remaining() > 0 {
		logger.Warn("Unused answers", "count", sp.Remaining())
	}
}
