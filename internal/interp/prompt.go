package interp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	annerrors "annot/internal/errors"
)

// ErrAborted is returned by a Prompter when the user dismisses a prompt.
var ErrAborted = errors.New("prompt aborted")

// Prompter collects one answer at a time from the user.
type Prompter interface {
	// Select returns the index of the chosen option.
	Select(ctx context.Context, title string, options []string) (int, error)
	// Input returns free text. An empty answer is not an abort.
	Input(ctx context.Context, title, placeholder string) (string, error)
}

// ScriptPrompter replays pre-recorded answers. A Select answer may be the
// option text (case-insensitive) or its 1-based index. Running out of
// answers aborts.
type ScriptPrompter struct {
	Answers []string
	pos     int
}

// NewScriptPrompter returns a prompter that answers in order.
func NewScriptPrompter(answers ...string) *ScriptPrompter {
	return &ScriptPrompter{Answers: answers}
}

func (p *ScriptPrompter) next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.pos >= len(p.Answers) {
		return "", ErrAborted
	}
	a := p.Answers[p.pos]
	p.pos++
	return a, nil
}

func (p *ScriptPrompter) Select(ctx context.Context, title string, options []string) (int, error) {
	a, err := p.next(ctx)
	if err != nil {
		return -1, err
	}
	return matchOption(a, options)
}

func (p *ScriptPrompter) Input(ctx context.Context, title, placeholder string) (string, error) {
	return p.next(ctx)
}

// Remaining reports how many answers were not consumed.
func (p *ScriptPrompter) Remaining() int {
	return len(p.Answers) - p.pos
}

func matchOption(answer string, options []string) (int, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return -1, ErrAborted
	}
	for i, o := range options {
		if strings.EqualFold(o, answer) {
			return i, nil
		}
	}
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
		return n - 1, nil
	}
	return -1, annerrors.Newf(annerrors.InvalidArgument, "%q is not one of the %d options", answer, len(options))
}

// LinePrompter asks on a line-oriented terminal: numbered menus for Select,
// a single line for Input. An empty Select answer or end of input aborts.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter reads answers from in and writes prompts to out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

func (p *LinePrompter) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := p.in.ReadString('\n')
	if err != nil && (text == "" || !errors.Is(err, io.EOF)) {
		if errors.Is(err, io.EOF) {
			return "", ErrAborted
		}
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (p *LinePrompter) Select(ctx context.Context, title string, options []string) (int, error) {
	fmt.Fprintln(p.out, title)
	for i, o := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, o)
	}
	for {
		fmt.Fprint(p.out, "> ")
		answer, err := p.readLine(ctx)
		if err != nil {
			return -1, err
		}
		idx, err := matchOption(answer, options)
		if err == nil || errors.Is(err, ErrAborted) {
			return idx, err
		}
		var ae *annerrors.AnnotError
		if errors.As(err, &ae) {
			fmt.Fprintf(p.out, "  (%s)\n", ae.Message)
			continue
		}
		fmt.Fprintf(p.out, "  (%v)\n", err)
	}
}

func (p *LinePrompter) Input(ctx context.Context, title, placeholder string) (string, error) {
	if placeholder != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", title, placeholder)
	} else {
		fmt.Fprintf(p.out, "%s: ", title)
	}
	return p.readLine(ctx)
}
