// Package report renders the annotation document as a Markdown summary.
package report

import (
	"fmt"
	"strings"

	"annot/internal/paths"
	"annot/internal/store"
)

const fence = "```"

// TimestampLayout is the minute-precision stamp shown under each note.
const TimestampLayout = "2006-01-02 15:04"

// Options controls which optional lines appear.
type Options struct {
	// Root makes file names relative. Files outside it keep their path.
	Root           string
	ShowTimestamps bool
	ShowFileName   bool
}

// Render returns the summary for doc. Pending terms come first, then done
// terms, both in document order. Constructors and spaces follow when present.
func Render(doc *store.Document, opts Options) string {
	var sb strings.Builder
	sb.WriteString("# Code Annotator - Summary\n")

	if doc == nil {
		doc = store.NewDocument()
	}

	sb.WriteString("\n---\n## Pending\n")
	for _, t := range doc.TermsByStatus(store.StatusPending) {
		writeTerm(&sb, t, opts)
	}
	sb.WriteString("\n---\n## Done\n")
	for _, t := range doc.TermsByStatus(store.StatusDone) {
		writeTerm(&sb, t, opts)
	}

	if len(doc.Constructors) > 0 {
		sb.WriteString("\n---\n## Constructors\n")
		for _, c := range doc.Constructors {
			box := " "
			if c.Status == store.StatusDone {
				box = "x"
			}
			fmt.Fprintf(&sb, "- [%s] `%s`", box, c.Name)
			if c.Interpretation != nil {
				fmt.Fprintf(&sb, " %s", c.Interpretation.Header().Label)
			}
			sb.WriteString("\n")
		}
	}

	reg := doc.Spaces()
	if reg.Len() > 0 {
		sb.WriteString("\n---\n## Coordinate Spaces\n")
		for _, s := range reg.All() {
			fmt.Fprintf(&sb, "- %s\n", reg.Describe(s))
		}
	}
	return sb.String()
}

func writeTerm(sb *strings.Builder, t store.Term, opts Options) {
	fmt.Fprintf(sb, "### - %s\n\n", heading(t))
	if opts.ShowTimestamps && !t.UpdatedAt.IsZero() {
		fmt.Fprintf(sb, "_%s_\n\n", t.UpdatedAt.Format(TimestampLayout))
	}
	if opts.ShowFileName && t.FileName != "" {
		fmt.Fprintf(sb, "`%s` (%s)\n\n", paths.Display(t.FileName, opts.Root), t.Range)
	}
	if t.CodeSnippet != "" {
		sb.WriteString(fence + "\n")
		sb.WriteString(snippet(t))
		sb.WriteString("\n" + fence + "\n\n")
	}
	if t.Interpretation != nil {
		fmt.Fprintf(sb, "Interpretation: `%s`\n\n", t.Interpretation.Header().Label)
	}
	if t.Error != "" && t.Error != store.NotChecked {
		fmt.Fprintf(sb, "> Error: %s\n\n", oneLine(t.Error))
	}
}

// heading falls back to the snippet when the note has no text.
func heading(t store.Term) string {
	if text := oneLine(t.Text); text != "" {
		return text
	}
	if t.Interpretation != nil {
		return t.Interpretation.Header().Label
	}
	return oneLine(t.CodeSnippet)
}

// snippet restores the indentation of the first line of a multi-line range,
// which the captured text starts mid-line.
func snippet(t store.Term) string {
	text := strings.TrimRight(t.CodeSnippet, "\n")
	if t.Range.SpansLines() && t.Range.Start.Character > 0 {
		text = strings.Repeat(" ", t.Range.Start.Character) + text
	}
	return text
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
