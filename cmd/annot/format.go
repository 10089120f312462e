package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"annot/internal/config"
	"annot/internal/journal"
	"annot/internal/reconcile"
	"annot/internal/store"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

var (
	idColor      = color.New(color.FgCyan, color.Bold)
	pendingColor = color.New(color.FgYellow)
	doneColor    = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.Faint)
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *ListResponse:
		return formatListHuman(v), nil
	case *TermView:
		return formatTermDetailHuman(v), nil
	case *SpacesResponse:
		return formatSpacesHuman(v), nil
	case *HistoryResponse:
		return formatHistoryHuman(v), nil
	case *BackupsResponse:
		return formatBackupsHuman(v), nil
	case *MessageResponse:
		return formatMessageHuman(v), nil
	case *reconcile.PopulateResult:
		return formatPopulateHuman(v), nil
	case *reconcile.CheckResult:
		return formatCheckHuman(v), nil
	case *reconcile.EditResult:
		return formatEditHuman(v), nil
	case *config.LoadResult:
		return formatConfigHuman(v), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

func statusText(s store.Status) string {
	if s == store.StatusDone {
		return doneColor.Sprint("[x]")
	}
	return pendingColor.Sprint("[ ]")
}

// termLocation is file:range, or a marker for plain notes.
func termLocation(t TermView) string {
	if t.File == "" {
		return dimColor.Sprint("(plain note)")
	}
	return fmt.Sprintf("%s:%s", t.File, t.Range)
}

func formatTermLine(b *strings.Builder, t TermView) {
	heading := t.Text
	if heading == "" {
		heading = t.Interpretation
	}
	if heading == "" {
		heading = strings.Join(strings.Fields(t.Snippet), " ")
	}
	fmt.Fprintf(b, "%s %s %s  %s\n",
		statusText(t.Status), idColor.Sprintf("#%d", t.ID), termLocation(t), heading)
	if t.Interpretation != "" && t.Interpretation != heading {
		fmt.Fprintf(b, "      %s %s\n", dimColor.Sprint("interpretation:"), t.Interpretation)
	}
	if t.Error != "" {
		fmt.Fprintf(b, "      %s\n", errorColor.Sprint("error: "+t.Error))
	}
}

func formatListHuman(resp *ListResponse) string {
	var b strings.Builder
	if len(resp.Terms) == 0 && len(resp.Constructors) == 0 {
		return "No annotations."
	}
	for _, t := range resp.Terms {
		formatTermLine(&b, t)
	}
	if len(resp.Constructors) > 0 {
		if len(resp.Terms) > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Constructors:\n")
		for _, c := range resp.Constructors {
			label := c.Interpretation
			if label == "" {
				label = dimColor.Sprint("(uninterpreted)")
			}
			fmt.Fprintf(&b, "%s %s %s  %s\n", statusText(c.Status), idColor.Sprintf("#%d", c.ID), c.Name, label)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatTermDetailHuman(t *TermView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", idColor.Sprintf("#%d", t.ID), t.Text)
	fmt.Fprintf(&b, "  File:           %s\n", termLocation(*t))
	fmt.Fprintf(&b, "  Status:         %s\n", t.Status)
	fmt.Fprintf(&b, "  Node type:      %s\n", t.NodeType)
	if t.Interpretation != "" {
		fmt.Fprintf(&b, "  Interpretation: %s\n", t.Interpretation)
	}
	if t.Error != "" {
		fmt.Fprintf(&b, "  Error:          %s\n", errorColor.Sprint(t.Error))
	}
	if !t.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "  Updated:        %s\n", t.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	b.WriteString("\n")
	b.WriteString(t.Snippet)
	return b.String()
}

func formatSpacesHuman(resp *SpacesResponse) string {
	if len(resp.Spaces) == 0 {
		return "No coordinate spaces."
	}
	var b strings.Builder
	for _, s := range resp.Spaces {
		fmt.Fprintf(&b, "%-7s %s\n", s.Kind, s.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatHistoryHuman(resp *HistoryResponse) string {
	var b strings.Builder
	if resp.Pruned > 0 {
		fmt.Fprintf(&b, "Pruned %d old entries.\n", resp.Pruned)
	}
	if len(resp.Entries) == 0 {
		b.WriteString("No recorded operations.")
		return b.String()
	}
	for _, e := range resp.Entries {
		outcome := string(e.Outcome)
		if e.Outcome == journal.OutcomeOK {
			outcome = doneColor.Sprint(outcome)
		} else {
			outcome = errorColor.Sprint(outcome)
		}
		fmt.Fprintf(&b, "%s  %-9s %-10s items=%-4d %6dms  %s",
			e.At.Format("2006-01-02 15:04:05"), e.Op, outcome, e.Items, e.Duration.Milliseconds(), e.File)
		if e.Detail != "" {
			fmt.Fprintf(&b, "  %s", dimColor.Sprint(e.Detail))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatBackupsHuman(resp *BackupsResponse) string {
	if len(resp.Backups) == 0 {
		return "No backups in " + resp.Dir
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Backups in %s:\n", resp.Dir)
	for _, bk := range resp.Backups {
		fmt.Fprintf(&b, "  %s  %-10s %8d bytes  %s\n",
			bk.ModTime.Format("2006-01-02 15:04:05"), bk.Reason, bk.Size, bk.Name)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatMessageHuman(resp *MessageResponse) string {
	if len(resp.Counts) == 0 {
		return resp.Message
	}
	keys := make([]string, 0, len(resp.Counts))
	for k := range resp.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, resp.Counts[k]))
	}
	return fmt.Sprintf("%s (%s)", resp.Message, strings.Join(parts, ", "))
}

func formatCheckLine(c reconcile.CheckResult) string {
	s := fmt.Sprintf("checked %d terms, %d updated", c.Returned, c.Updated)
	if c.Alignment != "" && c.Alignment != reconcile.AlignByID {
		s += fmt.Sprintf(" (aligned by %s)", c.Alignment)
	}
	return s
}

func formatPopulateHuman(r *reconcile.PopulateResult) string {
	return fmt.Sprintf("Populated %d terms and %d constructors (%d replaced); %s.",
		r.Terms, r.Constructors, r.Purged, formatCheckLine(r.Check))
}

func formatCheckHuman(r *reconcile.CheckResult) string {
	return "Oracle " + formatCheckLine(*r) + "."
}

func formatEditHuman(r *reconcile.EditResult) string {
	if !r.Committed {
		return fmt.Sprintf("No change to %s #%d.", r.Kind, r.ID)
	}
	return fmt.Sprintf("Set %s #%d to %s; %s.", r.Kind, r.ID, r.Label, formatCheckLine(r.Check))
}
