// Package anchor provides the buffer coordinates annotations are bound to.
//
// Characters are counted in UTF-16 code units, the unit editor hosts use for
// cursor columns. Lines are split on '\n'; a trailing '\r' belongs to the line.
package anchor

import (
	"fmt"
	"strings"
	"unicode/utf16"

	annerrors "annot/internal/errors"
)

// Position is a single cursor coordinate in a text buffer.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Validate rejects negative coordinates.
func (p Position) Validate() error {
	if p.Line < 0 || p.Character < 0 {
		return annerrors.Newf(annerrors.InvalidArgument, "position %s has a negative coordinate", p)
	}
	return nil
}

// Compare orders positions lexicographically by (line, character).
func (p Position) Compare(o Position) int {
	switch {
	case p.Line < o.Line:
		return -1
	case p.Line > o.Line:
		return 1
	case p.Character < o.Character:
		return -1
	case p.Character > o.Character:
		return 1
	}
	return 0
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Character)
}

// Range is an ordered pair of positions with Start <= End.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// NewRange builds a range, failing when either end is negative or start > end.
func NewRange(start, end Position) (Range, error) {
	r := Range{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// Validate checks non-negativity and ordering.
func (r Range) Validate() error {
	if err := r.Start.Validate(); err != nil {
		return err
	}
	if err := r.End.Validate(); err != nil {
		return err
	}
	if r.Start.Compare(r.End) > 0 {
		return annerrors.Newf(annerrors.InvalidArgument, "range start %s is after end %s", r.Start, r.End)
	}
	return nil
}

// IsEmpty reports whether the range covers no characters.
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// SpansLines reports whether the range covers more than one line.
func (r Range) SpansLines() bool {
	return r.Start.Line != r.End.Line
}

// Contains reports whether p lies inside the range (end inclusive, as a cursor
// resting right after the last character still hovers the annotation).
func (r Range) Contains(p Position) bool {
	return r.Start.Compare(p) <= 0 && p.Compare(r.End) <= 0
}

// Overlaps reports whether two ranges share at least one position.
func (r Range) Overlaps(o Range) bool {
	return r.Start.Compare(o.End) <= 0 && o.Start.Compare(r.End) <= 0
}

func (r Range) String() string {
	return r.Start.String() + "-" + r.End.String()
}

// Extract returns the text covered by r.
func Extract(text string, r Range) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	lines := strings.Split(text, "\n")
	if r.End.Line >= len(lines) {
		return "", annerrors.Newf(annerrors.InvalidArgument,
			"range %s ends past the last line (%d lines)", r, len(lines))
	}

	start, err := offsetInLine(lines[r.Start.Line], r.Start.Character)
	if err != nil {
		return "", err
	}
	end, err := offsetInLine(lines[r.End.Line], r.End.Character)
	if err != nil {
		return "", err
	}

	if !r.SpansLines() {
		return lines[r.Start.Line][start:end], nil
	}

	var b strings.Builder
	b.WriteString(lines[r.Start.Line][start:])
	for i := r.Start.Line + 1; i < r.End.Line; i++ {
		b.WriteByte('\n')
		b.WriteString(lines[i])
	}
	b.WriteByte('\n')
	b.WriteString(lines[r.End.Line][:end])
	return b.String(), nil
}

// IsStale reports whether text no longer holds snippet at r.
func IsStale(text string, r Range, snippet string) bool {
	current, err := Extract(text, r)
	if err != nil {
		return true
	}
	return current != snippet
}

// offsetInLine converts a UTF-16 column into a byte offset within line.
func offsetInLine(line string, character int) (int, error) {
	units := 0
	for i, c := range line {
		if units >= character {
			if units > character {
				return 0, annerrors.Newf(annerrors.InvalidArgument,
					"column %d splits a surrogate pair", character)
			}
			return i, nil
		}
		units += utf16.RuneLen(c)
	}
	if units < character {
		return 0, annerrors.Newf(annerrors.InvalidArgument,
			"column %d is past the end of a %d-unit line", character, units)
	}
	if units > character {
		return 0, annerrors.Newf(annerrors.InvalidArgument,
			"column %d splits a surrogate pair", character)
	}
	return len(line), nil
}

// ByteColumns converts r into byte columns within its start and end lines,
// the coordinates parsers work in.
func ByteColumns(text string, r Range) (start, end int, err error) {
	if err := r.Validate(); err != nil {
		return 0, 0, err
	}
	lines := strings.Split(text, "\n")
	if r.End.Line >= len(lines) {
		return 0, 0, annerrors.Newf(annerrors.InvalidArgument,
			"range %s ends past the last line (%d lines)", r, len(lines))
	}
	if start, err = offsetInLine(lines[r.Start.Line], r.Start.Character); err != nil {
		return 0, 0, err
	}
	if end, err = offsetInLine(lines[r.End.Line], r.End.Character); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
