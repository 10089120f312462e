package main

import (
	"strconv"
	"strings"

	"annot/internal/anchor"
	annerrors "annot/internal/errors"
	"annot/internal/store"
)

// parsePosition reads "line:character", both zero-based.
func parsePosition(s string) (anchor.Position, error) {
	lineText, charText, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return anchor.Position{}, annerrors.Newf(annerrors.InvalidArgument, "position %q is not line:character", s)
	}
	line, err := strconv.Atoi(lineText)
	if err != nil {
		return anchor.Position{}, annerrors.Newf(annerrors.InvalidArgument, "invalid line in %q", s)
	}
	char, err := strconv.Atoi(charText)
	if err != nil {
		return anchor.Position{}, annerrors.Newf(annerrors.InvalidArgument, "invalid character in %q", s)
	}
	p := anchor.Position{Line: line, Character: char}
	return p, p.Validate()
}

// parseRange reads "l:c-l:c".
func parseRange(s string) (anchor.Range, error) {
	startText, endText, ok := strings.Cut(s, "-")
	if !ok {
		return anchor.Range{}, annerrors.Newf(annerrors.InvalidArgument, "range %q is not line:char-line:char", s)
	}
	start, err := parsePosition(startText)
	if err != nil {
		return anchor.Range{}, err
	}
	end, err := parsePosition(endText)
	if err != nil {
		return anchor.Range{}, err
	}
	return anchor.NewRange(start, end)
}

// parseLocation reads a cursor "l:c" or a selection "l:c-l:c" and returns
// a match for term ranges: containing the cursor, or overlapping the
// selection. An empty s gives a nil match.
func parseLocation(s string) (func(anchor.Range) bool, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	if strings.Contains(s, "-") {
		sel, err := parseRange(s)
		if err != nil {
			return nil, err
		}
		return sel.Overlaps, nil
	}
	p, err := parsePosition(s)
	if err != nil {
		return nil, err
	}
	return func(r anchor.Range) bool { return r.Contains(p) }, nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(s, "#"))
	if err != nil || id <= 0 {
		return 0, annerrors.Newf(annerrors.InvalidArgument, "invalid id %q", s)
	}
	return id, nil
}

func parseFloats(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, annerrors.Newf(annerrors.InvalidArgument, "invalid number %q", f)
		}
		out = append(out, v)
	}
	return out, nil
}

// optionalStatus parses s, treating "" and "all" as no filter.
func optionalStatus(s string) (store.Status, bool, error) {
	if s == "" || s == "all" {
		return "", false, nil
	}
	st, err := store.ParseStatus(s)
	return st, err == nil, err
}
