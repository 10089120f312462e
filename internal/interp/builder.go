package interp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	annerrors "annot/internal/errors"
	"annot/internal/space"
)

// Params carries the variant-specific inputs of FromParams. Space, Domain
// and Codomain accept a space handle or, failing that, a label.
type Params struct {
	Space    string
	Values   []float64
	Domain   string
	Codomain string
}

// Target describes the node an interpretation is being built for.
type Target struct {
	NodeType     string
	IsIdentifier bool
}

// IsIdentifierNode reports whether a node type names a bare identifier.
func IsIdentifierNode(nodeType string) bool {
	return strings.Contains(strings.ToUpper(nodeType), "IDENT")
}

// ErrCancelled is returned when the user abandons a build.
var ErrCancelled = annerrors.Newf(annerrors.Cancelled, "interpretation cancelled")

// FromParams builds and validates an interpretation without prompting.
func FromParams(v Variant, name string, isIdentifier bool, nodeType string, p Params, reg *space.Registry) (Interpretation, error) {
	if !v.Valid() {
		return nil, annerrors.Newf(annerrors.InvalidInterpretation, "unknown interpretation type %q", v)
	}
	if isIdentifier {
		name = IdentifierName
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, annerrors.Newf(annerrors.InvalidInterpretation, "a name is required for non-identifier nodes")
	}
	meta := Meta{Name: name, Variant: v, NodeType: nodeType}

	var out Interpretation
	switch v.Category() {
	case CategoryScalar:
		out = &ScalarValue{Meta: meta, Value: append([]float64(nil), p.Values...)}
	case CategoryQuantity:
		h, err := resolveSpace(reg, v.SpaceKind(), p.Space)
		if err != nil {
			return nil, err
		}
		out = &Quantity{Meta: meta, Space: h, Value: append([]float64(nil), p.Values...)}
	case CategoryTransform:
		dom, err := resolveSpace(reg, v.SpaceKind(), p.Domain)
		if err != nil {
			return nil, err
		}
		cod, err := resolveSpace(reg, v.SpaceKind(), p.Codomain)
		if err != nil {
			return nil, err
		}
		out = &Transform{Meta: meta, Domain: dom, Codomain: cod}
	}
	if err := Validate(out, reg); err != nil {
		return nil, err
	}
	return relabel(out, Label(v, name, isIdentifier, LabelArgs(out, reg))), nil
}

func relabel(i Interpretation, label string) Interpretation {
	switch v := i.(type) {
	case *ScalarValue:
		v.Label = label
	case *Quantity:
		v.Label = label
	case *Transform:
		v.Label = label
	}
	return i
}

func resolveSpace(reg *space.Registry, kind space.Kind, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", annerrors.Newf(annerrors.InvalidInterpretation, "a %s space is required", kind.Title())
	}
	if reg != nil {
		if s, ok := reg.Find(ref); ok {
			return s.ID, nil
		}
		if s, ok := reg.FindByLabel(kind, ref); ok {
			return s.ID, nil
		}
	}
	return "", annerrors.Newf(annerrors.InvalidInterpretation, "no %s space %q", kind.Title(), ref)
}

// Build runs the interactive flow: variant, then a name unless the target
// is an identifier, then the space and values or the domain and codomain.
// Abandoning any step returns ErrCancelled and nothing else.
func Build(ctx context.Context, p Prompter, t Target, reg *space.Registry) (Interpretation, error) {
	options := make([]string, len(Variants))
	for i, v := range Variants {
		options[i] = string(v)
	}
	idx, err := Choose(ctx, p, "Interpretation type", options)
	if err != nil {
		return nil, err
	}
	v := Variants[idx]

	name := IdentifierName
	if !t.IsIdentifier {
		if name, err = AskText(ctx, p, "Name of interpretation?", ""); err != nil {
			return nil, err
		}
	}

	var params Params
	switch v.Category() {
	case CategoryScalar:
		if params.Values, err = askValues(ctx, p, 1); err != nil {
			return nil, err
		}
	case CategoryQuantity:
		if params.Space, err = pickSpace(ctx, p, reg, v.SpaceKind(), "Select a coordinate space"); err != nil {
			return nil, err
		}
		if params.Values, err = askValues(ctx, p, v.Dimension()); err != nil {
			return nil, err
		}
	case CategoryTransform:
		title := fmt.Sprintf("Select a %s coordinate space", strings.ToLower(v.SpaceKind().Title()))
		if params.Domain, err = pickSpace(ctx, p, reg, v.SpaceKind(), title+" (domain)"); err != nil {
			return nil, err
		}
		if params.Codomain, err = pickSpace(ctx, p, reg, v.SpaceKind(), title+" (codomain)"); err != nil {
			return nil, err
		}
	}
	return FromParams(v, name, t.IsIdentifier, t.NodeType, params, reg)
}

func pickSpace(ctx context.Context, p Prompter, reg *space.Registry, kind space.Kind, title string) (string, error) {
	var spaces []space.Space
	if reg != nil {
		spaces = reg.List(kind)
	}
	if len(spaces) == 0 {
		return "", annerrors.Newf(annerrors.InvalidInterpretation,
			"no %s spaces defined; add one with 'annot space add'", kind.Title())
	}
	labels := make([]string, len(spaces))
	for i, s := range spaces {
		labels[i] = s.Label
	}
	idx, err := Choose(ctx, p, title, labels)
	if err != nil {
		return "", err
	}
	return spaces[idx].ID, nil
}

func askValues(ctx context.Context, p Prompter, n int) ([]float64, error) {
	values := make([]float64, n)
	for i := range values {
		title := "Value?"
		if n > 1 {
			title = fmt.Sprintf("Value at index %d?", i)
		}
		x, err := AskFloat(ctx, p, title)
		if err != nil {
			return nil, err
		}
		values[i] = x
	}
	return values, nil
}

// Choose asks for one of options. Abandoning returns ErrCancelled.
func Choose(ctx context.Context, p Prompter, title string, options []string) (int, error) {
	idx, err := p.Select(ctx, title, options)
	if err != nil {
		return 0, promptErr(err)
	}
	return idx, nil
}

// AskText asks for a non-empty line. An empty answer counts as abandoning.
func AskText(ctx context.Context, p Prompter, title, placeholder string) (string, error) {
	raw, err := p.Input(ctx, title, placeholder)
	if err != nil {
		return "", promptErr(err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrCancelled
	}
	return raw, nil
}

// AskFloat asks for a number. Anything unparsable counts as abandoning.
func AskFloat(ctx context.Context, p Prompter, title string) (float64, error) {
	raw, err := AskText(ctx, p, title, "")
	if err != nil {
		return 0, err
	}
	x, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, ErrCancelled
	}
	return x, nil
}

// promptErr maps an abandoned prompt or a cancelled context to ErrCancelled.
func promptErr(err error) error {
	if errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled) {
		return ErrCancelled
	}
	return err
}
