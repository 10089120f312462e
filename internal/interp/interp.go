// Package interp implements the interpretation sum type: the typed meaning
// assigned to a term or constructor, and the builder that assembles one.
package interp

import (
	"math"
	"strconv"
	"strings"

	annerrors "annot/internal/errors"
	"annot/internal/space"
)

// IdentifierName is stored as the name when the annotated node is itself an
// identifier and no name was asked for.
const IdentifierName = "<identifier>"

// Interpretation is implemented by *ScalarValue, *Quantity and *Transform.
type Interpretation interface {
	Header() Meta
	isInterpretation()
}

// Meta holds the fields every case shares.
type Meta struct {
	Label    string
	Name     string
	Variant  Variant
	NodeType string
}

// ScalarValue is a dimensionless number.
type ScalarValue struct {
	Meta
	Value []float64
}

// Quantity is a value expressed in a coordinate space (Time, Duration,
// Position/Displacement in 1-D or 3-D).
type Quantity struct {
	Meta
	Space string // space handle
	Value []float64
}

// Transform maps one space onto another of the same kind.
type Transform struct {
	Meta
	Domain   string // space handle
	Codomain string // space handle
}

func (s *ScalarValue) Header() Meta { return s.Meta }
func (q *Quantity) Header() Meta    { return q.Meta }
func (t *Transform) Header() Meta   { return t.Meta }

func (*ScalarValue) isInterpretation() {}
func (*Quantity) isInterpretation()    {}
func (*Transform) isInterpretation()   {}

// Validate checks i against its variant: the concrete case, the value
// length, and that every referenced space exists in reg with the right kind.
func Validate(i Interpretation, reg *space.Registry) error {
	if i == nil {
		return nil
	}
	m := i.Header()
	if !m.Variant.Valid() {
		return annerrors.Newf(annerrors.InvalidInterpretation, "unknown interpretation type %q", m.Variant)
	}
	if m.Name == "" {
		return annerrors.Newf(annerrors.InvalidInterpretation, "%s interpretation has no name", m.Variant)
	}

	switch v := i.(type) {
	case *ScalarValue:
		if m.Variant.Category() != CategoryScalar {
			return mismatch(m.Variant, "scalar")
		}
		return checkValues(m.Variant, v.Value)
	case *Quantity:
		if m.Variant.Category() != CategoryQuantity {
			return mismatch(m.Variant, "quantity")
		}
		if err := checkValues(m.Variant, v.Value); err != nil {
			return err
		}
		return checkSpace(reg, m.Variant, v.Space)
	case *Transform:
		if m.Variant.Category() != CategoryTransform {
			return mismatch(m.Variant, "transform")
		}
		if err := checkSpace(reg, m.Variant, v.Domain); err != nil {
			return err
		}
		return checkSpace(reg, m.Variant, v.Codomain)
	}
	return annerrors.Newf(annerrors.InvalidInterpretation, "unsupported interpretation %T", i)
}

func mismatch(v Variant, shape string) error {
	return annerrors.Newf(annerrors.InvalidInterpretation, "%s is a %s, not a %s", v, v.Category(), shape)
}

func checkValues(v Variant, values []float64) error {
	if len(values) != v.Dimension() {
		return annerrors.Newf(annerrors.InvalidInterpretation,
			"%s needs %d value(s), got %d", v, v.Dimension(), len(values))
	}
	for _, x := range values {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return annerrors.Newf(annerrors.InvalidInterpretation, "%s has a non-finite value", v)
		}
	}
	return nil
}

func checkSpace(reg *space.Registry, v Variant, handle string) error {
	if reg == nil {
		return annerrors.Newf(annerrors.InvalidInterpretation, "no space registry to resolve %s", handle)
	}
	s, ok := reg.Find(handle)
	if !ok {
		return annerrors.Newf(annerrors.InvalidInterpretation, "%s refers to unknown space %q", v, handle)
	}
	if s.Kind != v.SpaceKind() {
		return annerrors.Newf(annerrors.InvalidInterpretation,
			"%s needs a %s space, %q is %s", v, v.SpaceKind().Title(), s.Label, s.Kind.Title())
	}
	return nil
}

// Spaces returns the handles i refers to.
func Spaces(i Interpretation) []string {
	switch v := i.(type) {
	case *Quantity:
		return []string{v.Space}
	case *Transform:
		return []string{v.Domain, v.Codomain}
	}
	return nil
}

// Label renders "<name> <Variant>(<args>)", or "<Variant>(<args>)" for
// identifier nodes.
func Label(v Variant, name string, isIdentifier bool, args []string) string {
	call := string(v) + "(" + strings.Join(args, ",") + ")"
	if isIdentifier {
		return call
	}
	return name + " " + call
}

// LabelArgs lists the label arguments of i: space labels followed by values,
// or domain and codomain labels. Unknown handles render as the handle.
func LabelArgs(i Interpretation, reg *space.Registry) []string {
	spaceLabel := func(handle string) string {
		if reg != nil {
			if s, ok := reg.Find(handle); ok {
				return s.Label
			}
		}
		return handle
	}
	switch v := i.(type) {
	case *ScalarValue:
		return formatValues(v.Value)
	case *Quantity:
		return append([]string{spaceLabel(v.Space)}, formatValues(v.Value)...)
	case *Transform:
		return []string{spaceLabel(v.Domain), spaceLabel(v.Codomain)}
	}
	return nil
}

func formatValues(values []float64) []string {
	out := make([]string, len(values))
	for i, x := range values {
		out[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return out
}
