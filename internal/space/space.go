// Package space models the coordinate spaces interpretations are expressed in.
//
// A space is either standard (no parent, origin or basis) or derived from a
// parent of the same kind through an origin and a basis. Spaces are identified
// by an opaque handle; labels are for display only.
package space

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	annerrors "annot/internal/errors"
)

// Kind is the family of a coordinate space.
type Kind string

const (
	Time   Kind = "time"
	Geom1D Kind = "geom1d"
	Geom3D Kind = "geom3d"
)

// Kinds lists every kind in document order.
var Kinds = []Kind{Time, Geom1D, Geom3D}

// ParseKind accepts the canonical names plus the oracle's classical names.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "time", "classical time coordinate space":
		return Time, nil
	case "geom1d", "classical geom1d coordinate space":
		return Geom1D, nil
	case "geom3d", "classical geom3d coordinate space":
		return Geom3D, nil
	}
	return "", annerrors.Newf(annerrors.InvalidSpaceDefinition, "unknown space kind %q", s)
}

// Dimension is the length of an origin vector in this kind.
func (k Kind) Dimension() int {
	if k == Geom3D {
		return 3
	}
	return 1
}

// BasisSize is the length of a basis: a scale for 1-D kinds, a row-major 3x3
// change-of-basis matrix for Geom3D.
func (k Kind) BasisSize() int {
	d := k.Dimension()
	if d == 1 {
		return 1
	}
	return d * d
}

// ClassicalName is the name the inference service uses for the kind.
func (k Kind) ClassicalName() string {
	switch k {
	case Time:
		return "Classical Time Coordinate Space"
	case Geom1D:
		return "Classical Geom1D Coordinate Space"
	case Geom3D:
		return "Classical Geom3D Coordinate Space"
	}
	return ""
}

// Title is the short human name ("Time", "Geom1D", "Geom3D").
func (k Kind) Title() string {
	switch k {
	case Time:
		return "Time"
	case Geom1D:
		return "Geom1D"
	case Geom3D:
		return "Geom3D"
	}
	return string(k)
}

func (k Kind) valid() bool {
	return k == Time || k == Geom1D || k == Geom3D
}

// Space is a named reference frame.
type Space struct {
	ID     string    `json:"id"`
	Label  string    `json:"label"`
	Kind   Kind      `json:"kind"`
	Parent string    `json:"parent,omitempty"`
	Origin []float64 `json:"origin,omitempty"`
	Basis  []float64 `json:"basis,omitempty"`
}

// NewStandard creates a standard space.
func NewStandard(kind Kind, label string) (Space, error) {
	s := Space{ID: uuid.NewString(), Label: strings.TrimSpace(label), Kind: kind}
	if err := s.Validate(); err != nil {
		return Space{}, err
	}
	return s, nil
}

// NewDerived creates a space derived from parent. origin must hold
// kind.Dimension() values and basis kind.BasisSize() values.
func NewDerived(kind Kind, label string, parent Space, origin, basis []float64) (Space, error) {
	if parent.Kind != kind {
		return Space{}, annerrors.Newf(annerrors.InvalidSpaceDefinition,
			"parent %q is a %s space, want %s", parent.Label, parent.Kind.Title(), kind.Title())
	}
	if parent.ID == "" {
		return Space{}, annerrors.Newf(annerrors.InvalidSpaceDefinition, "parent %q has no handle", parent.Label)
	}
	s := Space{
		ID:     uuid.NewString(),
		Label:  strings.TrimSpace(label),
		Kind:   kind,
		Parent: parent.ID,
		Origin: append([]float64(nil), origin...),
		Basis:  append([]float64(nil), basis...),
	}
	if err := s.Validate(); err != nil {
		return Space{}, err
	}
	return s, nil
}

// IsStandard reports whether the space has no parent.
func (s Space) IsStandard() bool {
	return s.Parent == ""
}

// Validate enforces the standard-xor-derived invariant and dimensionality.
func (s Space) Validate() error {
	if !s.Kind.valid() {
		return annerrors.Newf(annerrors.InvalidSpaceDefinition, "space %q has unknown kind %q", s.Label, s.Kind)
	}
	if s.Label == "" {
		return annerrors.Newf(annerrors.InvalidSpaceDefinition, "space label must not be empty")
	}
	if s.ID == "" {
		return annerrors.Newf(annerrors.InvalidSpaceDefinition, "space %q has no handle", s.Label)
	}

	hasOrigin, hasBasis := s.Origin != nil, s.Basis != nil
	if s.Parent == "" {
		if hasOrigin || hasBasis {
			return annerrors.Newf(annerrors.InvalidSpaceDefinition,
				"standard space %q must not carry an origin or basis", s.Label)
		}
		return nil
	}
	if s.Parent == s.ID {
		return annerrors.Newf(annerrors.InvalidSpaceDefinition, "space %q is its own parent", s.Label)
	}
	if !hasOrigin || !hasBasis {
		return annerrors.Newf(annerrors.InvalidSpaceDefinition,
			"derived space %q needs both an origin and a basis", s.Label)
	}
	if len(s.Origin) != s.Kind.Dimension() {
		return annerrors.Newf(annerrors.InvalidSpaceDefinition,
			"%s space %q needs %d origin value(s), got %d", s.Kind.Title(), s.Label, s.Kind.Dimension(), len(s.Origin))
	}
	if len(s.Basis) != s.Kind.BasisSize() {
		return annerrors.Newf(annerrors.InvalidSpaceDefinition,
			"%s space %q needs %d basis value(s), got %d", s.Kind.Title(), s.Label, s.Kind.BasisSize(), len(s.Basis))
	}
	for _, v := range append(append([]float64(nil), s.Origin...), s.Basis...) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return annerrors.Newf(annerrors.InvalidSpaceDefinition, "space %q has a non-finite coordinate", s.Label)
		}
	}
	return nil
}

// FormatVector renders values the way labels and descriptions show them: [1,2,3].
func FormatVector(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (s Space) String() string {
	return fmt.Sprintf("%s(%s)", s.Label, s.Kind.Title())
}
