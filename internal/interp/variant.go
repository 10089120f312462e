package interp

import (
	"strings"

	annerrors "annot/internal/errors"
	"annot/internal/space"
)

// Variant names an interpretation case. The string values are the
// interp_type names the inference service uses.
type Variant string

const (
	Duration        Variant = "Duration"
	Time            Variant = "Time"
	Scalar          Variant = "Scalar"
	TimeTransform   Variant = "Time Transform"
	Displacement1D  Variant = "Displacement1D"
	Position1D      Variant = "Position1D"
	Geom1DTransform Variant = "Geom1D Transform"
	Displacement3D  Variant = "Displacement3D"
	Position3D      Variant = "Position3D"
	Geom3DTransform Variant = "Geom3D Transform"
)

// Variants lists every case in menu order.
var Variants = []Variant{
	Duration, Time, Scalar, TimeTransform,
	Displacement1D, Position1D, Geom1DTransform,
	Displacement3D, Position3D, Geom3DTransform,
}

// Category groups variants by the data they carry.
type Category int

const (
	CategoryScalar Category = iota
	CategoryQuantity
	CategoryTransform
)

func (c Category) String() string {
	switch c {
	case CategoryScalar:
		return "scalar"
	case CategoryQuantity:
		return "quantity"
	case CategoryTransform:
		return "transform"
	}
	return "unknown"
}

type variantInfo struct {
	category Category
	kind     space.Kind // zero for Scalar
	dim      int        // value length; zero for transforms
}

var variantTable = map[Variant]variantInfo{
	Scalar:          {CategoryScalar, "", 1},
	Duration:        {CategoryQuantity, space.Time, 1},
	Time:            {CategoryQuantity, space.Time, 1},
	TimeTransform:   {CategoryTransform, space.Time, 0},
	Displacement1D:  {CategoryQuantity, space.Geom1D, 1},
	Position1D:      {CategoryQuantity, space.Geom1D, 1},
	Geom1DTransform: {CategoryTransform, space.Geom1D, 0},
	Displacement3D:  {CategoryQuantity, space.Geom3D, 3},
	Position3D:      {CategoryQuantity, space.Geom3D, 3},
	Geom3DTransform: {CategoryTransform, space.Geom3D, 0},
}

// ParseVariant matches a variant name case-insensitively, ignoring spaces
// and underscores, so "time_transform" and "TimeTransform" both work.
func ParseVariant(s string) (Variant, error) {
	want := normalizeVariant(s)
	for _, v := range Variants {
		if normalizeVariant(string(v)) == want {
			return v, nil
		}
	}
	return "", annerrors.Newf(annerrors.InvalidInterpretation, "unknown interpretation type %q", s)
}

func normalizeVariant(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	_, ok := variantTable[v]
	return ok
}

// Category returns the data shape of v.
func (v Variant) Category() Category {
	return variantTable[v].category
}

// SpaceKind is the kind of space v refers to. Scalar has none.
func (v Variant) SpaceKind() space.Kind {
	return variantTable[v].kind
}

// Dimension is the number of values v carries.
func (v Variant) Dimension() int {
	return variantTable[v].dim
}
