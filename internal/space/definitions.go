package space

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	gotoml "github.com/pelletier/go-toml/v2"

	annerrors "annot/internal/errors"
)

// Definition is the declarative form of a space, as written in a spaces file:
//
//	[[space]]
//	label  = "robot"
//	kind   = "geom3d"
//	parent = "world"
//	origin = [1.0, 2.0, 3.0]
//	basis  = [1.0, 0.0, 0.0, 0.0, 1.0, 0.0, 0.0, 0.0, 1.0]
type Definition struct {
	Label  string    `toml:"label"`
	Kind   string    `toml:"kind"`
	Parent string    `toml:"parent,omitempty"`
	Origin []float64 `toml:"origin,omitempty"`
	Basis  []float64 `toml:"basis,omitempty"`
}

type definitionsFile struct {
	Space []Definition `toml:"space"`
}

// LoadDefinitions decodes a TOML spaces file. Unknown keys are rejected so a
// typo does not silently produce a standard space.
func LoadDefinitions(r io.Reader) ([]Definition, error) {
	var f definitionsFile
	md, err := toml.NewDecoder(r).Decode(&f)
	if err != nil {
		return nil, annerrors.New(annerrors.InvalidSpaceDefinition, "cannot parse spaces file", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, annerrors.Newf(annerrors.InvalidSpaceDefinition,
			"unknown keys in spaces file: %s", strings.Join(keys, ", "))
	}
	return f.Space, nil
}

// Resolve turns definitions into spaces, in order. Parents are looked up by
// label among the registry's spaces of the same kind and earlier definitions.
// The registry is not modified.
func Resolve(defs []Definition, reg *Registry) ([]Space, error) {
	scratch := reg.Clone()
	out := make([]Space, 0, len(defs))
	for i, d := range defs {
		kind, err := ParseKind(d.Kind)
		if err != nil {
			return nil, fmt.Errorf("space #%d (%s): %w", i+1, d.Label, err)
		}

		var s Space
		if d.Parent == "" {
			if d.Origin != nil || d.Basis != nil {
				return nil, annerrors.Newf(annerrors.InvalidSpaceDefinition,
					"space #%d (%s): origin/basis given without a parent", i+1, d.Label)
			}
			s, err = NewStandard(kind, d.Label)
		} else {
			parent, ok := scratch.FindByLabel(kind, d.Parent)
			if !ok {
				return nil, annerrors.Newf(annerrors.InvalidSpaceDefinition,
					"space #%d (%s): unknown %s parent %q", i+1, d.Label, kind.Title(), d.Parent)
			}
			s, err = NewDerived(kind, d.Label, parent, d.Origin, d.Basis)
		}
		if err != nil {
			return nil, fmt.Errorf("space #%d (%s): %w", i+1, d.Label, err)
		}
		if err := scratch.Append(s); err != nil {
			return nil, fmt.Errorf("space #%d (%s): %w", i+1, d.Label, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// EncodeDefinitions writes the registry as a spaces file that LoadDefinitions
// and Resolve can replay into an empty registry.
func EncodeDefinitions(w io.Writer, reg *Registry) error {
	var f definitionsFile
	for _, s := range reg.All() {
		d := Definition{Label: s.Label, Kind: string(s.Kind), Origin: s.Origin, Basis: s.Basis}
		if p, ok := reg.ResolveParent(s); ok {
			d.Parent = p.Label
		}
		f.Space = append(f.Space, d)
	}
	data, err := gotoml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode spaces: %w", err)
	}
	_, err = w.Write(data)
	return err
}
