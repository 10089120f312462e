package space

import (
	"fmt"

	annerrors "annot/internal/errors"
)

// Registry holds the append-only space forest, one list per kind.
type Registry struct {
	Time   []Space
	Geom1D []Space
	Geom3D []Space
}

// List returns the spaces of one kind.
func (r *Registry) List(kind Kind) []Space {
	switch kind {
	case Time:
		return r.Time
	case Geom1D:
		return r.Geom1D
	case Geom3D:
		return r.Geom3D
	}
	return nil
}

// All returns every space, time first, then geom1d, then geom3d.
func (r *Registry) All() []Space {
	all := make([]Space, 0, len(r.Time)+len(r.Geom1D)+len(r.Geom3D))
	all = append(all, r.Time...)
	all = append(all, r.Geom1D...)
	return append(all, r.Geom3D...)
}

// Len is the total number of spaces.
func (r *Registry) Len() int {
	return len(r.Time) + len(r.Geom1D) + len(r.Geom3D)
}

// Find looks a space up by handle.
func (r *Registry) Find(id string) (Space, bool) {
	for _, kind := range Kinds {
		for _, s := range r.List(kind) {
			if s.ID == id {
				return s, true
			}
		}
	}
	return Space{}, false
}

// FindByLabel returns the first space of kind with the given label.
func (r *Registry) FindByLabel(kind Kind, label string) (Space, bool) {
	for _, s := range r.List(kind) {
		if s.Label == label {
			return s, true
		}
	}
	return Space{}, false
}

// ResolveParent returns the parent of a derived space. Standard spaces and
// dangling handles resolve to false.
func (r *Registry) ResolveParent(s Space) (Space, bool) {
	if s.IsStandard() {
		return Space{}, false
	}
	for _, p := range r.List(s.Kind) {
		if p.ID == s.Parent {
			return p, true
		}
	}
	return Space{}, false
}

// Ancestors walks parent links from s upward, nearest first.
func (r *Registry) Ancestors(s Space) ([]Space, error) {
	var chain []Space
	seen := map[string]bool{s.ID: true}
	cur := s
	for !cur.IsStandard() {
		p, ok := r.ResolveParent(cur)
		if !ok {
			return chain, annerrors.Newf(annerrors.InvalidSpaceDefinition,
				"space %q refers to a missing parent", cur.Label)
		}
		if seen[p.ID] {
			return chain, annerrors.Newf(annerrors.InvalidSpaceDefinition,
				"derivation cycle through space %q", p.Label)
		}
		seen[p.ID] = true
		chain = append(chain, p)
		cur = p
	}
	return chain, nil
}

// Append validates s against the forest and adds it to its kind's list.
// Labels are unique within a kind.
func (r *Registry) Append(s Space) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if _, exists := r.Find(s.ID); exists {
		return annerrors.Newf(annerrors.InvalidSpaceDefinition, "space handle %s already registered", s.ID)
	}
	if prev, taken := r.FindByLabel(s.Kind, s.Label); taken {
		return annerrors.Newf(annerrors.InvalidSpaceDefinition,
			"a %s space labelled %q already exists (%s)", s.Kind, s.Label, prev.ID)
	}
	if !s.IsStandard() {
		if _, err := r.Ancestors(s); err != nil {
			return err
		}
	}

	switch s.Kind {
	case Time:
		r.Time = append(r.Time, s)
	case Geom1D:
		r.Geom1D = append(r.Geom1D, s)
	case Geom3D:
		r.Geom3D = append(r.Geom3D, s)
	}
	return nil
}

// Validate checks every list: kinds match their list, handles are unique,
// parents resolve within the same kind and no chain loops.
func (r *Registry) Validate() error {
	seen := make(map[string]bool, r.Len())
	for _, kind := range Kinds {
		for _, s := range r.List(kind) {
			if s.Kind != kind {
				return annerrors.Newf(annerrors.InvalidSpaceDefinition,
					"space %q of kind %s stored in the %s list", s.Label, s.Kind, kind)
			}
			if err := s.Validate(); err != nil {
				return err
			}
			if seen[s.ID] {
				return annerrors.Newf(annerrors.InvalidSpaceDefinition, "duplicate space handle %s", s.ID)
			}
			seen[s.ID] = true
			if _, err := r.Ancestors(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (r *Registry) Clone() Registry {
	cp := func(in []Space) []Space {
		if in == nil {
			return nil
		}
		out := make([]Space, len(in))
		for i, s := range in {
			s.Origin = cloneFloats(s.Origin)
			s.Basis = cloneFloats(s.Basis)
			out[i] = s
		}
		return out
	}
	return Registry{Time: cp(r.Time), Geom1D: cp(r.Geom1D), Geom3D: cp(r.Geom3D)}
}

func cloneFloats(in []float64) []float64 {
	if in == nil {
		return nil
	}
	return append(make([]float64, 0, len(in)), in...)
}

// Describe renders a one-line summary, e.g.
// "t1 (Derived from t0): Origin: [5] Basis: [2]" or "t0 : Standard Time Space".
func (r *Registry) Describe(s Space) string {
	if s.IsStandard() {
		return fmt.Sprintf("%s : Standard %s Space", s.Label, s.Kind.Title())
	}
	parent := "?"
	if p, ok := r.ResolveParent(s); ok {
		parent = p.Label
	}
	return fmt.Sprintf("%s (Derived from %s): Origin: %s Basis: %s",
		s.Label, parent, FormatVector(s.Origin), FormatVector(s.Basis))
}
