package reconcile

import (
	"annot/internal/interp"
	"annot/internal/oracle"
	"annot/internal/space"
	"annot/internal/store"
)

// wireSpace inlines the ancestry of s, nearest parent first.
func wireSpace(reg *space.Registry, s space.Space) *oracle.Space {
	out := &oracle.Space{
		Label:  s.Label,
		Space:  s.Kind.ClassicalName(),
		Origin: s.Origin,
		Basis:  s.Basis,
	}
	ancestors, _ := reg.Ancestors(s)
	cur := out
	for _, a := range ancestors {
		cur.Parent = &oracle.Space{
			Label:  a.Label,
			Space:  a.Kind.ClassicalName(),
			Origin: a.Origin,
			Basis:  a.Basis,
		}
		cur = cur.Parent
	}
	return out
}

func wireSpaceByHandle(reg *space.Registry, handle string) *oracle.Space {
	s, ok := reg.Find(handle)
	if !ok {
		return nil
	}
	return wireSpace(reg, s)
}

// wireSpaces lists every space in the order the oracle expects them.
func wireSpaces(reg *space.Registry) []oracle.Space {
	all := reg.All()
	out := make([]oracle.Space, 0, len(all))
	for _, s := range all {
		out = append(out, *wireSpace(reg, s))
	}
	return out
}

func wireInterpretation(reg *space.Registry, i interp.Interpretation) *oracle.Interpretation {
	if i == nil {
		return nil
	}
	m := i.Header()
	out := &oracle.Interpretation{
		Label:      m.Label,
		Name:       m.Name,
		InterpType: string(m.Variant),
		NodeType:   m.NodeType,
	}
	switch v := i.(type) {
	case *interp.ScalarValue:
		out.Value = v.Value
	case *interp.Quantity:
		out.Value = v.Value
		out.Space = wireSpaceByHandle(reg, v.Space)
	case *interp.Transform:
		out.Domain = wireSpaceByHandle(reg, v.Domain)
		out.Codomain = wireSpaceByHandle(reg, v.Codomain)
	}
	return out
}

func wireTerm(reg *space.Registry, t store.Term) oracle.Term {
	id := t.ID
	out := oracle.Term{
		ID:             &id,
		FileName:       t.FileName,
		FileLine:       t.Range.Start.Line,
		PositionStart:  t.Range.Start,
		PositionEnd:    t.Range.End,
		Text:           t.Text,
		CodeSnippet:    t.CodeSnippet,
		Status:         string(t.Status),
		Interpretation: wireInterpretation(reg, t.Interpretation),
		NodeType:       t.NodeType,
	}
	if t.Error != store.NotChecked {
		e := t.Error
		out.Error = &e
	}
	return out
}

func wireTerms(reg *space.Registry, terms []store.Term) []oracle.Term {
	out := make([]oracle.Term, len(terms))
	for i, t := range terms {
		out[i] = wireTerm(reg, t)
	}
	return out
}

func wireConstructor(reg *space.Registry, c store.Constructor) oracle.Constructor {
	return oracle.Constructor{
		ID:             c.ID,
		Name:           c.Name,
		Interpretation: wireInterpretation(reg, c.Interpretation),
		NodeType:       c.NodeType,
		Status:         string(c.Status),
	}
}

func wireConstructors(reg *space.Registry, cons []store.Constructor) []oracle.Constructor {
	out := make([]oracle.Constructor, len(cons))
	for i, c := range cons {
		out[i] = wireConstructor(reg, c)
	}
	return out
}
