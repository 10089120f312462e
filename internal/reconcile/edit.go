package reconcile

import (
	"context"
	"errors"
	"time"

	annerrors "annot/internal/errors"
	"annot/internal/interp"
	"annot/internal/space"
	"annot/internal/store"
)

// ItemKind says whether an id named a term or a constructor.
type ItemKind string

const (
	ItemTerm        ItemKind = "term"
	ItemConstructor ItemKind = "constructor"
)

// EditResult reports the outcome of an interpretation assignment.
type EditResult struct {
	Kind           ItemKind              `json:"kind"`
	ID             int                   `json:"id"`
	Committed      bool                  `json:"committed"`
	Interpretation interp.Interpretation `json:"-"`
	Label          string                `json:"label,omitempty"`
	Check          CheckResult           `json:"check"`
}

// item is a term or constructor resolved from an id.
type item struct {
	kind        ItemKind
	term        store.Term
	constructor store.Constructor
}

func (it item) target() interp.Target {
	if it.kind == ItemConstructor {
		return interp.Target{NodeType: it.constructor.NodeType, IsIdentifier: true}
	}
	return interp.Target{NodeType: it.term.NodeType, IsIdentifier: interp.IsIdentifierNode(it.term.NodeType)}
}

func findItem(doc *store.Document, id int) (item, error) {
	for _, t := range doc.Terms {
		if t.ID == id {
			return item{kind: ItemTerm, term: t}, nil
		}
	}
	for _, c := range doc.Constructors {
		if c.ID == id {
			return item{kind: ItemConstructor, constructor: c}, nil
		}
	}
	return item{}, annerrors.Newf(annerrors.NotFound, "no term or constructor with id %d", id)
}

// EditSelectedItem builds an interpretation for the term or constructor id
// through p, has the oracle confirm it and only then stores it. Check runs
// afterwards whatever happened, and its error is joined to the edit's.
func (e *Engine) EditSelectedItem(ctx context.Context, file FileContext, id int, p interp.Prompter) (EditResult, error) {
	return e.assign(ctx, file, id, func(it item, reg *space.Registry) (interp.Interpretation, error) {
		return interp.Build(ctx, p, it.target(), reg)
	})
}

// Assignment is a non-interactive interpretation request.
type Assignment struct {
	Variant interp.Variant
	Name    string
	Params  interp.Params
}

// AssignInterpretation is EditSelectedItem with the answers given up front.
func (e *Engine) AssignInterpretation(ctx context.Context, file FileContext, id int, a Assignment) (EditResult, error) {
	return e.assign(ctx, file, id, func(it item, reg *space.Registry) (interp.Interpretation, error) {
		t := it.target()
		return interp.FromParams(a.Variant, a.Name, t.IsIdentifier, t.NodeType, a.Params, reg)
	})
}

type buildFunc func(item, *space.Registry) (interp.Interpretation, error)

func (e *Engine) assign(ctx context.Context, file FileContext, id int, build buildFunc) (EditResult, error) {
	release, err := e.guards.acquire(ctx, file.Path)
	if err != nil {
		return EditResult{ID: id}, err
	}
	defer release()

	start := time.Now()
	res, editErr := e.edit(ctx, id, build)
	committed := 0
	if res.Committed {
		committed = 1
	}
	e.record(ctx, "edit", file.Path, start, committed, editErr)

	checkRes, checkErr := e.checkLocked(ctx, file, "edit")
	res.Check = checkRes
	return res, errors.Join(editErr, checkErr)
}

func (e *Engine) edit(ctx context.Context, id int, build buildFunc) (EditResult, error) {
	res := EditResult{ID: id}
	doc, err := e.store.Load(ctx)
	if err != nil {
		return res, err
	}
	it, err := findItem(doc, id)
	if err != nil {
		return res, err
	}
	res.Kind = it.kind

	reg := doc.Spaces()
	in, err := build(it, reg)
	if err != nil {
		return res, err
	}
	if in == nil {
		return res, interp.ErrCancelled
	}
	res.Interpretation = in
	res.Label = in.Header().Label

	switch it.kind {
	case ItemTerm:
		t := it.term
		t.Interpretation = in
		if err := e.oracle.CreateTermInterpretation(ctx, wireTerm(reg, t)); err != nil {
			return res, err
		}
		if err := e.store.SetTermInterpretation(ctx, id, in); err != nil {
			return res, err
		}
	case ItemConstructor:
		c := it.constructor
		c.Interpretation = in
		if err := e.oracle.CreateConstructorInterpretation(ctx, wireConstructor(reg, c)); err != nil {
			return res, err
		}
		if err := e.store.SetConstructorInterpretation(ctx, id, in); err != nil {
			return res, err
		}
	}
	res.Committed = true
	return res, nil
}
