package reconcile

import (
	"context"
	"fmt"
	"time"

	annerrors "annot/internal/errors"
	"annot/internal/interp"
	"annot/internal/space"
)

// SpaceSpec describes a space to create. Parent is a handle or a label of
// the same kind; empty means a standard space.
type SpaceSpec struct {
	Kind   space.Kind
	Label  string
	Parent string
	Origin []float64
	Basis  []float64
}

// CreateSpace builds the space described by spec, has the oracle register
// it and then appends it to the local registry.
func (e *Engine) CreateSpace(ctx context.Context, spec SpaceSpec) (space.Space, error) {
	release, err := e.guards.acquire(ctx, spacesKey)
	if err != nil {
		return space.Space{}, err
	}
	defer release()

	start := time.Now()
	sp, err := e.createSpace(ctx, func(reg *space.Registry) (space.Space, error) {
		return spaceFromSpec(reg, spec)
	})
	e.record(ctx, "createSpace", "", start, boolCount(err == nil), err)
	return sp, err
}

// AddSpace asks p for the kind, label and, for derived spaces, the parent,
// basis and origin, then registers the space like CreateSpace.
func (e *Engine) AddSpace(ctx context.Context, p interp.Prompter) (space.Space, error) {
	release, err := e.guards.acquire(ctx, spacesKey)
	if err != nil {
		return space.Space{}, err
	}
	defer release()

	start := time.Now()
	sp, err := e.createSpace(ctx, func(reg *space.Registry) (space.Space, error) {
		return askSpace(ctx, p, reg)
	})
	e.record(ctx, "addSpace", "", start, boolCount(err == nil), err)
	return sp, err
}

func boolCount(ok bool) int {
	if ok {
		return 1
	}
	return 0
}

func (e *Engine) createSpace(ctx context.Context, build func(*space.Registry) (space.Space, error)) (space.Space, error) {
	doc, err := e.store.Load(ctx)
	if err != nil {
		return space.Space{}, err
	}
	scratch := doc.Spaces().Clone()
	sp, err := build(&scratch)
	if err != nil {
		return space.Space{}, err
	}
	if err := e.registerSpace(ctx, &scratch, sp); err != nil {
		return space.Space{}, err
	}
	return sp, nil
}

// registerSpace validates sp against scratch, asks the oracle to accept it
// and persists it. scratch gains sp on success.
func (e *Engine) registerSpace(ctx context.Context, scratch *space.Registry, sp space.Space) error {
	if err := scratch.Append(sp); err != nil {
		return err
	}
	if err := e.oracle.CreateSpace(ctx, *wireSpace(scratch, sp)); err != nil {
		return err
	}
	return e.store.AppendSpace(ctx, sp)
}

// ImportResult lists the spaces an import created before it stopped.
type ImportResult struct {
	Created []space.Space `json:"created"`
}

// ImportSpaces registers defs in order. The batch is validated up front; the
// first oracle rejection stops it, keeping the spaces already accepted.
func (e *Engine) ImportSpaces(ctx context.Context, defs []space.Definition) (ImportResult, error) {
	release, err := e.guards.acquire(ctx, spacesKey)
	if err != nil {
		return ImportResult{}, err
	}
	defer release()

	start := time.Now()
	res, err := e.importSpaces(ctx, defs)
	e.record(ctx, "importSpaces", "", start, len(res.Created), err)
	return res, err
}

func (e *Engine) importSpaces(ctx context.Context, defs []space.Definition) (ImportResult, error) {
	var res ImportResult
	doc, err := e.store.Load(ctx)
	if err != nil {
		return res, err
	}
	reg := doc.Spaces()
	spaces, err := space.Resolve(defs, reg)
	if err != nil {
		return res, err
	}
	scratch := reg.Clone()
	for _, sp := range spaces {
		if err := e.registerSpace(ctx, &scratch, sp); err != nil {
			return res, fmt.Errorf("importing space %q: %w", sp.Label, err)
		}
		res.Created = append(res.Created, sp)
	}
	return res, nil
}

func spaceFromSpec(reg *space.Registry, spec SpaceSpec) (space.Space, error) {
	if spec.Parent == "" {
		if len(spec.Origin) > 0 || len(spec.Basis) > 0 {
			return space.Space{}, annerrors.Newf(annerrors.InvalidSpaceDefinition,
				"standard space %q cannot have an origin or basis", spec.Label)
		}
		return space.NewStandard(spec.Kind, spec.Label)
	}
	parent, ok := reg.Find(spec.Parent)
	if !ok {
		parent, ok = reg.FindByLabel(spec.Kind, spec.Parent)
	}
	if !ok {
		return space.Space{}, annerrors.Newf(annerrors.InvalidSpaceDefinition,
			"no %s space %q to derive from", spec.Kind.Title(), spec.Parent)
	}
	return space.NewDerived(spec.Kind, spec.Label, parent, spec.Origin, spec.Basis)
}

func askSpace(ctx context.Context, p interp.Prompter, reg *space.Registry) (space.Space, error) {
	kindOptions := make([]string, len(space.Kinds))
	for i, k := range space.Kinds {
		kindOptions[i] = k.Title() + " Coordinate Space"
	}
	idx, err := interp.Choose(ctx, p, "Coordinate space type", kindOptions)
	if err != nil {
		return space.Space{}, err
	}
	kind := space.Kinds[idx]
	title := kind.Title()

	label, err := interp.AskText(ctx, p, "Name of "+title+" Coordinate Space?", "new space")
	if err != nil {
		return space.Space{}, err
	}
	derivation, err := interp.Choose(ctx, p, "Standard or derived?", []string{
		"Standard " + title + " Coordinate Space",
		"Derived " + title + " Coordinate Space",
	})
	if err != nil {
		return space.Space{}, err
	}
	if derivation == 0 {
		return space.NewStandard(kind, label)
	}

	candidates := reg.List(kind)
	if len(candidates) == 0 {
		return space.Space{}, annerrors.Newf(annerrors.InvalidSpaceDefinition,
			"no %s spaces to derive from; add a standard one first", title)
	}
	labels := make([]string, len(candidates))
	for i, c := range candidates {
		labels[i] = c.Label
	}
	pi, err := interp.Choose(ctx, p, "Select a Parent Space", labels)
	if err != nil {
		return space.Space{}, err
	}
	parent := candidates[pi]

	var origin, basis []float64
	if kind.Dimension() == 1 {
		b, err := interp.AskFloat(ctx, p, "Coordinate of Basis?")
		if err != nil {
			return space.Space{}, err
		}
		o, err := interp.AskFloat(ctx, p, "Coordinate of Origin?")
		if err != nil {
			return space.Space{}, err
		}
		origin, basis = []float64{o}, []float64{b}
	} else {
		n := kind.Dimension()
		basis = make([]float64, 0, kind.BasisSize())
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				x, err := interp.AskFloat(ctx, p, fmt.Sprintf("Coordinate of Basis Vector %d, Column %d?", i, j))
				if err != nil {
					return space.Space{}, err
				}
				basis = append(basis, x)
			}
		}
		origin = make([]float64, 0, n)
		for i := 0; i < n; i++ {
			x, err := interp.AskFloat(ctx, p, fmt.Sprintf("Coordinate of Origin at Index %d?", i))
			if err != nil {
				return space.Space{}, err
			}
			origin = append(origin, x)
		}
	}
	return space.NewDerived(kind, label, parent, origin, basis)
}
