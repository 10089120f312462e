package reconcile

import (
	"context"
	"time"

	annerrors "annot/internal/errors"
	"annot/internal/oracle"
	"annot/internal/store"
)

// Alignment names how check matched oracle terms to stored ones.
type Alignment string

const (
	AlignByID       Alignment = "id"
	AlignByPosition Alignment = "position"
)

// CheckResult reports what check overwrote.
type CheckResult struct {
	Returned  int       `json:"returned"`
	Updated   int       `json:"updated"`
	Alignment Alignment `json:"alignment,omitempty"`
}

// Check submits the whole annotation state and overwrites the text and
// error of the terms of file with the oracle's verdict.
func (e *Engine) Check(ctx context.Context, file FileContext) (CheckResult, error) {
	release, err := e.guards.acquire(ctx, file.Path)
	if err != nil {
		return CheckResult{}, err
	}
	defer release()
	return e.checkLocked(ctx, file, "")
}

// checkLocked runs check with the file guard already held.
func (e *Engine) checkLocked(ctx context.Context, file FileContext, trigger string) (CheckResult, error) {
	start := time.Now()
	res, err := e.check(ctx, file)
	op := "check"
	if trigger != "" {
		op = "check:" + trigger
	}
	e.record(ctx, op, file.Path, start, res.Updated, err)
	return res, err
}

func (e *Engine) check(ctx context.Context, file FileContext) (CheckResult, error) {
	doc, err := e.store.Load(ctx)
	if err != nil {
		return CheckResult{}, err
	}
	reg := doc.Spaces()
	sent := doc.Terms
	returned, err := e.oracle.Check(ctx, oracle.CheckRequest{
		File:         file.Text,
		FileName:     file.Path,
		Terms:        wireTerms(reg, sent),
		Spaces:       wireSpaces(reg),
		Constructors: wireConstructors(reg, doc.Constructors),
	})
	if err != nil {
		return CheckResult{}, err
	}

	verdicts, alignment, err := align(sent, returned)
	if err != nil {
		return CheckResult{}, err
	}
	res := CheckResult{Returned: len(returned), Alignment: alignment}

	_, err = e.store.Update(ctx, func(doc *store.Document) error {
		res.Updated = 0
		now := time.Now().UTC()
		for i := range doc.Terms {
			t := &doc.Terms[i]
			if t.FileName != file.Path {
				continue
			}
			v, ok := verdicts[t.ID]
			if !ok {
				continue
			}
			t.Text = v.Text
			t.Error = verdictError(v)
			t.UpdatedAt = now
			res.Updated++
		}
		return nil
	})
	if err != nil {
		return CheckResult{}, err
	}
	return res, nil
}

// align pairs each returned term with the id of a term that was sent. Ids
// echoed by the oracle win; a response without any ids is matched by
// position when it has exactly as many entries as the request.
func align(sent []store.Term, returned []oracle.Term) (map[int]oracle.Term, Alignment, error) {
	withID := 0
	for _, r := range returned {
		if r.ID != nil {
			withID++
		}
	}

	verdicts := make(map[int]oracle.Term, len(returned))
	switch {
	case len(returned) == 0:
		return verdicts, AlignByID, nil
	case withID == len(returned):
		known := make(map[int]bool, len(sent))
		for _, t := range sent {
			known[t.ID] = true
		}
		for _, r := range returned {
			if !known[*r.ID] {
				return nil, "", annerrors.Newf(annerrors.OracleTransportFailure,
					"check returned term id %d which was never sent", *r.ID)
			}
			if _, dup := verdicts[*r.ID]; dup {
				return nil, "", annerrors.Newf(annerrors.OracleTransportFailure,
					"check returned term id %d twice", *r.ID)
			}
			verdicts[*r.ID] = r
		}
		return verdicts, AlignByID, nil
	case withID == 0:
		if len(returned) != len(sent) {
			return nil, "", annerrors.Newf(annerrors.OracleTransportFailure,
				"check returned %d terms without ids for %d sent; cannot align", len(returned), len(sent))
		}
		for i, r := range returned {
			verdicts[sent[i].ID] = r
		}
		return verdicts, AlignByPosition, nil
	default:
		return nil, "", annerrors.Newf(annerrors.OracleTransportFailure,
			"check returned %d of %d terms without ids", len(returned)-withID, len(returned))
	}
}

// verdictError maps the oracle's error field; null means the term checked
// clean.
func verdictError(t oracle.Term) string {
	if t.Error == nil {
		return ""
	}
	return *t.Error
}
