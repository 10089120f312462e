package reconcile

import (
	"context"
	"fmt"
	"time"

	"annot/internal/anchor"
	annerrors "annot/internal/errors"
	"annot/internal/oracle"
	"annot/internal/store"
)

// PopulateResult reports what populate committed.
type PopulateResult struct {
	Purged       int         `json:"purged"`
	Terms        int         `json:"terms"`
	Constructors int         `json:"constructors"`
	Check        CheckResult `json:"check"`
}

// Populate replaces the terms of file and the constructor list with what the
// oracle reports, then checks the file. Nothing is written unless the oracle
// answered; the replacement itself is a single save.
func (e *Engine) Populate(ctx context.Context, file FileContext) (PopulateResult, error) {
	start := time.Now()
	release, err := e.guards.acquire(ctx, file.Path)
	if err != nil {
		return PopulateResult{}, err
	}
	defer release()

	res, err := e.populate(ctx, file)
	e.record(ctx, "populate", file.Path, start, res.Terms+res.Constructors, err)
	if err != nil {
		return res, err
	}

	res.Check, err = e.checkLocked(ctx, file, "populate")
	if err != nil {
		return res, fmt.Errorf("populate committed but check failed: %w", err)
	}
	return res, nil
}

func (e *Engine) populate(ctx context.Context, file FileContext) (PopulateResult, error) {
	doc, err := e.store.Load(ctx)
	if err != nil {
		return PopulateResult{}, err
	}
	resp, err := e.oracle.GetState(ctx, oracle.PopulateRequest{
		FileName: file.Path,
		File:     file.Text,
		Terms:    wireTerms(doc.Spaces(), doc.TermsForFile(file.Path)),
	})
	if err != nil {
		return PopulateResult{}, err
	}

	terms := make([]store.Term, 0, len(resp.Data))
	for i, entry := range resp.Data {
		t, err := e.termFromEntry(file, entry)
		if err != nil {
			return PopulateResult{}, annerrors.New(annerrors.OracleTransportFailure,
				fmt.Sprintf("populate entry %d", i), err)
		}
		terms = append(terms, t)
	}
	constructors := make([]store.Constructor, 0, len(resp.CData))
	for _, c := range resp.CData {
		nodeType := c.Type
		if nodeType == "" {
			nodeType = store.UnknownNodeType
		}
		constructors = append(constructors, store.Constructor{
			Name:     c.Name,
			NodeType: nodeType,
			Status:   store.StatusPending,
		})
	}

	replaced, err := e.store.ReplaceFileAnnotations(ctx, file.Path, terms, constructors)
	if err != nil {
		return PopulateResult{}, err
	}
	return PopulateResult{
		Purged:       replaced.Purged,
		Terms:        len(replaced.Terms),
		Constructors: len(replaced.Constructors),
	}, nil
}

func (e *Engine) termFromEntry(file FileContext, entry oracle.PopulateEntry) (store.Term, error) {
	r, err := anchor.NewRange(entry.Coords.Begin, entry.Coords.End)
	if err != nil {
		return store.Term{}, err
	}
	snippet, err := anchor.Extract(file.Text, r)
	if err != nil {
		e.logger.Warn("Populate range outside file text", "file", file.Path, "range", r.String())
		snippet = ""
	}
	nodeType := entry.Kind()
	if nodeType == "" {
		nodeType = store.UnknownNodeType
	}
	errText := store.NotChecked
	if entry.Error != nil {
		errText = *entry.Error
	}
	return store.Term{
		FileName:    file.Path,
		Range:       r,
		CodeSnippet: snippet,
		Text:        entry.Interp,
		Status:      store.StatusPending,
		NodeType:    nodeType,
		Error:       errText,
	}, nil
}
