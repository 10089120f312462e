package store

import (
	"context"
	"fmt"
	"strings"

	annerrors "annot/internal/errors"
	"annot/internal/interp"
	"annot/internal/space"
)

// NextID returns the id the next insert will receive.
func (s *Store) NextID(ctx context.Context) (int, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return 0, err
	}
	return doc.NextID, nil
}

// InsertTerm appends t with a fresh id. Empty status and node type take
// their defaults.
func (s *Store) InsertTerm(ctx context.Context, t Term) (Term, error) {
	if err := t.Range.Validate(); err != nil {
		return Term{}, err
	}
	var inserted Term
	_, err := s.Update(ctx, func(doc *Document) error {
		inserted = s.prepareTerm(doc, t)
		doc.Terms = append(doc.Terms, inserted)
		return nil
	})
	if err != nil {
		return Term{}, err
	}
	s.logger.Info("Inserted term", "id", inserted.ID, "file", inserted.FileName)
	return inserted, nil
}

func (s *Store) prepareTerm(doc *Document, t Term) Term {
	t.ID = doc.allocID()
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.NodeType == "" {
		t.NodeType = UnknownNodeType
	}
	now := s.now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	return t
}

// InsertConstructor appends c with a fresh id.
func (s *Store) InsertConstructor(ctx context.Context, c Constructor) (Constructor, error) {
	var inserted Constructor
	_, err := s.Update(ctx, func(doc *Document) error {
		inserted = prepareConstructor(doc, c)
		doc.Constructors = append(doc.Constructors, inserted)
		return nil
	})
	if err != nil {
		return Constructor{}, err
	}
	return inserted, nil
}

func prepareConstructor(doc *Document, c Constructor) Constructor {
	c.ID = doc.allocID()
	if c.Status == "" {
		c.Status = StatusPending
	}
	if c.NodeType == "" {
		c.NodeType = UnknownNodeType
	}
	return c
}

func termNotFound(id int) error {
	return annerrors.Newf(annerrors.NotFound, "no term with id %d", id)
}

func constructorNotFound(id int) error {
	return annerrors.Newf(annerrors.NotFound, "no constructor with id %d", id)
}

// FindTermByID returns the term with id.
func (s *Store) FindTermByID(ctx context.Context, id int) (Term, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return Term{}, err
	}
	if i := doc.termIndex(id); i >= 0 {
		return doc.Terms[i], nil
	}
	return Term{}, termNotFound(id)
}

// FindConstructorByID returns the constructor with id.
func (s *Store) FindConstructorByID(ctx context.Context, id int) (Constructor, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return Constructor{}, err
	}
	if i := doc.constructorIndex(id); i >= 0 {
		return doc.Constructors[i], nil
	}
	return Constructor{}, constructorNotFound(id)
}

// UpdateTerm replaces the term with t.ID. The creation time is kept.
func (s *Store) UpdateTerm(ctx context.Context, t Term) error {
	_, err := s.Update(ctx, func(doc *Document) error {
		i := doc.termIndex(t.ID)
		if i < 0 {
			return termNotFound(t.ID)
		}
		t.CreatedAt = doc.Terms[i].CreatedAt
		t.UpdatedAt = s.now().UTC()
		doc.Terms[i] = t
		return nil
	})
	return err
}

// UpdateConstructor replaces the constructor with c.ID.
func (s *Store) UpdateConstructor(ctx context.Context, c Constructor) error {
	_, err := s.Update(ctx, func(doc *Document) error {
		i := doc.constructorIndex(c.ID)
		if i < 0 {
			return constructorNotFound(c.ID)
		}
		doc.Constructors[i] = c
		return nil
	})
	return err
}

// SetTermInterpretation assigns i to the term with id after checking it
// against the stored spaces.
func (s *Store) SetTermInterpretation(ctx context.Context, id int, i interp.Interpretation) error {
	_, err := s.Update(ctx, func(doc *Document) error {
		idx := doc.termIndex(id)
		if idx < 0 {
			return termNotFound(id)
		}
		if err := interp.Validate(i, doc.Spaces()); err != nil {
			return err
		}
		doc.Terms[idx].Interpretation = i
		doc.Terms[idx].UpdatedAt = s.now().UTC()
		return nil
	})
	return err
}

// SetConstructorInterpretation assigns i to the constructor with id.
func (s *Store) SetConstructorInterpretation(ctx context.Context, id int, i interp.Interpretation) error {
	_, err := s.Update(ctx, func(doc *Document) error {
		idx := doc.constructorIndex(id)
		if idx < 0 {
			return constructorNotFound(id)
		}
		if err := interp.Validate(i, doc.Spaces()); err != nil {
			return err
		}
		doc.Constructors[idx].Interpretation = i
		return nil
	})
	return err
}

// SetStatus sets the status of the term or constructor with id.
func (s *Store) SetStatus(ctx context.Context, id int, status Status) error {
	if !status.valid() {
		return annerrors.Newf(annerrors.InvalidArgument, "unknown status %q", status)
	}
	_, err := s.Update(ctx, func(doc *Document) error {
		if i := doc.termIndex(id); i >= 0 {
			doc.Terms[i].Status = status
			doc.Terms[i].UpdatedAt = s.now().UTC()
			return nil
		}
		if i := doc.constructorIndex(id); i >= 0 {
			doc.Constructors[i].Status = status
			return nil
		}
		return annerrors.Newf(annerrors.NotFound, "no term or constructor with id %d", id)
	})
	return err
}

// RemoveByID deletes a term. Constructors are only replaced by populate and
// cannot be removed one at a time.
func (s *Store) RemoveByID(ctx context.Context, id int) error {
	_, err := s.Update(ctx, func(doc *Document) error {
		if i := doc.termIndex(id); i >= 0 {
			doc.Terms = append(doc.Terms[:i], doc.Terms[i+1:]...)
			return nil
		}
		if doc.constructorIndex(id) >= 0 {
			return annerrors.Newf(annerrors.InvalidArgument,
				"id %d is a constructor; constructors are replaced by populate, not removed", id)
		}
		return termNotFound(id)
	})
	return err
}

// RemoveAllByFileAndStatus deletes the terms with status in fileName, or in
// every file when fileName is empty. It returns how many were removed.
func (s *Store) RemoveAllByFileAndStatus(ctx context.Context, fileName string, status Status) (int, error) {
	if !status.valid() {
		return 0, annerrors.Newf(annerrors.InvalidArgument, "unknown status %q", status)
	}
	removed := 0
	_, err := s.Update(ctx, func(doc *Document) error {
		removed = doc.filterTerms(func(t Term) bool {
			return t.Status == status && (fileName == "" || t.FileName == fileName)
		})
		return nil
	})
	return removed, err
}

// SetAllStatus sets status on the terms currently in from, optionally
// restricted to fileName. It returns how many changed.
func (s *Store) SetAllStatus(ctx context.Context, fileName string, from, to Status) (int, error) {
	if !from.valid() || !to.valid() {
		return 0, annerrors.Newf(annerrors.InvalidArgument, "unknown status %q -> %q", from, to)
	}
	changed := 0
	_, err := s.Update(ctx, func(doc *Document) error {
		now := s.now().UTC()
		for i := range doc.Terms {
			t := &doc.Terms[i]
			if t.Status == from && (fileName == "" || t.FileName == fileName) {
				t.Status = to
				t.UpdatedAt = now
				changed++
			}
		}
		return nil
	})
	return changed, err
}

// PurgeTermsForFile deletes every term anchored in fileName.
func (s *Store) PurgeTermsForFile(ctx context.Context, fileName string) (int, error) {
	removed := 0
	_, err := s.Update(ctx, func(doc *Document) error {
		removed = doc.filterTerms(func(t Term) bool { return t.FileName == fileName })
		return nil
	})
	return removed, err
}

// filterTerms drops the terms drop matches and returns how many it dropped.
func (d *Document) filterTerms(drop func(Term) bool) int {
	kept := d.Terms[:0]
	for _, t := range d.Terms {
		if !drop(t) {
			kept = append(kept, t)
		}
	}
	removed := len(d.Terms) - len(kept)
	d.Terms = kept
	return removed
}

// ListSpaces returns the spaces of one kind.
func (s *Store) ListSpaces(ctx context.Context, kind space.Kind) ([]space.Space, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Spaces().List(kind), nil
}

// AppendSpace adds sp to the registry after validating it against the forest.
func (s *Store) AppendSpace(ctx context.Context, sp space.Space) error {
	_, err := s.Update(ctx, func(doc *Document) error {
		reg := doc.Spaces().Clone()
		if err := reg.Append(sp); err != nil {
			return err
		}
		doc.SetSpaces(&reg)
		return nil
	})
	if err == nil {
		s.logger.Info("Added coordinate space", "label", sp.Label, "kind", string(sp.Kind), "id", sp.ID)
	}
	return err
}

// ClearResult reports what ClearAll removed.
type ClearResult struct {
	Terms        int    `json:"terms"`
	Constructors int    `json:"constructors"`
	Backup       string `json:"backup"`
}

// ClearAll removes every term and constructor after backing the document
// up. Spaces and the id counter are kept so ids are never reused.
func (s *Store) ClearAll(ctx context.Context) (ClearResult, error) {
	var res ClearResult
	_, err := s.Update(ctx, func(doc *Document) error {
		raw, err := encodeDocument(doc)
		if err != nil {
			return err
		}
		if res.Backup, err = s.writeBackup(raw, "clear"); err != nil {
			return err
		}
		res.Terms, res.Constructors = len(doc.Terms), len(doc.Constructors)
		doc.Terms = []Term{}
		doc.Constructors = []Constructor{}
		return nil
	})
	return res, err
}

// ReplaceResult holds the entities written by ReplaceFileAnnotations.
type ReplaceResult struct {
	Purged       int
	Terms        []Term
	Constructors []Constructor
}

// ReplaceFileAnnotations swaps the terms of fileName for terms and the
// constructor list for constructors, assigning fresh ids, in one save.
func (s *Store) ReplaceFileAnnotations(ctx context.Context, fileName string, terms []Term, constructors []Constructor) (ReplaceResult, error) {
	for _, t := range terms {
		if t.FileName != fileName {
			return ReplaceResult{}, annerrors.Newf(annerrors.InvalidArgument,
				"term for %q passed to replace annotations of %q", t.FileName, fileName)
		}
		if err := t.Range.Validate(); err != nil {
			return ReplaceResult{}, err
		}
	}

	var res ReplaceResult
	_, err := s.Update(ctx, func(doc *Document) error {
		res.Purged = doc.filterTerms(func(t Term) bool { return t.FileName == fileName })
		res.Terms = make([]Term, 0, len(terms))
		for _, t := range terms {
			inserted := s.prepareTerm(doc, t)
			doc.Terms = append(doc.Terms, inserted)
			res.Terms = append(res.Terms, inserted)
		}
		res.Constructors = make([]Constructor, 0, len(constructors))
		for _, c := range constructors {
			res.Constructors = append(res.Constructors, prepareConstructor(doc, c))
		}
		doc.Constructors = append([]Constructor{}, res.Constructors...)
		return nil
	})
	if err != nil {
		return ReplaceResult{}, err
	}
	s.logger.Info("Replaced file annotations",
		"file", fileName, "purged", res.Purged, "terms", len(res.Terms), "constructors", len(res.Constructors))
	return res, nil
}

// SearchTerms returns terms whose text, snippet or interpretation label
// contains query, case-insensitively.
func (d *Document) SearchTerms(query string) []Term {
	q := strings.ToLower(query)
	var out []Term
	for _, t := range d.Terms {
		label := ""
		if t.Interpretation != nil {
			label = t.Interpretation.Header().Label
		}
		if strings.Contains(strings.ToLower(t.Text), q) ||
			strings.Contains(strings.ToLower(t.CodeSnippet), q) ||
			strings.Contains(strings.ToLower(label), q) {
			out = append(out, t)
		}
	}
	return out
}

// String renders a short description used in logs and CLI output.
func (t Term) String() string {
	return fmt.Sprintf("#%d %s:%s [%s] %s", t.ID, t.FileName, t.Range, t.Status, t.Text)
}
