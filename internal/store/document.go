package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"annot/internal/anchor"
	annerrors "annot/internal/errors"
	"annot/internal/interp"
	"annot/internal/space"
)

// SchemaVersion is the canonical document version written by this package.
const SchemaVersion = 2

// NotChecked is the error sentinel of a term the oracle has not validated yet.
const NotChecked = "Not checked"

// UnknownNodeType is used when no syntactic category is known.
const UnknownNodeType = "Unknown"

// Status is the review state of a term or constructor.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
)

// ParseStatus accepts "pending"/"done" and the aliases "todo"/"checked".
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "todo", "unchecked":
		return StatusPending, nil
	case "done", "checked":
		return StatusDone, nil
	}
	return "", annerrors.Newf(annerrors.InvalidArgument, "unknown status %q (want pending or done)", s)
}

func (s Status) valid() bool { return s == StatusPending || s == StatusDone }

// Term is an annotation bound to a range of a source file. A term with no
// file name is a plain note.
type Term struct {
	ID             int
	FileName       string
	Range          anchor.Range
	CodeSnippet    string
	Text           string
	Status         Status
	NodeType       string
	Error          string
	Interpretation interp.Interpretation
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsPlain reports whether t is a note with no file or range.
func (t Term) IsPlain() bool {
	return t.FileName == ""
}

type termJSON struct {
	ID             int             `json:"id"`
	FileName       string          `json:"fileName"`
	Range          *anchor.Range   `json:"range"`
	CodeSnippet    string          `json:"codeSnippet"`
	Text           string          `json:"text"`
	Status         Status          `json:"status"`
	NodeType       string          `json:"node_type"`
	Error          string          `json:"error"`
	Interpretation json.RawMessage `json:"interpretation"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (t Term) MarshalJSON() ([]byte, error) {
	raw, err := interp.Marshal(t.Interpretation)
	if err != nil {
		return nil, err
	}
	r := t.Range
	return json.Marshal(termJSON{
		ID: t.ID, FileName: t.FileName, Range: &r, CodeSnippet: t.CodeSnippet,
		Text: t.Text, Status: t.Status, NodeType: t.NodeType, Error: t.Error,
		Interpretation: raw, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt,
	})
}

func (t *Term) UnmarshalJSON(data []byte) error {
	var j termJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	if j.Range == nil {
		return fmt.Errorf("term %d has no range", j.ID)
	}
	i, err := interp.Unmarshal(j.Interpretation)
	if err != nil {
		return fmt.Errorf("term %d: %w", j.ID, err)
	}
	*t = Term{
		ID: j.ID, FileName: j.FileName, Range: *j.Range, CodeSnippet: j.CodeSnippet,
		Text: j.Text, Status: j.Status, NodeType: j.NodeType, Error: j.Error,
		Interpretation: i, CreatedAt: j.CreatedAt, UpdatedAt: j.UpdatedAt,
	}
	return nil
}

// Constructor is an annotation that is not bound to a range.
type Constructor struct {
	ID             int
	Name           string
	NodeType       string
	Status         Status
	Interpretation interp.Interpretation
}

type constructorJSON struct {
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	NodeType       string          `json:"node_type"`
	Status         Status          `json:"status"`
	Interpretation json.RawMessage `json:"interpretation"`
}

func (c Constructor) MarshalJSON() ([]byte, error) {
	raw, err := interp.Marshal(c.Interpretation)
	if err != nil {
		return nil, err
	}
	return json.Marshal(constructorJSON{
		ID: c.ID, Name: c.Name, NodeType: c.NodeType, Status: c.Status, Interpretation: raw,
	})
}

func (c *Constructor) UnmarshalJSON(data []byte) error {
	var j constructorJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	i, err := interp.Unmarshal(j.Interpretation)
	if err != nil {
		return fmt.Errorf("constructor %d: %w", j.ID, err)
	}
	*c = Constructor{ID: j.ID, Name: j.Name, NodeType: j.NodeType, Status: j.Status, Interpretation: i}
	return nil
}

// Document is the persisted root.
type Document struct {
	SchemaVersion int           `json:"schemaVersion"`
	Revision      int64         `json:"revision"`
	Terms         []Term        `json:"terms"`
	Constructors  []Constructor `json:"constructors"`
	TimeSpaces    []space.Space `json:"time_coordinate_spaces"`
	Geom1DSpaces  []space.Space `json:"geom1d_coordinate_spaces"`
	Geom3DSpaces  []space.Space `json:"geom3d_coordinate_spaces"`
	NextID        int           `json:"nextId"`
}

// NewDocument returns the empty default document.
func NewDocument() *Document {
	return &Document{
		SchemaVersion: SchemaVersion,
		Terms:         []Term{},
		Constructors:  []Constructor{},
		TimeSpaces:    []space.Space{},
		Geom1DSpaces:  []space.Space{},
		Geom3DSpaces:  []space.Space{},
		NextID:        1,
	}
}

// Spaces returns the document's space lists as a registry. The registry
// shares the document's slices; Append on it does not write back.
func (d *Document) Spaces() *space.Registry {
	return &space.Registry{Time: d.TimeSpaces, Geom1D: d.Geom1DSpaces, Geom3D: d.Geom3DSpaces}
}

// SetSpaces replaces the document's space lists with reg's.
func (d *Document) SetSpaces(reg *space.Registry) {
	d.TimeSpaces = nonNil(reg.Time)
	d.Geom1DSpaces = nonNil(reg.Geom1D)
	d.Geom3DSpaces = nonNil(reg.Geom3D)
}

func nonNil(s []space.Space) []space.Space {
	if s == nil {
		return []space.Space{}
	}
	return s
}

// MaxID is the largest id held by any term or constructor, 0 when empty.
func (d *Document) MaxID() int {
	maxID := 0
	for _, t := range d.Terms {
		maxID = max(maxID, t.ID)
	}
	for _, c := range d.Constructors {
		maxID = max(maxID, c.ID)
	}
	return maxID
}

// TermsForFile returns the terms anchored in fileName, in document order.
func (d *Document) TermsForFile(fileName string) []Term {
	var out []Term
	for _, t := range d.Terms {
		if t.FileName == fileName {
			out = append(out, t)
		}
	}
	return out
}

// TermsByStatus returns the terms with status s, in document order.
func (d *Document) TermsByStatus(s Status) []Term {
	var out []Term
	for _, t := range d.Terms {
		if t.Status == s {
			out = append(out, t)
		}
	}
	return out
}

func (d *Document) termIndex(id int) int {
	for i := range d.Terms {
		if d.Terms[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *Document) constructorIndex(id int) int {
	for i := range d.Constructors {
		if d.Constructors[i].ID == id {
			return i
		}
	}
	return -1
}

// allocID returns the next id and advances the counter.
func (d *Document) allocID() int {
	id := d.NextID
	d.NextID++
	return id
}

// Clone returns a deep copy. Interpretations are immutable once built and
// are shared.
func (d *Document) Clone() *Document {
	reg := d.Spaces().Clone()
	cp := *d
	cp.Terms = append(make([]Term, 0, len(d.Terms)), d.Terms...)
	cp.Constructors = append(make([]Constructor, 0, len(d.Constructors)), d.Constructors...)
	cp.SetSpaces(&reg)
	return &cp
}

// Validate checks the document invariants: known schema version, unique ids
// below nextId, valid statuses and ranges, a valid space forest, and
// interpretations that resolve against it.
func (d *Document) Validate() error {
	if d.SchemaVersion != SchemaVersion {
		return corrupt("unsupported schemaVersion %d", d.SchemaVersion)
	}
	if d.NextID < 1 {
		return corrupt("nextId must be positive, got %d", d.NextID)
	}
	reg := d.Spaces()
	if err := reg.Validate(); err != nil {
		return annerrors.New(annerrors.StorageCorrupt, "invalid coordinate spaces", err)
	}

	ids := make(map[int]string, len(d.Terms)+len(d.Constructors))
	claim := func(id int, what string) error {
		if id < 1 || id >= d.NextID {
			return corrupt("%s id %d outside [1, nextId=%d)", what, id, d.NextID)
		}
		if prev, dup := ids[id]; dup {
			return corrupt("%s id %d already used by a %s", what, id, prev)
		}
		ids[id] = what
		return nil
	}

	for _, t := range d.Terms {
		if err := claim(t.ID, "term"); err != nil {
			return err
		}
		if !t.Status.valid() {
			return corrupt("term %d has unknown status %q", t.ID, t.Status)
		}
		if err := t.Range.Validate(); err != nil {
			return annerrors.New(annerrors.StorageCorrupt, fmt.Sprintf("term %d has an invalid range", t.ID), err)
		}
		if err := interp.Validate(t.Interpretation, reg); err != nil {
			return annerrors.New(annerrors.StorageCorrupt, fmt.Sprintf("term %d", t.ID), err)
		}
	}
	for _, c := range d.Constructors {
		if err := claim(c.ID, "constructor"); err != nil {
			return err
		}
		if !c.Status.valid() {
			return corrupt("constructor %d has unknown status %q", c.ID, c.Status)
		}
		if err := interp.Validate(c.Interpretation, reg); err != nil {
			return annerrors.New(annerrors.StorageCorrupt, fmt.Sprintf("constructor %d", c.ID), err)
		}
	}
	return nil
}

func corrupt(format string, args ...interface{}) error {
	return annerrors.Newf(annerrors.StorageCorrupt, format, args...)
}
