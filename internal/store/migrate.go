package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"annot/internal/anchor"
	annerrors "annot/internal/errors"
	"annot/internal/interp"
	"annot/internal/space"
)

// MigrationReport describes a one-time conversion of a legacy document.
type MigrationReport struct {
	Shape        string   `json:"shape"` // "notes" or "terms"
	Terms        int      `json:"terms"`
	Constructors int      `json:"constructors"`
	Spaces       int      `json:"spaces"`
	Warnings     []string `json:"warnings,omitempty"`
	Backup       string   `json:"backup,omitempty"`
}

func (r *MigrationReport) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// floats accepts a number, an array of numbers, or null.
type floats []float64

func (f *floats) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var v []float64
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = v
		return nil
	}
	var x float64
	if err := json.Unmarshal(data, &x); err != nil {
		return err
	}
	*f = floats{x}
	return nil
}

type legacySpace struct {
	Label  string       `json:"label"`
	Space  string       `json:"space"`
	Parent *legacySpace `json:"parent"`
	Origin floats       `json:"origin"`
	Basis  floats       `json:"basis"`
}

type legacyInterp struct {
	Label    string       `json:"label"`
	Name     string       `json:"name"`
	Type     string       `json:"interp_type"`
	Form     string       `json:"form"`
	NodeType string       `json:"node_type"`
	OldType  string       `json:"type"`
	Value    floats       `json:"value"`
	Space    *legacySpace `json:"space"`
	Domain   *legacySpace `json:"domain"`
	Codomain *legacySpace `json:"codomain"`
}

type legacyTerm struct {
	ID             int             `json:"id"`
	FileName       string          `json:"fileName"`
	PositionStart  anchor.Position `json:"positionStart"`
	PositionEnd    anchor.Position `json:"positionEnd"`
	Text           string          `json:"text"`
	CodeSnippet    string          `json:"codeSnippet"`
	Status         string          `json:"status"`
	Error          *string         `json:"error"`
	NodeType       string          `json:"node_type"`
	OldType        string          `json:"type"`
	Interpretation *legacyInterp   `json:"interpretation"`
}

type legacyConstructor struct {
	ID             int           `json:"id"`
	Name           string        `json:"name"`
	NodeType       string        `json:"node_type"`
	Status         string        `json:"status"`
	Interpretation *legacyInterp `json:"interpretation"`
}

// spaceArena rebuilds the forest from nested legacy objects, keyed by label
// within a kind. Parents that only exist nested are materialised.
type spaceArena struct {
	reg     space.Registry
	byLabel map[space.Kind]map[string]string
}

func newSpaceArena() *spaceArena {
	return &spaceArena{byLabel: map[space.Kind]map[string]string{
		space.Time: {}, space.Geom1D: {}, space.Geom3D: {},
	}}
}

func (a *spaceArena) resolve(kind space.Kind, ls *legacySpace, depth int) (string, error) {
	if depth > 64 {
		return "", corrupt("space %q has a parent chain deeper than 64", ls.Label)
	}
	label := strings.TrimSpace(ls.Label)
	if id, ok := a.byLabel[kind][label]; ok {
		return id, nil
	}

	var s space.Space
	if ls.Parent == nil {
		s = space.Space{ID: uuid.NewString(), Label: label, Kind: kind}
	} else {
		parentID, err := a.resolve(kind, ls.Parent, depth+1)
		if err != nil {
			return "", err
		}
		s = space.Space{
			ID: uuid.NewString(), Label: label, Kind: kind, Parent: parentID,
			Origin: []float64(ls.Origin), Basis: []float64(ls.Basis),
		}
	}
	if err := a.reg.Append(s); err != nil {
		return "", annerrors.New(annerrors.StorageCorrupt, fmt.Sprintf("legacy space %q", label), err)
	}
	a.byLabel[kind][label] = s.ID
	return s.ID, nil
}

func (a *spaceArena) interpretation(li *legacyInterp, nodeType string, report *MigrationReport, owner string) interp.Interpretation {
	if li == nil {
		return nil
	}
	typeName := li.Type
	if typeName == "" {
		typeName = li.Form
	}
	v, err := interp.ParseVariant(typeName)
	if err != nil {
		report.warnf("%s: dropped interpretation %q: unknown type %q", owner, li.Label, typeName)
		return nil
	}
	name := li.Name
	if name == "" {
		name = interp.IdentifierName
	}
	if li.NodeType != "" {
		nodeType = li.NodeType
	} else if li.OldType != "" {
		nodeType = li.OldType
	}
	meta := interp.Meta{Label: li.Label, Name: name, Variant: v, NodeType: nodeType}

	ref := func(ls *legacySpace) (string, error) {
		if ls == nil {
			return "", fmt.Errorf("missing space")
		}
		return a.resolve(v.SpaceKind(), ls, 0)
	}

	var out interp.Interpretation
	switch v.Category() {
	case interp.CategoryScalar:
		out = &interp.ScalarValue{Meta: meta, Value: []float64(li.Value)}
	case interp.CategoryQuantity:
		h, err := ref(li.Space)
		if err != nil {
			report.warnf("%s: dropped interpretation %q: %v", owner, li.Label, err)
			return nil
		}
		out = &interp.Quantity{Meta: meta, Space: h, Value: []float64(li.Value)}
	case interp.CategoryTransform:
		dom, err := ref(li.Domain)
		if err != nil {
			report.warnf("%s: dropped interpretation %q: domain: %v", owner, li.Label, err)
			return nil
		}
		cod, err := ref(li.Codomain)
		if err != nil {
			report.warnf("%s: dropped interpretation %q: codomain: %v", owner, li.Label, err)
			return nil
		}
		out = &interp.Transform{Meta: meta, Domain: dom, Codomain: cod}
	}
	if err := interp.Validate(out, &a.reg); err != nil {
		report.warnf("%s: dropped interpretation %q: %v", owner, li.Label, err)
		return nil
	}
	return out
}

func legacyStatus(s string, report *MigrationReport, owner string) Status {
	st, err := ParseStatus(s)
	if err != nil {
		if s != "" {
			report.warnf("%s: unknown status %q reset to pending", owner, s)
		}
		return StatusPending
	}
	return st
}

// migrateLegacy converts the two pre-versioned shapes: the notes shape
// ("notes" + a single "coordinate_spaces" list with scalar origin/basis)
// and the terms shape (three space lists with nested parent objects).
// Absent lists default to empty; this is the only place defaults apply.
func migrateLegacy(keys map[string]json.RawMessage) (*Document, *MigrationReport, error) {
	report := &MigrationReport{Shape: "terms"}
	now := time.Now().UTC()
	arena := newSpaceArena()

	decode := func(key string, v interface{}) error {
		raw, ok := keys[key]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return nil
		}
		if err := json.Unmarshal(raw, v); err != nil {
			return annerrors.New(annerrors.StorageCorrupt, fmt.Sprintf("legacy document field %q", key), err)
		}
		return nil
	}

	var terms []legacyTerm
	if _, ok := keys["notes"]; ok {
		report.Shape = "notes"
		if err := decode("notes", &terms); err != nil {
			return nil, nil, err
		}
		var spaces []legacySpace
		if err := decode("coordinate_spaces", &spaces); err != nil {
			return nil, nil, err
		}
		for i := range spaces {
			kind, err := space.ParseKind(spaces[i].Space)
			if err != nil {
				kind = space.Time
			}
			if _, err := arena.resolve(kind, &spaces[i], 0); err != nil {
				return nil, nil, err
			}
		}
	} else {
		if err := decode("terms", &terms); err != nil {
			return nil, nil, err
		}
		for _, list := range []struct {
			key  string
			kind space.Kind
		}{
			{"time_coordinate_spaces", space.Time},
			{"geom1d_coordinate_spaces", space.Geom1D},
			{"geom3d_coordinate_spaces", space.Geom3D},
		} {
			kind := list.kind
			var spaces []legacySpace
			if err := decode(list.key, &spaces); err != nil {
				return nil, nil, err
			}
			for i := range spaces {
				if _, err := arena.resolve(kind, &spaces[i], 0); err != nil {
					return nil, nil, err
				}
			}
		}
	}

	var constructors []legacyConstructor
	if err := decode("constructors", &constructors); err != nil {
		return nil, nil, err
	}
	nextID := 0
	if err := decode("nextId", &nextID); err != nil {
		return nil, nil, err
	}

	doc := NewDocument()
	for _, lt := range terms {
		owner := fmt.Sprintf("term %d", lt.ID)
		nodeType := firstNonEmpty(lt.NodeType, lt.OldType, UnknownNodeType)
		errText := NotChecked
		if lt.Error != nil {
			errText = *lt.Error
		}
		doc.Terms = append(doc.Terms, Term{
			ID:             lt.ID,
			FileName:       lt.FileName,
			Range:          anchor.Range{Start: lt.PositionStart, End: lt.PositionEnd},
			CodeSnippet:    lt.CodeSnippet,
			Text:           lt.Text,
			Status:         legacyStatus(lt.Status, report, owner),
			NodeType:       nodeType,
			Error:          errText,
			Interpretation: arena.interpretation(lt.Interpretation, nodeType, report, owner),
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	for _, lc := range constructors {
		owner := fmt.Sprintf("constructor %d", lc.ID)
		nodeType := firstNonEmpty(lc.NodeType, UnknownNodeType)
		doc.Constructors = append(doc.Constructors, Constructor{
			ID:             lc.ID,
			Name:           lc.Name,
			NodeType:       nodeType,
			Status:         legacyStatus(lc.Status, report, owner),
			Interpretation: arena.interpretation(lc.Interpretation, nodeType, report, owner),
		})
	}
	doc.SetSpaces(&arena.reg)

	if floor := doc.MaxID() + 1; nextID < floor {
		if nextID != 0 {
			report.warnf("nextId %d raised to %d", nextID, floor)
		}
		nextID = floor
	}
	doc.NextID = nextID

	report.Terms = len(doc.Terms)
	report.Constructors = len(doc.Constructors)
	report.Spaces = arena.reg.Len()
	if err := doc.Validate(); err != nil {
		return nil, nil, err
	}
	return doc, report, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
