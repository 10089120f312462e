package main

import (
	"time"

	"annot/internal/anchor"
	"annot/internal/interp"
	"annot/internal/journal"
	"annot/internal/paths"
	"annot/internal/space"
	"annot/internal/store"
)

// TermView is a term as commands print it.
type TermView struct {
	ID             int          `json:"id"`
	File           string       `json:"file"`
	Range          anchor.Range `json:"range"`
	Status         store.Status `json:"status"`
	Text           string       `json:"text"`
	Snippet        string       `json:"codeSnippet"`
	NodeType       string       `json:"nodeType"`
	Interpretation string       `json:"interpretation,omitempty"`
	Error          string       `json:"error,omitempty"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// ConstructorView is a constructor as commands print it.
type ConstructorView struct {
	ID             int          `json:"id"`
	Name           string       `json:"name"`
	NodeType       string       `json:"nodeType"`
	Status         store.Status `json:"status"`
	Interpretation string       `json:"interpretation,omitempty"`
}

// SpaceView is a coordinate space with its parent resolved to a label.
type SpaceView struct {
	ID          string     `json:"id"`
	Label       string     `json:"label"`
	Kind        space.Kind `json:"kind"`
	Parent      string     `json:"parent,omitempty"`
	Origin      []float64  `json:"origin,omitempty"`
	Basis       []float64  `json:"basis,omitempty"`
	Description string     `json:"description"`
}

// ListResponse is printed by list and show.
type ListResponse struct {
	Terms        []TermView        `json:"terms"`
	Constructors []ConstructorView `json:"constructors,omitempty"`
}

// SpacesResponse is printed by space list and space import.
type SpacesResponse struct {
	Spaces []SpaceView `json:"spaces"`
}

// HistoryResponse is printed by history.
type HistoryResponse struct {
	Entries []journal.Entry `json:"entries"`
	Pruned  int64           `json:"pruned,omitempty"`
}

// BackupsResponse is printed by backup list.
type BackupsResponse struct {
	Dir     string             `json:"dir"`
	Backups []store.BackupInfo `json:"backups"`
}

// MessageResponse carries a one-line outcome plus optional counters.
type MessageResponse struct {
	Message string         `json:"message"`
	Counts  map[string]int `json:"counts,omitempty"`
}

func termView(t store.Term, root string) TermView {
	v := TermView{
		ID:        t.ID,
		File:      paths.Display(t.FileName, root),
		Range:     t.Range,
		Status:    t.Status,
		Text:      t.Text,
		Snippet:   t.CodeSnippet,
		NodeType:  t.NodeType,
		UpdatedAt: t.UpdatedAt,
	}
	if t.Error != store.NotChecked {
		v.Error = t.Error
	}
	if t.Interpretation != nil {
		v.Interpretation = t.Interpretation.Header().Label
	}
	return v
}

func termViews(terms []store.Term, root string) []TermView {
	out := make([]TermView, 0, len(terms))
	for _, t := range terms {
		out = append(out, termView(t, root))
	}
	return out
}

func constructorView(c store.Constructor) ConstructorView {
	v := ConstructorView{ID: c.ID, Name: c.Name, NodeType: c.NodeType, Status: c.Status}
	if c.Interpretation != nil {
		v.Interpretation = c.Interpretation.Header().Label
	}
	return v
}

func spaceView(reg *space.Registry, s space.Space) SpaceView {
	v := SpaceView{
		ID:          s.ID,
		Label:       s.Label,
		Kind:        s.Kind,
		Origin:      s.Origin,
		Basis:       s.Basis,
		Description: reg.Describe(s),
	}
	if parent, ok := reg.ResolveParent(s); ok {
		v.Parent = parent.Label
	}
	return v
}

func spaceViews(reg *space.Registry, spaces []space.Space) []SpaceView {
	out := make([]SpaceView, 0, len(spaces))
	for _, s := range spaces {
		out = append(out, spaceView(reg, s))
	}
	return out
}

// interpretationLabel is the label of i, or "" when unset.
func interpretationLabel(i interp.Interpretation) string {
	if i == nil {
		return ""
	}
	return i.Header().Label
}
