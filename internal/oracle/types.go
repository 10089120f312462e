package oracle

import (
	"github.com/go-playground/validator/v10"

	"annot/internal/anchor"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterStructValidation(coordsOrder, Coords{})
}

// coordsOrder rejects coordinates whose begin lies after end.
func coordsOrder(sl validator.StructLevel) {
	c := sl.Current().Interface().(Coords)
	if c.Begin.Compare(c.End) > 0 {
		sl.ReportError(c.End, "End", "end", "gtebegin", "")
	}
}

// Space is a coordinate space as the service expects it: parents are nested
// by value rather than referenced.
type Space struct {
	Label  string    `json:"label"`
	Space  string    `json:"space"`
	Parent *Space    `json:"parent"`
	Origin []float64 `json:"origin"`
	Basis  []float64 `json:"basis"`
}

// Interpretation is the wire form of an interpretation. Spaces are inlined.
type Interpretation struct {
	Label      string    `json:"label"`
	Name       string    `json:"name"`
	InterpType string    `json:"interp_type"`
	NodeType   string    `json:"node_type"`
	Value      []float64 `json:"value,omitempty"`
	Space      *Space    `json:"space,omitempty"`
	Domain     *Space    `json:"domain,omitempty"`
	Codomain   *Space    `json:"codomain,omitempty"`
}

// Term is the wire form of an annotated source range.
type Term struct {
	ID             *int            `json:"id,omitempty"`
	FileName       string          `json:"fileName"`
	FileLine       int             `json:"fileLine"`
	PositionStart  anchor.Position `json:"positionStart"`
	PositionEnd    anchor.Position `json:"positionEnd"`
	Text           string          `json:"text"`
	CodeSnippet    string          `json:"codeSnippet"`
	Status         string          `json:"status"`
	Interpretation *Interpretation `json:"interpretation"`
	Error          *string         `json:"error"`
	NodeType       string          `json:"node_type"`
}

// Constructor is the wire form of a constructor.
type Constructor struct {
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	Interpretation *Interpretation `json:"interpretation"`
	NodeType       string          `json:"node_type"`
	Status         string          `json:"status"`
}

// PopulateRequest asks the service for every interpretable node of a file.
type PopulateRequest struct {
	FileName string `json:"fileName"`
	File     string `json:"file"`
	Terms    []Term `json:"terms"`
}

// Coords delimits a node in the populate response.
type Coords struct {
	Begin anchor.Position `json:"begin"`
	End   anchor.Position `json:"end"`
}

// PopulateEntry describes one interpretable node. Older services send the
// node type as "type".
type PopulateEntry struct {
	Coords   *Coords `json:"coords" validate:"required"`
	Interp   string  `json:"interp"`
	NodeType string  `json:"node_type"`
	Type     string  `json:"type"`
	Error    *string `json:"error"`
}

// Kind returns the node type under whichever key the service used.
func (e PopulateEntry) Kind() string {
	if e.NodeType != "" {
		return e.NodeType
	}
	return e.Type
}

// PopulateConstructor is one constructor reported by populate.
type PopulateConstructor struct {
	Interp string `json:"interp"`
	Type   string `json:"type"`
	Name   string `json:"name" validate:"required"`
}

// PopulateResponse is the getState reply.
type PopulateResponse struct {
	Data  []PopulateEntry       `json:"data" validate:"dive"`
	CData []PopulateConstructor `json:"cdata" validate:"dive"`
}

// CheckRequest submits the whole annotation state for type checking.
type CheckRequest struct {
	File         string        `json:"file"`
	FileName     string        `json:"fileName"`
	Terms        []Term        `json:"terms"`
	Spaces       []Space       `json:"spaces"`
	Constructors []Constructor `json:"constructors"`
}

type createSpaceRequest struct {
	Space Space `json:"space"`
}

type createTermRequest struct {
	Term Term `json:"term"`
}

type createConstructorRequest struct {
	Constructor Constructor `json:"constructor"`
}

type successResponse struct {
	Success *bool `json:"success"`
}
