package interp

import (
	"context"
	"strings"
	"testing"

	annerrors "annot/internal/errors"
	"annot/internal/space"
)

// testRegistry holds t0 (time), t1 derived from t0, x (geom1d) and world (geom3d).
func testRegistry(t *testing.T) *space.Registry {
	t.Helper()
	var reg space.Registry
	t0, _ := space.NewStandard(space.Time, "t0")
	t1, _ := space.NewDerived(space.Time, "t1", t0, []float64{5}, []float64{2})
	x, _ := space.NewStandard(space.Geom1D, "x")
	world, _ := space.NewStandard(space.Geom3D, "world")
	for _, s := range []space.Space{t0, t1, x, world} {
		if err := reg.Append(s); err != nil {
			t.Fatalf("Append(%s) error = %v", s.Label, err)
		}
	}
	return &reg
}

func TestVariantTable(t *testing.T) {
	tests := []struct {
		v        Variant
		category Category
		kind     space.Kind
		dim      int
	}{
		{Scalar, CategoryScalar, "", 1},
		{Duration, CategoryQuantity, space.Time, 1},
		{Position1D, CategoryQuantity, space.Geom1D, 1},
		{Displacement3D, CategoryQuantity, space.Geom3D, 3},
		{Geom3DTransform, CategoryTransform, space.Geom3D, 0},
		{TimeTransform, CategoryTransform, space.Time, 0},
	}
	for _, tt := range tests {
		if tt.v.Category() != tt.category || tt.v.SpaceKind() != tt.kind || tt.v.Dimension() != tt.dim {
			t.Errorf("%s = (%s, %q, %d), want (%s, %q, %d)", tt.v,
				tt.v.Category(), tt.v.SpaceKind(), tt.v.Dimension(), tt.category, tt.kind, tt.dim)
		}
	}
	if len(Variants) != 10 {
		t.Errorf("len(Variants) = %d, want 10", len(Variants))
	}
}

func TestParseVariant(t *testing.T) {
	for in, want := range map[string]Variant{
		"Duration":         Duration,
		"time transform":   TimeTransform,
		"geom3d_transform": Geom3DTransform,
		"POSITION3D":       Position3D,
	} {
		got, err := ParseVariant(in)
		if err != nil || got != want {
			t.Errorf("ParseVariant(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseVariant("Velocity"); !annerrors.Is(err, annerrors.InvalidInterpretation) {
		t.Errorf("ParseVariant(Velocity) error = %v", err)
	}
}

func TestFromParamsLabels(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		name         string
		v            Variant
		interpName   string
		isIdentifier bool
		params       Params
		wantLabel    string
	}{
		{"duration named", Duration, "dt", false, Params{Space: "t0", Values: []float64{3.5}}, "dt Duration(t0,3.5)"},
		{"duration identifier", Duration, "ignored", true, Params{Space: "t0", Values: []float64{3.5}}, "Duration(t0,3.5)"},
		{"scalar", Scalar, "k", false, Params{Values: []float64{5}}, "k Scalar(5)"},
		{"position3d", Position3D, "p", false, Params{Space: "world", Values: []float64{1, 2.25, -3}}, "p Position3D(world,1,2.25,-3)"},
		{"time transform", TimeTransform, "f", false, Params{Domain: "t0", Codomain: "t1"}, "f Time Transform(t0,t1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromParams(tt.v, tt.interpName, tt.isIdentifier, "IDENT_EXPR", tt.params, reg)
			if err != nil {
				t.Fatalf("FromParams() error = %v", err)
			}
			m := got.Header()
			if m.Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", m.Label, tt.wantLabel)
			}
			if tt.isIdentifier && m.Name != IdentifierName {
				t.Errorf("Name = %q, want %q", m.Name, IdentifierName)
			}
			if m.NodeType != "IDENT_EXPR" {
				t.Errorf("NodeType = %q", m.NodeType)
			}
		})
	}
}

func TestFromParamsRejects(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		name   string
		v      Variant
		params Params
	}{
		{"duration with geom1d space", Duration, Params{Space: "x", Values: []float64{1}}},
		{"position3d with one value", Position3D, Params{Space: "world", Values: []float64{1}}},
		{"unknown space", Time, Params{Space: "nowhere", Values: []float64{1}}},
		{"missing space", Time, Params{Values: []float64{1}}},
		{"transform across kinds", Geom1DTransform, Params{Domain: "x", Codomain: "t0"}},
		{"scalar without value", Scalar, Params{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromParams(tt.v, "n", false, "", tt.params, reg)
			if !annerrors.Is(err, annerrors.InvalidInterpretation) {
				t.Errorf("FromParams() error = %v, want INVALID_INTERPRETATION", err)
			}
		})
	}

	if _, err := FromParams(Duration, "  ", false, "", Params{Space: "t0", Values: []float64{1}}, reg); err == nil {
		t.Error("empty name for a non-identifier should fail")
	}
}

func TestValidateCaseMismatch(t *testing.T) {
	reg := testRegistry(t)
	bad := &Quantity{Meta: Meta{Name: "n", Variant: Scalar}, Value: []float64{1}}
	if err := Validate(bad, reg); !annerrors.Is(err, annerrors.InvalidInterpretation) {
		t.Errorf("Validate() error = %v", err)
	}
	if err := Validate(nil, reg); err != nil {
		t.Errorf("Validate(nil) = %v, want nil", err)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	reg := testRegistry(t)
	cases := []Interpretation{
		mustBuild(t, reg, Scalar, Params{Values: []float64{2}}),
		mustBuild(t, reg, Displacement3D, Params{Space: "world", Values: []float64{0, 1, 0}}),
		mustBuild(t, reg, Geom1DTransform, Params{Domain: "x", Codomain: "x"}),
	}
	for _, in := range cases {
		data, err := Marshal(in)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		out, err := Unmarshal(data)
		if err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", data, err)
		}
		if out.Header() != in.Header() {
			t.Errorf("header = %+v, want %+v", out.Header(), in.Header())
		}
		if err := Validate(out, reg); err != nil {
			t.Errorf("decoded interpretation invalid: %v", err)
		}
	}
}

func TestCodecNullAndStrictness(t *testing.T) {
	got, err := Unmarshal([]byte("null"))
	if err != nil || got != nil {
		t.Errorf("Unmarshal(null) = %v, %v", got, err)
	}
	data, _ := Marshal(nil)
	if string(data) != "null" {
		t.Errorf("Marshal(nil) = %s", data)
	}

	bad := []string{
		`{"label":"x","name":"x","interp_type":"Velocity","node_type":""}`,
		`{"label":"x","name":"x","interp_type":"Scalar","node_type":"","space":"abc","value":[1]}`,
		`{"label":"x","name":"x","interp_type":"Time Transform","node_type":"","value":[1]}`,
		`{"label":"x","name":"x","interp_type":"Scalar","node_type":"","colour":"red"}`,
		`[1,2]`,
	}
	for _, in := range bad {
		if _, err := Unmarshal([]byte(in)); !annerrors.Is(err, annerrors.InvalidInterpretation) {
			t.Errorf("Unmarshal(%s) error = %v, want INVALID_INTERPRETATION", in, err)
		}
	}
}

func mustBuild(t *testing.T, reg *space.Registry, v Variant, p Params) Interpretation {
	t.Helper()
	i, err := FromParams(v, "n", false, "DECL", p, reg)
	if err != nil {
		t.Fatalf("FromParams(%s) error = %v", v, err)
	}
	return i
}

func TestBuildDuration(t *testing.T) {
	reg := testRegistry(t)
	p := NewScriptPrompter("Duration", "dt", "t0", "3.5")

	got, err := Build(context.Background(), p, Target{NodeType: "FLOAT_LITERAL"}, reg)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	q, ok := got.(*Quantity)
	if !ok {
		t.Fatalf("Build() = %T, want *Quantity", got)
	}
	if len(q.Value) != 1 || q.Value[0] != 3.5 {
		t.Errorf("Value = %v, want [3.5]", q.Value)
	}
	if s, _ := reg.Find(q.Space); s.Label != "t0" {
		t.Errorf("space = %q, want t0", s.Label)
	}
	if q.Label != "dt Duration(t0,3.5)" {
		t.Errorf("Label = %q", q.Label)
	}
	if p.Remaining() != 0 {
		t.Errorf("%d answers left unused", p.Remaining())
	}
}

func TestBuildIdentifierSkipsName(t *testing.T) {
	reg := testRegistry(t)
	p := NewScriptPrompter("Position3D", "world", "1", "2", "3")

	got, err := Build(context.Background(), p, Target{NodeType: "IDENT", IsIdentifier: true}, reg)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got.Header().Label != "Position3D(world,1,2,3)" {
		t.Errorf("Label = %q", got.Header().Label)
	}
}

func TestBuildCancellation(t *testing.T) {
	reg := testRegistry(t)
	tests := []struct {
		name    string
		answers []string
	}{
		{"no variant", nil},
		{"empty name", []string{"Time", ""}},
		{"no space", []string{"Time", "t"}},
		{"unparsable value", []string{"Time", "t", "t0", "soon"}},
		{"missing codomain", []string{"Time Transform", "f", "t0"}},
		{"second of three values missing", []string{"Displacement3D", "d", "world", "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Build(context.Background(), NewScriptPrompter(tt.answers...), Target{}, reg)
			if !annerrors.IsCancelled(err) {
				t.Fatalf("Build() error = %v, want CANCELLED", err)
			}
			if got != nil {
				t.Errorf("Build() returned a partial interpretation: %+v", got)
			}
		})
	}
}

func TestBuildContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, NewScriptPrompter("Scalar", "k", "1"), Target{}, testRegistry(t))
	if !annerrors.IsCancelled(err) {
		t.Errorf("Build() error = %v, want CANCELLED", err)
	}
}

func TestBuildWithoutSpaces(t *testing.T) {
	var empty space.Registry
	_, err := Build(context.Background(), NewScriptPrompter("Duration", "dt"), Target{}, &empty)
	if !annerrors.Is(err, annerrors.InvalidInterpretation) {
		t.Errorf("Build() error = %v, want INVALID_INTERPRETATION", err)
	}
}

func TestBuildUnknownOption(t *testing.T) {
	reg := testRegistry(t)
	for name, answers := range map[string][]string{
		"variant": {"Velocity"},
		"space":   {"Duration", "dt", "t7"},
	} {
		t.Run(name, func(t *testing.T) {
			got, err := Build(context.Background(), NewScriptPrompter(answers...), Target{}, reg)
			if !annerrors.Is(err, annerrors.InvalidArgument) {
				t.Fatalf("Build() error = %v, want INVALID_ARGUMENT", err)
			}
			if got != nil {
				t.Errorf("Build() returned %+v", got)
			}
		})
	}
}

func TestLinePrompter(t *testing.T) {
	in := strings.NewReader("9\n2\nspeed\n\n")
	var out strings.Builder
	p := NewLinePrompter(in, &out)
	ctx := context.Background()

	idx, err := p.Select(ctx, "Pick", []string{"a", "b"})
	if err != nil || idx != 1 {
		t.Errorf("Select() = %d, %v; want 1 after rejecting 9", idx, err)
	}
	if !strings.Contains(out.String(), "2) b") {
		t.Errorf("menu not printed: %q", out.String())
	}
	if !strings.Contains(out.String(), `("9" is not one of the 2 options)`) {
		t.Errorf("rejected answer not explained: %q", out.String())
	}
	if s, err := p.Input(ctx, "Name", ""); err != nil || s != "speed" {
		t.Errorf("Input() = %q, %v", s, err)
	}
	if _, err := p.Select(ctx, "Pick", []string{"a"}); err != ErrAborted {
		t.Errorf("empty Select answer error = %v, want ErrAborted", err)
	}
	if _, err := p.Input(ctx, "More", ""); err != ErrAborted {
		t.Errorf("Input at EOF error = %v, want ErrAborted", err)
	}
}

func TestIsIdentifierNode(t *testing.T) {
	for nodeType, want := range map[string]bool{
		"IDENT":             true,
		"IDENT_LIT_VAR":     true,
		"identifier":        true,
		"FLOAT_LITERAL":     false,
		"BINARY_EXPRESSION": false,
	} {
		if got := IsIdentifierNode(nodeType); got != want {
			t.Errorf("IsIdentifierNode(%q) = %v, want %v", nodeType, got, want)
		}
	}
}
