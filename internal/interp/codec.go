package interp

import (
	"bytes"
	"encoding/json"

	annerrors "annot/internal/errors"
)

// record is the stored JSON shape of every case, discriminated by interp_type.
type record struct {
	Label    string    `json:"label"`
	Name     string    `json:"name"`
	Type     Variant   `json:"interp_type"`
	NodeType string    `json:"node_type"`
	Space    string    `json:"space,omitempty"`
	Value    []float64 `json:"value,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Codomain string    `json:"codomain,omitempty"`
}

// Marshal encodes i. A nil interpretation encodes as null.
func Marshal(i Interpretation) ([]byte, error) {
	if i == nil {
		return []byte("null"), nil
	}
	m := i.Header()
	rec := record{Label: m.Label, Name: m.Name, Type: m.Variant, NodeType: m.NodeType}
	switch v := i.(type) {
	case *ScalarValue:
		rec.Value = v.Value
	case *Quantity:
		rec.Space = v.Space
		rec.Value = v.Value
	case *Transform:
		rec.Domain = v.Domain
		rec.Codomain = v.Codomain
	default:
		return nil, annerrors.Newf(annerrors.InvalidInterpretation, "unsupported interpretation %T", i)
	}
	return json.Marshal(rec)
}

// Unmarshal decodes data produced by Marshal. null and empty input decode
// to a nil interpretation. Fields that do not belong to the variant are
// rejected rather than dropped.
func Unmarshal(data []byte) (Interpretation, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var rec record
	if err := dec.Decode(&rec); err != nil {
		return nil, annerrors.New(annerrors.InvalidInterpretation, "malformed interpretation", err)
	}
	if !rec.Type.Valid() {
		return nil, annerrors.Newf(annerrors.InvalidInterpretation, "unknown interp_type %q", rec.Type)
	}

	meta := Meta{Label: rec.Label, Name: rec.Name, Variant: rec.Type, NodeType: rec.NodeType}
	switch rec.Type.Category() {
	case CategoryScalar:
		if rec.Space != "" || rec.Domain != "" || rec.Codomain != "" {
			return nil, stray(rec.Type)
		}
		return &ScalarValue{Meta: meta, Value: rec.Value}, nil
	case CategoryQuantity:
		if rec.Domain != "" || rec.Codomain != "" {
			return nil, stray(rec.Type)
		}
		return &Quantity{Meta: meta, Space: rec.Space, Value: rec.Value}, nil
	default:
		if rec.Space != "" || rec.Value != nil {
			return nil, stray(rec.Type)
		}
		return &Transform{Meta: meta, Domain: rec.Domain, Codomain: rec.Codomain}, nil
	}
}

func stray(v Variant) error {
	return annerrors.Newf(annerrors.InvalidInterpretation, "%s interpretation carries fields of another variant", v)
}
