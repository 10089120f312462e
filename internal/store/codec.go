package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	annerrors "annot/internal/errors"
)

var requiredKeys = []string{
	"schemaVersion", "revision", "terms", "constructors",
	"time_coordinate_spaces", "geom1d_coordinate_spaces", "geom3d_coordinate_spaces",
	"nextId",
}

// decodeDocument parses a stored document. Documents without a
// schemaVersion key are legacy shapes and come back migrated, with a
// non-nil MigrationReport.
func decodeDocument(data []byte) (*Document, *MigrationReport, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, nil, annerrors.New(annerrors.StorageCorrupt, "annotation document is not a JSON object", err)
	}
	if _, versioned := keys["schemaVersion"]; !versioned {
		doc, report, err := migrateLegacy(keys)
		if err != nil {
			return nil, nil, err
		}
		return doc, report, nil
	}

	for _, k := range requiredKeys {
		raw, ok := keys[k]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return nil, nil, corrupt("annotation document is missing %q", k)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, annerrors.New(annerrors.StorageCorrupt, "annotation document does not match schema", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, nil, err
	}
	return &doc, nil, nil
}

// encodeDocument renders doc in canonical form: indented, trailing newline.
func encodeDocument(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding annotation document: %w", err)
	}
	return append(data, '\n'), nil
}
