package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"annot/internal/paths"
	"annot/internal/store"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the annotations for other tools",
	Long: `Writes terms, constructors and spaces in a flat, tool-friendly layout. File
names are relative to the workspace root.

Examples:
  annot export                         # YAML to stdout
  annot export --format toml -o a.toml
  annot export --format json`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "yaml", "Export format (yaml, toml, json)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to a path or URL instead of stdout")
	rootCmd.AddCommand(exportCmd)
}

// ExportTerm is one term in the export layout.
type ExportTerm struct {
	ID             int    `json:"id" yaml:"id" toml:"id"`
	File           string `json:"file" yaml:"file" toml:"file"`
	Range          string `json:"range" yaml:"range" toml:"range"`
	Status         string `json:"status" yaml:"status" toml:"status"`
	Text           string `json:"text" yaml:"text" toml:"text"`
	Snippet        string `json:"snippet" yaml:"snippet" toml:"snippet"`
	NodeType       string `json:"nodeType" yaml:"node_type" toml:"node_type"`
	Interpretation string `json:"interpretation,omitempty" yaml:"interpretation,omitempty" toml:"interpretation,omitempty"`
	Error          string `json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty"`
}

// ExportConstructor is one constructor in the export layout.
type ExportConstructor struct {
	ID             int    `json:"id" yaml:"id" toml:"id"`
	Name           string `json:"name" yaml:"name" toml:"name"`
	NodeType       string `json:"nodeType" yaml:"node_type" toml:"node_type"`
	Status         string `json:"status" yaml:"status" toml:"status"`
	Interpretation string `json:"interpretation,omitempty" yaml:"interpretation,omitempty" toml:"interpretation,omitempty"`
}

// ExportSpace is one coordinate space in the export layout.
type ExportSpace struct {
	Label  string    `json:"label" yaml:"label" toml:"label"`
	Kind   string    `json:"kind" yaml:"kind" toml:"kind"`
	Parent string    `json:"parent,omitempty" yaml:"parent,omitempty" toml:"parent,omitempty"`
	Origin []float64 `json:"origin,omitempty" yaml:"origin,omitempty,flow" toml:"origin,omitempty"`
	Basis  []float64 `json:"basis,omitempty" yaml:"basis,omitempty,flow" toml:"basis,omitempty"`
}

// ExportDocument is the whole export.
type ExportDocument struct {
	Root         string              `json:"root" yaml:"root" toml:"root"`
	Terms        []ExportTerm        `json:"terms" yaml:"terms" toml:"terms"`
	Constructors []ExportConstructor `json:"constructors" yaml:"constructors" toml:"constructors"`
	Spaces       []ExportSpace       `json:"spaces" yaml:"spaces" toml:"spaces"`
}

func buildExport(doc *store.Document, root string) ExportDocument {
	out := ExportDocument{
		Root:         root,
		Terms:        make([]ExportTerm, 0, len(doc.Terms)),
		Constructors: make([]ExportConstructor, 0, len(doc.Constructors)),
	}
	for _, t := range doc.Terms {
		e := ExportTerm{
			ID:             t.ID,
			File:           paths.Display(t.FileName, root),
			Range:          t.Range.String(),
			Status:         string(t.Status),
			Text:           t.Text,
			Snippet:        t.CodeSnippet,
			NodeType:       t.NodeType,
			Interpretation: interpretationLabel(t.Interpretation),
		}
		if t.Error != store.NotChecked {
			e.Error = t.Error
		}
		out.Terms = append(out.Terms, e)
	}
	for _, c := range doc.Constructors {
		out.Constructors = append(out.Constructors, ExportConstructor{
			ID:             c.ID,
			Name:           c.Name,
			NodeType:       c.NodeType,
			Status:         string(c.Status),
			Interpretation: interpretationLabel(c.Interpretation),
		})
	}
	reg := doc.Spaces()
	for _, s := range reg.All() {
		e := ExportSpace{Label: s.Label, Kind: string(s.Kind), Origin: s.Origin, Basis: s.Basis}
		if p, ok := reg.ResolveParent(s); ok {
			e.Parent = p.Label
		}
		out.Spaces = append(out.Spaces, e)
	}
	return out
}

func encodeExport(doc ExportDocument, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	case "toml":
		if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode TOML: %w", err)
		}
	case "json":
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode JSON: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
	return buf.Bytes(), nil
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := newContext()
	defer cancel()
	doc, err := a.withStore().store.Load(ctx)
	if err != nil {
		return err
	}
	data, err := encodeExport(buildExport(doc, a.ws.Root), exportFormat)
	if err != nil {
		return err
	}
	if exportOutput == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return a.ws.WriteOutput(ctx, exportOutput, data)
}
