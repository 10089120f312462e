package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"annot/internal/reconcile"
	"annot/internal/space"

	"github.com/spf13/cobra"
)

var (
	spaceKind    string
	spaceLabel   string
	spaceParent  string
	spaceOrigin  string
	spaceBasis   string
	spaceOutput  string
	spaceAnswers []string
)

var spaceCmd = &cobra.Command{
	Use:   "space",
	Short: "Manage coordinate spaces",
}

var spaceAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a coordinate space",
	Long: `Creates a standard space, or a space derived from a parent by an origin and
basis, and registers it with Peirce. Without --kind the space is asked for
interactively.

Examples:
  annot space add --kind time --label world-time
  annot space add --kind geom3d --label body --parent world \
      --origin 1,2,3 --basis 1,0,0,0,1,0,0,0,1`,
	Args: cobra.NoArgs,
	RunE: runSpaceAdd,
}

var spaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List coordinate spaces",
	Args:  cobra.NoArgs,
	RunE:  runSpaceList,
}

var spaceImportCmd = &cobra.Command{
	Use:   "import <spaces.toml>",
	Short: "Create the spaces declared in a TOML file",
	Long: `Creates each [[space]] entry of a TOML file in order. Parents are referenced
by label and may be declared earlier in the same file. The path may also be a
URL. Spaces created before a rejected entry are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: runSpaceImport,
}

var spaceExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the spaces as a TOML file",
	Args:  cobra.NoArgs,
	RunE:  runSpaceExport,
}

func init() {
	spaceAddCmd.Flags().StringVar(&spaceKind, "kind", "", "Space kind (time, geom1d, geom3d)")
	spaceAddCmd.Flags().StringVar(&spaceLabel, "label", "", "Space label")
	spaceAddCmd.Flags().StringVar(&spaceParent, "parent", "", "Parent space label or handle; omit for a standard space")
	spaceAddCmd.Flags().StringVar(&spaceOrigin, "origin", "", "Comma separated origin")
	spaceAddCmd.Flags().StringVar(&spaceBasis, "basis", "", "Comma separated basis")
	spaceAddCmd.Flags().StringSliceVar(&spaceAnswers, "answers", nil, "Answer the interactive prompts in order")
	spaceListCmd.Flags().StringVar(&spaceKind, "kind", "", "Only spaces of this kind")
	spaceExportCmd.Flags().StringVarP(&spaceOutput, "output", "o", "", "Write to a path or URL instead of stdout")

	spaceCmd.AddCommand(spaceAddCmd)
	spaceCmd.AddCommand(spaceListCmd)
	spaceCmd.AddCommand(spaceImportCmd)
	spaceCmd.AddCommand(spaceExportCmd)
	rootCmd.AddCommand(spaceCmd)
}

func runSpaceAdd(cmd *cobra.Command, args []string) error {
	var spec *reconcile.SpaceSpec
	if spaceKind != "" {
		kind, err := space.ParseKind(spaceKind)
		if err != nil {
			return err
		}
		origin, err := parseFloats(spaceOrigin)
		if err != nil {
			return err
		}
		basis, err := parseFloats(spaceBasis)
		if err != nil {
			return err
		}
		spec = &reconcile.SpaceSpec{Kind: kind, Label: spaceLabel, Parent: spaceParent, Origin: origin, Basis: basis}
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	if _, err := a.withEngine(); err != nil {
		return err
	}

	ctx, cancel := newContext()
	defer cancel()
	var sp space.Space
	if spec != nil {
		sp, err = a.engine.CreateSpace(ctx, *spec)
	} else {
		p := newPrompter(spaceAnswers...)
		sp, err = a.engine.AddSpace(ctx, p)
		warnUnusedAnswers(a.logger, p)
	}
	if err != nil {
		return err
	}

	doc, err := a.store.Load(ctx)
	if err != nil {
		return err
	}
	view := spaceView(doc.Spaces(), sp)
	return printResponse(&SpacesResponse{Spaces: []SpaceView{view}})
}

func runSpaceList(cmd *cobra.Command, args []string) error {
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
	reg := doc.Spaces()
	spaces := reg.All()
	if spaceKind != "" {
		kind, err := space.ParseKind(spaceKind)
		if err != nil {
			return err
		}
		spaces = reg.List(kind)
	}
	return printResponse(&SpacesResponse{Spaces: spaceViews(reg, spaces)})
}

func runSpaceImport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	if _, err := a.withEngine(); err != nil {
		return err
	}

	ctx, cancel := newContext()
	defer cancel()
	text, err := a.ws.ReadSource(ctx, args[0])
	if err != nil {
		return err
	}
	defs, err := space.LoadDefinitions(strings.NewReader(text))
	if err != nil {
		return err
	}
	res, importErr := a.engine.ImportSpaces(ctx, defs)

	doc, err := a.store.Load(ctx)
	if err != nil {
		return err
	}
	if len(res.Created) > 0 {
		if err := printResponse(&SpacesResponse{Spaces: spaceViews(doc.Spaces(), res.Created)}); err != nil {
			return err
		}
	}
	if importErr != nil {
		return fmt.Errorf("imported %d of %d spaces: %w", len(res.Created), len(defs), importErr)
	}
	return nil
}

func runSpaceExport(cmd *cobra.Command, args []string) error {
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
	var buf bytes.Buffer
	if err := space.EncodeDefinitions(&buf, doc.Spaces()); err != nil {
		return err
	}
	if spaceOutput == "" {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}
	if err := a.ws.WriteOutput(ctx, spaceOutput, buf.Bytes()); err != nil {
		return err
	}
	a.logger.Info("Exported spaces", "output", spaceOutput, "count", doc.Spaces().Len())
	return nil
}
