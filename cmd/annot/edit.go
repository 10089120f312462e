package main

import (
	"annot/internal/interp"
	"annot/internal/reconcile"

	"github.com/spf13/cobra"
)

var (
	editType     string
	editName     string
	editSpace    string
	editValue    string
	editDomain   string
	editCodomain string
	editAnswers  []string
)

var editCmd = &cobra.Command{
	Use:   "edit <file> <id>",
	Short: "Set the interpretation of a term or constructor",
	Long: `Builds an interpretation for a term or constructor, registers it with Peirce
and stores it once accepted. Without --type the interpretation is asked for
interactively. The file is re-checked afterwards either way.

Examples:
  annot edit src/main.cpp 7
  annot edit src/main.cpp 7 --type Duration --space world-time --value 2.5
  annot edit src/main.cpp 9 --type "Geom3D Transform" --domain body --codomain world
  annot edit src/main.cpp 7 --answers Duration,world-time,2.5`,
	Args: cobra.ExactArgs(2),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringVar(&editType, "type", "", "Interpretation variant, e.g. Duration or \"Time Transform\"")
	editCmd.Flags().StringVar(&editName, "name", "", "Name for an identifier node")
	editCmd.Flags().StringVar(&editSpace, "space", "", "Space handle or label")
	editCmd.Flags().StringVar(&editValue, "value", "", "Comma separated values")
	editCmd.Flags().StringVar(&editDomain, "domain", "", "Domain space of a transform")
	editCmd.Flags().StringVar(&editCodomain, "codomain", "", "Codomain space of a transform")
	editCmd.Flags().StringSliceVar(&editAnswers, "answers", nil, "Answer the interactive prompts in order")
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[1])
	if err != nil {
		return err
	}
	var assignment *reconcile.Assignment
	if editType != "" {
		v, err := interp.ParseVariant(editType)
		if err != nil {
			return err
		}
		values, err := parseFloats(editValue)
		if err != nil {
			return err
		}
		assignment = &reconcile.Assignment{
			Variant: v,
			Name:    editName,
			Params: interp.Params{
				Space:    editSpace,
				Values:   values,
				Domain:   editDomain,
				Codomain: editCodomain,
			},
		}
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
	file, err := a.fileContext(ctx, args[0])
	if err != nil {
		return err
	}

	var res reconcile.EditResult
	if assignment != nil {
		res, err = a.engine.AssignInterpretation(ctx, file, id, *assignment)
	} else {
		p := newPrompter(editAnswers...)
		res, err = a.engine.EditSelectedItem(ctx, file, id, p)
		warnUnusedAnswers(a.logger, p)
	}
	if err != nil {
		return err
	}
	return printResponse(&res)
}
