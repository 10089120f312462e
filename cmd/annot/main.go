package main

import (
	"errors"
	"fmt"
	"os"

	annerrors "annot/internal/errors"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode prints err and maps it to a process status. A cancelled prompt
// is not a failure.
func exitCode(err error) int {
	if annerrors.IsCancelled(err) {
		fmt.Fprintln(os.Stderr, "Cancelled.")
		return 0
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var ae *annerrors.AnnotError
	if errors.As(err, &ae) {
		if details, ok := ae.Details.(map[string]interface{}); ok {
			if hint, ok := details["hint"].(string); ok {
				fmt.Fprintf(os.Stderr, "  hint: %s\n", hint)
			}
		}
	}
	for _, fix := range annerrors.GetSuggestedFixes(annerrors.CodeOf(err)) {
		if fix.Command == "" || fix.Command == "${retry_command}" {
			fmt.Fprintf(os.Stderr, "  hint: %s\n", fix.Description)
			continue
		}
		fmt.Fprintf(os.Stderr, "  hint: %s (%s)\n", fix.Description, fix.Command)
	}
	return 1
}
