package main

import (
	"fmt"
	"os"

	"annot/internal/config"
	annerrors "annot/internal/errors"
	"annot/internal/paths"
	"annot/internal/workspace"

	"github.com/spf13/cobra"
)

var (
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize an annot workspace",
	Long: `Creates a .annot/ directory in the current directory (or --root) holding the
default configuration and an empty annotation document.

Running init again is safe: existing files are left alone. --force rewrites the
configuration with defaults but never touches the annotation document.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Rewrite the configuration with defaults")
	rootCmd.AddCommand(initCmd)
}

// InitResponse describes the initialized workspace.
type InitResponse struct {
	Root            string `json:"root"`
	ConfigPath      string `json:"configPath"`
	DocumentPath    string `json:"documentPath"`
	ConfigWritten   bool   `json:"configWritten"`
	DocumentCreated bool   `json:"documentCreated"`
}

func runInit(cmd *cobra.Command, args []string) error {
	root := rootFlag
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return annerrors.New(annerrors.InternalError, "failed to get current directory", err)
		}
		root = cwd
	}
	ws := workspace.Open(root, nil)
	if err := ws.Init(); err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	resp := InitResponse{Root: a.ws.Root, ConfigPath: paths.ConfigPath(a.ws.Root)}
	if _, statErr := os.Stat(resp.ConfigPath); os.IsNotExist(statErr) || initForce {
		if err := config.DefaultConfig().Save(a.ws.Root); err != nil {
			return annerrors.New(annerrors.InternalError, "failed to write config file", err)
		}
		resp.ConfigWritten = true
		a.cfg = config.DefaultConfig()
		a.logger.Info("Wrote default configuration", "path", resp.ConfigPath)
	}

	ctx, cancel := newContext()
	defer cancel()
	st := a.withStore().store
	created, err := st.Init(ctx)
	if err != nil {
		return err
	}
	resp.DocumentPath = st.Path()
	resp.DocumentCreated = created
	a.openJournal()

	if outputFormat() == FormatJSON {
		return printResponse(&resp)
	}
	if !resp.ConfigWritten && !resp.DocumentCreated {
		fmt.Println("annot already initialized.")
		fmt.Printf("Configuration at: %s\n", resp.ConfigPath)
		fmt.Println("\nRun 'annot init --force' to reset the configuration.")
		return nil
	}
	fmt.Println("annot initialized successfully!")
	fmt.Printf("Configuration: %s\n", resp.ConfigPath)
	fmt.Printf("Annotations:   %s\n", resp.DocumentPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Start the Peirce service (default http://0.0.0.0:8080)")
	fmt.Println("  2. Run 'annot populate <file>' to fetch interpretable nodes")
	return nil
}
