package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"annot/internal/config"
)

var (
	configShowDiff bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect annot configuration",
	Long:  "View the configuration stored in .annot/config.json and its environment overrides",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration after .env and environment overrides.

Examples:
  annot config show                 # Pretty-print current config
  annot config show --format json   # Raw JSON output
  annot config show --diff          # Only show non-default values`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Args:  cobra.NoArgs,
	Run:   runConfigEnv,
}

func init() {
	configShowCmd.Flags().BoolVar(&configShowDiff, "diff", false, "Only show non-default values")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEnvCmd)
	rootCmd.AddCommand(configCmd)
}

// ConfigShowResponse is the response format for config show
type ConfigShowResponse struct {
	ConfigPath   string                 `json:"configPath,omitempty"`
	DotEnvPath   string                 `json:"dotEnvPath,omitempty"`
	UsedDefaults bool                   `json:"usedDefaults"`
	EnvOverrides []config.EnvOverride   `json:"envOverrides,omitempty"`
	Config       map[string]interface{} `json:"config"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	result, err := config.LoadConfigWithDetails(a.ws.Root)
	if err != nil {
		return err
	}
	if outputFormat() != FormatJSON {
		fmt.Println(formatConfigHuman(result))
		return nil
	}

	configMap, err := toMap(result.Config)
	if err != nil {
		return err
	}
	if configShowDiff {
		defaultMap, err := toMap(config.DefaultConfig())
		if err != nil {
			return err
		}
		configMap = computeDiff(configMap, defaultMap)
	}
	return printResponse(&ConfigShowResponse{
		ConfigPath:   result.ConfigPath,
		DotEnvPath:   result.DotEnvPath,
		UsedDefaults: result.UsedDefaults,
		EnvOverrides: result.EnvOverrides,
		Config:       configMap,
	})
}

func formatConfigHuman(result *config.LoadResult) string {
	var b strings.Builder
	b.WriteString("annot Configuration\n")
	b.WriteString(strings.Repeat("─", 50) + "\n")

	if result.UsedDefaults {
		b.WriteString("Source: defaults (no config file found)\n")
	} else if result.ConfigPath != "" {
		fmt.Fprintf(&b, "Source: %s\n", result.ConfigPath)
	}
	if result.DotEnvPath != "" {
		fmt.Fprintf(&b, "Dotenv: %s\n", result.DotEnvPath)
	}
	if len(result.EnvOverrides) > 0 {
		b.WriteString("\nEnvironment Overrides:\n")
		for _, ov := range result.EnvOverrides {
			fmt.Fprintf(&b, "  %s=%s → %s\n", ov.EnvVar, ov.Value, ov.Path)
		}
	}
	b.WriteString("\n")

	current, err := toMap(result.Config)
	if err != nil {
		return err.Error()
	}
	defaults, _ := toMap(config.DefaultConfig())
	flatCurrent := flatten(current, "")
	flatDefaults := flatten(defaults, "")

	keys := make([]string, 0, len(flatCurrent))
	for k := range flatCurrent {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if configShowDiff {
		b.WriteString("Modified Settings (differs from defaults):\n\n")
	}
	shown := 0
	for _, k := range keys {
		value, def := flatCurrent[k], flatDefaults[k]
		modified := !isEqual(value, def)
		if configShowDiff && !modified {
			continue
		}
		shown++
		if modified {
			fmt.Fprintf(&b, "  %s: %v (default: %v)\n", k, value, def)
		} else {
			fmt.Fprintf(&b, "  %s: %v\n", k, value)
		}
	}
	if configShowDiff && shown == 0 {
		b.WriteString("  (no modifications - using all defaults)\n")
	}

	b.WriteString("\nUse 'annot config show --format json' for full configuration\n")
	b.WriteString("Use 'annot config env' to see supported environment variables")
	return b.String()
}

func runConfigEnv(cmd *cobra.Command, args []string) {
	fmt.Println("Supported annot Environment Variables")
	fmt.Println(strings.Repeat("─", 50))
	fmt.Println()
	fmt.Printf("  %-42s %s\n", config.ConfigPathEnvVar, "path to a config file")
	for _, name := range config.GetSupportedEnvVars() {
		fmt.Printf("  %-42s %s\n", name, config.EnvVarPath(name))
	}
	fmt.Println()
	fmt.Printf("Variables may also be set in %s at the workspace root; the environment wins.\n", config.DotEnvFileName)
	fmt.Println()
	fmt.Println("Example usage:")
	fmt.Println("  ANNOT_ORACLE_URL=http://localhost:9000 annot populate src/main.cpp")
	fmt.Println("  ANNOT_LOG_LEVEL=debug annot check src/main.cpp")
}

func toMap(cfg *config.Config) (map[string]interface{}, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return m, nil
}

// flatten turns nested maps into dotted keys.
func flatten(m map[string]interface{}, prefix string) map[string]interface{} {
	out := make(map[string]interface{})
	for k, v := range m {
		if nested, ok := v.(map[string]interface{}); ok {
			for nk, nv := range flatten(nested, prefix+k+".") {
				out[nk] = nv
			}
			continue
		}
		out[prefix+k] = v
	}
	return out
}

func isEqual(a, b interface{}) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func computeDiff(current, defaults map[string]interface{}) map[string]interface{} {
	diff := make(map[string]interface{})
	for key, currentVal := range current {
		defaultVal, exists := defaults[key]
		if !exists {
			diff[key] = currentVal
			continue
		}
		currentMap, currentIsMap := currentVal.(map[string]interface{})
		defaultMap, defaultIsMap := defaultVal.(map[string]interface{})
		if currentIsMap && defaultIsMap {
			if nested := computeDiff(currentMap, defaultMap); len(nested) > 0 {
				diff[key] = nested
			}
		} else if !isEqual(currentVal, defaultVal) {
			diff[key] = currentVal
		}
	}
	return diff
}
