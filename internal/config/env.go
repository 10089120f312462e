package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"annot/internal/paths"
)

// ConfigPathEnvVar points at a config file outside the workspace.
const ConfigPathEnvVar = "ANNOT_CONFIG_PATH"

// DotEnvFileName is read from the workspace root before env overrides.
const DotEnvFileName = ".env"

// envVarMappings maps environment variables to config paths.
var envVarMappings = map[string]string{
	"ANNOT_ORACLE_URL":                         "oracle.url",
	"ANNOT_ORACLE_BASE_PATH":                   "oracle.basePath",
	"ANNOT_ORACLE_TIMEOUT_MS":                  "oracle.timeoutMs",
	"ANNOT_ORACLE_ENDPOINT_GET_STATE":          "oracle.endpoints.getState",
	"ANNOT_ORACLE_ENDPOINT_CHECK":              "oracle.endpoints.check",
	"ANNOT_ORACLE_ENDPOINT_CREATE_SPACE":       "oracle.endpoints.createSpace",
	"ANNOT_ORACLE_ENDPOINT_CREATE_TERM":        "oracle.endpoints.createTermInterpretation",
	"ANNOT_ORACLE_ENDPOINT_CREATE_CONSTRUCTOR": "oracle.endpoints.createConstructorInterpretation",
	"ANNOT_STORAGE_DIR":                        "storage.dir",
	"ANNOT_STORAGE_FILE_NAME":                  "storage.fileName",
	"ANNOT_DISPLAY_SHOW_FILE_NAME":             "display.showFileName",
	"ANNOT_DISPLAY_SHOW_TIMESTAMPS":            "display.showTimestamps",
	"ANNOT_JOURNAL_ENABLED":                    "journal.enabled",
	"ANNOT_JOURNAL_RETENTION_DAYS":             "journal.retentionDays",
	"ANNOT_SYNTAX_ENABLED":                     "syntax.enabled",
	"ANNOT_SYNTAX_CACHE_SIZE":                  "syntax.cacheSize",
	"ANNOT_LOGGING_LEVEL":                      "logging.level",
	"ANNOT_LOGGING_FORMAT":                     "logging.format",
	"ANNOT_LOG_LEVEL":                          "logging.level",
	"ANNOT_LOG_FORMAT":                         "logging.format",
}

// EnvOverride records one environment variable that changed the config.
type EnvOverride struct {
	EnvVar string `json:"envVar"`
	Path   string `json:"path"`
	Value  string `json:"value"`
}

// LoadResult describes where the configuration came from.
type LoadResult struct {
	Config       *Config
	ConfigPath   string
	DotEnvPath   string
	UsedDefaults bool
	EnvOverrides []EnvOverride
}

// LoadConfigWithDetails loads the configuration and reports its sources.
// Variables from root/.env never replace ones already in the environment.
func LoadConfigWithDetails(root string) (*LoadResult, error) {
	result := &LoadResult{}

	dotenv := filepath.Join(root, DotEnvFileName)
	if _, err := os.Stat(dotenv); err == nil {
		if err := godotenv.Load(dotenv); err != nil {
			return nil, &ConfigError{Field: DotEnvFileName, Message: err.Error()}
		}
		result.DotEnvPath = dotenv
	}

	if custom := os.Getenv(ConfigPathEnvVar); custom != "" {
		cfg, err := loadConfigFromPath(custom)
		if err != nil {
			return nil, err
		}
		result.Config, result.ConfigPath = cfg, custom
	} else {
		standard := paths.ConfigPath(root)
		_, err := os.Stat(standard)
		switch {
		case err == nil:
			cfg, err := loadConfigFromPath(standard)
			if err != nil {
				return nil, err
			}
			result.Config, result.ConfigPath = cfg, standard
		case errors.Is(err, os.ErrNotExist):
			result.Config, result.UsedDefaults = DefaultConfig(), true
		default:
			return nil, err
		}
	}

	overrides, err := applyEnvOverrides(result.Config)
	if err != nil {
		return nil, err
	}
	result.EnvOverrides = overrides
	if err := result.Config.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetSupportedEnvVars returns the recognised environment variables, sorted.
func GetSupportedEnvVars() []string {
	vars := make([]string, 0, len(envVarMappings))
	for v := range envVarMappings {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return vars
}

// EnvVarPath returns the config key an environment variable sets.
func EnvVarPath(name string) string {
	return envVarMappings[name]
}

// applyEnvOverrides applies every set variable in sorted order, so the short
// ANNOT_LOG_* aliases win over ANNOT_LOGGING_*. A value that does not parse
// as the key's type is a ConfigError naming the variable.
func applyEnvOverrides(cfg *Config) ([]EnvOverride, error) {
	var overrides []EnvOverride
	for _, envVar := range GetSupportedEnvVars() {
		raw, ok := os.LookupEnv(envVar)
		if !ok || raw == "" {
			continue
		}
		path := envVarMappings[envVar]
		value, err := parseEnvValue(path, raw)
		if err != nil {
			return nil, &ConfigError{Field: envVar, Message: err.Error()}
		}
		if !applyOverride(cfg, path, value) {
			continue
		}
		overrides = append(overrides, EnvOverride{EnvVar: envVar, Path: path, Value: raw})
	}
	return overrides, nil
}

func parseEnvValue(path, raw string) (interface{}, error) {
	switch path {
	case "oracle.timeoutMs", "journal.retentionDays", "syntax.cacheSize":
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", raw)
		}
		return n, nil
	case "display.showFileName", "display.showTimestamps", "journal.enabled", "syntax.enabled":
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", raw)
		}
		return b, nil
	}
	return raw, nil
}

// applyOverride sets one config path. It reports false for unknown paths and
// values of the wrong type.
func applyOverride(cfg *Config, path string, value interface{}) bool {
	parts := strings.Split(path, ".")
	switch parts[0] {
	case "oracle":
		if len(parts) == 3 && parts[1] == "endpoints" {
			return setEndpoint(&cfg.Oracle.Endpoints, parts[2], value)
		}
		if len(parts) != 2 {
			return false
		}
		switch parts[1] {
		case "url":
			return setString(&cfg.Oracle.URL, value)
		case "basePath":
			return setString(&cfg.Oracle.BasePath, value)
		case "timeoutMs":
			return setInt(&cfg.Oracle.TimeoutMs, value)
		}
	case "storage":
		if len(parts) != 2 {
			return false
		}
		switch parts[1] {
		case "dir":
			return setString(&cfg.Storage.Dir, value)
		case "fileName":
			return setString(&cfg.Storage.FileName, value)
		}
	case "display":
		if len(parts) != 2 {
			return false
		}
		switch parts[1] {
		case "showFileName":
			return setBool(&cfg.Display.ShowFileName, value)
		case "showTimestamps":
			return setBool(&cfg.Display.ShowTimestamps, value)
		}
	case "journal":
		if len(parts) != 2 {
			return false
		}
		switch parts[1] {
		case "enabled":
			return setBool(&cfg.Journal.Enabled, value)
		case "retentionDays":
			return setInt(&cfg.Journal.RetentionDays, value)
		}
	case "syntax":
		if len(parts) != 2 {
			return false
		}
		switch parts[1] {
		case "enabled":
			return setBool(&cfg.Syntax.Enabled, value)
		case "cacheSize":
			return setInt(&cfg.Syntax.CacheSize, value)
		}
	case "logging":
		if len(parts) != 2 {
			return false
		}
		switch parts[1] {
		case "level":
			return setString(&cfg.Logging.Level, value)
		case "format":
			return setString(&cfg.Logging.Format, value)
		}
	}
	return false
}

func setEndpoint(e *EndpointsConfig, name string, value interface{}) bool {
	switch name {
	case "getState":
		return setString(&e.GetState, value)
	case "check":
		return setString(&e.Check, value)
	case "createSpace":
		return setString(&e.CreateSpace, value)
	case "createTermInterpretation":
		return setString(&e.CreateTermInterpretation, value)
	case "createConstructorInterpretation":
		return setString(&e.CreateConstructorInterpretation, value)
	}
	return false
}

func setString(dst *string, value interface{}) bool {
	s, ok := value.(string)
	if ok {
		*dst = s
	}
	return ok
}

func setInt(dst *int, value interface{}) bool {
	n, ok := value.(int)
	if ok {
		*dst = n
	}
	return ok
}

func setBool(dst *bool, value interface{}) bool {
	b, ok := value.(bool)
	if ok {
		*dst = b
	}
	return ok
}
