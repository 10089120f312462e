// Package config loads annot settings from .annot/config.json, a .env file
// and ANNOT_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"annot/internal/paths"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// SupportedConfigVersions lists the schema versions Validate accepts.
var SupportedConfigVersions = []int{1}

var validate = validator.New()

// Config represents the complete annot configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Oracle  OracleConfig  `json:"oracle" mapstructure:"oracle"`
	Storage StorageConfig `json:"storage" mapstructure:"storage"`
	Display DisplayConfig `json:"display" mapstructure:"display"`
	Journal JournalConfig `json:"journal" mapstructure:"journal"`
	Syntax  SyntaxConfig  `json:"syntax" mapstructure:"syntax"`
	Notes   NotesConfig   `json:"notes" mapstructure:"notes"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// OracleConfig locates the inference service
type OracleConfig struct {
	URL       string          `json:"url" mapstructure:"url" validate:"required,url"`
	BasePath  string          `json:"basePath" mapstructure:"basePath" validate:"required,startswith=/"`
	TimeoutMs int             `json:"timeoutMs" mapstructure:"timeoutMs" validate:"gte=100,lte=600000"`
	Endpoints EndpointsConfig `json:"endpoints" mapstructure:"endpoints"`
}

// EndpointsConfig names the route of each oracle operation
type EndpointsConfig struct {
	GetState                        string `json:"getState" mapstructure:"getState" validate:"required"`
	Check                           string `json:"check" mapstructure:"check" validate:"required"`
	CreateSpace                     string `json:"createSpace" mapstructure:"createSpace" validate:"required"`
	CreateTermInterpretation        string `json:"createTermInterpretation" mapstructure:"createTermInterpretation" validate:"required"`
	CreateConstructorInterpretation string `json:"createConstructorInterpretation" mapstructure:"createConstructorInterpretation" validate:"required"`
}

// StorageConfig locates the annotation document. An empty Dir means the
// workspace's .annot directory.
type StorageConfig struct {
	Dir      string `json:"dir" mapstructure:"dir"`
	FileName string `json:"fileName" mapstructure:"fileName" validate:"required,excludesall=/\\"`
}

// DisplayConfig controls the summary report
type DisplayConfig struct {
	ShowFileName   bool `json:"showFileName" mapstructure:"showFileName"`
	ShowTimestamps bool `json:"showTimestamps" mapstructure:"showTimestamps"`
}

// JournalConfig controls the operation history
type JournalConfig struct {
	Enabled       bool `json:"enabled" mapstructure:"enabled"`
	RetentionDays int  `json:"retentionDays" mapstructure:"retentionDays" validate:"gte=0"`
}

// SyntaxConfig controls node classification of hand-added notes
type SyntaxConfig struct {
	Enabled   bool `json:"enabled" mapstructure:"enabled"`
	CacheSize int  `json:"cacheSize" mapstructure:"cacheSize" validate:"gte=0"`
}

// NotesConfig controls hand-added notes. CustomTodo holds extra regular
// expressions whose second capture group becomes the default text of a
// note added on a TODO comment.
type NotesConfig struct {
	CustomTodo []string `json:"customTodo" mapstructure:"customTodo"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format" validate:"oneof=human json"`
	Level  string `json:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	// File enables the workspace log at .annot/logs/annot.log.
	File       bool   `json:"file" mapstructure:"file"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups" validate:"gte=0"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Oracle: OracleConfig{
			URL:       "http://0.0.0.0:8080",
			BasePath:  "/api",
			TimeoutMs: 30000,
			Endpoints: EndpointsConfig{
				GetState:                        "getState",
				Check:                           "check2",
				CreateSpace:                     "createSpace",
				CreateTermInterpretation:        "createTermInterpretation",
				CreateConstructorInterpretation: "createConstructorInterpretation",
			},
		},
		Storage: StorageConfig{
			FileName: "annotations.json",
		},
		Display: DisplayConfig{
			ShowFileName:   true,
			ShowTimestamps: false,
		},
		Journal: JournalConfig{
			Enabled:       true,
			RetentionDays: 90,
		},
		Syntax: SyntaxConfig{
			Enabled:   true,
			CacheSize: 64,
		},
		Notes: NotesConfig{
			CustomTodo: []string{},
		},
		Logging: LoggingConfig{
			Format:     "human",
			Level:      "info",
			File:       true,
			MaxSize:    "5MB",
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from .annot/config.json with env overrides
func LoadConfig(root string) (*Config, error) {
	result, err := LoadConfigWithDetails(root)
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

// loadConfigFromPath reads a JSON config over the defaults, so keys missing
// from the file keep their default values.
func loadConfigFromPath(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to .annot/config.json
func (c *Config) Save(root string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(paths.ConfigPath(root), append(data, '\n'), 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	supported := false
	for _, v := range SupportedConfigVersions {
		if c.Version == v {
			supported = true
		}
	}
	if !supported {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ConfigError{Field: fieldPath(fe.Namespace()), Message: fmt.Sprintf("failed %q check (value %v)", fe.Tag(), fe.Value())}
		}
		return err
	}
	if _, err := c.TodoPatterns(); err != nil {
		return err
	}
	return nil
}

// TodoPatterns compiles notes.customTodo. Each expression needs at least two
// capture groups.
func (c *Config) TodoPatterns() ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(c.Notes.CustomTodo))
	for i, expr := range c.Notes.CustomTodo {
		field := fmt.Sprintf("notes.customTodo[%d]", i)
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, &ConfigError{Field: field, Message: err.Error()}
		}
		if re.NumSubexp() < 2 {
			return nil, &ConfigError{Field: field, Message: fmt.Sprintf("%q needs at least two capture groups", expr)}
		}
		out = append(out, re)
	}
	return out, nil
}

// fieldPath turns "Config.Oracle.TimeoutMs" into "oracle.timeoutMs".
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if p == "URL" {
			parts[i] = "url"
			continue
		}
		parts[i] = strings.ToLower(p[:1]) + p[1:]
	}
	return strings.Join(parts, ".")
}

// Timeout is the oracle request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Oracle.TimeoutMs) * time.Millisecond
}

// StorageDir resolves the document directory against the workspace root.
func (c *Config) StorageDir(root string) string {
	if c.Storage.Dir == "" {
		return paths.DataDir(root)
	}
	if filepath.IsAbs(c.Storage.Dir) {
		return c.Storage.Dir
	}
	return filepath.Join(root, c.Storage.Dir)
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
