// Package aliasing provides pattern-based aliasing of legacy or deprecated
// attribute keys to the canonical key the attribute type table understands.
//
// Taxonomy datasets accumulate synonyms over time: a field ingested years ago
// as "body_mass_g" still needs to resolve to today's "mass" when the type
// table was rebuilt under the new name. This package loads a small set of
// pattern rules and resolves a key to its canonical form before it is looked
// up against the type table.
//
// Example configuration (attribute_aliases.yaml):
//
//	key_patterns:
//	  - pattern: "ncbi_{field}"
//	    canonical: "{field}"
//
// This transforms "ncbi_taxon_rank" → "taxon_rank".
package aliasing

import (
	"errors"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/genomehubs/fillcore/internal/config"
)

type (
	// KeyAlias defines a pattern-based transformation rule for attribute keys.
	//
	// Patterns are evaluated in order; first match wins.
	// Pattern syntax:
	//   - {variable} captures any characters except "/"
	//   - {variable*} captures any characters including "/" (for nested keys)
	//   - Literal characters match exactly
	//
	// Examples:
	//
	//	Pattern: "ncbi_{field}"
	//	Canonical: "{field}"
	//	Input: "ncbi_taxon_rank" → Output: "taxon_rank"
	KeyAlias struct {
		Pattern   string `yaml:"pattern"`
		Canonical string `yaml:"canonical"`
	}

	// Config holds attribute key alias configuration loaded from a YAML file.
	Config struct {
		//nolint:tagliatelle // snake_case is intentional for YAML config files
		KeyPatterns []KeyAlias `yaml:"key_patterns"`
	}
)

const (
	// DefaultConfigPath is the default location for the attribute alias file.
	DefaultConfigPath = ".fill-aliases.yaml"

	// ConfigPathEnvVar is the environment variable name for a custom alias file path.
	ConfigPathEnvVar = "FILL_ALIASES_PATH"
)

// LoadConfig loads alias configuration from a YAML file at the given path.
//
// Behavior:
//   - Returns empty config (not error) if file doesn't exist - aliases are optional
//   - Returns empty config + logs warning if YAML is invalid (graceful degradation)
//   - Returns populated config on success
//
// This graceful degradation ensures a traversal run can start even without
// aliases configured, as key aliasing is an optional feature.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		KeyPatterns: []KeyAlias{},
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Missing file is OK - aliases are optional
			slog.Debug("Alias file not found, continuing without aliases",
				slog.String("path", path))

			return cfg, nil
		}

		// Other read errors (permissions, etc.) - log warning and continue
		slog.Warn("Failed to read alias file, continuing without aliases",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return cfg, nil
	}

	// Empty file is valid - just no aliases
	if len(data) == 0 {
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		// Invalid YAML - log warning and continue with empty config
		slog.Warn("Failed to parse alias file, continuing without aliases",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return &Config{KeyPatterns: []KeyAlias{}}, nil
	}

	// Ensure slice is initialized even if YAML had nil/empty section
	if cfg.KeyPatterns == nil {
		cfg.KeyPatterns = []KeyAlias{}
	}

	return cfg, nil
}

// LoadConfigFromEnv loads config from the path specified in FILL_ALIASES_PATH
// environment variable. Falls back to ".fill-aliases.yaml" in current directory if not set.
func LoadConfigFromEnv() (*Config, error) {
	path := config.GetEnvStr(ConfigPathEnvVar, DefaultConfigPath)

	return LoadConfig(path)
}
