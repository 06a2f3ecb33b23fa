package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	defaultLogLevel       = slog.LevelInfo
	defaultTypeTablePath  = "attribute_types.yaml"
	defaultAliasPath      = ".fill-aliases.yaml"
	defaultShutdownWait   = 30 * time.Second
)

// ErrUnknownTraverseWeight is returned when FILL_TRAVERSE_WEIGHT names a
// scheme outside the known set. The scheme is declared for forward
// compatibility only: nothing in this repo consults it yet (see DESIGN.md).
var ErrUnknownTraverseWeight = errors.New("unknown traverse weight scheme")

// knownTraverseWeights is the closed set of weighting scheme names
// FillConfig.TraverseWeight is validated against.
var knownTraverseWeights = map[string]struct{}{
	"":          {},
	"uniform":   {},
	"depth":     {},
	"subtree":   {},
}

// FillConfig is the top-level process configuration for cmd/fill,
// analogous to the teacher's api.ServerConfig / storage.Config. It is read
// from environment variables only; there is no config-file overlay.
type FillConfig struct {
	LogLevel slog.Level

	// TypeTablePath/AliasPath locate the attribute type table (component A)
	// and its optional attribute-key alias config.
	TypeTablePath string
	AliasPath     string

	// TraverseWeight names a weighting scheme for future use by the
	// summariser (spec.md never implements one either; see DESIGN.md).
	TraverseWeight string

	ShutdownTimeout time.Duration
}

// LoadFillConfig loads FillConfig from environment variables.
func LoadFillConfig() *FillConfig {
	return &FillConfig{
		LogLevel:        GetEnvLogLevel("FILL_LOG_LEVEL", defaultLogLevel),
		TypeTablePath:   GetEnvStr("FILL_TYPE_TABLE_PATH", defaultTypeTablePath),
		AliasPath:       GetEnvStr("FILL_ALIASES_PATH", defaultAliasPath),
		TraverseWeight:  GetEnvStr("FILL_TRAVERSE_WEIGHT", ""),
		ShutdownTimeout: GetEnvDuration("FILL_SHUTDOWN_TIMEOUT", defaultShutdownWait),
	}
}

// Validate checks FillConfig's closed-set fields.
func (c *FillConfig) Validate() error {
	if _, ok := knownTraverseWeights[c.TraverseWeight]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTraverseWeight, c.TraverseWeight)
	}

	return nil
}
