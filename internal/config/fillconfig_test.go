package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFillConfig_Defaults(t *testing.T) {
	cfg := LoadFillConfig()

	assert.Equal(t, defaultTypeTablePath, cfg.TypeTablePath)
	assert.Equal(t, defaultAliasPath, cfg.AliasPath)
	assert.Empty(t, cfg.TraverseWeight)
}

func TestFillConfig_ValidateAcceptsKnownWeights(t *testing.T) {
	for _, weight := range []string{"", "uniform", "depth", "subtree"} {
		cfg := &FillConfig{TraverseWeight: weight}

		assert.NoError(t, cfg.Validate(), "weight %q should validate", weight)
	}
}

func TestFillConfig_ValidateRejectsUnknownWeight(t *testing.T) {
	cfg := &FillConfig{TraverseWeight: "bogus"}

	err := cfg.Validate()

	require.ErrorIs(t, err, ErrUnknownTraverseWeight)
}

func TestLoadFillConfig_ReadsEnvOverrides(t *testing.T) {
	t.Setenv("FILL_TYPE_TABLE_PATH", "/tmp/types.yaml")
	t.Setenv("FILL_TRAVERSE_WEIGHT", "depth")

	cfg := LoadFillConfig()

	assert.Equal(t, "/tmp/types.yaml", cfg.TypeTablePath)
	assert.Equal(t, "depth", cfg.TraverseWeight)
}
