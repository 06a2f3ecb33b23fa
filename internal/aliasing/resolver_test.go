package aliasing

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResolver_WithValidConfig(t *testing.T) {
	cfg := &Config{
		KeyPatterns: []KeyAlias{
			{Pattern: "ncbi_{field}", Canonical: "{field}"},
			{Pattern: "body_mass_g", Canonical: "mass"},
		},
	}

	r := NewResolver(cfg)

	require.NotNil(t, r)
	assert.Equal(t, 2, r.GetPatternCount())
}

func TestNewResolver_WithNilConfig(t *testing.T) {
	r := NewResolver(nil)

	require.NotNil(t, r)
	assert.Equal(t, 0, r.GetPatternCount())
}

func TestNewResolver_WithEmptyPatterns(t *testing.T) {
	cfg := &Config{KeyPatterns: []KeyAlias{}}

	r := NewResolver(cfg)

	require.NotNil(t, r)
	assert.Equal(t, 0, r.GetPatternCount())
}

func TestResolver_Resolve_LiteralAlias(t *testing.T) {
	cfg := &Config{
		KeyPatterns: []KeyAlias{
			{Pattern: "body_mass_g", Canonical: "mass"},
		},
	}
	r := NewResolver(cfg)

	assert.Equal(t, "mass", r.Resolve("body_mass_g"))
}

func TestResolver_Resolve_VariablePattern(t *testing.T) {
	cfg := &Config{
		KeyPatterns: []KeyAlias{
			{Pattern: "ncbi_{field}", Canonical: "{field}"},
		},
	}
	r := NewResolver(cfg)

	assert.Equal(t, "taxon_rank", r.Resolve("ncbi_taxon_rank"))
}

func TestResolver_Resolve_UnknownKey(t *testing.T) {
	cfg := &Config{
		KeyPatterns: []KeyAlias{
			{Pattern: "body_mass_g", Canonical: "mass"},
		},
	}
	r := NewResolver(cfg)

	// Unmatched key should pass through unchanged
	assert.Equal(t, "unrelated_key", r.Resolve("unrelated_key"))
}

func TestResolver_Resolve_EmptyString(t *testing.T) {
	cfg := &Config{
		KeyPatterns: []KeyAlias{
			{Pattern: "body_mass_g", Canonical: "mass"},
		},
	}
	r := NewResolver(cfg)

	assert.Empty(t, r.Resolve(""))
}

func TestResolver_Resolve_WithNilConfig(t *testing.T) {
	r := NewResolver(nil)

	assert.Equal(t, "any_key", r.Resolve("any_key"))
}

func TestResolver_Resolve_NilResolver(t *testing.T) {
	var r *AliasResolver

	assert.Equal(t, "any_key", r.Resolve("any_key"))
	assert.Equal(t, 0, r.GetPatternCount())
}

func TestResolver_Resolve_FirstMatchWins(t *testing.T) {
	cfg := &Config{
		KeyPatterns: []KeyAlias{
			{Pattern: "{any}", Canonical: "first"},
			{Pattern: "specific", Canonical: "second"},
		},
	}
	r := NewResolver(cfg)

	assert.Equal(t, "first", r.Resolve("specific"))
}

func TestResolver_Resolve_GreedyVariable(t *testing.T) {
	cfg := &Config{
		KeyPatterns: []KeyAlias{
			{Pattern: "attributes/{path*}", Canonical: "{path*}"},
		},
	}
	r := NewResolver(cfg)

	assert.Equal(t, "habitat/marine", r.Resolve("attributes/habitat/marine"))
}

func TestResolver_Match(t *testing.T) {
	cfg := &Config{
		KeyPatterns: []KeyAlias{
			{Pattern: "ncbi_{field}", Canonical: "{field}"},
		},
	}
	r := NewResolver(cfg)

	canonical, ok := r.Match("ncbi_taxon_rank")
	assert.True(t, ok)
	assert.Equal(t, "taxon_rank", canonical)

	_, ok = r.Match("unmatched")
	assert.False(t, ok)
}

func TestNewResolver_SkipsEmptyPattern(t *testing.T) {
	cfg := &Config{
		KeyPatterns: []KeyAlias{
			{Pattern: "", Canonical: "mass"},
			{Pattern: "valid_key", Canonical: "valid"},
		},
	}

	r := NewResolver(cfg)

	assert.Equal(t, 1, r.GetPatternCount())
}

func TestNewResolver_SkipsEmptyCanonical(t *testing.T) {
	cfg := &Config{
		KeyPatterns: []KeyAlias{
			{Pattern: "alias1", Canonical: ""},
			{Pattern: "alias2", Canonical: "   "},
			{Pattern: "alias3", Canonical: "valid"},
		},
	}

	r := NewResolver(cfg)

	assert.Equal(t, 1, r.GetPatternCount())
	assert.Equal(t, "valid", r.Resolve("alias3"))
}

func TestNewResolver_KeepsValidPattern(t *testing.T) {
	cfg := &Config{
		KeyPatterns: []KeyAlias{
			{Pattern: "valid_key", Canonical: "valid"},
		},
	}

	r := NewResolver(cfg)

	assert.Equal(t, 1, r.GetPatternCount())
}

func TestNewResolver_TrimsWhitespace(t *testing.T) {
	cfg := &Config{
		KeyPatterns: []KeyAlias{
			{Pattern: "  spaced_key  ", Canonical: "  canonical_key  "},
		},
	}

	r := NewResolver(cfg)

	assert.Equal(t, "canonical_key", r.Resolve("spaced_key"))
}

//nolint:gosmopolitan // testing unicode support intentionally
func TestResolver_Resolve_Unicode(t *testing.T) {
	cfg := &Config{
		KeyPatterns: []KeyAlias{
			{Pattern: "生物量", Canonical: "biomass"},
		},
	}
	r := NewResolver(cfg)

	assert.Equal(t, "biomass", r.Resolve("生物量"))
}

func TestResolver_ConcurrentResolve(t *testing.T) {
	cfg := &Config{
		KeyPatterns: []KeyAlias{
			{Pattern: "alias1", Canonical: "canonical1"},
			{Pattern: "alias2", Canonical: "canonical2"},
			{Pattern: "alias3", Canonical: "canonical3"},
		},
	}
	r := NewResolver(cfg)

	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			switch i % 4 {
			case 0:
				assert.Equal(t, "canonical1", r.Resolve("alias1"))
			case 1:
				assert.Equal(t, "canonical2", r.Resolve("alias2"))
			case 2:
				assert.Equal(t, "canonical3", r.Resolve("alias3"))
			case 3:
				assert.Equal(t, "unknown", r.Resolve("unknown"))
			}
		}(i)
	}

	wg.Wait()
}

func TestLoadAliasResolver_MissingFile(t *testing.T) {
	r, err := LoadAliasResolver("/nonexistent/path/aliases.yaml")

	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 0, r.GetPatternCount())
}
