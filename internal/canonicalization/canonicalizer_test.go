package canonicalization

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRunDigest_Deterministic(t *testing.T) {
	a := GenerateRunDigest("run-1", "9606", "up")
	b := GenerateRunDigest("run-1", "9606", "up")

	assert.Equal(t, a, b)
	assert.Len(t, a, 64) //nolint:mnd // SHA256 hex digest length
}

func TestGenerateRunDigest_DiffersByDirection(t *testing.T) {
	up := GenerateRunDigest("run-1", "9606", "up")
	down := GenerateRunDigest("run-1", "9606", "down")

	assert.NotEqual(t, up, down)
}

func TestGenerateRunDigest_DiffersByRoot(t *testing.T) {
	a := GenerateRunDigest("run-1", "9606", "up")
	b := GenerateRunDigest("run-1", "7227", "up")

	assert.NotEqual(t, a, b)
}

func TestGenerateUpdateDigest_Deterministic(t *testing.T) {
	attrs := map[string]UpdateAttributeStamp{
		"mass":    {Method: "mean", Source: "descendant"},
		"habitat": {Method: "list", Source: "direct"},
	}

	a := GenerateUpdateDigest("run-1", "9606", attrs)
	b := GenerateUpdateDigest("run-1", "9606", attrs)

	assert.Equal(t, a, b)
}

func TestGenerateUpdateDigest_OrderIndependent(t *testing.T) {
	// Map iteration order must not leak into the digest.
	attrs := map[string]UpdateAttributeStamp{
		"mass":    {Method: "mean", Source: "descendant"},
		"habitat": {Method: "list", Source: "direct"},
		"length":  {Method: "median", Source: "direct"},
	}

	first := GenerateUpdateDigest("run-1", "9606", attrs)

	for i := 0; i < 10; i++ {
		assert.Equal(t, first, GenerateUpdateDigest("run-1", "9606", attrs))
	}
}

func TestGenerateUpdateDigest_DiffersByAttributeContent(t *testing.T) {
	base := map[string]UpdateAttributeStamp{
		"mass": {Method: "mean", Source: "descendant"},
	}
	changed := map[string]UpdateAttributeStamp{
		"mass": {Method: "median", Source: "descendant"},
	}

	assert.NotEqual(t, GenerateUpdateDigest("run-1", "9606", base), GenerateUpdateDigest("run-1", "9606", changed))
}

func TestGenerateUpdateDigest_DiffersByRun(t *testing.T) {
	attrs := map[string]UpdateAttributeStamp{
		"mass": {Method: "mean", Source: "descendant"},
	}

	a := GenerateUpdateDigest("run-1", "9606", attrs)
	b := GenerateUpdateDigest("run-2", "9606", attrs)

	assert.NotEqual(t, a, b)
}

func TestGenerateUpdateDigest_EmptyAttributes(t *testing.T) {
	digest := GenerateUpdateDigest("run-1", "9606", map[string]UpdateAttributeStamp{})

	assert.Len(t, digest, 64) //nolint:mnd // SHA256 hex digest length
}

func TestGenerateLineagePathDigest_Deterministic(t *testing.T) {
	path := []string{"1", "131567", "2759", "33154", "33208", "9606"}

	a := GenerateLineagePathDigest(path, len(path))
	b := GenerateLineagePathDigest(path, len(path))

	assert.Equal(t, a, b)
}

func TestGenerateLineagePathDigest_DiffersByDepth(t *testing.T) {
	path := []string{"1", "131567", "2759"}

	a := GenerateLineagePathDigest(path, 2)
	b := GenerateLineagePathDigest(path, 3)

	assert.NotEqual(t, a, b)
}

func TestGenerateLineagePathDigest_DiffersByPath(t *testing.T) {
	a := GenerateLineagePathDigest([]string{"1", "2"}, 2)
	b := GenerateLineagePathDigest([]string{"1", "3"}, 2)

	assert.NotEqual(t, a, b)
}
