// Package canonicalization provides deterministic digest generation for the
// fill engine's asynchronous update queue.
//
// A traversal run patches node attributes and hands them to the backend
// adapter for write-back (see internal/backend). Because write-back happens
// asynchronously through a message queue, the same patch can be redelivered;
// digests computed here give the consumer side a stable key to deduplicate
// against.
//
// All digests use SHA256 hashing for determinism and collision resistance.
package canonicalization

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// GenerateRunDigest generates a deterministic identifier for one traversal
// run, scoped to the root taxon and the direction it traversed.
//
// Formula: SHA256(runID + rootTaxonID + direction)
//
// No log line or queue message in this repository carries it; the traversal
// logs and the update messages carry the run id itself.
func GenerateRunDigest(runID, rootTaxonID, direction string) string {
	return hashSHA256(runID + rootTaxonID + direction)
}

// GenerateUpdateDigest generates an idempotency key for one queued node
// patch.
//
// Formula: SHA256(runID + taxonID + sorted("key=method:source" per attribute))
//
// Purpose: the Kafka consumer (internal/backend's Applier) uses this digest
// to skip a patch it has already applied, so redelivery after a crash or a
// rebalance does not double-apply an update. Attribute entries are sorted by
// key before hashing so the digest does not depend on map iteration order.
func GenerateUpdateDigest(runID, taxonID string, attrs map[string]UpdateAttributeStamp) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var b strings.Builder

	b.WriteString(runID)
	b.WriteString(taxonID)

	for _, k := range keys {
		stamp := attrs[k]
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(stamp.Method)
		b.WriteByte(':')
		b.WriteString(stamp.Source)
		b.WriteByte(';')
	}

	return hashSHA256(b.String())
}

// UpdateAttributeStamp carries the minimal per-attribute fields that
// distinguish one queued patch from another, without importing the taxonomy
// package's full AttributeRecord (keeping this package free of domain
// dependencies, as the teacher's canonicalization package was).
type UpdateAttributeStamp struct {
	Method string
	Source string
}

// GenerateLineagePathDigest generates a stable identifier for a lineage path
// (root to tip, inclusive). Nothing in this repository outside its tests
// calls it.
func GenerateLineagePathDigest(taxonIDs []string, depth int) string {
	return hashSHA256(strings.Join(taxonIDs, "/") + ":" + strconv.Itoa(depth))
}

// hashSHA256 computes the SHA256 hash of the input string.
func hashSHA256(input string) string {
	hash := sha256.Sum256([]byte(input))

	return hex.EncodeToString(hash[:])
}
