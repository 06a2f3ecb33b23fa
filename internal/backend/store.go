package backend

import (
	"context"
	"errors"

	"github.com/genomehubs/fillcore/internal/taxonomy"
)

// Sentinel errors for the backend adapter (spec §7's "Backend unavailable" category).
var (
	// ErrBackendUnavailable wraps any node-store or update-queue failure the
	// traversal drivers treat as fatal: the pass aborts, already-published
	// updates stand.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrMalformedNode is returned (logged, not surfaced as a pass failure)
	// when a node row cannot be scanned (e.g. a missing node_depth), has an
	// empty taxon_id, or carries a lineage or attributes payload that does
	// not decode. The lineage is not checked for the traversal root at the
	// claimed depth.
	ErrMalformedNode = errors.New("malformed node document")

	// ErrRootNotFound is a config error (spec §7): the requested traversal
	// root does not resolve to any node in the store.
	ErrRootNotFound = errors.New("traversal root not found")
)

// Update is one patched node queued for write-back (spec §4.E: "(node_id,
// patched_node) pairs").
type Update struct {
	TaxonID string
	Node    *taxonomy.Node
}

// Store is the Backend Adapter contract (spec §4.E, §6). The traversal
// drivers in internal/traverse depend on this interface, not on a concrete
// implementation, following the same Dependency Inversion pattern as the
// teacher's ingestion.Store/correlation.Store pair.
type Store interface {
	// MaxDepthUnder returns the depth of root's deepest descendant, counted
	// relative to root (0 when root has no descendants), the same relative
	// depth StreamNodesAtDepth takes.
	MaxDepthUnder(ctx context.Context, root string) (int, error)

	// StreamNodesAtDepth streams nodes at depth within root's subtree, in
	// pages of at most pageSize, into out. When depth == 0 it streams exactly
	// the record with taxon_id == root. Closes out when the level is
	// exhausted or ctx is cancelled.
	StreamNodesAtDepth(ctx context.Context, root string, depth int, out chan<- *taxonomy.Node) error

	// StreamDescendantsMissing streams descendants of root (excluding root
	// itself) that lack at least one attribute in keys, deduplicated across
	// keys.
	StreamDescendantsMissing(ctx context.Context, root string, keys []string, out chan<- *taxonomy.Node) error

	// BulkUpdate applies a batch of patched nodes. Patch semantics: the
	// driver always submits the node's full replacement attribute list.
	BulkUpdate(ctx context.Context, updates []Update) error

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error
}
