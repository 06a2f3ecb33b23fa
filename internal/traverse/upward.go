package traverse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/genomehubs/fillcore/internal/backend"
	"github.com/genomehubs/fillcore/internal/taxonomy"
)

// Upward implements spec §4.F: walks depth levels from the deepest
// descendant of root up to root itself, merging each node's own direct
// summary with any contributions its children already deposited, and
// propagating the result into its parent's accumulator.
func Upward(
	ctx context.Context,
	store backend.Store,
	table *taxonomy.TypeTable,
	root string,
	runID string,
	logger *slog.Logger,
) error {
	depth, err := store.MaxDepthUnder(ctx, root)
	if err != nil {
		return fmt.Errorf("%w: %w", backend.ErrBackendUnavailable, err)
	}

	acc := taxonomy.NewAccumulator()

	for d := depth; d >= 0; d-- {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("upward pass cancelled at depth %d: %w", d, err)
		}

		nodeCount, updateCount, err := upwardLevel(ctx, store, table, root, d, acc, logger)
		if err != nil {
			return err
		}

		logger.Info("upward level complete",
			slog.String("run_id", runID),
			slog.Int("depth", d),
			slog.Int("nodes", nodeCount),
			slog.Int("updates", updateCount),
		)
	}

	return nil
}

func upwardLevel(
	ctx context.Context,
	store backend.Store,
	table *taxonomy.TypeTable,
	root string,
	depth int,
	acc *taxonomy.Accumulator,
	logger *slog.Logger,
) (nodeCount, updateCount int, err error) {
	nodes, errc := fetchLevel(ctx, func(ctx context.Context, out chan<- *taxonomy.Node) error {
		return store.StreamNodesAtDepth(ctx, root, depth, out)
	})

	var updates []backend.Update

	for n := range nodes {
		nodeCount++

		if upwardProcessNode(n, table, acc, logger) {
			updates = append(updates, backend.Update{TaxonID: n.TaxonID, Node: n})
		}
	}

	if err := <-errc; err != nil {
		return nodeCount, updateCount, fmt.Errorf("%w: streaming depth %d under %s: %w", backend.ErrBackendUnavailable, depth, root, err)
	}

	if len(updates) == 0 {
		return nodeCount, 0, nil
	}

	if err := store.BulkUpdate(ctx, updates); err != nil {
		return nodeCount, 0, fmt.Errorf("%w: bulk update at depth %d: %w", backend.ErrBackendUnavailable, depth, err)
	}

	return nodeCount, len(updates), nil
}

// attrSnapshot captures the fields that determine whether re-summarising an
// attribute actually changed its stored state, so that re-running upward on
// an unchanged tree (spec §8 Scenario 3) emits no redundant bulk updates even
// though every node with raw observations re-derives its summary every run.
type attrSnapshot struct {
	CanonicalValue    taxonomy.Value
	Count             int
	AggregationMethod taxonomy.SummaryName
	AggregationSource taxonomy.AggregationSource
	Min               taxonomy.Value
	Max               taxonomy.Value
}

func snapshotAttr(a *taxonomy.AttributeRecord) attrSnapshot {
	return attrSnapshot{
		CanonicalValue:    a.CanonicalValue,
		Count:             a.Count,
		AggregationMethod: a.AggregationMethod,
		AggregationSource: a.AggregationSource,
		Min:               a.Min,
		Max:               a.Max,
	}
}

func (s attrSnapshot) changedFrom(a *taxonomy.AttributeRecord) bool {
	return !valuesEqual(s.CanonicalValue, a.CanonicalValue) ||
		s.Count != a.Count ||
		s.AggregationMethod != a.AggregationMethod ||
		s.AggregationSource != a.AggregationSource ||
		!valuesEqual(s.Min, a.Min) ||
		!valuesEqual(s.Max, a.Max)
}

// valuesEqual compares two taxonomy.Value instances, including the ListValue
// pseudo-value whose underlying slice isn't comparable via ==. A long and a
// double compare by number: the store reads an integral double back as a
// long, and that round trip is not a change.
func valuesEqual(a, b taxonomy.Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	la, aIsList := a.(taxonomy.ListValue)
	lb, bIsList := b.(taxonomy.ListValue)

	if aIsList || bIsList {
		if !aIsList || !bIsList || len(la) != len(lb) {
			return false
		}

		for i := range la {
			if !valuesEqual(la[i], lb[i]) {
				return false
			}
		}

		return true
	}

	switch av := a.(type) {
	case taxonomy.LongValue:
		if bv, ok := b.(taxonomy.DoubleValue); ok {
			return float64(av) == float64(bv)
		}
	case taxonomy.DoubleValue:
		if bv, ok := b.(taxonomy.LongValue); ok {
			return float64(av) == float64(bv)
		}
	}

	return a == b
}

// upwardProcessNode runs spec §4.F step 3.a against a single node: direct
// summarisation of its own attributes, then folding in any descendant
// accumulator contributions, returning whether the node's stored attributes
// actually changed. A node's raw observations persist across runs (spec §4
// state machine note on per-run stability refers to provenance transitions,
// not to discarding the inputs), so every run re-derives the same summary
// for an untouched node and still contributes its traverse value upward —
// only the change in stored state gates whether a bulk update is emitted.
func upwardProcessNode(
	n *taxonomy.Node,
	table *taxonomy.TypeTable,
	acc *taxonomy.Accumulator,
	logger *slog.Logger,
) bool {
	changed := false

	for _, a := range n.Attributes {
		meta, ok := table.Lookup(a.Key)
		if !ok || !meta.ParticipatesUpward() || len(a.Values) == 0 {
			continue
		}

		before := snapshotAttr(a)

		traverseValue, carry, err := taxonomy.Summarise(a, meta, nil)
		if err != nil {
			logger.Warn("skipping attribute with invalid values",
				slog.String("taxon_id", n.TaxonID), slog.String("key", a.Key), slog.String("error", err.Error()))

			continue
		}

		if traverseValue == nil {
			continue
		}

		if before.changedFrom(a) {
			changed = true
		}

		if n.Parent != nil {
			acc.Contribute(*n.Parent, a.Key, traverseValue, carry)
		}
	}

	if !acc.Has(n.TaxonID) {
		return changed
	}

	for key, b := range acc.Drain(n.TaxonID) {
		meta, ok := table.Lookup(key)
		if !ok {
			continue
		}

		rec, existed := n.Attribute(key)
		if existed && rec.AggregationSource == taxonomy.SourceDirect {
			// Invariant: a direct record is never overwritten by a descendant one (spec §4 state machine).
			continue
		}

		var before attrSnapshot
		if existed {
			before = snapshotAttr(rec)
		}

		if !existed {
			rec = &taxonomy.AttributeRecord{Key: key}
		}

		traverseValue, carry, err := taxonomy.Summarise(rec, meta, b.Override())
		if err != nil {
			logger.Warn("skipping descendant contribution",
				slog.String("taxon_id", n.TaxonID), slog.String("key", key), slog.String("error", err.Error()))

			continue
		}

		if traverseValue == nil {
			continue
		}

		rec.AggregationSource = taxonomy.SourceDescendant
		n.UpsertAttribute(rec)

		if !existed || before.changedFrom(rec) {
			changed = true
		}

		if n.Parent != nil {
			acc.Contribute(*n.Parent, key, traverseValue, carry)
		}
	}

	return changed
}
