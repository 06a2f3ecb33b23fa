package traverse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/genomehubs/fillcore/internal/backend"
	"github.com/genomehubs/fillcore/internal/taxonomy"
)

// Downward implements spec §4.G: walks depth levels from the one above the
// deepest up to root itself, and for every node holding a propagable
// attribute, stamps a copy of that attribute's summary onto descendants that
// lack it. Deeper ancestors stamp first, so the nearest ancestor's value wins.
func Downward(
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

	for d := depth - 1; d >= 0; d-- {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("downward pass cancelled at depth %d: %w", d, err)
		}

		nodeCount, updateCount, err := downwardLevel(ctx, store, table, root, d, logger)
		if err != nil {
			return err
		}

		logger.Info("downward level complete",
			slog.String("run_id", runID),
			slog.Int("depth", d),
			slog.Int("nodes", nodeCount),
			slog.Int("updates", updateCount),
		)
	}

	return nil
}

func downwardLevel(
	ctx context.Context,
	store backend.Store,
	table *taxonomy.TypeTable,
	root string,
	depth int,
	logger *slog.Logger,
) (nodeCount, updateCount int, err error) {
	nodes, errc := fetchLevel(ctx, func(ctx context.Context, out chan<- *taxonomy.Node) error {
		return store.StreamNodesAtDepth(ctx, root, depth, out)
	})

	for n := range nodes {
		nodeCount++

		fillAttrs := downwardFillAttrs(n, table)
		if len(fillAttrs) == 0 {
			continue
		}

		stamped, err := downwardStampDescendants(ctx, store, table, n, fillAttrs, logger)
		if err != nil {
			return nodeCount, updateCount, err
		}

		updateCount += stamped
	}

	if err := <-errc; err != nil {
		return nodeCount, updateCount, fmt.Errorf("%w: streaming depth %d under %s: %w", backend.ErrBackendUnavailable, depth, root, err)
	}

	return nodeCount, updateCount, nil
}

// downwardFillAttrs collects n's attributes whose key participates in
// downward propagation (spec §4.G step 2.a).
func downwardFillAttrs(n *taxonomy.Node, table *taxonomy.TypeTable) []*taxonomy.AttributeRecord {
	downward := table.DownwardKeys()

	var fillAttrs []*taxonomy.AttributeRecord

	for _, a := range n.Attributes {
		if _, ok := downward[a.Key]; ok {
			fillAttrs = append(fillAttrs, a)
		}
	}

	return fillAttrs
}

// downwardStampDescendants streams n's descendants missing at least one of
// fillAttrs' keys and stamps each one that's actually missing (spec §4.G
// step 2.b-c), returning the number of descendants updated.
func downwardStampDescendants(
	ctx context.Context,
	store backend.Store,
	table *taxonomy.TypeTable,
	n *taxonomy.Node,
	fillAttrs []*taxonomy.AttributeRecord,
	logger *slog.Logger,
) (int, error) {
	keys := make([]string, len(fillAttrs))
	for i, a := range fillAttrs {
		keys[i] = a.Key
	}

	descendants, errc := fetchLevel(ctx, func(ctx context.Context, out chan<- *taxonomy.Node) error {
		return store.StreamDescendantsMissing(ctx, n.TaxonID, keys, out)
	})

	var updates []backend.Update

	for d := range descendants {
		changed := false

		for _, a := range fillAttrs {
			if _, ok := d.Attribute(a.Key); ok {
				continue
			}

			meta, ok := table.Lookup(a.Key)
			if !ok {
				continue
			}

			stamp := ancestorStamp(a, meta)
			if stamp == nil {
				continue
			}

			d.UpsertAttribute(stamp)
			changed = true
		}

		if changed {
			updates = append(updates, backend.Update{TaxonID: d.TaxonID, Node: d})
		}
	}

	if err := <-errc; err != nil {
		return 0, fmt.Errorf("%w: streaming descendants missing attributes under %s: %w", backend.ErrBackendUnavailable, n.TaxonID, err)
	}

	if len(updates) == 0 {
		return 0, nil
	}

	if err := store.BulkUpdate(ctx, updates); err != nil {
		return 0, fmt.Errorf("%w: bulk update under %s: %w", backend.ErrBackendUnavailable, n.TaxonID, err)
	}

	logger.Debug("stamped ancestor attributes", slog.String("ancestor", n.TaxonID), slog.Int("descendants", len(updates)))

	return len(updates), nil
}

// ancestorStamp builds the copy summary spec §4.G describes for propagating
// attribute a down to a descendant lacking it. Returns nil when meta's
// traverse summary is "list" (§9 Open Question: list has no scalar value to
// copy through, so the stamp is skipped rather than recorded without one).
func ancestorStamp(a *taxonomy.AttributeRecord, meta taxonomy.AttributeType) *taxonomy.AttributeRecord {
	if meta.Traverse == taxonomy.SummaryList {
		return nil
	}

	stamp := &taxonomy.AttributeRecord{
		Key:               a.Key,
		CanonicalValue:    a.CanonicalValue,
		Count:             a.Count,
		AggregationMethod: taxonomy.NormaliseMethod(meta.Traverse),
		AggregationSource: taxonomy.SourceAncestor,
	}

	for _, s := range meta.Summary {
		switch s {
		case taxonomy.SummaryMin:
			stamp.Min = a.Min
		case taxonomy.SummaryMax:
			stamp.Max = a.Max
		}
	}

	return stamp
}
