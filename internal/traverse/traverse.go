// Package traverse implements the bidirectional tree-traversal drivers (spec
// components F and G): the upward pass that fills summaries from tips to
// root, and the downward pass that stamps authoritative ancestor summaries
// onto descendants that lack their own value.
package traverse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/genomehubs/fillcore/internal/backend"
	"github.com/genomehubs/fillcore/internal/taxonomy"
)

// nodeBufferSize bounds the in-flight node channel between the backend-fetch
// goroutine and the summarisation loop, keeping a depth level's memory
// footprint independent of its row count (spec §9: "buffer minimally").
const nodeBufferSize = 256

// ErrRootNotFound is re-exported from internal/backend for callers that only
// import internal/traverse; see backend.ErrRootNotFound.
var ErrRootNotFound = backend.ErrRootNotFound

// RunOptions selects which passes a single invocation performs.
type RunOptions struct {
	Up   bool
	Down bool
}

// Both reports whether both passes were requested (spec §2: "a convenience
// 'both' implies both").
func (o RunOptions) Both() bool { return o.Up && o.Down }

// Run orchestrates the upward and downward passes per spec §2: when both are
// requested, the upward pass runs first so the downward pass propagates the
// freshest ancestral summaries. runID tags every log line and Kafka update
// message this run produces (SPEC_FULL §5's run-id provenance tagging); the
// same runID must back the Store's KafkaPublisher so update digests and log
// lines agree on which run produced them.
func Run(
	ctx context.Context,
	store backend.Store,
	table *taxonomy.TypeTable,
	root string,
	runID string,
	opts RunOptions,
	logger *slog.Logger,
) error {
	logger = logger.With(slog.String("run_id", runID), slog.String("root", root))

	if opts.Up {
		if err := Upward(ctx, store, table, root, runID, logger); err != nil {
			return fmt.Errorf("upward pass: %w", err)
		}
	}

	if opts.Down {
		if err := Downward(ctx, store, table, root, runID, logger); err != nil {
			return fmt.Errorf("downward pass: %w", err)
		}
	}

	return nil
}

// fetchLevel runs store's streaming fetch in its own goroutine and returns a
// channel of nodes plus a channel carrying the fetch's terminal error (nil on
// clean completion), so the caller can drain nodes concurrently with the
// fetch rather than buffering a whole level.
func fetchLevel(
	ctx context.Context,
	fetch func(ctx context.Context, out chan<- *taxonomy.Node) error,
) (<-chan *taxonomy.Node, <-chan error) {
	out := make(chan *taxonomy.Node, nodeBufferSize)
	errc := make(chan error, 1)

	go func() {
		errc <- fetch(ctx, out)
	}()

	return out, errc
}
