package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/genomehubs/fillcore/internal/taxonomy"
)

// maxDepthQuery computes the depth of root's deepest descendant relative to
// root (its node_depth minus root's node_depth; spec §6 query 1,
// "max-depth-under-root"), walking the subtree via a
// recursive CTE rather than materialising lineage arrays.
const maxDepthQuery = `
WITH RECURSIVE subtree AS (
	SELECT taxon_id, node_depth FROM nodes WHERE taxon_id = $1
	UNION ALL
	SELECT n.taxon_id, n.node_depth
	FROM nodes n JOIN subtree s ON n.parent_id = s.taxon_id
)
SELECT COALESCE(MAX(node_depth), (SELECT node_depth FROM nodes WHERE taxon_id = $1)) - (SELECT node_depth FROM nodes WHERE taxon_id = $1)
FROM subtree
`

// nodesAtDepthQuery streams every node in root's subtree at the given
// relative depth (spec §6 query 2, "nodes-at-root-depth").
const nodesAtDepthQuery = `
WITH RECURSIVE subtree AS (
	SELECT taxon_id, parent_id, node_depth FROM nodes WHERE taxon_id = $1
	UNION ALL
	SELECT n.taxon_id, n.parent_id, n.node_depth
	FROM nodes n JOIN subtree s ON n.parent_id = s.taxon_id
)
SELECT n.taxon_id, n.parent_id, n.node_depth, n.lineage, COALESCE(a.attributes, '[]'::jsonb)
FROM subtree s
JOIN nodes n ON n.taxon_id = s.taxon_id
LEFT JOIN node_attributes a ON a.taxon_id = n.taxon_id
WHERE n.node_depth = (SELECT node_depth FROM nodes WHERE taxon_id = $1) + $2
ORDER BY n.taxon_id
LIMIT $3 OFFSET $4
`

// singleNodeQuery fetches exactly one node by id (spec §6 query 3, used at depth 0).
const singleNodeQuery = `
SELECT n.taxon_id, n.parent_id, n.node_depth, n.lineage, COALESCE(a.attributes, '[]'::jsonb)
FROM nodes n
LEFT JOIN node_attributes a ON a.taxon_id = n.taxon_id
WHERE n.taxon_id = $1
`

// descendantsMissingQuery streams root's descendants (excluding root) that
// lack at least one of the given attribute keys (spec §6 query 4,
// "descendants-missing-attribute", generalized to a key set so the downward
// driver can ask for an entire propagable set in one pass).
const descendantsMissingQuery = `
WITH RECURSIVE subtree AS (
	SELECT taxon_id, parent_id, node_depth FROM nodes WHERE parent_id = $1
	UNION ALL
	SELECT n.taxon_id, n.parent_id, n.node_depth
	FROM nodes n JOIN subtree s ON n.parent_id = s.taxon_id
)
SELECT n.taxon_id, n.parent_id, n.node_depth, n.lineage, COALESCE(a.attributes, '[]'::jsonb)
FROM subtree s
JOIN nodes n ON n.taxon_id = s.taxon_id
LEFT JOIN node_attributes a ON a.taxon_id = n.taxon_id
WHERE EXISTS (
	SELECT 1 FROM unnest($2::text[]) AS wanted(key)
	WHERE NOT EXISTS (
		SELECT 1 FROM jsonb_array_elements(COALESCE(a.attributes, '[]'::jsonb)) elem
		WHERE elem->>'key' = wanted.key
	)
)
ORDER BY n.taxon_id
LIMIT $3 OFFSET $4
`

// PostgresStore implements Store (spec component E) over a pooled Postgres
// connection, publishing write-backs to a Kafka update queue instead of
// writing synchronously (spec §1's "updates are written back asynchronously").
type PostgresStore struct {
	conn      *Connection
	table     *taxonomy.TypeTable
	publisher *KafkaPublisher
	limiter   *fetchLimiter
	pageSize  int
	logger    *slog.Logger
	runID     string
}

// NewPostgresStore builds a Store backed by conn, encoding/decoding
// attributes against table and publishing bulk updates through publisher.
func NewPostgresStore(
	conn *Connection,
	table *taxonomy.TypeTable,
	publisher *KafkaPublisher,
	cfg *Config,
	runID string,
	logger *slog.Logger,
) *PostgresStore {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &PostgresStore{
		conn:      conn,
		table:     table,
		publisher: publisher,
		limiter:   newFetchLimiter(cfg.FetchRPS, cfg.FetchBurst),
		pageSize:  pageSize,
		logger:    logger,
		runID:     runID,
	}
}

// MaxDepthUnder implements Store.
func (s *PostgresStore) MaxDepthUnder(ctx context.Context, root string) (int, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	var depth sql.NullInt64

	if err := s.conn.QueryRowContext(ctx, maxDepthQuery, root).Scan(&depth); err != nil {
		return 0, fmt.Errorf("%w: max depth under %s: %w", ErrBackendUnavailable, root, err)
	}

	if !depth.Valid {
		return 0, fmt.Errorf("%w: %s", ErrRootNotFound, root)
	}

	return int(depth.Int64), nil
}

// StreamNodesAtDepth implements Store.
func (s *PostgresStore) StreamNodesAtDepth(
	ctx context.Context,
	root string,
	depth int,
	out chan<- *taxonomy.Node,
) error {
	defer close(out)

	if depth == 0 {
		return s.streamSingleNode(ctx, root, out)
	}

	offset := 0

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
		}

		rows, err := s.conn.QueryContext(ctx, nodesAtDepthQuery, root, depth, s.pageSize, offset)
		if err != nil {
			return fmt.Errorf("%w: nodes at depth %d under %s: %w", ErrBackendUnavailable, depth, root, err)
		}

		n, err := s.emitRows(ctx, rows, out)
		if err != nil {
			return err
		}

		if n < s.pageSize {
			return nil
		}

		offset += s.pageSize
	}
}

func (s *PostgresStore) streamSingleNode(ctx context.Context, root string, out chan<- *taxonomy.Node) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	row := s.conn.QueryRowContext(ctx, singleNodeQuery, root)

	node, err := s.scanNode(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrRootNotFound, root)
	}

	if err != nil {
		return err
	}

	select {
	case out <- node:
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

// StreamDescendantsMissing implements Store.
func (s *PostgresStore) StreamDescendantsMissing(
	ctx context.Context,
	root string,
	keys []string,
	out chan<- *taxonomy.Node,
) error {
	defer close(out)

	offset := 0

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
		}

		rows, err := s.conn.QueryContext(ctx, descendantsMissingQuery, root, pqStringArray(keys), s.pageSize, offset)
		if err != nil {
			return fmt.Errorf("%w: descendants missing attributes under %s: %w", ErrBackendUnavailable, root, err)
		}

		n, err := s.emitRows(ctx, rows, out)
		if err != nil {
			return err
		}

		if n < s.pageSize {
			return nil
		}

		offset += s.pageSize
	}
}

// BulkUpdate implements Store: publishes patched nodes to the Kafka update
// queue rather than writing them synchronously (spec §4.E).
func (s *PostgresStore) BulkUpdate(ctx context.Context, updates []Update) error {
	if len(updates) == 0 {
		return nil
	}

	if err := s.publisher.Publish(ctx, s.runID, updates, s.table); err != nil {
		return fmt.Errorf("%w: publishing %d updates: %w", ErrBackendUnavailable, len(updates), err)
	}

	return nil
}

// HealthCheck implements Store.
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	if err := s.conn.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	return nil
}

func (s *PostgresStore) emitRows(ctx context.Context, rows *sql.Rows, out chan<- *taxonomy.Node) (int, error) {
	defer rows.Close()

	count := 0

	for rows.Next() {
		// Count every row read, skipped or not, so a skipped row on a full
		// page does not look like the last page to the caller.
		count++

		node, err := s.scanNode(rows.Scan)
		if err != nil {
			s.logger.Warn("skipping malformed node", slog.String("error", err.Error()))

			continue
		}

		select {
		case out <- node:
		case <-ctx.Done():
			return count, ctx.Err()
		}
	}

	if err := rows.Err(); err != nil {
		return count, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	return count, nil
}

func (s *PostgresStore) scanNode(scan func(dest ...any) error) (*taxonomy.Node, error) {
	var (
		w          wireNode
		lineageRaw []byte
	)

	if err := scan(&w.TaxonID, &w.Parent, &w.NodeDepth, &lineageRaw, &w.Attributes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", ErrMalformedNode, err)
	}

	if w.TaxonID == "" {
		return nil, fmt.Errorf("%w: empty taxon_id", ErrMalformedNode)
	}

	if len(lineageRaw) > 0 {
		if err := json.Unmarshal(lineageRaw, &w.Lineage); err != nil {
			return nil, fmt.Errorf("%w: lineage: %w", ErrMalformedNode, err)
		}
	}

	node, err := nodeFromWire(w, s.table)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedNode, err)
	}

	return node, nil
}
