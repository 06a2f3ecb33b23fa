package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// applyUpdateStmt writes a node's full replacement attribute list (spec
// §4.E: "the driver always submits the node's full replacement attribute
// list"). ON CONFLICT keeps Applier idempotent against reconnect-driven
// redelivery within the same digest.
const applyUpdateStmt = `
INSERT INTO node_attributes (taxon_id, attributes)
VALUES ($1, $2)
ON CONFLICT (taxon_id) DO UPDATE SET attributes = EXCLUDED.attributes
`

// recordDigestStmt stages a digest so Applier can detect and skip an
// already-applied message redelivered after a consumer restart.
const recordDigestStmt = `
INSERT INTO fill_update_queue (digest, taxon_id, applied_at)
VALUES ($1, $2, now())
ON CONFLICT (digest) DO NOTHING
RETURNING digest
`

// Applier drains the Kafka update queue and applies patched attribute sets
// to node_attributes (spec component E's asynchronous write-back path).
type Applier struct {
	reader *kafka.Reader
	conn   *Connection
	logger *slog.Logger
}

// NewApplier builds an Applier consuming topic as group groupID.
func NewApplier(brokers []string, topic, groupID string, conn *Connection, logger *slog.Logger) *Applier {
	return &Applier{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: groupID,
		}),
		conn:   conn,
		logger: logger,
	}
}

// Run consumes messages until ctx is cancelled or a fatal backend error occurs.
func (a *Applier) Run(ctx context.Context) error {
	for {
		msg, err := a.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}

			return fmt.Errorf("%w: fetching update message: %w", ErrBackendUnavailable, err)
		}

		if err := a.apply(ctx, msg); err != nil {
			if !errors.Is(err, ErrMalformedNode) {
				// A transient backend error leaves the message uncommitted so a
				// restarted Applier redelivers and retries it.
				return fmt.Errorf("applying update at offset %d: %w", msg.Offset, err)
			}

			a.logger.Error("discarding malformed update message",
				slog.String("error", err.Error()),
				slog.Int64("offset", msg.Offset),
			)
		}

		if err := a.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("%w: committing offset: %w", ErrBackendUnavailable, err)
		}
	}
}

func (a *Applier) apply(ctx context.Context, msg kafka.Message) error {
	var update updateMessage

	if err := json.Unmarshal(msg.Value, &update); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedNode, err)
	}

	if update.TaxonID == "" {
		return fmt.Errorf("%w: empty taxon_id", ErrMalformedNode)
	}

	// Staging the digest and writing the attributes share one transaction, so
	// a failed write also un-stages the digest and a redelivery retries it.
	tx, err := a.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning update transaction: %w", ErrBackendUnavailable, err)
	}

	defer func() { _ = tx.Rollback() }()

	var digest string

	err = tx.QueryRowContext(ctx, recordDigestStmt, update.Digest, update.TaxonID).Scan(&digest)
	if errors.Is(err, sql.ErrNoRows) {
		// Digest already staged: this message was redelivered, skip the write.
		return nil
	}

	if err != nil {
		return fmt.Errorf("%w: staging digest: %w", ErrBackendUnavailable, err)
	}

	if _, err := tx.ExecContext(ctx, applyUpdateStmt, update.TaxonID, []byte(update.Attributes)); err != nil {
		return fmt.Errorf("%w: applying update for %s: %w", ErrBackendUnavailable, update.TaxonID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing update for %s: %w", ErrBackendUnavailable, update.TaxonID, err)
	}

	return nil
}

// Close closes the underlying Kafka reader.
func (a *Applier) Close() error {
	if err := a.reader.Close(); err != nil {
		return fmt.Errorf("closing kafka reader: %w", err)
	}

	return nil
}
