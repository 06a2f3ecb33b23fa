package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/genomehubs/fillcore/internal/canonicalization"
	"github.com/genomehubs/fillcore/internal/taxonomy"
)

const writerBatchTimeout = 50 * time.Millisecond

// updateMessage is the wire shape of one queued update (spec §4.E). Digest
// is computed over the run, taxon and attribute set so the consumer can
// de-duplicate redelivered messages idempotently.
type updateMessage struct {
	RunID      string          `json:"run_id"`
	TaxonID    string          `json:"taxon_id"`
	Digest     string          `json:"digest"`
	Attributes json.RawMessage `json:"attributes"`
}

// KafkaPublisher writes patched nodes to the update queue topic rather than
// applying them synchronously (spec §1, §4.E).
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher opens a writer against brokers/topic. Required
// acknowledgement is leader-only (kafka.RequireOne): the queue is a staging
// area the Applier drains, not a durability boundary of record.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: writerBatchTimeout,
		},
	}
}

// Publish encodes each update and writes it keyed by taxon_id so replayed
// updates for the same node land on the same partition in order.
func (p *KafkaPublisher) Publish(
	ctx context.Context,
	runID string,
	updates []Update,
	table *taxonomy.TypeTable,
) error {
	msgs := make([]kafka.Message, 0, len(updates))

	for _, u := range updates {
		body, err := encodeAttributes(u.Node.Attributes, table)
		if err != nil {
			return fmt.Errorf("encoding update for %s: %w", u.TaxonID, err)
		}

		stamps := make(map[string]canonicalization.UpdateAttributeStamp, len(u.Node.Attributes))
		for _, a := range u.Node.Attributes {
			stamps[a.Key] = canonicalization.UpdateAttributeStamp{
				Method: string(a.AggregationMethod),
				Source: string(a.AggregationSource),
			}
		}

		msg := updateMessage{
			RunID:      runID,
			TaxonID:    u.TaxonID,
			Digest:     canonicalization.GenerateUpdateDigest(runID, u.TaxonID, stamps),
			Attributes: body,
		}

		value, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshaling update message for %s: %w", u.TaxonID, err)
		}

		msgs = append(msgs, kafka.Message{
			Key:   []byte(u.TaxonID),
			Value: value,
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("writing %d update messages: %w", len(msgs), err)
	}

	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("closing kafka writer: %w", err)
	}

	return nil
}
