// Package kafka publishes dedup decisions to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/venue-dedup/internal/config"
	"github.com/couchcryptid/venue-dedup/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces decision messages to a Kafka topic.
// It implements search.DecisionPublisher.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured decision topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaDecisionTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishDecisions serializes and publishes one message per decision in a
// single WriteMessages call. Keys are external ids, so every decision about
// the same provider venue lands on the same partition.
func (w *Writer) PublishDecisions(ctx context.Context, decisions []domain.Decision) error {
	if len(decisions) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(decisions))
	for i := range decisions {
		msg, err := serializeToMessage(decisions[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d decisions: %w", len(msgs), err)
	}
	w.logger.Debug("decisions published", "count", len(msgs), "session_id", decisions[0].SessionID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Decision into a Kafka message.
func serializeToMessage(d domain.Decision) (kafkago.Message, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize decision: %w", err)
	}
	key := d.ExternalID
	if key == "" {
		key = d.Candidate.ID
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "status", Value: []byte(d.Status)},
			{Key: "provider", Value: []byte(d.Candidate.ProviderID)},
			{Key: "decided_at", Value: []byte(d.DecidedAt.Format(time.RFC3339))},
		},
	}, nil
}
