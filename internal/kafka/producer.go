package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"subscription-report-service/internal/logging"
)

// CorrelationIDHeader is the transport header carrying the correlation id, so
// consumers recover it without coupling to the payload schema.
const CorrelationIDHeader = "X-Correlation-Id"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Channel publishes JSON payloads to one topic. Each alert class gets its own
// Channel so delivery settings can differ per notification class; both
// default to acks from all replicas.
type Channel struct {
	topic  string
	writer messageWriter
	logger *logging.Logger
}

// NewChannel builds a Channel for the given topic. writeAttempts is the
// broker-side write retry count, configured per notification class.
func NewChannel(brokers []string, topic string, writeAttempts int, logger *logging.Logger) *Channel {
	return &Channel{
		topic: topic,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  writeAttempts,
		},
		logger: logger,
	}
}

// Publish serializes the payload and sends it with the correlation id as a
// transport header. An absent correlation id sends no header.
func (c *Channel) Publish(ctx context.Context, payload interface{}, correlationID string) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for topic %s: %w", c.topic, err)
	}
	return c.Forward(ctx, value, correlationID)
}

// Forward sends pre-encoded bytes as-is. The dead-letter path depends on
// this: a poisoned payload must reach the topic byte-identical, never
// re-encoded or repaired.
func (c *Channel) Forward(ctx context.Context, value []byte, correlationID string) error {
	msg := kafka.Message{Value: value}
	if correlationID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{
			Key:   CorrelationIDHeader,
			Value: []byte(correlationID),
		})
	}

	if err := c.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", c.topic, err)
	}
	c.logger.WithCorrelation(correlationID).Debugf("Published message to topic %s", c.topic)
	return nil
}

// Close flushes and closes the underlying writer.
func (c *Channel) Close() error {
	return c.writer.Close()
}
