package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/segmentio/kafka-go"

	"subscription-report-service/internal/config"
	"subscription-report-service/internal/logging"
	"subscription-report-service/internal/models"
)

// DeadLetterConsumer drains the upselling dead-letter topic. It only logs the
// terminal alert; dead-lettered messages are inspected manually, never
// auto-retried.
type DeadLetterConsumer struct {
	reader messageReader
	logger *logging.Logger
	topic  string
	cancel context.CancelFunc
}

// NewDeadLetterConsumer builds the consumer for <upsell topic><suffix>.
func NewDeadLetterConsumer(cfg config.Config, logger *logging.Logger) *DeadLetterConsumer {
	topic := cfg.Kafka.UpsellTopic + cfg.Kafka.DeadLetterSuffix
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Kafka.Brokers,
		Topic:       topic,
		GroupID:     cfg.Kafka.GroupID + "-dlt-consumer-group",
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return &DeadLetterConsumer{reader: reader, logger: logger, topic: topic}
}

// Start runs the consume loop until Close is called.
func (c *DeadLetterConsumer) Start(wg *sync.WaitGroup) {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Infof("Dead-letter consumer started on topic %s", c.topic)
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
					return
				}
				c.logger.Errorf("Fetch message failed: %v", err)
				continue
			}

			c.logMessage(msg)

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				c.logger.Errorf("Commit offset %d failed: %v", msg.Offset, err)
			}
		}
	}()
}

func (c *DeadLetterConsumer) logMessage(msg kafka.Message) {
	correlationID := headerValue(msg, CorrelationIDHeader)
	customer := "unknown"
	var alert models.UpsellAlert
	if err := json.Unmarshal(msg.Value, &alert); err == nil && alert.CustomerID != "" {
		customer = alert.CustomerID
	}
	c.logger.WithCorrelation(correlationID).
		Warnf("ATTENTION: message in %s at offset %d, it was impossible to send the upselling opportunity email for customer %s",
			c.topic, msg.Offset, customer)
}

// Close stops the consume loop and releases the reader.
func (c *DeadLetterConsumer) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	if err := c.reader.Close(); err != nil {
		c.logger.Errorf("Reader close failed: %v", err)
	}
}
