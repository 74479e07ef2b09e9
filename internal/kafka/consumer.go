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
	"subscription-report-service/internal/notification"
)

// Mailer performs the upsell side effect. It is the single fallible operation
// per message.
type Mailer interface {
	SendUpsell(ctx context.Context, alert models.UpsellAlert) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// UpsellConsumer consumes the upselling topic and triggers the email side
// effect. This is the broker-side retry domain: its backoff is much longer
// than the producer's, tuned for external mail-server outages. A message that
// exhausts all attempts is routed unmodified to the dead-letter topic.
// Offsets are committed per message, so one poisoned message cannot stall or
// duplicate unrelated messages. Delivery is at least once: the email may be
// re-sent on redelivery.
type UpsellConsumer struct {
	reader     messageReader
	deadLetter *Channel
	mailer     Mailer
	runner     notification.Runner
	logger     *logging.Logger
	topic      string
	cancel     context.CancelFunc
}

// NewUpsellConsumer builds the consumer and its dead-letter channel.
func NewUpsellConsumer(cfg config.Config, mailer Mailer, logger *logging.Logger) *UpsellConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Kafka.Brokers,
		Topic:       cfg.Kafka.UpsellTopic,
		GroupID:     cfg.Kafka.GroupID,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return &UpsellConsumer{
		reader:     reader,
		deadLetter: NewChannel(cfg.Kafka.Brokers, cfg.Kafka.UpsellTopic+cfg.Kafka.DeadLetterSuffix, cfg.Kafka.UpsellWriteAttempts, logger),
		mailer:     mailer,
		runner: notification.Runner{
			Policy: notification.Policy{
				MaxAttempts:  cfg.ConsumerRetry.MaxAttempts,
				InitialDelay: cfg.ConsumerRetry.InitialDelay,
				Multiplier:   cfg.ConsumerRetry.Multiplier,
			},
		},
		logger: logger,
		topic:  cfg.Kafka.UpsellTopic,
	}
}

// Start runs the consume loop until Close is called.
func (c *UpsellConsumer) Start(wg *sync.WaitGroup) {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Infof("Upselling consumer started on topic %s", c.topic)
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
					return
				}
				c.logger.Errorf("Fetch message failed: %v", err)
				continue
			}

			c.process(ctx, msg)

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				c.logger.Errorf("Commit offset %d failed: %v", msg.Offset, err)
			}
		}
	}()
}

func (c *UpsellConsumer) process(ctx context.Context, msg kafka.Message) {
	correlationID := headerValue(msg, CorrelationIDHeader)
	log := c.logger.WithCorrelation(correlationID)

	var alert models.UpsellAlert
	if err := json.Unmarshal(msg.Value, &alert); err != nil {
		log.Errorf("Unmarshal message at offset %d failed, dead-lettering: %v", msg.Offset, err)
		c.toDeadLetter(ctx, msg, correlationID)
		return
	}

	log.Infof("Received upselling message for customer %s at offset %d", alert.CustomerID, msg.Offset)

	err := c.runner.Run(ctx, func(attempt int) error {
		if err := c.mailer.SendUpsell(ctx, alert); err != nil {
			log.Errorf("Email attempt %d/%d failed for customer %s: %v",
				attempt, c.runner.Policy.MaxAttempts, alert.CustomerID, err)
			return err
		}
		return nil
	})
	if err != nil {
		c.toDeadLetter(ctx, msg, correlationID)
	}
}

// toDeadLetter forwards the message unmodified, preserving the correlation
// header.
func (c *UpsellConsumer) toDeadLetter(ctx context.Context, msg kafka.Message, correlationID string) {
	if err := c.deadLetter.Forward(ctx, msg.Value, correlationID); err != nil {
		c.logger.WithCorrelation(correlationID).Errorf("Dead-letter publish for offset %d failed: %v", msg.Offset, err)
	}
}

// Close stops the consume loop and releases the reader and dead-letter
// writer.
func (c *UpsellConsumer) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	if err := c.reader.Close(); err != nil {
		c.logger.Errorf("Reader close failed: %v", err)
	}
	if err := c.deadLetter.Close(); err != nil {
		c.logger.Errorf("Dead-letter writer close failed: %v", err)
	}
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
