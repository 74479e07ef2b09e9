package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	segkafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subscription-report-service/internal/models"
	"subscription-report-service/internal/notification"
)

type fakeMailer struct {
	failures int
	calls    int
	sent     []models.UpsellAlert
}

func (f *fakeMailer) SendUpsell(_ context.Context, alert models.UpsellAlert) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("smtp: 421 service not available")
	}
	f.sent = append(f.sent, alert)
	return nil
}

func newTestConsumer(mailer Mailer, dlt *fakeWriter, maxAttempts int) *UpsellConsumer {
	return &UpsellConsumer{
		deadLetter: &Channel{topic: "email-upselling-service.DLT", writer: dlt, logger: testLogger()},
		mailer:     mailer,
		runner: notification.Runner{
			Policy: notification.Policy{MaxAttempts: maxAttempts, InitialDelay: time.Millisecond, Multiplier: 2},
		},
		logger: testLogger(),
		topic:  "email-upselling-service",
	}
}

func upsellMessage(t *testing.T, alert models.UpsellAlert, correlationID string) segkafka.Message {
	t.Helper()
	value, err := json.Marshal(alert)
	require.NoError(t, err)
	msg := segkafka.Message{Value: value, Offset: 7}
	if correlationID != "" {
		msg.Headers = append(msg.Headers, segkafka.Header{Key: CorrelationIDHeader, Value: []byte(correlationID)})
	}
	return msg
}

func TestUpsellConsumer_SendsEmailOnce(t *testing.T) {
	mailer := &fakeMailer{}
	dlt := &fakeWriter{}
	c := newTestConsumer(mailer, dlt, 5)

	alert := models.UpsellAlert{CustomerID: "C1", ServiceType: "cloud"}
	c.process(context.Background(), upsellMessage(t, alert, "corr-7"))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, alert, mailer.sent[0])
	assert.Empty(t, dlt.messages, "no dead-letter entry on success")
}

func TestUpsellConsumer_RetriesThenSucceeds(t *testing.T) {
	mailer := &fakeMailer{failures: 2}
	dlt := &fakeWriter{}
	c := newTestConsumer(mailer, dlt, 5)

	c.process(context.Background(), upsellMessage(t, models.UpsellAlert{CustomerID: "C1"}, "corr-7"))

	assert.Equal(t, 3, mailer.calls)
	assert.Len(t, mailer.sent, 1)
	assert.Empty(t, dlt.messages)
}

func TestUpsellConsumer_ExhaustionRoutesUnmodifiedToDeadLetter(t *testing.T) {
	mailer := &fakeMailer{failures: 100}
	dlt := &fakeWriter{}
	c := newTestConsumer(mailer, dlt, 5)

	alert := models.UpsellAlert{CustomerID: "C1", ServiceType: "cloud"}
	msg := upsellMessage(t, alert, "corr-7")
	c.process(context.Background(), msg)

	assert.Equal(t, 5, mailer.calls)
	assert.Empty(t, mailer.sent)

	require.Len(t, dlt.messages, 1)
	dead := dlt.messages[0]
	assert.Equal(t, msg.Value, dead.Value, "payload must be forwarded byte-identical")

	// correlation id survives the dead-letter hop
	require.Len(t, dead.Headers, 1)
	assert.Equal(t, CorrelationIDHeader, dead.Headers[0].Key)
	assert.Equal(t, "corr-7", string(dead.Headers[0].Value))
}

func TestUpsellConsumer_MissingCorrelationHeaderIsTolerated(t *testing.T) {
	mailer := &fakeMailer{}
	c := newTestConsumer(mailer, &fakeWriter{}, 5)

	c.process(context.Background(), upsellMessage(t, models.UpsellAlert{CustomerID: "C1"}, ""))

	assert.Len(t, mailer.sent, 1)
}

func TestUpsellConsumer_UnparseablePayloadGoesStraightToDeadLetter(t *testing.T) {
	mailer := &fakeMailer{}
	dlt := &fakeWriter{}
	c := newTestConsumer(mailer, dlt, 5)

	c.process(context.Background(), segkafka.Message{Value: []byte("not-json"), Offset: 3})

	assert.Zero(t, mailer.calls)
	require.Len(t, dlt.messages, 1)
	assert.Equal(t, "not-json", string(dlt.messages[0].Value))
}

func TestHeaderValue(t *testing.T) {
	msg := segkafka.Message{Headers: []segkafka.Header{
		{Key: "other", Value: []byte("x")},
		{Key: CorrelationIDHeader, Value: []byte("corr-1")},
	}}
	assert.Equal(t, "corr-1", headerValue(msg, CorrelationIDHeader))
	assert.Equal(t, "", headerValue(segkafka.Message{}, CorrelationIDHeader))
}
