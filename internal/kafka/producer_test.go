package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	segkafka "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subscription-report-service/internal/logging"
	"subscription-report-service/internal/models"
)

func testLogger() *logging.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &logging.Logger{Logger: l}
}

type fakeWriter struct {
	messages []segkafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...segkafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testChannel(w messageWriter) *Channel {
	return &Channel{topic: "expired-services", writer: w, logger: testLogger()}
}

func TestChannel_PublishAttachesCorrelationHeader(t *testing.T) {
	w := &fakeWriter{}
	c := testChannel(w)

	alert := models.ExpiredServicesAlert{CustomerID: "C1", Count: 6}
	require.NoError(t, c.Publish(context.Background(), alert, "corr-9"))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]

	var got models.ExpiredServicesAlert
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, alert, got)

	require.Len(t, msg.Headers, 1)
	assert.Equal(t, CorrelationIDHeader, msg.Headers[0].Key)
	assert.Equal(t, "corr-9", string(msg.Headers[0].Value))
}

func TestChannel_PublishWithoutCorrelationOmitsHeader(t *testing.T) {
	w := &fakeWriter{}
	c := testChannel(w)

	require.NoError(t, c.Publish(context.Background(), models.UpsellAlert{CustomerID: "C1"}, ""))

	require.Len(t, w.messages, 1)
	assert.Empty(t, w.messages[0].Headers)
}

func TestChannel_PublishWrapsBrokerError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	c := testChannel(&fakeWriter{err: cause})

	err := c.Publish(context.Background(), models.UpsellAlert{CustomerID: "C1"}, "corr")
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "expired-services")
}

func TestChannel_ForwardSendsBytesUnmodified(t *testing.T) {
	w := &fakeWriter{}
	c := testChannel(w)

	// not valid JSON on purpose: the dead-letter path forwards poisoned
	// payloads without re-encoding them
	require.NoError(t, c.Forward(context.Background(), []byte("not-json"), "corr-3"))

	require.Len(t, w.messages, 1)
	assert.Equal(t, []byte("not-json"), w.messages[0].Value)
	require.Len(t, w.messages[0].Headers, 1)
	assert.Equal(t, "corr-3", string(w.messages[0].Headers[0].Value))
}

func TestNewChannel_WriteAttemptsPerChannel(t *testing.T) {
	c := NewChannel([]string{"localhost:9092"}, "expired-services", 5, testLogger())

	writer, ok := c.writer.(*segkafka.Writer)
	require.True(t, ok)
	assert.Equal(t, 5, writer.MaxAttempts)
	assert.Equal(t, segkafka.RequireAll, writer.RequiredAcks)
}

func TestChannel_Close(t *testing.T) {
	w := &fakeWriter{}
	c := testChannel(w)
	require.NoError(t, c.Close())
	assert.True(t, w.closed)
}
