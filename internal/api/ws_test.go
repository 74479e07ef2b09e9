package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subscription-report-service/internal/notification"
)

func dialHub(t *testing.T, hub *EventHub) *websocket.Conn {
	t.Helper()
	r := gin.New()
	r.GET("/events", hub.ServeWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	// registration happens on the server goroutine after the handshake
	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.conns) == 1
	}, time.Second, 10*time.Millisecond)
	return conn
}

func TestEventHub_BroadcastsToConnectedClient(t *testing.T) {
	hub := NewEventHub(testLogger())
	conn := dialHub(t, hub)

	hub.Publish(notification.Event{
		Type:          "delivered",
		Kind:          notification.KindUpselling,
		CorrelationID: "corr-1",
		Attempts:      2,
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var evt notification.Event
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, "delivered", evt.Type)
	assert.Equal(t, notification.KindUpselling, evt.Kind)
	assert.Equal(t, "corr-1", evt.CorrelationID)
	assert.Equal(t, 2, evt.Attempts)
}

func TestEventHub_PublishNeverBlocksOnSlowClient(t *testing.T) {
	hub := NewEventHub(testLogger())
	dialHub(t, hub) // client never reads

	done := make(chan struct{})
	go func() {
		for i := 0; i < sendBuffer*4; i++ {
			hub.Publish(notification.Event{Type: "queued", At: time.Now()})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a client that is not reading")
	}
}

func TestEventHub_PublishWithNoClients(t *testing.T) {
	hub := NewEventHub(testLogger())
	hub.Publish(notification.Event{Type: "queued"})
}
