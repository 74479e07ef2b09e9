package api

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"subscription-report-service/internal/logging"
	"subscription-report-service/internal/notification"
)

const sendBuffer = 16

// EventHub broadcasts dispatch lifecycle events to connected operator
// clients watching a batch being processed.
type EventHub struct {
	upgrader websocket.Upgrader
	logger   *logging.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]chan notification.Event
}

func NewEventHub(logger *logging.Logger) *EventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
		conns:  make(map[*websocket.Conn]chan notification.Event),
	}
}

// Publish implements notification.EventSink. Each connection has a buffered
// send queue drained by its own writer goroutine, so a slow client can never
// stall a dispatch worker; it loses events instead.
func (h *EventHub) Publish(evt notification.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		select {
		case h.conns[conn] <- evt:
		default:
			h.logger.Warnf("Websocket client not keeping up, dropping %s event", evt.Type)
		}
	}
}

// ServeWS upgrades the request and registers the client until it disconnects.
func (h *EventHub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("Websocket upgrade failed: %v", err)
		return
	}

	send := make(chan notification.Event, sendBuffer)
	h.mu.Lock()
	h.conns[conn] = send
	total := len(h.conns)
	h.mu.Unlock()
	h.logger.Infof("Websocket client connected (total: %d)", total)

	go h.writeLoop(conn, send)

	// Drain reads to detect disconnect.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(conn)
				return
			}
		}
	}()
}

func (h *EventHub) writeLoop(conn *websocket.Conn, send chan notification.Event) {
	for evt := range send {
		if err := conn.WriteJSON(evt); err != nil {
			h.logger.Errorf("Failed to push event to websocket client: %v", err)
			h.drop(conn)
			return
		}
	}
}

// drop unregisters the connection. The send channel is closed under the lock,
// after the connection leaves the map, so Publish never sends on a closed
// channel.
func (h *EventHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	send, ok := h.conns[conn]
	if ok {
		delete(h.conns, conn)
		close(send)
	}
	h.mu.Unlock()
	if ok {
		conn.Close()
		h.logger.Infof("Websocket client disconnected")
	}
}
