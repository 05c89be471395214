// Package ws implements the dashboard event hub. Connected dashboard clients
// receive chat, gate, and analytics events as JSON text frames; the hub never
// reads application data from clients.
//
// Delivery is best effort. Each client owns a buffered channel; a client that
// cannot drain its buffer is disconnected rather than allowed to stall the
// broadcast path.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// clientBuffer is the per-client event backlog before the client is
	// considered slow and dropped.
	clientBuffer = 64

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 45 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The dashboard is served from a different origin than the API.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Event is the broadcast envelope written to every client.
type Event struct {
	Event     string `json:"event"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"ts"`
}

// Hub fans events out to connected dashboard clients. Safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
	log     zerolog.Logger
}

// NewHub returns an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]chan []byte),
		log:     log.With().Str("component", "ws").Logger(),
	}
}

// Broadcast queues one event for every connected client. Clients whose buffer
// is full are dropped. A payload that cannot be marshalled is logged and
// discarded.
func (h *Hub) Broadcast(event string, payload any) {
	frame, err := json.Marshal(Event{Event: event, Data: payload, Timestamp: time.Now().Unix()})
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("unmarshalable broadcast payload")
		return
	}

	var slow []*websocket.Conn
	h.mu.RLock()
	for conn, ch := range h.clients {
		select {
		case ch <- frame:
		default:
			slow = append(slow, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range slow {
		h.log.Warn().Str("remote", conn.RemoteAddr().String()).Msg("dropping slow client")
		h.remove(conn)
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client. Used on shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		h.remove(conn)
	}
}

// Handle upgrades the request and serves the client until it disconnects or
// falls behind.
//
// @Summary      Dashboard event stream
// @Description  Upgrades to a WebSocket and streams chat, gate, and analytics events as JSON frames.
// @Tags         ws
// @Success      101 {string} string "Switching Protocols"
// @Failure      400 {string} string "upgrade failed"
// @Router       /ws [get]
func (h *Hub) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("remote", c.ClientIP()).Msg("upgrade failed")
		return
	}

	ch := make(chan []byte, clientBuffer)
	h.mu.Lock()
	h.clients[conn] = ch
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info().Str("remote", conn.RemoteAddr().String()).Int("clients", n).Msg("client connected")

	go h.writeLoop(conn, ch)
	h.readLoop(conn)
}

// writeLoop drains the client's channel and keeps the connection alive with
// pings. It exits when the channel is closed by remove or when a write fails.
func (h *Hub) writeLoop(conn *websocket.Conn, ch chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-ch:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				conn.Close()
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.remove(conn)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(conn)
				return
			}
		}
	}
}

// readLoop consumes control frames so pongs and close handshakes are
// processed. Application data from clients is ignored.
func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.remove(conn)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// remove unregisters conn and closes its channel exactly once.
func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	ch, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
	}
	h.mu.Unlock()

	if ok {
		close(ch)
		conn.Close()
	}
}
