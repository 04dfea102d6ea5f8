package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nao1215/personashield/internal/model"
	"github.com/nao1215/personashield/internal/store"
)

const (
	// writeWait bounds a single write to a peer.
	writeWait = 10 * time.Second
	// pongWait is how long a peer may stay silent before it is dropped.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// sendQueueSize is the per-client buffer; messages beyond it are dropped.
	sendQueueSize = 16
	// maxMessageSize bounds what a peer may send; peers only send pongs.
	maxMessageSize = 512
)

// MessageConnected is sent once to every new client.
const MessageConnected = "connected"

// Message is what the hub sends to dashboard clients.
type Message struct {
	Type       string                `json:"type"`
	ClientID   string                `json:"client_id,omitempty"`
	AnalysisID string                `json:"analysis_id,omitempty"`
	HistoryLen int                   `json:"history_len"`
	Restored   bool                  `json:"restored,omitempty"`
	Analysis   *model.AnalysisResult `json:"analysis,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
}

// messageFromEvent converts a store event into a client message.
func messageFromEvent(ev store.Event) Message {
	msg := Message{
		Type:       string(ev.Type),
		HistoryLen: ev.HistoryLen,
		Restored:   ev.Restored,
		Analysis:   ev.Analysis,
		Timestamp:  time.Now().UTC(),
	}
	if ev.Analysis != nil {
		msg.AnalysisID = ev.Analysis.ID()
	}
	return msg
}

// wsClient is one connected dashboard.
type wsClient struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	closed atomic.Bool
}

// close closes the connection once.
func (c *wsClient) close() {
	if c.closed.CompareAndSwap(false, true) {
		_ = c.conn.Close()
	}
}

// enqueue queues data without blocking and reports whether it was queued.
func (c *wsClient) enqueue(data []byte) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Hub fans store events out to every connected WebSocket client.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[string]*wsClient

	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
	done       chan struct{}
}

// NewHub creates a Hub. checkOrigin decides which browser origins may
// connect; nil accepts every origin.
func NewHub(logger *slog.Logger, checkOrigin func(*http.Request) bool) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger:     logger,
		clients:    make(map[string]*wsClient),
		register:   make(chan *wsClient, 16),
		unregister: make(chan *wsClient, 16),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
	}
}

// Run dispatches registrations and broadcasts until ctx is done, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("dashboard client connected", "client_id", c.id, "clients", n)

		case c := <-h.unregister:
			h.remove(c)

		case data := <-h.broadcast:
			h.fanOut(data)

		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish queues msg for every client. It never blocks; when the hub is
// saturated the message is dropped.
func (h *Hub) Publish(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn("failed to encode hub message", "type", msg.Type, "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("hub queue full, message dropped", "type", msg.Type)
	}
}

// Follow publishes every event of s until the returned function is called.
func (h *Hub) Follow(s *store.Store) (unsubscribe func()) {
	return s.Subscribe(func(ev store.Event) {
		h.Publish(messageFromEvent(ev))
	})
}

// ServeHTTP upgrades the request and serves the client until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendQueueSize),
	}
	hello, err := json.Marshal(Message{
		Type:      MessageConnected,
		ClientID:  c.id,
		Timestamp: time.Now().UTC(),
	})
	if err == nil {
		c.enqueue(hello)
	}

	select {
	case h.register <- c:
	case <-h.done:
		c.close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// fanOut queues data for every client, dropping clients that cannot keep up.
func (h *Hub) fanOut(data []byte) {
	h.mu.RLock()
	var slow []*wsClient
	for _, c := range h.clients {
		if !c.enqueue(data) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dashboard client too slow, disconnecting", "client_id", c.id)
		h.remove(c)
	}
}

// remove forgets c and closes its connection.
func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	h.mu.Unlock()
	c.close()
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*wsClient)
	h.mu.Unlock()

	for _, c := range clients {
		close(c.send)
		c.close()
	}
}

// readPump discards client messages and keeps the read deadline alive
// through pongs. It returns when the peer goes away.
func (h *Hub) readPump(c *wsClient) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", "client_id", c.id, "error", err)
			}
			return
		}
	}
}

// writePump drains c.send and pings the peer until the queue is closed.
func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
