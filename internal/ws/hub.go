package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/twinpulse/twinpulse/internal/api"
	"github.com/twinpulse/twinpulse/internal/engine"
	"github.com/twinpulse/twinpulse/pkg/types"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16

	// updateBufSize is how many published snapshots may wait for Run.
	updateBufSize = 8

	// maxFrameSize bounds inbound client frames.
	maxFrameSize = 512
)

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string         `json:"event"`
	Data  types.Snapshot `json:"data"`
}

// ClientMessage is a control frame sent by a client.
type ClientMessage struct {
	Action string `json:"action"`
	ID     string `json:"id"`
}

// Hub manages WebSocket client connections and broadcasts engine snapshots
// to all of them.
type Hub struct {
	engine   api.Engine
	upgrader websocket.Upgrader
	updates  chan types.Snapshot

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// client represents one connected WebSocket client.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// New creates a Hub that reads from eng. origins lists the browser origins
// allowed to connect; "*" or an empty list allows any.
func New(eng api.Engine, origins []string) *Hub {
	h := &Hub{
		engine:  eng,
		updates: make(chan types.Snapshot, updateBufSize),
		clients: make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(origins),
	}
	return h
}

// Publish queues u's snapshot for broadcast. It never blocks; when Run falls
// behind the update is dropped and the next tick carries fresher state.
func (h *Hub) Publish(u engine.Update) {
	h.enqueue(u.Snapshot)
}

// Run broadcasts queued snapshots to all connected clients. A snapshot older
// than the last one broadcast is dropped, so a tick that raced a dismissal
// cannot bring the dismissed alert back. Run blocks until ctx is cancelled,
// then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	var last uint64
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case s := <-h.updates:
			if s.Seq < last {
				slog.Debug("ws: dropping stale snapshot", "seq", s.Seq, "last", last)
				continue
			}
			last = s.Seq
			h.broadcast(s)
		}
	}
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// It sends the current snapshot immediately on connect, then continues to
// receive broadcasts. Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}

	// Queue the current snapshot before registering so the UI has data right
	// away and it precedes any broadcast.
	if data, err := buildMessage(api.BuildSnapshot(h.engine)); err == nil {
		c.send <- data
	}
	h.register(c)
	defer h.unregister(c)

	go c.writePump()
	c.readPump() // blocks until connection closes
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

func (h *Hub) enqueue(s types.Snapshot) {
	select {
	case h.updates <- s:
	default:
		slog.Warn("ws: update queue full, dropping snapshot")
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) broadcast(s types.Snapshot) {
	data, err := buildMessage(api.Normalize(s))
	if err != nil {
		slog.Error("ws: encode snapshot", "err", err)
		return
	}

	// Sends happen under the read lock so unregister cannot close a channel
	// mid-send.
	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		// Client's outgoing buffer is full, disconnect it.
		slog.Warn("ws: slow client, disconnecting", "remote", c.conn.RemoteAddr().String())
		h.unregister(c)
	}
}

// handle applies one client control frame.
func (h *Hub) handle(raw []byte) {
	var m ClientMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		slog.Debug("ws: ignoring malformed frame", "err", err)
		return
	}
	switch m.Action {
	case "dismiss":
		if m.ID == "" {
			return
		}
		h.engine.Dismiss(m.ID)
		h.enqueue(h.engine.Snapshot())
	default:
		slog.Debug("ws: ignoring unknown action", "action", m.Action)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

func buildMessage(s types.Snapshot) ([]byte, error) {
	return json.Marshal(Message{Event: "snapshot", Data: s})
}

// originChecker allows requests without an Origin header, and otherwise only
// the listed origins.
func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = true
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		o := r.Header.Get("Origin")
		return o == "" || allowed[o]
	}
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames from the connection, applies control messages and
// detects disconnects. Blocks until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		kind, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		if kind == websocket.TextMessage {
			c.hub.handle(msg)
		}
	}
}
