// internal/socket/hub.go
package socket

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event types pushed to the owning inspector.
const (
	EventReportPublished   = "report.published"
	EventReportUnpublished = "report.unpublished"
	EventReportViewed      = "report.viewed"
)

// ErrQueueFull is returned by Send when a client is not keeping up.
var ErrQueueFull = errors.New("websocket send queue full")

// Event is the JSON message sent over the socket.
type Event struct {
	Type         string    `json:"type"`
	ReportID     string    `json:"reportId"`
	ReportNumber string    `json:"reportNumber,omitempty"`
	ViewCount    int64     `json:"viewCount,omitempty"`
	At           time.Time `json:"at"`
}

// Conn is the part of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

const (
	defaultWriteWait  = 5 * time.Second
	defaultSendBuffer = 16
)

// client owns one writer goroutine; a websocket connection allows one
// writer at a time. send is closed by the hub under its write lock.
type client struct {
	conn Conn
	send chan []byte
}

type Option func(*Hub)

// WithWriteWait bounds a single socket write.
func WithWriteWait(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.writeWait = d
		}
	}
}

// WithSendBuffer sets how many events may queue per client before new ones
// are dropped.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// Hub keeps one connection per user id. Senders never wait on a socket:
// events are queued per client and written by that client's goroutine.
type Hub struct {
	clients    map[string]*client
	mu         sync.RWMutex
	writers    sync.WaitGroup
	writeWait  time.Duration
	sendBuffer int
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		clients:    make(map[string]*client),
		writeWait:  defaultWriteWait,
		sendBuffer: defaultSendBuffer,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register stores conn for userID, replacing any previous connection.
func (h *Hub) Register(userID string, conn Conn) {
	c := &client{conn: conn, send: make(chan []byte, h.sendBuffer)}

	h.mu.Lock()
	if old, ok := h.clients[userID]; ok {
		close(old.send)
	}
	h.clients[userID] = c
	h.writers.Add(1)
	h.mu.Unlock()

	go h.writeLoop(userID, c)
	h.logger.Debug("websocket client registered", "user_id", userID)
}

// Unregister removes userID only while conn is still its current
// connection, so a stale handler cannot drop a newer one.
func (h *Hub) Unregister(userID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[userID]; ok && c.conn == conn {
		delete(h.clients, userID)
		close(c.send)
		h.logger.Debug("websocket client unregistered", "user_id", userID)
	}
}

// Close drops every client and waits for their writers to finish. Queued
// events are still flushed, each write bounded by the write wait.
func (h *Hub) Close() {
	h.mu.Lock()
	for userID, c := range h.clients {
		delete(h.clients, userID)
		close(c.send)
	}
	h.mu.Unlock()
	h.writers.Wait()
}

// Connected reports whether userID has a live connection.
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// Send queues message for userID without blocking. An offline user is not
// an error; a full queue drops the message and returns ErrQueueFull.
func (h *Hub) Send(userID string, message []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[userID]
	if !ok {
		return nil
	}
	select {
	case c.send <- message:
		return nil
	default:
		return ErrQueueFull
	}
}

// writeLoop drains c.send until the hub closes it. After a failed write the
// connection is closed so its read loop unregisters it; the rest of the
// queue is discarded.
func (h *Hub) writeLoop(userID string, c *client) {
	defer h.writers.Done()
	broken := false
	for msg := range c.send {
		if broken {
			continue
		}
		c.conn.SetWriteDeadline(time.Now().Add(h.writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Warn("failed to write websocket message", "user_id", userID, "error", err)
			broken = true
			c.conn.Close()
		}
	}
}

// Notify queues ev as JSON. Delivery is best effort; failures are logged.
func (h *Hub) Notify(userID string, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to encode websocket event", "type", ev.Type, "error", err)
		return
	}
	if err := h.Send(userID, msg); err != nil {
		h.logger.Warn("dropped websocket event", "user_id", userID, "type", ev.Type, "error", err)
	}
}
