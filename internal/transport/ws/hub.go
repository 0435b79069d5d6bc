// Package ws streams chat replies over WebSocket connections.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Connection represents a single WebSocket connection.
type Connection struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte

	// ctx is cancelled when the connection is unregistered, which stops
	// every reply still streaming to it.
	ctx    context.Context
	cancel context.CancelFunc

	mu sync.Mutex

	reqMu    sync.Mutex
	requests map[string]*activeRequest
}

// Hub manages all WebSocket connections.
type Hub struct {
	connections map[string]*Connection

	register   chan *Connection
	unregister chan *Connection
	done       chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		done:        make(chan struct{}),
	}
}

// Run starts the hub's main loop. It returns when ctx is done, after
// cancelling every remaining connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			h.mu.Unlock()
			slog.Debug("connection registered", "connection_id", conn.ID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				delete(h.connections, conn.ID)
				conn.cancel()
			}
			h.mu.Unlock()
			slog.Debug("connection unregistered", "connection_id", conn.ID)

		case <-ctx.Done():
			h.mu.Lock()
			for id, conn := range h.connections {
				conn.cancel()
				delete(h.connections, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// NewConnection creates a new connection. It must be registered before use.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		ID:       uuid.New().String(),
		Conn:     ws,
		Send:     make(chan []byte, 256),
		ctx:      ctx,
		cancel:   cancel,
		requests: make(map[string]*activeRequest),
	}
}

// Register registers a connection with the hub. A connection registered
// after the hub stopped is cancelled at once.
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		conn.cancel()
	}
}

// Unregister unregisters a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
		conn.cancel()
	}
}

// Count returns the number of active connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// SendJSON queues v for the connection. It blocks while the send buffer is
// full and fails once the connection is gone.
func (c *Connection) SendJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case c.Send <- data:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

type activeRequest struct {
	cancel context.CancelFunc
}

// startRequest returns a context for one chat request, cancelled by
// cancelRequest or when the connection closes. It fails if requestID is
// already running on this connection.
func (c *Connection) startRequest(requestID string) (context.Context, func(), bool) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()
	if _, busy := c.requests[requestID]; busy {
		return nil, nil, false
	}

	ctx, cancel := context.WithCancel(c.ctx)
	req := &activeRequest{cancel: cancel}
	c.requests[requestID] = req
	return ctx, func() {
		c.reqMu.Lock()
		if c.requests[requestID] == req {
			delete(c.requests, requestID)
		}
		c.reqMu.Unlock()
		cancel()
	}, true
}

// cancelRequest stops the request with the given id, if it is running.
func (c *Connection) cancelRequest(requestID string) bool {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()
	req, ok := c.requests[requestID]
	if ok {
		req.cancel()
		delete(c.requests, requestID)
	}
	return ok
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}
