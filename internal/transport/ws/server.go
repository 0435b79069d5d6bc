package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Habibullahdevv/ai-native-book/internal/domain"
	"github.com/Habibullahdevv/ai-native-book/internal/service"
)

// Options configures the WebSocket server.
type Options struct {
	AllowedOrigins []string
	MaxMessageSize int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PingInterval   time.Duration
}

// DefaultOptions returns the keepalive settings used in production.
func DefaultOptions(allowedOrigins []string) Options {
	return Options{
		AllowedOrigins: allowedOrigins,
		MaxMessageSize: 64 * 1024,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		PingInterval:   54 * time.Second,
	}
}

// Server handles WebSocket connections.
type Server struct {
	opts     Options
	hub      *Hub
	service  *service.Service
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(opts Options, h *Hub, svc *service.Service) *Server {
	s := &Server{
		opts:    opts,
		hub:     h,
		service: svc,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// non-browser clients such as the CLI
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
// GET /api/chat/ws
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.WarnContext(c.Request().Context(), "failed to upgrade websocket", "error", err)
		return nil
	}

	conn := s.hub.NewConnection(ws)
	s.hub.Register(conn)

	ws.SetReadLimit(s.opts.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump reads messages from the WebSocket connection.
func (s *Server) readPump(conn *Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read failed", "connection_id", conn.ID, "error", err)
			}
			break
		}

		s.handleMessage(conn, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *Connection) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Warn("websocket write failed", "connection_id", conn.ID, "error", err)
				s.hub.Unregister(conn)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.hub.Unregister(conn)
				return
			}

		case <-conn.ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// handleMessage dispatches incoming messages to appropriate handlers.
func (s *Server) handleMessage(conn *Connection, data []byte) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch base.Type {
	case TypeChat:
		s.handleChat(conn, data)
	case TypeCancel:
		if !conn.cancelRequest(base.RequestID) {
			s.sendError(conn, base.RequestID, ErrorCodeInvalidMessage, "no such request")
		}
	default:
		s.sendError(conn, base.RequestID, ErrorCodeInvalidMessage, "unknown message type: "+base.Type)
	}
}

// handleChat streams the reply to a chat message. Each request runs in its
// own goroutine so the connection keeps reading cancel messages.
func (s *Server) handleChat(conn *Connection, data []byte) {
	var msg ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "invalid chat message")
		return
	}
	if msg.RequestID == "" {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "request_id is required")
		return
	}

	ctx, done, ok := conn.startRequest(msg.RequestID)
	if !ok {
		s.sendError(conn, msg.RequestID, ErrorCodeInvalidMessage, "request_id already in use")
		return
	}
	req := domain.ChatRequest{
		SessionID:    msg.SessionID,
		Message:      msg.Message,
		SelectedText: msg.SelectedText,
	}

	go func() {
		defer done()

		err := s.service.RespondStreamed(ctx, req, func(event domain.StreamEvent) error {
			event.RequestID = msg.RequestID
			return conn.SendJSON(event)
		})
		if err == nil || ctx.Err() != nil {
			return
		}

		var derr *domain.Error
		if errors.As(err, &derr) && !derr.Retryable() {
			s.sendError(conn, msg.RequestID, string(derr.Kind), derr.Message)
			return
		}
		slog.Warn("websocket chat failed", "connection_id", conn.ID, "request_id", msg.RequestID, "error", err)
	}()
}

// sendError sends an error message to a connection.
func (s *Server) sendError(conn *Connection, requestID, code, message string) {
	errMsg := ErrorMessage{
		Type:      TypeError,
		RequestID: requestID,
		Code:      code,
		Error:     message,
	}
	if err := conn.SendJSON(errMsg); err != nil {
		slog.Debug("dropping error for closed connection", "connection_id", conn.ID)
	}
}

// RegisterRoutes registers the WebSocket endpoint on g.
func (s *Server) RegisterRoutes(g *echo.Group) {
	g.GET("/chat/ws", s.HandleWebSocket)
}
