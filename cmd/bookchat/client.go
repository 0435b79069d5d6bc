package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Habibullahdevv/ai-native-book/internal/domain"
	"github.com/Habibullahdevv/ai-native-book/internal/transport/ws"
)

// APIError is a non-2xx reply from the server.
type APIError struct {
	Status int
	Body   domain.ErrorResponse
}

func (e *APIError) Error() string {
	if e.Body.Retry {
		return fmt.Sprintf("%d: %s (retry later)", e.Status, e.Body.Error)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Body.Error)
}

// Client talks to the chat server over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) CreateSession(ctx context.Context) (*domain.Session, error) {
	var session domain.Session
	if err := c.do(ctx, http.MethodPost, "/api/sessions", nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) GetSession(ctx context.Context, id string) (*domain.SessionWithMessages, error) {
	var result domain.SessionWithMessages
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/sessions/"+url.PathEscape(id), nil, nil)
}

// Chat asks for a single-shot reply. Requests with a selection go to the
// selection endpoint.
func (c *Client) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	path := "/api/chat"
	if req.HasSelection() {
		path = "/api/chat/selection"
	}
	var resp domain.ChatResponse
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stream asks for a streamed reply over SSE and calls onEvent for every
// event until the stream ends.
func (c *Client) Stream(ctx context.Context, req domain.ChatRequest, onEvent func(domain.StreamEvent) error) error {
	rsp, err := c.send(ctx, http.MethodPost, "/api/chat/stream", req)
	if err != nil {
		return err
	}
	defer rsp.Body.Close()

	scanner := bufio.NewScanner(rsp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var event domain.StreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if err := onEvent(event); err != nil {
			return err
		}
		if event.Type != domain.StreamEventToken {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.ErrUnexpectedEOF
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	rsp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer rsp.Body.Close()

	if out == nil {
		return nil
	}
	return json.NewDecoder(rsp.Body).Decode(out)
}

// send performs the request and turns non-2xx replies into *APIError.
func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rsp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if rsp.StatusCode >= 300 {
		defer rsp.Body.Close()
		apiErr := &APIError{Status: rsp.StatusCode}
		if err := json.NewDecoder(rsp.Body).Decode(&apiErr.Body); err != nil {
			apiErr.Body.Error = http.StatusText(rsp.StatusCode)
		}
		return nil, apiErr
	}
	return rsp, nil
}

// wsURL returns the WebSocket chat endpoint for the server.
func (c *Client) wsURL() string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/api/chat/ws"
}

// wsEvent is any message the server sends on the chat socket.
type wsEvent struct {
	domain.StreamEvent
	Code string `json:"code,omitempty"`
}

// ChatConn is an open WebSocket chat connection.
type ChatConn struct {
	conn    *websocket.Conn
	events  chan wsEvent
	readErr error
	writeMu sync.Mutex
}

// DialChat opens the WebSocket chat endpoint.
func (c *Client) DialChat(ctx context.Context) (*ChatConn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	cc := &ChatConn{conn: conn, events: make(chan wsEvent, 64)}
	go cc.readLoop()
	return cc, nil
}

// readLoop keeps reading so that pings are answered between requests.
func (cc *ChatConn) readLoop() {
	defer close(cc.events)
	for {
		_, data, err := cc.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				cc.readErr = err
			}
			return
		}
		var event wsEvent
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}
		cc.events <- event
	}
}

func (cc *ChatConn) write(v any) error {
	cc.writeMu.Lock()
	defer cc.writeMu.Unlock()
	return cc.conn.WriteJSON(v)
}

// Ask sends one chat message and calls onToken for every streamed token.
// It returns the done event. If ctx ends first the request is cancelled on
// the server.
func (cc *ChatConn) Ask(ctx context.Context, req domain.ChatRequest, onToken func(string)) (*domain.StreamEvent, error) {
	requestID := uuid.NewString()
	msg := ws.ChatMessage{
		BaseMessage:  ws.BaseMessage{Type: ws.TypeChat, RequestID: requestID},
		SessionID:    req.SessionID,
		Message:      req.Message,
		SelectedText: req.SelectedText,
	}
	if err := cc.write(msg); err != nil {
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			_ = cc.write(ws.BaseMessage{Type: ws.TypeCancel, RequestID: requestID})
			return nil, ctx.Err()
		case event, ok := <-cc.events:
			if !ok {
				if cc.readErr != nil {
					return nil, cc.readErr
				}
				return nil, io.ErrUnexpectedEOF
			}
			if event.RequestID != "" && event.RequestID != requestID {
				continue
			}
			switch event.Type {
			case domain.StreamEventToken:
				onToken(event.Content)
			case domain.StreamEventDone:
				return &event.StreamEvent, nil
			case domain.StreamEventError:
				if event.Code != "" {
					return nil, fmt.Errorf("%s: %s", event.Code, event.Error)
				}
				return nil, errors.New(event.Error)
			}
		}
	}
}

func (cc *ChatConn) Close() error {
	cc.writeMu.Lock()
	_ = cc.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	cc.writeMu.Unlock()
	return cc.conn.Close()
}
