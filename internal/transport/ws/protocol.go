package ws

// Message types from client to server
const (
	TypeChat   = "chat"
	TypeCancel = "cancel"
)

// TypeError is sent for requests that were rejected before streaming.
// Streamed replies use the token, done and error event types.
const TypeError = "error"

// BaseMessage contains common fields for all client messages.
type BaseMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
}

// ChatMessage asks for a streamed reply.
type ChatMessage struct {
	BaseMessage
	SessionID    string  `json:"session_id"`
	Message      string  `json:"message"`
	SelectedText *string `json:"selected_text,omitempty"`
}

// ErrorMessage is sent when a client message is rejected.
type ErrorMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Error     string `json:"error"`
}

// Error codes
const (
	ErrorCodeInvalidMessage = "invalid_message"
)
