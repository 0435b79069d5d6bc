package domain

// StreamEvent is one event of a streamed reply. Token events carry Content,
// done events carry MessageID and LatencyMs, error events carry Error.
type StreamEvent struct {
	Type      StreamEventType `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	MessageID string          `json:"message_id,omitempty"`
	LatencyMs *int64          `json:"latency_ms,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// TokenEvent builds a token event.
func TokenEvent(content string) StreamEvent {
	return StreamEvent{Type: StreamEventToken, Content: content}
}

// DoneEvent builds the terminal success event.
func DoneEvent(messageID string, latencyMs int64) StreamEvent {
	return StreamEvent{Type: StreamEventDone, MessageID: messageID, LatencyMs: &latencyMs}
}

// ErrorEvent builds the terminal failure event.
func ErrorEvent(message string) StreamEvent {
	return StreamEvent{Type: StreamEventError, Error: message}
}
