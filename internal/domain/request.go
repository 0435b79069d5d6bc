package domain

// CreateSessionRequest is the body of POST /api/sessions.
type CreateSessionRequest struct {
	Metadata map[string]interface{} `json:"metadata"`
}

// ChatRequest asks for a reply to a user message within a session.
type ChatRequest struct {
	SessionID    string  `json:"session_id"`
	Message      string  `json:"message"`
	SelectedText *string `json:"selected_text,omitempty"`

	// RequireSelection is set by the selection endpoint.
	RequireSelection bool `json:"-"`
}

// HasSelection reports whether the caller supplied a selected excerpt.
func (r *ChatRequest) HasSelection() bool {
	return r.SelectedText != nil
}

// ChatResponse is the result of a single-shot reply.
type ChatResponse struct {
	MessageID string       `json:"message_id"`
	Response  string       `json:"response"`
	Metadata  ChatMetadata `json:"metadata"`
}

// ChatMetadata describes how a reply was produced.
type ChatMetadata struct {
	LatencyMs        int64    `json:"latency_ms"`
	SelectedTextUsed bool     `json:"selected_text_used"`
	Sources          []string `json:"sources"`
	Passages         int      `json:"passages"`
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
	Retry  bool   `json:"retry"`
}

// HealthResponse reports the state of the service and its dependencies.
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    string            `json:"timestamp"`
	Dependencies map[string]string `json:"dependencies"`
	Connections  int               `json:"connections"`
}
