package domain

import "time"

// Session represents a conversation session.
type Session struct {
	ID        string                 `json:"id"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// Message represents a single message in a session.
type Message struct {
	ID           string                 `json:"id"`
	SessionID    string                 `json:"session_id"`
	Role         Role                   `json:"role"`
	Content      string                 `json:"content"`
	SelectedText *string                `json:"selected_text"`
	Metadata     map[string]interface{} `json:"metadata"`
	CreatedAt    time.Time              `json:"created_at"`
}

// SessionWithMessages is a session together with its full history.
type SessionWithMessages struct {
	Session  *Session  `json:"session"`
	Messages []Message `json:"messages"`
}

// Passage is a chunk of textbook text returned by the retriever.
type Passage struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	SourceURL string  `json:"source_url"`
	Score     float64 `json:"score"`
}
