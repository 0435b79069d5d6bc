// Package domain defines the core domain models for the chat backend.
package domain

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// StreamEventType is the type tag of an event emitted while streaming a reply.
type StreamEventType string

const (
	StreamEventToken StreamEventType = "token"
	StreamEventDone  StreamEventType = "done"
	StreamEventError StreamEventType = "error"
)

// EmbeddingMode selects the asymmetric embedding space used for a text.
type EmbeddingMode string

const (
	// EmbeddingModeQuery is used for user queries at retrieval time.
	EmbeddingModeQuery EmbeddingMode = "query"
	// EmbeddingModeDocument is used for passages at ingestion time.
	EmbeddingModeDocument EmbeddingMode = "document"
)
