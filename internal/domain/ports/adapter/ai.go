package adapter

import "context"

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// AIServiceAdapter is the port for the legal-answer language model.
type AIServiceAdapter interface {
	Name() string

	// Chat returns only the assistant text.
	Chat(ctx context.Context, messages []Message) (string, error)
}
