package repository

import "context"

// ConversationState holds the user's progress in any multi-step chat flow.
type ConversationState struct {
	Step string            `json:"step"` // e.g. "awaiting_question", "awaiting_document_details"
	Data map[string]string `json:"data"`
}

// StateRepository is the port for managing a user's conversational state.
type StateRepository interface {
	SetState(ctx context.Context, userID string, state *ConversationState) error
	GetState(ctx context.Context, userID string) (*ConversationState, error)
	ClearState(ctx context.Context, userID string) error
}
