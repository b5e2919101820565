package adapter

import "context"

type InlineButton struct {
	Text string
	Data string
	URL  string
}

// Notifier delivers a text message to a user, fire-and-forget from the
// caller's point of view. Failures are logged by the caller, never retried.
type Notifier interface {
	Send(ctx context.Context, userID string, text string) error
}

// TelegramBotAdapter is the full chat-transport surface used by handlers.
type TelegramBotAdapter interface {
	Notifier
	SendButtons(ctx context.Context, userID string, text string, rows [][]InlineButton) error
	SendFile(ctx context.Context, userID string, filename string, data []byte) error
}
