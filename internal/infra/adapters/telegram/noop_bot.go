package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-legal-assistant/internal/domain/ports/adapter"
)

var _ adapter.TelegramBotAdapter = (*NoopBotAdapter)(nil)

// NoopBotAdapter logs outgoing messages instead of calling Telegram. Used in
// dev mode so the service can run without a bot token that actually polls.
type NoopBotAdapter struct {
	log *zerolog.Logger
}

func NewNoopBotAdapter(logger *zerolog.Logger) *NoopBotAdapter {
	noopLog := logger.With().Str("component", "NoopBot").Logger()
	return &NoopBotAdapter{log: &noopLog}
}

func (b *NoopBotAdapter) Send(ctx context.Context, userID string, text string) error {
	b.log.Info().Str("user_id", userID).Str("text", text).Msg("noop send")
	return nil
}

func (b *NoopBotAdapter) SendButtons(ctx context.Context, userID string, text string, rows [][]adapter.InlineButton) error {
	b.log.Info().Str("user_id", userID).Str("text", text).Int("rows", len(rows)).Msg("noop send buttons")
	return nil
}

func (b *NoopBotAdapter) SendFile(ctx context.Context, userID string, filename string, data []byte) error {
	b.log.Info().Str("user_id", userID).Str("filename", filename).Int("bytes", len(data)).Msg("noop send file")
	return nil
}
