package telegram

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-legal-assistant/internal/domain/model"
	"telegram-legal-assistant/internal/domain/ports/adapter"
	"telegram-legal-assistant/internal/domain/ports/repository"
	red "telegram-legal-assistant/internal/infra/redis"
	"telegram-legal-assistant/internal/usecase"
)

type cbHandler func(ctx context.Context, userID string, data string) error

// cbRoutes maps exact-match callback data to handlers.
func (r *RealTelegramBotAdapter) cbRoutes() map[string]cbHandler {
	return map[string]cbHandler{
		"cmd:menu": func(ctx context.Context, userID, _ string) error {
			return r.sendMainMenu(ctx, userID, "Choose an action:")
		},
		"cmd:tariffs": func(ctx context.Context, userID, _ string) error {
			return r.sendTariffsMenu(ctx, userID)
		},
		"cmd:status": func(ctx context.Context, userID, _ string) error {
			text, err := r.facade.HandleStatus(ctx, userID)
			if err != nil {
				text = "Failed to get your status."
			}
			return r.sendMainMenu(ctx, userID, text)
		},
		"cmd:ask": func(ctx context.Context, userID, _ string) error {
			if refusal := r.requireSubscription(ctx, userID); refusal != "" {
				return r.Send(ctx, userID, refusal)
			}
			if err := r.states.SetState(ctx, userID, &repository.ConversationState{Step: stepAwaitingQuestion}); err != nil {
				r.log.Warn().Err(err).Str("user_id", userID).Msg("failed to set conversation state")
			}
			return r.Send(ctx, userID, "What is your legal question? Describe the situation in one message.")
		},
		"cmd:document": func(ctx context.Context, userID, _ string) error {
			if refusal := r.requireSubscription(ctx, userID); refusal != "" {
				return r.Send(ctx, userID, refusal)
			}
			return r.sendDocumentMenu(ctx, userID)
		},
		"cmd:check_payment": func(ctx context.Context, userID, _ string) error {
			text, err := r.facade.HandleCheckPayment(ctx, userID)
			if err != nil {
				text = "Failed to check payments."
			}
			return r.Send(ctx, userID, text)
		},
		"cmd:history": func(ctx context.Context, userID, _ string) error {
			text, err := r.facade.HandleHistory(ctx, userID)
			if err != nil {
				text = "Failed to load your history."
			}
			return r.Send(ctx, userID, text)
		},
	}
}

// cbPrefixRoutes maps callback-data prefixes to handlers.
func (r *RealTelegramBotAdapter) cbPrefixRoutes() []struct {
	Prefix string
	Fn     cbHandler
} {
	return []struct {
		Prefix string
		Fn     cbHandler
	}{
		{
			Prefix: "buy:",
			Fn: func(ctx context.Context, userID, data string) error {
				tariff, err := model.ParseTariff(strings.TrimPrefix(data, "buy:"))
				if err != nil {
					return r.Send(ctx, userID, "Unknown tariff. See /tariffs for the options.")
				}
				return r.startPurchase(ctx, userID, tariff)
			},
		},
		{
			Prefix: "doc:",
			Fn: func(ctx context.Context, userID, data string) error {
				kind := model.DocumentKind(strings.TrimPrefix(data, "doc:"))
				if usecase.DocumentKindDisplay(kind) == "" {
					return r.Send(ctx, userID, "Unknown document type.")
				}
				state := &repository.ConversationState{
					Step: stepAwaitingDocument,
					Data: map[string]string{"kind": string(kind)},
				}
				if err := r.states.SetState(ctx, userID, state); err != nil {
					r.log.Warn().Err(err).Str("user_id", userID).Msg("failed to set conversation state")
					return r.Send(ctx, userID, "Something went wrong. Please try again.")
				}
				return r.Send(ctx, userID, "Describe your situation in one message: who is involved, what happened, and what you want to achieve.")
			},
		},
		{
			Prefix: "rate:",
			Fn: func(ctx context.Context, userID, data string) error {
				rating := strings.TrimPrefix(data, "rate:")
				if err := r.facade.DocUC.RateLastDocument(ctx, userID, rating); err != nil {
					r.log.Warn().Err(err).Str("user_id", userID).Msg("failed to record document rating")
				}
				return r.Send(ctx, userID, "Thanks for the feedback!")
			},
		},
	}
}

func (r *RealTelegramBotAdapter) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query == nil || query.From == nil {
		return errors.New("invalid callback query")
	}

	// Stop the telegram spinner when we return.
	defer func() { _, _ = r.bot.Request(tgbotapi.NewCallback(query.ID, "")) }()

	var chatID int64
	if query.Message != nil && query.Message.Chat != nil {
		chatID = query.Message.Chat.ID
	} else {
		chatID = query.From.ID
	}
	if chatID == 0 {
		return nil
	}
	userID := strconv.FormatInt(chatID, 10)
	data := strings.TrimSpace(query.Data)

	if r.rateLimiter != nil {
		if allowed, err := r.rateLimiter.Allow(ctx, red.UserCommandKey(userID, "cb:"+data), 30, time.Minute); err == nil && !allowed {
			return r.Send(ctx, userID, "Too many requests. Please try again in a minute.")
		}
	}

	if fn, ok := r.cbRoutes()[data]; ok {
		return fn(ctx, userID, data)
	}
	for _, pr := range r.cbPrefixRoutes() {
		if strings.HasPrefix(data, pr.Prefix) {
			return pr.Fn(ctx, userID, data)
		}
	}
	return errors.New("unknown callback data: " + data)
}

func (r *RealTelegramBotAdapter) startPurchase(ctx context.Context, userID string, tariff model.Tariff) error {
	text, err := r.facade.HandleBuy(ctx, userID, tariff)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", userID).Msg("purchase failed")
		return r.Send(ctx, userID, "Failed to create the payment. Please try again.")
	}
	if url := extractFirstURL(text); url != "" {
		rows := [][]adapter.InlineButton{
			{{Text: "Pay now", URL: url}},
			{{Text: "◀️ Menu", Data: "cmd:menu"}},
		}
		return r.SendButtons(ctx, userID, text, rows)
	}
	return r.Send(ctx, userID, text)
}

func (r *RealTelegramBotAdapter) sendMainMenu(ctx context.Context, userID, intro string) error {
	rows := [][]adapter.InlineButton{
		{{Text: "⚖️ Ask a question", Data: "cmd:ask"}},
		{{Text: "📄 Draft a document", Data: "cmd:document"}},
		{{Text: "🛒 Tariffs", Data: "cmd:tariffs"}},
		{{Text: "📊 Status", Data: "cmd:status"}},
		{{Text: "💳 Check payment", Data: "cmd:check_payment"}},
		{{Text: "🗂 History", Data: "cmd:history"}},
	}
	if strings.TrimSpace(intro) == "" {
		intro = "Welcome! Choose an action:"
	}
	return r.SendButtons(ctx, userID, intro, rows)
}

func (r *RealTelegramBotAdapter) sendTariffsMenu(ctx context.Context, userID string) error {
	text, err := r.facade.HandleTariffs(ctx)
	if err != nil {
		return r.Send(ctx, userID, "No tariffs available right now.")
	}
	rows := [][]adapter.InlineButton{
		{{Text: model.TariffBasic.DisplayName(), Data: "buy:" + string(model.TariffBasic)}},
		{{Text: model.TariffPremium.DisplayName(), Data: "buy:" + string(model.TariffPremium)}},
		{{Text: "◀️ Menu", Data: "cmd:menu"}},
	}
	return r.SendButtons(ctx, userID, text, rows)
}

func (r *RealTelegramBotAdapter) sendDocumentMenu(ctx context.Context, userID string) error {
	kinds := usecase.DocumentKinds()
	rows := make([][]adapter.InlineButton, 0, len(kinds)+1)
	for _, k := range kinds {
		rows = append(rows, []adapter.InlineButton{{Text: usecase.DocumentKindDisplay(k), Data: "doc:" + string(k)}})
	}
	rows = append(rows, []adapter.InlineButton{{Text: "◀️ Menu", Data: "cmd:menu"}})
	return r.SendButtons(ctx, userID, "Which document do you need?", rows)
}

var httpURLRe = regexp.MustCompile(`https?://(?:[-\w]+\.)+[a-zA-Z]{2,}(?:/[^\s\\\n]*)?`)

func extractFirstURL(s string) string {
	if s == "" {
		return ""
	}
	loc := httpURLRe.FindStringIndex(s)
	if loc == nil {
		return ""
	}
	return s[loc[0]:loc[1]]
}
