package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-legal-assistant/internal/domain"
	"telegram-legal-assistant/internal/domain/model"
	"telegram-legal-assistant/internal/domain/ports/adapter"
	"telegram-legal-assistant/internal/domain/ports/repository"
	red "telegram-legal-assistant/internal/infra/redis"
)

// Conversation steps stored in the state repository.
const (
	stepAwaitingQuestion = "awaiting_question"
	stepAwaitingDocument = "awaiting_document_details"
	stepInConsultation   = "in_consultation"
)

type commandHandler func(ctx context.Context, message *tgbotapi.Message) error

// commandRoutes defines all available bot commands and their handlers.
func (r *RealTelegramBotAdapter) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":         r.handleStartCommand,
		"agree":         r.handleAgreeCommand,
		"menu":          r.handleMenuCommand,
		"tariffs":       r.handleTariffsCommand,
		"buy":           r.handleBuyCommand,
		"status":        r.handleStatusCommand,
		"check_payment": r.handleCheckPaymentCommand,
		"ask":           r.handleAskCommand,
		"document":      r.handleDocumentCommand,
		"history":       r.handleHistoryCommand,
		"help":          r.handleHelpCommand,
	}
}

func (r *RealTelegramBotAdapter) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	userID := strconv.FormatInt(chatID, 10)

	command := "message"
	if message.IsCommand() {
		command = "/" + message.Command()
	}
	if r.rateLimiter != nil {
		allowed, err := r.rateLimiter.Allow(ctx, red.UserCommandKey(userID, command), 20, time.Minute)
		if err != nil {
			r.log.Warn().Err(err).Msg("rate limit check failed")
		} else if !allowed {
			return r.Send(ctx, userID, "Too many requests. Please try again in a minute.")
		}
	}

	if message.IsCommand() {
		if fn, ok := r.commandRoutes()[message.Command()]; ok {
			return fn(ctx, message)
		}
		return r.Send(ctx, userID, "Unknown command. See /help.")
	}
	return r.handlePlainText(ctx, message)
}

// handlePlainText routes free text by the user's conversational state.
func (r *RealTelegramBotAdapter) handlePlainText(ctx context.Context, message *tgbotapi.Message) error {
	userID := strconv.FormatInt(message.Chat.ID, 10)
	text := strings.TrimSpace(message.Text)
	if text == "" {
		return nil
	}

	state, err := r.states.GetState(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return r.Send(ctx, userID, "Use /ask to start a consultation or /menu for the options.")
	}
	if err != nil {
		r.log.Warn().Err(err).Str("user_id", userID).Msg("failed to load conversation state")
		return r.Send(ctx, userID, "Something went wrong. Please try again.")
	}

	switch state.Step {
	case stepAwaitingQuestion:
		if refusal := r.requireSubscription(ctx, userID); refusal != "" {
			return r.Send(ctx, userID, refusal)
		}
		_ = r.Send(ctx, userID, "Let me look into that...")
		reply, err := r.facade.HandleAsk(ctx, userID, text)
		if err != nil {
			r.log.Error().Err(err).Str("user_id", userID).Msg("consultation failed")
			return r.Send(ctx, userID, "I could not process the question. Please try again.")
		}
		_ = r.states.SetState(ctx, userID, &repository.ConversationState{Step: stepInConsultation})
		return r.Send(ctx, userID, reply)

	case stepInConsultation:
		reply, err := r.facade.HandleFollowUp(ctx, userID, text)
		if err != nil {
			r.log.Error().Err(err).Str("user_id", userID).Msg("follow-up failed")
			return r.Send(ctx, userID, "I could not process that. Please try again.")
		}
		return r.Send(ctx, userID, reply)

	case stepAwaitingDocument:
		kind := model.DocumentKind(state.Data["kind"])
		if refusal := r.requireSubscription(ctx, userID); refusal != "" {
			return r.Send(ctx, userID, refusal)
		}
		_ = r.Send(ctx, userID, "Drafting the document, this can take a minute...")
		data, filename, err := r.facade.HandleDocument(ctx, userID, kind, text)
		if err != nil {
			r.log.Error().Err(err).Str("user_id", userID).Msg("document drafting failed")
			return r.Send(ctx, userID, "I could not draft the document. Please try again.")
		}
		_ = r.states.ClearState(ctx, userID)
		if err := r.SendFile(ctx, userID, filename, data); err != nil {
			return err
		}
		return r.SendButtons(ctx, userID, "How did the document turn out?", [][]adapter.InlineButton{{
			{Text: "👍", Data: "rate:good"},
			{Text: "👎", Data: "rate:bad"},
		}})

	default:
		return r.Send(ctx, userID, "Use /ask to start a consultation or /menu for the options.")
	}
}

// requireSubscription returns the refusal text, or "" when the user may proceed.
func (r *RealTelegramBotAdapter) requireSubscription(ctx context.Context, userID string) string {
	refusal, err := r.facade.RequireSubscription(ctx, userID)
	if err != nil {
		r.log.Warn().Err(err).Str("user_id", userID).Msg("subscription check failed")
		return "Could not verify your subscription. Please try again."
	}
	return refusal
}

func fromUser(message *tgbotapi.Message) (firstName, lastName, username string) {
	if message.From == nil {
		return "", "", ""
	}
	return message.From.FirstName, message.From.LastName, message.From.UserName
}

func (r *RealTelegramBotAdapter) handleStartCommand(ctx context.Context, message *tgbotapi.Message) error {
	userID := strconv.FormatInt(message.Chat.ID, 10)
	first, last, uname := fromUser(message)
	text, err := r.facade.HandleStart(ctx, userID, first, last, uname)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", userID).Msg("start failed")
		return r.Send(ctx, userID, "Failed to initialize your profile. Please try again.")
	}
	return r.sendMainMenu(ctx, userID, text)
}

func (r *RealTelegramBotAdapter) handleAgreeCommand(ctx context.Context, message *tgbotapi.Message) error {
	userID := strconv.FormatInt(message.Chat.ID, 10)
	text, err := r.facade.HandleAgree(ctx, userID)
	if err != nil {
		return r.Send(ctx, userID, "Could not record the agreement. Try /start first.")
	}
	return r.Send(ctx, userID, text)
}

func (r *RealTelegramBotAdapter) handleMenuCommand(ctx context.Context, message *tgbotapi.Message) error {
	userID := strconv.FormatInt(message.Chat.ID, 10)
	return r.sendMainMenu(ctx, userID, "Choose an action:")
}

func (r *RealTelegramBotAdapter) handleTariffsCommand(ctx context.Context, message *tgbotapi.Message) error {
	userID := strconv.FormatInt(message.Chat.ID, 10)
	return r.sendTariffsMenu(ctx, userID)
}

func (r *RealTelegramBotAdapter) handleBuyCommand(ctx context.Context, message *tgbotapi.Message) error {
	userID := strconv.FormatInt(message.Chat.ID, 10)
	args := strings.Fields(message.CommandArguments())
	if len(args) == 0 {
		return r.sendTariffsMenu(ctx, userID)
	}
	tariff, err := model.ParseTariff(args[0])
	if err != nil {
		return r.Send(ctx, userID, "Unknown tariff. See /tariffs for the options.")
	}
	return r.startPurchase(ctx, userID, tariff)
}

func (r *RealTelegramBotAdapter) handleStatusCommand(ctx context.Context, message *tgbotapi.Message) error {
	userID := strconv.FormatInt(message.Chat.ID, 10)
	text, err := r.facade.HandleStatus(ctx, userID)
	if err != nil {
		text = "Failed to get your status. Try /start first."
	}
	return r.sendMainMenu(ctx, userID, text)
}

func (r *RealTelegramBotAdapter) handleCheckPaymentCommand(ctx context.Context, message *tgbotapi.Message) error {
	userID := strconv.FormatInt(message.Chat.ID, 10)
	text, err := r.facade.HandleCheckPayment(ctx, userID)
	if err != nil {
		text = "Failed to check payments. Please try again."
	}
	return r.Send(ctx, userID, text)
}

func (r *RealTelegramBotAdapter) handleAskCommand(ctx context.Context, message *tgbotapi.Message) error {
	userID := strconv.FormatInt(message.Chat.ID, 10)
	if refusal := r.requireSubscription(ctx, userID); refusal != "" {
		return r.Send(ctx, userID, refusal)
	}
	question := strings.TrimSpace(message.CommandArguments())
	if question != "" {
		_ = r.Send(ctx, userID, "Let me look into that...")
		reply, err := r.facade.HandleAsk(ctx, userID, question)
		if err != nil {
			r.log.Error().Err(err).Str("user_id", userID).Msg("consultation failed")
			return r.Send(ctx, userID, "I could not process the question. Please try again.")
		}
		_ = r.states.SetState(ctx, userID, &repository.ConversationState{Step: stepInConsultation})
		return r.Send(ctx, userID, reply)
	}
	if err := r.states.SetState(ctx, userID, &repository.ConversationState{Step: stepAwaitingQuestion}); err != nil {
		r.log.Warn().Err(err).Str("user_id", userID).Msg("failed to set conversation state")
	}
	return r.Send(ctx, userID, "What is your legal question? Describe the situation in one message.")
}

func (r *RealTelegramBotAdapter) handleDocumentCommand(ctx context.Context, message *tgbotapi.Message) error {
	userID := strconv.FormatInt(message.Chat.ID, 10)
	if refusal := r.requireSubscription(ctx, userID); refusal != "" {
		return r.Send(ctx, userID, refusal)
	}
	return r.sendDocumentMenu(ctx, userID)
}

func (r *RealTelegramBotAdapter) handleHistoryCommand(ctx context.Context, message *tgbotapi.Message) error {
	userID := strconv.FormatInt(message.Chat.ID, 10)
	text, err := r.facade.HandleHistory(ctx, userID)
	if err != nil {
		text = "Failed to load your history. Try /start first."
	}
	return r.Send(ctx, userID, text)
}

func (r *RealTelegramBotAdapter) handleHelpCommand(ctx context.Context, message *tgbotapi.Message) error {
	userID := strconv.FormatInt(message.Chat.ID, 10)
	reply := "Commands:\n" +
		"/start - register\n" +
		"/agree - accept the service agreement\n" +
		"/tariffs - subscription options\n" +
		"/status - your subscription\n" +
		"/check_payment - check a pending payment\n" +
		"/ask - ask a legal question\n" +
		"/document - draft a legal document\n" +
		"/history - past consultations"
	return r.Send(ctx, userID, reply)
}
