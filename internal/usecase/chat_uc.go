package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"telegram-legal-assistant/internal/domain"
	"telegram-legal-assistant/internal/domain/model"
	"telegram-legal-assistant/internal/domain/ports/adapter"
	"telegram-legal-assistant/internal/domain/ports/repository"
	"telegram-legal-assistant/internal/infra/logging"
)

const legalSystemPrompt = "You are a legal assistant. Answer questions about " +
	"consumer, labor, housing and contract law in plain language. When the " +
	"question falls outside legal matters, say so and decline. Always remind " +
	"the user that your answer is general information, not formal legal advice."

// maxHistoryTurns bounds how much of a session's dialog is replayed to the
// model on a follow-up question.
const maxHistoryTurns = 20

// ChatUseCase runs the legal question-and-answer flow: each initial question
// opens a consultation session, follow-ups continue the latest one, and the
// whole thread is appended to the user's document history.
type ChatUseCase struct {
	ai      adapter.AIServiceAdapter
	users   repository.UserRepository
	entropy *ulid.MonotonicEntropy
	log     *zerolog.Logger
	now     func() time.Time
}

func NewChatUseCase(ai adapter.AIServiceAdapter, users repository.UserRepository, logger *zerolog.Logger) *ChatUseCase {
	chatLog := logger.With().Str("component", "ChatUC").Logger()
	return &ChatUseCase{
		ai:      ai,
		users:   users,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		log:     &chatLog,
		now:     time.Now,
	}
}

func (uc *ChatUseCase) newSessionID() string {
	return ulid.MustNew(ulid.Timestamp(uc.now()), uc.entropy).String()
}

// Ask opens a new consultation session with the question and returns the
// assistant's answer. The session (question plus answer) is persisted to the
// user's history before returning.
func (uc *ChatUseCase) Ask(ctx context.Context, userID, question string) (string, error) {
	defer logging.TraceDuration(uc.log, "ChatUC.Ask")()
	if question == "" {
		return "", domain.ErrInvalidArgument
	}
	if _, err := uc.users.FindByID(ctx, userID); err != nil {
		return "", fmt.Errorf("load user %s: %w", userID, err)
	}

	answer, err := uc.ai.Chat(ctx, []adapter.Message{
		{Role: "system", Content: legalSystemPrompt},
		{Role: "user", Content: question},
	})
	if err != nil {
		return "", fmt.Errorf("ai chat: %w", err)
	}

	session := model.ConsultSession{
		ID:              uc.newSessionID(),
		InitialQuestion: question,
		Type:            "question",
		Timestamp:       uc.now(),
		Dialog: []model.DialogTurn{
			{Role: "user", Message: question},
			{Role: "bot", Message: answer},
		},
	}
	if err := uc.users.PushToArray(ctx, userID, "previous_requests", session); err != nil {
		uc.log.Error().Err(err).Str("user_id", userID).Msg("failed to persist consultation session")
	}
	return answer, nil
}

// FollowUp continues the user's latest session with an additional question,
// replaying the prior dialog as model context. Without an open session it
// behaves like Ask.
func (uc *ChatUseCase) FollowUp(ctx context.Context, userID, question string) (string, error) {
	if question == "" {
		return "", domain.ErrInvalidArgument
	}
	u, err := uc.users.FindByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return uc.Ask(ctx, userID, question)
	}
	if err != nil {
		return "", fmt.Errorf("load user %s: %w", userID, err)
	}
	last := u.LastSession()
	if last == nil {
		return uc.Ask(ctx, userID, question)
	}

	msgs := []adapter.Message{{Role: "system", Content: legalSystemPrompt}}
	turns := last.Dialog
	if len(turns) > maxHistoryTurns {
		turns = turns[len(turns)-maxHistoryTurns:]
	}
	for _, t := range turns {
		role := "user"
		if t.Role == "bot" {
			role = "assistant"
		}
		msgs = append(msgs, adapter.Message{Role: role, Content: t.Message})
	}
	msgs = append(msgs, adapter.Message{Role: "user", Content: question})

	answer, err := uc.ai.Chat(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("ai chat: %w", err)
	}

	last.Dialog = append(last.Dialog,
		model.DialogTurn{Role: "user", Message: question},
		model.DialogTurn{Role: "bot", Message: answer},
	)
	if err := uc.users.ReplaceArray(ctx, userID, "previous_requests", u.Sessions); err != nil {
		uc.log.Error().Err(err).Str("user_id", userID).Msg("failed to persist follow-up turn")
	}
	return answer, nil
}

// History returns the user's consultation sessions, newest last.
func (uc *ChatUseCase) History(ctx context.Context, userID string) ([]model.ConsultSession, error) {
	u, err := uc.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	return u.Sessions, nil
}
