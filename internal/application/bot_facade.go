package application

import (
	"context"
	"fmt"
	"strings"

	"telegram-legal-assistant/internal/domain/model"
	"telegram-legal-assistant/internal/usecase"
)

// BotFacade composes usecases into high-level bot commands. Facade methods
// return ready-to-send strings so the Telegram adapter just forwards them.
type BotFacade struct {
	UserUC *usecase.UserUseCase
	SubUC  *usecase.SubscriptionUseCase
	PayUC  *usecase.PaymentUseCase
	ChatUC *usecase.ChatUseCase
	DocUC  *usecase.DocumentUseCase
}

func NewBotFacade(
	userUC *usecase.UserUseCase,
	subUC *usecase.SubscriptionUseCase,
	payUC *usecase.PaymentUseCase,
	chatUC *usecase.ChatUseCase,
	docUC *usecase.DocumentUseCase,
) *BotFacade {
	return &BotFacade{
		UserUC: userUC,
		SubUC:  subUC,
		PayUC:  payUC,
		ChatUC: chatUC,
		DocUC:  docUC,
	}
}

// HandleStart registers or refreshes the user and returns the greeting.
func (b *BotFacade) HandleStart(ctx context.Context, userID, firstName, lastName, username string) (string, error) {
	u, err := b.UserUC.RegisterOrFetch(ctx, userID, firstName, lastName, username)
	if err != nil {
		return "", fmt.Errorf("register user: %w", err)
	}
	name := u.FirstName
	if name == "" {
		name = "there"
	}
	if !u.HasAcceptedAgreement() {
		return fmt.Sprintf(
			"Hello, %s! I am a legal assistant bot.\n\n"+
				"Before we start, please accept the service agreement with /agree.\n"+
				"I answer legal questions and draft documents for subscribers.", name), nil
	}
	return fmt.Sprintf("Welcome back, %s! Ask a question with /ask or open the menu with /menu.", name), nil
}

// HandleAgree records agreement acceptance.
func (b *BotFacade) HandleAgree(ctx context.Context, userID string) (string, error) {
	if err := b.UserUC.AcceptAgreement(ctx, userID); err != nil {
		return "", err
	}
	return "Thank you! The agreement is accepted. Use /tariffs to choose a subscription.", nil
}

// HandleTariffs lists purchasable tariffs.
func (b *BotFacade) HandleTariffs(ctx context.Context) (string, error) {
	var sb strings.Builder
	sb.WriteString("Available subscriptions (30 days each):\n\n")
	for _, t := range []model.Tariff{model.TariffBasic, model.TariffPremium} {
		fmt.Fprintf(&sb, "• %s\n", t.DisplayName())
	}
	sb.WriteString("\nPick one with the buttons below or /buy <tariff>.")
	return sb.String(), nil
}

// HandleBuy starts a purchase and returns the confirmation link.
func (b *BotFacade) HandleBuy(ctx context.Context, userID string, tariff model.Tariff) (string, error) {
	url, err := b.PayUC.InitiatePurchase(ctx, userID, tariff)
	if err != nil {
		return "", fmt.Errorf("initiate purchase: %w", err)
	}
	return fmt.Sprintf(
		"To activate %s, complete the payment here:\n%s\n\n"+
			"I will message you as soon as the payment goes through.",
		tariff.DisplayName(), url), nil
}

// HandleStatus reports the user's subscription window.
func (b *BotFacade) HandleStatus(ctx context.Context, userID string) (string, error) {
	u, err := b.UserUC.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if !u.SubscriptionActive {
		return "You have no active subscription. Use /tariffs to see the options.", nil
	}
	t, _ := model.ParseTariff(u.Subscription.Type)
	return fmt.Sprintf("Subscription: %s\nActive from %s until %s.",
		t.DisplayName(), u.Subscription.Start, u.Subscription.End), nil
}

// HandleCheckPayment forces a poll pass and reports what is still pending.
func (b *BotFacade) HandleCheckPayment(ctx context.Context, userID string) (string, error) {
	pending, err := b.PayUC.CheckUserPayments(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(pending) == 0 {
		return "No payments are waiting. If you just paid, the confirmation message arrives within a minute.", nil
	}
	var sb strings.Builder
	for _, p := range pending {
		sb.WriteString(usecase.FormatPendingSummary(p))
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// HandleAsk answers a legal question as a new consultation.
func (b *BotFacade) HandleAsk(ctx context.Context, userID, question string) (string, error) {
	return b.ChatUC.Ask(ctx, userID, question)
}

// HandleFollowUp continues the latest consultation.
func (b *BotFacade) HandleFollowUp(ctx context.Context, userID, question string) (string, error) {
	return b.ChatUC.FollowUp(ctx, userID, question)
}

// HandleDocument drafts a document of the kind from the user's description.
func (b *BotFacade) HandleDocument(ctx context.Context, userID string, kind model.DocumentKind, details string) ([]byte, string, error) {
	return b.DocUC.Draft(ctx, userID, kind, details)
}

// HandleHistory renders a short list of past consultations.
func (b *BotFacade) HandleHistory(ctx context.Context, userID string) (string, error) {
	sessions, err := b.ChatUC.History(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(sessions) == 0 {
		return "You have no consultations yet. Start one with /ask.", nil
	}
	var sb strings.Builder
	sb.WriteString("Your recent consultations:\n\n")
	start := 0
	if len(sessions) > 10 {
		start = len(sessions) - 10
	}
	for _, s := range sessions[start:] {
		q := s.InitialQuestion
		if len(q) > 60 {
			q = q[:57] + "..."
		}
		fmt.Fprintf(&sb, "• [%s] %s\n", s.Timestamp.Format("2006-01-02"), q)
	}
	return sb.String(), nil
}

// RequireSubscription checks the user may use paid features. Returns an empty
// string when allowed, otherwise the refusal text to send.
func (b *BotFacade) RequireSubscription(ctx context.Context, userID string) (string, error) {
	_, active, err := b.SubUC.ActiveTariff(ctx, userID)
	if err != nil {
		return "", err
	}
	if !active {
		return "This feature needs an active subscription. See /tariffs.", nil
	}
	return "", nil
}
