package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"telegram-legal-assistant/internal/domain"
	"telegram-legal-assistant/internal/domain/model"
	"telegram-legal-assistant/internal/domain/ports/adapter"
	"telegram-legal-assistant/internal/domain/ports/repository"
	"telegram-legal-assistant/internal/infra/logging"
	"telegram-legal-assistant/internal/infra/metrics"
)

// PaymentUseCase is the user-facing purchase flow: it creates charges through
// the gateway, hands them to the monitor for settlement tracking, and answers
// "what is my payment doing" questions without exposing provider detail.
type PaymentUseCase struct {
	gateway adapter.PaymentGateway
	monitor *PaymentMonitor
	users   repository.UserRepository
	log     *zerolog.Logger
}

func NewPaymentUseCase(gateway adapter.PaymentGateway, monitor *PaymentMonitor, users repository.UserRepository, logger *zerolog.Logger) *PaymentUseCase {
	ucLog := logger.With().Str("component", "PaymentUC").Logger()
	return &PaymentUseCase{
		gateway: gateway,
		monitor: monitor,
		users:   users,
		log:     &ucLog,
	}
}

// InitiatePurchase creates a charge for the tariff and returns the URL the
// user must open to confirm it. The charge is registered with the monitor
// before the URL is returned, so settlement tracking starts immediately.
func (uc *PaymentUseCase) InitiatePurchase(ctx context.Context, userID string, tariff model.Tariff) (string, error) {
	defer logging.TraceDuration(uc.log, "PaymentUC.InitiatePurchase")()
	if !tariff.Valid() {
		return "", domain.ErrUnknownTariff
	}

	charge, err := uc.gateway.CreateCharge(ctx, userID, tariff)
	if err != nil {
		return "", fmt.Errorf("create charge: %w", err)
	}
	metrics.IncPaymentCreated(string(tariff))

	if err := uc.monitor.Register(ctx, charge.PaymentID, userID, tariff); err != nil {
		// The charge exists at the provider but is not tracked. Surface the
		// error; the user can retry and the untracked charge simply lapses.
		return "", fmt.Errorf("register payment %s: %w", charge.PaymentID, err)
	}

	uc.log.Info().
		Str("user_id", userID).
		Str("payment_id", charge.PaymentID).
		Str("tariff", string(tariff)).
		Msg("purchase initiated")
	return charge.ConfirmationURL, nil
}

// CheckUserPayments forces a poll pass and reports the user's remaining
// in-flight payments. The summary carries no provider status detail; terminal
// outcomes are delivered through notifications, not through this call.
func (uc *PaymentUseCase) CheckUserPayments(ctx context.Context, userID string) ([]PendingSummary, error) {
	before := uc.monitor.UserPending(userID)
	if len(before) == 0 {
		return nil, nil
	}
	uc.monitor.PollOnce(ctx)
	return uc.monitor.UserPending(userID), nil
}

// Rebill charges the user's stored payment method for a renewal and registers
// the resulting payment for settlement tracking like any first purchase.
func (uc *PaymentUseCase) Rebill(ctx context.Context, userID string, tariff model.Tariff) error {
	if !tariff.Valid() {
		return domain.ErrUnknownTariff
	}
	u, err := uc.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user %s: %w", userID, err)
	}
	if u.PaymentMethodID == "" {
		return domain.ErrNoPaymentMethod
	}

	charge, err := uc.gateway.CreateRecurringCharge(ctx, userID, tariff, u.PaymentMethodID)
	if err != nil {
		return fmt.Errorf("create recurring charge: %w", err)
	}
	metrics.IncPaymentCreated(string(tariff))

	if err := uc.monitor.Register(ctx, charge.PaymentID, userID, tariff); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		return fmt.Errorf("register recurring payment %s: %w", charge.PaymentID, err)
	}

	uc.log.Info().
		Str("user_id", userID).
		Str("payment_id", charge.PaymentID).
		Str("tariff", string(tariff)).
		Msg("recurring charge issued")
	return nil
}

// FormatPendingSummary renders the user-facing line for one pending payment.
func FormatPendingSummary(s PendingSummary) string {
	return fmt.Sprintf("⏳ %s payment created %s ago is still being processed.",
		s.Tariff.DisplayName(), s.Age.Round(time.Second))
}
