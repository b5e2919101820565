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
	"telegram-legal-assistant/internal/infra/metrics"
)

// Compile-time check
var _ SubscriptionLedger = (*SubscriptionUseCase)(nil)

// SubscriptionLedger is the mutation surface the payment monitor drives.
type SubscriptionLedger interface {
	ActivateOrExtend(ctx context.Context, userID string, tariff model.Tariff, start time.Time) error
	SetPaymentMethod(ctx context.Context, userID, token string) error
}

// SubscriptionUseCase owns subscription state inside user documents:
// activation, extension, deactivation and the daily expiry sweep.
type SubscriptionUseCase struct {
	users    repository.UserRepository
	notifier adapter.Notifier
	duration int // subscription length in days
	warnDays int // renewal warning lead time in days
	log      *zerolog.Logger
	now      func() time.Time
}

func NewSubscriptionUseCase(users repository.UserRepository, notifier adapter.Notifier, durationDays, warnBeforeDays int, logger *zerolog.Logger) *SubscriptionUseCase {
	subLog := logger.With().Str("component", "SubscriptionUC").Logger()
	return &SubscriptionUseCase{
		users:    users,
		notifier: notifier,
		duration: durationDays,
		warnDays: warnBeforeDays,
		log:      &subLog,
		now:      time.Now,
	}
}

// SetNotifier installs the notification sink after the transport is built.
func (uc *SubscriptionUseCase) SetNotifier(n adapter.Notifier) { uc.notifier = n }

// renewalWindow decides which start date gets recorded when a paid window
// overlaps an existing subscription, and where the new end lands. The recorded
// start keeps the original tenure when the prior subscription is still current
// (prior end on or after the new start) and a valid prior start exists. The
// end is always anchored to the new start, regardless of which start survives.
func renewalWindow(existingStart, existingEnd, newStart time.Time, durationDays int) (recordedStart, end time.Time) {
	recordedStart = newStart
	if !existingEnd.IsZero() && !existingStart.IsZero() && !newStart.After(existingEnd) {
		recordedStart = existingStart
	}
	end = newStart.AddDate(0, 0, durationDays)
	return recordedStart, end
}

// ActivateOrExtend activates the tariff for the user starting at the given
// date (zero value means today). A missing user is a logged no-op; a store
// write failure is returned so the caller can retry.
func (uc *SubscriptionUseCase) ActivateOrExtend(ctx context.Context, userID string, tariff model.Tariff, start time.Time) error {
	if !tariff.Valid() {
		return domain.ErrUnknownTariff
	}
	u, err := uc.users.FindByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		uc.log.Warn().Str("user_id", userID).Msg("user not found when updating subscription")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load user %s: %w", userID, err)
	}

	newStart := model.DateOnly(start)
	if start.IsZero() {
		newStart = model.DateOnly(uc.now())
	}

	var existingStart, existingEnd time.Time
	if u.Subscription.Start != "" {
		if d, perr := model.ParseISODate(u.Subscription.Start); perr == nil {
			existingStart = d
		}
	}
	if u.Subscription.End != "" {
		if d, perr := model.ParseISODate(u.Subscription.End); perr == nil {
			existingEnd = d
		}
	}

	recordedStart, end := renewalWindow(existingStart, existingEnd, newStart, uc.duration)

	err = uc.users.UpdateFields(ctx, userID, map[string]any{
		"subscription_active": true,
		"subscription_info": model.SubscriptionInfo{
			Type:  string(tariff),
			Start: model.FormatISODate(recordedStart),
			End:   model.FormatISODate(end),
		},
	})
	if err != nil {
		return fmt.Errorf("update subscription for %s: %w", userID, err)
	}
	metrics.IncSubscriptionActivated(string(tariff))
	uc.log.Info().
		Str("user_id", userID).
		Str("tariff", string(tariff)).
		Str("start", model.FormatISODate(recordedStart)).
		Str("end", model.FormatISODate(end)).
		Msg("subscription updated")
	return nil
}

func (uc *SubscriptionUseCase) SetPaymentMethod(ctx context.Context, userID, token string) error {
	if token == "" {
		return domain.ErrInvalidArgument
	}
	if err := uc.users.UpdateFields(ctx, userID, map[string]any{"payment_method_id": token}); err != nil {
		return fmt.Errorf("set payment method for %s: %w", userID, err)
	}
	return nil
}

// Deactivate clears the active flag and the subscription window.
func (uc *SubscriptionUseCase) Deactivate(ctx context.Context, userID string, removePaymentMethod bool) error {
	fields := map[string]any{
		"subscription_active": false,
		"subscription_info":   model.SubscriptionInfo{},
	}
	if removePaymentMethod {
		fields["payment_method_id"] = nil
	}
	if err := uc.users.UpdateFields(ctx, userID, fields); err != nil {
		return fmt.Errorf("deactivate subscription for %s: %w", userID, err)
	}
	uc.log.Info().Str("user_id", userID).Msg("subscription deactivated")
	return nil
}

// ActiveTariff returns the user's active tier, if any.
func (uc *SubscriptionUseCase) ActiveTariff(ctx context.Context, userID string) (model.Tariff, bool, error) {
	u, err := uc.users.FindByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if !u.SubscriptionActive || u.Subscription.Type == "" {
		return "", false, nil
	}
	return model.Tariff(u.Subscription.Type), true, nil
}

// DailySweep walks all active subscribers once: subscriptions ending today are
// deactivated with an expiry notice; those ending in warnDays get a renewal
// warning and no state change. One user's failure never aborts the sweep.
func (uc *SubscriptionUseCase) DailySweep(ctx context.Context) (expired, warned int, err error) {
	users, err := uc.users.FindActiveSubscribers(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list active subscribers: %w", err)
	}
	today := model.DateOnly(uc.now())
	warnDate := today.AddDate(0, 0, uc.warnDays)

	for _, u := range users {
		if u.Subscription.End == "" {
			continue
		}
		end, perr := model.ParseISODate(u.Subscription.End)
		if perr != nil {
			uc.log.Warn().Str("user_id", u.ID).Str("end", u.Subscription.End).Msg("invalid subscription end date")
			continue
		}
		switch {
		case end.Equal(warnDate):
			uc.notify(ctx, u.ID, msgSubscriptionWarning)
			warned++
		case end.Equal(today):
			if derr := uc.Deactivate(ctx, u.ID, true); derr != nil {
				uc.log.Error().Err(derr).Str("user_id", u.ID).Msg("failed to deactivate expired subscription")
				continue
			}
			expired++
			uc.notify(ctx, u.ID, msgSubscriptionExpired)
		}
	}
	if expired > 0 {
		metrics.AddSubscriptionsExpired(expired)
	}
	uc.log.Info().Int("expired", expired).Int("warned", warned).Msg("daily subscription sweep done")
	return expired, warned, nil
}

// notify is best-effort: delivery failures are logged and swallowed.
func (uc *SubscriptionUseCase) notify(ctx context.Context, userID, text string) {
	if uc.notifier == nil {
		return
	}
	if err := uc.notifier.Send(ctx, userID, text); err != nil {
		metrics.IncNotification("failed")
		uc.log.Error().Err(err).Str("user_id", userID).Msg("failed to send notification")
		return
	}
	metrics.IncNotification("sent")
}
