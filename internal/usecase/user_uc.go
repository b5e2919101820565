package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"telegram-legal-assistant/internal/domain"
	"telegram-legal-assistant/internal/domain/model"
	"telegram-legal-assistant/internal/domain/ports/repository"
	"telegram-legal-assistant/internal/infra/logging"
)

// UserUseCase handles registration and profile state for Telegram users.
type UserUseCase struct {
	users repository.UserRepository
	log   *zerolog.Logger
	now   func() time.Time
}

func NewUserUseCase(users repository.UserRepository, logger *zerolog.Logger) *UserUseCase {
	userLog := logger.With().Str("component", "UserUC").Logger()
	return &UserUseCase{users: users, log: &userLog, now: time.Now}
}

// RegisterOrFetch upserts the user's profile and returns their document.
// Subscription state survives re-registration.
func (uc *UserUseCase) RegisterOrFetch(ctx context.Context, id, firstName, lastName, username string) (*model.User, error) {
	defer logging.TraceDuration(uc.log, "UserUC.RegisterOrFetch")()
	existing, err := uc.users.FindByID(ctx, id)
	if err == nil {
		if existing.FirstName != firstName || existing.LastName != lastName || existing.Username != username {
			if err := uc.users.UpdateFields(ctx, id, map[string]any{
				"first_name": firstName,
				"last_name":  lastName,
				"username":   username,
			}); err != nil {
				uc.log.Warn().Err(err).Str("user_id", id).Msg("failed to refresh profile fields")
			}
			existing.FirstName, existing.LastName, existing.Username = firstName, lastName, username
		}
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("load user %s: %w", id, err)
	}

	u, err := model.NewUser(id, firstName, lastName, username)
	if err != nil {
		return nil, err
	}
	if err := uc.users.Save(ctx, u); err != nil {
		return nil, fmt.Errorf("save user %s: %w", id, err)
	}
	uc.log.Info().Str("user_id", id).Str("username", username).Msg("new user registered")
	return u, nil
}

// AcceptAgreement records the moment the user accepted the service terms.
func (uc *UserUseCase) AcceptAgreement(ctx context.Context, id string) error {
	if err := uc.users.UpdateFields(ctx, id, map[string]any{"agreement_time": uc.now()}); err != nil {
		return fmt.Errorf("record agreement for %s: %w", id, err)
	}
	return nil
}

// Get returns the user's document.
func (uc *UserUseCase) Get(ctx context.Context, id string) (*model.User, error) {
	return uc.users.FindByID(ctx, id)
}
