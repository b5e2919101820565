package repository

import (
	"context"

	"telegram-legal-assistant/internal/domain/model"
)

// UserRepository is the port for the per-user document store. Field paths in
// UpdateFields/PushToArray/ReplaceArray use the persisted (bson) names, e.g.
// "subscription_active" or "subscription_info".
type UserRepository interface {
	// Save upserts the user; profile fields are refreshed on conflict while
	// subscription state is preserved.
	Save(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	UpdateFields(ctx context.Context, id string, fields map[string]any) error
	PushToArray(ctx context.Context, id string, field string, item any) error
	ReplaceArray(ctx context.Context, id string, field string, items any) error
	// FindActiveSubscribers returns every user with subscription_active set.
	FindActiveSubscribers(ctx context.Context) ([]*model.User, error)
}
