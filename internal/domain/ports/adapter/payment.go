package adapter

import (
	"context"

	"telegram-legal-assistant/internal/domain/model"
)

// PaymentGateway is the hex port for the external payment provider.
type PaymentGateway interface {
	Name() string

	// CreateCharge creates a redirect-confirmed charge for the tariff's price.
	// A fresh idempotence key is generated per call; every call represents a
	// genuinely new purchase attempt.
	CreateCharge(ctx context.Context, userID string, tariff model.Tariff) (*model.ChargeResult, error)

	// QueryStatus is a pure read of the charge's current state. Provider
	// errors are returned as errors, never reported as "pending".
	QueryStatus(ctx context.Context, paymentID string) (*model.StatusResult, error)

	// CreateRecurringCharge charges a stored credential token. No redirect URL
	// is produced; settlement is observed through QueryStatus like any charge.
	CreateRecurringCharge(ctx context.Context, userID string, tariff model.Tariff, paymentMethodID string) (*model.ChargeResult, error)
}
