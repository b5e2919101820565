package repository

import (
	"context"

	"telegram-legal-assistant/internal/domain/model"
)

// PendingPaymentRepository persists the monitor's pending set so in-flight
// charges survive a process restart. The in-memory map stays the source of
// truth while the process lives; this store is replayed once at startup.
type PendingPaymentRepository interface {
	Save(ctx context.Context, p *model.PendingPayment) error
	Delete(ctx context.Context, paymentID string) error
	ListAll(ctx context.Context) ([]*model.PendingPayment, error)
}
