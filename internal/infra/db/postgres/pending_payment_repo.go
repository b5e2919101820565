package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-legal-assistant/internal/domain/model"
	"telegram-legal-assistant/internal/domain/ports/repository"
)

var _ repository.PendingPaymentRepository = (*pendingPaymentRepo)(nil)

type pendingPaymentRepo struct{ pool *pgxpool.Pool }

func NewPendingPaymentRepo(pool *pgxpool.Pool) *pendingPaymentRepo {
	return &pendingPaymentRepo{pool: pool}
}

func (r *pendingPaymentRepo) Save(ctx context.Context, p *model.PendingPayment) error {
	const q = `
INSERT INTO pending_payments (payment_id, user_id, tariff, created_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (payment_id) DO NOTHING;`
	if _, err := r.pool.Exec(ctx, q, p.PaymentID, p.UserID, string(p.Tariff), p.CreatedAt); err != nil {
		return fmt.Errorf("save pending payment %s: %w", p.PaymentID, err)
	}
	return nil
}

func (r *pendingPaymentRepo) Delete(ctx context.Context, paymentID string) error {
	const q = `DELETE FROM pending_payments WHERE payment_id=$1;`
	if _, err := r.pool.Exec(ctx, q, paymentID); err != nil {
		return fmt.Errorf("delete pending payment %s: %w", paymentID, err)
	}
	return nil
}

func (r *pendingPaymentRepo) ListAll(ctx context.Context) ([]*model.PendingPayment, error) {
	const q = `SELECT payment_id, user_id, tariff, created_at FROM pending_payments;`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list pending payments: %w", err)
	}
	defer rows.Close()

	var out []*model.PendingPayment
	for rows.Next() {
		var p model.PendingPayment
		var tariff string
		if err := rows.Scan(&p.PaymentID, &p.UserID, &tariff, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending payment: %w", err)
		}
		p.Tariff = model.Tariff(tariff)
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending payments: %w", err)
	}
	return out, nil
}
