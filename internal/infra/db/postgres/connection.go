package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-legal-assistant/internal/config"
)

// Connect returns a live *pgxpool.Pool with the schema ensured.
func Connect(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.Connect(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool connect: %w", err)
	}
	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const q = `
CREATE TABLE IF NOT EXISTS pending_payments (
  payment_id TEXT PRIMARY KEY,
  user_id    TEXT NOT NULL,
  tariff     TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
);`
	if _, err := pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("ensure pending_payments table: %w", err)
	}
	return nil
}
