package model

import (
	"time"

	"telegram-legal-assistant/internal/domain"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // awaiting settlement at the provider
	PaymentStatusSucceeded PaymentStatus = "succeeded" // funds captured
	PaymentStatusCanceled  PaymentStatus = "canceled"  // rejected or voided by user/provider
	PaymentStatusUnknown   PaymentStatus = "unknown"   // provider returned something we don't map
)

// PendingPayment is one charge awaiting terminal resolution. Entries are owned
// by the payment monitor and mirrored in the durable pending store so a process
// restart does not lose track of in-flight charges.
type PendingPayment struct {
	PaymentID string
	UserID    string
	Tariff    Tariff
	CreatedAt time.Time
}

func NewPendingPayment(paymentID, userID string, tariff Tariff, createdAt time.Time) (*PendingPayment, error) {
	if paymentID == "" || userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !tariff.Valid() {
		return nil, domain.ErrUnknownTariff
	}
	return &PendingPayment{
		PaymentID: paymentID,
		UserID:    userID,
		Tariff:    tariff,
		CreatedAt: createdAt,
	}, nil
}

func (p *PendingPayment) Age(now time.Time) time.Duration { return now.Sub(p.CreatedAt) }

// ChargeResult is what the gateway returns when a charge is created.
type ChargeResult struct {
	PaymentID       string
	ConfirmationURL string // empty for recurring charges
	Status          PaymentStatus
}

// StatusResult is a point-in-time snapshot of a charge at the provider.
// The subscription window fields are set only on success and use the
// gateway wire date layout (DateWire).
type StatusResult struct {
	Status            PaymentStatus
	UserID            string
	Tariff            Tariff
	SubscriptionStart string
	SubscriptionEnd   string
	PaymentMethodID   string // reusable credential token, optional
}
