package model

import (
	"time"

	"telegram-legal-assistant/internal/domain"
)

// SubscriptionInfo is the persisted subscription window inside a user document.
// Dates are ISO-8601 calendar dates; all three fields are empty when the user
// has no subscription on record.
type SubscriptionInfo struct {
	Type  string `bson:"type" json:"type"`
	Start string `bson:"start" json:"start"`
	End   string `bson:"end" json:"end"`
}

type DialogTurn struct {
	Role    string `bson:"role" json:"role"` // "user" | "bot"
	Message string `bson:"message" json:"message"`
}

// ConsultSession is one question-and-follow-ups thread in the user's history.
type ConsultSession struct {
	ID              string       `bson:"id" json:"id"`
	InitialQuestion string       `bson:"initial_question" json:"initial_question"`
	Type            string       `bson:"type" json:"type"` // "question" | "document"
	Dialog          []DialogTurn `bson:"dialog" json:"dialog"`
	Timestamp       time.Time    `bson:"timestamp" json:"timestamp"`
	DocumentRating  string       `bson:"document_rating,omitempty" json:"document_rating,omitempty"`
}

// User is the document stored per Telegram user, keyed by the stringified
// Telegram chat id.
type User struct {
	ID                 string           `bson:"_id" json:"id"`
	FirstName          string           `bson:"first_name" json:"first_name"`
	LastName           string           `bson:"last_name" json:"last_name"`
	Username           string           `bson:"username" json:"username"`
	SubscriptionActive bool             `bson:"subscription_active" json:"subscription_active"`
	Subscription       SubscriptionInfo `bson:"subscription_info" json:"subscription_info"`
	PaymentMethodID    string           `bson:"payment_method_id,omitempty" json:"payment_method_id,omitempty"`
	Sessions           []ConsultSession `bson:"previous_requests" json:"previous_requests"`
	AgreementTime      *time.Time       `bson:"agreement_time,omitempty" json:"agreement_time,omitempty"`
	RegisteredAt       time.Time        `bson:"registered_at" json:"registered_at"`
}

func NewUser(id, firstName, lastName, username string) (*User, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		ID:           id,
		FirstName:    firstName,
		LastName:     lastName,
		Username:     username,
		RegisteredAt: time.Now(),
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

// HasTariff reports whether the user holds an active subscription of the tier.
func (u *User) HasTariff(t Tariff) bool {
	return u != nil && u.SubscriptionActive && u.Subscription.Type == string(t)
}

func (u *User) HasAcceptedAgreement() bool { return u != nil && u.AgreementTime != nil }

// LastSession returns the most recent consultation thread, or nil.
func (u *User) LastSession() *ConsultSession {
	if u == nil || len(u.Sessions) == 0 {
		return nil
	}
	return &u.Sessions[len(u.Sessions)-1]
}
