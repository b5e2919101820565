package model

import "telegram-legal-assistant/internal/domain"

// Tariff is a named subscription tier with an associated price.
type Tariff string

const (
	TariffBasic   Tariff = "basic"
	TariffPremium Tariff = "premium"
)

func ParseTariff(s string) (Tariff, error) {
	switch Tariff(s) {
	case TariffBasic, TariffPremium:
		return Tariff(s), nil
	}
	return "", domain.ErrUnknownTariff
}

func (t Tariff) Valid() bool {
	_, err := ParseTariff(string(t))
	return err == nil
}

// DisplayName is the user-facing tier name shown in chat messages.
func (t Tariff) DisplayName() string {
	switch t {
	case TariffBasic:
		return "Consultation"
	case TariffPremium:
		return "Full Service"
	}
	return string(t)
}
