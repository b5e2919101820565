package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnknownTariff   = errors.New("unknown tariff")
	ErrNoPaymentMethod = errors.New("no stored payment method")
)
