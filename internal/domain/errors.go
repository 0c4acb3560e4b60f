package domain

import "errors"

var (
	// ErrAccountNotFound is returned when an account cannot be resolved by id or code
	ErrAccountNotFound = errors.New("account not found")

	// ErrEmailTaken is returned when registering with an email that already exists
	ErrEmailTaken = errors.New("email already registered")

	// ErrPurchaseNotFound is returned when a purchase order cannot be resolved
	ErrPurchaseNotFound = errors.New("purchase not found")

	// ErrTransactionNotFound is returned when a ledger transaction cannot be resolved
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInvalidTransition is returned when a purchase status change leaves
	// the pending state more than once; completed/rejected/failed are terminal
	ErrInvalidTransition = errors.New("invalid purchase status transition")

	// ErrValidation is returned for malformed requests before any ledger write
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials is returned on failed login
	ErrInvalidCredentials = errors.New("invalid email or password")
)
