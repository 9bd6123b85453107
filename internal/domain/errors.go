package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrResourceNotFound       = errors.New("resource not found")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrWithdrawalNotFound     = errors.New("withdrawal not found")
	ErrInvalidID              = errors.New("invalid id")
	ErrInvalidRange           = errors.New("invalid date range")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrInvalidSource          = errors.New("invalid wallet entry source")
	ErrPaymentMethodRequired  = errors.New("payment method required")
	ErrResourceNameRequired   = errors.New("resource name required")
	ErrInvalidPrice           = errors.New("price must be positive")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrNotAuthorized          = errors.New("not authorized")
	ErrResourceUnavailable    = errors.New("resource unavailable for the requested range")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrAlreadyProcessed       = errors.New("withdrawal already processed")
	ErrInvalidSignature       = errors.New("webhook signature verification failed")
	ErrGatewayUnavailable     = errors.New("payment gateway unavailable")
	ErrIntegrity              = errors.New("ledger integrity violation")
)

// UnavailableError reports the booking that blocks the requested range.
// It matches ErrResourceUnavailable under errors.Is.
type UnavailableError struct {
	ConflictStart time.Time
	ConflictEnd   time.Time
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("resource unavailable: conflicts with booking from %s to %s",
		e.ConflictStart.Format(time.RFC3339), e.ConflictEnd.Format(time.RFC3339))
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrResourceUnavailable
}

// InsufficientFundsError carries the balance available at rejection time.
// It matches ErrInsufficientFunds under errors.Is.
type InsufficientFundsError struct {
	AvailableCents int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available balance is %s", FormatCents(e.AvailableCents))
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}
