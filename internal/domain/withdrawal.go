package domain

import "time"

type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "pending"
	WithdrawalStatusProcessing WithdrawalStatus = "processing"
	WithdrawalStatusCompleted  WithdrawalStatus = "completed"
	WithdrawalStatusRejected   WithdrawalStatus = "rejected"
	WithdrawalStatusFailed     WithdrawalStatus = "failed"
)

// OpenWithdrawalStatuses are the statuses that still reserve balance.
var OpenWithdrawalStatuses = []WithdrawalStatus{
	WithdrawalStatusPending,
	WithdrawalStatusProcessing,
}

// Terminal reports whether a withdrawal can no longer change state.
func (s WithdrawalStatus) Terminal() bool {
	switch s {
	case WithdrawalStatusCompleted, WithdrawalStatusRejected, WithdrawalStatusFailed:
		return true
	}
	return false
}

// WithdrawalRequest is a seller's request to cash out wallet balance.
type WithdrawalRequest struct {
	ID            string
	SellerID      string
	AmountCents   int64 // always positive
	Status        WithdrawalStatus
	PaymentMethod string
	AdminNote     string
	ProcessedAt   *time.Time
	CreatedAt     time.Time
}
