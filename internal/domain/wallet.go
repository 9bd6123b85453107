package domain

import "time"

type EntrySource string

const (
	EntrySourceOrder      EntrySource = "order"
	EntrySourceRefund     EntrySource = "refund"
	EntrySourceAdjustment EntrySource = "adjustment"
)

func ValidEntrySource(s EntrySource) bool {
	switch s {
	case EntrySourceOrder, EntrySourceRefund, EntrySourceAdjustment:
		return true
	}
	return false
}

// WalletEntry is one append-only earnings record. Entries are never mutated
// or deleted once written.
type WalletEntry struct {
	ID          string
	SellerID    string
	AmountCents int64 // always positive
	Source      EntrySource
	OrderID     string // booking id for order/refund entries, empty otherwise
	Period      string // YYYY-MM bucket of the credit time
	CreatedAt   time.Time
}

// PeriodOf buckets a credit time into its YYYY-MM period.
func PeriodOf(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Balance is a seller's derived wallet position.
// Available = Total - Pending, where Pending is the sum of open withdrawals.
type Balance struct {
	SellerID       string
	TotalCents     int64
	PendingCents   int64
	AvailableCents int64
}
