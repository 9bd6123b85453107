package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusAccepted  BookingStatus = "accepted"
	BookingStatusPaid      BookingStatus = "paid"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// ActiveBookingStatuses are the statuses that block a resource's calendar.
// Cancelled bookings release their range.
var ActiveBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusAccepted,
	BookingStatusPaid,
	BookingStatusCompleted,
}

// DateRange is a half-open interval [Start, End): the end instant is free
// for the next booking.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open ranges share any instant.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Days is the number of billable days, rounding partial days up.
func (r DateRange) Days() int64 {
	d := r.End.Sub(r.Start)
	days := int64(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}

func (r DateRange) Valid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && r.Start.Before(r.End)
}

// Cancellation records how and why a booking left the active set.
type Cancellation struct {
	Reason        string
	Actor         string
	At            time.Time
	RefundCents   int64
	RetainedCents int64
}

// Booking reserves a resource for a date range. A booking is never hard
// deleted; cancelled and completed bookings are retained for audit.
type Booking struct {
	ID         string
	ResourceID string
	CustomerID string
	SellerID   string
	Range      DateRange
	Status     BookingStatus
	TotalCents int64

	// Payment session, set when the seller accepts.
	PaymentSessionID string
	AmountPaidCents  int64
	PaidAt           *time.Time

	// WalletUpdated flips false -> true exactly once, inside the same
	// transaction that records the seller's earnings.
	WalletUpdated bool

	Cancellation *Cancellation
	CreatedAt    time.Time
}
