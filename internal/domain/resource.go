package domain

import "time"

// Resource is a rentable asset owned by a seller. Availability is derived
// from its active bookings, never stored on the resource itself.
type Resource struct {
	ID          string
	SellerID    string
	Name        string
	PricePerDay int64 // cents
	CreatedAt   time.Time
}
