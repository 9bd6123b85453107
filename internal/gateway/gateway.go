package gateway

import "context"

// PaymentStatus values reported by the payment provider for a session.
const (
	PaymentStatusPaid   = "paid"
	PaymentStatusUnpaid = "unpaid"
)

// EventCheckoutCompleted is the webhook event type that confirms payment.
const EventCheckoutCompleted = "checkout.session.completed"

// CreateSessionInput describes the checkout session to open for a booking.
type CreateSessionInput struct {
	Reference   string // booking id, echoed back in webhook metadata
	Description string
	AmountCents int64
	Currency    string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// Session is a provider-hosted checkout session.
type Session struct {
	ID  string
	URL string
}

// SessionStatus is the provider's view of a session when polled.
type SessionStatus struct {
	PaymentStatus    string
	AmountTotalCents int64
}

// Event is a verified webhook payload.
type Event struct {
	ID               string
	Type             string
	SessionID        string
	AmountTotalCents int64
}

// PaymentGateway is the payment provider surface this service consumes.
// Implementations must bound every call; a timeout is reported as
// domain.ErrGatewayUnavailable and never leaves partial state behind.
type PaymentGateway interface {
	CreateSession(ctx context.Context, in CreateSessionInput) (Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (SessionStatus, error)
	VerifyWebhookSignature(rawBody []byte, signatureHeader string) (Event, error)
}

// TransferInput describes a payout to a seller's external destination.
type TransferInput struct {
	Reference   string // withdrawal id
	AmountCents int64
	Method      string
	Destination string
}

// TransferAck is the provider's acknowledgement of a payout transfer.
type TransferAck struct {
	TransferID string
}

// RefundInput describes a partial refund of a paid session.
type RefundInput struct {
	SessionID   string
	AmountCents int64
	Reason      string
}

// PayoutProvider executes outbound money movement: withdrawal transfers and
// booking-cancellation refunds.
type PayoutProvider interface {
	Transfer(ctx context.Context, in TransferInput) (TransferAck, error)
	Refund(ctx context.Context, in RefundInput) error
}
