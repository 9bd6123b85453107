package app

import (
	"context"
	"log"
	"time"

	"github.com/cimillas/rentbook/internal/domain"
	"github.com/cimillas/rentbook/internal/gateway"
)

// BookingPayer is the slice of BookingService the reconciler drives. Both
// the poll path and the webhook path converge on MarkPaid, whose guard is
// an atomic conditional update, so repeated or concurrent confirmations
// collapse to one paid transition and one wallet credit.
type BookingPayer interface {
	MarkPaid(ctx context.Context, bookingID string, amountCents int64) error
}

type BookingLookup interface {
	GetBooking(ctx context.Context, bookingID string) (domain.Booking, error)
	GetBookingBySession(ctx context.Context, sessionID string) (domain.Booking, error)
}

type PaymentService struct {
	bookings       BookingPayer
	lookup         BookingLookup
	gateway        gateway.PaymentGateway
	logger         *log.Logger
	gatewayTimeout time.Duration
}

type PaymentServiceOption func(*PaymentService)

func WithVerifyTimeout(d time.Duration) PaymentServiceOption {
	return func(s *PaymentService) {
		if d > 0 {
			s.gatewayTimeout = d
		}
	}
}

func NewPaymentService(bookings BookingPayer, lookup BookingLookup, gw gateway.PaymentGateway, logger *log.Logger, opts ...PaymentServiceOption) *PaymentService {
	if logger == nil {
		logger = log.Default()
	}
	svc := &PaymentService{
		bookings:       bookings,
		lookup:         lookup,
		gateway:        gw,
		logger:         logger,
		gatewayTimeout: defaultGatewayTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// VerifyBooking polls the provider for a booking's payment session and
// applies the paid transition when the provider reports payment. A gateway
// timeout surfaces as a retryable error without touching state.
func (s *PaymentService) VerifyBooking(ctx context.Context, bookingID string) (domain.Booking, error) {
	booking, err := s.lookup.GetBooking(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	return s.verify(ctx, booking)
}

// VerifySession is the same poll keyed by the provider's session id.
func (s *PaymentService) VerifySession(ctx context.Context, sessionID string) (domain.Booking, error) {
	booking, err := s.lookup.GetBookingBySession(ctx, sessionID)
	if err != nil {
		return domain.Booking{}, err
	}
	return s.verify(ctx, booking)
}

func (s *PaymentService) verify(ctx context.Context, booking domain.Booking) (domain.Booking, error) {
	// Already reconciled; skip the provider round trip.
	if booking.Status == domain.BookingStatusPaid || booking.Status == domain.BookingStatusCompleted {
		return booking, nil
	}
	if booking.PaymentSessionID == "" {
		return booking, nil
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	status, err := s.gateway.RetrieveSession(gwCtx, booking.PaymentSessionID)
	if err != nil {
		return domain.Booking{}, err
	}
	if status.PaymentStatus != gateway.PaymentStatusPaid {
		return booking, nil
	}

	if err := s.bookings.MarkPaid(ctx, booking.ID, status.AmountTotalCents); err != nil {
		return domain.Booking{}, err
	}
	return s.lookup.GetBooking(ctx, booking.ID)
}

// HandleWebhook verifies the provider's signature before trusting the
// payload, then applies the same MarkPaid path as polling. Redelivery of the
// same event any number of times yields one observable effect.
func (s *PaymentService) HandleWebhook(ctx context.Context, rawBody []byte, signatureHeader string) error {
	event, err := s.gateway.VerifyWebhookSignature(rawBody, signatureHeader)
	if err != nil {
		return err
	}

	if event.Type != gateway.EventCheckoutCompleted {
		s.logger.Printf("webhook event %s type=%s ignored", event.ID, event.Type)
		return nil
	}

	booking, err := s.lookup.GetBookingBySession(ctx, event.SessionID)
	if err != nil {
		s.logger.Printf("WARN: webhook event %s references unknown session %s", event.ID, event.SessionID)
		return err
	}

	return s.bookings.MarkPaid(ctx, booking.ID, event.AmountTotalCents)
}
