package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cimillas/rentbook/internal/clock"
	"github.com/cimillas/rentbook/internal/domain"
	"github.com/cimillas/rentbook/internal/gateway"
)

type BookingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetResource(ctx context.Context, resourceID string) (domain.Resource, error)
	GetResourceForUpdate(ctx context.Context, resourceID string) (domain.Resource, error)
	FindOverlapping(ctx context.Context, resourceID string, rng domain.DateRange, excludeBookingID string) (*domain.Booking, error)
	CreateBooking(ctx context.Context, booking domain.Booking) error
	GetBooking(ctx context.Context, bookingID string) (domain.Booking, error)
	SetAccepted(ctx context.Context, bookingID, sessionID string) (bool, error)
	SetPaid(ctx context.Context, bookingID string, amountCents int64, paidAt time.Time) (bool, error)
	SetCancelled(ctx context.Context, bookingID string, from domain.BookingStatus, c domain.Cancellation) (bool, error)
	SetCompleted(ctx context.Context, bookingID string) (bool, error)
}

// WalletCrediter appends an earnings record. The booking repository and the
// wallet repository share the transaction carried in ctx, so the paid
// transition and its credit commit or roll back together.
type WalletCrediter interface {
	CreateEntry(ctx context.Context, entry domain.WalletEntry) error
}

type BookingService struct {
	repo           BookingRepository
	wallet         WalletCrediter
	gateway        gateway.PaymentGateway
	payout         gateway.PayoutProvider
	clock          clock.Clock
	logger         *log.Logger
	gatewayTimeout time.Duration
	currency       string
	successURL     string
	cancelURL      string
}

const defaultGatewayTimeout = 10 * time.Second

type BookingServiceOption func(*BookingService)

// WithGatewayTimeout bounds payment-gateway calls made by the service.
func WithGatewayTimeout(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.gatewayTimeout = d
		}
	}
}

// WithCheckoutURLs sets the redirect targets passed to the payment provider.
func WithCheckoutURLs(successURL, cancelURL string) BookingServiceOption {
	return func(s *BookingService) {
		s.successURL = successURL
		s.cancelURL = cancelURL
	}
}

func WithCurrency(currency string) BookingServiceOption {
	return func(s *BookingService) {
		if currency != "" {
			s.currency = currency
		}
	}
}

func NewBookingService(repo BookingRepository, wallet WalletCrediter, gw gateway.PaymentGateway, payout gateway.PayoutProvider, clk clock.Clock, logger *log.Logger, opts ...BookingServiceOption) *BookingService {
	if logger == nil {
		logger = log.Default()
	}
	svc := &BookingService{
		repo:           repo,
		wallet:         wallet,
		gateway:        gw,
		payout:         payout,
		clock:          clk,
		logger:         logger,
		gatewayTimeout: defaultGatewayTimeout,
		currency:       "USD",
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Availability is the result of an overlap pre-check. The same check runs
// again inside CreateBooking's transaction; this one is advisory.
type Availability struct {
	Available bool
	Conflict  *domain.DateRange
}

func (s *BookingService) CheckAvailability(ctx context.Context, resourceID string, rng domain.DateRange) (Availability, error) {
	if !rng.Valid() {
		return Availability{}, domain.ErrInvalidRange
	}
	if _, err := s.repo.GetResource(ctx, resourceID); err != nil {
		return Availability{}, err
	}
	conflict, err := s.repo.FindOverlapping(ctx, resourceID, rng, "")
	if err != nil {
		return Availability{}, err
	}
	if conflict != nil {
		return Availability{Available: false, Conflict: &conflict.Range}, nil
	}
	return Availability{Available: true}, nil
}

type CreateBookingInput struct {
	ResourceID string
	CustomerID string
	Range      domain.DateRange
}

// CreateBooking inserts a pending booking if no active booking overlaps the
// requested range. The check and the insert run in one transaction with the
// resource row locked, and the bookings table carries an exclusion
// constraint as the final authority, so two concurrent requests for
// overlapping ranges cannot both commit.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (domain.Booking, error) {
	if !in.Range.Valid() {
		return domain.Booking{}, domain.ErrInvalidRange
	}
	if in.CustomerID == "" {
		return domain.Booking{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var result domain.Booking

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		resource, err := s.repo.GetResourceForUpdate(txCtx, in.ResourceID)
		if err != nil {
			return err
		}

		conflict, err := s.repo.FindOverlapping(txCtx, in.ResourceID, in.Range, "")
		if err != nil {
			return err
		}
		if conflict != nil {
			return &domain.UnavailableError{ConflictStart: conflict.Range.Start, ConflictEnd: conflict.Range.End}
		}

		booking := domain.Booking{
			ID:         newID(),
			ResourceID: resource.ID,
			CustomerID: in.CustomerID,
			SellerID:   resource.SellerID,
			Range:      in.Range,
			Status:     domain.BookingStatusPending,
			TotalCents: resource.PricePerDay * in.Range.Days(),
			CreatedAt:  now,
		}

		if err := s.repo.CreateBooking(txCtx, booking); err != nil {
			// The exclusion constraint caught a racing insert the overlap
			// query could not see yet. Re-read to name the winner's range.
			if errors.Is(err, domain.ErrResourceUnavailable) {
				if conflict, rerr := s.repo.FindOverlapping(txCtx, in.ResourceID, in.Range, ""); rerr == nil && conflict != nil {
					return &domain.UnavailableError{ConflictStart: conflict.Range.Start, ConflictEnd: conflict.Range.End}
				}
			}
			return err
		}

		result = booking
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return result, nil
}

// Accept transitions a pending booking to accepted and opens a payment
// session for its total. Only the resource owner (or an admin) may accept.
func (s *BookingService) Accept(ctx context.Context, bookingID string, actor domain.Principal) (string, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return "", err
	}
	if actor.ID != booking.SellerID && !actor.IsAdmin() {
		return "", domain.ErrNotAuthorized
	}
	if booking.Status != domain.BookingStatusPending {
		return "", domain.ErrInvalidStateTransition
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	session, err := s.gateway.CreateSession(gwCtx, gateway.CreateSessionInput{
		Reference:   booking.ID,
		Description: "booking " + booking.ID,
		AmountCents: booking.TotalCents,
		Currency:    s.currency,
		SuccessURL:  s.successURL,
		CancelURL:   s.cancelURL,
		Metadata:    map[string]string{"booking_id": booking.ID},
	})
	if err != nil {
		return "", err
	}

	ok, err := s.repo.SetAccepted(ctx, bookingID, session.ID)
	if err != nil {
		return "", err
	}
	if !ok {
		// Lost a race: the booking left pending between the read and the
		// conditional update. The session stays unused on the provider side.
		return "", domain.ErrInvalidStateTransition
	}
	return session.URL, nil
}

// MarkPaid applies a payment confirmation. It is idempotent: the paid
// transition and its single wallet credit happen only when the conditional
// update wins, and repeat calls on an already-paid booking are no-ops.
func (s *BookingService) MarkPaid(ctx context.Context, bookingID string, amountCents int64) error {
	now := s.clock.Now()

	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		booking, err := s.repo.GetBooking(txCtx, bookingID)
		if err != nil {
			return err
		}

		paid := amountCents
		if paid <= 0 {
			paid = booking.TotalCents
		}

		ok, err := s.repo.SetPaid(txCtx, bookingID, paid, now)
		if err != nil {
			return err
		}
		if !ok {
			// Re-read after the conditional update: a concurrent confirmation
			// may have won while we held the stale pre-read.
			current, err := s.repo.GetBooking(txCtx, bookingID)
			if err != nil {
				return err
			}
			if current.Status == domain.BookingStatusPaid || current.Status == domain.BookingStatusCompleted {
				return nil
			}
			return domain.ErrInvalidStateTransition
		}

		return s.wallet.CreateEntry(txCtx, domain.WalletEntry{
			ID:          newID(),
			SellerID:    booking.SellerID,
			AmountCents: paid,
			Source:      domain.EntrySourceOrder,
			OrderID:     booking.ID,
			Period:      domain.PeriodOf(now),
			CreatedAt:   now,
		})
	})
}

type CancelBookingInput struct {
	BookingID string
	Actor     domain.Principal
	Reason    string
}

/// Cancel keys off the booking's status: a pending booking is released
// outright, a paid booking goes through the refund split, anything else is
// a conflict. Accepted bookings cannot be cancelled; once a payment session
// is open, only the paid refund path applies.
func (s *BookingService) Cancel(ctx context.Context, in CancelBookingInput) (domain.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, in.BookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	if in.Actor.ID != booking.CustomerID && in.Actor.ID != booking.SellerID && !in.Actor.IsAdmin() {
		return domain.Booking{}, domain.ErrNotAuthorized
	}

	now := s.clock.Now()

	switch booking.Status {
	case domain.BookingStatusPending:
		cancellation := domain.Cancellation{Reason: in.Reason, Actor: in.Actor.ID, At: now}
		if err := s.applyCancel(ctx, in.BookingID, domain.BookingStatusPending, cancellation); err != nil {
			return domain.Booking{}, err
		}
		booking.Status = domain.BookingStatusCancelled
		booking.Cancellation = &cancellation
		return booking, nil

	case domain.BookingStatusPaid:
		if !now.Before(booking.Range.Start) {
			return domain.Booking{}, domain.ErrInvalidStateTransition
		}
		refund, retained := domain.RefundSplit(booking.TotalCents)
		cancellation := domain.Cancellation{
			Reason:        in.Reason,
			Actor:         in.Actor.ID,
			At:            now,
			RefundCents:   refund,
			RetainedCents: retained,
		}
		if err := s.applyCancel(ctx, in.BookingID, domain.BookingStatusPaid, cancellation); err != nil {
			return domain.Booking{}, err
		}

		gwCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
		defer cancel()
		if err := s.payout.Refund(gwCtx, gateway.RefundInput{
			SessionID:   booking.PaymentSessionID,
			AmountCents: refund,
			Reason:      in.Reason,
		}); err != nil {
			// The cancellation is committed; the refund is re-issued out of
			// band when the provider call fails.
			s.logger.Printf("WARN: refund for booking %s failed: %v", booking.ID, err)
		}

		booking.Status = domain.BookingStatusCancelled
		booking.Cancellation = &cancellation
		return booking, nil

	default:
		return domain.Booking{}, domain.ErrInvalidStateTransition
	}
}

func (s *BookingService) applyCancel(ctx context.Context, bookingID string, from domain.BookingStatus, c domain.Cancellation) error {
	ok, err := s.repo.SetCancelled(ctx, bookingID, from, c)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidStateTransition
	}
	return nil
}

// Complete flips a paid booking to completed once the rental period has
// ended. Administrative operation.
func (s *BookingService) Complete(ctx context.Context, bookingID string, actor domain.Principal) (domain.Booking, error) {
	if !actor.IsAdmin() {
		return domain.Booking{}, domain.ErrNotAuthorized
	}
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	if s.clock.Now().Before(booking.Range.End) {
		return domain.Booking{}, domain.ErrInvalidStateTransition
	}
	ok, err := s.repo.SetCompleted(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	if !ok {
		return domain.Booking{}, domain.ErrInvalidStateTransition
	}
	booking.Status = domain.BookingStatusCompleted
	return booking, nil
}

// GetBooking exposes a read for transport-level status queries.
func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (domain.Booking, error) {
	return s.repo.GetBooking(ctx, bookingID)
}
