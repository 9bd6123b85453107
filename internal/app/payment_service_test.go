package app

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/cimillas/rentbook/internal/domain"
	"github.com/cimillas/rentbook/internal/gateway"
)

func TestPaymentService_VerifyBooking(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	testLogger := log.New(io.Discard, "", 0)

	accepted := domain.Booking{
		ID:               "bk-1",
		SellerID:         "seller-1",
		Status:           domain.BookingStatusAccepted,
		TotalCents:       15000,
		PaymentSessionID: "sess-1",
	}

	t.Run("provider reports paid, booking transitions", func(t *testing.T) {
		repo := newFakeBookingRepo()
		repo.bookings["bk-1"] = accepted
		wallet := newFakeWallet()
		gw := &fakeGateway{status: gateway.SessionStatus{PaymentStatus: gateway.PaymentStatusPaid, AmountTotalCents: 15000}}
		bookings := newTestBookingService(repo, wallet, gw, &fakePayout{}, now)
		svc := NewPaymentService(bookings, repo, gw, testLogger)

		booking, err := svc.VerifyBooking(context.Background(), "bk-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if booking.Status != domain.BookingStatusPaid {
			t.Fatalf("expected paid, got %s", booking.Status)
		}
		if entries := wallet.entriesFor("seller-1"); len(entries) != 1 {
			t.Fatalf("expected one wallet entry, got %d", len(entries))
		}
	})

	t.Run("provider reports unpaid, booking untouched", func(t *testing.T) {
		repo := newFakeBookingRepo()
		repo.bookings["bk-1"] = accepted
		gw := &fakeGateway{status: gateway.SessionStatus{PaymentStatus: gateway.PaymentStatusUnpaid}}
		bookings := newTestBookingService(repo, newFakeWallet(), gw, &fakePayout{}, now)
		svc := NewPaymentService(bookings, repo, gw, testLogger)

		booking, err := svc.VerifyBooking(context.Background(), "bk-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if booking.Status != domain.BookingStatusAccepted {
			t.Fatalf("expected still accepted, got %s", booking.Status)
		}
	})

	t.Run("already paid skips the provider round trip", func(t *testing.T) {
		paid := accepted
		paid.Status = domain.BookingStatusPaid
		repo := newFakeBookingRepo()
		repo.bookings["bk-1"] = paid
		gw := &fakeGateway{retrieveErr: errors.New("should not be called")}
		bookings := newTestBookingService(repo, newFakeWallet(), gw, &fakePayout{}, now)
		svc := NewPaymentService(bookings, repo, gw, testLogger)

		booking, err := svc.VerifyBooking(context.Background(), "bk-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if booking.Status != domain.BookingStatusPaid {
			t.Fatalf("expected paid, got %s", booking.Status)
		}
	})

	t.Run("no session yet means nothing to verify", func(t *testing.T) {
		pending := domain.Booking{ID: "bk-1", Status: domain.BookingStatusPending}
		repo := newFakeBookingRepo()
		repo.bookings["bk-1"] = pending
		gw := &fakeGateway{retrieveErr: errors.New("should not be called")}
		bookings := newTestBookingService(repo, newFakeWallet(), gw, &fakePayout{}, now)
		svc := NewPaymentService(bookings, repo, gw, testLogger)

		booking, err := svc.VerifyBooking(context.Background(), "bk-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if booking.Status != domain.BookingStatusPending {
			t.Fatalf("expected pending, got %s", booking.Status)
		}
	})

	t.Run("gateway outage surfaces without touching state", func(t *testing.T) {
		repo := newFakeBookingRepo()
		repo.bookings["bk-1"] = accepted
		gw := &fakeGateway{retrieveErr: domain.ErrGatewayUnavailable}
		bookings := newTestBookingService(repo, newFakeWallet(), gw, &fakePayout{}, now)
		svc := NewPaymentService(bookings, repo, gw, testLogger)

		_, err := svc.VerifyBooking(context.Background(), "bk-1")
		if !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
		}
		if got := repo.bookings["bk-1"]; got.Status != domain.BookingStatusAccepted {
			t.Fatalf("expected booking untouched, got %s", got.Status)
		}
	})

	t.Run("missing booking", func(t *testing.T) {
		repo := newFakeBookingRepo()
		bookings := newTestBookingService(repo, newFakeWallet(), &fakeGateway{}, &fakePayout{}, now)
		svc := NewPaymentService(bookings, repo, &fakeGateway{}, testLogger)

		_, err := svc.VerifyBooking(context.Background(), "missing")
		if !errors.Is(err, domain.ErrBookingNotFound) {
			t.Fatalf("expected ErrBookingNotFound, got %v", err)
		}
	})
}

func TestPaymentService_HandleWebhook(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	testLogger := log.New(io.Discard, "", 0)

	accepted := domain.Booking{
		ID:               "bk-1",
		SellerID:         "seller-1",
		Status:           domain.BookingStatusAccepted,
		TotalCents:       15000,
		PaymentSessionID: "sess-1",
	}

	t.Run("completed event marks booking paid", func(t *testing.T) {
		repo := newFakeBookingRepo()
		repo.bookings["bk-1"] = accepted
		wallet := newFakeWallet()
		gw := &fakeGateway{event: gateway.Event{
			ID: "evt-1", Type: gateway.EventCheckoutCompleted, SessionID: "sess-1", AmountTotalCents: 15000,
		}}
		bookings := newTestBookingService(repo, wallet, gw, &fakePayout{}, now)
		svc := NewPaymentService(bookings, repo, gw, testLogger)

		if err := svc.HandleWebhook(context.Background(), []byte(`{}`), "sig"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := repo.bookings["bk-1"]; got.Status != domain.BookingStatusPaid {
			t.Fatalf("expected paid, got %s", got.Status)
		}
		if entries := wallet.entriesFor("seller-1"); len(entries) != 1 {
			t.Fatalf("expected one wallet entry, got %d", len(entries))
		}
	})

	t.Run("redelivered event credits only once", func(t *testing.T) {
		repo := newFakeBookingRepo()
		repo.bookings["bk-1"] = accepted
		wallet := newFakeWallet()
		gw := &fakeGateway{event: gateway.Event{
			ID: "evt-1", Type: gateway.EventCheckoutCompleted, SessionID: "sess-1", AmountTotalCents: 15000,
		}}
		bookings := newTestBookingService(repo, wallet, gw, &fakePayout{}, now)
		svc := NewPaymentService(bookings, repo, gw, testLogger)

		for i := 0; i < 3; i++ {
			if err := svc.HandleWebhook(context.Background(), []byte(`{}`), "sig"); err != nil {
				t.Fatalf("delivery %d: %v", i, err)
			}
		}
		if entries := wallet.entriesFor("seller-1"); len(entries) != 1 {
			t.Fatalf("expected one wallet entry after redeliveries, got %d", len(entries))
		}
	})

	t.Run("bad signature rejected", func(t *testing.T) {
		repo := newFakeBookingRepo()
		repo.bookings["bk-1"] = accepted
		gw := &fakeGateway{verifyErr: domain.ErrInvalidSignature}
		bookings := newTestBookingService(repo, newFakeWallet(), gw, &fakePayout{}, now)
		svc := NewPaymentService(bookings, repo, gw, testLogger)

		err := svc.HandleWebhook(context.Background(), []byte(`{}`), "bad")
		if !errors.Is(err, domain.ErrInvalidSignature) {
			t.Fatalf("expected ErrInvalidSignature, got %v", err)
		}
		if got := repo.bookings["bk-1"]; got.Status != domain.BookingStatusAccepted {
			t.Fatalf("expected booking untouched, got %s", got.Status)
		}
	})

	t.Run("unrelated event type acknowledged without effect", func(t *testing.T) {
		repo := newFakeBookingRepo()
		repo.bookings["bk-1"] = accepted
		gw := &fakeGateway{event: gateway.Event{ID: "evt-2", Type: "charge.updated", SessionID: "sess-1"}}
		bookings := newTestBookingService(repo, newFakeWallet(), gw, &fakePayout{}, now)
		svc := NewPaymentService(bookings, repo, gw, testLogger)

		if err := svc.HandleWebhook(context.Background(), []byte(`{}`), "sig"); err != nil {
			t.Fatalf("expected ack, got %v", err)
		}
		if got := repo.bookings["bk-1"]; got.Status != domain.BookingStatusAccepted {
			t.Fatalf("expected booking untouched, got %s", got.Status)
		}
	})

	t.Run("unknown session surfaces not found", func(t *testing.T) {
		repo := newFakeBookingRepo()
		gw := &fakeGateway{event: gateway.Event{
			ID: "evt-3", Type: gateway.EventCheckoutCompleted, SessionID: "sess-unknown",
		}}
		bookings := newTestBookingService(repo, newFakeWallet(), gw, &fakePayout{}, now)
		svc := NewPaymentService(bookings, repo, gw, testLogger)

		err := svc.HandleWebhook(context.Background(), []byte(`{}`), "sig")
		if !errors.Is(err, domain.ErrBookingNotFound) {
			t.Fatalf("expected ErrBookingNotFound, got %v", err)
		}
	})
}
