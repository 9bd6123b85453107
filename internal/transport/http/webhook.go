package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cimillas/rentbook/internal/domain"
)

const signatureHeader = "X-Webhook-Signature"

const maxWebhookBody = 1 << 20 // 1 MiB

// PaymentVerifier is the reconciler surface the payment endpoints need.
type PaymentVerifier interface {
	VerifyBooking(ctx context.Context, bookingID string) (domain.Booking, error)
	HandleWebhook(ctx context.Context, rawBody []byte, signatureHeader string) error
}

type webhookResponse struct {
	Received bool `json:"received"`
}

// HandleWebhook accepts provider payment events. The signature is checked
// before anything in the payload is trusted; failures get a 400 and the
// provider retries. Redelivery is always safe.
func HandleWebhook(svc PaymentVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		if err := svc.HandleWebhook(r.Context(), body, r.Header.Get(signatureHeader)); err != nil {
			// An unknown session is acknowledged as 404 so the provider can
			// tell it apart from a transient failure; nothing else leaks.
			if errors.Is(err, domain.ErrBookingNotFound) {
				writeError(w, http.StatusNotFound, codeBookingNotFound, "no booking for session")
				return
			}
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, webhookResponse{Received: true})
	}
}

type paymentStatusResponse struct {
	Status        string `json:"status"`
	WalletUpdated bool   `json:"wallet_updated"`
}

// HandlePaymentStatus polls the provider for the booking's session and
// reports the reconciled status.
func HandlePaymentStatus(svc PaymentVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requirePrincipal(w, r); !ok {
			return
		}

		booking, err := svc.VerifyBooking(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, paymentStatusResponse{
			Status:        string(booking.Status),
			WalletUpdated: booking.WalletUpdated,
		})
	}
}
