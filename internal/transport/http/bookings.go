package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/cimillas/rentbook/internal/app"
	"github.com/cimillas/rentbook/internal/domain"
)

// BookingService is the minimal surface the booking endpoints need.
type BookingService interface {
	CheckAvailability(ctx context.Context, resourceID string, rng domain.DateRange) (app.Availability, error)
	CreateBooking(ctx context.Context, in app.CreateBookingInput) (domain.Booking, error)
	Accept(ctx context.Context, bookingID string, actor domain.Principal) (string, error)
	Cancel(ctx context.Context, in app.CancelBookingInput) (domain.Booking, error)
	Complete(ctx context.Context, bookingID string, actor domain.Principal) (domain.Booking, error)
}

type rangeRequest struct {
	ResourceID string `json:"resource_id"`
	Start      string `json:"start"`
	End        string `json:"end"`
}

func (r rangeRequest) parse() (string, domain.DateRange, error) {
	if r.ResourceID == "" {
		return "", domain.DateRange{}, domain.ErrInvalidID
	}
	start, err := time.Parse(time.RFC3339, r.Start)
	if err != nil {
		return "", domain.DateRange{}, domain.ErrInvalidRange
	}
	end, err := time.Parse(time.RFC3339, r.End)
	if err != nil {
		return "", domain.DateRange{}, domain.ErrInvalidRange
	}
	return r.ResourceID, domain.DateRange{Start: start, End: end}, nil
}

type rangeResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type availabilityResponse struct {
	Available bool           `json:"available"`
	Conflict  *rangeResponse `json:"conflict,omitempty"`
}

// HandleCheckAvailability answers the advisory overlap pre-check. The same
// check runs again atomically at booking creation.
func HandleCheckAvailability(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rangeRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		resourceID, rng, err := req.parse()
		if err != nil {
			writeServiceError(w, err)
			return
		}

		availability, err := svc.CheckAvailability(r.Context(), resourceID, rng)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := availabilityResponse{Available: availability.Available}
		if availability.Conflict != nil {
			resp.Conflict = &rangeResponse{Start: availability.Conflict.Start, End: availability.Conflict.End}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleCreateBooking books a range for the authenticated customer.
func HandleCreateBooking(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}

		var req rangeRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		resourceID, rng, err := req.parse()
		if err != nil {
			writeServiceError(w, err)
			return
		}

		booking, err := svc.CreateBooking(r.Context(), app.CreateBookingInput{
			ResourceID: resourceID,
			CustomerID: principal.ID,
			Range:      rng,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toBookingResponse(booking))
	}
}

type acceptResponse struct {
	PaymentURL string `json:"payment_url"`
}

// HandleAcceptBooking lets the resource owner accept a pending booking,
// opening the payment session the customer is redirected to.
func HandleAcceptBooking(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}

		paymentURL, err := svc.Accept(r.Context(), chi.URLParam(r, "id"), principal)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, acceptResponse{PaymentURL: paymentURL})
	}
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// HandleCancelBooking cancels keyed on the booking's current status:
// pending bookings are released, paid bookings go through the refund split.
func HandleCancelBooking(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}

		var req cancelRequest
		if r.Body != nil && r.ContentLength != 0 {
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
		}

		booking, err := svc.Cancel(r.Context(), app.CancelBookingInput{
			BookingID: chi.URLParam(r, "id"),
			Actor:     principal,
			Reason:    req.Reason,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toBookingResponse(booking))
	}
}

// HandleCompleteBooking flips a paid booking to completed after the rental
// period ends. Admin only.
func HandleCompleteBooking(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requireAdmin(w, r)
		if !ok {
			return
		}

		booking, err := svc.Complete(r.Context(), chi.URLParam(r, "id"), principal)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toBookingResponse(booking))
	}
}

type cancellationResponse struct {
	Reason   string          `json:"reason"`
	Actor    string          `json:"actor"`
	At       time.Time       `json:"at"`
	Refund   decimal.Decimal `json:"refund"`
	Retained decimal.Decimal `json:"retained"`
}

type bookingResponse struct {
	ID           string                `json:"id"`
	ResourceID   string                `json:"resource_id"`
	CustomerID   string                `json:"customer_id"`
	SellerID     string                `json:"seller_id"`
	Start        time.Time             `json:"start"`
	End          time.Time             `json:"end"`
	Status       string                `json:"status"`
	Total        decimal.Decimal       `json:"total"`
	AmountPaid   decimal.Decimal       `json:"amount_paid"`
	PaidAt       *time.Time            `json:"paid_at,omitempty"`
	Cancellation *cancellationResponse `json:"cancellation,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
}

func toBookingResponse(b domain.Booking) bookingResponse {
	resp := bookingResponse{
		ID:         b.ID,
		ResourceID: b.ResourceID,
		CustomerID: b.CustomerID,
		SellerID:   b.SellerID,
		Start:      b.Range.Start,
		End:        b.Range.End,
		Status:     string(b.Status),
		Total:      centsToDecimal(b.TotalCents),
		AmountPaid: centsToDecimal(b.AmountPaidCents),
		PaidAt:     b.PaidAt,
		CreatedAt:  b.CreatedAt,
	}
	if b.Cancellation != nil {
		resp.Cancellation = &cancellationResponse{
			Reason:   b.Cancellation.Reason,
			Actor:    b.Cancellation.Actor,
			At:       b.Cancellation.At,
			Refund:   centsToDecimal(b.Cancellation.RefundCents),
			Retained: centsToDecimal(b.Cancellation.RetainedCents),
		}
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
