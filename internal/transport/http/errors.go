package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cimillas/rentbook/internal/domain"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidID           = "invalid_id"
	codeInvalidRange        = "invalid_date_range"
	codeInvalidAmount       = "invalid_amount"
	codeInvalidSource       = "invalid_source"
	codeMethodRequired      = "payment_method_required"
	codeNameRequired        = "resource_name_required"
	codeInvalidPrice        = "invalid_price"
	codeResourceNotFound    = "resource_not_found"
	codeBookingNotFound     = "booking_not_found"
	codeWithdrawalNotFound  = "withdrawal_not_found"
	codeResourceUnavailable = "resource_unavailable"
	codeInsufficientFunds   = "insufficient_funds"
	codeInvalidTransition   = "invalid_state_transition"
	codeAlreadyProcessed    = "already_processed"
	codeUnauthenticated     = "unauthenticated"
	codeForbidden           = "forbidden"
	codeInvalidSignature    = "invalid_signature"
	codeUpstreamUnavailable = "payment_gateway_unavailable"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeServiceError maps domain errors onto the HTTP taxonomy: 400 for
// validation, 403/404 as expected, 409 for conflicts (overlap, funds, state),
// 502 for gateway trouble, 500 for anything unrecognized.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, codeInvalidRange, err.Error())
	case errors.Is(err, domain.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, codeInvalidAmount, err.Error())
	case errors.Is(err, domain.ErrInvalidSource):
		writeError(w, http.StatusBadRequest, codeInvalidSource, err.Error())
	case errors.Is(err, domain.ErrPaymentMethodRequired):
		writeError(w, http.StatusBadRequest, codeMethodRequired, err.Error())
	case errors.Is(err, domain.ErrResourceNameRequired):
		writeError(w, http.StatusBadRequest, codeNameRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidPrice):
		writeError(w, http.StatusBadRequest, codeInvalidPrice, err.Error())
	case errors.Is(err, domain.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, codeForbidden, err.Error())
	case errors.Is(err, domain.ErrResourceNotFound):
		writeError(w, http.StatusNotFound, codeResourceNotFound, err.Error())
	case errors.Is(err, domain.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, codeBookingNotFound, err.Error())
	case errors.Is(err, domain.ErrWithdrawalNotFound):
		writeError(w, http.StatusNotFound, codeWithdrawalNotFound, err.Error())
	case errors.Is(err, domain.ErrResourceUnavailable):
		writeError(w, http.StatusConflict, codeResourceUnavailable, err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		writeError(w, http.StatusConflict, codeInsufficientFunds, err.Error())
	case errors.Is(err, domain.ErrInvalidStateTransition):
		writeError(w, http.StatusConflict, codeInvalidTransition, err.Error())
	case errors.Is(err, domain.ErrAlreadyProcessed):
		writeError(w, http.StatusConflict, codeAlreadyProcessed, err.Error())
	case errors.Is(err, domain.ErrInvalidSignature):
		// Deliberately generic: no internal detail leaks on signature failure.
		writeError(w, http.StatusBadRequest, codeInvalidSignature, "webhook signature verification failed")
	case errors.Is(err, domain.ErrGatewayUnavailable):
		writeError(w, http.StatusBadGateway, codeUpstreamUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
