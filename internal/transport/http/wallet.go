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

type WalletService interface {
	Balance(ctx context.Context, sellerID string) (domain.Balance, error)
	Statement(ctx context.Context, sellerID string) ([]domain.WalletEntry, error)
}

type WithdrawalService interface {
	Create(ctx context.Context, in app.CreateWithdrawalInput) (domain.WithdrawalRequest, error)
	Process(ctx context.Context, in app.ProcessWithdrawalInput) (domain.WithdrawalRequest, error)
}

type balanceResponse struct {
	Total     decimal.Decimal `json:"total"`
	Pending   decimal.Decimal `json:"pending"`
	Available decimal.Decimal `json:"available"`
}

// HandleSellerBalance reports the derived wallet position. Sellers see only
// their own balance; admins see anyone's.
func HandleSellerBalance(svc WalletService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		sellerID := chi.URLParam(r, "id")
		if principal.ID != sellerID && !principal.IsAdmin() {
			writeError(w, http.StatusForbidden, codeForbidden, "not authorized")
			return
		}

		balance, err := svc.Balance(r.Context(), sellerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, balanceResponse{
			Total:     centsToDecimal(balance.TotalCents),
			Pending:   centsToDecimal(balance.PendingCents),
			Available: centsToDecimal(balance.AvailableCents),
		})
	}
}

type walletEntryResponse struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Source    string          `json:"source"`
	OrderID   string          `json:"order_id,omitempty"`
	Period    string          `json:"period"`
	CreatedAt time.Time       `json:"created_at"`
}

// HandleSellerStatement lists a seller's wallet entries, newest first.
func HandleSellerStatement(svc WalletService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		sellerID := chi.URLParam(r, "id")
		if principal.ID != sellerID && !principal.IsAdmin() {
			writeError(w, http.StatusForbidden, codeForbidden, "not authorized")
			return
		}

		entries, err := svc.Statement(r.Context(), sellerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		resp := make([]walletEntryResponse, 0, len(entries))
		for _, e := range entries {
			resp = append(resp, walletEntryResponse{
				ID:        e.ID,
				Amount:    centsToDecimal(e.AmountCents),
				Source:    string(e.Source),
				OrderID:   e.OrderID,
				Period:    e.Period,
				CreatedAt: e.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type createWithdrawalRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
}

type withdrawalResponse struct {
	ID          string          `json:"id"`
	SellerID    string          `json:"seller_id"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	Method      string          `json:"method"`
	AdminNote   string          `json:"admin_note,omitempty"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toWithdrawalResponse(wr domain.WithdrawalRequest) withdrawalResponse {
	return withdrawalResponse{
		ID:          wr.ID,
		SellerID:    wr.SellerID,
		Amount:      centsToDecimal(wr.AmountCents),
		Status:      string(wr.Status),
		Method:      wr.PaymentMethod,
		AdminNote:   wr.AdminNote,
		ProcessedAt: wr.ProcessedAt,
		CreatedAt:   wr.CreatedAt,
	}
}

// HandleCreateWithdrawal opens a withdrawal against the seller's available
// balance. The balance guard is re-run atomically at commit time.
func HandleCreateWithdrawal(svc WithdrawalService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		sellerID := chi.URLParam(r, "id")
		if principal.ID != sellerID && !principal.IsAdmin() {
			writeError(w, http.StatusForbidden, codeForbidden, "not authorized")
			return
		}

		var req createWithdrawalRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		amountCents, err := decimalToCents(req.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidAmount, err.Error())
			return
		}

		withdrawal, err := svc.Create(r.Context(), app.CreateWithdrawalInput{
			SellerID:    sellerID,
			AmountCents: amountCents,
			Method:      req.Method,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toWithdrawalResponse(withdrawal))
	}
}

type processWithdrawalRequest struct {
	Action      string `json:"action"`
	AdminNote   string `json:"admin_note"`
	Destination string `json:"destination"`
}

// HandleProcessWithdrawal approves or rejects a pending withdrawal. Admin
// only; approval issues the payout transfer.
func HandleProcessWithdrawal(svc WithdrawalService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requireAdmin(w, r)
		if !ok {
			return
		}

		var req processWithdrawalRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.Action != app.ProcessActionApprove && req.Action != app.ProcessActionReject {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "action must be approve or reject")
			return
		}

		withdrawal, err := svc.Process(r.Context(), app.ProcessWithdrawalInput{
			WithdrawalID: chi.URLParam(r, "id"),
			Action:       req.Action,
			AdminNote:    req.AdminNote,
			Destination:  req.Destination,
			Actor:        principal,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toWithdrawalResponse(withdrawal))
	}
}
