package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/cimillas/rentbook/internal/app"
	"github.com/cimillas/rentbook/internal/domain"
)

type stubWalletService struct {
	balance domain.Balance
	entries []domain.WalletEntry
	err     error
}

func (s *stubWalletService) Balance(_ context.Context, _ string) (domain.Balance, error) {
	return s.balance, s.err
}

func (s *stubWalletService) Statement(_ context.Context, _ string) ([]domain.WalletEntry, error) {
	return s.entries, s.err
}

type stubWithdrawalService struct {
	withdrawal domain.WithdrawalRequest
	err        error

	lastCreate  app.CreateWithdrawalInput
	lastProcess app.ProcessWithdrawalInput
}

func (s *stubWithdrawalService) Create(_ context.Context, in app.CreateWithdrawalInput) (domain.WithdrawalRequest, error) {
	s.lastCreate = in
	return s.withdrawal, s.err
}

func (s *stubWithdrawalService) Process(_ context.Context, in app.ProcessWithdrawalInput) (domain.WithdrawalRequest, error) {
	s.lastProcess = in
	return s.withdrawal, s.err
}

func walletRouter(wallet WalletService, withdrawals WithdrawalService) http.Handler {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(Principal)
		r.Get("/sellers/{id}/balance", HandleSellerBalance(wallet))
		r.Get("/sellers/{id}/wallet", HandleSellerStatement(wallet))
		r.Post("/sellers/{id}/withdrawals", HandleCreateWithdrawal(withdrawals))
		r.Put("/withdrawals/{id}/process", HandleProcessWithdrawal(withdrawals))
	})
	return r
}

func TestHandleSellerBalance(t *testing.T) {
	t.Parallel()

	t.Run("owner sees own balance as decimals", func(t *testing.T) {
		wallet := &stubWalletService{balance: domain.Balance{
			SellerID: "seller-1", TotalCents: 75000, PendingCents: 30000, AvailableCents: 45000,
		}}
		req := authed(httptest.NewRequest(http.MethodGet, "/sellers/seller-1/balance", nil), "seller-1", "seller")
		rec := httptest.NewRecorder()
		walletRouter(wallet, &stubWithdrawalService{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp balanceResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Total.String() != "750" || resp.Pending.String() != "300" || resp.Available.String() != "450" {
			t.Fatalf("unexpected balance: %+v", resp)
		}
	})

	t.Run("another seller is refused", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodGet, "/sellers/seller-1/balance", nil), "seller-2", "seller")
		rec := httptest.NewRecorder()
		walletRouter(&stubWalletService{}, &stubWithdrawalService{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("admin may inspect any seller", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodGet, "/sellers/seller-1/balance", nil), "root", "admin")
		rec := httptest.NewRecorder()
		walletRouter(&stubWalletService{}, &stubWithdrawalService{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("integrity fault maps to 500", func(t *testing.T) {
		wallet := &stubWalletService{err: domain.ErrIntegrity}
		req := authed(httptest.NewRequest(http.MethodGet, "/sellers/seller-1/balance", nil), "seller-1", "seller")
		rec := httptest.NewRecorder()
		walletRouter(wallet, &stubWithdrawalService{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})
}

func TestHandleSellerStatement(t *testing.T) {
	t.Parallel()

	wallet := &stubWalletService{entries: []domain.WalletEntry{
		{ID: "e1", SellerID: "seller-1", AmountCents: 15000, Source: domain.EntrySourceOrder, OrderID: "bk-1", Period: "2025-03"},
	}}
	req := authed(httptest.NewRequest(http.MethodGet, "/sellers/seller-1/wallet", nil), "seller-1", "seller")
	rec := httptest.NewRecorder()
	walletRouter(wallet, &stubWithdrawalService{}).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp []walletEntryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("expected one entry, got %d", len(resp))
	}
	if resp[0].Amount.String() != "150" || resp[0].Source != "order" || resp[0].OrderID != "bk-1" {
		t.Fatalf("unexpected entry: %+v", resp[0])
	}
}

func TestHandleCreateWithdrawal(t *testing.T) {
	t.Parallel()

	t.Run("decimal amount converted to cents", func(t *testing.T) {
		withdrawals := &stubWithdrawalService{withdrawal: domain.WithdrawalRequest{
			ID: "w-1", SellerID: "seller-1", AmountCents: 30050, Status: domain.WithdrawalStatusPending,
		}}
		body := `{"amount":"300.50","method":"bank_transfer"}`
		req := authed(httptest.NewRequest(http.MethodPost, "/sellers/seller-1/withdrawals", strings.NewReader(body)), "seller-1", "seller")
		rec := httptest.NewRecorder()
		walletRouter(&stubWalletService{}, withdrawals).ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if withdrawals.lastCreate.AmountCents != 30050 {
			t.Fatalf("expected 30050 cents, got %d", withdrawals.lastCreate.AmountCents)
		}
		if withdrawals.lastCreate.SellerID != "seller-1" {
			t.Fatalf("expected seller from path, got %s", withdrawals.lastCreate.SellerID)
		}
	})

	t.Run("sub-cent precision rejected", func(t *testing.T) {
		body := `{"amount":"10.005","method":"bank_transfer"}`
		req := authed(httptest.NewRequest(http.MethodPost, "/sellers/seller-1/withdrawals", strings.NewReader(body)), "seller-1", "seller")
		rec := httptest.NewRecorder()
		walletRouter(&stubWalletService{}, &stubWithdrawalService{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("insufficient funds maps to 409", func(t *testing.T) {
		withdrawals := &stubWithdrawalService{err: &domain.InsufficientFundsError{AvailableCents: 20000}}
		body := `{"amount":"300.00","method":"bank_transfer"}`
		req := authed(httptest.NewRequest(http.MethodPost, "/sellers/seller-1/withdrawals", strings.NewReader(body)), "seller-1", "seller")
		rec := httptest.NewRecorder()
		walletRouter(&stubWalletService{}, withdrawals).ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		var resp errorResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Code != codeInsufficientFunds {
			t.Fatalf("expected code %s, got %s", codeInsufficientFunds, resp.Code)
		}
		if !strings.Contains(resp.Error, "200.00") {
			t.Fatalf("expected available balance in message, got %q", resp.Error)
		}
	})

	t.Run("another seller cannot withdraw for you", func(t *testing.T) {
		body := `{"amount":"10.00","method":"bank_transfer"}`
		req := authed(httptest.NewRequest(http.MethodPost, "/sellers/seller-1/withdrawals", strings.NewReader(body)), "seller-2", "seller")
		rec := httptest.NewRecorder()
		walletRouter(&stubWalletService{}, &stubWithdrawalService{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})
}

func TestHandleProcessWithdrawal(t *testing.T) {
	t.Parallel()

	t.Run("admin approves", func(t *testing.T) {
		withdrawals := &stubWithdrawalService{withdrawal: domain.WithdrawalRequest{
			ID: "w-1", Status: domain.WithdrawalStatusCompleted,
		}}
		body := `{"action":"approve","destination":"acct-9"}`
		req := authed(httptest.NewRequest(http.MethodPut, "/withdrawals/w-1/process", strings.NewReader(body)), "root", "admin")
		rec := httptest.NewRecorder()
		walletRouter(&stubWalletService{}, withdrawals).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if withdrawals.lastProcess.Action != app.ProcessActionApprove {
			t.Fatalf("expected approve action, got %s", withdrawals.lastProcess.Action)
		}
		if withdrawals.lastProcess.Destination != "acct-9" {
			t.Fatalf("expected destination passed through, got %s", withdrawals.lastProcess.Destination)
		}
	})

	t.Run("unknown action rejected at the boundary", func(t *testing.T) {
		body := `{"action":"escalate"}`
		req := authed(httptest.NewRequest(http.MethodPut, "/withdrawals/w-1/process", strings.NewReader(body)), "root", "admin")
		rec := httptest.NewRecorder()
		walletRouter(&stubWalletService{}, &stubWithdrawalService{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("non-admin rejected", func(t *testing.T) {
		body := `{"action":"approve"}`
		req := authed(httptest.NewRequest(http.MethodPut, "/withdrawals/w-1/process", strings.NewReader(body)), "seller-1", "seller")
		rec := httptest.NewRecorder()
		walletRouter(&stubWalletService{}, &stubWithdrawalService{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("double processing maps to 409", func(t *testing.T) {
		withdrawals := &stubWithdrawalService{err: domain.ErrAlreadyProcessed}
		body := `{"action":"approve"}`
		req := authed(httptest.NewRequest(http.MethodPut, "/withdrawals/w-1/process", strings.NewReader(body)), "root", "admin")
		rec := httptest.NewRecorder()
		walletRouter(&stubWalletService{}, withdrawals).ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})
}
