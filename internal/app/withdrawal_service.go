package app

import (
	"context"
	"log"
	"time"

	"github.com/cimillas/rentbook/internal/clock"
	"github.com/cimillas/rentbook/internal/domain"
	"github.com/cimillas/rentbook/internal/gateway"
)

type WithdrawalRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	// LockSeller serializes withdrawal creation per seller for the duration
	// of the surrounding transaction.
	LockSeller(ctx context.Context, sellerID string) error
	SumEntries(ctx context.Context, sellerID string) (int64, error)
	SumOpenWithdrawals(ctx context.Context, sellerID string) (int64, error)
	CreateWithdrawal(ctx context.Context, w domain.WithdrawalRequest) error
	GetWithdrawal(ctx context.Context, withdrawalID string) (domain.WithdrawalRequest, error)
	SetStatus(ctx context.Context, withdrawalID string, from, to domain.WithdrawalStatus, note string, processedAt *time.Time) (bool, error)
}

type WithdrawalService struct {
	repo          WithdrawalRepository
	payout        gateway.PayoutProvider
	clock         clock.Clock
	logger        *log.Logger
	payoutTimeout time.Duration
}

type WithdrawalServiceOption func(*WithdrawalService)

func WithPayoutTimeout(d time.Duration) WithdrawalServiceOption {
	return func(s *WithdrawalService) {
		if d > 0 {
			s.payoutTimeout = d
		}
	}
}

func NewWithdrawalService(repo WithdrawalRepository, payout gateway.PayoutProvider, clk clock.Clock, logger *log.Logger, opts ...WithdrawalServiceOption) *WithdrawalService {
	if logger == nil {
		logger = log.Default()
	}
	svc := &WithdrawalService{
		repo:          repo,
		payout:        payout,
		clock:         clk,
		logger:        logger,
		payoutTimeout: defaultGatewayTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type CreateWithdrawalInput struct {
	SellerID    string
	AmountCents int64
	Method      string
	Destination string
}

// Create inserts a pending withdrawal only if the seller's available balance
// still covers the amount at commit time. The balance is recomputed inside
// the transaction under a per-seller lock, so two concurrent requests cannot
// both pass the check against the same funds.
func (s *WithdrawalService) Create(ctx context.Context, in CreateWithdrawalInput) (domain.WithdrawalRequest, error) {
	if in.SellerID == "" {
		return domain.WithdrawalRequest{}, domain.ErrInvalidID
	}
	if in.AmountCents <= 0 {
		return domain.WithdrawalRequest{}, domain.ErrInvalidAmount
	}
	if in.Method == "" {
		return domain.WithdrawalRequest{}, domain.ErrPaymentMethodRequired
	}

	now := s.clock.Now()
	var result domain.WithdrawalRequest

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.LockSeller(txCtx, in.SellerID); err != nil {
			return err
		}

		total, err := s.repo.SumEntries(txCtx, in.SellerID)
		if err != nil {
			return err
		}
		pending, err := s.repo.SumOpenWithdrawals(txCtx, in.SellerID)
		if err != nil {
			return err
		}
		available := total - pending
		if available < 0 {
			s.logger.Printf("ERROR: negative available balance for seller %s: total=%d pending=%d", in.SellerID, total, pending)
			return domain.ErrIntegrity
		}
		if in.AmountCents > available {
			return &domain.InsufficientFundsError{AvailableCents: available}
		}

		withdrawal := domain.WithdrawalRequest{
			ID:            newID(),
			SellerID:      in.SellerID,
			AmountCents:   in.AmountCents,
			Status:        domain.WithdrawalStatusPending,
			PaymentMethod: in.Method,
			CreatedAt:     now,
		}
		if err := s.repo.CreateWithdrawal(txCtx, withdrawal); err != nil {
			return err
		}
		result = withdrawal
		return nil
	})
	if err != nil {
		return domain.WithdrawalRequest{}, err
	}
	return result, nil
}

const (
	ProcessActionApprove = "approve"
	ProcessActionReject  = "reject"
)

type ProcessWithdrawalInput struct {
	WithdrawalID string
	Action       string
	AdminNote    string
	Destination  string
	Actor        domain.Principal
}

// Process resolves a pending withdrawal. Approval first claims the request
// (pending -> processing, a conditional update, so two admins cannot both
// approve), then issues the payout transfer and records the outcome.
func (s *WithdrawalService) Process(ctx context.Context, in ProcessWithdrawalInput) (domain.WithdrawalRequest, error) {
	if !in.Actor.IsAdmin() {
		return domain.WithdrawalRequest{}, domain.ErrNotAuthorized
	}

	now := s.clock.Now()

	switch in.Action {
	case ProcessActionReject:
		ok, err := s.repo.SetStatus(ctx, in.WithdrawalID, domain.WithdrawalStatusPending, domain.WithdrawalStatusRejected, in.AdminNote, &now)
		if err != nil {
			return domain.WithdrawalRequest{}, err
		}
		if !ok {
			return domain.WithdrawalRequest{}, s.classifyProcessConflict(ctx, in.WithdrawalID)
		}
		return s.repo.GetWithdrawal(ctx, in.WithdrawalID)

	case ProcessActionApprove:
		ok, err := s.repo.SetStatus(ctx, in.WithdrawalID, domain.WithdrawalStatusPending, domain.WithdrawalStatusProcessing, in.AdminNote, nil)
		if err != nil {
			return domain.WithdrawalRequest{}, err
		}
		if !ok {
			return domain.WithdrawalRequest{}, s.classifyProcessConflict(ctx, in.WithdrawalID)
		}

		withdrawal, err := s.repo.GetWithdrawal(ctx, in.WithdrawalID)
		if err != nil {
			return domain.WithdrawalRequest{}, err
		}

		payoutCtx, cancel := context.WithTimeout(ctx, s.payoutTimeout)
		defer cancel()
		ack, err := s.payout.Transfer(payoutCtx, gateway.TransferInput{
			Reference:   withdrawal.ID,
			AmountCents: withdrawal.AmountCents,
			Method:      withdrawal.PaymentMethod,
			Destination: in.Destination,
		})
		if err != nil {
			s.logger.Printf("WARN: payout transfer for withdrawal %s failed: %v", withdrawal.ID, err)
			if _, serr := s.repo.SetStatus(ctx, in.WithdrawalID, domain.WithdrawalStatusProcessing, domain.WithdrawalStatusFailed, "payout transfer failed", &now); serr != nil {
				s.logger.Printf("ERROR: marking withdrawal %s failed: %v", withdrawal.ID, serr)
			}
			return domain.WithdrawalRequest{}, err
		}

		s.logger.Printf("withdrawal %s paid out, transfer=%s", withdrawal.ID, ack.TransferID)
		if _, err := s.repo.SetStatus(ctx, in.WithdrawalID, domain.WithdrawalStatusProcessing, domain.WithdrawalStatusCompleted, in.AdminNote, &now); err != nil {
			return domain.WithdrawalRequest{}, err
		}
		return s.repo.GetWithdrawal(ctx, in.WithdrawalID)

	default:
		return domain.WithdrawalRequest{}, domain.ErrInvalidStateTransition
	}
}

func (s *WithdrawalService) classifyProcessConflict(ctx context.Context, withdrawalID string) error {
	current, err := s.repo.GetWithdrawal(ctx, withdrawalID)
	if err != nil {
		return err
	}
	if current.Status.Terminal() || current.Status == domain.WithdrawalStatusProcessing {
		return domain.ErrAlreadyProcessed
	}
	return domain.ErrInvalidStateTransition
}

// Get exposes a read for transport.
func (s *WithdrawalService) Get(ctx context.Context, withdrawalID string) (domain.WithdrawalRequest, error) {
	return s.repo.GetWithdrawal(ctx, withdrawalID)
}
