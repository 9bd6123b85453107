package app

import (
	"context"
	"log"

	"github.com/cimillas/rentbook/internal/clock"
	"github.com/cimillas/rentbook/internal/domain"
)

type WalletRepository interface {
	CreateEntry(ctx context.Context, entry domain.WalletEntry) error
	SumEntries(ctx context.Context, sellerID string) (int64, error)
	SumOpenWithdrawals(ctx context.Context, sellerID string) (int64, error)
	ListEntries(ctx context.Context, sellerID string) ([]domain.WalletEntry, error)
}

type WalletService struct {
	repo   WalletRepository
	clock  clock.Clock
	logger *log.Logger
}

func NewWalletService(repo WalletRepository, clk clock.Clock, logger *log.Logger) *WalletService {
	if logger == nil {
		logger = log.Default()
	}
	return &WalletService{
		repo:   repo,
		clock:  clk,
		logger: logger,
	}
}

type CreditInput struct {
	SellerID    string
	AmountCents int64
	Source      domain.EntrySource
	OrderID     string
}

// Credit appends an earnings record. Entries are never mutated or deleted.
func (s *WalletService) Credit(ctx context.Context, in CreditInput) (domain.WalletEntry, error) {
	if in.SellerID == "" {
		return domain.WalletEntry{}, domain.ErrInvalidID
	}
	if in.AmountCents <= 0 {
		return domain.WalletEntry{}, domain.ErrInvalidAmount
	}
	if !domain.ValidEntrySource(in.Source) {
		return domain.WalletEntry{}, domain.ErrInvalidSource
	}

	now := s.clock.Now()
	entry := domain.WalletEntry{
		ID:          newID(),
		SellerID:    in.SellerID,
		AmountCents: in.AmountCents,
		Source:      in.Source,
		OrderID:     in.OrderID,
		Period:      domain.PeriodOf(now),
		CreatedAt:   now,
	}
	if err := s.repo.CreateEntry(ctx, entry); err != nil {
		return domain.WalletEntry{}, err
	}
	return entry, nil
}

// Balance derives a seller's position: total earned, pending in open
// withdrawals, and the difference available for cash-out. A negative
// available balance means an invariant was broken somewhere upstream; it is
// logged loudly and refused rather than passed on.
func (s *WalletService) Balance(ctx context.Context, sellerID string) (domain.Balance, error) {
	if sellerID == "" {
		return domain.Balance{}, domain.ErrInvalidID
	}

	total, err := s.repo.SumEntries(ctx, sellerID)
	if err != nil {
		return domain.Balance{}, err
	}
	pending, err := s.repo.SumOpenWithdrawals(ctx, sellerID)
	if err != nil {
		return domain.Balance{}, err
	}

	available := total - pending
	if available < 0 {
		s.logger.Printf("ERROR: negative available balance for seller %s: total=%d pending=%d", sellerID, total, pending)
		return domain.Balance{}, domain.ErrIntegrity
	}

	return domain.Balance{
		SellerID:       sellerID,
		TotalCents:     total,
		PendingCents:   pending,
		AvailableCents: available,
	}, nil
}

// Statement lists a seller's wallet entries, newest first.
func (s *WalletService) Statement(ctx context.Context, sellerID string) ([]domain.WalletEntry, error) {
	if sellerID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListEntries(ctx, sellerID)
}
