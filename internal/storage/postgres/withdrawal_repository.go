package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cimillas/rentbook/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WithdrawalRepository struct {
	pool *pgxpool.Pool
}

func NewWithdrawalRepository(pool *pgxpool.Pool) *WithdrawalRepository {
	return &WithdrawalRepository{pool: pool}
}

func (r *WithdrawalRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// LockSeller takes a transaction-scoped advisory lock keyed on the seller,
// serializing withdrawal creation per seller. Released at commit/rollback.
func (r *WithdrawalRepository) LockSeller(ctx context.Context, sellerID string) error {
	const stmt = `SELECT pg_advisory_xact_lock(hashtext($1))`

	if _, err := r.exec(ctx, stmt, sellerID); err != nil {
		return fmt.Errorf("lock seller: %w", err)
	}
	return nil
}

func (r *WithdrawalRepository) SumEntries(ctx context.Context, sellerID string) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM wallet_entries WHERE seller_id = $1`

	var total int64
	if err := r.queryRow(ctx, query, sellerID).Scan(&total); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("sum wallet entries: %w", err)
	}
	return total, nil
}

func (r *WithdrawalRepository) SumOpenWithdrawals(ctx context.Context, sellerID string) (int64, error) {
	const query = `
SELECT COALESCE(SUM(amount), 0)
FROM withdrawal_requests
WHERE seller_id = $1 AND status IN ('pending', 'processing')`

	var total int64
	if err := r.queryRow(ctx, query, sellerID).Scan(&total); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("sum open withdrawals: %w", err)
	}
	return total, nil
}

func (r *WithdrawalRepository) CreateWithdrawal(ctx context.Context, w domain.WithdrawalRequest) error {
	const stmt = `
INSERT INTO withdrawal_requests (id, seller_id, amount, status, payment_method, admin_note, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.exec(ctx, stmt, w.ID, w.SellerID, w.AmountCents, w.Status, w.PaymentMethod, w.AdminNote, w.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create withdrawal: %w", err)
	}
	return nil
}

func (r *WithdrawalRepository) GetWithdrawal(ctx context.Context, withdrawalID string) (domain.WithdrawalRequest, error) {
	const query = `
SELECT id, seller_id, amount, status, payment_method, admin_note, processed_at, created_at
FROM withdrawal_requests
WHERE id = $1`

	var (
		w      domain.WithdrawalRequest
		status string
	)
	err := r.queryRow(ctx, query, withdrawalID).
		Scan(&w.ID, &w.SellerID, &w.AmountCents, &status, &w.PaymentMethod, &w.AdminNote, &w.ProcessedAt, &w.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.WithdrawalRequest{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.WithdrawalRequest{}, domain.ErrWithdrawalNotFound
		}
		return domain.WithdrawalRequest{}, fmt.Errorf("get withdrawal: %w", err)
	}
	w.Status = domain.WithdrawalStatus(status)
	return w, nil
}

// SetStatus transitions from -> to conditionally. The caller inspects the
// returned bool to classify a lost race.
func (r *WithdrawalRepository) SetStatus(ctx context.Context, withdrawalID string, from, to domain.WithdrawalStatus, note string, processedAt *time.Time) (bool, error) {
	const stmt = `
UPDATE withdrawal_requests
SET status = $3,
    admin_note = CASE WHEN $4 <> '' THEN $4 ELSE admin_note END,
    processed_at = COALESCE($5, processed_at)
WHERE id = $1 AND status = $2`

	tag, err := r.exec(ctx, stmt, withdrawalID, from, to, note, processedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("set withdrawal status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *WithdrawalRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *WithdrawalRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
