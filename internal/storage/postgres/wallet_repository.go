package postgres

import (
	"context"
	"fmt"

	"github.com/cimillas/rentbook/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WalletRepository reads and appends wallet entries. There are deliberately
// no UPDATE or DELETE statements here; the ledger is append-only.
type WalletRepository struct {
	pool *pgxpool.Pool
}

func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

func (r *WalletRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *WalletRepository) CreateEntry(ctx context.Context, e domain.WalletEntry) error {
	const stmt = `
INSERT INTO wallet_entries (id, seller_id, amount, source, order_id, period, created_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)`

	_, err := r.exec(ctx, stmt, e.ID, e.SellerID, e.AmountCents, e.Source, e.OrderID, e.Period, e.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create wallet entry: %w", err)
	}
	return nil
}

func (r *WalletRepository) SumEntries(ctx context.Context, sellerID string) (int64, error) {
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

func (r *WalletRepository) SumOpenWithdrawals(ctx context.Context, sellerID string) (int64, error) {
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

func (r *WalletRepository) ListEntries(ctx context.Context, sellerID string) ([]domain.WalletEntry, error) {
	const query = `
SELECT id, seller_id, amount, source, COALESCE(order_id::text, ''), period, created_at
FROM wallet_entries
WHERE seller_id = $1
ORDER BY created_at DESC, id`

	rows, err := r.query(ctx, query, sellerID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list wallet entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.WalletEntry
	for rows.Next() {
		var e domain.WalletEntry
		var source string
		if err := rows.Scan(&e.ID, &e.SellerID, &e.AmountCents, &source, &e.OrderID, &e.Period, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan wallet entry: %w", err)
		}
		e.Source = domain.EntrySource(source)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list wallet entries: %w", err)
	}
	return entries, nil
}

func (r *WalletRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *WalletRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *WalletRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
