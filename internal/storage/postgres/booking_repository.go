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

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const bookingColumns = `
id, resource_id, customer_id, seller_id, starts_at, ends_at, status,
total_amount, payment_session_id, amount_paid, paid_at, wallet_updated,
cancelled_at, cancel_reason, cancel_actor, refund_amount, retained_amount, created_at`

func (r *BookingRepository) GetResource(ctx context.Context, resourceID string) (domain.Resource, error) {
	const query = `SELECT id, seller_id, name, price_per_day, created_at FROM resources WHERE id = $1`
	return r.scanResource(r.queryRow(ctx, query, resourceID))
}

func (r *BookingRepository) GetResourceForUpdate(ctx context.Context, resourceID string) (domain.Resource, error) {
	const query = `SELECT id, seller_id, name, price_per_day, created_at FROM resources WHERE id = $1 FOR UPDATE`
	return r.scanResource(r.queryRow(ctx, query, resourceID))
}

func (r *BookingRepository) scanResource(row pgx.Row) (domain.Resource, error) {
	var res domain.Resource
	err := row.Scan(&res.ID, &res.SellerID, &res.Name, &res.PricePerDay, &res.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Resource{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Resource{}, domain.ErrResourceNotFound
		}
		return domain.Resource{}, fmt.Errorf("get resource: %w", err)
	}
	return res, nil
}

// FindOverlapping returns one active booking overlapping the half-open range
// [rng.Start, rng.End), or nil. Cancelled bookings never block.
func (r *BookingRepository) FindOverlapping(ctx context.Context, resourceID string, rng domain.DateRange, excludeBookingID string) (*domain.Booking, error) {
	const query = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE resource_id = $1
  AND status IN ('pending', 'accepted', 'paid', 'completed')
  AND starts_at < $3
  AND ends_at > $2
  AND ($4 = '' OR id::text <> $4)
ORDER BY starts_at
LIMIT 1`

	row := r.queryRow(ctx, query, resourceID, rng.Start, rng.End, excludeBookingID)
	booking, err := scanBooking(row)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find overlapping booking: %w", err)
	}
	return &booking, nil
}

func (r *BookingRepository) CreateBooking(ctx context.Context, b domain.Booking) error {
	const stmt = `
INSERT INTO bookings (id, resource_id, customer_id, seller_id, starts_at, ends_at, status, total_amount, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.exec(ctx, stmt,
		b.ID,
		b.ResourceID,
		b.CustomerID,
		b.SellerID,
		b.Range.Start,
		b.Range.End,
		b.Status,
		b.TotalCents,
		b.CreatedAt,
	)
	if err != nil {
		if isExclusionViolation(err) {
			return domain.ErrResourceUnavailable
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

func (r *BookingRepository) GetBooking(ctx context.Context, bookingID string) (domain.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.queryRow(ctx, query, bookingID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Booking{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	return booking, nil
}

func (r *BookingRepository) GetBookingBySession(ctx context.Context, sessionID string) (domain.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE payment_session_id = $1`

	booking, err := scanBooking(r.queryRow(ctx, query, sessionID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, fmt.Errorf("get booking by session: %w", err)
	}
	return booking, nil
}

// SetAccepted moves pending -> accepted and records the payment session.
func (r *BookingRepository) SetAccepted(ctx context.Context, bookingID, sessionID string) (bool, error) {
	const stmt = `
UPDATE bookings
SET status = 'accepted', payment_session_id = $2
WHERE id = $1 AND status = 'pending'`

	tag, err := r.exec(ctx, stmt, bookingID, sessionID)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("set accepted: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetPaid is the single atomic conditional update behind MarkPaid: the paid
// transition and the wallet flag flip together, and only once.
func (r *BookingRepository) SetPaid(ctx context.Context, bookingID string, amountCents int64, paidAt time.Time) (bool, error) {
	const stmt = `
UPDATE bookings
SET status = 'paid', wallet_updated = TRUE, amount_paid = $2, paid_at = $3
WHERE id = $1 AND status = 'accepted' AND NOT wallet_updated`

	tag, err := r.exec(ctx, stmt, bookingID, amountCents, paidAt)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("set paid: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *BookingRepository) SetCancelled(ctx context.Context, bookingID string, from domain.BookingStatus, c domain.Cancellation) (bool, error) {
	const stmt = `
UPDATE bookings
SET status = 'cancelled', cancelled_at = $3, cancel_reason = $4, cancel_actor = $5,
    refund_amount = $6, retained_amount = $7
WHERE id = $1 AND status = $2`

	tag, err := r.exec(ctx, stmt, bookingID, from, c.At, c.Reason, c.Actor, c.RefundCents, c.RetainedCents)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("set cancelled: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *BookingRepository) SetCompleted(ctx context.Context, bookingID string) (bool, error) {
	const stmt = `UPDATE bookings SET status = 'completed' WHERE id = $1 AND status = 'paid'`

	tag, err := r.exec(ctx, stmt, bookingID)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("set completed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var (
		b           domain.Booking
		status      string
		sessionID   *string
		paidAt      *time.Time
		cancelledAt *time.Time
		reason      *string
		actor       *string
		refund      *int64
		retained    *int64
	)
	err := row.Scan(
		&b.ID, &b.ResourceID, &b.CustomerID, &b.SellerID,
		&b.Range.Start, &b.Range.End, &status,
		&b.TotalCents, &sessionID, &b.AmountPaidCents, &paidAt, &b.WalletUpdated,
		&cancelledAt, &reason, &actor, &refund, &retained, &b.CreatedAt,
	)
	if err != nil {
		return domain.Booking{}, err
	}
	b.Status = domain.BookingStatus(status)
	if sessionID != nil {
		b.PaymentSessionID = *sessionID
	}
	b.PaidAt = paidAt
	if cancelledAt != nil {
		c := domain.Cancellation{At: *cancelledAt}
		if reason != nil {
			c.Reason = *reason
		}
		if actor != nil {
			c.Actor = *actor
		}
		if refund != nil {
			c.RefundCents = *refund
		}
		if retained != nil {
			c.RetainedCents = *retained
		}
		b.Cancellation = &c
	}
	return b, nil
}

func (r *BookingRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *BookingRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
