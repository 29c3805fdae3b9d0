package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/domain"
)

// PoolRepository reads and adjusts capacity pools. The global pool lives
// in passes; the POS channel's outlet-scoped pool lives in
// outlet_pass_stock. The two never share counters.
type PoolRepository struct {
	pool *pgxpool.Pool
}

func NewPoolRepository(pool *pgxpool.Pool) *PoolRepository {
	return &PoolRepository{pool: pool}
}

func (r *PoolRepository) GetPool(ctx context.Context, ref domain.PoolRef) (domain.Pool, error) {
	var (
		p       domain.Pool
		methods []string
	)
	p.Ref = ref

	var err error
	if ref.IsOutlet() {
		const query = `
SELECT name, price_cents, is_active, max_quantity, sold_quantity, allowed_payment_methods
FROM outlet_pass_stock
WHERE outlet_id = $1 AND event_id = $2 AND pass_id = $3`
		err = r.queryRow(ctx, query, ref.OutletID, ref.EventID, ref.PassID).
			Scan(&p.Name, &p.PriceCents, &p.IsActive, &p.MaxQuantity, &p.SoldQuantity, &methods)
	} else {
		const query = `
SELECT name, price_cents, is_active, max_quantity, sold_quantity, allowed_payment_methods
FROM passes
WHERE id = $1`
		err = r.queryRow(ctx, query, ref.PassID).
			Scan(&p.Name, &p.PriceCents, &p.IsActive, &p.MaxQuantity, &p.SoldQuantity, &methods)
	}
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Pool{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Pool{}, domain.ErrPoolNotFound
		}
		return domain.Pool{}, fmt.Errorf("get pool: %w", err)
	}

	for _, m := range methods {
		p.AllowedPaymentMethods = append(p.AllowedPaymentMethods, domain.PaymentMethod(m))
	}
	return p, nil
}

// IncrementSold is the compare-and-swap reserve: the counter moves only if
// it still holds the value the caller read, the pool is still active, and
// the result stays within capacity. Zero rows affected means the swap was
// lost or the pool changed under the caller.
func (r *PoolRepository) IncrementSold(ctx context.Context, ref domain.PoolRef, expectedSold, quantity int) (bool, error) {
	var (
		tag pgconn.CommandTag
		err error
	)
	if ref.IsOutlet() {
		const stmt = `
UPDATE outlet_pass_stock
SET sold_quantity = sold_quantity + $4
WHERE outlet_id = $1 AND event_id = $2 AND pass_id = $3
  AND sold_quantity = $5
  AND is_active
  AND (max_quantity IS NULL OR sold_quantity + $4 <= max_quantity)`
		tag, err = r.exec(ctx, stmt, ref.OutletID, ref.EventID, ref.PassID, quantity, expectedSold)
	} else {
		const stmt = `
UPDATE passes
SET sold_quantity = sold_quantity + $2
WHERE id = $1
  AND sold_quantity = $3
  AND is_active
  AND (max_quantity IS NULL OR sold_quantity + $2 <= max_quantity)`
		tag, err = r.exec(ctx, stmt, ref.PassID, quantity, expectedSold)
	}
	if err != nil {
		if isCheckViolation(err) {
			return false, nil
		}
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("increment sold: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DecrementSold returns quantity units to the pool, clamped at zero.
func (r *PoolRepository) DecrementSold(ctx context.Context, ref domain.PoolRef, quantity int) error {
	var err error
	if ref.IsOutlet() {
		const stmt = `
UPDATE outlet_pass_stock
SET sold_quantity = GREATEST(sold_quantity - $4, 0)
WHERE outlet_id = $1 AND event_id = $2 AND pass_id = $3`
		_, err = r.exec(ctx, stmt, ref.OutletID, ref.EventID, ref.PassID, quantity)
	} else {
		const stmt = `
UPDATE passes
SET sold_quantity = GREATEST(sold_quantity - $2, 0)
WHERE id = $1`
		_, err = r.exec(ctx, stmt, ref.PassID, quantity)
	}
	if err != nil {
		return fmt.Errorf("decrement sold: %w", err)
	}
	return nil
}

func (r *PoolRepository) AppendReservationEvent(ctx context.Context, event domain.ReservationEvent) error {
	const stmt = `
INSERT INTO reservation_events (id, reservation_id, kind, pass_id, event_id, outlet_id, quantity, order_id, actor)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.exec(ctx, stmt,
		event.ID,
		event.ReservationID,
		string(event.Kind),
		event.Ref.PassID,
		nullable(event.Ref.EventID),
		nullable(event.Ref.OutletID),
		event.Quantity,
		nullable(event.OrderID),
		event.Actor,
	)
	if err != nil {
		return fmt.Errorf("append reservation event: %w", err)
	}
	return nil
}

// ReservationReleased reports whether a release entry exists for one line
// of a reservation. Per-line tracking keeps Release retryable after a
// partial failure: only the lines without an entry are released again.
func (r *PoolRepository) ReservationReleased(ctx context.Context, reservationID string, ref domain.PoolRef) (bool, error) {
	const query = `
SELECT EXISTS (
	SELECT 1 FROM reservation_events
	WHERE reservation_id = $1 AND kind = 'release'
		AND pass_id = $2
		AND COALESCE(event_id::text, '') = $3
		AND COALESCE(outlet_id::text, '') = $4
)`
	var released bool
	if err := r.queryRow(ctx, query, reservationID, ref.PassID, ref.EventID, ref.OutletID).Scan(&released); err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("check reservation released: %w", err)
	}
	return released, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *PoolRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *PoolRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
