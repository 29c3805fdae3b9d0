package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/domain"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// CreateOrder persists an order and its snapshot lines atomically.
func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order, lines []domain.OrderLine) error {
	return r.WithTx(ctx, func(txCtx context.Context) error {
		const orderStmt = `
INSERT INTO orders (
	id, channel, status, payment_method,
	customer_name, customer_phone, customer_email, customer_city, customer_district,
	ambassador_id, outlet_id, event_id,
	total_cents, quantity, stock_released, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

		_, err := r.exec(txCtx, orderStmt,
			order.ID,
			string(order.Channel),
			string(order.Status),
			string(order.PaymentMethod),
			order.Customer.Name,
			order.Customer.Phone,
			order.Customer.Email,
			order.Customer.City,
			order.Customer.District,
			nullable(order.AmbassadorID),
			nullable(order.OutletID),
			nullable(order.EventID),
			order.TotalCents,
			order.Quantity,
			order.StockReleased,
			order.CreatedAt,
		)
		if err != nil {
			if isInvalidUUID(err) {
				return domain.ErrInvalidID
			}
			return fmt.Errorf("insert order: %w", err)
		}

		const lineStmt = `
INSERT INTO order_lines (id, order_id, pass_id, outlet_id, pass_name, quantity, unit_price_cents)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

		for _, line := range lines {
			if _, err := r.exec(txCtx, lineStmt,
				line.ID,
				line.OrderID,
				line.PassID,
				nullable(line.OutletID),
				line.PassName,
				line.Quantity,
				line.UnitPriceCents,
			); err != nil {
				return fmt.Errorf("insert order line: %w", err)
			}
		}
		return nil
	})
}

func (r *OrderRepository) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	const query = `
SELECT id, channel, status, payment_method,
	customer_name, customer_phone, customer_email, customer_city, customer_district,
	COALESCE(ambassador_id::text, ''), COALESCE(outlet_id::text, ''), COALESCE(event_id::text, ''),
	total_cents, quantity, stock_released, created_at, approved_at
FROM orders
WHERE id = $1`

	var o domain.Order
	err := r.queryRow(ctx, query, orderID).Scan(
		&o.ID,
		&o.Channel,
		&o.Status,
		&o.PaymentMethod,
		&o.Customer.Name,
		&o.Customer.Phone,
		&o.Customer.Email,
		&o.Customer.City,
		&o.Customer.District,
		&o.AmbassadorID,
		&o.OutletID,
		&o.EventID,
		&o.TotalCents,
		&o.Quantity,
		&o.StockReleased,
		&o.CreatedAt,
		&o.ApprovedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Order{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) GetOrderLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	const query = `
SELECT id, order_id, pass_id, COALESCE(outlet_id::text, ''), pass_name, quantity, unit_price_cents
FROM order_lines
WHERE order_id = $1
ORDER BY id`

	rows, err := r.query(ctx, query, orderID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(
			&line.ID,
			&line.OrderID,
			&line.PassID,
			&line.OutletID,
			&line.PassName,
			&line.Quantity,
			&line.UnitPriceCents,
		); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// UpdateStatus is the conditional transition write. The boolean result is
// the rows-affected oracle: true means this caller moved the order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, from, to domain.OrderStatus) (bool, error) {
	const stmt = `UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`

	tag, err := r.exec(ctx, stmt, orderID, string(from), string(to))
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("update order status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *OrderRepository) SetApprovedAt(ctx context.Context, orderID string) error {
	const stmt = `UPDATE orders SET approved_at = NOW() WHERE id = $1 AND approved_at IS NULL`
	if _, err := r.exec(ctx, stmt, orderID); err != nil {
		return fmt.Errorf("set approved_at: %w", err)
	}
	return nil
}

// MarkStockReleased flips stock_released exactly once. False means another
// compensation already claimed the release.
func (r *OrderRepository) MarkStockReleased(ctx context.Context, orderID string) (bool, error) {
	const stmt = `UPDATE orders SET stock_released = TRUE WHERE id = $1 AND NOT stock_released`

	tag, err := r.exec(ctx, stmt, orderID)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("mark stock released: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// UnmarkStockReleased returns the release claim after a failed
// compensation so a retry can claim it again.
func (r *OrderRepository) UnmarkStockReleased(ctx context.Context, orderID string) error {
	const stmt = `UPDATE orders SET stock_released = FALSE WHERE id = $1 AND stock_released`

	if _, err := r.exec(ctx, stmt, orderID); err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("unmark stock released: %w", err)
	}
	return nil
}

func (r *OrderRepository) AppendAudit(ctx context.Context, entry domain.AuditEntry) error {
	const stmt = `
INSERT INTO order_audit (id, order_id, from_status, to_status, actor, ticket_count, notifications, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.exec(ctx, stmt,
		entry.ID,
		entry.OrderID,
		string(entry.FromStatus),
		string(entry.ToStatus),
		entry.Actor,
		entry.TicketCount,
		entry.Notifications,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// GetOutletIDBySlug resolves the outlet for a POS session path segment.
func (r *OrderRepository) GetOutletIDBySlug(ctx context.Context, slug string) (string, error) {
	const query = `SELECT id FROM outlets WHERE slug = $1`

	var id string
	if err := r.queryRow(ctx, query, slug).Scan(&id); err != nil {
		if err == pgx.ErrNoRows {
			return "", domain.ErrOutletNotFound
		}
		return "", fmt.Errorf("get outlet by slug: %w", err)
	}
	return id, nil
}

func (r *OrderRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *OrderRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *OrderRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
