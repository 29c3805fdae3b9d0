package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/domain"
)

type TicketRepository struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

func (r *TicketRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.Ticket, error) {
	const query = `
SELECT id, order_id, order_line_id, secure_token, status, code_image_url, issued_at
FROM tickets
WHERE order_id = $1
ORDER BY issued_at, id`

	rows, err := r.query(ctx, query, orderID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(
			&t.ID,
			&t.OrderID,
			&t.OrderLineID,
			&t.SecureToken,
			&t.Status,
			&t.CodeImageURL,
			&t.IssuedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (r *TicketRepository) CreateTicket(ctx context.Context, ticket domain.Ticket) error {
	const stmt = `
INSERT INTO tickets (id, order_id, order_line_id, secure_token, status, code_image_url, issued_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.exec(ctx, stmt,
		ticket.ID,
		ticket.OrderID,
		ticket.OrderLineID,
		ticket.SecureToken,
		string(ticket.Status),
		ticket.CodeImageURL,
		ticket.IssuedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("duplicate secure token: %w", err)
		}
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

func (r *TicketRepository) AppendNotification(ctx context.Context, record domain.NotificationRecord) error {
	const stmt = `
INSERT INTO notification_records (id, order_id, kind, recipient, outcome, detail, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.exec(ctx, stmt,
		record.ID,
		record.OrderID,
		string(record.Kind),
		record.Recipient,
		string(record.Outcome),
		record.Detail,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append notification record: %w", err)
	}
	return nil
}

func (r *TicketRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *TicketRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
