package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/clock"
	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/domain"
)

// TicketRepository persists issued tickets.
type TicketRepository interface {
	ListByOrder(ctx context.Context, orderID string) ([]domain.Ticket, error)
	CreateTicket(ctx context.Context, ticket domain.Ticket) error
	AppendNotification(ctx context.Context, record domain.NotificationRecord) error
}

// ArtifactRenderer renders and stores the scannable code for one ticket
// token, returning the artifact's URL.
type ArtifactRenderer interface {
	Render(ctx context.Context, token string) (string, error)
}

// EmailSender sends one consolidated email for an order's tickets.
type EmailSender interface {
	SendTickets(ctx context.Context, order domain.Order, tickets []domain.Ticket) error
}

// SMSSender sends one confirmation SMS for an order.
type SMSSender interface {
	SendConfirmation(ctx context.Context, order domain.Order) error
}

// FulfillmentResult reports what one Fulfill call produced.
type FulfillmentResult struct {
	Tickets          []domain.Ticket
	TicketsGenerated bool
	EmailSent        bool
	SMSSent          bool
	AlreadyFulfilled bool
}

// FulfillmentService issues tickets and dispatches notifications after a
// confirmed payment. Written to be safe under transition replay: the
// ticket-existence check is the only protection against duplicate
// issuance.
type FulfillmentService struct {
	tickets      TicketRepository
	orders       OrderRepository
	artifacts    ArtifactRenderer
	email        EmailSender
	sms          SMSSender
	clock        clock.Clock
	logger       *log.Logger
	notifyBudget time.Duration
}

const defaultNotifyBudget = 8 * time.Second

func NewFulfillmentService(
	tickets TicketRepository,
	orders OrderRepository,
	artifacts ArtifactRenderer,
	email EmailSender,
	sms SMSSender,
	clk clock.Clock,
	logger *log.Logger,
	opts ...FulfillmentOption,
) *FulfillmentService {
	if logger == nil {
		logger = log.Default()
	}
	svc := &FulfillmentService{
		tickets:      tickets,
		orders:       orders,
		artifacts:    artifacts,
		email:        email,
		sms:          sms,
		clock:        clk,
		logger:       logger,
		notifyBudget: defaultNotifyBudget,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type FulfillmentOption func(*FulfillmentService)

// WithNotifyBudget overrides the wall-clock budget for notification
// dispatch.
func WithNotifyBudget(d time.Duration) FulfillmentOption {
	return func(s *FulfillmentService) {
		if d > 0 {
			s.notifyBudget = d
		}
	}
}

// TicketsForOrder lists the tickets already issued for an order.
func (s *FulfillmentService) TicketsForOrder(ctx context.Context, orderID string) ([]domain.Ticket, error) {
	return s.tickets.ListByOrder(ctx, orderID)
}

// Fulfill issues one ticket per unit of every order line and dispatches
// the consolidated email and SMS. If tickets already exist for the order
// the existing set is returned untouched. Per-unit issuance failures are
// logged and skipped; fulfillment succeeds when at least one ticket was
// produced. Notification failure never reverses anything. The caller
// passes the status the order held before its paid transition so the
// audit trail records the actual move.
func (s *FulfillmentService) Fulfill(ctx context.Context, order domain.Order, from domain.OrderStatus, actor string) (FulfillmentResult, error) {
	existing, err := s.tickets.ListByOrder(ctx, order.ID)
	if err != nil {
		return FulfillmentResult{}, fmt.Errorf("check existing tickets: %w", err)
	}
	if len(existing) > 0 {
		return FulfillmentResult{
			Tickets:          existing,
			AlreadyFulfilled: true,
		}, nil
	}

	lines, err := s.orders.GetOrderLines(ctx, order.ID)
	if err != nil {
		return FulfillmentResult{}, fmt.Errorf("load order lines: %w", err)
	}

	now := s.clock.Now()
	var issued []domain.Ticket
	for _, line := range lines {
		for unit := 0; unit < line.Quantity; unit++ {
			ticket, err := s.issueTicket(ctx, order.ID, line.ID, now)
			if err != nil {
				s.logger.Printf("WARN: ticket issuance failed for order %s line %s unit %d: %v", order.ID, line.ID, unit, err)
				continue
			}
			issued = append(issued, ticket)
		}
	}
	if len(issued) == 0 {
		return FulfillmentResult{}, fmt.Errorf("no tickets issued for order %s", order.ID)
	}

	result := FulfillmentResult{
		Tickets:          issued,
		TicketsGenerated: true,
	}
	result.EmailSent, result.SMSSent = s.dispatchNotifications(ctx, order, issued)

	s.appendAudit(ctx, order, from, actor, result)

	return result, nil
}

func (s *FulfillmentService) issueTicket(ctx context.Context, orderID, lineID string, now time.Time) (domain.Ticket, error) {
	token := newSecureToken()
	url, err := s.artifacts.Render(ctx, token)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("render code: %w", err)
	}

	ticket := domain.Ticket{
		ID:           newID(),
		OrderID:      orderID,
		OrderLineID:  lineID,
		SecureToken:  token,
		Status:       domain.TicketStatusValid,
		CodeImageURL: url,
		IssuedAt:     now,
	}
	if err := s.tickets.CreateTicket(ctx, ticket); err != nil {
		return domain.Ticket{}, fmt.Errorf("persist ticket: %w", err)
	}
	return ticket, nil
}

// dispatchNotifications races the email and SMS sends against the budget.
// When the budget expires the sends are abandoned; tickets stay issued and
// the outcome is recorded as abandoned.
func (s *FulfillmentService) dispatchNotifications(ctx context.Context, order domain.Order, tickets []domain.Ticket) (emailSent, smsSent bool) {
	budgetCtx, cancel := context.WithTimeout(ctx, s.notifyBudget)
	defer cancel()

	type outcome struct {
		kind domain.NotificationKind
		err  error
	}
	results := make(chan outcome, 2)

	go func() {
		results <- outcome{domain.NotificationEmail, s.email.SendTickets(budgetCtx, order, tickets)}
	}()
	go func() {
		results <- outcome{domain.NotificationSMS, s.sms.SendConfirmation(budgetCtx, order)}
	}()

	outcomes := map[domain.NotificationKind]domain.NotificationOutcome{
		domain.NotificationEmail: domain.NotificationAbandoned,
		domain.NotificationSMS:   domain.NotificationAbandoned,
	}
	details := map[domain.NotificationKind]string{}

	for pending := 2; pending > 0; pending-- {
		select {
		case res := <-results:
			if res.err != nil {
				outcomes[res.kind] = domain.NotificationFailed
				details[res.kind] = res.err.Error()
				s.logger.Printf("WARN: %s dispatch failed for order %s: %v", res.kind, order.ID, res.err)
			} else {
				outcomes[res.kind] = domain.NotificationSent
			}
		case <-budgetCtx.Done():
			s.logger.Printf("WARN: notification budget expired for order %s", order.ID)
			pending = 0
		}
	}

	s.recordNotification(ctx, order, domain.NotificationEmail, order.Customer.Email, outcomes[domain.NotificationEmail], details[domain.NotificationEmail])
	s.recordNotification(ctx, order, domain.NotificationSMS, order.Customer.Phone, outcomes[domain.NotificationSMS], details[domain.NotificationSMS])

	return outcomes[domain.NotificationEmail] == domain.NotificationSent,
		outcomes[domain.NotificationSMS] == domain.NotificationSent
}

func (s *FulfillmentService) recordNotification(ctx context.Context, order domain.Order, kind domain.NotificationKind, recipient string, out domain.NotificationOutcome, detail string) {
	record := domain.NotificationRecord{
		ID:        newID(),
		OrderID:   order.ID,
		Kind:      kind,
		Recipient: recipient,
		Outcome:   out,
		Detail:    detail,
		CreatedAt: s.clock.Now(),
	}
	if err := s.tickets.AppendNotification(ctx, record); err != nil {
		s.logger.Printf("WARN: notification record append failed for order %s: %v", order.ID, err)
	}
}

func (s *FulfillmentService) appendAudit(ctx context.Context, order domain.Order, from domain.OrderStatus, actor string, result FulfillmentResult) {
	notifications := 0
	if result.EmailSent {
		notifications++
	}
	if result.SMSSent {
		notifications++
	}
	entry := domain.AuditEntry{
		ID:            newID(),
		OrderID:       order.ID,
		FromStatus:    from,
		ToStatus:      domain.StatusPaid,
		Actor:         actor,
		TicketCount:   len(result.Tickets),
		Notifications: notifications,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.orders.AppendAudit(ctx, entry); err != nil {
		s.logger.Printf("WARN: audit append failed for order %s: %v", order.ID, err)
	}
}
