package app

import (
	"context"
	"log"

	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/clock"
	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/domain"
)

// Fulfiller is the slice of FulfillmentService the admin service needs.
type Fulfiller interface {
	Fulfill(ctx context.Context, order domain.Order, from domain.OrderStatus, actor string) (FulfillmentResult, error)
}

// Orders is the slice of OrderService the admin service needs.
type Orders interface {
	Get(ctx context.Context, orderID string) (domain.Order, []domain.OrderLine, error)
	Transition(ctx context.Context, orderID string, from, to domain.OrderStatus) (TransitionResult, error)
	ReleaseStock(ctx context.Context, orderID, actor string) error
}

// AdminService drives operator-initiated order transitions: approval of
// cash and POS orders, cancellation of pending cash orders, refunds.
type AdminService struct {
	orders      Orders
	fulfillment Fulfiller
	repo        OrderRepository
	clock       clock.Clock
	logger      *log.Logger
}

func NewAdminService(orders Orders, fulfillment Fulfiller, repo OrderRepository, clk clock.Clock, logger *log.Logger) *AdminService {
	if logger == nil {
		logger = log.Default()
	}
	return &AdminService{
		orders:      orders,
		fulfillment: fulfillment,
		repo:        repo,
		clock:       clk,
		logger:      logger,
	}
}

// ApproveResult is the approval outcome, stable under replay.
type ApproveResult struct {
	Order            domain.Order
	TicketsGenerated bool
	TicketsCount     int
	EmailSent        bool
	SMSSent          bool
	AlreadyApproved  bool
}

// Approve drives a pending cash or POS order to paid and fulfills it. A
// repeat call after success re-runs the fulfillment check, finds the
// existing tickets, and reports AlreadyApproved instead of erroring; two
// concurrent calls resolve through the conditional status update, and the
// ticket-existence check keeps issuance single.
func (s *AdminService) Approve(ctx context.Context, orderID, actor string) (ApproveResult, error) {
	order, _, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return ApproveResult{}, err
	}

	from := order.Status
	switch from {
	case domain.StatusPendingCash, domain.StatusPendingAdminApproval:
	case domain.StatusPaid:
		// Replay after a completed approval.
		res, err := s.fulfillment.Fulfill(ctx, order, order.Status, actor)
		if err != nil {
			return ApproveResult{}, err
		}
		return ApproveResult{
			Order:            order,
			TicketsCount:     len(res.Tickets),
			TicketsGenerated: res.TicketsGenerated,
			EmailSent:        res.EmailSent,
			SMSSent:          res.SMSSent,
			AlreadyApproved:  true,
		}, nil
	default:
		return ApproveResult{}, domain.ErrInvalidTransition
	}

	tr, err := s.orders.Transition(ctx, orderID, from, domain.StatusPaid)
	if err != nil {
		return ApproveResult{}, err
	}

	if tr.Performed {
		if err := s.repo.SetApprovedAt(ctx, orderID); err != nil {
			s.logger.Printf("WARN: set approved_at for order %s: %v", orderID, err)
		}
	}

	// Fulfillment runs for both the performing caller and an idempotent
	// replay; the existence check inside decides what actually happens.
	res, err := s.fulfillment.Fulfill(ctx, tr.Order, from, actor)
	if err != nil {
		return ApproveResult{}, err
	}

	return ApproveResult{
		Order:            tr.Order,
		TicketsCount:     len(res.Tickets),
		TicketsGenerated: res.TicketsGenerated,
		EmailSent:        res.EmailSent,
		SMSSent:          res.SMSSent,
		AlreadyApproved:  !tr.Performed,
	}, nil
}

// Cancel moves a pending cash order to cancelled and releases its stock.
func (s *AdminService) Cancel(ctx context.Context, orderID, actor string) (domain.Order, error) {
	tr, err := s.orders.Transition(ctx, orderID, domain.StatusPendingCash, domain.StatusCancelled)
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.orders.ReleaseStock(ctx, orderID, actor); err != nil {
		return domain.Order{}, err
	}
	return tr.Order, nil
}

// Refund moves a paid order to refunded and releases its stock through the
// same compensating primitive as cancellation.
func (s *AdminService) Refund(ctx context.Context, orderID, actor string) (domain.Order, error) {
	tr, err := s.orders.Transition(ctx, orderID, domain.StatusPaid, domain.StatusRefunded)
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.orders.ReleaseStock(ctx, orderID, actor); err != nil {
		return domain.Order{}, err
	}
	return tr.Order, nil
}
