package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/clock"
	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/domain"
)

// OrderRepository is the storage contract for orders and their lines.
// UpdateStatus is conditional on the current status and reports whether a
// row was affected; that count is the idempotency oracle for transitions.
type OrderRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateOrder(ctx context.Context, order domain.Order, lines []domain.OrderLine) error
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	GetOrderLines(ctx context.Context, orderID string) ([]domain.OrderLine, error)
	UpdateStatus(ctx context.Context, orderID string, from, to domain.OrderStatus) (bool, error)
	SetApprovedAt(ctx context.Context, orderID string) error
	MarkStockReleased(ctx context.Context, orderID string) (bool, error)
	UnmarkStockReleased(ctx context.Context, orderID string) error
	AppendAudit(ctx context.Context, entry domain.AuditEntry) error
	GetOutletIDBySlug(ctx context.Context, slug string) (string, error)
}

// Inventory is the slice of InventoryService the order service needs.
type Inventory interface {
	ReserveAll(ctx context.Context, orderID, actor string, lines []ReserveLine) (domain.Reservation, error)
	Release(ctx context.Context, orderID, actor string, res domain.Reservation) error
}

type OrderService struct {
	repo      OrderRepository
	inventory Inventory
	clock     clock.Clock
	logger    *log.Logger
}

func NewOrderService(repo OrderRepository, inventory Inventory, clk clock.Clock, logger *log.Logger) *OrderService {
	if logger == nil {
		logger = log.Default()
	}
	return &OrderService{repo: repo, inventory: inventory, clock: clk, logger: logger}
}

// OrderLineInput is one requested pass line. Any price claimed by the
// caller is ignored; snapshots come from the pool record.
type OrderLineInput struct {
	PassID   string
	Quantity int
}

type CreateOrderInput struct {
	Channel       domain.Channel
	PaymentMethod domain.PaymentMethod
	Customer      domain.Customer
	AmbassadorID  string
	OutletID      string
	EventID       string
	Lines         []OrderLineInput
	Actor         string
}

func validateCustomer(c domain.Customer) error {
	for _, field := range []string{c.Name, c.Phone, c.Email, c.City} {
		if strings.TrimSpace(field) == "" {
			return domain.ErrMissingCustomerField
		}
	}
	return nil
}

// CreateOrder reserves stock for every requested line (all-or-nothing),
// then persists the order and its snapshot lines in a channel-appropriate
// pending state. A persistence failure after reservation triggers the same
// compensating release as a stock conflict.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	if err := validateCustomer(in.Customer); err != nil {
		return domain.Order{}, err
	}
	if len(in.Lines) == 0 {
		return domain.Order{}, domain.ErrInvalidQuantity
	}
	if in.Channel == domain.ChannelCash && in.AmbassadorID == "" {
		return domain.Order{}, domain.ErrUnauthorized
	}

	orderID := newID()

	reserveLines := make([]ReserveLine, 0, len(in.Lines))
	for _, line := range in.Lines {
		if line.Quantity <= 0 {
			return domain.Order{}, domain.ErrInvalidQuantity
		}
		reserveLines = append(reserveLines, ReserveLine{
			Ref: domain.PoolRef{
				PassID:   line.PassID,
				EventID:  in.EventID,
				OutletID: in.OutletID,
			},
			Quantity: line.Quantity,
		})
	}

	res, err := s.inventory.ReserveAll(ctx, orderID, in.Actor, reserveLines)
	if err != nil {
		return domain.Order{}, err
	}

	// Payment-method allow-lists are validated against the reserved
	// snapshots so the check and the snapshot come from the same read.
	for _, line := range res.Lines {
		if !line.Pool.AllowsPayment(in.PaymentMethod) {
			s.releaseAfterFailure(ctx, orderID, in.Actor, res)
			return domain.Order{}, domain.ErrPaymentMethodNotAllowed
		}
	}

	now := s.clock.Now()
	order := domain.Order{
		ID:            orderID,
		Channel:       in.Channel,
		Status:        domain.InitialStatus(in.Channel),
		PaymentMethod: in.PaymentMethod,
		Customer:      in.Customer,
		AmbassadorID:  in.AmbassadorID,
		OutletID:      in.OutletID,
		EventID:       in.EventID,
		TotalCents:    res.TotalPriceCents(),
		Quantity:      res.TotalQuantity(),
		CreatedAt:     now,
	}

	lines := make([]domain.OrderLine, 0, len(res.Lines))
	for _, rl := range res.Lines {
		lines = append(lines, domain.OrderLine{
			ID:             newID(),
			OrderID:        orderID,
			PassID:         rl.Ref.PassID,
			OutletID:       rl.Ref.OutletID,
			PassName:       rl.Pool.Name,
			Quantity:       rl.Quantity,
			UnitPriceCents: rl.Pool.PriceCents,
		})
	}

	if err := s.repo.CreateOrder(ctx, order, lines); err != nil {
		s.releaseAfterFailure(ctx, orderID, in.Actor, res)
		return domain.Order{}, fmt.Errorf("persist order: %w", err)
	}

	return order, nil
}

// CreateOutletOrder creates a POS order against the outlet-scoped pool of
// every requested pass. The outlet comes from the staff session's slug,
// never from the body, and the order starts pending admin approval. The
// payment method is forced to cash, so it still has to pass each pool's
// allow-list: an outlet pool that does not allow cash rejects the order.
func (s *OrderService) CreateOutletOrder(ctx context.Context, slug string, in CreateOrderInput) (domain.Order, error) {
	outletID, err := s.repo.GetOutletIDBySlug(ctx, slug)
	if err != nil {
		return domain.Order{}, err
	}
	in.Channel = domain.ChannelPOS
	in.OutletID = outletID
	in.PaymentMethod = domain.PaymentMethodCash
	return s.CreateOrder(ctx, in)
}

func (s *OrderService) releaseAfterFailure(ctx context.Context, orderID, actor string, res domain.Reservation) {
	if err := s.inventory.Release(ctx, orderID, actor, res); err != nil {
		s.logger.Printf("WARN: compensating release for order %s failed: %v", orderID, err)
	}
}

func (s *OrderService) Get(ctx context.Context, orderID string) (domain.Order, []domain.OrderLine, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, nil, err
	}
	lines, err := s.repo.GetOrderLines(ctx, orderID)
	if err != nil {
		return domain.Order{}, nil, err
	}
	return order, lines, nil
}

// TransitionResult reports how a requested transition resolved.
type TransitionResult struct {
	// Performed is true when this caller's conditional update moved the
	// order; false when the order was already in the target state.
	Performed bool
	Order     domain.Order
}

// Transition moves an order from one status to another with a conditional
// update. Zero rows affected means either the order already reached the
// target (idempotent replay, reported as success with Performed=false) or
// it is in some other state (ErrInvalidTransition carrying the current
// order for the caller to inspect).
func (s *OrderService) Transition(ctx context.Context, orderID string, from, to domain.OrderStatus) (TransitionResult, error) {
	if !domain.CanTransition(from, to) {
		return TransitionResult{}, domain.ErrInvalidTransition
	}

	moved, err := s.repo.UpdateStatus(ctx, orderID, from, to)
	if err != nil {
		return TransitionResult{}, fmt.Errorf("transition %s -> %s: %w", from, to, err)
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return TransitionResult{}, err
	}

	if moved {
		return TransitionResult{Performed: true, Order: order}, nil
	}
	if order.Status == to {
		return TransitionResult{Performed: false, Order: order}, nil
	}
	return TransitionResult{Order: order}, domain.ErrInvalidTransition
}

// ReleaseStock releases the order's reservation exactly once. The
// stock_released flag is claimed with a conditional update before the
// decrements so concurrent compensations cannot double-release; when the
// release itself fails the claim is returned so a retry starts over.
// Used by cancellation and refund.
func (s *OrderService) ReleaseStock(ctx context.Context, orderID, actor string) error {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	lines, err := s.repo.GetOrderLines(ctx, orderID)
	if err != nil {
		return err
	}

	flipped, err := s.repo.MarkStockReleased(ctx, orderID)
	if err != nil {
		return err
	}
	if !flipped {
		return nil
	}

	res := domain.Reservation{ID: orderID}
	for _, line := range lines {
		res.Lines = append(res.Lines, domain.ReservedLine{
			Ref: domain.PoolRef{
				PassID:   line.PassID,
				EventID:  order.EventID,
				OutletID: line.OutletID,
			},
			Quantity: line.Quantity,
		})
	}

	if err := s.inventory.Release(ctx, orderID, actor, res); err != nil {
		if uerr := s.repo.UnmarkStockReleased(ctx, orderID); uerr != nil {
			s.logger.Printf("WARN: return release claim for order %s: %v", orderID, uerr)
		}
		return err
	}
	return nil
}
