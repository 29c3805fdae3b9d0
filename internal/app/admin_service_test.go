package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/clock"
	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/domain"
)

// adminStack wires the real services over the in-memory fakes so the
// approval flow is exercised end to end.
type adminStack struct {
	admin      *AdminService
	orderRepo  *fakeOrderRepo
	poolRepo   *fakePoolRepo
	ticketRepo *fakeTicketRepo
}

func newAdminStack(t *testing.T, pools ...domain.Pool) adminStack {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFixed(now)

	orderRepo := newFakeOrderRepo()
	poolRepo := newFakePoolRepo(pools...)
	ticketRepo := newFakeTicketRepo()

	inventory := NewInventoryService(poolRepo, nil)
	orders := NewOrderService(orderRepo, inventory, clk, nil)
	fulfillment := NewFulfillmentService(ticketRepo, orderRepo, &fakeRenderer{}, &fakeEmailSender{}, &fakeSMSSender{}, clk, nil)

	return adminStack{
		admin:      NewAdminService(orders, fulfillment, orderRepo, clk, nil),
		orderRepo:  orderRepo,
		poolRepo:   poolRepo,
		ticketRepo: ticketRepo,
	}
}

func (s adminStack) seedOrder(status domain.OrderStatus, quantity int) domain.Order {
	order := domain.Order{
		ID:       "order-1",
		Channel:  domain.ChannelCash,
		Status:   status,
		EventID:  "ev-1",
		Quantity: quantity,
		Customer: testCustomer,
	}
	s.orderRepo.orders[order.ID] = &order
	s.orderRepo.lines[order.ID] = []domain.OrderLine{
		{ID: "line-1", OrderID: order.ID, PassID: "pass-a", Quantity: quantity},
	}
	return order
}

func TestAdminService_Approve(t *testing.T) {
	t.Parallel()

	pool := domain.Pool{
		Ref:          domain.PoolRef{PassID: "pass-a", EventID: "ev-1"},
		Name:         "Standard",
		PriceCents:   5000,
		IsActive:     true,
		SoldQuantity: 2,
	}

	t.Run("approves a pending cash order and fulfills it", func(t *testing.T) {
		stack := newAdminStack(t, pool)
		stack.seedOrder(domain.StatusPendingCash, 2)

		res, err := stack.admin.Approve(context.Background(), "order-1", "admin:ops")
		if err != nil {
			t.Fatalf("expected approval, got %v", err)
		}
		if res.AlreadyApproved {
			t.Fatalf("first approval must not report already approved")
		}
		if res.Order.Status != domain.StatusPaid {
			t.Fatalf("expected paid, got %s", res.Order.Status)
		}
		if !res.TicketsGenerated || res.TicketsCount != 2 {
			t.Fatalf("expected 2 fresh tickets, got generated=%v count=%d", res.TicketsGenerated, res.TicketsCount)
		}

		if len(stack.orderRepo.audit) != 1 {
			t.Fatalf("expected 1 audit entry, got %d", len(stack.orderRepo.audit))
		}
		entry := stack.orderRepo.audit[0]
		if entry.FromStatus != domain.StatusPendingCash || entry.ToStatus != domain.StatusPaid {
			t.Fatalf("expected audit pending_cash -> paid, got %s -> %s", entry.FromStatus, entry.ToStatus)
		}
	})

	t.Run("repeat approval replays without reissuing", func(t *testing.T) {
		stack := newAdminStack(t, pool)
		stack.seedOrder(domain.StatusPendingCash, 2)

		if _, err := stack.admin.Approve(context.Background(), "order-1", "admin:ops"); err != nil {
			t.Fatalf("first approval: %v", err)
		}
		creates := stack.ticketRepo.createCalls

		res, err := stack.admin.Approve(context.Background(), "order-1", "admin:ops")
		if err != nil {
			t.Fatalf("replay must succeed, got %v", err)
		}
		if !res.AlreadyApproved {
			t.Fatalf("expected already approved on replay")
		}
		if res.TicketsGenerated {
			t.Fatalf("replay must not generate tickets")
		}
		if res.TicketsCount != 2 {
			t.Fatalf("expected replay to return the existing 2 tickets, got %d", res.TicketsCount)
		}
		if stack.ticketRepo.createCalls != creates {
			t.Fatalf("replay issued tickets: %d -> %d creates", creates, stack.ticketRepo.createCalls)
		}
	})

	t.Run("approves a pos order awaiting admin approval", func(t *testing.T) {
		stack := newAdminStack(t, pool)
		stack.seedOrder(domain.StatusPendingAdminApproval, 1)

		res, err := stack.admin.Approve(context.Background(), "order-1", "admin:ops")
		if err != nil {
			t.Fatalf("expected approval, got %v", err)
		}
		if res.Order.Status != domain.StatusPaid || res.TicketsCount != 1 {
			t.Fatalf("expected paid with 1 ticket, got %s/%d", res.Order.Status, res.TicketsCount)
		}
	})

	t.Run("rejects approval from a terminal state", func(t *testing.T) {
		stack := newAdminStack(t, pool)
		stack.seedOrder(domain.StatusCancelled, 1)

		if _, err := stack.admin.Approve(context.Background(), "order-1", "admin:ops"); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
		if stack.ticketRepo.createCalls != 0 {
			t.Fatalf("no tickets may be issued for a cancelled order")
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		stack := newAdminStack(t, pool)

		if _, err := stack.admin.Approve(context.Background(), "missing", "admin:ops"); !errors.Is(err, domain.ErrOrderNotFound) {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
	})
}

func TestAdminService_Cancel(t *testing.T) {
	t.Parallel()

	pool := domain.Pool{
		Ref:          domain.PoolRef{PassID: "pass-a", EventID: "ev-1"},
		IsActive:     true,
		SoldQuantity: 2,
	}

	t.Run("cancels and returns stock", func(t *testing.T) {
		stack := newAdminStack(t, pool)
		stack.seedOrder(domain.StatusPendingCash, 2)

		order, err := stack.admin.Cancel(context.Background(), "order-1", "admin:ops")
		if err != nil {
			t.Fatalf("expected cancellation, got %v", err)
		}
		if order.Status != domain.StatusCancelled {
			t.Fatalf("expected cancelled, got %s", order.Status)
		}
		if got := stack.poolRepo.sold(pool.Ref); got != 0 {
			t.Fatalf("expected sold back to 0, got %d", got)
		}
	})

	t.Run("repeat cancellation does not release twice", func(t *testing.T) {
		stack := newAdminStack(t, pool)
		stack.seedOrder(domain.StatusPendingCash, 2)

		if _, err := stack.admin.Cancel(context.Background(), "order-1", "admin:ops"); err != nil {
			t.Fatalf("first cancel: %v", err)
		}
		if _, err := stack.admin.Cancel(context.Background(), "order-1", "admin:ops"); err != nil {
			t.Fatalf("replay cancel must succeed, got %v", err)
		}
		if got := stack.poolRepo.sold(pool.Ref); got != 0 {
			t.Fatalf("expected sold to stay 0, got %d", got)
		}
	})

	t.Run("rejects cancelling a paid order", func(t *testing.T) {
		stack := newAdminStack(t, pool)
		stack.seedOrder(domain.StatusPaid, 2)

		if _, err := stack.admin.Cancel(context.Background(), "order-1", "admin:ops"); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
		if got := stack.poolRepo.sold(pool.Ref); got != 2 {
			t.Fatalf("paid order stock must be untouched, got sold=%d", got)
		}
	})
}

func TestAdminService_Refund(t *testing.T) {
	t.Parallel()

	pool := domain.Pool{
		Ref:          domain.PoolRef{PassID: "pass-a", EventID: "ev-1"},
		IsActive:     true,
		SoldQuantity: 3,
	}

	stack := newAdminStack(t, pool)
	stack.seedOrder(domain.StatusPaid, 3)

	order, err := stack.admin.Refund(context.Background(), "order-1", "admin:ops")
	if err != nil {
		t.Fatalf("expected refund, got %v", err)
	}
	if order.Status != domain.StatusRefunded {
		t.Fatalf("expected refunded, got %s", order.Status)
	}
	if got := stack.poolRepo.sold(pool.Ref); got != 0 {
		t.Fatalf("expected refund to return stock, got sold=%d", got)
	}

	releases := 0
	for _, e := range stack.poolRepo.events {
		if e.Kind == domain.ReservationEventRelease {
			releases++
		}
	}
	if releases != 1 {
		t.Fatalf("expected exactly one release event, got %d", releases)
	}
}
