package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/domain"
)

// fakePoolRepo backs the inventory tests with in-memory pools. Hooks let
// individual tests inject CAS losses and write failures.
type fakePoolRepo struct {
	mu     sync.Mutex
	pools  map[string]*domain.Pool
	events []domain.ReservationEvent

	// beforeCAS runs before every IncrementSold, letting a test mutate
	// the pool between the service's read and its conditional write.
	beforeCAS func(ref domain.PoolRef)

	// beforeDecrement runs before every DecrementSold and may fail the
	// call, letting a test inject a transient release failure.
	beforeDecrement func(ref domain.PoolRef) error
}

func poolKey(ref domain.PoolRef) string {
	return ref.OutletID + "|" + ref.EventID + "|" + ref.PassID
}

func newFakePoolRepo(pools ...domain.Pool) *fakePoolRepo {
	repo := &fakePoolRepo{pools: make(map[string]*domain.Pool)}
	for i := range pools {
		p := pools[i]
		repo.pools[poolKey(p.Ref)] = &p
	}
	return repo
}

func (f *fakePoolRepo) GetPool(_ context.Context, ref domain.PoolRef) (domain.Pool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pools[poolKey(ref)]
	if !ok {
		return domain.Pool{}, domain.ErrPoolNotFound
	}
	return *p, nil
}

func (f *fakePoolRepo) IncrementSold(_ context.Context, ref domain.PoolRef, expectedSold, quantity int) (bool, error) {
	if f.beforeCAS != nil {
		f.beforeCAS(ref)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pools[poolKey(ref)]
	if !ok {
		return false, domain.ErrPoolNotFound
	}
	if p.SoldQuantity != expectedSold || !p.IsActive {
		return false, nil
	}
	if p.MaxQuantity != nil && p.SoldQuantity+quantity > *p.MaxQuantity {
		return false, nil
	}
	p.SoldQuantity += quantity
	return true, nil
}

func (f *fakePoolRepo) DecrementSold(_ context.Context, ref domain.PoolRef, quantity int) error {
	if f.beforeDecrement != nil {
		if err := f.beforeDecrement(ref); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pools[poolKey(ref)]
	if !ok {
		return domain.ErrPoolNotFound
	}
	p.SoldQuantity -= quantity
	if p.SoldQuantity < 0 {
		p.SoldQuantity = 0
	}
	return nil
}

func (f *fakePoolRepo) AppendReservationEvent(_ context.Context, event domain.ReservationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakePoolRepo) ReservationReleased(_ context.Context, reservationID string, ref domain.PoolRef) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.ReservationID == reservationID && e.Kind == domain.ReservationEventRelease && e.Ref == ref {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePoolRepo) sold(ref domain.PoolRef) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pools[poolKey(ref)].SoldQuantity
}

// fakeOrderRepo is the in-memory OrderRepository for service tests.
type fakeOrderRepo struct {
	mu       sync.Mutex
	orders   map[string]*domain.Order
	lines    map[string][]domain.OrderLine
	audit    []domain.AuditEntry
	outlets  map[string]string
	failNext error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:  make(map[string]*domain.Order),
		lines:   make(map[string][]domain.OrderLine),
		outlets: make(map[string]string),
	}
}

func (f *fakeOrderRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeOrderRepo) CreateOrder(_ context.Context, order domain.Order, lines []domain.OrderLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	o := order
	f.orders[order.ID] = &o
	f.lines[order.ID] = append([]domain.OrderLine{}, lines...)
	return nil
}

func (f *fakeOrderRepo) GetOrder(_ context.Context, orderID string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return *o, nil
}

func (f *fakeOrderRepo) GetOrderLines(_ context.Context, orderID string) ([]domain.OrderLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.OrderLine{}, f.lines[orderID]...), nil
}

func (f *fakeOrderRepo) UpdateStatus(_ context.Context, orderID string, from, to domain.OrderStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return false, domain.ErrOrderNotFound
	}
	if o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (f *fakeOrderRepo) SetApprovedAt(_ context.Context, orderID string) error {
	return nil
}

func (f *fakeOrderRepo) MarkStockReleased(_ context.Context, orderID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return false, domain.ErrOrderNotFound
	}
	if o.StockReleased {
		return false, nil
	}
	o.StockReleased = true
	return true, nil
}

func (f *fakeOrderRepo) UnmarkStockReleased(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.StockReleased = false
	return nil
}

func (f *fakeOrderRepo) AppendAudit(_ context.Context, entry domain.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audit = append(f.audit, entry)
	return nil
}

func (f *fakeOrderRepo) GetOutletIDBySlug(_ context.Context, slug string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.outlets[slug]
	if !ok {
		return "", domain.ErrOutletNotFound
	}
	return id, nil
}

// fakeTicketRepo is the in-memory TicketRepository for fulfillment tests.
type fakeTicketRepo struct {
	mu            sync.Mutex
	tickets       map[string][]domain.Ticket
	notifications []domain.NotificationRecord
	failTokens    map[string]bool
	createCalls   int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string][]domain.Ticket)}
}

func (f *fakeTicketRepo) ListByOrder(_ context.Context, orderID string) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Ticket{}, f.tickets[orderID]...), nil
}

func (f *fakeTicketRepo) CreateTicket(_ context.Context, ticket domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.failTokens != nil && f.failTokens[ticket.OrderLineID] {
		return errors.New("persist failed")
	}
	f.tickets[ticket.OrderID] = append(f.tickets[ticket.OrderID], ticket)
	return nil
}

func (f *fakeTicketRepo) AppendNotification(_ context.Context, record domain.NotificationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, record)
	return nil
}

// fakeRenderer returns deterministic artifact URLs.
type fakeRenderer struct {
	fail bool
}

func (f *fakeRenderer) Render(_ context.Context, token string) (string, error) {
	if f.fail {
		return "", errors.New("render failed")
	}
	return fmt.Sprintf("/tickets/%s.png", token), nil
}
