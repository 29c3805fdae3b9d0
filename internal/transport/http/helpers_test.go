package http

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/app"
	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/domain"
	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/payment"
)

const testSecret = "test-session-secret"

func signSession(t *testing.T, role, subject, outletSlug string) string {
	t.Helper()
	claims := sessionClaims{
		Role:       role,
		OutletSlug: outletSlug,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign session token: %v", err)
	}
	return token
}

type fakeOrderService struct {
	lastInput app.CreateOrderInput
	order     domain.Order
	lines     []domain.OrderLine
	err       error
}

func (f *fakeOrderService) CreateOrder(_ context.Context, in app.CreateOrderInput) (domain.Order, error) {
	f.lastInput = in
	if f.err != nil {
		return domain.Order{}, f.err
	}
	return f.order, nil
}

func (f *fakeOrderService) Get(_ context.Context, orderID string) (domain.Order, []domain.OrderLine, error) {
	if f.err != nil {
		return domain.Order{}, nil, f.err
	}
	if f.order.ID != orderID {
		return domain.Order{}, nil, domain.ErrOrderNotFound
	}
	return f.order, f.lines, nil
}

type fakeTicketLister struct {
	tickets []domain.Ticket
	err     error
}

func (f *fakeTicketLister) TicketsForOrder(_ context.Context, _ string) ([]domain.Ticket, error) {
	return f.tickets, f.err
}

type fakeLinkGenerator struct {
	link payment.Link
	err  error
}

func (f *fakeLinkGenerator) LinkForOrder(_ context.Context, _ domain.Order) (payment.Link, error) {
	return f.link, f.err
}

type fakeAdminService struct {
	approve    app.ApproveResult
	approveErr error
	order      domain.Order
	err        error
	lastActor  string
	lastID     string
}

func (f *fakeAdminService) Approve(_ context.Context, orderID, actor string) (app.ApproveResult, error) {
	f.lastID, f.lastActor = orderID, actor
	return f.approve, f.approveErr
}

func (f *fakeAdminService) Cancel(_ context.Context, orderID, actor string) (domain.Order, error) {
	f.lastID, f.lastActor = orderID, actor
	return f.order, f.err
}

func (f *fakeAdminService) Refund(_ context.Context, orderID, actor string) (domain.Order, error) {
	f.lastID, f.lastActor = orderID, actor
	return f.order, f.err
}

type fakeOutletService struct {
	lastSlug  string
	lastInput app.CreateOrderInput
	order     domain.Order
	err       error
}

func (f *fakeOutletService) CreateOutletOrder(_ context.Context, slug string, in app.CreateOrderInput) (domain.Order, error) {
	f.lastSlug, f.lastInput = slug, in
	if f.err != nil {
		return domain.Order{}, f.err
	}
	return f.order, nil
}

type fakeVerifier struct {
	result  app.VerifyResult
	err     error
	lastPay string
	lastOrd string
}

func (f *fakeVerifier) VerifyAndSettle(_ context.Context, paymentID, orderID string) (app.VerifyResult, error) {
	f.lastPay, f.lastOrd = paymentID, orderID
	return f.result, f.err
}

type fakeWebhookService struct {
	result  app.VerifyResult
	err     error
	payload app.WebhookPayload
	called  bool
}

func (f *fakeWebhookService) HandleWebhook(_ context.Context, payload app.WebhookPayload) (app.VerifyResult, error) {
	f.called = true
	f.payload = payload
	return f.result, f.err
}
