package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/domain"
	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/payment"
)

// VerifyResult is the outcome surfaced to the caller of the verification
// endpoint.
type VerifyResult struct {
	Status       payment.Status
	OrderUpdated bool
	// StillProcessing is set when polling exhausted its attempts on
	// PENDING; the webhook remains the authority.
	StillProcessing bool
}

// PaymentService drives client-side payment verification and webhook
// settlement. Both paths converge on the same transition-then-fulfill
// sequence and are idempotent against replay.
type PaymentService struct {
	gateway     payment.Gateway
	orders      Orders
	fulfillment Fulfiller
	logger      *log.Logger

	baseDelay   time.Duration
	maxDelay    time.Duration
	maxAttempts int
}

type PaymentServiceOption func(*PaymentService)

// WithBackoff overrides the polling backoff policy.
func WithBackoff(base, max time.Duration, attempts int) PaymentServiceOption {
	return func(s *PaymentService) {
		if base > 0 {
			s.baseDelay = base
		}
		if max > 0 {
			s.maxDelay = max
		}
		if attempts > 0 {
			s.maxAttempts = attempts
		}
	}
}

func NewPaymentService(gateway payment.Gateway, orders Orders, fulfillment Fulfiller, logger *log.Logger, opts ...PaymentServiceOption) *PaymentService {
	if logger == nil {
		logger = log.Default()
	}
	svc := &PaymentService{
		gateway:     gateway,
		orders:      orders,
		fulfillment: fulfillment,
		logger:      logger,
		baseDelay:   2 * time.Second,
		maxDelay:    30 * time.Second,
		maxAttempts: 6,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// LinkForOrder generates the gateway payment link for a freshly created
// online order. When generation fails the order cannot be paid, so it is
// failed and its reservation rolled back rather than left holding stock.
func (s *PaymentService) LinkForOrder(ctx context.Context, order domain.Order) (payment.Link, error) {
	link, err := s.gateway.Generate(ctx, order.ID, order.TotalCents)
	if err != nil {
		if _, terr := s.orders.Transition(ctx, order.ID, domain.StatusPendingOnline, domain.StatusFailed); terr != nil {
			s.logger.Printf("WARN: fail transition after link error for order %s: %v", order.ID, terr)
		}
		if rerr := s.orders.ReleaseStock(ctx, order.ID, "system:gateway"); rerr != nil {
			s.logger.Printf("WARN: release after link error for order %s: %v", order.ID, rerr)
		}
		return payment.Link{}, fmt.Errorf("generate payment link: %w", err)
	}
	return link, nil
}

// VerifyAndSettle polls the gateway for a payment's state. SUCCESS settles
// the order; FAILURE and EXPIRED are terminal for this poll but leave the
// order pending for operator review, since the webhook may still arrive.
// PENDING retries with exponential backoff up to the attempt limit, then
// surfaces still-processing and stops: abandoning the poll never mutates
// state. The loop is cancellable through ctx.
func (s *PaymentService) VerifyAndSettle(ctx context.Context, paymentID, orderID string) (VerifyResult, error) {
	delay := s.baseDelay

	for attempt := 1; ; attempt++ {
		status, err := s.gateway.Verify(ctx, paymentID)
		if err != nil {
			if ctx.Err() != nil {
				return VerifyResult{}, ctx.Err()
			}
			s.logger.Printf("WARN: verify attempt %d for payment %s: %v", attempt, paymentID, err)
			status = payment.StatusPending
		}

		switch status {
		case payment.StatusSuccess:
			updated, err := s.settle(ctx, orderID, "gateway:"+paymentID)
			if err != nil {
				return VerifyResult{}, err
			}
			return VerifyResult{Status: payment.StatusSuccess, OrderUpdated: updated}, nil
		case payment.StatusFailure, payment.StatusExpired:
			return VerifyResult{Status: status}, nil
		}

		if attempt >= s.maxAttempts {
			return VerifyResult{Status: payment.StatusPending, StillProcessing: true}, nil
		}

		select {
		case <-ctx.Done():
			return VerifyResult{}, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > s.maxDelay {
			delay = s.maxDelay
		}
	}
}

// WebhookPayload is the signature-verified body of a gateway webhook.
type WebhookPayload struct {
	PaymentID string         `json:"payment_id"`
	OrderID   string         `json:"order_id"`
	Status    payment.Status `json:"status"`
}

// HandleWebhook applies an authoritative gateway notification. Duplicate
// deliveries resolve through the conditional transition and the
// fulfillment existence check.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload WebhookPayload) (VerifyResult, error) {
	switch payload.Status {
	case payment.StatusSuccess:
		updated, err := s.settle(ctx, payload.OrderID, "webhook:"+payload.PaymentID)
		if err != nil {
			return VerifyResult{}, err
		}
		return VerifyResult{Status: payment.StatusSuccess, OrderUpdated: updated}, nil
	case payment.StatusFailure, payment.StatusExpired:
		// The order stays pending for operator review.
		return VerifyResult{Status: payload.Status}, nil
	default:
		return VerifyResult{Status: payload.Status}, nil
	}
}

// settle drives pending_online -> paid and fulfills. An order already paid
// is a replay, not an error; fulfillment's existence check returns the
// prior result.
func (s *PaymentService) settle(ctx context.Context, orderID, actor string) (bool, error) {
	// An order already in paid resolves as a no-op inside Transition;
	// any other state is a genuine conflict.
	tr, err := s.orders.Transition(ctx, orderID, domain.StatusPendingOnline, domain.StatusPaid)
	if err != nil {
		return false, err
	}

	if _, err := s.fulfillment.Fulfill(ctx, tr.Order, domain.StatusPendingOnline, actor); err != nil {
		// Tickets could not be produced; the order stays paid and the
		// next replay retries issuance.
		s.logger.Printf("WARN: fulfillment after settle for order %s: %v", orderID, err)
	}
	return tr.Performed, nil
}
