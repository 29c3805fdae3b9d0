package app

import (
	"context"
	"fmt"
	"log"

	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/domain"
)

// PoolRepository is the storage contract for capacity pools. Increment is
// conditional on the previously read sold quantity (compare-and-swap);
// Decrement clamps at zero.
type PoolRepository interface {
	GetPool(ctx context.Context, ref domain.PoolRef) (domain.Pool, error)
	IncrementSold(ctx context.Context, ref domain.PoolRef, expectedSold, quantity int) (bool, error)
	DecrementSold(ctx context.Context, ref domain.PoolRef, quantity int) error
	AppendReservationEvent(ctx context.Context, event domain.ReservationEvent) error
	ReservationReleased(ctx context.Context, reservationID string, ref domain.PoolRef) (bool, error)
}

// ReserveLine is one requested line of a reservation.
type ReserveLine struct {
	Ref      domain.PoolRef
	Quantity int
}

// StockError reports which pool made a reservation fail.
type StockError struct {
	Ref    domain.PoolRef
	Reason error
}

func (e *StockError) Error() string {
	return fmt.Sprintf("reserve %s: %v", e.Ref.PassID, e.Reason)
}

func (e *StockError) Unwrap() error {
	return e.Reason
}

// InventoryService emulates all-or-nothing multi-line reservation with
// per-pool CAS plus explicit compensating rollback. The store is the only
// shared mutable resource; no in-process locking.
type InventoryService struct {
	repo   PoolRepository
	logger *log.Logger
}

func NewInventoryService(repo PoolRepository, logger *log.Logger) *InventoryService {
	if logger == nil {
		logger = log.Default()
	}
	return &InventoryService{repo: repo, logger: logger}
}

// ReserveAll reserves every line or none. Each line re-reads its pool,
// validates activity and capacity, then increments the sold counter only
// if it is unchanged since the read. A lost race is a StockError, not a
// retry: the caller asked to reserve now. On any line failure, lines
// reserved earlier in this call are released in reverse order.
func (s *InventoryService) ReserveAll(ctx context.Context, orderID, actor string, lines []ReserveLine) (domain.Reservation, error) {
	if len(lines) == 0 {
		return domain.Reservation{}, domain.ErrInvalidQuantity
	}

	res := domain.Reservation{ID: newID()}

	for _, line := range lines {
		if line.Quantity <= 0 {
			s.rollback(ctx, orderID, actor, res)
			return domain.Reservation{}, &StockError{Ref: line.Ref, Reason: domain.ErrInvalidQuantity}
		}

		pool, err := s.repo.GetPool(ctx, line.Ref)
		if err != nil {
			s.rollback(ctx, orderID, actor, res)
			return domain.Reservation{}, &StockError{Ref: line.Ref, Reason: err}
		}
		if !pool.IsActive {
			s.rollback(ctx, orderID, actor, res)
			return domain.Reservation{}, &StockError{Ref: line.Ref, Reason: domain.ErrPoolInactive}
		}
		if pool.MaxQuantity != nil && pool.SoldQuantity+line.Quantity > *pool.MaxQuantity {
			s.rollback(ctx, orderID, actor, res)
			return domain.Reservation{}, &StockError{Ref: line.Ref, Reason: domain.ErrStockConflict}
		}

		swapped, err := s.repo.IncrementSold(ctx, line.Ref, pool.SoldQuantity, line.Quantity)
		if err != nil {
			s.rollback(ctx, orderID, actor, res)
			return domain.Reservation{}, &StockError{Ref: line.Ref, Reason: err}
		}
		if !swapped {
			// A concurrent reservation won the race.
			s.rollback(ctx, orderID, actor, res)
			return domain.Reservation{}, &StockError{Ref: line.Ref, Reason: domain.ErrStockConflict}
		}

		res.Lines = append(res.Lines, domain.ReservedLine{
			Ref:      line.Ref,
			Quantity: line.Quantity,
			Pool:     pool,
		})

		if err := s.repo.AppendReservationEvent(ctx, domain.ReservationEvent{
			ID:            newID(),
			ReservationID: res.ID,
			Kind:          domain.ReservationEventReserve,
			Ref:           line.Ref,
			Quantity:      line.Quantity,
			OrderID:       orderID,
			Actor:         actor,
		}); err != nil {
			s.logger.Printf("WARN: reservation event append failed for order %s: %v", orderID, err)
		}
	}

	return res, nil
}

// Release returns every line of a reservation to its pool, in reverse
// order, clamped at zero. Idempotency is tracked per line: a line whose
// release entry already exists is skipped, so a retry after a partial
// failure finishes only the remaining lines.
func (s *InventoryService) Release(ctx context.Context, orderID, actor string, res domain.Reservation) error {
	for i := len(res.Lines) - 1; i >= 0; i-- {
		line := res.Lines[i]

		released, err := s.repo.ReservationReleased(ctx, res.ID, line.Ref)
		if err != nil {
			return fmt.Errorf("check release state: %w", err)
		}
		if released {
			continue
		}

		if err := s.repo.DecrementSold(ctx, line.Ref, line.Quantity); err != nil {
			return fmt.Errorf("release %s: %w", line.Ref.PassID, err)
		}
		if err := s.repo.AppendReservationEvent(ctx, domain.ReservationEvent{
			ID:            newID(),
			ReservationID: res.ID,
			Kind:          domain.ReservationEventRelease,
			Ref:           line.Ref,
			Quantity:      line.Quantity,
			OrderID:       orderID,
			Actor:         actor,
		}); err != nil {
			s.logger.Printf("WARN: release event append failed for order %s: %v", orderID, err)
		}
	}
	return nil
}

// rollback undoes the lines reserved so far in a failed ReserveAll. Errors
// here are logged, not returned: the caller already has the line failure.
func (s *InventoryService) rollback(ctx context.Context, orderID, actor string, res domain.Reservation) {
	for i := len(res.Lines) - 1; i >= 0; i-- {
		line := res.Lines[i]
		if err := s.repo.DecrementSold(ctx, line.Ref, line.Quantity); err != nil {
			s.logger.Printf("WARN: rollback of %s for order %s failed: %v", line.Ref.PassID, orderID, err)
			continue
		}
		if err := s.repo.AppendReservationEvent(ctx, domain.ReservationEvent{
			ID:            newID(),
			ReservationID: res.ID,
			Kind:          domain.ReservationEventRelease,
			Ref:           line.Ref,
			Quantity:      line.Quantity,
			OrderID:       orderID,
			Actor:         actor,
		}); err != nil {
			s.logger.Printf("WARN: rollback event append failed for order %s: %v", orderID, err)
		}
	}
}
