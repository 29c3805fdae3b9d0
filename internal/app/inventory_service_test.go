package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/domain"
)

func intPtr(v int) *int { return &v }

func TestInventoryService_ReserveAll(t *testing.T) {
	t.Parallel()

	refA := domain.PoolRef{PassID: "pass-a"}
	refB := domain.PoolRef{PassID: "pass-b"}

	t.Run("reserves every line on success", func(t *testing.T) {
		repo := newFakePoolRepo(
			domain.Pool{Ref: refA, Name: "Early Bird", PriceCents: 3000, IsActive: true, MaxQuantity: intPtr(100), SoldQuantity: 10},
			domain.Pool{Ref: refB, Name: "VIP", PriceCents: 9000, IsActive: true, MaxQuantity: intPtr(20), SoldQuantity: 5},
		)
		svc := NewInventoryService(repo, nil)

		res, err := svc.ReserveAll(context.Background(), "order-1", "test", []ReserveLine{
			{Ref: refA, Quantity: 2},
			{Ref: refB, Quantity: 3},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.ID == "" {
			t.Fatalf("expected reservation ID")
		}
		if got := repo.sold(refA); got != 12 {
			t.Fatalf("expected pass-a sold 12, got %d", got)
		}
		if got := repo.sold(refB); got != 8 {
			t.Fatalf("expected pass-b sold 8, got %d", got)
		}
		if res.TotalQuantity() != 5 {
			t.Fatalf("expected total quantity 5, got %d", res.TotalQuantity())
		}
		if res.TotalPriceCents() != 2*3000+3*9000 {
			t.Fatalf("unexpected total price %d", res.TotalPriceCents())
		}
	})

	t.Run("rolls back earlier lines when a later line fails", func(t *testing.T) {
		repo := newFakePoolRepo(
			domain.Pool{Ref: refA, IsActive: true, MaxQuantity: intPtr(100), SoldQuantity: 10},
			domain.Pool{Ref: refB, IsActive: true, MaxQuantity: intPtr(5), SoldQuantity: 5},
		)
		svc := NewInventoryService(repo, nil)

		_, err := svc.ReserveAll(context.Background(), "order-1", "test", []ReserveLine{
			{Ref: refA, Quantity: 2},
			{Ref: refB, Quantity: 1},
		})

		var stockErr *StockError
		if !errors.As(err, &stockErr) {
			t.Fatalf("expected StockError, got %v", err)
		}
		if stockErr.Ref != refB {
			t.Fatalf("expected failing pool pass-b, got %s", stockErr.Ref.PassID)
		}
		if !errors.Is(err, domain.ErrStockConflict) {
			t.Fatalf("expected ErrStockConflict, got %v", err)
		}
		if got := repo.sold(refA); got != 10 {
			t.Fatalf("expected pass-a sold restored to 10, got %d", got)
		}
	})

	t.Run("capacity check rejects before the write", func(t *testing.T) {
		// maxQuantity=5, soldQuantity=4, request 2.
		repo := newFakePoolRepo(
			domain.Pool{Ref: refA, IsActive: true, MaxQuantity: intPtr(5), SoldQuantity: 4},
		)
		svc := NewInventoryService(repo, nil)

		_, err := svc.ReserveAll(context.Background(), "order-1", "test", []ReserveLine{
			{Ref: refA, Quantity: 2},
		})
		if !errors.Is(err, domain.ErrStockConflict) {
			t.Fatalf("expected ErrStockConflict, got %v", err)
		}
		if got := repo.sold(refA); got != 4 {
			t.Fatalf("expected sold unchanged at 4, got %d", got)
		}
	})

	t.Run("inactive pool fails the line", func(t *testing.T) {
		repo := newFakePoolRepo(
			domain.Pool{Ref: refA, IsActive: false, SoldQuantity: 0},
		)
		svc := NewInventoryService(repo, nil)

		_, err := svc.ReserveAll(context.Background(), "order-1", "test", []ReserveLine{
			{Ref: refA, Quantity: 1},
		})
		if !errors.Is(err, domain.ErrPoolInactive) {
			t.Fatalf("expected ErrPoolInactive, got %v", err)
		}
	})

	t.Run("lost swap surfaces a conflict without retry", func(t *testing.T) {
		repo := newFakePoolRepo(
			domain.Pool{Ref: refA, IsActive: true, MaxQuantity: intPtr(100), SoldQuantity: 10},
		)
		// A concurrent reservation lands between the read and the swap.
		raced := false
		repo.beforeCAS = func(ref domain.PoolRef) {
			if !raced {
				raced = true
				repo.mu.Lock()
				repo.pools[poolKey(ref)].SoldQuantity++
				repo.mu.Unlock()
			}
		}
		svc := NewInventoryService(repo, nil)

		_, err := svc.ReserveAll(context.Background(), "order-1", "test", []ReserveLine{
			{Ref: refA, Quantity: 1},
		})
		if !errors.Is(err, domain.ErrStockConflict) {
			t.Fatalf("expected ErrStockConflict, got %v", err)
		}
		if got := repo.sold(refA); got != 11 {
			t.Fatalf("expected only the winner's unit counted, got %d", got)
		}
	})

	t.Run("unlimited pool ignores capacity", func(t *testing.T) {
		repo := newFakePoolRepo(
			domain.Pool{Ref: refA, IsActive: true, MaxQuantity: nil, SoldQuantity: 100000},
		)
		svc := NewInventoryService(repo, nil)

		if _, err := svc.ReserveAll(context.Background(), "order-1", "test", []ReserveLine{
			{Ref: refA, Quantity: 500},
		}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestInventoryService_RaceExclusivity(t *testing.T) {
	t.Parallel()

	ref := domain.PoolRef{PassID: "pass-last"}
	repo := newFakePoolRepo(
		domain.Pool{Ref: ref, IsActive: true, MaxQuantity: intPtr(10), SoldQuantity: 9},
	)
	svc := NewInventoryService(repo, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ReserveAll(context.Background(), "order", "test", []ReserveLine{
				{Ref: ref, Quantity: 1},
			})
		}(i)
	}
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrStockConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Fatalf("expected exactly one winner, got %d successes and %d conflicts", successes, conflicts)
	}
	if got := repo.sold(ref); got != 10 {
		t.Fatalf("expected sold 10, got %d", got)
	}
}

func TestInventoryService_Release(t *testing.T) {
	t.Parallel()

	ref := domain.PoolRef{PassID: "pass-a"}

	t.Run("release is idempotent", func(t *testing.T) {
		repo := newFakePoolRepo(
			domain.Pool{Ref: ref, IsActive: true, MaxQuantity: intPtr(10), SoldQuantity: 0},
		)
		svc := NewInventoryService(repo, nil)

		res, err := svc.ReserveAll(context.Background(), "order-1", "test", []ReserveLine{
			{Ref: ref, Quantity: 3},
		})
		if err != nil {
			t.Fatalf("reserve: %v", err)
		}
		if got := repo.sold(ref); got != 3 {
			t.Fatalf("expected sold 3, got %d", got)
		}

		if err := svc.Release(context.Background(), "order-1", "test", res); err != nil {
			t.Fatalf("release: %v", err)
		}
		if got := repo.sold(ref); got != 0 {
			t.Fatalf("expected sold 0 after release, got %d", got)
		}

		if err := svc.Release(context.Background(), "order-1", "test", res); err != nil {
			t.Fatalf("second release: %v", err)
		}
		if got := repo.sold(ref); got != 0 {
			t.Fatalf("expected second release to be a no-op, got %d", got)
		}
	})

	t.Run("decrement clamps at zero", func(t *testing.T) {
		repo := newFakePoolRepo(
			domain.Pool{Ref: ref, IsActive: true, SoldQuantity: 1},
		)
		svc := NewInventoryService(repo, nil)

		res := domain.Reservation{
			ID:    "res-1",
			Lines: []domain.ReservedLine{{Ref: ref, Quantity: 5}},
		}
		if err := svc.Release(context.Background(), "order-1", "test", res); err != nil {
			t.Fatalf("release: %v", err)
		}
		if got := repo.sold(ref); got != 0 {
			t.Fatalf("expected clamp at 0, got %d", got)
		}
	})

	t.Run("partial failure resumes with the remaining lines", func(t *testing.T) {
		refA := domain.PoolRef{PassID: "pass-a"}
		refB := domain.PoolRef{PassID: "pass-b"}
		repo := newFakePoolRepo(
			domain.Pool{Ref: refA, IsActive: true, MaxQuantity: intPtr(10), SoldQuantity: 0},
			domain.Pool{Ref: refB, IsActive: true, MaxQuantity: intPtr(10), SoldQuantity: 0},
		)
		svc := NewInventoryService(repo, nil)

		res, err := svc.ReserveAll(context.Background(), "order-1", "test", []ReserveLine{
			{Ref: refA, Quantity: 2},
			{Ref: refB, Quantity: 1},
		})
		if err != nil {
			t.Fatalf("reserve: %v", err)
		}

		failing := true
		repo.beforeDecrement = func(ref domain.PoolRef) error {
			if failing && ref == refA {
				return errors.New("transient db error")
			}
			return nil
		}

		// Reverse order means pass-b is returned before pass-a fails.
		if err := svc.Release(context.Background(), "order-1", "test", res); err == nil {
			t.Fatalf("expected release to fail on pass-a")
		}
		if got := repo.sold(refB); got != 0 {
			t.Fatalf("expected pass-b already returned, got sold=%d", got)
		}
		if got := repo.sold(refA); got != 2 {
			t.Fatalf("expected pass-a still reserved, got sold=%d", got)
		}

		failing = false
		if err := svc.Release(context.Background(), "order-1", "test", res); err != nil {
			t.Fatalf("retry: %v", err)
		}
		if got := repo.sold(refA); got != 0 {
			t.Fatalf("expected retry to return pass-a, got sold=%d", got)
		}
		if got := repo.sold(refB); got != 0 {
			t.Fatalf("expected pass-b untouched by the retry, got sold=%d", got)
		}

		releases := map[string]int{}
		for _, e := range repo.events {
			if e.Kind == domain.ReservationEventRelease {
				releases[e.Ref.PassID]++
			}
		}
		if releases["pass-a"] != 1 || releases["pass-b"] != 1 {
			t.Fatalf("expected one release event per line, got %v", releases)
		}
	})

	t.Run("conservation across reserve and release", func(t *testing.T) {
		repo := newFakePoolRepo(
			domain.Pool{Ref: ref, IsActive: true, MaxQuantity: intPtr(50), SoldQuantity: 0},
		)
		svc := NewInventoryService(repo, nil)

		var kept int
		for i := 0; i < 10; i++ {
			res, err := svc.ReserveAll(context.Background(), "order", "test", []ReserveLine{
				{Ref: ref, Quantity: 2},
			})
			if err != nil {
				t.Fatalf("reserve %d: %v", i, err)
			}
			if i%2 == 0 {
				if err := svc.Release(context.Background(), "order", "test", res); err != nil {
					t.Fatalf("release %d: %v", i, err)
				}
			} else {
				kept += 2
			}
		}
		if got := repo.sold(ref); got != kept {
			t.Fatalf("expected sold %d, got %d", kept, got)
		}
	})
}
