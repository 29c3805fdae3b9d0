package domain

// PaymentMethod is how an order is settled.
type PaymentMethod string

const (
	PaymentMethodOnline PaymentMethod = "online"
	PaymentMethodCash   PaymentMethod = "cash"
)

// PoolRef identifies one capacity pool: the global counter of a pass, or
// the outlet-scoped counter used by the POS channel. OutletID is empty for
// the global pool.
type PoolRef struct {
	PassID   string
	EventID  string
	OutletID string
}

func (r PoolRef) IsOutlet() bool {
	return r.OutletID != ""
}

// Pool is a point-in-time read of one capacity pool. MaxQuantity nil means
// unlimited.
type Pool struct {
	Ref                   PoolRef
	Name                  string
	PriceCents            int64
	IsActive              bool
	MaxQuantity           *int
	SoldQuantity          int
	AllowedPaymentMethods []PaymentMethod
}

// AllowsPayment reports whether the pool's allow-list includes m. An empty
// allow-list permits every method.
func (p Pool) AllowsPayment(m PaymentMethod) bool {
	if len(p.AllowedPaymentMethods) == 0 {
		return true
	}
	for _, allowed := range p.AllowedPaymentMethods {
		if allowed == m {
			return true
		}
	}
	return false
}

// ReservedLine is one committed line of a reservation.
type ReservedLine struct {
	Ref      PoolRef
	Quantity int
	// Pool is the snapshot read at reservation time; order lines copy
	// name and price from here, never from the request.
	Pool Pool
}

// Reservation is the handle returned by a successful ReserveAll and the
// only legitimate input to Release.
type Reservation struct {
	ID    string
	Lines []ReservedLine
}

// TotalQuantity sums the reserved units across lines.
func (r Reservation) TotalQuantity() int {
	total := 0
	for _, l := range r.Lines {
		total += l.Quantity
	}
	return total
}

// TotalPriceCents sums quantity times snapshotted unit price across lines.
func (r Reservation) TotalPriceCents() int64 {
	var total int64
	for _, l := range r.Lines {
		total += int64(l.Quantity) * l.Pool.PriceCents
	}
	return total
}

// ReservationEventKind distinguishes ledger entries.
type ReservationEventKind string

const (
	ReservationEventReserve ReservationEventKind = "reserve"
	ReservationEventRelease ReservationEventKind = "release"
)

// ReservationEvent is one append-only entry in the reservation trail.
// Counters are derived; the trail is the inspectable record of every
// adjustment, including rollback cascades.
type ReservationEvent struct {
	ID            string
	ReservationID string
	Kind          ReservationEventKind
	Ref           PoolRef
	Quantity      int
	OrderID       string
	Actor         string
}
