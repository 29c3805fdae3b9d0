package domain

import "time"

// Channel is the order-origination path.
type Channel string

const (
	ChannelOnline Channel = "online"
	ChannelCash   Channel = "cash"
	ChannelPOS    Channel = "pos"
)

// OrderStatus values. Transitions are enforced by the order service; the
// conditional status update in storage is the only mutation path.
type OrderStatus string

const (
	StatusPendingOnline        OrderStatus = "pending_online"
	StatusPendingCash          OrderStatus = "pending_cash"
	StatusPendingAdminApproval OrderStatus = "pending_admin_approval"
	StatusPaid                 OrderStatus = "paid"
	StatusFailed               OrderStatus = "failed"
	StatusCancelled            OrderStatus = "cancelled"
	StatusRefunded             OrderStatus = "refunded"
)

// legalTransitions maps each status to the statuses it may move to.
var legalTransitions = map[OrderStatus][]OrderStatus{
	StatusPendingOnline:        {StatusPaid, StatusFailed},
	StatusPendingCash:          {StatusPaid, StatusCancelled},
	StatusPendingAdminApproval: {StatusPaid},
	StatusPaid:                 {StatusRefunded},
}

// CanTransition reports whether from -> to is a legal order transition.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InitialStatus returns the channel-appropriate starting status.
func InitialStatus(ch Channel) OrderStatus {
	switch ch {
	case ChannelCash:
		return StatusPendingCash
	case ChannelPOS:
		return StatusPendingAdminApproval
	default:
		return StatusPendingOnline
	}
}

// Customer is the buyer contact captured on every order.
type Customer struct {
	Name     string
	Phone    string
	Email    string
	City     string
	District string
}

// Order is a purchase across one or more pass lines.
type Order struct {
	ID            string
	Channel       Channel
	Status        OrderStatus
	PaymentMethod PaymentMethod
	Customer      Customer
	AmbassadorID  string
	OutletID      string
	EventID       string
	TotalCents    int64
	Quantity      int
	StockReleased bool
	CreatedAt     time.Time
	ApprovedAt    *time.Time
}

// OrderLine is an immutable historical record: name and unit price are
// snapshotted from the pool at creation time and never recalculated.
type OrderLine struct {
	ID             string
	OrderID        string
	PassID         string
	OutletID       string
	PassName       string
	Quantity       int
	UnitPriceCents int64
}

// AuditEntry records one status transition and its fulfillment outcome.
type AuditEntry struct {
	ID            string
	OrderID       string
	FromStatus    OrderStatus
	ToStatus      OrderStatus
	Actor         string
	TicketCount   int
	Notifications int
	CreatedAt     time.Time
}
