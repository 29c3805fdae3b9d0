package domain

import "time"

type TicketStatus string

const (
	TicketStatusValid   TicketStatus = "valid"
	TicketStatusScanned TicketStatus = "scanned"
	TicketStatusVoid    TicketStatus = "void"
)

// Ticket is one admission unit. Tickets for an order are created at most
// once; their existence implies the order is paid.
type Ticket struct {
	ID           string
	OrderID      string
	OrderLineID  string
	SecureToken  string
	Status       TicketStatus
	CodeImageURL string
	IssuedAt     time.Time
}
