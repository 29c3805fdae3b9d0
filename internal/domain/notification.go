package domain

import "time"

type NotificationKind string

const (
	NotificationEmail NotificationKind = "email"
	NotificationSMS   NotificationKind = "sms"
)

type NotificationOutcome string

const (
	NotificationSent      NotificationOutcome = "sent"
	NotificationFailed    NotificationOutcome = "failed"
	NotificationAbandoned NotificationOutcome = "abandoned"
)

// NotificationRecord is one append-only dispatch attempt. Records never
// block or reverse order or ticket state.
type NotificationRecord struct {
	ID        string
	OrderID   string
	Kind      NotificationKind
	Recipient string
	Outcome   NotificationOutcome
	Detail    string
	CreatedAt time.Time
}
