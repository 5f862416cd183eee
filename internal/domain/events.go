package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Domain Events ──────────────────────────────────────────────────────────
// Aggregates accumulate events in memory; callers drain them with PullEvents
// after a successful save and hand them to the event bus. The aggregate never
// calls the bus directly.

// Event is a fact that happened inside the billing domain.
type Event interface {
	EventName() string
	EventID() string
	OccurredAt() time.Time
}

type eventMeta struct {
	id string
	at time.Time
}

func newEventMeta() eventMeta {
	return eventMeta{id: uuid.NewString(), at: time.Now().UTC()}
}

func (m eventMeta) EventID() string       { return m.id }
func (m eventMeta) OccurredAt() time.Time { return m.at }

// InvoiceCreatedEvent is raised when a new invoice aggregate is created.
type InvoiceCreatedEvent struct {
	eventMeta
	InvoiceID     int64
	InvoiceNumber string
	ClientID      int64
	TotalAmount   decimal.Decimal
}

func (InvoiceCreatedEvent) EventName() string { return "invoice.created" }

// InvoiceSentEvent is raised when an invoice is sent to the client.
type InvoiceSentEvent struct {
	eventMeta
	InvoiceID   int64
	SentToEmail string
	SentBy      string
}

func (InvoiceSentEvent) EventName() string { return "invoice.sent" }

// InvoicePaidEvent is raised when a payment settles the full invoice total.
type InvoicePaidEvent struct {
	eventMeta
	InvoiceID     int64
	PaymentAmount decimal.Decimal
	PaymentMethod PaymentMethod
	PaymentDate   time.Time
}

func (InvoicePaidEvent) EventName() string { return "invoice.paid" }

// InvoiceOverdueEvent is raised when an unpaid invoice passes its due date.
type InvoiceOverdueEvent struct {
	eventMeta
	InvoiceID         int64
	DaysOverdue       int
	OutstandingAmount decimal.Decimal
}

func (InvoiceOverdueEvent) EventName() string { return "invoice.overdue" }
