package domain

import (
	"context"
	"time"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// InvoiceStore abstracts invoice persistence. Save performs an optimistic-
// concurrency check on the aggregate's Version: updating with a stale version
// fails with ErrConcurrencyConflict and the caller must reload and retry.
type InvoiceStore interface {
	// Save inserts a new invoice (ID == 0) or updates an existing one,
	// enforcing compare-and-swap on Version.
	Save(ctx context.Context, inv *Invoice) error

	// FindByID returns ErrInvoiceNotFound when no row matches.
	FindByID(ctx context.Context, id int64) (*Invoice, error)

	// FindByNumber looks an invoice up by owner and formatted number.
	FindByNumber(ctx context.Context, ownerID, number string) (*Invoice, error)

	ListByClient(ctx context.Context, clientID int64) ([]*Invoice, error)
	ListByStatus(ctx context.Context, ownerID string, status InvoiceStatus) ([]*Invoice, error)

	// ListOverdue returns unpaid invoices whose due date is before asOf.
	ListOverdue(ctx context.Context, asOf time.Time) ([]*Invoice, error)

	// AllocatedNumbers returns every invoice number an owner has used in the
	// given series. Callers generating the next number MUST serialize around
	// this read (the sqlite store exposes a transactional allocator).
	AllocatedNumbers(ctx context.Context, ownerID, prefix, suffix string) ([]InvoiceNumber, error)

	// Delete removes an invoice; it is gated by Invoice.CanBeDeleted.
	Delete(ctx context.Context, id int64) error
}

// EventPublisher receives drained domain events, fire-and-forget.
type EventPublisher interface {
	Publish(ctx context.Context, events ...Event)
}

// ClientDirectory resolves client ids to display data, read-only.
type ClientDirectory interface {
	ClientName(ctx context.Context, clientID int64) (string, error)
	ClientEmail(ctx context.Context, clientID int64) (string, error)
}

// ProjectDirectory resolves project ids to billing configuration, read-only.
type ProjectDirectory interface {
	ProjectByID(ctx context.Context, projectID int64) (*Project, error)
}
