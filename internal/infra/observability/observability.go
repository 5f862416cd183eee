// Package observability exposes Prometheus metrics for the billing core:
// invoice lifecycle counters, payment totals by method, and the overdue
// backlog gauge. Served on /metrics by the API server.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ledgerline/ledgerline/internal/domain"
)

// ─── Invoice Metrics ────────────────────────────────────────────────────────

// InvoicesCreated tracks created invoices by type.
var InvoicesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledgerline",
	Subsystem: "invoices",
	Name:      "created_total",
	Help:      "Total invoices created, by invoice type.",
}, []string{"type"})

// InvoicesSent tracks invoices sent to clients.
var InvoicesSent = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ledgerline",
	Subsystem: "invoices",
	Name:      "sent_total",
	Help:      "Total invoices sent to clients.",
})

// InvoicesPaid tracks fully paid invoices.
var InvoicesPaid = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ledgerline",
	Subsystem: "invoices",
	Name:      "paid_total",
	Help:      "Total invoices fully paid.",
})

// InvoicesCancelled tracks cancelled invoices.
var InvoicesCancelled = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ledgerline",
	Subsystem: "invoices",
	Name:      "cancelled_total",
	Help:      "Total invoices cancelled.",
})

// InvoiceTotals observes the final total of each created invoice, by currency.
var InvoiceTotals = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "ledgerline",
	Subsystem: "invoices",
	Name:      "total_amount",
	Help:      "Invoice totals at creation time, by currency.",
	Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000, 100000},
}, []string{"currency"})

// OverdueInvoices tracks the current overdue backlog, set by the sweep.
var OverdueInvoices = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "ledgerline",
	Subsystem: "invoices",
	Name:      "overdue",
	Help:      "Number of invoices currently past due and unpaid.",
})

// ─── Payment Metrics ────────────────────────────────────────────────────────

// PaymentsRecorded tracks recorded payments by method.
var PaymentsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledgerline",
	Subsystem: "payments",
	Name:      "recorded_total",
	Help:      "Total payments recorded, by method.",
}, []string{"method"})

// ─── Numbering Metrics ──────────────────────────────────────────────────────

// NumbersAllocated tracks allocated invoice numbers by prefix.
var NumbersAllocated = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledgerline",
	Subsystem: "numbering",
	Name:      "allocated_total",
	Help:      "Total invoice numbers allocated, by prefix.",
}, []string{"prefix"})

// NumberConflicts tracks allocation retries after concurrency conflicts.
var NumberConflicts = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ledgerline",
	Subsystem: "numbering",
	Name:      "conflicts_total",
	Help:      "Total optimistic-concurrency conflicts during invoice writes.",
})

// ─── Event Recording ────────────────────────────────────────────────────────

// ObserveEvents updates metrics for a batch of drained domain events. The
// event bus calls this alongside publishing, so metrics reflect exactly the
// events that left the aggregate.
func ObserveEvents(events ...domain.Event) {
	for _, e := range events {
		switch e.EventName() {
		case "invoice.sent":
			InvoicesSent.Inc()
		case "invoice.paid":
			InvoicesPaid.Inc()
		}
	}
}
