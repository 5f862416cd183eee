package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newTestInvoice(t *testing.T) *Invoice {
	t.Helper()
	inv, err := NewInvoice(1, 1, "user-1", InvoiceNumber{Prefix: "INV", Number: 1}, TypeTimeBased, USD, time.Time{})
	if err != nil {
		t.Fatalf("NewInvoice: %v", err)
	}
	return inv
}

// ─── Creation ───────────────────────────────────────────────────────────────

func TestNewInvoice_Defaults(t *testing.T) {
	inv := newTestInvoice(t)

	if inv.Status != StatusDraft {
		t.Errorf("Status = %s, want draft", inv.Status)
	}
	if inv.PaymentStatus != PaymentUnpaid {
		t.Errorf("PaymentStatus = %s, want unpaid", inv.PaymentStatus)
	}
	if inv.Version != 1 {
		t.Errorf("Version = %d, want 1", inv.Version)
	}
	wantDue := inv.InvoiceDate.AddDate(0, 0, 30)
	if !inv.DueDate.Equal(wantDue) {
		t.Errorf("DueDate = %v, want %v", inv.DueDate, wantDue)
	}

	events := inv.PullEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 creation event, got %d", len(events))
	}
	if events[0].EventName() != "invoice.created" {
		t.Errorf("event = %s, want invoice.created", events[0].EventName())
	}
	if len(inv.PullEvents()) != 0 {
		t.Error("PullEvents did not drain")
	}
}

func TestNewInvoice_RequiresClient(t *testing.T) {
	_, err := NewInvoice(0, 1, "user-1", InvoiceNumber{Prefix: "INV", Number: 1}, TypeTimeBased, USD, time.Time{})
	if !IsValidation(err) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}

// ─── Totals ─────────────────────────────────────────────────────────────────

func TestInvoice_TotalsReconcile(t *testing.T) {
	inv := newTestInvoice(t)

	// One line item (qty=10, rate=50), one 19% tax, no discount.
	if err := inv.AddLineItem("Development", decimal.NewFromInt(10), decimal.NewFromInt(50), "hours", 0, 0); err != nil {
		t.Fatalf("AddLineItem: %v", err)
	}
	if err := inv.AddTax("IVA", 19.0, ""); err != nil {
		t.Fatalf("AddTax: %v", err)
	}

	if got := inv.Subtotal.String(); got != "500" {
		t.Errorf("Subtotal = %s, want 500", got)
	}
	if got := inv.TaxTotal.String(); got != "95" {
		t.Errorf("TaxTotal = %s, want 95", got)
	}
	if got := inv.Total.String(); got != "595" {
		t.Errorf("Total = %s, want 595", got)
	}
}

func TestInvoice_TotalsAfterMutationSequence(t *testing.T) {
	inv := newTestInvoice(t)

	mustAdd := func(desc string, qty, rate int64) {
		t.Helper()
		if err := inv.AddLineItem(desc, decimal.NewFromInt(qty), decimal.NewFromInt(rate), "hours", 0, 0); err != nil {
			t.Fatalf("AddLineItem(%s): %v", desc, err)
		}
	}
	mustAdd("Design", 5, 80)
	mustAdd("Development", 20, 100)
	mustAdd("Review", 2, 60)

	if err := inv.RemoveLineItem(0); err != nil {
		t.Fatalf("RemoveLineItem: %v", err)
	}
	if err := inv.SetDiscount(10, decimal.Zero); err != nil {
		t.Fatalf("SetDiscount: %v", err)
	}
	if err := inv.AddTax("VAT", 20, ""); err != nil {
		t.Fatalf("AddTax: %v", err)
	}

	// subtotal = 2000 + 120 = 2120; discount 10% = 212
	// tax = (2120-212) * 20% = 381.60; total = 1908 + 381.60 = 2289.60
	sum := decimal.Zero
	for _, item := range inv.LineItems {
		sum = sum.Add(item.Amount)
	}
	wantTotal := RoundCurrency(sum.Sub(inv.DiscountAmount).Add(inv.TaxTotal))
	if !inv.Total.Equal(wantTotal) {
		t.Errorf("Total = %s, want %s (reconciliation invariant)", inv.Total, wantTotal)
	}
	if got := inv.Total.String(); got != "2289.6" {
		t.Errorf("Total = %s, want 2289.6", got)
	}
}

func TestInvoice_RecalculateIdempotent(t *testing.T) {
	inv := newTestInvoice(t)
	if err := inv.AddLineItem("Work", decimal.NewFromInt(3), decimal.NewFromFloat(33.33), "hours", 0, 0); err != nil {
		t.Fatalf("AddLineItem: %v", err)
	}
	if err := inv.AddTax("IVA", 19, ""); err != nil {
		t.Fatalf("AddTax: %v", err)
	}

	first := inv.Total
	inv.recalculateTotals()
	inv.recalculateTotals()
	if !inv.Total.Equal(first) {
		t.Errorf("recalculateTotals not idempotent: %s then %s", first, inv.Total)
	}
}

// ─── Edit Gate ──────────────────────────────────────────────────────────────

func TestInvoice_EditRequiresDraftOrPending(t *testing.T) {
	inv := newTestInvoice(t)
	if err := inv.AddLineItem("Work", decimal.NewFromInt(1), decimal.NewFromInt(100), "hours", 0, 0); err != nil {
		t.Fatalf("AddLineItem: %v", err)
	}
	if err := inv.SendToClient("user-1", "client@example.com"); err != nil {
		t.Fatalf("SendToClient: %v", err)
	}

	if err := inv.AddLineItem("Late", decimal.NewFromInt(1), decimal.NewFromInt(1), "hours", 0, 0); !IsRuleViolation(err) {
		t.Errorf("AddLineItem after send = %v, want RuleViolation", err)
	}
	if err := inv.SetDiscount(5, decimal.Zero); !IsRuleViolation(err) {
		t.Errorf("SetDiscount after send = %v, want RuleViolation", err)
	}
	if err := inv.RemoveLineItem(0); !IsRuleViolation(err) {
		t.Errorf("RemoveLineItem after send = %v, want RuleViolation", err)
	}
}

// ─── Send ───────────────────────────────────────────────────────────────────

func TestInvoice_SendToClient(t *testing.T) {
	inv := newTestInvoice(t)
	if err := inv.AddLineItem("Work", decimal.NewFromInt(1), decimal.NewFromInt(100), "hours", 0, 0); err != nil {
		t.Fatalf("AddLineItem: %v", err)
	}
	inv.PullEvents()

	if err := inv.SendToClient("user-1", "client@example.com"); err != nil {
		t.Fatalf("SendToClient: %v", err)
	}
	if inv.Status != StatusSent {
		t.Errorf("Status = %s, want sent", inv.Status)
	}
	if inv.SentDate.IsZero() {
		t.Error("SentDate not set")
	}
	events := inv.PullEvents()
	if len(events) != 1 || events[0].EventName() != "invoice.sent" {
		t.Errorf("events = %v, want one invoice.sent", events)
	}
}

func TestInvoice_SendEmptyDraftFails(t *testing.T) {
	inv := newTestInvoice(t)
	if err := inv.SendToClient("user-1", "client@example.com"); !IsRuleViolation(err) {
		t.Errorf("send empty draft = %v, want RuleViolation", err)
	}
}

func TestInvoice_SendCancelledFails(t *testing.T) {
	inv := newTestInvoice(t)
	if err := inv.Cancel(""); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := inv.SendToClient("user-1", "client@example.com"); !IsRuleViolation(err) {
		t.Errorf("send cancelled = %v, want RuleViolation", err)
	}
}

func TestInvoice_MarkViewed(t *testing.T) {
	inv := newTestInvoice(t)
	if err := inv.AddLineItem("Work", decimal.NewFromInt(1), decimal.NewFromInt(100), "hours", 0, 0); err != nil {
		t.Fatalf("AddLineItem: %v", err)
	}
	if err := inv.SendToClient("user-1", "client@example.com"); err != nil {
		t.Fatalf("SendToClient: %v", err)
	}
	inv.MarkViewed()
	if inv.Status != StatusViewed {
		t.Errorf("Status = %s, want viewed", inv.Status)
	}
	if inv.ClientViewedAt.IsZero() {
		t.Error("ClientViewedAt not set")
	}
}

// ─── Payments ───────────────────────────────────────────────────────────────

func TestInvoice_PaymentLifecycle(t *testing.T) {
	inv := newTestInvoice(t)
	if err := inv.AddLineItem("Work", decimal.NewFromInt(10), decimal.NewFromInt(50), "hours", 0, 0); err != nil {
		t.Fatalf("AddLineItem: %v", err)
	}
	if err := inv.AddTax("IVA", 19, ""); err != nil {
		t.Fatalf("AddTax: %v", err)
	}
	if err := inv.SendToClient("user-1", "client@example.com"); err != nil {
		t.Fatalf("SendToClient: %v", err)
	}
	inv.PullEvents()

	// Partial payment.
	if err := inv.AddPayment(decimal.NewFromInt(300), MethodBankTransfer, time.Time{}, "", "", "user-1"); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if inv.PaymentStatus != PaymentPartiallyPaid {
		t.Errorf("PaymentStatus = %s, want partially_paid", inv.PaymentStatus)
	}
	if len(inv.PullEvents()) != 0 {
		t.Error("partial payment should not emit paid event")
	}

	// Settle the rest.
	if err := inv.AddPayment(decimal.NewFromInt(295), MethodBankTransfer, time.Time{}, "", "", "user-1"); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if inv.PaymentStatus != PaymentPaid {
		t.Errorf("PaymentStatus = %s, want paid", inv.PaymentStatus)
	}
	if inv.Status != StatusPaid {
		t.Errorf("Status = %s, want paid", inv.Status)
	}
	events := inv.PullEvents()
	if len(events) != 1 || events[0].EventName() != "invoice.paid" {
		t.Errorf("events = %v, want one invoice.paid", events)
	}
}

func TestInvoice_PaymentCannotExceedTotal(t *testing.T) {
	inv := newTestInvoice(t)
	if err := inv.AddLineItem("Work", decimal.NewFromInt(10), decimal.NewFromInt(50), "hours", 0, 0); err != nil {
		t.Fatalf("AddLineItem: %v", err)
	}
	if err := inv.AddTax("IVA", 19, ""); err != nil {
		t.Fatalf("AddTax: %v", err)
	}
	// total = 595
	err := inv.AddPayment(decimal.NewFromInt(600), MethodCash, time.Time{}, "", "", "")
	if !IsValidation(err) {
		t.Fatalf("overpayment error = %v, want ValidationError", err)
	}
	if len(inv.PaymentRecords) != 0 || !inv.AmountPaid.IsZero() {
		t.Error("failed payment left partial state behind")
	}
}

func TestInvoice_PaymentMustBePositive(t *testing.T) {
	inv := newTestInvoice(t)
	if err := inv.AddPayment(decimal.Zero, MethodCash, time.Time{}, "", "", ""); !IsValidation(err) {
		t.Errorf("zero payment error = %v, want ValidationError", err)
	}
}

// ─── Cancel / Delete ────────────────────────────────────────────────────────

func TestInvoice_CancelWithPaymentsFails(t *testing.T) {
	inv := newTestInvoice(t)
	if err := inv.AddLineItem("Work", decimal.NewFromInt(1), decimal.NewFromInt(100), "hours", 0, 0); err != nil {
		t.Fatalf("AddLineItem: %v", err)
	}
	if err := inv.AddPayment(decimal.NewFromInt(50), MethodCash, time.Time{}, "", "", ""); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if err := inv.Cancel("mistake"); !IsRuleViolation(err) {
		t.Errorf("cancel with payments = %v, want RuleViolation", err)
	}
}

func TestInvoice_CancelPaidFails(t *testing.T) {
	inv := newTestInvoice(t)
	if err := inv.AddLineItem("Work", decimal.NewFromInt(1), decimal.NewFromInt(100), "hours", 0, 0); err != nil {
		t.Fatalf("AddLineItem: %v", err)
	}
	if err := inv.AddPayment(decimal.NewFromInt(100), MethodCash, time.Time{}, "", "", ""); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if err := inv.Cancel(""); !IsRuleViolation(err) {
		t.Errorf("cancel paid = %v, want RuleViolation", err)
	}
}

func TestInvoice_CancelRecordsReason(t *testing.T) {
	inv := newTestInvoice(t)
	if err := inv.Cancel("duplicate"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if inv.Status != StatusCancelled {
		t.Errorf("Status = %s, want cancelled", inv.Status)
	}
	if inv.Notes != "Cancelled: duplicate" {
		t.Errorf("Notes = %q", inv.Notes)
	}
}

func TestInvoice_CanBeDeleted(t *testing.T) {
	inv := newTestInvoice(t)
	if !inv.CanBeDeleted() {
		t.Error("draft with no payments should be deletable")
	}
	if err := inv.AddLineItem("Work", decimal.NewFromInt(1), decimal.NewFromInt(100), "hours", 0, 0); err != nil {
		t.Fatalf("AddLineItem: %v", err)
	}
	if err := inv.SendToClient("user-1", "client@example.com"); err != nil {
		t.Fatalf("SendToClient: %v", err)
	}
	if inv.CanBeDeleted() {
		t.Error("sent invoice should not be deletable")
	}
}

// ─── Overdue ────────────────────────────────────────────────────────────────

func TestInvoice_Overdue(t *testing.T) {
	inv := newTestInvoice(t)
	if err := inv.AddLineItem("Work", decimal.NewFromInt(1), decimal.NewFromInt(100), "hours", 0, 0); err != nil {
		t.Fatalf("AddLineItem: %v", err)
	}
	if err := inv.SendToClient("user-1", "client@example.com"); err != nil {
		t.Fatalf("SendToClient: %v", err)
	}
	inv.PullEvents()

	asOf := inv.DueDate.AddDate(0, 0, 10)
	if !inv.IsOverdueAt(asOf) {
		t.Fatal("expected overdue")
	}
	if got := inv.DaysOverdueAt(asOf); got != 10 {
		t.Errorf("DaysOverdueAt = %d, want 10", got)
	}
	v := inv.Version
	if !inv.RecordOverdue(asOf) {
		t.Fatal("RecordOverdue = false")
	}
	// The sweep's save must CAS like any other writer.
	if inv.Version != v+1 {
		t.Errorf("Version = %d, want %d", inv.Version, v+1)
	}
	if inv.PaymentStatus != PaymentOverdue {
		t.Errorf("PaymentStatus = %s, want overdue", inv.PaymentStatus)
	}
	events := inv.PullEvents()
	if len(events) != 1 || events[0].EventName() != "invoice.overdue" {
		t.Errorf("events = %v, want one invoice.overdue", events)
	}

	// Draft invoices never go overdue.
	draft := newTestInvoice(t)
	if draft.IsOverdueAt(draft.DueDate.AddDate(0, 0, 5)) {
		t.Error("draft reported overdue")
	}
}

// ─── Versioning ─────────────────────────────────────────────────────────────

func TestInvoice_VersionBumpsOnMutation(t *testing.T) {
	inv := newTestInvoice(t)
	v := inv.Version
	if err := inv.AddLineItem("Work", decimal.NewFromInt(1), decimal.NewFromInt(100), "hours", 0, 0); err != nil {
		t.Fatalf("AddLineItem: %v", err)
	}
	if inv.Version != v+1 {
		t.Errorf("Version = %d, want %d", inv.Version, v+1)
	}
	if err := inv.SendToClient("user-1", "c@example.com"); err != nil {
		t.Fatalf("SendToClient: %v", err)
	}
	if inv.Version != v+2 {
		t.Errorf("Version = %d, want %d", inv.Version, v+2)
	}
}
