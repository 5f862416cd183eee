package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ─── Status Enums ───────────────────────────────────────────────────────────

// InvoiceStatus tracks the document lifecycle.
type InvoiceStatus string

const (
	StatusDraft     InvoiceStatus = "draft"
	StatusPending   InvoiceStatus = "pending"
	StatusSent      InvoiceStatus = "sent"
	StatusViewed    InvoiceStatus = "viewed"
	StatusPaid      InvoiceStatus = "paid"
	StatusOverdue   InvoiceStatus = "overdue"
	StatusCancelled InvoiceStatus = "cancelled"
	StatusRefunded  InvoiceStatus = "refunded"
)

// InvoiceType classifies how the invoice amount was derived.
type InvoiceType string

const (
	TypeTimeBased  InvoiceType = "time_based"
	TypeFixedPrice InvoiceType = "fixed_price"
	TypeMilestone  InvoiceType = "milestone"
	TypeRetainer   InvoiceType = "retainer"
	TypeExpense    InvoiceType = "expense"
	TypeMixed      InvoiceType = "mixed"
)

// PaymentStatus tracks money received, independently of document status.
type PaymentStatus string

const (
	PaymentUnpaid        PaymentStatus = "unpaid"
	PaymentPartiallyPaid PaymentStatus = "partially_paid"
	PaymentPaid          PaymentStatus = "paid"
	PaymentOverdue       PaymentStatus = "overdue"
	PaymentRefunded      PaymentStatus = "refunded"
)

// PaymentMethod is how a payment was made.
type PaymentMethod string

const (
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCreditCard   PaymentMethod = "credit_card"
	MethodPayPal       PaymentMethod = "paypal"
	MethodCheck        PaymentMethod = "check"
	MethodCash         PaymentMethod = "cash"
	MethodCrypto       PaymentMethod = "crypto"
	MethodOther        PaymentMethod = "other"
)

// ─── Line Items ─────────────────────────────────────────────────────────────

// LineItem is one billable row on an invoice. Immutable once appended; rows
// change only via remove/replace on the aggregate.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
	Unit        string          `json:"unit"`
	TimeEntryID int64           `json:"time_entry_id,omitempty"`
	TaskID      int64           `json:"task_id,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

// Validate checks the line item invariants: amount == round(quantity * rate)
// within a one-cent tolerance.
func (li LineItem) Validate() error {
	if li.Description == "" {
		return &ValidationError{Field: "description", Reason: "description is required"}
	}
	if li.Quantity.IsNegative() {
		return &ValidationError{Field: "quantity", Reason: "quantity cannot be negative"}
	}
	if li.Rate.IsNegative() {
		return &ValidationError{Field: "rate", Reason: "rate cannot be negative"}
	}
	expected := RoundCurrency(li.Quantity.Mul(li.Rate))
	if li.Amount.Sub(expected).Abs().GreaterThan(decimal.NewFromFloat(0.01)) {
		return &ValidationError{Field: "amount", Reason: "amount must equal quantity * rate"}
	}
	return nil
}

// TaxLineItem is one tax row applied to the discounted subtotal.
type TaxLineItem struct {
	Name       string          `json:"name"`
	Rate       float64         `json:"rate"` // percentage, e.g. 19.0
	Amount     decimal.Decimal `json:"amount"`
	TaxID      string          `json:"tax_id,omitempty"`
	IsCompound bool            `json:"is_compound"`
}

// Validate checks the tax item invariants.
func (ti TaxLineItem) Validate() error {
	if ti.Name == "" {
		return &ValidationError{Field: "name", Reason: "tax name is required"}
	}
	if ti.Rate < 0 || ti.Rate > 100 {
		return &ValidationError{Field: "rate", Reason: "tax rate must be between 0 and 100"}
	}
	if ti.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "tax amount cannot be negative"}
	}
	return nil
}

// PaymentRecord is a single received payment. Immutable once appended.
type PaymentRecord struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
	Method      PaymentMethod   `json:"payment_method"`
	Reference   string          `json:"reference,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	ProcessedBy string          `json:"processed_by,omitempty"`
	ProcessedAt time.Time       `json:"processed_at"`
}

// Validate checks the payment record invariants.
func (pr PaymentRecord) Validate() error {
	if !pr.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "payment amount must be positive"}
	}
	return nil
}

// ─── Invoice Settings ───────────────────────────────────────────────────────

// InvoiceSettings is per-owner invoice configuration: numbering series,
// payment terms, and default currency.
type InvoiceSettings struct {
	NumberPrefix     string   `json:"number_prefix"`
	NumberSuffix     string   `json:"number_suffix,omitempty"`
	NextNumber       int      `json:"next_number"`
	PaymentTermsDays int      `json:"payment_terms_days"`
	Currency         Currency `json:"currency"`
}

// DefaultInvoiceSettings returns the standard settings for new owners.
func DefaultInvoiceSettings() InvoiceSettings {
	return InvoiceSettings{
		NumberPrefix:     "INV",
		NextNumber:       1,
		PaymentTermsDays: 30,
		Currency:         USD,
	}
}

// DueDateFrom computes the due date for an invoice issued on the given day
// under these payment terms.
func (s InvoiceSettings) DueDateFrom(invoiceDate time.Time) time.Time {
	days := s.PaymentTermsDays
	if days <= 0 {
		days = 30
	}
	return dateOnly(invoiceDate).AddDate(0, 0, days)
}

// ─── Invoice Aggregate ──────────────────────────────────────────────────────

// Invoice is the aggregate root of the billing core. It owns its line items,
// tax items, and payment records exclusively and enforces every totals and
// lifecycle invariant. Totals are only ever set by recalculateTotals.
//
// An Invoice value is not safe for concurrent mutation. Load-mutate-save must
// run inside an optimistic-concurrency cycle keyed on Version: the store's
// Save compares the stored version, and a stale save fails with
// ErrConcurrencyConflict, forcing a retry of the whole read-modify-write.
type Invoice struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time

	ClientID  int64
	ProjectID int64
	CreatedBy string

	Number InvoiceNumber
	Type   InvoiceType
	Status InvoiceStatus

	InvoiceDate    time.Time
	DueDate        time.Time
	SentDate       time.Time // zero until sent
	ClientViewedAt time.Time // zero until viewed

	Currency  Currency
	LineItems []LineItem
	TaxItems  []TaxLineItem

	DiscountPercentage float64
	DiscountAmount     decimal.Decimal

	Subtotal decimal.Decimal
	TaxTotal decimal.Decimal
	Total    decimal.Decimal

	PaymentStatus  PaymentStatus
	PaymentRecords []PaymentRecord
	AmountPaid     decimal.Decimal

	Notes        string
	TimeEntryIDs []int64

	events []Event

	// storedVersion is the Version the store last loaded or persisted. The
	// store's compare-and-swap matches against it, since Version itself is
	// bumped in memory on every mutation.
	storedVersion int64
}

// NewInvoice creates a draft invoice. The due date defaults to 30 days after
// the invoice date when zero.
func NewInvoice(clientID, projectID int64, createdBy string, number InvoiceNumber, typ InvoiceType, currency Currency, dueDate time.Time) (*Invoice, error) {
	now := time.Now().UTC()
	inv := &Invoice{
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
		ClientID:      clientID,
		ProjectID:     projectID,
		CreatedBy:     createdBy,
		Number:        number,
		Type:          typ,
		Status:        StatusDraft,
		InvoiceDate:   dateOnly(now),
		DueDate:       dueDate,
		Currency:      currency,
		PaymentStatus: PaymentUnpaid,
	}
	if inv.DueDate.IsZero() {
		inv.DueDate = inv.InvoiceDate.AddDate(0, 0, 30)
	}
	inv.recalculateTotals()
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	inv.record(InvoiceCreatedEvent{
		eventMeta:     newEventMeta(),
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.Number.String(),
		ClientID:      inv.ClientID,
		TotalAmount:   inv.Total,
	})
	return inv, nil
}

// Validate checks every aggregate invariant. It runs after each mutation and
// never leaves partial state behind: preconditions fail before any field is
// touched, and recalculateTotals is the last step of every mutating method.
func (inv *Invoice) Validate() error {
	if inv.ClientID == 0 {
		return &ValidationError{Field: "client_id", Reason: "client id is required"}
	}
	if inv.ProjectID == 0 {
		return &ValidationError{Field: "project_id", Reason: "project id is required"}
	}
	if inv.CreatedBy == "" {
		return &ValidationError{Field: "created_by", Reason: "created by is required"}
	}
	if err := inv.Number.Validate(); err != nil {
		return err
	}
	if !inv.Currency.Valid() {
		return &ValidationError{Field: "currency", Reason: fmt.Sprintf("unsupported currency code %q", inv.Currency)}
	}
	if inv.DueDate.Before(inv.InvoiceDate) {
		return &ValidationError{Field: "due_date", Reason: "due date cannot be before invoice date"}
	}
	for _, item := range inv.LineItems {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	for _, tax := range inv.TaxItems {
		if err := tax.Validate(); err != nil {
			return err
		}
	}
	for _, payment := range inv.PaymentRecords {
		if err := payment.Validate(); err != nil {
			return err
		}
	}
	if inv.Subtotal.IsNegative() {
		return &ValidationError{Field: "subtotal", Reason: "subtotal cannot be negative"}
	}
	if inv.Total.IsNegative() {
		return &ValidationError{Field: "total", Reason: "total cannot be negative"}
	}
	if inv.DiscountPercentage < 0 || inv.DiscountPercentage > 100 {
		return &ValidationError{Field: "discount_percentage", Reason: "discount percentage must be between 0 and 100"}
	}
	if inv.AmountPaid.IsNegative() {
		return &ValidationError{Field: "amount_paid", Reason: "amount paid cannot be negative"}
	}
	if inv.AmountPaid.GreaterThan(inv.Total) {
		return &ValidationError{Field: "amount_paid", Reason: "amount paid cannot exceed total"}
	}
	if inv.Status == StatusSent && inv.SentDate.IsZero() {
		return &ValidationError{Field: "sent_date", Reason: "sent date is required for sent invoices"}
	}
	if inv.PaymentStatus == PaymentPaid && inv.AmountPaid.LessThan(inv.Total) {
		return &ValidationError{Field: "payment_status", Reason: "invoice marked as paid but amount paid is less than total"}
	}
	return nil
}

// ─── Derived State ──────────────────────────────────────────────────────────

// IsDraft reports draft status.
func (inv *Invoice) IsDraft() bool { return inv.Status == StatusDraft }

// IsSent reports whether the invoice has reached the client.
func (inv *Invoice) IsSent() bool {
	return inv.Status == StatusSent || inv.Status == StatusViewed || inv.Status == StatusPaid
}

// IsPaid reports whether the invoice is fully paid.
func (inv *Invoice) IsPaid() bool { return inv.PaymentStatus == PaymentPaid }

// IsOverdueAt reports whether the invoice is past due as of the given day.
// Overdue is derived state, never a terminal status.
func (inv *Invoice) IsOverdueAt(asOf time.Time) bool {
	if inv.IsPaid() || inv.Status == StatusDraft || inv.Status == StatusCancelled {
		return false
	}
	return dateOnly(asOf).After(dateOnly(inv.DueDate))
}

// IsOverdue reports whether the invoice is past due today.
func (inv *Invoice) IsOverdue() bool { return inv.IsOverdueAt(time.Now().UTC()) }

// DaysOverdueAt returns whole days past the due date (0 if not overdue).
func (inv *Invoice) DaysOverdueAt(asOf time.Time) int {
	if !inv.IsOverdueAt(asOf) {
		return 0
	}
	return int(dateOnly(asOf).Sub(dateOnly(inv.DueDate)).Hours() / 24)
}

// OutstandingAmount returns the amount still owed, floored at zero.
func (inv *Invoice) OutstandingAmount() decimal.Decimal {
	out := inv.Total.Sub(inv.AmountPaid)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// PaymentPercentage returns the share of the total that has been paid.
func (inv *Invoice) PaymentPercentage() float64 {
	if inv.Total.IsZero() {
		return 0
	}
	pct, _ := inv.AmountPaid.Div(inv.Total).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}

// CanBeEdited reports whether line items, taxes, and discounts may change.
func (inv *Invoice) CanBeEdited() bool {
	return inv.Status == StatusDraft || inv.Status == StatusPending
}

// CanBeDeleted reports whether the repository may delete this invoice.
func (inv *Invoice) CanBeDeleted() bool {
	return (inv.Status == StatusDraft || inv.Status == StatusCancelled) && inv.AmountPaid.IsZero()
}

// ─── Mutations ──────────────────────────────────────────────────────────────

// AddLineItem appends a billable row and recalculates totals.
func (inv *Invoice) AddLineItem(description string, quantity, rate decimal.Decimal, unit string, timeEntryID, taskID int64) error {
	if !inv.CanBeEdited() {
		return &RuleViolation{Reason: "cannot edit invoice in status " + string(inv.Status)}
	}
	unit = NormalizeUnit(unit)
	if unit == "" {
		unit = "hours"
	}
	item := LineItem{
		Description: description,
		Quantity:    quantity,
		Rate:        rate,
		Amount:      RoundCurrency(quantity.Mul(rate)),
		Unit:        unit,
		TimeEntryID: timeEntryID,
		TaskID:      taskID,
	}
	if err := item.Validate(); err != nil {
		return err
	}
	inv.LineItems = append(inv.LineItems, item)
	if timeEntryID != 0 && !containsID(inv.TimeEntryIDs, timeEntryID) {
		inv.TimeEntryIDs = append(inv.TimeEntryIDs, timeEntryID)
	}
	inv.recalculateTotals()
	inv.bumpVersion()
	return nil
}

// RemoveLineItem removes the row at index and recalculates totals.
func (inv *Invoice) RemoveLineItem(index int) error {
	if !inv.CanBeEdited() {
		return &RuleViolation{Reason: "cannot edit invoice in status " + string(inv.Status)}
	}
	if index < 0 || index >= len(inv.LineItems) {
		return &ValidationError{Field: "index", Reason: "invalid line item index"}
	}
	item := inv.LineItems[index]
	if item.TimeEntryID != 0 {
		inv.TimeEntryIDs = removeID(inv.TimeEntryIDs, item.TimeEntryID)
	}
	inv.LineItems = append(inv.LineItems[:index], inv.LineItems[index+1:]...)
	inv.recalculateTotals()
	inv.bumpVersion()
	return nil
}

// AddTax applies a tax rate to the current discounted subtotal.
func (inv *Invoice) AddTax(name string, rate float64, taxID string) error {
	if !inv.CanBeEdited() {
		return &RuleViolation{Reason: "cannot edit invoice in status " + string(inv.Status)}
	}
	base := inv.Subtotal.Sub(inv.DiscountAmount)
	tax := TaxLineItem{
		Name:   name,
		Rate:   rate,
		Amount: RoundCurrency(base.Mul(decimal.NewFromFloat(rate)).Div(decimal.NewFromInt(100))),
		TaxID:  taxID,
	}
	if err := tax.Validate(); err != nil {
		return err
	}
	inv.TaxItems = append(inv.TaxItems, tax)
	inv.recalculateTotals()
	inv.bumpVersion()
	return nil
}

// RemoveTax removes the tax row at index and recalculates totals.
func (inv *Invoice) RemoveTax(index int) error {
	if !inv.CanBeEdited() {
		return &RuleViolation{Reason: "cannot edit invoice in status " + string(inv.Status)}
	}
	if index < 0 || index >= len(inv.TaxItems) {
		return &ValidationError{Field: "index", Reason: "invalid tax item index"}
	}
	inv.TaxItems = append(inv.TaxItems[:index], inv.TaxItems[index+1:]...)
	inv.recalculateTotals()
	inv.bumpVersion()
	return nil
}

// SetDiscount sets either a percentage or a flat amount discount, never both.
func (inv *Invoice) SetDiscount(percentage float64, amount decimal.Decimal) error {
	if !inv.CanBeEdited() {
		return &RuleViolation{Reason: "cannot edit invoice in status " + string(inv.Status)}
	}
	if percentage < 0 || percentage > 100 {
		return &ValidationError{Field: "percentage", Reason: "discount percentage must be between 0 and 100"}
	}
	if amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "discount amount cannot be negative"}
	}
	if percentage > 0 && amount.IsPositive() {
		return &ValidationError{Field: "discount", Reason: "cannot set both percentage and amount discount"}
	}
	if percentage > 0 {
		inv.DiscountPercentage = percentage
		inv.DiscountAmount = RoundCurrency(inv.Subtotal.Mul(decimal.NewFromFloat(percentage)).Div(decimal.NewFromInt(100)))
	} else {
		inv.DiscountPercentage = 0
		if amount.GreaterThan(inv.Subtotal) {
			amount = inv.Subtotal
		}
		inv.DiscountAmount = RoundCurrency(amount)
	}
	inv.recalculateTotals()
	inv.bumpVersion()
	return nil
}

// recalculateTotals is the single source of truth for all totals:
//
//	subtotal  = Σ line_item.amount
//	total     = (subtotal − discount_amount) + Σ tax_item.amount
//
// It ends with a payment-status re-derivation. No other code path sets totals.
func (inv *Invoice) recalculateTotals() {
	subtotal := decimal.Zero
	for _, item := range inv.LineItems {
		subtotal = subtotal.Add(item.Amount)
	}
	taxTotal := decimal.Zero
	for _, tax := range inv.TaxItems {
		taxTotal = taxTotal.Add(tax.Amount)
	}
	decimals := inv.Currency.Decimals()
	inv.Subtotal = subtotal.Round(decimals)
	inv.TaxTotal = taxTotal.Round(decimals)
	inv.Total = inv.Subtotal.Sub(inv.DiscountAmount).Add(inv.TaxTotal).Round(decimals)
	inv.updatePaymentStatus()
}

// updatePaymentStatus re-derives payment status from amount paid vs total.
func (inv *Invoice) updatePaymentStatus() {
	switch {
	case inv.AmountPaid.IsZero():
		if inv.IsOverdue() {
			inv.PaymentStatus = PaymentOverdue
		} else {
			inv.PaymentStatus = PaymentUnpaid
		}
	case inv.AmountPaid.GreaterThanOrEqual(inv.Total):
		inv.PaymentStatus = PaymentPaid
	default:
		inv.PaymentStatus = PaymentPartiallyPaid
	}
}

// SendToClient transitions the invoice to sent and records the send event.
func (inv *Invoice) SendToClient(sentBy, clientEmail string) error {
	if inv.Status == StatusCancelled {
		return &RuleViolation{Reason: "cannot send cancelled invoice"}
	}
	if inv.IsDraft() && len(inv.LineItems) == 0 {
		return &RuleViolation{Reason: "cannot send empty invoice"}
	}
	inv.Status = StatusSent
	inv.SentDate = dateOnly(time.Now().UTC())
	inv.bumpVersion()
	inv.record(InvoiceSentEvent{
		eventMeta:   newEventMeta(),
		InvoiceID:   inv.ID,
		SentToEmail: clientEmail,
		SentBy:      sentBy,
	})
	return nil
}

// MarkViewed records that the client opened the invoice.
func (inv *Invoice) MarkViewed() {
	if inv.Status != StatusSent {
		return
	}
	inv.Status = StatusViewed
	inv.ClientViewedAt = time.Now().UTC()
	inv.bumpVersion()
}

// AddPayment appends a payment record. The running amount paid can never
// exceed the invoice total. On the transition into fully paid, the document
// status flips to paid and an InvoicePaidEvent is recorded.
func (inv *Invoice) AddPayment(amount decimal.Decimal, method PaymentMethod, paymentDate time.Time, reference, notes, processedBy string) error {
	if !amount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "payment amount must be positive"}
	}
	if inv.AmountPaid.Add(amount).GreaterThan(inv.Total) {
		return &ValidationError{Field: "amount", Reason: "payment amount exceeds outstanding balance"}
	}
	if paymentDate.IsZero() {
		paymentDate = dateOnly(time.Now().UTC())
	}
	payment := PaymentRecord{
		Amount:      RoundCurrency(amount),
		PaymentDate: paymentDate,
		Method:      method,
		Reference:   reference,
		Notes:       notes,
		ProcessedBy: processedBy,
		ProcessedAt: time.Now().UTC(),
	}
	if err := payment.Validate(); err != nil {
		return err
	}
	inv.PaymentRecords = append(inv.PaymentRecords, payment)
	inv.AmountPaid = inv.AmountPaid.Add(payment.Amount)
	inv.updatePaymentStatus()
	if inv.IsPaid() {
		inv.Status = StatusPaid
		inv.record(InvoicePaidEvent{
			eventMeta:     newEventMeta(),
			InvoiceID:     inv.ID,
			PaymentAmount: payment.Amount,
			PaymentMethod: method,
			PaymentDate:   payment.PaymentDate,
		})
	}
	inv.bumpVersion()
	return nil
}

// Cancel voids the invoice. Paid or partially-paid invoices cannot be
// cancelled; a refund must be issued instead.
func (inv *Invoice) Cancel(reason string) error {
	if inv.Status == StatusPaid {
		return &RuleViolation{Reason: "cannot cancel paid invoice"}
	}
	if inv.AmountPaid.IsPositive() {
		return &RuleViolation{Reason: "cannot cancel invoice with payments, create refund instead"}
	}
	inv.Status = StatusCancelled
	if reason != "" {
		note := "Cancelled: " + reason
		if inv.Notes == "" {
			inv.Notes = note
		} else {
			inv.Notes = inv.Notes + "\n" + note
		}
	}
	inv.bumpVersion()
	return nil
}

// RecordOverdue emits an InvoiceOverdueEvent if the invoice is past due as of
// the given day, and re-derives the payment status. Returns whether the
// invoice was overdue. Called by the overdue sweep, not by request handlers.
func (inv *Invoice) RecordOverdue(asOf time.Time) bool {
	if !inv.IsOverdueAt(asOf) {
		return false
	}
	if inv.AmountPaid.IsZero() {
		inv.PaymentStatus = PaymentOverdue
	}
	inv.record(InvoiceOverdueEvent{
		eventMeta:         newEventMeta(),
		InvoiceID:         inv.ID,
		DaysOverdue:       inv.DaysOverdueAt(asOf),
		OutstandingAmount: inv.OutstandingAmount(),
	})
	inv.bumpVersion()
	return true
}

// ─── Events and Versioning ──────────────────────────────────────────────────

// PullEvents drains and returns the accumulated domain events.
func (inv *Invoice) PullEvents() []Event {
	events := inv.events
	inv.events = nil
	return events
}

func (inv *Invoice) record(e Event) { inv.events = append(inv.events, e) }

// StoredVersion returns the version last seen by the store.
func (inv *Invoice) StoredVersion() int64 { return inv.storedVersion }

// MarkStored records that the current Version has been persisted. Called by
// the store after a successful load or save.
func (inv *Invoice) MarkStored() { inv.storedVersion = inv.Version }

// bumpVersion advances the optimistic-concurrency counter. Every
// state-changing mutation ends here.
func (inv *Invoice) bumpVersion() {
	inv.Version++
	inv.UpdatedAt = time.Now().UTC()
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// dateOnly truncates a time to its UTC calendar day.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Summary returns a one-line human description, e.g. for logs.
func (inv *Invoice) Summary() string {
	return fmt.Sprintf("%s [%s] %s %s", inv.Number, inv.Status, inv.Total.StringFixed(inv.Currency.Decimals()), inv.Currency)
}

// NormalizeUnit lowercases and trims a line item unit label.
func NormalizeUnit(unit string) string {
	return strings.ToLower(strings.TrimSpace(unit))
}
