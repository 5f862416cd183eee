// Package domain contains pure business types with ZERO infrastructure
// imports. It is the innermost ring: everything depends on it, it depends
// on nothing.
package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ─── Currency ───────────────────────────────────────────────────────────────

// Currency is an ISO 4217 currency code.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	JPY Currency = "JPY"
	CLP Currency = "CLP"
	ARS Currency = "ARS"
	BRL Currency = "BRL"
	MXN Currency = "MXN"
	COP Currency = "COP"
	PEN Currency = "PEN"
)

// currencyDecimals maps each supported currency to its canonical precision.
// Zero-decimal currencies round to whole units.
var currencyDecimals = map[Currency]int32{
	USD: 2, EUR: 2, GBP: 2, BRL: 2, MXN: 2, PEN: 2, ARS: 2,
	JPY: 0, CLP: 0, COP: 0,
}

// ParseCurrency validates a currency code string.
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if _, ok := currencyDecimals[c]; !ok {
		return "", &ValidationError{Field: "currency", Reason: fmt.Sprintf("unsupported currency code %q", code)}
	}
	return c, nil
}

// Decimals returns the canonical number of decimal places for the currency.
func (c Currency) Decimals() int32 {
	if d, ok := currencyDecimals[c]; ok {
		return d
	}
	return 2
}

// Valid reports whether the currency code is supported.
func (c Currency) Valid() bool {
	_, ok := currencyDecimals[c]
	return ok
}

// ─── Money ──────────────────────────────────────────────────────────────────

// Money is an immutable amount in a single currency. Amounts are never
// negative; negative adjustments are modeled as explicit discounts, not
// negative Money. All operations round half-up to the currency's precision.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates Money, validating the currency and rejecting negative
// amounts. The amount is rounded to the currency's canonical precision.
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if !currency.Valid() {
		return Money{}, &ValidationError{Field: "currency", Reason: fmt.Sprintf("unsupported currency code %q", currency)}
	}
	if amount.IsNegative() {
		return Money{}, &ValidationError{Field: "amount", Reason: "money amount cannot be negative"}
	}
	return Money{amount: amount.Round(currency.Decimals()), currency: currency}, nil
}

// MoneyFromFloat creates Money from a float amount.
func MoneyFromFloat(amount float64, currency Currency) (Money, error) {
	return NewMoney(decimal.NewFromFloat(amount), currency)
}

// Zero creates a zero amount in the given currency.
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the decimal amount.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the currency code.
func (m Money) Currency() Currency { return m.currency }

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// Add returns m + other. Fails with ErrCurrencyMismatch if currencies differ.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount).Round(m.currency.Decimals()), currency: m.currency}, nil
}

// Subtract returns m - other. Fails with ErrCurrencyMismatch if currencies
// differ and ErrNegativeResult if the result would drop below zero.
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	result := m.amount.Sub(other.amount)
	if result.IsNegative() {
		return Money{}, ErrNegativeResult
	}
	return Money{amount: result.Round(m.currency.Decimals()), currency: m.currency}, nil
}

// Multiply scales the amount by a factor, preserving currency.
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor).Round(m.currency.Decimals()), currency: m.currency}
}

// Divide scales the amount down by a divisor, preserving currency.
func (m Money) Divide(divisor decimal.Decimal) (Money, error) {
	if divisor.IsZero() {
		return Money{}, &ValidationError{Field: "divisor", Reason: "cannot divide money by zero"}
	}
	return Money{amount: m.amount.Div(divisor).Round(m.currency.Decimals()), currency: m.currency}, nil
}

// Cmp compares two amounts: -1 if m < other, 0 if equal, +1 if m > other.
func (m Money) Cmp(other Money) (int, error) {
	if m.currency != other.currency {
		return 0, fmt.Errorf("%w: compare %s with %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return m.amount.Cmp(other.amount), nil
}

// Equals reports whether amount and currency both match.
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// Float64 returns the amount as a float for display and serialization.
func (m Money) Float64() float64 {
	f, _ := m.amount.Float64()
	return f
}

// String formats as "1234.00 USD".
func (m Money) String() string {
	return m.amount.StringFixed(m.currency.Decimals()) + " " + string(m.currency)
}

// RoundCurrency rounds a raw decimal half-up to 2 places. All billing outputs
// pass through this boundary so invoice totals never drift at cent level.
func RoundCurrency(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// RoundHours rounds an hour count to 2 decimal places.
func RoundHours(h float64) float64 {
	f, _ := decimal.NewFromFloat(h).Round(2).Float64()
	return f
}

// RoundPercentage rounds a percentage to 1 decimal place.
func RoundPercentage(p float64) float64 {
	f, _ := decimal.NewFromFloat(p).Round(1).Float64()
	return f
}

// ─── InvoiceNumber ──────────────────────────────────────────────────────────

// InvoiceNumber is a sequential invoice identifier made of an optional
// prefix, a positive sequence number, and an optional suffix. It prints as
// PREFIX-NNNNNN-SUFFIX with the number zero-padded to 6 digits.
type InvoiceNumber struct {
	Prefix string
	Number int
	Suffix string
}

// NewInvoiceNumber validates and creates an invoice number.
func NewInvoiceNumber(prefix string, number int, suffix string) (InvoiceNumber, error) {
	n := InvoiceNumber{Prefix: prefix, Number: number, Suffix: suffix}
	if err := n.Validate(); err != nil {
		return InvoiceNumber{}, err
	}
	return n, nil
}

// Validate checks the invoice number's parts.
func (n InvoiceNumber) Validate() error {
	if n.Number <= 0 {
		return &ValidationError{Field: "number", Reason: "invoice number must be positive"}
	}
	if len(n.Prefix) > 10 {
		return &ValidationError{Field: "prefix", Reason: "invoice prefix too long (max 10 characters)"}
	}
	if len(n.Suffix) > 10 {
		return &ValidationError{Field: "suffix", Reason: "invoice suffix too long (max 10 characters)"}
	}
	return nil
}

// String formats the invoice number, e.g. "INV-000042" or "INV-000042-CL".
func (n InvoiceNumber) String() string {
	parts := make([]string, 0, 3)
	if n.Prefix != "" {
		parts = append(parts, n.Prefix)
	}
	parts = append(parts, fmt.Sprintf("%06d", n.Number))
	if n.Suffix != "" {
		parts = append(parts, n.Suffix)
	}
	return strings.Join(parts, "-")
}

// ParseInvoiceNumber parses a formatted invoice number back into its parts.
func ParseInvoiceNumber(value string) (InvoiceNumber, error) {
	parts := strings.Split(value, "-")
	var n InvoiceNumber
	var err error
	switch len(parts) {
	case 1:
		n.Number, err = strconv.Atoi(parts[0])
	case 2:
		n.Prefix = parts[0]
		n.Number, err = strconv.Atoi(parts[1])
	case 3:
		n.Prefix = parts[0]
		n.Suffix = parts[2]
		n.Number, err = strconv.Atoi(parts[1])
	default:
		return InvoiceNumber{}, &ValidationError{Field: "invoice_number", Reason: fmt.Sprintf("invalid invoice number format: %q", value)}
	}
	if err != nil {
		return InvoiceNumber{}, &ValidationError{Field: "invoice_number", Reason: fmt.Sprintf("invalid invoice number format: %q", value)}
	}
	if err := n.Validate(); err != nil {
		return InvoiceNumber{}, err
	}
	return n, nil
}

// Next returns the next invoice number in the same series.
func (n InvoiceNumber) Next() InvoiceNumber {
	return InvoiceNumber{Prefix: n.Prefix, Number: n.Number + 1, Suffix: n.Suffix}
}

// Less orders invoice numbers by sequence within a series.
func (n InvoiceNumber) Less(other InvoiceNumber) bool {
	return n.Number < other.Number
}
