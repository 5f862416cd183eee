package domain

import (
	"errors"
	"fmt"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.

var (
	// Money arithmetic errors
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrNegativeResult   = errors.New("money amount cannot go below zero")

	// Persistence boundary errors
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrDuplicateNumber     = errors.New("invoice number already allocated")
	ErrConcurrencyConflict = errors.New("stale aggregate version, reload and retry")
)

// ValidationError reports malformed or out-of-range input, attributed to the
// offending field. Always recoverable by the caller correcting its input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// RuleViolation reports an operation that is not permitted given the current
// aggregate state, e.g. editing a paid invoice.
type RuleViolation struct {
	Reason string
}

func (e *RuleViolation) Error() string { return e.Reason }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsRuleViolation reports whether err is a RuleViolation.
func IsRuleViolation(err error) bool {
	var rv *RuleViolation
	return errors.As(err, &rv)
}
