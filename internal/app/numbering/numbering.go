// Package numbering generates sequential identifiers: invoice numbers,
// project codes, and task numbers.
//
// Number generation is not concurrency-safe on its own. The next number is
// max(existing)+1 over the matching (prefix, suffix) group, so two callers
// scanning the same set concurrently will compute the same number. Callers
// must serialize generation against persistence; the sqlite store does this
// by allocating inside an immediate transaction.
package numbering

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/ledgerline/ledgerline/internal/domain"
)

// ReservedPrefixes cannot be used for invoice numbers; they are kept for
// system-generated documents.
var ReservedPrefixes = []string{"SYS", "ADM", "TMP", "DEL", "ARC"}

// Service generates and audits sequential numbers. Stateless.
type Service struct{}

// New creates a numbering service.
func New() *Service {
	return &Service{}
}

// GenerateInvoiceNumber returns the next invoice number for the owner's
// settings: max(existing)+1 within the matching (prefix, suffix) group, or
// the configured starting number when the group is empty. See the package
// comment for the serialization requirement.
func (s *Service) GenerateInvoiceNumber(settings domain.InvoiceSettings, current []domain.InvoiceNumber) (domain.InvoiceNumber, error) {
	next := settings.NextNumber
	if next < 1 {
		next = 1
	}
	for _, num := range current {
		if num.Prefix == settings.NumberPrefix && num.Suffix == settings.NumberSuffix && num.Number >= next {
			next = num.Number + 1
		}
	}
	number := domain.InvoiceNumber{
		Prefix: settings.NumberPrefix,
		Number: next,
		Suffix: settings.NumberSuffix,
	}
	if err := s.validateInvoiceNumber(number); err != nil {
		return domain.InvoiceNumber{}, err
	}
	return number, nil
}

// ValidateSettings checks that a numbering series may be used for invoice
// generation: the prefix must not be reserved and the resulting numbers must
// be structurally valid.
func (s *Service) ValidateSettings(settings domain.InvoiceSettings) error {
	next := settings.NextNumber
	if next < 1 {
		next = 1
	}
	return s.validateInvoiceNumber(domain.InvoiceNumber{
		Prefix: settings.NumberPrefix,
		Number: next,
		Suffix: settings.NumberSuffix,
	})
}

func (s *Service) validateInvoiceNumber(number domain.InvoiceNumber) error {
	upper := strings.ToUpper(number.Prefix)
	for _, reserved := range ReservedPrefixes {
		if upper == reserved {
			return &domain.ValidationError{Field: "prefix", Reason: fmt.Sprintf("prefix %q is reserved", number.Prefix)}
		}
	}
	return number.Validate()
}

// FormatNumber renders a number through a pattern template. Supported
// placeholders are {number}, {year}, {month}, {day}, and {date}; anything
// else in braces is a validation error.
func (s *Service) FormatNumber(number int, pattern string, now time.Time) (string, error) {
	replacements := map[string]string{
		"number": fmt.Sprintf("%06d", number),
		"year":   strconv.Itoa(now.Year()),
		"month":  fmt.Sprintf("%02d", int(now.Month())),
		"day":    fmt.Sprintf("%02d", now.Day()),
		"date":   now.Format("20060102"),
	}

	var out strings.Builder
	rest := pattern
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		out.WriteString(rest[:open])
		rest = rest[open+1:]

		closeIdx := strings.IndexByte(rest, '}')
		if closeIdx < 0 {
			return "", &domain.ValidationError{Field: "pattern", Reason: "unterminated placeholder"}
		}
		key := rest[:closeIdx]
		rest = rest[closeIdx+1:]

		value, ok := replacements[key]
		if !ok {
			return "", &domain.ValidationError{Field: "pattern", Reason: fmt.Sprintf("invalid pattern variable: %q", key)}
		}
		out.WriteString(value)
	}
}

// FindGaps returns the integers missing from [start, end] given the
// allocated numbers. A zero end defaults to the maximum allocated number.
// Used by the audit command to surface skipped invoice numbers.
func (s *Service) FindGaps(existing []int, start, end int) []int {
	if len(existing) == 0 {
		return nil
	}
	allocated := make(map[int]bool, len(existing))
	maxNum := 0
	for _, n := range existing {
		allocated[n] = true
		if n > maxNum {
			maxNum = n
		}
	}
	if start < 1 {
		start = 1
	}
	if end == 0 {
		end = maxNum
	}

	var gaps []int
	for n := start; n <= end; n++ {
		if !allocated[n] {
			gaps = append(gaps, n)
		}
	}
	return gaps
}

// GenerateProjectCode builds a code like "ACM-WEB-25" from client and
// project names plus the two-digit year, appending a two-digit sequence
// ("-01", "-02", ...) when the base code is already taken.
func (s *Service) GenerateProjectCode(clientName, projectName string, existing []string, now time.Time) string {
	base := fmt.Sprintf("%s-%s-%02d",
		codeFromName(clientName, 3),
		codeFromName(projectName, 3),
		now.Year()%100)

	taken := make(map[string]bool, len(existing))
	for _, code := range existing {
		taken[code] = true
	}
	if !taken[base] {
		return base
	}
	for seq := 1; ; seq++ {
		candidate := fmt.Sprintf("%s-%02d", base, seq)
		if !taken[candidate] {
			return candidate
		}
	}
}

// GenerateTaskNumber returns the next task number within a project,
// formatted "TSK-NNNNN".
func (s *Service) GenerateTaskNumber(existing []int) string {
	next := 1
	for _, n := range existing {
		if n >= next {
			next = n + 1
		}
	}
	return fmt.Sprintf("TSK-%05d", next)
}

// codeFromName derives an uppercase code of the given length from a name:
// initials first, then letters of the first word, padded with 'X'.
func codeFromName(name string, length int) string {
	var words []string
	var current strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(unicode.ToUpper(r))
		} else if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}
	if len(words) == 0 {
		return strings.Repeat("X", length)
	}

	var code strings.Builder
	for _, w := range words {
		code.WriteByte(w[0])
	}
	out := code.String()
	if len(out) < length {
		first := words[0]
		if len(first) > 1 {
			need := length - len(out)
			tail := first[1:]
			if len(tail) > need {
				tail = tail[:need]
			}
			out += tail
		}
	}
	if len(out) > length {
		out = out[:length]
	}
	for len(out) < length {
		out += "X"
	}
	return out
}
