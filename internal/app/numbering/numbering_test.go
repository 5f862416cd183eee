package numbering

import (
	"reflect"
	"testing"
	"time"

	"github.com/ledgerline/ledgerline/internal/domain"
)

func TestGenerateInvoiceNumber(t *testing.T) {
	svc := New()
	settings := domain.InvoiceSettings{NumberPrefix: "INV", NextNumber: 1}

	t.Run("empty sequence starts at configured number", func(t *testing.T) {
		num, err := svc.GenerateInvoiceNumber(settings, nil)
		if err != nil {
			t.Fatalf("GenerateInvoiceNumber: %v", err)
		}
		if num.Number != 1 || num.Prefix != "INV" {
			t.Errorf("number = %+v", num)
		}
	})

	t.Run("takes max plus one", func(t *testing.T) {
		current := []domain.InvoiceNumber{
			{Prefix: "INV", Number: 3},
			{Prefix: "INV", Number: 7},
			{Prefix: "INV", Number: 5},
		}
		num, err := svc.GenerateInvoiceNumber(settings, current)
		if err != nil {
			t.Fatalf("GenerateInvoiceNumber: %v", err)
		}
		if num.Number != 8 {
			t.Errorf("Number = %d, want 8", num.Number)
		}
	})

	t.Run("sequences are independent per prefix and suffix", func(t *testing.T) {
		current := []domain.InvoiceNumber{
			{Prefix: "INV", Number: 40},
			{Prefix: "FACT", Number: 99},
			{Prefix: "INV", Number: 12, Suffix: "CL"},
		}
		num, err := svc.GenerateInvoiceNumber(settings, current)
		if err != nil {
			t.Fatalf("GenerateInvoiceNumber: %v", err)
		}
		if num.Number != 41 {
			t.Errorf("Number = %d, want 41 (other groups ignored)", num.Number)
		}

		withSuffix := domain.InvoiceSettings{NumberPrefix: "INV", NumberSuffix: "CL", NextNumber: 1}
		num, err = svc.GenerateInvoiceNumber(withSuffix, current)
		if err != nil {
			t.Fatalf("GenerateInvoiceNumber: %v", err)
		}
		if num.Number != 13 {
			t.Errorf("Number = %d, want 13", num.Number)
		}
	})

	t.Run("reserved prefixes rejected", func(t *testing.T) {
		for _, prefix := range ReservedPrefixes {
			bad := domain.InvoiceSettings{NumberPrefix: prefix, NextNumber: 1}
			if _, err := svc.GenerateInvoiceNumber(bad, nil); !domain.IsValidation(err) {
				t.Errorf("prefix %s: error = %v, want ValidationError", prefix, err)
			}
		}
		// Case-insensitive.
		bad := domain.InvoiceSettings{NumberPrefix: "sys", NextNumber: 1}
		if _, err := svc.GenerateInvoiceNumber(bad, nil); !domain.IsValidation(err) {
			t.Errorf("lowercase reserved prefix accepted")
		}
	})
}

func TestFormatNumber(t *testing.T) {
	svc := New()
	now := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		pattern string
		want    string
		wantErr bool
	}{
		{"number only", "INV-{number}", "INV-000042", false},
		{"year and number", "INV-{year}-{number}", "INV-2025-000042", false},
		{"full date parts", "{year}{month}{day}", "20250309", false},
		{"date shorthand", "INV{date}", "INV20250309", false},
		{"no placeholders", "PLAIN", "PLAIN", false},
		{"unknown placeholder", "INV-{quarter}", "", true},
		{"unterminated brace", "INV-{number", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.FormatNumber(42, tt.pattern, now)
			if tt.wantErr {
				if !domain.IsValidation(err) {
					t.Fatalf("error = %v, want ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FormatNumber: %v", err)
			}
			if got != tt.want {
				t.Errorf("FormatNumber = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindGaps(t *testing.T) {
	svc := New()

	tests := []struct {
		name     string
		existing []int
		start    int
		end      int
		want     []int
	}{
		{"no numbers", nil, 1, 0, nil},
		{"no gaps", []int{1, 2, 3}, 1, 0, nil},
		{"single gap", []int{1, 3}, 1, 0, []int{2}},
		{"multiple gaps", []int{1, 4, 7}, 1, 0, []int{2, 3, 5, 6}},
		{"explicit range extends past max", []int{1, 2}, 1, 4, []int{3, 4}},
		{"start offset", []int{5, 8}, 5, 0, []int{6, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.FindGaps(tt.existing, tt.start, tt.end)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindGaps = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerateProjectCode(t *testing.T) {
	svc := New()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// Initials, padded from the first word: "Acme Corp" -> ACC,
	// "Website Redesign" -> WRE.
	code := svc.GenerateProjectCode("Acme Corp", "Website Redesign", nil, now)
	if code != "ACC-WRE-25" {
		t.Errorf("code = %s, want ACC-WRE-25", code)
	}

	// Uniqueness suffix when the base code is taken.
	existing := []string{"ACC-WRE-25", "ACC-WRE-25-01"}
	code = svc.GenerateProjectCode("Acme Corp", "Website Redesign", existing, now)
	if code != "ACC-WRE-25-02" {
		t.Errorf("code = %s, want ACC-WRE-25-02", code)
	}

	// Empty names fall back to placeholder codes.
	code = svc.GenerateProjectCode("", "", nil, now)
	if code != "XXX-XXX-25" {
		t.Errorf("code = %s, want XXX-XXX-25", code)
	}
}

func TestGenerateTaskNumber(t *testing.T) {
	svc := New()
	if got := svc.GenerateTaskNumber(nil); got != "TSK-00001" {
		t.Errorf("first task = %s, want TSK-00001", got)
	}
	if got := svc.GenerateTaskNumber([]int{1, 2, 9}); got != "TSK-00010" {
		t.Errorf("next task = %s, want TSK-00010", got)
	}
}
