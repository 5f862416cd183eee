// Package billing is the stateless billing calculator. Every method is a
// pure function from inputs to a result bundle; nothing here touches
// persistence. The tax-rate and currency-factor tables are injected data so
// they can be swapped from config without rebuilding the service.
package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/domain"
)

// TaxRate is one named rate applied in a tax region.
type TaxRate struct {
	Name string  `json:"name" toml:"name"`
	Rate float64 `json:"rate" toml:"rate"` // percentage, e.g. 19.0
}

// CustomTaxRate overrides the region table for a single calculation.
type CustomTaxRate struct {
	Name  string  `json:"name"`
	Rate  float64 `json:"rate"`
	TaxID string  `json:"tax_id,omitempty"`
}

// DefaultTaxRates returns the built-in per-region tax table. US sales tax
// varies by state and defaults to zero; EU VAT varies by country.
func DefaultTaxRates() map[string][]TaxRate {
	return map[string][]TaxRate{
		"US": {{Name: "SALES_TAX", Rate: 0}},
		"CL": {{Name: "IVA", Rate: 19.0}},
		"AR": {{Name: "IVA", Rate: 21.0}},
		"BR": {{Name: "ICMS", Rate: 18.0}},
		"MX": {{Name: "IVA", Rate: 16.0}},
		"CO": {{Name: "IVA", Rate: 19.0}},
		"PE": {{Name: "IGV", Rate: 18.0}},
		"EU": {{Name: "VAT", Rate: 20.0}},
	}
}

// DefaultCurrencyFactors returns the static USD-pivot conversion table.
// These are illustrative fixed factors, not live rates.
func DefaultCurrencyFactors() map[domain.Currency]decimal.Decimal {
	return map[domain.Currency]decimal.Decimal{
		domain.USD: decimal.NewFromFloat(1.0),
		domain.EUR: decimal.NewFromFloat(0.85),
		domain.CLP: decimal.NewFromFloat(800.0),
		domain.ARS: decimal.NewFromFloat(350.0),
		domain.BRL: decimal.NewFromFloat(5.0),
		domain.MXN: decimal.NewFromFloat(18.0),
		domain.COP: decimal.NewFromFloat(4000.0),
		domain.PEN: decimal.NewFromFloat(3.8),
	}
}

// Service performs billing calculations. Safe for concurrent use: the tables
// are read-only after construction.
type Service struct {
	taxRates  map[string][]TaxRate
	fxFactors map[domain.Currency]decimal.Decimal
}

// New creates a billing service with the given tables. Nil tables fall back
// to the built-in defaults.
func New(taxRates map[string][]TaxRate, fxFactors map[domain.Currency]decimal.Decimal) *Service {
	if taxRates == nil {
		taxRates = DefaultTaxRates()
	}
	if fxFactors == nil {
		fxFactors = DefaultCurrencyFactors()
	}
	return &Service{taxRates: taxRates, fxFactors: fxFactors}
}

// ─── Hourly Billing ─────────────────────────────────────────────────────────

// GroupSummary aggregates hours/amount/entry-count for one user or task.
type GroupSummary struct {
	Hours   float64         `json:"hours"`
	Amount  decimal.Decimal `json:"amount"`
	Entries int             `json:"entries"`
}

// HourlyResult is the outcome of billing a set of time entries.
type HourlyResult struct {
	TotalHours    float64                 `json:"total_hours"`
	BillableHours float64                 `json:"billable_hours"`
	TotalAmount   decimal.Decimal         `json:"total_amount"`
	LineItems     []domain.LineItem       `json:"line_items"`
	SummaryByUser map[string]GroupSummary `json:"summary_by_user"`
	SummaryByTask map[int64]GroupSummary  `json:"summary_by_task"`
}

// CalculateHourlyBilling turns billable time entries into invoice line items.
// Each entry needs a resolved rate (its own or the default); a missing rate
// is a validation error. Non-billable entries are skipped. Grouping by user
// and task is order-independent aggregation.
func (s *Service) CalculateHourlyBilling(entries []domain.TimeEntry, defaultRate decimal.Decimal) (HourlyResult, error) {
	result := HourlyResult{
		TotalAmount:   decimal.Zero,
		SummaryByUser: make(map[string]GroupSummary),
		SummaryByTask: make(map[int64]GroupSummary),
	}
	for _, entry := range entries {
		if !entry.Billable {
			continue
		}
		rate := entry.HourlyRate
		if rate.IsZero() {
			rate = defaultRate
		}
		if !rate.IsPositive() {
			return HourlyResult{}, &domain.ValidationError{
				Field:  "hourly_rate",
				Reason: fmt.Sprintf("invalid hourly rate for entry %d", entry.ID),
			}
		}
		hours := decimal.NewFromFloat(entry.Hours)
		amount := domain.RoundCurrency(hours.Mul(rate))

		result.LineItems = append(result.LineItems, domain.LineItem{
			Description: timeEntryDescription(entry),
			Quantity:    hours,
			Rate:        rate,
			Amount:      amount,
			Unit:        "hours",
			TimeEntryID: entry.ID,
			TaskID:      entry.TaskID,
		})
		result.TotalHours += entry.Hours
		result.BillableHours += entry.Hours
		result.TotalAmount = result.TotalAmount.Add(amount)

		user := result.SummaryByUser[entry.UserID]
		user.Hours += entry.Hours
		user.Amount = user.Amount.Add(amount)
		user.Entries++
		result.SummaryByUser[entry.UserID] = user

		if entry.TaskID != 0 {
			task := result.SummaryByTask[entry.TaskID]
			task.Hours += entry.Hours
			task.Amount = task.Amount.Add(amount)
			task.Entries++
			result.SummaryByTask[entry.TaskID] = task
		}
	}
	result.TotalHours = roundHoursFloat(result.TotalHours)
	result.BillableHours = roundHoursFloat(result.BillableHours)
	result.TotalAmount = domain.RoundCurrency(result.TotalAmount)
	return result, nil
}

// timeEntryDescription formats an entry for its line item, e.g.
// "API integration (03/14/2025)".
func timeEntryDescription(entry domain.TimeEntry) string {
	desc := entry.Description
	if desc == "" {
		desc = "Time tracking"
	}
	return fmt.Sprintf("%s (%s)", desc, entry.Date.Format("01/02/2006"))
}

// ─── Fixed Price Billing ────────────────────────────────────────────────────

// FixedPriceResult is the outcome of billing a fixed-price project.
type FixedPriceResult struct {
	TotalAmount          decimal.Decimal   `json:"total_amount"`
	CompletionPercentage float64           `json:"completion_percentage"`
	FixedPrice           decimal.Decimal   `json:"fixed_price"`
	RemainingAmount      decimal.Decimal   `json:"remaining_amount"`
	LineItems            []domain.LineItem `json:"line_items"`
}

// CalculateFixedPriceBilling bills a fixed-price project by completion
// percentage. The line item is quantified in percentage points, rated at
// price/100 per point.
func (s *Service) CalculateFixedPriceBilling(project domain.Project, completionPct float64) (FixedPriceResult, error) {
	if project.Billing.Type != domain.BillingFixed {
		return FixedPriceResult{}, &domain.RuleViolation{Reason: "project is not set up for fixed price billing"}
	}
	if !project.Billing.FixedPrice.IsPositive() {
		return FixedPriceResult{}, &domain.ValidationError{Field: "fixed_price", Reason: "fixed price amount not set for project"}
	}
	if completionPct < 0 || completionPct > 100 {
		return FixedPriceResult{}, &domain.ValidationError{Field: "completion_percentage", Reason: "completion percentage must be between 0 and 100"}
	}

	price := project.Billing.FixedPrice
	pct := decimal.NewFromFloat(completionPct)
	amount := domain.RoundCurrency(price.Mul(pct).Div(decimal.NewFromInt(100)))

	item := domain.LineItem{
		Description: fmt.Sprintf("Project: %s (%g%% complete)", project.Name, completionPct),
		Quantity:    pct,
		Rate:        price.Div(decimal.NewFromInt(100)),
		Amount:      amount,
		Unit:        "%",
	}
	return FixedPriceResult{
		TotalAmount:          amount,
		CompletionPercentage: completionPct,
		FixedPrice:           price,
		RemainingAmount:      domain.RoundCurrency(price.Sub(amount)),
		LineItems:            []domain.LineItem{item},
	}, nil
}

// ─── Milestone Billing ──────────────────────────────────────────────────────

// MilestoneResult is the outcome of billing completed milestones.
type MilestoneResult struct {
	TotalAmount         decimal.Decimal   `json:"total_amount"`
	CompletedMilestones int               `json:"completed_milestones"`
	TotalMilestones     int               `json:"total_milestones"`
	LineItems           []domain.LineItem `json:"line_items"`
}

// CalculateMilestoneBilling bills each completed milestone with a positive
// amount as one line item. Incomplete or zero-amount milestones are skipped.
func (s *Service) CalculateMilestoneBilling(project domain.Project, milestones []domain.Milestone) (MilestoneResult, error) {
	if project.Billing.Type != domain.BillingMilestone {
		return MilestoneResult{}, &domain.RuleViolation{Reason: "project is not set up for milestone billing"}
	}

	result := MilestoneResult{
		TotalAmount:     decimal.Zero,
		TotalMilestones: len(milestones),
	}
	for _, m := range milestones {
		if !m.Completed {
			continue
		}
		result.CompletedMilestones++
		if !m.Amount.IsPositive() {
			continue
		}
		name := m.Name
		if name == "" {
			name = "Unnamed"
		}
		result.LineItems = append(result.LineItems, domain.LineItem{
			Description: "Milestone: " + name,
			Quantity:    decimal.NewFromInt(1),
			Rate:        m.Amount,
			Amount:      m.Amount,
			Unit:        "milestone",
		})
		result.TotalAmount = result.TotalAmount.Add(m.Amount)
	}
	result.TotalAmount = domain.RoundCurrency(result.TotalAmount)
	return result, nil
}

// ─── Retainer Billing ───────────────────────────────────────────────────────

// RetainerResult is the outcome of billing a retainer period.
type RetainerResult struct {
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	BillingPeriod string            `json:"billing_period"`
	HoursUsed     float64           `json:"hours_used"`
	OverageHours  float64           `json:"overage_hours,omitempty"`
	OverageAmount decimal.Decimal   `json:"overage_amount,omitempty"`
	LineItems     []domain.LineItem `json:"line_items"`
}

// CalculateRetainerBilling bills the flat retainer fee for a period. When
// hours used exceed the configured cap and the project has an hourly rate,
// the overage is appended as a second line item at that rate.
func (s *Service) CalculateRetainerBilling(project domain.Project, billingPeriod string, hoursUsed float64) (RetainerResult, error) {
	if project.Billing.Type != domain.BillingRetainer {
		return RetainerResult{}, &domain.RuleViolation{Reason: "project is not set up for retainer billing"}
	}
	if !project.Billing.RetainerAmount.IsPositive() {
		return RetainerResult{}, &domain.ValidationError{Field: "retainer_amount", Reason: "retainer amount not set for project"}
	}

	retainer := project.Billing.RetainerAmount
	result := RetainerResult{
		TotalAmount:   domain.RoundCurrency(retainer),
		BillingPeriod: billingPeriod,
		HoursUsed:     hoursUsed,
		LineItems: []domain.LineItem{{
			Description: "Retainer - " + billingPeriod,
			Quantity:    decimal.NewFromInt(1),
			Rate:        retainer,
			Amount:      retainer,
			Unit:        "month",
		}},
	}

	hourCap := project.Billing.RetainerHours
	rate := project.Billing.HourlyRate
	if hourCap > 0 && hoursUsed > hourCap && rate.IsPositive() {
		overage := roundHoursFloat(hoursUsed - hourCap)
		hours := decimal.NewFromFloat(overage)
		amount := domain.RoundCurrency(hours.Mul(rate))
		result.LineItems = append(result.LineItems, domain.LineItem{
			Description: fmt.Sprintf("Overage hours (%.2f hrs @ $%s/hr)", overage, rate.StringFixed(2)),
			Quantity:    hours,
			Rate:        rate,
			Amount:      amount,
			Unit:        "hours",
		})
		result.TotalAmount = result.TotalAmount.Add(amount)
		result.OverageHours = overage
		result.OverageAmount = amount
	}
	return result, nil
}

// ─── Taxes ──────────────────────────────────────────────────────────────────

// CalculateTaxes computes tax line items on a subtotal. Custom rates, when
// given, replace the region table entirely. Zero rates produce no items, so
// a US invoice with the default table gets none.
func (s *Service) CalculateTaxes(subtotal decimal.Decimal, taxRegion string, customRates []CustomTaxRate) []domain.TaxLineItem {
	var items []domain.TaxLineItem
	if len(customRates) > 0 {
		for _, c := range customRates {
			if c.Rate <= 0 {
				continue
			}
			name := c.Name
			if name == "" {
				name = "Tax"
			}
			items = append(items, domain.TaxLineItem{
				Name:   name,
				Rate:   c.Rate,
				Amount: taxAmount(subtotal, c.Rate),
				TaxID:  c.TaxID,
			})
		}
		return items
	}
	for _, r := range s.taxRates[taxRegion] {
		if r.Rate <= 0 {
			continue
		}
		items = append(items, domain.TaxLineItem{
			Name:   r.Name,
			Rate:   r.Rate,
			Amount: taxAmount(subtotal, r.Rate),
		})
	}
	return items
}

func taxAmount(subtotal decimal.Decimal, rate float64) decimal.Decimal {
	return domain.RoundCurrency(subtotal.Mul(decimal.NewFromFloat(rate)).Div(decimal.NewFromInt(100)))
}

// ─── Discounts ──────────────────────────────────────────────────────────────

// DiscountResult reports an applied discount.
type DiscountResult struct {
	OriginalSubtotal   decimal.Decimal `json:"original_subtotal"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	DiscountPercentage float64         `json:"discount_percentage"`
	DiscountedSubtotal decimal.Decimal `json:"discounted_subtotal"`
}

// ApplyDiscount applies a percentage or flat discount, never both. A flat
// discount is capped at the subtotal so the result never goes negative. The
// returned percentage is derived from the actual discount taken.
func (s *Service) ApplyDiscount(subtotal decimal.Decimal, percentage float64, amount decimal.Decimal) (DiscountResult, error) {
	if percentage < 0 || percentage > 100 {
		return DiscountResult{}, &domain.ValidationError{Field: "discount_percentage", Reason: "discount percentage must be between 0 and 100"}
	}
	if amount.IsNegative() {
		return DiscountResult{}, &domain.ValidationError{Field: "discount_amount", Reason: "discount amount cannot be negative"}
	}
	if percentage > 0 && amount.IsPositive() {
		return DiscountResult{}, &domain.ValidationError{Field: "discount", Reason: "cannot apply both percentage and amount discount"}
	}

	discount := decimal.Zero
	switch {
	case percentage > 0:
		discount = domain.RoundCurrency(subtotal.Mul(decimal.NewFromFloat(percentage)).Div(decimal.NewFromInt(100)))
	case amount.IsPositive():
		discount = amount
		if discount.GreaterThan(subtotal) {
			discount = subtotal
		}
	}

	derivedPct := 0.0
	if subtotal.IsPositive() {
		derivedPct, _ = discount.Div(subtotal).Mul(decimal.NewFromInt(100)).Float64()
	}
	discounted := subtotal.Sub(discount)
	if discounted.IsNegative() {
		discounted = decimal.Zero
	}
	return DiscountResult{
		OriginalSubtotal:   subtotal,
		DiscountAmount:     discount,
		DiscountPercentage: roundPercentageFloat(derivedPct),
		DiscountedSubtotal: discounted,
	}, nil
}

// ─── Currency Conversion ────────────────────────────────────────────────────

// ConvertCurrency converts an amount between currencies through a USD pivot
// using the static factor table. The factors are fixed snapshots, not rates.
func (s *Service) ConvertCurrency(amount decimal.Decimal, from, to domain.Currency) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	fromFactor, ok := s.fxFactors[from]
	if !ok {
		return decimal.Zero, &domain.ValidationError{Field: "from_currency", Reason: fmt.Sprintf("unsupported currency: %s", from)}
	}
	toFactor, ok := s.fxFactors[to]
	if !ok {
		return decimal.Zero, &domain.ValidationError{Field: "to_currency", Reason: fmt.Sprintf("unsupported currency: %s", to)}
	}
	usd := amount.Div(fromFactor)
	return domain.RoundCurrency(usd.Mul(toFactor)), nil
}

// ─── Profitability & Estimates ──────────────────────────────────────────────

// Profitability is the result of a profit analysis over a revenue period.
type Profitability struct {
	Revenue         decimal.Decimal `json:"revenue"`
	Costs           decimal.Decimal `json:"costs"`
	Profit          decimal.Decimal `json:"profit"`
	ProfitMarginPct float64         `json:"profit_margin_percentage"`
	HourlyProfit    decimal.Decimal `json:"hourly_profit"`
	HoursWorked     float64         `json:"hours_worked"`
}

// CalculateProfitability computes profit, margin, and per-hour profit.
// Zero revenue or zero hours yield zero margins rather than errors.
func (s *Service) CalculateProfitability(revenue, costs decimal.Decimal, hoursWorked float64) Profitability {
	profit := revenue.Sub(costs)

	marginPct := 0.0
	if revenue.IsPositive() {
		marginPct, _ = profit.Div(revenue).Mul(decimal.NewFromInt(100)).Float64()
	}
	hourlyProfit := decimal.Zero
	if hoursWorked > 0 {
		hourlyProfit = domain.RoundCurrency(profit.Div(decimal.NewFromFloat(hoursWorked)))
	}
	return Profitability{
		Revenue:         domain.RoundCurrency(revenue),
		Costs:           domain.RoundCurrency(costs),
		Profit:          domain.RoundCurrency(profit),
		ProfitMarginPct: roundPercentageFloat(marginPct),
		HourlyProfit:    hourlyProfit,
		HoursWorked:     roundHoursFloat(hoursWorked),
	}
}

// CostEstimate is the result of a project cost estimate.
type CostEstimate struct {
	EstimatedHours     float64         `json:"estimated_hours"`
	HourlyRate         decimal.Decimal `json:"hourly_rate"`
	BaseCost           decimal.Decimal `json:"base_cost"`
	OverheadPercentage float64         `json:"overhead_percentage"`
	OverheadAmount     decimal.Decimal `json:"overhead_amount"`
	TotalEstimatedCost decimal.Decimal `json:"total_estimated_cost"`
}

// EstimateProjectCost estimates total project cost including an overhead
// percentage on top of the base hours * rate.
func (s *Service) EstimateProjectCost(estimatedHours float64, hourlyRate decimal.Decimal, overheadPct float64) CostEstimate {
	base := decimal.NewFromFloat(estimatedHours).Mul(hourlyRate)
	overhead := base.Mul(decimal.NewFromFloat(overheadPct)).Div(decimal.NewFromInt(100))
	return CostEstimate{
		EstimatedHours:     roundHoursFloat(estimatedHours),
		HourlyRate:         domain.RoundCurrency(hourlyRate),
		BaseCost:           domain.RoundCurrency(base),
		OverheadPercentage: overheadPct,
		OverheadAmount:     domain.RoundCurrency(overhead),
		TotalEstimatedCost: domain.RoundCurrency(base.Add(overhead)),
	}
}

// ─── Config Validation ──────────────────────────────────────────────────────

// ValidateBillingConfig checks a project billing configuration and returns
// human-readable issues. Unlike the calculators this reports rather than
// fails; it backs soft validation in the UI.
func (s *Service) ValidateBillingConfig(cfg domain.BillingConfig) []string {
	var issues []string

	switch cfg.Type {
	case domain.BillingHourly:
		if !cfg.HourlyRate.IsPositive() {
			issues = append(issues, "Hourly rate is required and must be positive for hourly billing")
		}
	case domain.BillingFixed:
		if !cfg.FixedPrice.IsPositive() {
			issues = append(issues, "Fixed price is required and must be positive for fixed price billing")
		}
	case domain.BillingRetainer:
		if !cfg.RetainerAmount.IsPositive() {
			issues = append(issues, "Retainer amount is required and must be positive for retainer billing")
		}
	case domain.BillingMilestone:
		if len(cfg.Milestones) == 0 {
			issues = append(issues, "At least one milestone is required for milestone billing")
		} else {
			total := decimal.Zero
			for _, m := range cfg.Milestones {
				total = total.Add(m.Amount)
			}
			if !total.IsPositive() {
				issues = append(issues, "Milestone amounts must be positive")
			}
		}
	}

	if cfg.BudgetLimit.IsNegative() {
		issues = append(issues, "Budget limit cannot be negative")
	}
	if cfg.BudgetAlertThreshold < 0 || cfg.BudgetAlertThreshold > 1 {
		issues = append(issues, "Budget alert threshold must be between 0 and 1")
	}
	return issues
}

// ─── Invoice Assembly ───────────────────────────────────────────────────────

// InvoiceFromTimeEntries builds a draft invoice from billable time entries
// using the owner's invoice settings for currency and payment terms. Taxes
// are applied from the region table on the resulting subtotal.
func (s *Service) InvoiceFromTimeEntries(
	settings domain.InvoiceSettings,
	number domain.InvoiceNumber,
	clientID, projectID int64,
	createdBy string,
	entries []domain.TimeEntry,
	defaultRate decimal.Decimal,
	taxRegion string,
) (*domain.Invoice, error) {
	hourly, err := s.CalculateHourlyBilling(entries, defaultRate)
	if err != nil {
		return nil, err
	}
	if len(hourly.LineItems) == 0 {
		return nil, &domain.ValidationError{Field: "time_entries", Reason: "no billable time entries"}
	}

	inv, err := domain.NewInvoice(clientID, projectID, createdBy, number, domain.TypeTimeBased, settings.Currency, settings.DueDateFrom(time.Now().UTC()))
	if err != nil {
		return nil, err
	}
	for _, item := range hourly.LineItems {
		if err := inv.AddLineItem(item.Description, item.Quantity, item.Rate, item.Unit, item.TimeEntryID, item.TaskID); err != nil {
			return nil, err
		}
	}
	for _, tax := range s.CalculateTaxes(inv.Subtotal, taxRegion, nil) {
		if err := inv.AddTax(tax.Name, tax.Rate, tax.TaxID); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

// ─── Rounding ───────────────────────────────────────────────────────────────

func roundHoursFloat(hours float64) float64 {
	return domain.RoundHours(hours)
}

func roundPercentageFloat(pct float64) float64 {
	return domain.RoundPercentage(pct)
}
