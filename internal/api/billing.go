package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/app/billing"
	"github.com/ledgerline/ledgerline/internal/domain"
)

// Billing endpoints are previews: they run the calculators and return the
// result without touching storage. Clients use them to show totals before an
// invoice exists.

type billingHourlyRequest struct {
	TimeEntries []domain.TimeEntry `json:"time_entries"`
	DefaultRate decimal.Decimal    `json:"default_rate"`
}

func (s *Server) handleBillingHourly(w http.ResponseWriter, r *http.Request) {
	var req billingHourlyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.billing.CalculateHourlyBilling(req.TimeEntries, req.DefaultRate)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type billingFixedRequest struct {
	Project              domain.Project `json:"project"`
	CompletionPercentage float64        `json:"completion_percentage"`
}

func (s *Server) handleBillingFixed(w http.ResponseWriter, r *http.Request) {
	var req billingFixedRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.billing.CalculateFixedPriceBilling(req.Project, req.CompletionPercentage)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type billingMilestoneRequest struct {
	Project    domain.Project     `json:"project"`
	Milestones []domain.Milestone `json:"milestones"`
}

func (s *Server) handleBillingMilestone(w http.ResponseWriter, r *http.Request) {
	var req billingMilestoneRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.billing.CalculateMilestoneBilling(req.Project, req.Milestones)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type billingRetainerRequest struct {
	Project       domain.Project `json:"project"`
	BillingPeriod string         `json:"billing_period"`
	HoursUsed     float64        `json:"hours_used"`
}

func (s *Server) handleBillingRetainer(w http.ResponseWriter, r *http.Request) {
	var req billingRetainerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.billing.CalculateRetainerBilling(req.Project, req.BillingPeriod, req.HoursUsed)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type billingTaxesRequest struct {
	Subtotal    decimal.Decimal         `json:"subtotal"`
	TaxRegion   string                  `json:"tax_region,omitempty"`
	CustomRates []billing.CustomTaxRate `json:"custom_rates,omitempty"`
}

func (s *Server) handleBillingTaxes(w http.ResponseWriter, r *http.Request) {
	var req billingTaxesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	region := req.TaxRegion
	if region == "" {
		region = s.taxRegion
	}
	items := s.billing.CalculateTaxes(req.Subtotal, region, req.CustomRates)
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tax_items": items,
		"total_tax": total,
	})
}

type billingDiscountRequest struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Percentage float64         `json:"percentage,omitempty"`
	Amount     decimal.Decimal `json:"amount,omitempty"`
}

func (s *Server) handleBillingDiscount(w http.ResponseWriter, r *http.Request) {
	var req billingDiscountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.billing.ApplyDiscount(req.Subtotal, req.Percentage, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type billingConvertRequest struct {
	Amount decimal.Decimal `json:"amount"`
	From   string          `json:"from_currency"`
	To     string          `json:"to_currency"`
}

func (s *Server) handleBillingConvert(w http.ResponseWriter, r *http.Request) {
	var req billingConvertRequest
	if !decodeBody(w, r, &req) {
		return
	}
	converted, err := s.billing.ConvertCurrency(req.Amount, domain.Currency(req.From), domain.Currency(req.To))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"amount":           req.Amount,
		"from_currency":    req.From,
		"to_currency":      req.To,
		"converted_amount": converted,
	})
}

type billingProfitabilityRequest struct {
	Revenue     decimal.Decimal `json:"revenue"`
	Costs       decimal.Decimal `json:"costs"`
	HoursWorked float64         `json:"hours_worked"`
}

func (s *Server) handleBillingProfitability(w http.ResponseWriter, r *http.Request) {
	var req billingProfitabilityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.billing.CalculateProfitability(req.Revenue, req.Costs, req.HoursWorked))
}

type billingEstimateRequest struct {
	EstimatedHours     float64         `json:"estimated_hours"`
	HourlyRate         decimal.Decimal `json:"hourly_rate"`
	OverheadPercentage float64         `json:"overhead_percentage"`
}

func (s *Server) handleBillingEstimate(w http.ResponseWriter, r *http.Request) {
	var req billingEstimateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.billing.EstimateProjectCost(req.EstimatedHours, req.HourlyRate, req.OverheadPercentage))
}

func (s *Server) handleBillingValidateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg domain.BillingConfig
	if !decodeBody(w, r, &cfg) {
		return
	}
	issues := s.billing.ValidateBillingConfig(cfg)
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":  len(issues) == 0,
		"issues": issues,
	})
}
