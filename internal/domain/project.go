package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Project Billing Types ──────────────────────────────────────────────────
// These live in domain because billing calculations depend on them. The full
// project/client management surface is out of scope; the core only needs the
// billing configuration and the time entries it bills.

// BillingType selects how a project is billed.
type BillingType string

const (
	BillingHourly    BillingType = "hourly"
	BillingFixed     BillingType = "fixed_price"
	BillingMilestone BillingType = "milestone"
	BillingRetainer  BillingType = "retainer"
)

// Milestone is one deliverable with an agreed amount.
type Milestone struct {
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Completed bool            `json:"completed"`
}

// BillingConfig is a project's billing configuration. Zero decimal values
// mean "not set"; ValidateBillingConfig reports what is missing for the
// chosen billing type.
type BillingConfig struct {
	Type BillingType `json:"billing_type"`

	HourlyRate decimal.Decimal `json:"hourly_rate,omitempty"`
	FixedPrice decimal.Decimal `json:"fixed_price,omitempty"`

	RetainerAmount decimal.Decimal `json:"retainer_amount,omitempty"`
	RetainerPeriod string          `json:"retainer_period,omitempty"` // monthly, weekly
	RetainerHours  float64         `json:"retainer_hours,omitempty"`  // hour cap before overage

	Milestones []Milestone `json:"milestones,omitempty"`

	BudgetLimit          decimal.Decimal `json:"budget_limit,omitempty"`
	BudgetAlertThreshold float64         `json:"budget_alert_threshold,omitempty"` // fraction in [0,1]
}

// Project is the read-only projection the billing core needs: identity, a
// display name, and the billing configuration.
type Project struct {
	ID      int64         `json:"id"`
	Name    string        `json:"name"`
	Billing BillingConfig `json:"billing"`
}

// ─── Time Entries ───────────────────────────────────────────────────────────

// TimeEntry is the billable unit of tracked work consumed by hourly billing.
// The timer subsystem that produces entries is out of scope; the core only
// reads them.
type TimeEntry struct {
	ID          int64           `json:"id"`
	UserID      string          `json:"user_id"`
	TaskID      int64           `json:"task_id,omitempty"`
	Description string          `json:"description,omitempty"`
	Date        time.Time       `json:"date"`
	Hours       float64         `json:"hours"`
	HourlyRate  decimal.Decimal `json:"hourly_rate,omitempty"` // zero means use the default rate
	Billable    bool            `json:"billable"`
}
