package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan frequency values.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyCustom  = "custom"
)

// Plan status values. Active is the only state from which execution is allowed;
// a plan completes automatically once its end date has passed.
const (
	PlanActive    = "active"
	PlanPaused    = "paused"
	PlanStopped   = "stopped"
	PlanCompleted = "completed"
)

// Plan is a recurring-investment definition. The executor owns the mutable
// scheduling fields (NextExecutionDate, the cumulative counters); user edits
// go through the service, which recomputes the next execution date.
type Plan struct {
	ID           string          `json:"id"`
	Platform     string          `json:"platform"`
	AssetType    string          `json:"assetType"`
	Symbol       string          `json:"symbol"`
	Currency     string          `json:"currency"`
	Amount       decimal.Decimal `json:"amount"`
	Frequency    string          `json:"frequency"`
	IntervalDays int             `json:"intervalDays,omitempty"`
	StartDate    time.Time       `json:"startDate"`
	EndDate      *time.Time      `json:"endDate,omitempty"`

	NextExecutionDate *time.Time `json:"nextExecutionDate,omitempty"`
	LastExecutionDate *time.Time `json:"lastExecutionDate,omitempty"`

	ExecutionCount int             `json:"executionCount"`
	TotalInvested  decimal.Decimal `json:"totalInvested"`
	TotalShares    decimal.Decimal `json:"totalShares"`

	Status string `json:"status"`

	SmartEnabled bool                `json:"smartEnabled"`
	BaseAmount   decimal.NullDecimal `json:"baseAmount"`
	MaxAmount    decimal.NullDecimal `json:"maxAmount"`
	IncreaseRate decimal.NullDecimal `json:"increaseRate"`

	FeeRate       decimal.NullDecimal `json:"feeRate"`
	ExcludedDates []string            `json:"excludedDates,omitempty"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Excluded reports whether the given date is in the plan's excluded set.
// Dates are compared by their YYYY-MM-DD representation.
func (p Plan) Excluded(date time.Time) bool {
	key := date.Format("2006-01-02")
	for _, d := range p.ExcludedDates {
		if d == key {
			return true
		}
	}
	return false
}
