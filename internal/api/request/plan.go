package request

import "github.com/shopspring/decimal"

// CreatePlanRequest is the payload for defining a recurring-investment plan.
type CreatePlanRequest struct {
	Platform     string          `json:"platform"`
	AssetType    string          `json:"assetType"`
	Symbol       string          `json:"symbol"`
	Currency     string          `json:"currency"`
	Amount       decimal.Decimal `json:"amount"`
	Frequency    string          `json:"frequency"`
	IntervalDays int             `json:"intervalDays,omitempty"`
	StartDate    string          `json:"startDate"`
	EndDate      *string         `json:"endDate,omitempty"`

	SmartEnabled bool             `json:"smartEnabled,omitempty"`
	BaseAmount   *decimal.Decimal `json:"baseAmount,omitempty"`
	MaxAmount    *decimal.Decimal `json:"maxAmount,omitempty"`
	IncreaseRate *decimal.Decimal `json:"increaseRate,omitempty"`

	FeeRate       *decimal.Decimal `json:"feeRate,omitempty"`
	ExcludedDates []string         `json:"excludedDates,omitempty"`
}

// UpdatePlanRequest is the typed patch for editing a plan. All fields are
// optional; edits that change the schedule force a next-execution-date
// recomputation in the service.
type UpdatePlanRequest struct {
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	Frequency    *string          `json:"frequency,omitempty"`
	IntervalDays *int             `json:"intervalDays,omitempty"`
	StartDate    *string          `json:"startDate,omitempty"`
	EndDate      *string          `json:"endDate,omitempty"`

	SmartEnabled *bool            `json:"smartEnabled,omitempty"`
	BaseAmount   *decimal.Decimal `json:"baseAmount,omitempty"`
	MaxAmount    *decimal.Decimal `json:"maxAmount,omitempty"`
	IncreaseRate *decimal.Decimal `json:"increaseRate,omitempty"`

	FeeRate       *decimal.Decimal `json:"feeRate,omitempty"`
	ExcludedDates *[]string        `json:"excludedDates,omitempty"`
}

// ExecutePlanRequest selects the execution kind for a manual trigger.
type ExecutePlanRequest struct {
	ExecutionKind string `json:"executionKind,omitempty"`
}

// BackfillRequest asks the backfill generator to synthesize the historical
// operations a plan would have produced up to EndDate.
type BackfillRequest struct {
	EndDate       string   `json:"endDate"`
	ExcludedDates []string `json:"excludedDates,omitempty"`
}
