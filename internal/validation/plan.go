package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"assetledger/internal/api/request"
)

// ValidFrequency contains the allowed plan frequency values.
var ValidFrequency = map[string]bool{
	"daily": true, "weekly": true, "monthly": true, "custom": true,
}

// ValidatePlanCreate validates a plan creation request.
//
// Required fields:
//   - platform, symbol, currency: Must be non-empty
//   - amount: Must be positive
//   - frequency: Must be one of: daily, weekly, monthly, custom
//   - startDate: Must be in YYYY-MM-DD format
//   - intervalDays: Must be positive when frequency is custom
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidatePlanCreate(req request.CreatePlanRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Platform) == "" {
		errors["platform"] = "platform is required"
	}
	if strings.TrimSpace(req.Symbol) == "" {
		errors["symbol"] = "symbol is required"
	}
	if strings.TrimSpace(req.Currency) == "" {
		errors["currency"] = "currency is required"
	}

	if !req.Amount.IsPositive() {
		errors["amount"] = "amount must be positive"
	}

	if strings.TrimSpace(req.Frequency) == "" {
		errors["frequency"] = "frequency is required"
	} else if !ValidFrequency[req.Frequency] {
		errors["frequency"] = fmt.Sprintf("invalid frequency: %s", req.Frequency)
	} else if req.Frequency == "custom" && req.IntervalDays < 1 {
		errors["intervalDays"] = "intervalDays must be positive for custom frequency"
	}

	if strings.TrimSpace(req.StartDate) == "" {
		errors["startDate"] = "startDate is required"
	} else if _, err := time.Parse("2006-01-02", req.StartDate); err != nil {
		errors["startDate"] = err.Error()
	}

	if req.EndDate != nil {
		if _, err := time.Parse("2006-01-02", *req.EndDate); err != nil {
			errors["endDate"] = err.Error()
		}
	}

	validateSmartFields(req.SmartEnabled, req.BaseAmount, req.MaxAmount, req.IncreaseRate, errors)

	if req.FeeRate != nil {
		if req.FeeRate.IsNegative() {
			errors["feeRate"] = "feeRate cannot be negative"
		} else if req.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			errors["feeRate"] = "feeRate must be less than 1"
		}
	}

	for _, d := range req.ExcludedDates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			errors["excludedDates"] = fmt.Sprintf("invalid date: %s", d)
			break
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

// ValidatePlanUpdate validates a plan update request.
// All fields are optional, but if provided, they must meet the same constraints as create.
func ValidatePlanUpdate(req request.UpdatePlanRequest) error {
	errors := make(map[string]string)

	if req.Amount != nil && !req.Amount.IsPositive() {
		errors["amount"] = "amount must be positive"
	}
	if req.Frequency != nil && !ValidFrequency[*req.Frequency] {
		errors["frequency"] = fmt.Sprintf("invalid frequency: %s", *req.Frequency)
	}
	if req.IntervalDays != nil && *req.IntervalDays < 1 {
		errors["intervalDays"] = "intervalDays must be positive"
	}
	if req.StartDate != nil {
		if _, err := time.Parse("2006-01-02", *req.StartDate); err != nil {
			errors["startDate"] = err.Error()
		}
	}
	if req.EndDate != nil && *req.EndDate != "" {
		if _, err := time.Parse("2006-01-02", *req.EndDate); err != nil {
			errors["endDate"] = err.Error()
		}
	}
	if req.FeeRate != nil {
		if req.FeeRate.IsNegative() {
			errors["feeRate"] = "feeRate cannot be negative"
		} else if req.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			errors["feeRate"] = "feeRate must be less than 1"
		}
	}
	if req.ExcludedDates != nil {
		for _, d := range *req.ExcludedDates {
			if _, err := time.Parse("2006-01-02", d); err != nil {
				errors["excludedDates"] = fmt.Sprintf("invalid date: %s", d)
				break
			}
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

func validateSmartFields(enabled bool, base, max, increase *decimal.Decimal, errors map[string]string) {
	if !enabled {
		return
	}
	if base != nil && !base.IsPositive() {
		errors["baseAmount"] = "baseAmount must be positive"
	}
	if max != nil && !max.IsPositive() {
		errors["maxAmount"] = "maxAmount must be positive"
	}
	if base != nil && max != nil && max.LessThan(*base) {
		errors["maxAmount"] = "maxAmount must not be below baseAmount"
	}
	if increase != nil && increase.IsNegative() {
		errors["increaseRate"] = "increaseRate cannot be negative"
	}
}

// ValidateBackfill validates a backfill request.
func ValidateBackfill(req request.BackfillRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.EndDate) == "" {
		errors["endDate"] = "endDate is required"
	} else if _, err := time.Parse("2006-01-02", req.EndDate); err != nil {
		errors["endDate"] = err.Error()
	}

	for _, d := range req.ExcludedDates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			errors["excludedDates"] = fmt.Sprintf("invalid date: %s", d)
			break
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}
