package validation

import (
	"fmt"
	"strings"
	"time"

	"assetledger/internal/api/request"
)

// ValidOperationType contains the allowed operation type values.
var ValidOperationType = map[string]bool{
	"buy": true, "sell": true, "dividend": true,
}

// ValidExecutionKind contains the allowed execution kind values.
var ValidExecutionKind = map[string]bool{
	"manual": true, "scheduled": true, "smart": true, "historical": true,
}

// ValidateCreateOperation validates an operation creation request.
// Checks all required fields and validates their formats and constraints.
//
// Required fields:
//   - date: Must be in YYYY-MM-DD format
//   - platform, symbol, currency: Must be non-empty
//   - type: Must be one of: buy, sell, dividend
//   - amount: Must be positive
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateCreateOperation(req request.CreateOperationRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Date) == "" {
		errors["date"] = "date is required"
	} else if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		errors["date"] = err.Error()
	}

	if strings.TrimSpace(req.Platform) == "" {
		errors["platform"] = "platform is required"
	}
	if strings.TrimSpace(req.Symbol) == "" {
		errors["symbol"] = "symbol is required"
	}
	if strings.TrimSpace(req.Currency) == "" {
		errors["currency"] = "currency is required"
	}

	if strings.TrimSpace(req.Type) == "" {
		errors["type"] = "type is required"
	} else if !ValidOperationType[req.Type] {
		errors["type"] = fmt.Sprintf("invalid type: %s", req.Type)
	}

	if !req.Amount.IsPositive() {
		errors["amount"] = "amount must be positive"
	}

	if req.Fee != nil {
		if req.Fee.IsNegative() {
			errors["fee"] = "fee cannot be negative"
		} else if req.Amount.IsPositive() && req.Fee.GreaterThanOrEqual(req.Amount) {
			errors["fee"] = "fee must be less than amount"
		}
	}
	if req.PricePerShare != nil && !req.PricePerShare.IsPositive() {
		errors["pricePerShare"] = "pricePerShare must be positive"
	}
	if req.ExecutionKind != "" && !ValidExecutionKind[req.ExecutionKind] {
		errors["executionKind"] = fmt.Sprintf("invalid execution kind: %s", req.ExecutionKind)
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

// ValidateUpdateOperation validates an operation update request.
// All fields are optional, but if provided, they must meet the same constraints as create.
func ValidateUpdateOperation(req request.UpdateOperationRequest) error {
	errors := make(map[string]string)

	if req.Date != nil {
		if strings.TrimSpace(*req.Date) == "" {
			errors["date"] = "date is required"
		} else if _, err := time.Parse("2006-01-02", *req.Date); err != nil {
			errors["date"] = err.Error()
		}
	}
	if req.Type != nil {
		if strings.TrimSpace(*req.Type) == "" {
			errors["type"] = "type is required"
		} else if !ValidOperationType[*req.Type] {
			errors["type"] = fmt.Sprintf("invalid type: %s", *req.Type)
		}
	}
	if req.Amount != nil && !req.Amount.IsPositive() {
		errors["amount"] = "amount must be positive"
	}
	if req.Fee != nil {
		if req.Fee.IsNegative() {
			errors["fee"] = "fee cannot be negative"
		} else if req.Amount != nil && req.Amount.IsPositive() && req.Fee.GreaterThanOrEqual(*req.Amount) {
			errors["fee"] = "fee must be less than amount"
		}
	}
	if req.PricePerShare != nil && !req.PricePerShare.IsPositive() {
		errors["pricePerShare"] = "pricePerShare must be positive"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}
