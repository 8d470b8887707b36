package validation

import (
	"strings"
	"time"

	"assetledger/internal/api/request"
)

// ValidateUpsertPrice validates a price ingestion request.
//
// Required fields:
//   - symbol: Must be non-empty
//   - date: Must be in YYYY-MM-DD format
//   - price: Must be positive
func ValidateUpsertPrice(req request.UpsertPriceRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Symbol) == "" {
		errors["symbol"] = "symbol is required"
	}

	if strings.TrimSpace(req.Date) == "" {
		errors["date"] = "date is required"
	} else if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		errors["date"] = err.Error()
	}

	if !req.Price.IsPositive() {
		errors["price"] = "price must be positive"
	}

	if req.AccumulatedPrice != nil && !req.AccumulatedPrice.IsPositive() {
		errors["accumulatedPrice"] = "accumulatedPrice must be positive"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}
