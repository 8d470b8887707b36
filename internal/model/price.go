package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one NAV record: the price of an instrument on a given date.
// Rows are unique per (symbol, date); later writes for the same day overwrite.
type PricePoint struct {
	ID               string              `json:"id"`
	Symbol           string              `json:"symbol"`
	Date             time.Time           `json:"date"`
	Price            decimal.Decimal     `json:"price"`
	AccumulatedPrice decimal.NullDecimal `json:"accumulatedPrice"`
	GrowthRate       decimal.NullDecimal `json:"growthRate"`
	Source           string              `json:"source"`
	CreatedAt        time.Time           `json:"createdAt,omitempty"`
}
