package request

import "github.com/shopspring/decimal"

// UpsertPriceRequest is the payload of the price-ingestion endpoint.
type UpsertPriceRequest struct {
	Symbol           string           `json:"symbol"`
	Date             string           `json:"date"`
	Price            decimal.Decimal  `json:"price"`
	AccumulatedPrice *decimal.Decimal `json:"accumulatedPrice,omitempty"`
	GrowthRate       *decimal.Decimal `json:"growthRate,omitempty"`
	Source           string           `json:"source,omitempty"`
}
