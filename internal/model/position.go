package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the derived holding for one (platform, symbol, currency) bucket.
// It is owned exclusively by the position projector: rows are created, updated
// and deleted only as a side effect of ledger mutations, never edited directly.
type Position struct {
	ID            string          `json:"id"`
	Platform      string          `json:"platform"`
	Symbol        string          `json:"symbol"`
	Currency      string          `json:"currency"`
	Shares        decimal.Decimal `json:"shares"`
	AvgCost       decimal.Decimal `json:"avgCost"`
	TotalInvested decimal.Decimal `json:"totalInvested"`
	UpdatedAt     time.Time       `json:"updatedAt"`

	// Valuation fields, recomputed from the latest known price on every read.
	LatestPrice  decimal.NullDecimal `json:"latestPrice"`
	CurrentValue decimal.Decimal     `json:"currentValue"`
	TotalProfit  decimal.Decimal     `json:"totalProfit"`
	ProfitRate   decimal.Decimal     `json:"profitRate"`
}

// PositionSummary aggregates all positions for the summary endpoint.
type PositionSummary struct {
	TotalInvested decimal.Decimal            `json:"totalInvested"`
	TotalValue    decimal.Decimal            `json:"totalValue"`
	TotalProfit   decimal.Decimal            `json:"totalProfit"`
	ProfitRate    decimal.Decimal            `json:"profitRate"`
	PositionCount int                        `json:"positionCount"`
	ByCurrency    map[string]decimal.Decimal `json:"byCurrency"`
}

// PositionFilter narrows position listings. Empty fields match everything.
type PositionFilter struct {
	Platform string
	Symbol   string
	Currency string
}
