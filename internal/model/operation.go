package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Operation type values.
const (
	OperationBuy      = "buy"
	OperationSell     = "sell"
	OperationDividend = "dividend"
)

// Operation status values. An operation is pending until a price for its date
// is known, confirmed once shares have been computed, and processed once the
// position projector has applied it.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusProcessed = "processed"
)

// Execution kind values describe what produced an operation.
const (
	ExecutionManual     = "manual"
	ExecutionScheduled  = "scheduled"
	ExecutionSmart      = "smart"
	ExecutionHistorical = "historical"
)

// Operation represents a single ledger entry: a buy, sell or dividend against
// one (platform, symbol, currency) bucket. Shares and PricePerShare are both
// set or both unset; a pending operation has neither.
type Operation struct {
	ID            string              `json:"id"`
	Date          time.Time           `json:"date"`
	Platform      string              `json:"platform"`
	AssetType     string              `json:"assetType"`
	Symbol        string              `json:"symbol"`
	Type          string              `json:"type"`
	Amount        decimal.Decimal     `json:"amount"`
	Currency      string              `json:"currency"`
	Shares        decimal.NullDecimal `json:"shares"`
	PricePerShare decimal.NullDecimal `json:"pricePerShare"`
	Fee           decimal.Decimal     `json:"fee"`
	Status        string              `json:"status"`
	PlanID        string              `json:"planId,omitempty"`
	ExecutionKind string              `json:"executionKind"`
	CreatedAt     time.Time           `json:"createdAt,omitempty"`
}

// Priced reports whether the operation carries both shares and a price.
func (o Operation) Priced() bool {
	return o.Shares.Valid && o.PricePerShare.Valid
}
