package request

import "github.com/shopspring/decimal"

// CreateOperationRequest is the payload for recording a new ledger operation.
// PricePerShare is optional: when omitted, the price is looked up in the NAV
// store for the operation date, and the operation stays pending on a miss.
type CreateOperationRequest struct {
	Date          string           `json:"date"`
	Platform      string           `json:"platform"`
	AssetType     string           `json:"assetType"`
	Symbol        string           `json:"symbol"`
	Type          string           `json:"type"`
	Amount        decimal.Decimal  `json:"amount"`
	Currency      string           `json:"currency"`
	Fee           *decimal.Decimal `json:"fee,omitempty"`
	PricePerShare *decimal.Decimal `json:"pricePerShare,omitempty"`
	ExecutionKind string           `json:"executionKind,omitempty"`
}

// UpdateOperationRequest is the typed patch for editing an operation.
// All fields are optional; only provided fields are applied. Any edit through
// this patch requires the caller to trigger a full position rebuild.
type UpdateOperationRequest struct {
	Date          *string          `json:"date,omitempty"`
	Platform      *string          `json:"platform,omitempty"`
	AssetType     *string          `json:"assetType,omitempty"`
	Symbol        *string          `json:"symbol,omitempty"`
	Type          *string          `json:"type,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Currency      *string          `json:"currency,omitempty"`
	Fee           *decimal.Decimal `json:"fee,omitempty"`
	PricePerShare *decimal.Decimal `json:"pricePerShare,omitempty"`
}
