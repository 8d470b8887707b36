package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// ComputeShares converts an invested amount into a share count at the given
// price: (amount - fee) / price, rounded to 2 decimal places half-up. This is
// the single point where amounts become quantities; monetary totals elsewhere
// accumulate at full precision and are only rounded for display.
func ComputeShares(amount, fee, price decimal.Decimal) decimal.Decimal {
	return amount.Sub(fee).Div(price).Round(2)
}

// Today returns the current date truncated to midnight UTC.
func Today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// DateOnly truncates a timestamp to midnight UTC.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
