package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"assetledger/internal/model"
	"assetledger/internal/repository"
)

// MakeID returns a fresh UUID string for test entities.
func MakeID() string {
	return uuid.New().String()
}

// Date parses a YYYY-MM-DD string, failing the test on malformed input.
func Date(t *testing.T, s string) time.Time {
	t.Helper()

	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("Failed to parse date %q: %v", s, err)
	}
	return d.UTC()
}

// Dec builds a decimal from a string, failing the test on malformed input.
func Dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()

	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("Failed to parse decimal %q: %v", s, err)
	}
	return d
}

// OperationBuilder provides a fluent interface for creating test operations.
//
// Example usage:
//
//	op := testutil.NewOperation().
//	    WithDate("2024-03-01").
//	    WithAmount("1000").
//	    Priced("9.9").
//	    Build(t, db)
type OperationBuilder struct {
	op model.Operation
}

// NewOperation creates an OperationBuilder with sensible defaults: a confirmed
// manual buy of 1000 CNY in the default bucket, dated 2024-01-02.
func NewOperation() *OperationBuilder {
	return &OperationBuilder{
		op: model.Operation{
			ID:            MakeID(),
			Date:          time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Platform:      "alipay",
			AssetType:     "fund",
			Symbol:        "005827",
			Type:          model.OperationBuy,
			Amount:        decimal.NewFromInt(1000),
			Currency:      "CNY",
			Fee:           decimal.Zero,
			Status:        model.StatusPending,
			ExecutionKind: model.ExecutionManual,
		},
	}
}

// WithDate sets the operation date from a YYYY-MM-DD string.
func (b *OperationBuilder) WithDate(s string) *OperationBuilder {
	d, _ := time.Parse("2006-01-02", s)
	b.op.Date = d.UTC()
	return b
}

// WithBucket sets the (platform, symbol, currency) bucket.
func (b *OperationBuilder) WithBucket(platform, symbol, currency string) *OperationBuilder {
	b.op.Platform = platform
	b.op.Symbol = symbol
	b.op.Currency = currency
	return b
}

// WithSymbol sets the symbol only.
func (b *OperationBuilder) WithSymbol(symbol string) *OperationBuilder {
	b.op.Symbol = symbol
	return b
}

// WithType sets the operation type.
func (b *OperationBuilder) WithType(opType string) *OperationBuilder {
	b.op.Type = opType
	return b
}

// WithAmount sets the cash amount from a decimal string.
func (b *OperationBuilder) WithAmount(s string) *OperationBuilder {
	b.op.Amount = decimal.RequireFromString(s)
	return b
}

// WithFee sets the fee from a decimal string.
func (b *OperationBuilder) WithFee(s string) *OperationBuilder {
	b.op.Fee = decimal.RequireFromString(s)
	return b
}

// WithPlanID links the operation to a plan.
func (b *OperationBuilder) WithPlanID(planID string) *OperationBuilder {
	b.op.PlanID = planID
	return b
}

// WithStatus sets the ledger status.
func (b *OperationBuilder) WithStatus(status string) *OperationBuilder {
	b.op.Status = status
	return b
}

// WithExecutionKind sets what produced the operation.
func (b *OperationBuilder) WithExecutionKind(kind string) *OperationBuilder {
	b.op.ExecutionKind = kind
	return b
}

// Priced confirms the operation at the given price per share, computing the
// share quantity with the standard rounding.
func (b *OperationBuilder) Priced(price string) *OperationBuilder {
	p := decimal.RequireFromString(price)
	shares := b.op.Amount.Sub(b.op.Fee).Div(p).Round(2)

	b.op.PricePerShare = decimal.NullDecimal{Decimal: p, Valid: true}
	b.op.Shares = decimal.NullDecimal{Decimal: shares, Valid: true}
	b.op.Status = model.StatusConfirmed
	return b
}

// Build inserts the operation into the database and returns it.
func (b *OperationBuilder) Build(t *testing.T, db *sql.DB) model.Operation {
	t.Helper()

	repo := repository.NewOperationRepository(db)
	if err := repo.Insert(context.Background(), &b.op); err != nil {
		t.Fatalf("Failed to insert test operation: %v", err)
	}
	return b.op
}

// PlanBuilder provides a fluent interface for creating test plans.
type PlanBuilder struct {
	plan model.Plan
}

// NewPlan creates a PlanBuilder with sensible defaults: an active weekly plan
// of 1000 CNY starting 2024-01-01.
func NewPlan() *PlanBuilder {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &PlanBuilder{
		plan: model.Plan{
			ID:                MakeID(),
			Platform:          "alipay",
			AssetType:         "fund",
			Symbol:            "005827",
			Currency:          "CNY",
			Amount:            decimal.NewFromInt(1000),
			Frequency:         model.FrequencyWeekly,
			StartDate:         start,
			NextExecutionDate: &start,
			Status:            model.PlanActive,
			TotalInvested:     decimal.Zero,
			TotalShares:       decimal.Zero,
			ExcludedDates:     []string{},
		},
	}
}

// WithSymbol sets the symbol.
func (b *PlanBuilder) WithSymbol(symbol string) *PlanBuilder {
	b.plan.Symbol = symbol
	return b
}

// WithAmount sets the per-execution amount from a decimal string.
func (b *PlanBuilder) WithAmount(s string) *PlanBuilder {
	b.plan.Amount = decimal.RequireFromString(s)
	return b
}

// WithFrequency sets the schedule frequency.
func (b *PlanBuilder) WithFrequency(frequency string) *PlanBuilder {
	b.plan.Frequency = frequency
	return b
}

// WithIntervalDays sets the custom-frequency interval.
func (b *PlanBuilder) WithIntervalDays(days int) *PlanBuilder {
	b.plan.IntervalDays = days
	return b
}

// WithStartDate sets the start date (and first execution) from a YYYY-MM-DD string.
func (b *PlanBuilder) WithStartDate(s string) *PlanBuilder {
	d, _ := time.Parse("2006-01-02", s)
	d = d.UTC()
	b.plan.StartDate = d
	b.plan.NextExecutionDate = &d
	return b
}

// WithEndDate sets the end date from a YYYY-MM-DD string.
func (b *PlanBuilder) WithEndDate(s string) *PlanBuilder {
	d, _ := time.Parse("2006-01-02", s)
	d = d.UTC()
	b.plan.EndDate = &d
	return b
}

// WithNextExecutionDate overrides the next execution date.
func (b *PlanBuilder) WithNextExecutionDate(s string) *PlanBuilder {
	d, _ := time.Parse("2006-01-02", s)
	d = d.UTC()
	b.plan.NextExecutionDate = &d
	return b
}

// WithStatus sets the lifecycle status.
func (b *PlanBuilder) WithStatus(status string) *PlanBuilder {
	b.plan.Status = status
	return b
}

// WithFeeRate sets the fee rate from a decimal string.
func (b *PlanBuilder) WithFeeRate(s string) *PlanBuilder {
	b.plan.FeeRate = decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
	return b
}

// WithExcludedDates sets the plan's excluded dates.
func (b *PlanBuilder) WithExcludedDates(dates ...string) *PlanBuilder {
	b.plan.ExcludedDates = dates
	return b
}

// Smart enables smart sizing with the given base, max and increase rate.
func (b *PlanBuilder) Smart(base, max, increaseRate string) *PlanBuilder {
	b.plan.SmartEnabled = true
	b.plan.BaseAmount = decimal.NullDecimal{Decimal: decimal.RequireFromString(base), Valid: true}
	b.plan.MaxAmount = decimal.NullDecimal{Decimal: decimal.RequireFromString(max), Valid: true}
	b.plan.IncreaseRate = decimal.NullDecimal{Decimal: decimal.RequireFromString(increaseRate), Valid: true}
	return b
}

// Build inserts the plan into the database and returns it.
func (b *PlanBuilder) Build(t *testing.T, db *sql.DB) model.Plan {
	t.Helper()

	repo := repository.NewPlanRepository(db)
	if err := repo.Insert(context.Background(), &b.plan); err != nil {
		t.Fatalf("Failed to insert test plan: %v", err)
	}
	return b.plan
}

// InsertPrice writes a price row for (symbol, date) directly through the repository.
func InsertPrice(t *testing.T, db *sql.DB, symbol, date, price string) model.PricePoint {
	t.Helper()

	pp := model.PricePoint{
		Symbol: symbol,
		Date:   Date(t, date),
		Price:  Dec(t, price),
		Source: "test",
	}

	repo := repository.NewPriceRepository(db)
	if err := repo.Upsert(context.Background(), &pp); err != nil {
		t.Fatalf("Failed to insert test price: %v", err)
	}
	return pp
}
