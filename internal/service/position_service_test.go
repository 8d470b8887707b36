package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"assetledger/internal/apperrors"
	"assetledger/internal/model"
	"assetledger/internal/service"
	"assetledger/internal/testutil"
)

func setupPositionService(t *testing.T) (*service.PositionService, *sql.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return testutil.NewTestPositionService(t, db), db
}

func applyOp(t *testing.T, db *sql.DB, ps *service.PositionService, op model.Operation) {
	t.Helper()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	if err := ps.ApplyTx(context.Background(), tx, op); err != nil {
		tx.Rollback()
		t.Fatalf("Failed to apply operation: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
}

func TestPositionService_ApplyBuy(t *testing.T) {
	t.Run("two buys accumulate shares and recompute average cost", func(t *testing.T) {
		ps, db := setupPositionService(t)

		// WHY: the canonical averaging case. 1000 at 10 gives 100 shares,
		// 1000 at 8 gives 125 shares; together 225 shares for 2000 invested.
		op1 := testutil.NewOperation().WithDate("2024-01-02").WithAmount("1000").Priced("10").Build(t, db)
		op2 := testutil.NewOperation().WithDate("2024-01-09").WithAmount("1000").Priced("8").Build(t, db)

		applyOp(t, db, ps, op1)
		applyOp(t, db, ps, op2)

		positions, err := ps.GetPositions(model.PositionFilter{})
		if err != nil {
			t.Fatalf("Failed to get positions: %v", err)
		}
		if len(positions) != 1 {
			t.Fatalf("Expected 1 position, got %d", len(positions))
		}

		p := positions[0]
		if !p.Shares.Equal(testutil.Dec(t, "225")) {
			t.Errorf("Expected 225 shares, got %s", p.Shares)
		}
		if !p.TotalInvested.Equal(testutil.Dec(t, "2000")) {
			t.Errorf("Expected 2000 invested, got %s", p.TotalInvested)
		}
		if p.AvgCost.StringFixed(4) != "8.8889" {
			t.Errorf("Expected avg cost 8.8889, got %s", p.AvgCost.StringFixed(4))
		}
	})

	t.Run("buys in different buckets stay separate", func(t *testing.T) {
		ps, db := setupPositionService(t)

		op1 := testutil.NewOperation().WithBucket("alipay", "005827", "CNY").WithAmount("1000").Priced("10").Build(t, db)
		op2 := testutil.NewOperation().WithBucket("futu", "005827", "CNY").WithAmount("500").Priced("10").Build(t, db)
		op3 := testutil.NewOperation().WithBucket("alipay", "005827", "HKD").WithAmount("300").Priced("10").Build(t, db)

		applyOp(t, db, ps, op1)
		applyOp(t, db, ps, op2)
		applyOp(t, db, ps, op3)

		positions, err := ps.GetPositions(model.PositionFilter{})
		if err != nil {
			t.Fatalf("Failed to get positions: %v", err)
		}
		if len(positions) != 3 {
			t.Errorf("Expected 3 positions, got %d", len(positions))
		}

		filtered, err := ps.GetPositions(model.PositionFilter{Platform: "alipay", Currency: "CNY"})
		if err != nil {
			t.Fatalf("Failed to get filtered positions: %v", err)
		}
		if len(filtered) != 1 {
			t.Errorf("Expected 1 filtered position, got %d", len(filtered))
		}
	})
}

func TestPositionService_ApplySell(t *testing.T) {
	t.Run("sell reduces cost basis proportionally", func(t *testing.T) {
		ps, db := setupPositionService(t)

		buy := testutil.NewOperation().WithDate("2024-01-02").WithAmount("1000").Priced("10").Build(t, db)
		applyOp(t, db, ps, buy)

		// Sell half the position. Invested should halve too, avg cost unchanged.
		sell := testutil.NewOperation().WithDate("2024-01-09").WithType(model.OperationSell).
			WithAmount("550").Priced("11").Build(t, db)
		applyOp(t, db, ps, sell)

		positions, err := ps.GetPositions(model.PositionFilter{})
		if err != nil {
			t.Fatalf("Failed to get positions: %v", err)
		}
		if len(positions) != 1 {
			t.Fatalf("Expected 1 position, got %d", len(positions))
		}

		p := positions[0]
		if !p.Shares.Equal(testutil.Dec(t, "50")) {
			t.Errorf("Expected 50 shares, got %s", p.Shares)
		}
		if !p.TotalInvested.Equal(testutil.Dec(t, "500")) {
			t.Errorf("Expected 500 invested, got %s", p.TotalInvested)
		}
		if !p.AvgCost.Equal(testutil.Dec(t, "10")) {
			t.Errorf("Expected avg cost 10, got %s", p.AvgCost)
		}
	})

	t.Run("selling the full position deletes the bucket", func(t *testing.T) {
		ps, db := setupPositionService(t)

		buy := testutil.NewOperation().WithAmount("1000").Priced("10").Build(t, db)
		applyOp(t, db, ps, buy)

		sell := testutil.NewOperation().WithType(model.OperationSell).WithAmount("1000").Priced("10").Build(t, db)
		applyOp(t, db, ps, sell)

		positions, err := ps.GetPositions(model.PositionFilter{})
		if err != nil {
			t.Fatalf("Failed to get positions: %v", err)
		}
		if len(positions) != 0 {
			t.Errorf("Expected no positions after full sell, got %d", len(positions))
		}
	})

	t.Run("overselling fails and leaves the bucket untouched", func(t *testing.T) {
		ps, db := setupPositionService(t)

		buy := testutil.NewOperation().WithAmount("1000").Priced("10").Build(t, db)
		applyOp(t, db, ps, buy)

		oversell := testutil.NewOperation().WithType(model.OperationSell).WithAmount("2000").Priced("10").Build(t, db)

		tx, err := db.Begin()
		if err != nil {
			t.Fatalf("Failed to begin transaction: %v", err)
		}
		err = ps.ApplyTx(context.Background(), tx, oversell)
		tx.Rollback()

		if !errors.Is(err, apperrors.ErrInsufficientShares) {
			t.Errorf("Expected ErrInsufficientShares, got %v", err)
		}

		positions, err := ps.GetPositions(model.PositionFilter{})
		if err != nil {
			t.Fatalf("Failed to get positions: %v", err)
		}
		if len(positions) != 1 || !positions[0].Shares.Equal(testutil.Dec(t, "100")) {
			t.Errorf("Expected position unchanged at 100 shares")
		}
	})

	t.Run("sell without an open position fails outside rebuild", func(t *testing.T) {
		ps, db := setupPositionService(t)

		sell := testutil.NewOperation().WithType(model.OperationSell).WithAmount("100").Priced("10").Build(t, db)

		tx, err := db.Begin()
		if err != nil {
			t.Fatalf("Failed to begin transaction: %v", err)
		}
		err = ps.ApplyTx(context.Background(), tx, sell)
		tx.Rollback()

		if !errors.Is(err, apperrors.ErrInsufficientShares) {
			t.Errorf("Expected ErrInsufficientShares, got %v", err)
		}
	})
}

func TestPositionService_Dividend(t *testing.T) {
	t.Run("dividend does not move the position", func(t *testing.T) {
		ps, db := setupPositionService(t)

		buy := testutil.NewOperation().WithAmount("1000").Priced("10").Build(t, db)
		applyOp(t, db, ps, buy)

		dividend := testutil.NewOperation().WithType(model.OperationDividend).WithAmount("37.5").Priced("10").Build(t, db)
		applyOp(t, db, ps, dividend)

		positions, err := ps.GetPositions(model.PositionFilter{})
		if err != nil {
			t.Fatalf("Failed to get positions: %v", err)
		}
		if len(positions) != 1 {
			t.Fatalf("Expected 1 position, got %d", len(positions))
		}
		if !positions[0].Shares.Equal(testutil.Dec(t, "100")) {
			t.Errorf("Expected 100 shares unchanged, got %s", positions[0].Shares)
		}
		if !positions[0].TotalInvested.Equal(testutil.Dec(t, "1000")) {
			t.Errorf("Expected 1000 invested unchanged, got %s", positions[0].TotalInvested)
		}
	})
}

func TestPositionService_RebuildAll(t *testing.T) {
	t.Run("rebuild reproduces the incrementally built state", func(t *testing.T) {
		ps, db := setupPositionService(t)

		ops := []model.Operation{
			testutil.NewOperation().WithDate("2024-01-02").WithAmount("1000").Priced("10").Build(t, db),
			testutil.NewOperation().WithDate("2024-01-09").WithAmount("1000").Priced("8").Build(t, db),
			testutil.NewOperation().WithDate("2024-01-16").WithType(model.OperationSell).WithAmount("450").Priced("9").Build(t, db),
		}
		for _, op := range ops {
			applyOp(t, db, ps, op)
		}

		before, err := ps.GetPositions(model.PositionFilter{})
		if err != nil {
			t.Fatalf("Failed to get positions: %v", err)
		}

		processed, err := ps.RebuildAll(context.Background())
		if err != nil {
			t.Fatalf("Rebuild failed: %v", err)
		}
		if processed != 3 {
			t.Errorf("Expected 3 operations replayed, got %d", processed)
		}

		after, err := ps.GetPositions(model.PositionFilter{})
		if err != nil {
			t.Fatalf("Failed to get positions: %v", err)
		}

		if len(before) != len(after) {
			t.Fatalf("Position count changed: %d before, %d after", len(before), len(after))
		}
		for i := range before {
			if !before[i].Shares.Equal(after[i].Shares) {
				t.Errorf("Shares changed: %s before, %s after", before[i].Shares, after[i].Shares)
			}
			if !before[i].TotalInvested.Equal(after[i].TotalInvested) {
				t.Errorf("Invested changed: %s before, %s after", before[i].TotalInvested, after[i].TotalInvested)
			}
		}
	})

	t.Run("rebuild is idempotent", func(t *testing.T) {
		ps, db := setupPositionService(t)

		testutil.NewOperation().WithDate("2024-01-02").WithAmount("1000").Priced("10").Build(t, db)
		testutil.NewOperation().WithDate("2024-01-09").WithAmount("500").Priced("8").Build(t, db)

		if _, err := ps.RebuildAll(context.Background()); err != nil {
			t.Fatalf("First rebuild failed: %v", err)
		}
		first, err := ps.GetPositions(model.PositionFilter{})
		if err != nil {
			t.Fatalf("Failed to get positions: %v", err)
		}

		if _, err := ps.RebuildAll(context.Background()); err != nil {
			t.Fatalf("Second rebuild failed: %v", err)
		}
		second, err := ps.GetPositions(model.PositionFilter{})
		if err != nil {
			t.Fatalf("Failed to get positions: %v", err)
		}

		if len(first) != 1 || len(second) != 1 {
			t.Fatalf("Expected 1 position after each rebuild")
		}
		if !first[0].Shares.Equal(second[0].Shares) || !first[0].TotalInvested.Equal(second[0].TotalInvested) {
			t.Errorf("Rebuild not idempotent: %s/%s vs %s/%s",
				first[0].Shares, first[0].TotalInvested, second[0].Shares, second[0].TotalInvested)
		}
	})

	t.Run("rebuild skips pending operations", func(t *testing.T) {
		ps, db := setupPositionService(t)

		testutil.NewOperation().WithDate("2024-01-02").WithAmount("1000").Priced("10").Build(t, db)
		testutil.NewOperation().WithDate("2024-01-09").WithAmount("1000").Build(t, db) // pending, no price

		processed, err := ps.RebuildAll(context.Background())
		if err != nil {
			t.Fatalf("Rebuild failed: %v", err)
		}
		if processed != 1 {
			t.Errorf("Expected 1 operation replayed, got %d", processed)
		}

		positions, err := ps.GetPositions(model.PositionFilter{})
		if err != nil {
			t.Fatalf("Failed to get positions: %v", err)
		}
		if len(positions) != 1 || !positions[0].Shares.Equal(testutil.Dec(t, "100")) {
			t.Errorf("Expected 100 shares from the confirmed buy only")
		}
	})

	t.Run("rebuild clamps an oversized sell instead of failing", func(t *testing.T) {
		ps, db := setupPositionService(t)

		// WHY: after an out-of-band ledger edit the history may briefly
		// oversell. Replay must complete deterministically regardless.
		testutil.NewOperation().WithDate("2024-01-02").WithAmount("500").Priced("10").Build(t, db)
		testutil.NewOperation().WithDate("2024-01-09").WithType(model.OperationSell).WithAmount("1000").Priced("10").Build(t, db)

		processed, err := ps.RebuildAll(context.Background())
		if err != nil {
			t.Fatalf("Rebuild failed: %v", err)
		}
		if processed != 2 {
			t.Errorf("Expected 2 operations replayed, got %d", processed)
		}

		positions, err := ps.GetPositions(model.PositionFilter{})
		if err != nil {
			t.Fatalf("Failed to get positions: %v", err)
		}
		if len(positions) != 0 {
			t.Errorf("Expected position clamped to zero and deleted, got %d positions", len(positions))
		}
	})

	t.Run("rebuild skips a buy whose quantity rounded to zero", func(t *testing.T) {
		ps, db := setupPositionService(t)

		// A 0.01 buy at price 10 stores 0.00 shares; replay must skip it
		// rather than divide the cost basis by zero.
		testutil.NewOperation().WithDate("2024-01-02").WithAmount("0.01").Priced("10").Build(t, db)
		testutil.NewOperation().WithDate("2024-01-09").WithAmount("1000").Priced("10").Build(t, db)

		processed, err := ps.RebuildAll(context.Background())
		if err != nil {
			t.Fatalf("Rebuild failed: %v", err)
		}
		if processed != 2 {
			t.Errorf("Expected 2 operations replayed, got %d", processed)
		}

		positions, err := ps.GetPositions(model.PositionFilter{})
		if err != nil {
			t.Fatalf("Failed to get positions: %v", err)
		}
		if len(positions) != 1 {
			t.Fatalf("Expected 1 position, got %d", len(positions))
		}
		if !positions[0].Shares.Equal(testutil.Dec(t, "100")) {
			t.Errorf("Expected 100 shares from the valid buy only, got %s", positions[0].Shares)
		}
		if !positions[0].AvgCost.Equal(testutil.Dec(t, "10")) {
			t.Errorf("Expected average cost 10, got %s", positions[0].AvgCost)
		}
	})
}

func TestPositionService_GetSummary(t *testing.T) {
	t.Run("summary aggregates across currencies", func(t *testing.T) {
		ps, db := setupPositionService(t)

		op1 := testutil.NewOperation().WithBucket("alipay", "005827", "CNY").WithAmount("1000").Priced("10").Build(t, db)
		op2 := testutil.NewOperation().WithBucket("futu", "0700", "HKD").WithAmount("2000").Priced("400").Build(t, db)
		applyOp(t, db, ps, op1)
		applyOp(t, db, ps, op2)

		testutil.InsertPrice(t, db, "005827", "2024-01-02", "12")
		testutil.InsertPrice(t, db, "0700", "2024-01-02", "400")

		summary, err := ps.GetSummary()
		if err != nil {
			t.Fatalf("Failed to get summary: %v", err)
		}

		if summary.PositionCount != 2 {
			t.Errorf("Expected 2 positions, got %d", summary.PositionCount)
		}
		if !summary.TotalInvested.Equal(testutil.Dec(t, "3000")) {
			t.Errorf("Expected 3000 invested, got %s", summary.TotalInvested)
		}
		// 100 shares at 12 plus 5 shares at 400.
		if !summary.TotalValue.Equal(testutil.Dec(t, "3200")) {
			t.Errorf("Expected total value 3200, got %s", summary.TotalValue)
		}
		if !summary.ByCurrency["CNY"].Equal(testutil.Dec(t, "1200")) {
			t.Errorf("Expected CNY value 1200, got %s", summary.ByCurrency["CNY"])
		}
		if !summary.ByCurrency["HKD"].Equal(testutil.Dec(t, "2000")) {
			t.Errorf("Expected HKD value 2000, got %s", summary.ByCurrency["HKD"])
		}
	})

	t.Run("position without a price values at zero", func(t *testing.T) {
		ps, db := setupPositionService(t)

		op := testutil.NewOperation().WithAmount("1000").Priced("10").Build(t, db)
		applyOp(t, db, ps, op)

		positions, err := ps.GetPositions(model.PositionFilter{})
		if err != nil {
			t.Fatalf("Failed to get positions: %v", err)
		}
		if positions[0].LatestPrice.Valid {
			t.Error("Expected no latest price")
		}
		if !positions[0].CurrentValue.IsZero() {
			t.Errorf("Expected zero value, got %s", positions[0].CurrentValue)
		}
	})
}
