package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"assetledger/internal/api/request"
	"assetledger/internal/apperrors"
	"assetledger/internal/model"
	"assetledger/internal/repository"
	"assetledger/internal/service"
	"assetledger/internal/testutil"
)

func setupOperationService(t *testing.T) (*service.OperationService, *sql.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return testutil.NewTestOperationService(t, db), db
}

func decPtr(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d := testutil.Dec(t, s)
	return &d
}

func TestOperationService_RecordOperation(t *testing.T) {
	t.Run("operation with a known price confirms and applies immediately", func(t *testing.T) {
		os, db := setupOperationService(t)

		testutil.InsertPrice(t, db, "005827", "2024-03-01", "9.9")

		fee := testutil.Dec(t, "10")
		op, err := os.RecordOperation(context.Background(), request.CreateOperationRequest{
			Date:      "2024-03-01",
			Platform:  "alipay",
			AssetType: "fund",
			Symbol:    "005827",
			Type:      model.OperationBuy,
			Amount:    testutil.Dec(t, "1000"),
			Currency:  "CNY",
			Fee:       &fee,
		})
		if err != nil {
			t.Fatalf("Failed to record operation: %v", err)
		}

		if op.Status != model.StatusProcessed {
			t.Errorf("Expected processed status, got %s", op.Status)
		}
		// (1000 - 10) / 9.9 = 100 exactly after two-decimal rounding.
		if !op.Shares.Decimal.Equal(testutil.Dec(t, "100")) {
			t.Errorf("Expected 100 shares, got %s", op.Shares.Decimal)
		}

		positions, err := testutil.NewTestPositionService(t, db).GetPositions(model.PositionFilter{})
		if err != nil {
			t.Fatalf("Failed to get positions: %v", err)
		}
		if len(positions) != 1 || !positions[0].Shares.Equal(testutil.Dec(t, "100")) {
			t.Errorf("Expected the buy applied to its position")
		}
	})

	t.Run("share quantity rounds half up to two decimals", func(t *testing.T) {
		os, db := setupOperationService(t)

		testutil.InsertPrice(t, db, "005827", "2024-03-01", "3")

		op, err := os.RecordOperation(context.Background(), request.CreateOperationRequest{
			Date:      "2024-03-01",
			Platform:  "alipay",
			AssetType: "fund",
			Symbol:    "005827",
			Type:      model.OperationBuy,
			Amount:    testutil.Dec(t, "100"),
			Currency:  "CNY",
		})
		if err != nil {
			t.Fatalf("Failed to record operation: %v", err)
		}

		// 100 / 3 = 33.333... rounds to 33.33.
		if !op.Shares.Decimal.Equal(testutil.Dec(t, "33.33")) {
			t.Errorf("Expected 33.33 shares, got %s", op.Shares.Decimal)
		}
	})

	t.Run("operation without a price stays pending", func(t *testing.T) {
		os, db := setupOperationService(t)

		op, err := os.RecordOperation(context.Background(), request.CreateOperationRequest{
			Date:      "2024-03-01",
			Platform:  "alipay",
			AssetType: "fund",
			Symbol:    "005827",
			Type:      model.OperationBuy,
			Amount:    testutil.Dec(t, "1000"),
			Currency:  "CNY",
		})
		if err != nil {
			t.Fatalf("Failed to record operation: %v", err)
		}

		if op.Status != model.StatusPending {
			t.Errorf("Expected pending status, got %s", op.Status)
		}
		if op.Shares.Valid {
			t.Error("Expected no share quantity on a pending operation")
		}

		positions, err := testutil.NewTestPositionService(t, db).GetPositions(model.PositionFilter{})
		if err != nil {
			t.Fatalf("Failed to get positions: %v", err)
		}
		if len(positions) != 0 {
			t.Errorf("Expected no position impact from a pending operation")
		}
	})

	t.Run("explicit price overrides the store", func(t *testing.T) {
		os, db := setupOperationService(t)

		testutil.InsertPrice(t, db, "005827", "2024-03-01", "10")

		op, err := os.RecordOperation(context.Background(), request.CreateOperationRequest{
			Date:          "2024-03-01",
			Platform:      "alipay",
			AssetType:     "fund",
			Symbol:        "005827",
			Type:          model.OperationBuy,
			Amount:        testutil.Dec(t, "1000"),
			Currency:      "CNY",
			PricePerShare: decPtr(t, "8"),
		})
		if err != nil {
			t.Fatalf("Failed to record operation: %v", err)
		}

		if !op.PricePerShare.Decimal.Equal(testutil.Dec(t, "8")) {
			t.Errorf("Expected explicit price 8, got %s", op.PricePerShare.Decimal)
		}
		if !op.Shares.Decimal.Equal(testutil.Dec(t, "125")) {
			t.Errorf("Expected 125 shares, got %s", op.Shares.Decimal)
		}
	})

	t.Run("dividend confirms without quantity or position impact", func(t *testing.T) {
		os, _ := setupOperationService(t)

		op, err := os.RecordOperation(context.Background(), request.CreateOperationRequest{
			Date:      "2024-03-01",
			Platform:  "alipay",
			AssetType: "fund",
			Symbol:    "005827",
			Type:      model.OperationDividend,
			Amount:    testutil.Dec(t, "37.5"),
			Currency:  "CNY",
		})
		if err != nil {
			t.Fatalf("Failed to record dividend: %v", err)
		}

		if op.Status != model.StatusConfirmed {
			t.Errorf("Expected confirmed status, got %s", op.Status)
		}
		if op.Shares.Valid {
			t.Error("Expected no share quantity on a dividend")
		}
	})

	t.Run("amount too small to buy a single rounded share is rejected", func(t *testing.T) {
		os, db := setupOperationService(t)

		testutil.InsertPrice(t, db, "005827", "2024-03-01", "10")

		// 0.01 / 10 rounds to 0.00 shares; applying it would corrupt the
		// bucket's average cost.
		_, err := os.RecordOperation(context.Background(), request.CreateOperationRequest{
			Date:      "2024-03-01",
			Platform:  "alipay",
			AssetType: "fund",
			Symbol:    "005827",
			Type:      model.OperationBuy,
			Amount:    testutil.Dec(t, "0.01"),
			Currency:  "CNY",
		})
		if !errors.Is(err, apperrors.ErrInvalidShareQuantity) {
			t.Fatalf("Expected ErrInvalidShareQuantity, got %v", err)
		}

		ops, err := os.GetOperations(repository.OperationFilter{})
		if err != nil {
			t.Fatalf("Failed to list operations: %v", err)
		}
		if len(ops) != 0 {
			t.Errorf("Expected no ledger entry, got %d", len(ops))
		}
		positions, err := testutil.NewTestPositionService(t, db).GetPositions(model.PositionFilter{})
		if err != nil {
			t.Fatalf("Failed to get positions: %v", err)
		}
		if len(positions) != 0 {
			t.Errorf("Expected no position impact, got %d positions", len(positions))
		}
	})

	t.Run("fee exceeding the amount never yields negative shares", func(t *testing.T) {
		os, db := setupOperationService(t)

		op, err := os.RecordOperation(context.Background(), request.CreateOperationRequest{
			Date:          "2024-03-01",
			Platform:      "alipay",
			AssetType:     "fund",
			Symbol:        "005827",
			Type:          model.OperationBuy,
			Amount:        testutil.Dec(t, "5"),
			Currency:      "CNY",
			Fee:           decPtr(t, "100"),
			PricePerShare: decPtr(t, "10"),
		})
		if !errors.Is(err, apperrors.ErrInvalidShareQuantity) {
			t.Fatalf("Expected ErrInvalidShareQuantity, got %v (op %+v)", err, op)
		}

		positions, err := testutil.NewTestPositionService(t, db).GetPositions(model.PositionFilter{})
		if err != nil {
			t.Fatalf("Failed to get positions: %v", err)
		}
		if len(positions) != 0 {
			t.Errorf("Expected no position impact, got %d positions", len(positions))
		}
	})
}

func TestOperationService_ConfirmPending(t *testing.T) {
	t.Run("pending operations confirm once their price arrives", func(t *testing.T) {
		os, db := setupOperationService(t)

		if _, err := os.RecordOperation(context.Background(), request.CreateOperationRequest{
			Date: "2024-03-01", Platform: "alipay", AssetType: "fund", Symbol: "005827",
			Type: model.OperationBuy, Amount: testutil.Dec(t, "1000"), Currency: "CNY",
		}); err != nil {
			t.Fatalf("Failed to record operation: %v", err)
		}

		// No price yet, the sweep is a no-op.
		confirmed, err := os.ConfirmPending(context.Background())
		if err != nil {
			t.Fatalf("Sweep failed: %v", err)
		}
		if confirmed != 0 {
			t.Errorf("Expected 0 confirmed, got %d", confirmed)
		}

		testutil.InsertPrice(t, db, "005827", "2024-03-01", "10")

		confirmed, err = os.ConfirmPending(context.Background())
		if err != nil {
			t.Fatalf("Sweep failed: %v", err)
		}
		if confirmed != 1 {
			t.Errorf("Expected 1 confirmed, got %d", confirmed)
		}

		ops, err := os.GetOperations(repository.OperationFilter{Status: model.StatusProcessed})
		if err != nil {
			t.Fatalf("Failed to list operations: %v", err)
		}
		if len(ops) != 1 {
			t.Fatalf("Expected 1 processed operation, got %d", len(ops))
		}
		if !ops[0].Shares.Decimal.Equal(testutil.Dec(t, "100")) {
			t.Errorf("Expected 100 shares, got %s", ops[0].Shares.Decimal)
		}

		positions, err := testutil.NewTestPositionService(t, db).GetPositions(model.PositionFilter{})
		if err != nil {
			t.Fatalf("Failed to get positions: %v", err)
		}
		if len(positions) != 1 {
			t.Errorf("Expected the confirmed buy applied to its position")
		}
	})

	t.Run("operations whose date still lacks a price are left pending", func(t *testing.T) {
		os, db := setupOperationService(t)

		if _, err := os.RecordOperation(context.Background(), request.CreateOperationRequest{
			Date: "2024-03-01", Platform: "alipay", AssetType: "fund", Symbol: "005827",
			Type: model.OperationBuy, Amount: testutil.Dec(t, "1000"), Currency: "CNY",
		}); err != nil {
			t.Fatalf("Failed to record operation: %v", err)
		}

		// Price exists for a neighbouring day only; exact-date matching must not
		// borrow it.
		testutil.InsertPrice(t, db, "005827", "2024-03-02", "10")

		confirmed, err := os.ConfirmPending(context.Background())
		if err != nil {
			t.Fatalf("Sweep failed: %v", err)
		}
		if confirmed != 0 {
			t.Errorf("Expected 0 confirmed, got %d", confirmed)
		}
	})
}

func TestOperationService_UpdateOperation(t *testing.T) {
	t.Run("patch recomputes shares from the new amount", func(t *testing.T) {
		os, db := setupOperationService(t)

		op := testutil.NewOperation().WithAmount("1000").Priced("10").Build(t, db)

		updated, err := os.UpdateOperation(context.Background(), op.ID, request.UpdateOperationRequest{
			Amount: decPtr(t, "500"),
		})
		if err != nil {
			t.Fatalf("Failed to update operation: %v", err)
		}

		if !updated.Amount.Equal(testutil.Dec(t, "500")) {
			t.Errorf("Expected amount 500, got %s", updated.Amount)
		}
		if !updated.Shares.Decimal.Equal(testutil.Dec(t, "50")) {
			t.Errorf("Expected 50 shares, got %s", updated.Shares.Decimal)
		}
	})
}
