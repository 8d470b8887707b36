package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"assetledger/internal/apperrors"
	"assetledger/internal/repository"
	"assetledger/internal/service"
	"assetledger/internal/testutil"
)

func TestPriceService_Upsert(t *testing.T) {
	t.Run("second write for the same day overwrites the first", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		ps := service.NewPriceService(repository.NewPriceRepository(db))

		date := testutil.Date(t, "2024-03-01")
		if _, err := ps.Upsert(context.Background(), "005827", date, testutil.Dec(t, "10"), service.PriceMeta{Source: "manual"}); err != nil {
			t.Fatalf("Failed to upsert price: %v", err)
		}
		if _, err := ps.Upsert(context.Background(), "005827", date, testutil.Dec(t, "10.5"), service.PriceMeta{Source: "provider"}); err != nil {
			t.Fatalf("Failed to upsert price: %v", err)
		}

		pp, err := ps.PriceOn("005827", date)
		if err != nil {
			t.Fatalf("Failed to read price: %v", err)
		}
		if !pp.Price.Equal(testutil.Dec(t, "10.5")) {
			t.Errorf("Expected overwritten price 10.5, got %s", pp.Price)
		}
		if pp.Source != "provider" {
			t.Errorf("Expected source provider, got %s", pp.Source)
		}

		history, err := ps.History("005827", 10)
		if err != nil {
			t.Fatalf("Failed to read history: %v", err)
		}
		if len(history) != 1 {
			t.Errorf("Expected a single row for the day, got %d", len(history))
		}
	})

	t.Run("timestamps are truncated to the day", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		ps := service.NewPriceService(repository.NewPriceRepository(db))

		noon := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
		if _, err := ps.Upsert(context.Background(), "005827", noon, testutil.Dec(t, "10"), service.PriceMeta{}); err != nil {
			t.Fatalf("Failed to upsert price: %v", err)
		}

		if _, err := ps.PriceOn("005827", testutil.Date(t, "2024-03-01")); err != nil {
			t.Errorf("Expected the midday timestamp stored under its date, got %v", err)
		}
	})
}

func TestPriceService_Latest(t *testing.T) {
	t.Run("returns the newest row and refreshes after an upsert", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		ps := service.NewPriceService(repository.NewPriceRepository(db))

		testutil.InsertPrice(t, db, "005827", "2024-03-01", "10")
		testutil.InsertPrice(t, db, "005827", "2024-03-04", "11")

		pp, err := ps.Latest("005827")
		if err != nil {
			t.Fatalf("Failed to read latest price: %v", err)
		}
		if !pp.Price.Equal(testutil.Dec(t, "11")) {
			t.Errorf("Expected latest price 11, got %s", pp.Price)
		}

		// WHY: Latest is cached, so the follow-up read only sees the new row
		// because Upsert invalidates the symbol.
		if _, err := ps.Upsert(context.Background(), "005827", testutil.Date(t, "2024-03-05"), testutil.Dec(t, "12"), service.PriceMeta{}); err != nil {
			t.Fatalf("Failed to upsert price: %v", err)
		}

		pp, err = ps.Latest("005827")
		if err != nil {
			t.Fatalf("Failed to read latest price: %v", err)
		}
		if !pp.Price.Equal(testutil.Dec(t, "12")) {
			t.Errorf("Expected latest price 12 after upsert, got %s", pp.Price)
		}
	})

	t.Run("unknown symbol returns ErrPriceNotFound", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		ps := service.NewPriceService(repository.NewPriceRepository(db))

		if _, err := ps.Latest("000000"); !errors.Is(err, apperrors.ErrPriceNotFound) {
			t.Errorf("Expected ErrPriceNotFound, got %v", err)
		}
	})
}

func TestPriceService_PriceOn(t *testing.T) {
	t.Run("matches the exact date only", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		ps := service.NewPriceService(repository.NewPriceRepository(db))

		testutil.InsertPrice(t, db, "005827", "2024-03-01", "10")

		if _, err := ps.PriceOn("005827", testutil.Date(t, "2024-03-01")); err != nil {
			t.Errorf("Expected a price for the exact date, got %v", err)
		}

		// Gaps are not filled from neighbouring days; a valuation on a day
		// without a NAV must fail loudly rather than borrow yesterday's.
		if _, err := ps.PriceOn("005827", testutil.Date(t, "2024-03-02")); !errors.Is(err, apperrors.ErrPriceNotFound) {
			t.Errorf("Expected ErrPriceNotFound for the next day, got %v", err)
		}
	})
}

func TestPriceService_History(t *testing.T) {
	t.Run("returns newest first with the limit applied", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		ps := service.NewPriceService(repository.NewPriceRepository(db))

		for i, p := range []string{"10", "11", "12", "13"} {
			date := testutil.Date(t, "2024-03-01").AddDate(0, 0, i)
			testutil.InsertPrice(t, db, "005827", date.Format("2006-01-02"), p)
		}

		history, err := ps.History("005827", 3)
		if err != nil {
			t.Fatalf("Failed to read history: %v", err)
		}
		if len(history) != 3 {
			t.Fatalf("Expected 3 rows, got %d", len(history))
		}
		if !history[0].Price.Equal(testutil.Dec(t, "13")) {
			t.Errorf("Expected newest price first, got %s", history[0].Price)
		}
		if !history[2].Price.Equal(testutil.Dec(t, "11")) {
			t.Errorf("Expected the limit to drop the oldest row, got %s", history[2].Price)
		}
	})
}
