package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"assetledger/internal/api/handlers"
	"assetledger/internal/model"
	"assetledger/internal/repository"
	"assetledger/internal/service"
	"assetledger/internal/testutil"
)

func TestPriceHandler_UpsertPrice(t *testing.T) {
	t.Run("creates and returns 201", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewPriceHandler(service.NewPriceService(repository.NewPriceRepository(db)))

		body := `{"symbol": "005827", "date": "2024-03-01", "price": "1.234", "source": "manual"}`
		req := httptest.NewRequest(http.MethodPost, "/api/price/", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		handler.UpsertPrice(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
		}

		var response model.PricePoint
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if !response.Price.Equal(testutil.Dec(t, "1.234")) {
			t.Errorf("Expected price 1.234, got %s", response.Price)
		}
	})

	t.Run("returns 400 for a non-positive price", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewPriceHandler(service.NewPriceService(repository.NewPriceRepository(db)))

		body := `{"symbol": "005827", "date": "2024-03-01", "price": "0"}`
		req := httptest.NewRequest(http.MethodPost, "/api/price/", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		handler.UpsertPrice(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

func TestPriceHandler_LatestPrice(t *testing.T) {
	t.Run("returns the newest row", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewPriceHandler(service.NewPriceService(repository.NewPriceRepository(db)))

		testutil.InsertPrice(t, db, "005827", "2024-03-01", "10")
		testutil.InsertPrice(t, db, "005827", "2024-03-04", "11")

		req := httptest.NewRequest(http.MethodGet, "/api/price/005827/latest", nil)
		req = withURLParam(req, "symbol", "005827")
		w := httptest.NewRecorder()

		handler.LatestPrice(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}

		var response model.PricePoint
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if !response.Price.Equal(testutil.Dec(t, "11")) {
			t.Errorf("Expected price 11, got %s", response.Price)
		}
	})

	t.Run("returns 404 for an unknown symbol", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewPriceHandler(service.NewPriceService(repository.NewPriceRepository(db)))

		req := httptest.NewRequest(http.MethodGet, "/api/price/000000/latest", nil)
		req = withURLParam(req, "symbol", "000000")
		w := httptest.NewRecorder()

		handler.LatestPrice(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})
}

func TestPriceHandler_PriceHistory(t *testing.T) {
	t.Run("honours the limit parameter", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewPriceHandler(service.NewPriceService(repository.NewPriceRepository(db)))

		for _, d := range []string{"2024-03-01", "2024-03-04", "2024-03-05"} {
			testutil.InsertPrice(t, db, "005827", d, "10")
		}

		req := httptest.NewRequest(http.MethodGet, "/api/price/005827/history?limit=2", nil)
		req = withURLParam(req, "symbol", "005827")
		w := httptest.NewRecorder()

		handler.PriceHistory(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}

		var response []model.PricePoint
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if len(response) != 2 {
			t.Errorf("Expected 2 rows, got %d", len(response))
		}
	})

	t.Run("rejects a non-positive limit", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewPriceHandler(service.NewPriceService(repository.NewPriceRepository(db)))

		req := httptest.NewRequest(http.MethodGet, "/api/price/005827/history?limit=0", nil)
		req = withURLParam(req, "symbol", "005827")
		w := httptest.NewRecorder()

		handler.PriceHistory(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}
