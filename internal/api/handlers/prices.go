package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"assetledger/internal/api/request"
	"assetledger/internal/api/response"
	"assetledger/internal/apperrors"
	"assetledger/internal/service"
	"assetledger/internal/validation"
)

// defaultHistoryLimit caps the price history response when no limit is given.
const defaultHistoryLimit = 90

// PriceHandler handles HTTP requests for the NAV price store endpoints.
type PriceHandler struct {
	priceService *service.PriceService
}

// NewPriceHandler creates a new PriceHandler with the provided service dependency.
func NewPriceHandler(priceService *service.PriceService) *PriceHandler {
	return &PriceHandler{
		priceService: priceService,
	}
}

// UpsertPrice handles POST requests to record the price for a (symbol, date)
// pair, overwriting any existing row for the same day.
//
// Endpoint: POST /api/price
// Request Body: UpsertPriceRequest
// Response: 201 Created with PricePoint
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 500 Internal Server Error if the write fails
func (h *PriceHandler) UpsertPrice(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.UpsertPriceRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateUpsertPrice(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	meta := service.PriceMeta{Source: req.Source}
	if req.AccumulatedPrice != nil {
		meta.AccumulatedPrice = decimal.NullDecimal{Decimal: *req.AccumulatedPrice, Valid: true}
	}
	if req.GrowthRate != nil {
		meta.GrowthRate = decimal.NullDecimal{Decimal: *req.GrowthRate, Valid: true}
	}

	pp, err := h.priceService.Upsert(r.Context(), req.Symbol, date, req.Price, meta)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToUpsertPrice.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusCreated, pp)
}

// LatestPrice handles GET requests for the most recent price of a symbol.
//
// Endpoint: GET /api/price/{symbol}/latest
// Response: 200 OK with PricePoint
// Error: 404 Not Found if the symbol has no prices
// Error: 500 Internal Server Error if retrieval fails
func (h *PriceHandler) LatestPrice(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	pp, err := h.priceService.Latest(symbol)
	if err != nil {
		if errors.Is(err, apperrors.ErrPriceNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrPriceNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrievePrices.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, pp)
}

// PriceHistory handles GET requests for a symbol's recent price rows, newest
// first. The optional limit query parameter bounds the result.
//
// Endpoint: GET /api/price/{symbol}/history?limit=30
// Response: 200 OK with array of PricePoint
// Error: 500 Internal Server Error if retrieval fails
func (h *PriceHandler) PriceHistory(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.RespondError(w, http.StatusBadRequest, "validation failed", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	history, err := h.priceService.History(symbol, limit)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrievePrices.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, history)
}

// PriceOnDate handles GET requests for a symbol's price on one exact date.
//
// Endpoint: GET /api/price/{symbol}/on/{date}
// Response: 200 OK with PricePoint
// Error: 400 Bad Request if the date is malformed
// Error: 404 Not Found if no price exists for that day
func (h *PriceHandler) PriceOnDate(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	date, err := time.Parse("2006-01-02", chi.URLParam(r, "date"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	pp, err := h.priceService.PriceOn(symbol, date)
	if err != nil {
		if errors.Is(err, apperrors.ErrPriceNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrPriceNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrievePrices.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, pp)
}
