package handlers

import (
	"errors"
	"net/http"

	"assetledger/internal/api/response"
	"assetledger/internal/apperrors"
	"assetledger/internal/model"
	"assetledger/internal/service"
)

// PositionHandler handles HTTP requests for the derived position endpoints.
type PositionHandler struct {
	positionService *service.PositionService
}

// NewPositionHandler creates a new PositionHandler with the provided service dependency.
func NewPositionHandler(positionService *service.PositionService) *PositionHandler {
	return &PositionHandler{
		positionService: positionService,
	}
}

// AllPositions handles GET requests to retrieve current positions.
// Supports filtering by platform, symbol and currency query parameters.
// Valuation fields are computed against the latest known price per symbol.
//
// Endpoint: GET /api/position
// Response: 200 OK with array of Position
// Error: 500 Internal Server Error if retrieval fails
func (h *PositionHandler) AllPositions(w http.ResponseWriter, r *http.Request) {
	filter := model.PositionFilter{
		Platform: r.URL.Query().Get("platform"),
		Symbol:   r.URL.Query().Get("symbol"),
		Currency: r.URL.Query().Get("currency"),
	}

	positions, err := h.positionService.GetPositions(filter)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrievePositions.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, positions)
}

// Summary handles GET requests for the aggregate across all positions.
//
// Endpoint: GET /api/position/summary
// Response: 200 OK with PositionSummary
// Error: 500 Internal Server Error if aggregation fails
func (h *PositionHandler) Summary(w http.ResponseWriter, _ *http.Request) {
	summary, err := h.positionService.GetSummary()
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToGetSummary.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, summary)
}

// Rebuild handles POST requests to discard all positions and replay the full
// ledger from scratch.
//
// Endpoint: POST /api/position/rebuild
// Response: 200 OK with {"processed": n}
// Error: 409 Conflict if a rebuild is already running
// Error: 500 Internal Server Error if the rebuild fails
func (h *PositionHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	processed, err := h.positionService.RebuildAll(r.Context())
	if err != nil {
		if errors.Is(err, apperrors.ErrRebuildInProgress) {
			response.RespondError(w, http.StatusConflict, apperrors.ErrRebuildInProgress.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRebuildPositions.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, map[string]int{"processed": processed})
}
