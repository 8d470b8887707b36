package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"assetledger/internal/api/request"
	"assetledger/internal/api/response"
	"assetledger/internal/apperrors"
	"assetledger/internal/repository"
	"assetledger/internal/service"
	"assetledger/internal/validation"
)

// OperationHandler handles HTTP requests for the operation ledger endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the operationService.
type OperationHandler struct {
	operationService *service.OperationService
	positionService  *service.PositionService
}

// NewOperationHandler creates a new OperationHandler with the provided service dependencies.
func NewOperationHandler(operationService *service.OperationService, positionService *service.PositionService) *OperationHandler {
	return &OperationHandler{
		operationService: operationService,
		positionService:  positionService,
	}
}

// AllOperations handles GET requests to retrieve ledger operations.
// Supports filtering by platform, symbol, status and planId query parameters.
//
// Endpoint: GET /api/operation
// Response: 200 OK with array of Operation
// Error: 500 Internal Server Error if retrieval fails
func (h *OperationHandler) AllOperations(w http.ResponseWriter, r *http.Request) {
	filter := repository.OperationFilter{
		Platform: r.URL.Query().Get("platform"),
		Symbol:   r.URL.Query().Get("symbol"),
		Status:   r.URL.Query().Get("status"),
		PlanID:   r.URL.Query().Get("planId"),
	}

	operations, err := h.operationService.GetOperations(filter)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveOperations.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, operations)
}

// GetOperation handles GET requests to retrieve a single operation by ID.
//
// Endpoint: GET /api/operation/{uuid}
// Response: 200 OK with Operation
// Error: 400 Bad Request if operation ID is invalid (validated by middleware)
// Error: 404 Not Found if operation not found
// Error: 500 Internal Server Error if retrieval fails
func (h *OperationHandler) GetOperation(w http.ResponseWriter, r *http.Request) {
	operationID := chi.URLParam(r, "uuid")

	operation, err := h.operationService.GetOperation(operationID)
	if err != nil {
		if errors.Is(err, apperrors.ErrOperationNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrOperationNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveOperation.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, operation)
}

// CreateOperation handles POST requests to record a new ledger operation.
// A priced operation is applied to its position immediately; one whose date has
// no price is recorded as pending and confirmed later by the price sync.
//
// Endpoint: POST /api/operation
// Request Body: CreateOperationRequest
// Response: 201 Created with Operation
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 409 Conflict if the operation would oversell its position
// Error: 500 Internal Server Error if creation fails
func (h *OperationHandler) CreateOperation(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateOperationRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreateOperation(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	operation, err := h.operationService.RecordOperation(r.Context(), req)
	if err != nil {
		if errors.Is(err, apperrors.ErrInsufficientShares) {
			response.RespondError(w, http.StatusConflict, apperrors.ErrInsufficientShares.Error(), err.Error())
			return
		}
		if errors.Is(err, apperrors.ErrInvalidShareQuantity) {
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidShareQuantity.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to record operation", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusCreated, operation)
}

// UpdateOperation handles PUT requests to edit an existing operation.
// After the ledger write, all positions are rebuilt from scratch because an
// edit anywhere in history invalidates the incremental projection.
//
// Endpoint: PUT /api/operation/{uuid}
// Request Body: UpdateOperationRequest (all fields optional)
// Response: 200 OK with updated Operation
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 404 Not Found if operation not found
// Error: 409 Conflict if a rebuild is already running
// Error: 500 Internal Server Error if update fails
func (h *OperationHandler) UpdateOperation(w http.ResponseWriter, r *http.Request) {
	operationID := chi.URLParam(r, "uuid")

	req, err := parseJSON[request.UpdateOperationRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateUpdateOperation(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	operation, err := h.operationService.UpdateOperation(r.Context(), operationID, req)
	if err != nil {
		if errors.Is(err, apperrors.ErrOperationNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrOperationNotFound.Error(), err.Error())
			return
		}
		if errors.Is(err, apperrors.ErrInvalidShareQuantity) {
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidShareQuantity.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to update operation", err.Error())
		return
	}

	if _, err := h.positionService.RebuildAll(r.Context()); err != nil {
		if errors.Is(err, apperrors.ErrRebuildInProgress) {
			response.RespondError(w, http.StatusConflict, apperrors.ErrRebuildInProgress.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRebuildPositions.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, operation)
}

// DeleteOperation handles DELETE requests to remove an operation from the ledger.
// All positions are rebuilt afterwards, same as for updates.
//
// Endpoint: DELETE /api/operation/{uuid}
// Response: 204 No Content
// Error: 404 Not Found if operation not found
// Error: 409 Conflict if a rebuild is already running
// Error: 500 Internal Server Error if deletion fails
func (h *OperationHandler) DeleteOperation(w http.ResponseWriter, r *http.Request) {
	operationID := chi.URLParam(r, "uuid")

	if err := h.operationService.DeleteOperation(r.Context(), operationID); err != nil {
		if errors.Is(err, apperrors.ErrOperationNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrOperationNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to delete operation", err.Error())
		return
	}

	if _, err := h.positionService.RebuildAll(r.Context()); err != nil {
		if errors.Is(err, apperrors.ErrRebuildInProgress) {
			response.RespondError(w, http.StatusConflict, apperrors.ErrRebuildInProgress.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRebuildPositions.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}

// ConfirmPending handles POST requests to sweep pending operations against the
// price store, confirming and applying those whose price has since arrived.
//
// Endpoint: POST /api/operation/confirm-pending
// Response: 200 OK with {"confirmed": n}
// Error: 500 Internal Server Error if the sweep fails
func (h *OperationHandler) ConfirmPending(w http.ResponseWriter, r *http.Request) {
	confirmed, err := h.operationService.ConfirmPending(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to confirm pending operations", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, map[string]int{"confirmed": confirmed})
}
