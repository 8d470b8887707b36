package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"assetledger/internal/api/request"
	"assetledger/internal/api/response"
	"assetledger/internal/apperrors"
	"assetledger/internal/model"
	"assetledger/internal/service"
	"assetledger/internal/validation"
)

// PlanHandler handles HTTP requests for recurring-investment plan endpoints.
type PlanHandler struct {
	planService     *service.PlanService
	backfillService *service.BackfillService
}

// NewPlanHandler creates a new PlanHandler with the provided service dependencies.
func NewPlanHandler(planService *service.PlanService, backfillService *service.BackfillService) *PlanHandler {
	return &PlanHandler{
		planService:     planService,
		backfillService: backfillService,
	}
}

// AllPlans handles GET requests to retrieve plans, optionally filtered by status.
//
// Endpoint: GET /api/plan
// Response: 200 OK with array of Plan
// Error: 500 Internal Server Error if retrieval fails
func (h *PlanHandler) AllPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.planService.GetPlans(r.URL.Query().Get("status"))
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrievePlans.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, plans)
}

// GetPlan handles GET requests to retrieve a single plan by ID.
//
// Endpoint: GET /api/plan/{uuid}
// Response: 200 OK with Plan
// Error: 404 Not Found if plan not found
// Error: 500 Internal Server Error if retrieval fails
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "uuid")

	plan, err := h.planService.GetPlan(planID)
	if err != nil {
		if errors.Is(err, apperrors.ErrPlanNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrPlanNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrievePlan.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, plan)
}

// CreatePlan handles POST requests to define a new recurring plan.
//
// Endpoint: POST /api/plan
// Request Body: CreatePlanRequest
// Response: 201 Created with Plan
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 500 Internal Server Error if creation fails
func (h *PlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreatePlanRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidatePlanCreate(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	plan, err := h.planService.CreatePlan(r.Context(), req)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidDateRange) || errors.Is(err, apperrors.ErrInvalidFrequency) {
			response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to create plan", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusCreated, plan)
}

// UpdatePlan handles PUT requests to edit an existing plan.
//
// Endpoint: PUT /api/plan/{uuid}
// Request Body: UpdatePlanRequest (all fields optional)
// Response: 200 OK with updated Plan
// Error: 400 Bad Request if validation fails
// Error: 404 Not Found if plan not found
// Error: 500 Internal Server Error if update fails
func (h *PlanHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "uuid")

	req, err := parseJSON[request.UpdatePlanRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidatePlanUpdate(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	plan, err := h.planService.UpdatePlan(r.Context(), planID, req)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrPlanNotFound):
			response.RespondError(w, http.StatusNotFound, apperrors.ErrPlanNotFound.Error(), err.Error())
		case errors.Is(err, apperrors.ErrInvalidDateRange), errors.Is(err, apperrors.ErrInvalidFrequency):
			response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		default:
			response.RespondError(w, http.StatusInternalServerError, "failed to update plan", err.Error())
		}
		return
	}

	response.RespondJSON(w, http.StatusOK, plan)
}

// Pause handles POST requests to suspend an active plan.
//
// Endpoint: POST /api/plan/{uuid}/pause
// Response: 200 OK with updated Plan
// Error: 404 Not Found if plan not found
// Error: 409 Conflict if the plan is not active
func (h *PlanHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.respondTransition(w, r, h.planService.Pause)
}

// Resume handles POST requests to reactivate a paused plan.
//
// Endpoint: POST /api/plan/{uuid}/resume
// Response: 200 OK with updated Plan
// Error: 404 Not Found if plan not found
// Error: 409 Conflict if the plan is not paused
func (h *PlanHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.respondTransition(w, r, h.planService.Resume)
}

// Stop handles POST requests to terminate a plan permanently.
//
// Endpoint: POST /api/plan/{uuid}/stop
// Response: 200 OK with updated Plan
// Error: 404 Not Found if plan not found
// Error: 409 Conflict if the plan is already stopped or completed
func (h *PlanHandler) Stop(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "uuid")

	plan, err := h.planService.Stop(r.Context(), planID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrPlanNotFound):
			response.RespondError(w, http.StatusNotFound, apperrors.ErrPlanNotFound.Error(), err.Error())
		case errors.Is(err, apperrors.ErrPlanEnded):
			response.RespondError(w, http.StatusConflict, apperrors.ErrPlanEnded.Error(), err.Error())
		default:
			response.RespondError(w, http.StatusInternalServerError, "failed to stop plan", err.Error())
		}
		return
	}

	response.RespondJSON(w, http.StatusOK, plan)
}

// Execute handles POST requests to run one plan execution immediately.
//
// Endpoint: POST /api/plan/{uuid}/execute
// Request Body: ExecutePlanRequest (optional executionKind, defaults to scheduled)
// Response: 201 Created with the recorded Operation
// Error: 404 Not Found if plan not found
// Error: 409 Conflict if the plan is not active or has ended
// Error: 500 Internal Server Error if execution fails
func (h *PlanHandler) Execute(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "uuid")

	executionKind := model.ExecutionScheduled
	if r.ContentLength > 0 {
		req, err := parseJSON[request.ExecutePlanRequest](r)
		if err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
		if req.ExecutionKind != "" {
			if !validation.ValidExecutionKind[req.ExecutionKind] {
				response.RespondError(w, http.StatusBadRequest, "validation failed", "invalid execution kind")
				return
			}
			executionKind = req.ExecutionKind
		}
	}

	operation, err := h.planService.Execute(r.Context(), planID, executionKind)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrPlanNotFound):
			response.RespondError(w, http.StatusNotFound, apperrors.ErrPlanNotFound.Error(), err.Error())
		case errors.Is(err, apperrors.ErrPlanNotActive), errors.Is(err, apperrors.ErrPlanEnded):
			response.RespondError(w, http.StatusConflict, err.Error(), "")
		default:
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToExecutePlan.Error(), err.Error())
		}
		return
	}

	response.RespondJSON(w, http.StatusCreated, operation)
}

// Backfill handles POST requests to generate the historical operations a plan
// would have produced between its start date and the requested end date.
//
// Endpoint: POST /api/plan/{uuid}/backfill
// Request Body: BackfillRequest (endDate, optional excludedDates)
// Response: 200 OK with BackfillResult
// Error: 400 Bad Request if validation fails or the range is invalid
// Error: 404 Not Found if plan not found
// Error: 409 Conflict if a rebuild is already running
// Error: 500 Internal Server Error if generation fails
func (h *PlanHandler) Backfill(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "uuid")

	req, err := parseJSON[request.BackfillRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateBackfill(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.backfillService.GenerateHistory(r.Context(), planID, req)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrPlanNotFound):
			response.RespondError(w, http.StatusNotFound, apperrors.ErrPlanNotFound.Error(), err.Error())
		case errors.Is(err, apperrors.ErrInvalidDateRange):
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidDateRange.Error(), err.Error())
		case errors.Is(err, apperrors.ErrRebuildInProgress):
			response.RespondError(w, http.StatusConflict, apperrors.ErrRebuildInProgress.Error(), err.Error())
		default:
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToGenerateHistory.Error(), err.Error())
		}
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

func (h *PlanHandler) respondTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, planID string) (model.Plan, error)) {
	planID := chi.URLParam(r, "uuid")

	plan, err := fn(r.Context(), planID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrPlanNotFound):
			response.RespondError(w, http.StatusNotFound, apperrors.ErrPlanNotFound.Error(), err.Error())
		case errors.Is(err, apperrors.ErrPlanNotActive):
			response.RespondError(w, http.StatusConflict, apperrors.ErrPlanNotActive.Error(), err.Error())
		default:
			response.RespondError(w, http.StatusInternalServerError, "failed to update plan status", err.Error())
		}
		return
	}

	response.RespondJSON(w, http.StatusOK, plan)
}
