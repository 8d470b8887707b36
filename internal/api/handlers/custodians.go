package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"assetledger/internal/api/request"
	"assetledger/internal/api/response"
	"assetledger/internal/apperrors"
	"assetledger/internal/pricefeed"
	"assetledger/internal/service"
)

// CustodianHandler handles HTTP requests for custodian integration endpoints.
// Credentials are write-only: they are accepted on configure and never echoed.
type CustodianHandler struct {
	custodianService *service.CustodianService
	syncService      *pricefeed.SyncService
}

// NewCustodianHandler creates a new CustodianHandler with the provided dependencies.
func NewCustodianHandler(custodianService *service.CustodianService, syncService *pricefeed.SyncService) *CustodianHandler {
	return &CustodianHandler{
		custodianService: custodianService,
		syncService:      syncService,
	}
}

// Configure handles POST requests to set up or update a custodian integration.
//
// Endpoint: POST /api/custodian
// Request Body: ConfigureCustodianRequest
// Response: 200 OK with CustodianConfig (credential omitted)
// Error: 400 Bad Request if the platform is missing
// Error: 500 Internal Server Error if the write or encryption fails
func (h *CustodianHandler) Configure(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.ConfigureCustodianRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if strings.TrimSpace(req.Platform) == "" {
		response.RespondError(w, http.StatusBadRequest, "validation failed", "platform is required")
		return
	}

	cfg, err := h.custodianService.Configure(r.Context(), req)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to configure custodian", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, cfg)
}

// GetConfig handles GET requests for one platform's integration settings.
//
// Endpoint: GET /api/custodian/{platform}
// Response: 200 OK with CustodianConfig
// Error: 404 Not Found if the platform has no configuration
func (h *CustodianHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	platform := chi.URLParam(r, "platform")

	cfg, err := h.custodianService.GetConfig(platform)
	if err != nil {
		if errors.Is(err, apperrors.ErrCustodianConfigNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrCustodianConfigNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to retrieve custodian configuration", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, cfg)
}

// ListEnabled handles GET requests for all enabled custodian integrations.
//
// Endpoint: GET /api/custodian
// Response: 200 OK with array of CustodianConfig
func (h *CustodianHandler) ListEnabled(w http.ResponseWriter, _ *http.Request) {
	configs, err := h.custodianService.ListEnabled()
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to retrieve custodian configurations", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, configs)
}

// Sync handles POST requests to run a price sync for all enabled custodians
// immediately instead of waiting for the nightly job.
//
// Endpoint: POST /api/custodian/sync
// Response: 200 OK with {"written": n}
// Error: 500 Internal Server Error if the sync fails
func (h *CustodianHandler) Sync(w http.ResponseWriter, r *http.Request) {
	written, err := h.syncService.SyncAll(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to sync prices", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, map[string]int{"written": written})
}
