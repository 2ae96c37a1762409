package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"merchbase/internal/middleware"
	"merchbase/internal/printful"
	"merchbase/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SyncRequest represents the catalog sync trigger payload
type SyncRequest struct {
	Clear bool `json:"clear"`
}

// SyncHandler handles catalog synchronization endpoints
type SyncHandler struct {
	syncService service.SyncService
	logger      *zap.Logger
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(syncService service.SyncService, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		logger:      logger,
	}
}

// RegisterRoutes registers the sync routes. The admin trigger sits behind
// JWT auth, the automation trigger behind the shared-secret guard.
func (h *SyncHandler) RegisterRoutes(r chi.Router, authMiddleware, automationMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/admin/catalog", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/sync", h.TriggerSync)
		r.Get("/sync-runs", h.ListSyncRuns)
	})

	r.Route("/api/internal/catalog", func(r chi.Router) {
		r.Use(automationMiddleware)
		r.Post("/sync", h.TriggerAutomationSync)
	})
}

// TriggerSync starts a full catalog synchronization on behalf of an admin
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.Debug("Sync request decode failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	actor, _ := middleware.GetAdminID(r.Context())
	h.runSync(w, r, service.SyncOptions{
		Clear:  req.Clear,
		Actor:  actor,
		Source: "dashboard",
	})
}

// TriggerAutomationSync starts a synchronization from an unattended caller
func (h *SyncHandler) TriggerAutomationSync(w http.ResponseWriter, r *http.Request) {
	h.runSync(w, r, service.SyncOptions{
		Actor:  "automation",
		Source: "automation",
	})
}

func (h *SyncHandler) runSync(w http.ResponseWriter, r *http.Request, opts service.SyncOptions) {
	run, err := h.syncService.Run(r.Context(), opts)
	if err != nil {
		h.logger.Error("Catalog sync failed",
			zap.String("source", opts.Source),
			zap.Error(err),
		)

		switch {
		case errors.Is(err, service.ErrSyncInProgress):
			middleware.RespondWithError(w, http.StatusConflict, "a catalog sync is already running")
		case isRemoteUnavailable(err):
			middleware.RespondWithError(w, http.StatusBadGateway, "catalog provider unavailable")
		default:
			middleware.RespondWithError(w, http.StatusInternalServerError, "catalog sync failed")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, run)
}

// ListSyncRuns returns the most recent synchronization audit records
func (h *SyncHandler) ListSyncRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			middleware.RespondWithError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	runs, err := h.syncService.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list sync runs", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list sync runs")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"sync_runs": runs})
}

func isRemoteUnavailable(err error) bool {
	var apiErr *printful.APIError
	return errors.As(err, &apiErr)
}
