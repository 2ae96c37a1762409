package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"merchbase/internal/middleware"
	"merchbase/internal/repository"
	"merchbase/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// webhookEvent is the provider's webhook envelope. Product ids arrive as
// JSON numbers but are treated as opaque strings everywhere else.
type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		SyncProduct struct {
			ID json.Number `json:"id"`
		} `json:"sync_product"`
	} `json:"data"`
}

// WebhookHandler handles provider webhook notifications
type WebhookHandler struct {
	syncService service.SyncService
	logger      *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(syncService service.SyncService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		syncService: syncService,
		logger:      logger,
	}
}

// RegisterRoutes registers the webhook route
func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/webhooks/printful", h.Handle)
}

// Handle dispatches one provider event. Unknown event types are
// acknowledged and ignored so new provider events never cause retries.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var event webhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.logger.Debug("Webhook decode failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}

	productID := event.Data.SyncProduct.ID.String()
	if productID == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing product id")
		return
	}

	var err error
	switch event.Type {
	case "product_updated", "product_synced":
		err = h.syncService.SyncOne(r.Context(), productID)
	case "product_deleted":
		err = h.syncService.ArchiveOne(r.Context(), productID)
		if errors.Is(err, repository.ErrProductNotFound) {
			// Never mirrored locally; nothing to archive.
			err = nil
		}
	default:
		h.logger.Debug("Ignoring webhook event", zap.String("type", event.Type))
		middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "ignored"})
		return
	}

	if err != nil {
		h.logger.Error("Webhook processing failed",
			zap.String("type", event.Type),
			zap.String("printful_id", productID),
			zap.Error(err),
		)
		middleware.RespondWithError(w, http.StatusBadGateway, "failed to process webhook")
		return
	}

	h.logger.Info("Webhook processed",
		zap.String("type", event.Type),
		zap.String("printful_id", productID),
	)
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}
