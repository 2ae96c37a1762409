package transport

import (
	"errors"
	"net/http"

	"merchbase/internal/middleware"
	"merchbase/internal/repository"
	"merchbase/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReorderRequest represents the image reordering payload
type ReorderRequest struct {
	ImageIDs []uuid.UUID `json:"image_ids" validate:"required,min=1"`
}

// SelectRequest represents the selection toggle payload
type SelectRequest struct {
	Selected bool `json:"selected"`
}

// ImageHandler handles product image curation endpoints
type ImageHandler struct {
	imageService service.ImageService
	logger       *zap.Logger
}

// NewImageHandler creates a new ImageHandler
func NewImageHandler(imageService service.ImageService, logger *zap.Logger) *ImageHandler {
	return &ImageHandler{
		imageService: imageService,
		logger:       logger,
	}
}

// RegisterRoutes registers the image curation routes
func (h *ImageHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/admin/products/{id}/images", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.List)
		r.Patch("/reorder", h.Reorder)
		r.Patch("/{imageID}", h.SetSelected)
		r.Delete("/{imageID}", h.Delete)
	})
}

// List returns all images of a product, selected first
func (h *ImageHandler) List(w http.ResponseWriter, r *http.Request) {
	images, err := h.imageService.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to list product images", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list images")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"images": images})
}

// Reorder rewrites the display order of a product's images
func (h *ImageHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.imageService.Reorder(r.Context(), chi.URLParam(r, "id"), req.ImageIDs); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to reorder images", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to reorder images")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "images reordered"})
}

// SetSelected toggles storefront visibility of one image
func (h *ImageHandler) SetSelected(w http.ResponseWriter, r *http.Request) {
	imageID, err := uuid.Parse(chi.URLParam(r, "imageID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid image id")
		return
	}

	var req SelectRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.imageService.SetSelected(r.Context(), imageID, req.Selected); err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "image not found")
			return
		}
		h.logger.Error("Failed to toggle image selection", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update image")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "image updated"})
}

// Delete removes an image record
func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	imageID, err := uuid.Parse(chi.URLParam(r, "imageID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid image id")
		return
	}

	if err := h.imageService.Delete(r.Context(), imageID); err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "image not found")
			return
		}
		h.logger.Error("Failed to delete image", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to delete image")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "image deleted"})
}
