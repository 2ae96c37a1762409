package transport

import (
	"archive/zip"
	"errors"
	"io"
	"net/http"
	"strconv"

	"merchbase/internal/middleware"
	"merchbase/internal/repository"
	"merchbase/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxMockupArchiveSize bounds uploaded mockup archives at 100 MiB.
const maxMockupArchiveSize = 100 << 20

// MockupHandler handles mockup archive uploads
type MockupHandler struct {
	importService service.ImportService
	logger        *zap.Logger
}

// NewMockupHandler creates a new MockupHandler
func NewMockupHandler(importService service.ImportService, logger *zap.Logger) *MockupHandler {
	return &MockupHandler{
		importService: importService,
		logger:        logger,
	}
}

// RegisterRoutes registers the mockup upload route
func (h *MockupHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/admin/products/{id}/mockups", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Upload)
	})
}

// Upload ingests a multipart mockup archive for one product. Form fields:
// archive (the ZIP), mode (append|replace) and dry_run.
func (h *MockupHandler) Upload(w http.ResponseWriter, r *http.Request) {
	productRef := chi.URLParam(r, "id")

	r.Body = http.MaxBytesReader(w, r.Body, maxMockupArchiveSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.logger.Debug("Mockup upload parse failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusUnprocessableEntity, "invalid multipart payload")
		return
	}

	file, _, err := r.FormFile("archive")
	if err != nil {
		middleware.RespondWithError(w, http.StatusUnprocessableEntity, "missing archive file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read mockup archive", zap.Error(err))
		middleware.RespondWithError(w, http.StatusUnprocessableEntity, "unreadable archive file")
		return
	}

	dryRun := false
	if raw := r.FormValue("dry_run"); raw != "" {
		dryRun, err = strconv.ParseBool(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusUnprocessableEntity, "dry_run must be a boolean")
			return
		}
	}

	result, err := h.importService.Import(r.Context(), service.ImportOptions{
		ProductRef: productRef,
		Archive:    data,
		Mode:       r.FormValue("mode"),
		DryRun:     dryRun,
	})
	if err != nil {
		h.logger.Error("Mockup import failed",
			zap.String("product", productRef),
			zap.Error(err),
		)

		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
		case errors.Is(err, service.ErrInvalidImportMode):
			middleware.RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
		case isBadArchive(err):
			middleware.RespondWithError(w, http.StatusUnprocessableEntity, "archive could not be read")
		default:
			middleware.RespondWithError(w, http.StatusInternalServerError, "mockup import failed")
		}
		return
	}

	h.logger.Info("Mockup archive imported",
		zap.String("product", productRef),
		zap.Int("images", result.ImportedCount),
		zap.Bool("dry_run", dryRun),
	)

	middleware.RespondWithJSON(w, http.StatusOK, result)
}

func isBadArchive(err error) bool {
	return errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrChecksum)
}
