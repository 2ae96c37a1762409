package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"merchbase/internal/domain"
	"merchbase/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type mockImageService struct {
	listFn      func(ctx context.Context, productRef string) ([]*domain.ProductImage, error)
	reorderFn   func(ctx context.Context, productRef string, orderedIDs []uuid.UUID) error
	selectFn    func(ctx context.Context, imageID uuid.UUID, selected bool) error
	deleteFn    func(ctx context.Context, imageID uuid.UUID) error
	lastReorder []uuid.UUID
}

func (m *mockImageService) List(ctx context.Context, productRef string) ([]*domain.ProductImage, error) {
	if m.listFn != nil {
		return m.listFn(ctx, productRef)
	}
	return nil, nil
}

func (m *mockImageService) Reorder(ctx context.Context, productRef string, orderedIDs []uuid.UUID) error {
	m.lastReorder = orderedIDs
	if m.reorderFn != nil {
		return m.reorderFn(ctx, productRef, orderedIDs)
	}
	return nil
}

func (m *mockImageService) SetSelected(ctx context.Context, imageID uuid.UUID, selected bool) error {
	if m.selectFn != nil {
		return m.selectFn(ctx, imageID, selected)
	}
	return nil
}

func (m *mockImageService) Delete(ctx context.Context, imageID uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, imageID)
	}
	return nil
}

func newImageRouter(svc *mockImageService) chi.Router {
	r := chi.NewRouter()
	NewImageHandler(svc, zap.NewNop()).RegisterRoutes(r, passthrough)
	return r
}

func TestListImages(t *testing.T) {
	svc := &mockImageService{
		listFn: func(ctx context.Context, productRef string) ([]*domain.ProductImage, error) {
			return []*domain.ProductImage{
				{ID: uuid.New(), URL: "https://cdn.example.com/a.png", Selected: true},
				{ID: uuid.New(), URL: "https://cdn.example.com/b.png"},
			}, nil
		},
	}
	router := newImageRouter(svc)

	req := httptest.NewRequest("GET", "/api/admin/products/classic-tee/images/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var body struct {
		Images []*domain.ProductImage `json:"images"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if len(body.Images) != 2 {
		t.Errorf("Expected 2 images, got %d", len(body.Images))
	}
}

func TestListImagesUnknownProduct(t *testing.T) {
	svc := &mockImageService{
		listFn: func(ctx context.Context, productRef string) ([]*domain.ProductImage, error) {
			return nil, repository.ErrProductNotFound
		},
	}
	router := newImageRouter(svc)

	req := httptest.NewRequest("GET", "/api/admin/products/ghost/images/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestReorderImages(t *testing.T) {
	svc := &mockImageService{}
	router := newImageRouter(svc)

	first, second := uuid.New(), uuid.New()
	payload := `{"image_ids": ["` + first.String() + `", "` + second.String() + `"]}`

	req := httptest.NewRequest("PATCH", "/api/admin/products/classic-tee/images/reorder", strings.NewReader(payload))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(svc.lastReorder) != 2 || svc.lastReorder[0] != first || svc.lastReorder[1] != second {
		t.Errorf("Expected ordered ids to be forwarded, got %v", svc.lastReorder)
	}
}

func TestReorderImagesRejectsEmptyList(t *testing.T) {
	router := newImageRouter(&mockImageService{})

	req := httptest.NewRequest("PATCH", "/api/admin/products/classic-tee/images/reorder", strings.NewReader(`{"image_ids": []}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty id list, got %d", w.Code)
	}
}

func TestSetSelected(t *testing.T) {
	var gotSelected bool
	svc := &mockImageService{
		selectFn: func(ctx context.Context, imageID uuid.UUID, selected bool) error {
			gotSelected = selected
			return nil
		},
	}
	router := newImageRouter(svc)

	imageID := uuid.New()
	req := httptest.NewRequest("PATCH", "/api/admin/products/classic-tee/images/"+imageID.String(), strings.NewReader(`{"selected": true}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !gotSelected {
		t.Error("Expected selected flag to be forwarded")
	}
}

func TestSetSelectedBadID(t *testing.T) {
	router := newImageRouter(&mockImageService{})

	req := httptest.NewRequest("PATCH", "/api/admin/products/classic-tee/images/not-a-uuid", strings.NewReader(`{"selected": true}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad image id, got %d", w.Code)
	}
}

func TestDeleteImage(t *testing.T) {
	svc := &mockImageService{
		deleteFn: func(ctx context.Context, imageID uuid.UUID) error {
			return repository.ErrImageNotFound
		},
	}
	router := newImageRouter(svc)

	req := httptest.NewRequest("DELETE", "/api/admin/products/classic-tee/images/"+uuid.New().String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing image, got %d", w.Code)
	}
}
