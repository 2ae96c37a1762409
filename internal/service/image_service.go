package service

import (
	"context"

	"merchbase/internal/domain"
	"merchbase/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ImageService manages the curated image set of a product after import:
// listing, manual reordering, visibility toggles and explicit deletion.
type ImageService interface {
	List(ctx context.Context, productRef string) ([]*domain.ProductImage, error)
	Reorder(ctx context.Context, productRef string, orderedIDs []uuid.UUID) error
	SetSelected(ctx context.Context, imageID uuid.UUID, selected bool) error
	Delete(ctx context.Context, imageID uuid.UUID) error
}

type imageService struct {
	catalog repository.CatalogRepository
	images  repository.ImageRepository
	logger  *zap.Logger
}

// NewImageService creates a new instance of ImageService
func NewImageService(
	catalog repository.CatalogRepository,
	images repository.ImageRepository,
	logger *zap.Logger,
) ImageService {
	return &imageService{
		catalog: catalog,
		images:  images,
		logger:  logger,
	}
}

func (s *imageService) List(ctx context.Context, productRef string) ([]*domain.ProductImage, error) {
	product, err := s.catalog.FindProductByIDOrSlug(ctx, productRef)
	if err != nil {
		return nil, err
	}
	return s.images.ListForProduct(ctx, product.ID)
}

// Reorder rewrites the sort indexes of a product's images to the given
// order.
func (s *imageService) Reorder(ctx context.Context, productRef string, orderedIDs []uuid.UUID) error {
	product, err := s.catalog.FindProductByIDOrSlug(ctx, productRef)
	if err != nil {
		return err
	}
	if err := s.images.Reorder(ctx, product.ID, orderedIDs); err != nil {
		return err
	}

	s.logger.Info("Reordered product images",
		zap.String("product_id", product.ID.String()),
		zap.Int("images", len(orderedIDs)),
	)
	return nil
}

func (s *imageService) SetSelected(ctx context.Context, imageID uuid.UUID, selected bool) error {
	return s.images.SetSelected(ctx, imageID, selected)
}

// Delete removes an image record permanently. Sync runs never do this;
// deletion is always an explicit admin action.
func (s *imageService) Delete(ctx context.Context, imageID uuid.UUID) error {
	return s.images.Delete(ctx, imageID)
}
