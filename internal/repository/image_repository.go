package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"merchbase/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrImageNotFound = errors.New("product image not found")
)

// ImageRecord is one resolved image the import pipeline wants persisted.
type ImageRecord struct {
	URL       string
	VariantID *uuid.UUID
	Kind      string
	Placement string
	SortIndex int
}

// ImageRepository persists ProductImage rows. ApplyImport is the single
// transactional write at the end of a mockup import.
type ImageRepository interface {
	ListForProduct(ctx context.Context, productID uuid.UUID) ([]*domain.ProductImage, error)
	MaxSelectedSortIndex(ctx context.Context, productID uuid.UUID) (int, error)
	SelectedSortIndexes(ctx context.Context, productID uuid.UUID) (map[int]bool, error)
	ApplyImport(ctx context.Context, productID uuid.UUID, replace bool, records []ImageRecord) error
	Reorder(ctx context.Context, productID uuid.UUID, orderedIDs []uuid.UUID) error
	SetSelected(ctx context.Context, imageID uuid.UUID, selected bool) error
	Delete(ctx context.Context, imageID uuid.UUID) error
}

type imageRepository struct {
	db *sql.DB
}

// NewImageRepository creates a new instance of ImageRepository
func NewImageRepository(db *sql.DB) ImageRepository {
	return &imageRepository{db: db}
}

const imageColumns = `id, product_id, variant_id, url, kind, placement, sort_index, selected, source, created_at, updated_at`

// ListForProduct returns all images of a product, selected first, in sort
// order.
func (r *imageRepository) ListForProduct(ctx context.Context, productID uuid.UUID) ([]*domain.ProductImage, error) {
	query := `
		SELECT ` + imageColumns + `
		FROM product_images
		WHERE product_id = $1
		ORDER BY selected DESC, sort_index, created_at
	`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list product images: %w", err)
	}
	defer rows.Close()

	images := []*domain.ProductImage{}
	for rows.Next() {
		image := &domain.ProductImage{}
		err := rows.Scan(
			&image.ID,
			&image.ProductID,
			&image.VariantID,
			&image.URL,
			&image.Kind,
			&image.Placement,
			&image.SortIndex,
			&image.Selected,
			&image.Source,
			&image.CreatedAt,
			&image.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product image: %w", err)
		}
		images = append(images, image)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product images: %w", err)
	}

	return images, nil
}

// MaxSelectedSortIndex returns the highest sort index among the selected
// images of a product, or -1 when none are selected.
func (r *imageRepository) MaxSelectedSortIndex(ctx context.Context, productID uuid.UUID) (int, error) {
	query := `
		SELECT COALESCE(MAX(sort_index), -1)
		FROM product_images
		WHERE product_id = $1 AND selected
	`

	var max int
	if err := r.db.QueryRowContext(ctx, query, productID).Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to read max sort index: %w", err)
	}

	return max, nil
}

// SelectedSortIndexes returns the occupied sort indexes of the selected
// scope, used for collision probing in append mode.
func (r *imageRepository) SelectedSortIndexes(ctx context.Context, productID uuid.UUID) (map[int]bool, error) {
	query := `
		SELECT sort_index
		FROM product_images
		WHERE product_id = $1 AND selected
	`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to read sort indexes: %w", err)
	}
	defer rows.Close()

	used := make(map[int]bool)
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, fmt.Errorf("failed to scan sort index: %w", err)
		}
		used[idx] = true
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sort indexes: %w", err)
	}

	return used, nil
}

// ApplyImport writes the outcome of a mockup import in one transaction: in
// replace mode all currently selected images are unselected first (never
// deleted), then each record updates the existing row with the same storage
// URL or inserts a new one. The existing/new split is computed with a single
// batched lookup.
func (r *imageRepository) ApplyImport(ctx context.Context, productID uuid.UUID, replace bool, records []ImageRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if replace {
		_, err := tx.ExecContext(ctx,
			`UPDATE product_images SET selected = FALSE, updated_at = now() WHERE product_id = $1 AND selected`,
			productID,
		)
		if err != nil {
			return fmt.Errorf("failed to unselect images: %w", err)
		}
	}

	urls := make([]string, len(records))
	for i, rec := range records {
		urls[i] = rec.URL
	}

	existing := make(map[string]uuid.UUID, len(records))
	rows, err := tx.QueryContext(ctx,
		`SELECT id, url FROM product_images WHERE product_id = $1 AND url = ANY($2)`,
		productID, urls,
	)
	if err != nil {
		return fmt.Errorf("failed to look up existing images: %w", err)
	}
	for rows.Next() {
		var id uuid.UUID
		var url string
		if err := rows.Scan(&id, &url); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan existing image: %w", err)
		}
		existing[url] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating existing images: %w", err)
	}

	for _, rec := range records {
		if id, ok := existing[rec.URL]; ok {
			_, err = tx.ExecContext(ctx, `
				UPDATE product_images
				SET variant_id = $2, kind = $3, placement = $4, sort_index = $5,
				    selected = TRUE, source = $6, updated_at = now()
				WHERE id = $1
			`, id, rec.VariantID, rec.Kind, rec.Placement, rec.SortIndex, domain.ImageSourceMockup)
		} else {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO product_images (id, product_id, variant_id, url, kind, placement, sort_index, selected, source, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, now(), now())
			`, uuid.New(), productID, rec.VariantID, rec.URL, rec.Kind, rec.Placement, rec.SortIndex, domain.ImageSourceMockup)
		}
		if err != nil {
			return fmt.Errorf("failed to write image record: %w", err)
		}
	}

	return tx.Commit()
}

// Reorder rewrites the sort indexes of the given images to match the order
// of orderedIDs.
func (r *imageRepository) Reorder(ctx context.Context, productID uuid.UUID, orderedIDs []uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, id := range orderedIDs {
		result, err := tx.ExecContext(ctx,
			`UPDATE product_images SET sort_index = $3, updated_at = now() WHERE id = $1 AND product_id = $2`,
			id, productID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to reorder image: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return ErrImageNotFound
		}
	}

	return tx.Commit()
}

// SetSelected toggles storefront visibility of one image.
func (r *imageRepository) SetSelected(ctx context.Context, imageID uuid.UUID, selected bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE product_images SET selected = $2, updated_at = now() WHERE id = $1`,
		imageID, selected,
	)
	if err != nil {
		return fmt.Errorf("failed to update image: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrImageNotFound
	}

	return nil
}

// Delete removes an image record. This is the only hard delete in the asset
// subsystem and is always an explicit admin action, never a cascade.
func (r *imageRepository) Delete(ctx context.Context, imageID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM product_images WHERE id = $1`, imageID)
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrImageNotFound
	}

	return nil
}
