package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"merchbase/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// catalogSyncLockKey scopes the advisory lock guarding catalog-wide writes.
const catalogSyncLockKey int64 = 0x6d657263686261 // "merchba"

// CatalogRepository persists Products and Variants. All sync-side writes are
// keyed by the remote printful_id, never by local id.
type CatalogRepository interface {
	UpsertProduct(ctx context.Context, product *domain.Product) error
	UpsertVariant(ctx context.Context, variant *domain.Variant) error
	ArchiveProductsNotIn(ctx context.Context, seen []string) (int64, error)
	ArchiveVariantsNotIn(ctx context.Context, seen []string) (int64, error)
	ArchiveVariantsOfProductNotIn(ctx context.Context, productID uuid.UUID, seen []string) (int64, error)
	ArchiveProductByPrintfulID(ctx context.Context, printfulID string) error
	ClearCatalogImages(ctx context.Context) error
	FindProductByIDOrSlug(ctx context.Context, ref string) (*domain.Product, error)
	FindProductByPrintfulID(ctx context.Context, printfulID string) (*domain.Product, error)
	ListVariantsForProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Variant, error)
	AcquireSyncLock(ctx context.Context) (release func() error, ok bool, err error)
}

type catalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository creates a new instance of CatalogRepository
func NewCatalogRepository(db *sql.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

// UpsertProduct inserts or updates a product by its remote natural key and
// fills in the local id. An upsert always un-archives the row.
func (r *catalogRepository) UpsertProduct(ctx context.Context, product *domain.Product) error {
	extraImages, err := json.Marshal(product.ExtraImageURLs)
	if err != nil {
		return fmt.Errorf("failed to encode extra image urls: %w", err)
	}

	query := `
		INSERT INTO products (id, printful_id, slug, title, description, price, image_url, extra_image_urls, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, now(), now())
		ON CONFLICT (printful_id) DO UPDATE SET
			slug = EXCLUDED.slug,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			image_url = EXCLUDED.image_url,
			extra_image_urls = EXCLUDED.extra_image_urls,
			deleted = FALSE,
			updated_at = now()
		RETURNING id
	`

	err = r.db.QueryRowContext(
		ctx,
		query,
		uuid.New(),
		product.PrintfulID,
		product.Slug,
		product.Title,
		product.Description,
		product.Price,
		product.ImageURL,
		extraImages,
	).Scan(&product.ID)

	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}

	return nil
}

// UpsertVariant inserts or updates a variant by its remote natural key. The
// product foreign key is always re-pointed, which covers variants that moved
// product ownership upstream.
func (r *catalogRepository) UpsertVariant(ctx context.Context, variant *domain.Variant) error {
	designURLs, err := json.Marshal(variant.DesignURLs)
	if err != nil {
		return fmt.Errorf("failed to encode design urls: %w", err)
	}

	query := `
		INSERT INTO variants (id, printful_id, product_id, color, size, price, image_url, design_urls, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, now(), now())
		ON CONFLICT (printful_id) DO UPDATE SET
			product_id = EXCLUDED.product_id,
			color = EXCLUDED.color,
			size = EXCLUDED.size,
			price = EXCLUDED.price,
			image_url = EXCLUDED.image_url,
			design_urls = EXCLUDED.design_urls,
			deleted = FALSE,
			updated_at = now()
		RETURNING id
	`

	err = r.db.QueryRowContext(
		ctx,
		query,
		uuid.New(),
		variant.PrintfulID,
		variant.ProductID,
		variant.Color,
		variant.Size,
		variant.Price,
		variant.ImageURL,
		designURLs,
	).Scan(&variant.ID)

	if err != nil {
		return fmt.Errorf("failed to upsert variant: %w", err)
	}

	return nil
}

// ArchiveProductsNotIn soft-deletes every live product whose natural key is
// absent from seen and returns how many were newly archived. Rows are never
// physically removed.
func (r *catalogRepository) ArchiveProductsNotIn(ctx context.Context, seen []string) (int64, error) {
	if seen == nil {
		seen = []string{}
	}

	query := `
		UPDATE products
		SET deleted = TRUE, updated_at = now()
		WHERE NOT deleted AND NOT (printful_id = ANY($1))
	`

	result, err := r.db.ExecContext(ctx, query, seen)
	if err != nil {
		return 0, fmt.Errorf("failed to archive products: %w", err)
	}

	return result.RowsAffected()
}

// ArchiveVariantsNotIn is the variant side of the set-difference archival.
func (r *catalogRepository) ArchiveVariantsNotIn(ctx context.Context, seen []string) (int64, error) {
	if seen == nil {
		seen = []string{}
	}

	query := `
		UPDATE variants
		SET deleted = TRUE, updated_at = now()
		WHERE NOT deleted AND NOT (printful_id = ANY($1))
	`

	result, err := r.db.ExecContext(ctx, query, seen)
	if err != nil {
		return 0, fmt.Errorf("failed to archive variants: %w", err)
	}

	return result.RowsAffected()
}

// ArchiveVariantsOfProductNotIn archives dropped variants of one product
// only; used by the single-product webhook path.
func (r *catalogRepository) ArchiveVariantsOfProductNotIn(ctx context.Context, productID uuid.UUID, seen []string) (int64, error) {
	if seen == nil {
		seen = []string{}
	}

	query := `
		UPDATE variants
		SET deleted = TRUE, updated_at = now()
		WHERE product_id = $1 AND NOT deleted AND NOT (printful_id = ANY($2))
	`

	result, err := r.db.ExecContext(ctx, query, productID, seen)
	if err != nil {
		return 0, fmt.Errorf("failed to archive product variants: %w", err)
	}

	return result.RowsAffected()
}

// ArchiveProductByPrintfulID soft-deletes one product and all its variants.
func (r *catalogRepository) ArchiveProductByPrintfulID(ctx context.Context, printfulID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var productID uuid.UUID
	err = tx.QueryRowContext(ctx,
		`UPDATE products SET deleted = TRUE, updated_at = now() WHERE printful_id = $1 RETURNING id`,
		printfulID,
	).Scan(&productID)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to archive product: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE variants SET deleted = TRUE, updated_at = now() WHERE product_id = $1 AND NOT deleted`,
		productID,
	)
	if err != nil {
		return fmt.Errorf("failed to archive product variants: %w", err)
	}

	return tx.Commit()
}

// ClearCatalogImages blanks every image and preview reference on products and
// variants without deleting any rows. Used by the full-clear sync option.
func (r *catalogRepository) ClearCatalogImages(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE products SET image_url = '', extra_image_urls = '[]'::jsonb, updated_at = now()`,
	); err != nil {
		return fmt.Errorf("failed to clear product images: %w", err)
	}

	if _, err := r.db.ExecContext(ctx,
		`UPDATE variants SET image_url = '', design_urls = '[]'::jsonb, updated_at = now()`,
	); err != nil {
		return fmt.Errorf("failed to clear variant images: %w", err)
	}

	return nil
}

const productColumns = `id, printful_id, slug, title, description, price, image_url, extra_image_urls, deleted, created_at, updated_at`

// FindProductByIDOrSlug resolves a product by local uuid or, failing that, by
// its live slug.
func (r *catalogRepository) FindProductByIDOrSlug(ctx context.Context, ref string) (*domain.Product, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return r.findProduct(ctx, `WHERE id = $1`, id)
	}
	return r.findProduct(ctx, `WHERE slug = $1 AND NOT deleted`, ref)
}

// FindProductByPrintfulID resolves a product by its remote natural key.
func (r *catalogRepository) FindProductByPrintfulID(ctx context.Context, printfulID string) (*domain.Product, error) {
	return r.findProduct(ctx, `WHERE printful_id = $1`, printfulID)
}

func (r *catalogRepository) findProduct(ctx context.Context, where string, arg any) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ` + where

	product := &domain.Product{}
	var extraImages []byte
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&product.ID,
		&product.PrintfulID,
		&product.Slug,
		&product.Title,
		&product.Description,
		&product.Price,
		&product.ImageURL,
		&extraImages,
		&product.Deleted,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}

	if err := json.Unmarshal(extraImages, &product.ExtraImageURLs); err != nil {
		return nil, fmt.Errorf("failed to decode extra image urls: %w", err)
	}

	return product, nil
}

// ListVariantsForProduct returns the live variants of a product in insertion
// order. This order is also the tie-break for color-only mockup matching.
func (r *catalogRepository) ListVariantsForProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Variant, error) {
	query := `
		SELECT id, printful_id, product_id, color, size, price, image_url, design_urls, deleted, created_at, updated_at
		FROM variants
		WHERE product_id = $1 AND NOT deleted
		ORDER BY created_at, printful_id
	`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}
	defer rows.Close()

	variants := []*domain.Variant{}
	for rows.Next() {
		variant := &domain.Variant{}
		var designURLs []byte
		err := rows.Scan(
			&variant.ID,
			&variant.PrintfulID,
			&variant.ProductID,
			&variant.Color,
			&variant.Size,
			&variant.Price,
			&variant.ImageURL,
			&designURLs,
			&variant.Deleted,
			&variant.CreatedAt,
			&variant.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		if err := json.Unmarshal(designURLs, &variant.DesignURLs); err != nil {
			return nil, fmt.Errorf("failed to decode design urls: %w", err)
		}
		variants = append(variants, variant)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating variants: %w", err)
	}

	return variants, nil
}

// AcquireSyncLock takes the catalog-scope advisory lock on a dedicated
// connection. ok is false when another run holds it. The returned release
// must be called exactly once when ok is true.
func (r *catalogRepository) AcquireSyncLock(ctx context.Context) (func() error, bool, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open lock connection: %w", err)
	}

	var locked bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, catalogSyncLockKey).Scan(&locked); err != nil {
		conn.Close()
		return nil, false, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !locked {
		conn.Close()
		return nil, false, nil
	}

	release := func() error {
		// Unlock on a background context so cancellation of the run cannot
		// leak the lock.
		_, unlockErr := conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, catalogSyncLockKey)
		closeErr := conn.Close()
		if unlockErr != nil {
			return fmt.Errorf("failed to release sync lock: %w", unlockErr)
		}
		return closeErr
	}

	return release, true, nil
}
