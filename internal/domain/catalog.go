package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog product mirrored from the print-on-demand provider.
// PrintfulID is the remote natural key; all sync writes are keyed by it, never
// by the local id.
type Product struct {
	ID             uuid.UUID `json:"id" db:"id"`
	PrintfulID     string    `json:"printful_id" db:"printful_id"`
	Slug           string    `json:"slug" db:"slug"`
	Title          string    `json:"title" db:"title"`
	Description    string    `json:"description" db:"description"`
	Price          int64     `json:"price" db:"price"` // minor currency units
	ImageURL       string    `json:"image_url" db:"image_url"`
	ExtraImageURLs []string  `json:"extra_image_urls" db:"extra_image_urls"`
	Deleted        bool      `json:"deleted" db:"deleted"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Variant is a purchasable variation of a Product (color/size combination).
type Variant struct {
	ID         uuid.UUID `json:"id" db:"id"`
	PrintfulID string    `json:"printful_id" db:"printful_id"`
	ProductID  uuid.UUID `json:"product_id" db:"product_id"`
	Color      string    `json:"color" db:"color"`
	Size       string    `json:"size" db:"size"`
	Price      int64     `json:"price" db:"price"`
	ImageURL   string    `json:"image_url" db:"image_url"`
	DesignURLs []string  `json:"design_urls" db:"design_urls"`
	Deleted    bool      `json:"deleted" db:"deleted"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// SyncRun statuses.
const (
	SyncRunInProgress = "in-progress"
	SyncRunSuccess    = "success"
	SyncRunFailed     = "failed"
)

// SyncRun is the append-only audit record for one catalog synchronization.
// A row is inserted when the run starts and finalized exactly once; it is
// never touched again after that.
type SyncRun struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	StartedAt         time.Time  `json:"started_at" db:"started_at"`
	FinishedAt        *time.Time `json:"finished_at" db:"finished_at"`
	Status            string     `json:"status" db:"status"`
	Actor             string     `json:"actor" db:"actor"`
	Source            string     `json:"source" db:"source"`
	ClearRequested    bool       `json:"clear_requested" db:"clear_requested"`
	ProductsProcessed int        `json:"products_processed" db:"products_processed"`
	VariantsProcessed int        `json:"variants_processed" db:"variants_processed"`
	ProductsArchived  int        `json:"products_archived" db:"products_archived"`
	VariantsArchived  int        `json:"variants_archived" db:"variants_archived"`
	Error             string     `json:"error,omitempty" db:"error"`
}

// ProductImage sources.
const (
	ImageSourceManual = "manual"
	ImageSourceMockup = "mockup"
)

// ProductImage is a stored visual asset attached to a product and optionally
// to one of its variants. VariantID may point at a variant that was archived
// after the image was imported; that is fine.
type ProductImage struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	ProductID uuid.UUID  `json:"product_id" db:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty" db:"variant_id"`
	URL       string     `json:"url" db:"url"`
	Kind      string     `json:"kind" db:"kind"`
	Placement string     `json:"placement,omitempty" db:"placement"`
	SortIndex int        `json:"sort_index" db:"sort_index"`
	Selected  bool       `json:"selected" db:"selected"`
	Source    string     `json:"source" db:"source"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}
