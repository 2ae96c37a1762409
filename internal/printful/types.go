package printful

// Wire shapes for the Printful store API (v1). Only the fields the sync
// engine reads are decoded.

type apiEnvelope[T any] struct {
	Code   int     `json:"code"`
	Result T       `json:"result"`
	Paging *paging `json:"paging,omitempty"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type paging struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

type syncProductSummary struct {
	ID           int64  `json:"id"`
	ExternalID   string `json:"external_id"`
	Name         string `json:"name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

type syncProductDetail struct {
	SyncProduct  syncProductSummary `json:"sync_product"`
	SyncVariants []syncVariant      `json:"sync_variants"`
}

type syncVariant struct {
	ID          int64  `json:"id"`
	ExternalID  string `json:"external_id"`
	Name        string `json:"name"`
	RetailPrice string `json:"retail_price"`
	Currency    string `json:"currency"`
	Color       string `json:"color"`
	Size        string `json:"size"`
	Product     struct {
		Image string `json:"image"`
		Name  string `json:"name"`
	} `json:"product"`
	Files []syncFile `json:"files"`
}

type syncFile struct {
	Type       string `json:"type"`
	URL        string `json:"url"`
	PreviewURL string `json:"preview_url"`
}

// RemoteProductSummary is one row of the paginated product listing.
type RemoteProductSummary struct {
	ID           string
	Name         string
	ThumbnailURL string
}

// RemoteProduct is the normalized detail shape consumed by the sync engine.
type RemoteProduct struct {
	ID           string
	Name         string
	Description  string
	ThumbnailURL string
	Variants     []RemoteVariant
}

// RemoteVariant is a normalized sync variant. Price is in minor currency
// units. Color and size may be empty; the provider does not guarantee them.
type RemoteVariant struct {
	ID         string
	Color      string
	Size       string
	Price      int64
	ImageURL   string
	DesignURLs []string
}
