package printful

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"merchbase/internal/config"

	"golang.org/x/time/rate"
)

const listPageSize = 100

// APIError is returned for any non-2xx provider response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("printful request failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("printful request failed: status %d: %s", e.StatusCode, e.Message)
}

// Client defines the remote catalog operations used by the sync engine.
// ListProducts pages through the full store listing internally; callers see a
// single logical list.
type Client interface {
	ListProducts(ctx context.Context) ([]RemoteProductSummary, error)
	GetProduct(ctx context.Context, id string) (*RemoteProduct, error)
}

type client struct {
	cfg        config.PrintfulConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Printful store API client. Requests are throttled to
// cfg.RequestsPerMin and authenticated with the configured bearer token.
func NewClient(cfg config.PrintfulConfig, httpClient *http.Client) Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	rpm := cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = 120
	}

	return &client{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm/10+1),
	}
}

func (c *client) ListProducts(ctx context.Context) ([]RemoteProductSummary, error) {
	var all []RemoteProductSummary

	offset := 0
	total := 1
	for offset < total {
		var env apiEnvelope[[]syncProductSummary]
		path := fmt.Sprintf("/store/products?offset=%d&limit=%d", offset, listPageSize)
		if err := c.get(ctx, path, &env); err != nil {
			return nil, err
		}

		for _, p := range env.Result {
			all = append(all, RemoteProductSummary{
				ID:           strconv.FormatInt(p.ID, 10),
				Name:         p.Name,
				ThumbnailURL: p.ThumbnailURL,
			})
		}

		if env.Paging != nil {
			total = env.Paging.Total
		} else {
			total = len(all)
		}
		offset += listPageSize
	}

	return all, nil
}

func (c *client) GetProduct(ctx context.Context, id string) (*RemoteProduct, error) {
	var env apiEnvelope[syncProductDetail]
	if err := c.get(ctx, "/store/products/"+url.PathEscape(id), &env); err != nil {
		return nil, err
	}

	detail := env.Result
	product := &RemoteProduct{
		ID:           strconv.FormatInt(detail.SyncProduct.ID, 10),
		Name:         detail.SyncProduct.Name,
		ThumbnailURL: detail.SyncProduct.ThumbnailURL,
	}

	for _, v := range detail.SyncVariants {
		product.Variants = append(product.Variants, normalizeVariant(detail.SyncProduct.Name, v))
	}

	return product, nil
}

func normalizeVariant(productName string, v syncVariant) RemoteVariant {
	color, size := v.Color, v.Size
	if color == "" && size == "" {
		color, size = parseVariantName(productName, v.Name)
	}

	out := RemoteVariant{
		ID:       strconv.FormatInt(v.ID, 10),
		Color:    color,
		Size:     size,
		Price:    parseMinorUnits(v.RetailPrice),
		ImageURL: v.Product.Image,
	}

	for _, f := range v.Files {
		if f.Type == "preview" && f.PreviewURL != "" {
			out.DesignURLs = append(out.DesignURLs, f.PreviewURL)
		}
	}
	if out.ImageURL == "" && len(out.DesignURLs) > 0 {
		out.ImageURL = out.DesignURLs[0]
	}

	return out
}

// parseVariantName extracts color and size from a sync variant name of the
// form "Product name - Color / Size". Either part may be missing.
func parseVariantName(productName, variantName string) (color, size string) {
	rest := variantName
	if productName != "" {
		rest = strings.TrimPrefix(rest, productName)
	}
	rest = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), "-"))
	if rest == "" {
		return "", ""
	}

	parts := strings.SplitN(rest, "/", 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(parts[0]), ""
}

// parseMinorUnits converts a provider decimal price string ("24.50") into
// minor currency units. Malformed prices map to 0.
func parseMinorUnits(price string) int64 {
	price = strings.TrimSpace(price)
	if price == "" {
		return 0
	}

	whole, frac, _ := strings.Cut(price, ".")
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0
	}

	frac = frac + "00"
	cents, err := strconv.ParseInt(frac[:2], 10, 64)
	if err != nil {
		return units * 100
	}

	return units*100 + cents
}

func (c *client) get(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if c.cfg.StoreID != "" {
		req.Header.Set("X-PF-Store-Id", c.cfg.StoreID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var env apiEnvelope[json.RawMessage]
		if json.Unmarshal(body, &env) == nil && env.Error != nil {
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode printful response: %w", err)
	}

	return nil
}
