package printful

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"merchbase/internal/config"
)

func testConfig(baseURL string) config.PrintfulConfig {
	return config.PrintfulConfig{
		BaseURL:        baseURL,
		Token:          "test-token",
		StoreID:        "42",
		Timeout:        5 * time.Second,
		RequestsPerMin: 6000,
	}
}

func TestListProductsPaginates(t *testing.T) {
	var requests []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.RawQuery)

		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		if got := r.Header.Get("X-PF-Store-Id"); got != "42" {
			t.Errorf("unexpected store header: %q", got)
		}

		offset := r.URL.Query().Get("offset")
		w.Header().Set("Content-Type", "application/json")
		if offset == "0" {
			fmt.Fprintf(w, `{"code":200,"result":[`)
			for i := 0; i < 100; i++ {
				if i > 0 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprintf(w, `{"id":%d,"name":"Product %d"}`, i+1, i+1)
			}
			fmt.Fprintf(w, `],"paging":{"total":130,"offset":0,"limit":100}}`)
			return
		}
		fmt.Fprintf(w, `{"code":200,"result":[`)
		for i := 100; i < 130; i++ {
			if i > 100 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"id":%d,"name":"Product %d"}`, i+1, i+1)
		}
		fmt.Fprintf(w, `],"paging":{"total":130,"offset":100,"limit":100}}`)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), srv.Client())

	products, err := c.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("ListProducts returned error: %v", err)
	}

	if len(products) != 130 {
		t.Errorf("expected 130 products, got %d", len(products))
	}
	if len(requests) != 2 {
		t.Errorf("expected 2 page requests, got %d: %v", len(requests), requests)
	}
	if products[0].ID != "1" || products[129].ID != "130" {
		t.Errorf("unexpected product ids: first=%s last=%s", products[0].ID, products[129].ID)
	}
}

func TestGetProductNormalizesVariants(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/store/products/7" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"code":200,"result":{
			"sync_product":{"id":7,"name":"Logo Tee","thumbnail_url":"https://cdn/x.png"},
			"sync_variants":[
				{"id":71,"name":"Logo Tee - Black / L","retail_price":"24.50",
				 "product":{"image":"https://cdn/black-l.png"},
				 "files":[{"type":"default","url":"https://a"},{"type":"preview","preview_url":"https://cdn/preview1.png"}]},
				{"id":72,"name":"Logo Tee - Heather Grey","retail_price":"bogus","color":"","size":"",
				 "product":{"image":""},"files":[]}
			]}}`)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), srv.Client())

	product, err := c.GetProduct(context.Background(), "7")
	if err != nil {
		t.Fatalf("GetProduct returned error: %v", err)
	}

	if product.ID != "7" || product.Name != "Logo Tee" {
		t.Errorf("unexpected product: %+v", product)
	}
	if len(product.Variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(product.Variants))
	}

	v := product.Variants[0]
	if v.ID != "71" || v.Color != "Black" || v.Size != "L" {
		t.Errorf("unexpected variant normalization: %+v", v)
	}
	if v.Price != 2450 {
		t.Errorf("expected price 2450, got %d", v.Price)
	}
	if len(v.DesignURLs) != 1 || v.DesignURLs[0] != "https://cdn/preview1.png" {
		t.Errorf("unexpected design urls: %v", v.DesignURLs)
	}

	v2 := product.Variants[1]
	if v2.Color != "Heather Grey" || v2.Size != "" {
		t.Errorf("expected color-only variant, got %+v", v2)
	}
	if v2.Price != 0 {
		t.Errorf("malformed price should map to 0, got %d", v2.Price)
	}
}

func TestGetProductErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"code":503,"result":null,"error":{"message":"maintenance"}}`)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), srv.Client())

	_, err := c.GetProduct(context.Background(), "7")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable || apiErr.Message != "maintenance" {
		t.Errorf("unexpected api error: %+v", apiErr)
	}
}

func TestParseMinorUnits(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"24.50", 2450},
		{"24", 2400},
		{"24.5", 2450},
		{"0.99", 99},
		{"", 0},
		{"free", 0},
	}

	for _, tt := range tests {
		if got := parseMinorUnits(tt.in); got != tt.want {
			t.Errorf("parseMinorUnits(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
