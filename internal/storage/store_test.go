package storage

import (
	"context"
	"testing"
)

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name    string
		cdnBase string
		key     string
		want    string
	}{
		{"plain join", "https://cdn.example.com", "tee/abc.png", "https://cdn.example.com/tee/abc.png"},
		{"trailing slash on base", "https://cdn.example.com/", "tee/abc.png", "https://cdn.example.com/tee/abc.png"},
		{"leading slash on key", "https://cdn.example.com", "/tee/abc.png", "https://cdn.example.com/tee/abc.png"},
		{"both slashes", "https://cdn.example.com/", "/tee/abc.png", "https://cdn.example.com/tee/abc.png"},
		{"empty base", "", "tee/abc.png", "/tee/abc.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PublicURL(tt.cdnBase, tt.key); got != tt.want {
				t.Errorf("PublicURL(%q, %q) = %q, want %q", tt.cdnBase, tt.key, got, tt.want)
			}
		})
	}
}

func TestMemoryStorePutIsIdempotent(t *testing.T) {
	store := NewMemoryStore("https://cdn.example.com")
	ctx := context.Background()

	url1, err := store.Put(ctx, "tee/abc-front.png", []byte("bytes"), "image/png", "public, max-age=31536000")
	if err != nil {
		t.Fatalf("first Put failed: %v", err)
	}
	url2, err := store.Put(ctx, "tee/abc-front.png", []byte("bytes"), "image/png", "public, max-age=31536000")
	if err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	if url1 != url2 {
		t.Errorf("expected stable URL, got %q then %q", url1, url2)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 stored object, got %d", store.Len())
	}
}
