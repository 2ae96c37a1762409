package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// ObjectStore is a content-addressed binary store. Put is put-if-absent: when
// an object already exists under key the call succeeds without rewriting it,
// since content-addressed keys guarantee identical bytes.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType, cacheControl string) (string, error)
}

// Store writes mockup assets to a GCS bucket and serves them through a CDN
// base URL.
type Store struct {
	bucket  *gcs.BucketHandle
	cdnBase string
}

// New creates a Store over the given bucket. cdnBase is the public prefix
// objects are served from (e.g. "https://cdn.example.com/assets").
func New(client *gcs.Client, bucket, cdnBase string) (*Store, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("storage: bucket name is required")
	}
	return &Store{
		bucket:  client.Bucket(bucket),
		cdnBase: cdnBase,
	}, nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte, contentType, cacheControl string) (string, error) {
	key = strings.Trim(key, "/")
	if key == "" {
		return "", errors.New("storage: object key is required")
	}

	obj := s.bucket.Object(key).If(gcs.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = cacheControl

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("storage: failed to write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			// Object already present under this content-addressed key.
			return PublicURL(s.cdnBase, key), nil
		}
		return "", fmt.Errorf("storage: failed to store object %s: %w", key, err)
	}

	return PublicURL(s.cdnBase, key), nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusPreconditionFailed
	}
	return false
}

// PublicURL joins the CDN base and an object key into the canonical public
// URL, collapsing duplicate slashes at the seam.
func PublicURL(cdnBase, key string) string {
	base := strings.TrimRight(cdnBase, "/")
	key = strings.TrimLeft(key, "/")
	if base == "" {
		return "/" + key
	}
	return base + "/" + key
}
