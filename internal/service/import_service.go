package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"

	"merchbase/internal/archive"
	"merchbase/internal/domain"
	"merchbase/internal/mockup"
	"merchbase/internal/repository"
	"merchbase/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Import modes.
const (
	ImportModeAppend  = "append"
	ImportModeReplace = "replace"
)

// Cache directive for uploaded mockups. Keys are content-addressed, so the
// bytes under a key never change.
const mockupCacheControl = "public, max-age=31536000, immutable"

var ErrInvalidImportMode = errors.New("import mode must be append or replace")

var imageContentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// ImportOptions parameterize one mockup archive import.
type ImportOptions struct {
	ProductRef string // local uuid or slug
	Archive    []byte
	Mode       string // append (default) or replace
	DryRun     bool
}

// ImportedImage is one classified image in the import result. URL is empty
// on dry runs, where nothing is uploaded.
type ImportedImage struct {
	Key       string     `json:"key"`
	URL       string     `json:"url,omitempty"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Placement string     `json:"placement,omitempty"`
	SortIndex int        `json:"sort_index"`
}

// ImportResult summarizes one import. ImportedCount is zero when no archive
// entry survived filtering; that is a success, not an error.
type ImportResult struct {
	ImportedCount   int             `json:"imported_count"`
	ManifestApplied bool            `json:"manifest_applied"`
	Images          []ImportedImage `json:"images"`
}

// ImportService ingests mockup ZIP archives and attaches the contained
// images to a product.
type ImportService interface {
	Import(ctx context.Context, opts ImportOptions) (*ImportResult, error)
}

type importService struct {
	catalog repository.CatalogRepository
	images  repository.ImageRepository
	store   storage.ObjectStore
	logger  *zap.Logger
}

// NewImportService creates a new instance of ImportService.
func NewImportService(
	catalog repository.CatalogRepository,
	images repository.ImageRepository,
	store storage.ObjectStore,
	logger *zap.Logger,
) ImportService {
	return &importService{
		catalog: catalog,
		images:  images,
		store:   store,
		logger:  logger,
	}
}

// Import runs the full pipeline: extract, hash, upload, classify, persist.
// A dry run performs extraction and classification but touches neither the
// object store nor the database.
func (s *importService) Import(ctx context.Context, opts ImportOptions) (*ImportResult, error) {
	mode := opts.Mode
	if mode == "" {
		mode = ImportModeAppend
	}
	if mode != ImportModeAppend && mode != ImportModeReplace {
		return nil, ErrInvalidImportMode
	}

	product, err := s.catalog.FindProductByIDOrSlug(ctx, opts.ProductRef)
	if err != nil {
		return nil, err
	}
	variants, err := s.catalog.ListVariantsForProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	refs := make([]mockup.VariantRef, 0, len(variants))
	for _, v := range variants {
		refs = append(refs, mockup.VariantRef{
			ID:         v.ID,
			PrintfulID: v.PrintfulID,
			Color:      v.Color,
			Size:       v.Size,
		})
	}

	entries, err := archive.Extract(opts.Archive)
	if err != nil {
		return nil, fmt.Errorf("failed to read mockup archive: %w", err)
	}

	manifest := s.parseManifest(entries, refs)

	images, err := s.processEntries(ctx, product, entries, opts.DryRun)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		ManifestApplied: manifest.Len() > 0,
		Images:          []ImportedImage{},
	}
	if len(images) == 0 {
		return result, nil
	}

	// Unresolved sort indexes continue after the current selected maximum in
	// append mode and start at zero in replace mode. Explicit indexes keep
	// their value when free and shift up by probing when taken.
	used := map[int]bool{}
	next := 0
	if mode == ImportModeAppend {
		max, err := s.images.MaxSelectedSortIndex(ctx, product.ID)
		if err != nil {
			return nil, err
		}
		used, err = s.images.SelectedSortIndexes(ctx, product.ID)
		if err != nil {
			return nil, err
		}
		next = max + 1
	}

	records := make([]repository.ImageRecord, 0, len(images))
	for _, img := range images {
		meta := mockup.Resolve(img.path, manifest, refs, next)
		idx := meta.SortIndex
		for used[idx] {
			idx++
		}
		used[idx] = true
		if !meta.ExplicitSort {
			next = idx + 1
		}

		records = append(records, repository.ImageRecord{
			URL:       img.url,
			VariantID: meta.VariantID,
			Kind:      "mockup",
			Placement: meta.Placement,
			SortIndex: idx,
		})
		result.Images = append(result.Images, ImportedImage{
			Key:       img.key,
			URL:       img.url,
			VariantID: meta.VariantID,
			Placement: meta.Placement,
			SortIndex: idx,
		})
	}
	result.ImportedCount = len(records)

	if opts.DryRun {
		return result, nil
	}

	if err := s.images.ApplyImport(ctx, product.ID, mode == ImportModeReplace, records); err != nil {
		return nil, err
	}

	s.logger.Info("Imported mockup archive",
		zap.String("product_id", product.ID.String()),
		zap.String("mode", mode),
		zap.Int("images", result.ImportedCount),
		zap.Bool("manifest", result.ManifestApplied),
	)

	return result, nil
}

// parseManifest finds and parses the sidecar manifest. A malformed manifest
// is logged and ignored so it can never abort an import.
func (s *importService) parseManifest(entries []archive.Entry, refs []mockup.VariantRef) *mockup.Manifest {
	for _, entry := range entries {
		if archive.BaseName(entry.Path) != mockup.ManifestFileName {
			continue
		}
		manifest, err := mockup.ParseManifest(entry.Data, refs)
		if err != nil {
			s.logger.Warn("Ignoring malformed mockup manifest",
				zap.String("path", entry.Path),
				zap.Error(err),
			)
			return nil
		}
		return manifest
	}
	return nil
}

type processedImage struct {
	path string // sanitized archive path, classification input
	key  string
	url  string
}

// processEntries hashes and uploads the image entries, collapsing
// content-identical files to one record per storage key. Entry order is
// preserved for the first occurrence of each key.
func (s *importService) processEntries(ctx context.Context, product *domain.Product, entries []archive.Entry, dryRun bool) ([]processedImage, error) {
	seen := make(map[string]bool)
	var images []processedImage

	for _, entry := range entries {
		base := archive.BaseName(entry.Path)
		if base == mockup.ManifestFileName {
			continue
		}
		contentType, ok := imageContentTypes[strings.ToLower(path.Ext(base))]
		if !ok {
			continue
		}

		sum := sha256.Sum256(entry.Data)
		hash := hex.EncodeToString(sum[:])[:12]
		key := fmt.Sprintf("%s/%s-%s", product.Slug, hash, base)
		if seen[key] {
			continue
		}
		seen[key] = true

		img := processedImage{path: entry.Path, key: key}
		if !dryRun {
			url, err := s.store.Put(ctx, key, entry.Data, contentType, mockupCacheControl)
			if err != nil {
				return nil, fmt.Errorf("failed to store mockup %s: %w", entry.Path, err)
			}
			img.url = url
		}
		images = append(images, img)
	}

	return images, nil
}
