package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"merchbase/internal/domain"
	"merchbase/internal/printful"
	"merchbase/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

var (
	ErrSyncInProgress = errors.New("a catalog sync is already running")
)

// SyncOptions parameterize one synchronization run.
type SyncOptions struct {
	Clear  bool
	Actor  string
	Source string
}

// SyncService mirrors the remote catalog into local storage. Run performs a
// full-catalog reconciliation; SyncOne and ArchiveOne are the narrower
// single-product paths used by provider webhooks.
type SyncService interface {
	Run(ctx context.Context, opts SyncOptions) (*domain.SyncRun, error)
	SyncOne(ctx context.Context, printfulID string) error
	ArchiveOne(ctx context.Context, printfulID string) error
	ListRuns(ctx context.Context, limit int) ([]*domain.SyncRun, error)
}

type syncService struct {
	client      printful.Client
	catalog     repository.CatalogRepository
	runs        repository.SyncRunRepository
	logger      *zap.Logger
	concurrency int
}

// NewSyncService creates a new instance of SyncService. concurrency bounds
// the parallel per-product detail fetches.
func NewSyncService(
	client printful.Client,
	catalog repository.CatalogRepository,
	runs repository.SyncRunRepository,
	logger *zap.Logger,
	concurrency int,
) SyncService {
	if concurrency < 1 {
		concurrency = 4
	}
	return &syncService{
		client:      client,
		catalog:     catalog,
		runs:        runs,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Run executes one synchronization run end to end. A terminal SyncRun record
// is guaranteed on every path, including cancellation. A detail-fetch
// failure for a single product is logged and skipped so one flaky product
// cannot starve the rest of the catalog; repository failures abort the run.
func (s *syncService) Run(ctx context.Context, opts SyncOptions) (*domain.SyncRun, error) {
	release, ok, err := s.catalog.AcquireSyncLock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !ok {
		return nil, ErrSyncInProgress
	}
	defer release()

	run := &domain.SyncRun{
		ID:             uuid.New(),
		StartedAt:      time.Now().UTC(),
		Status:         domain.SyncRunInProgress,
		Actor:          opts.Actor,
		Source:         opts.Source,
		ClearRequested: opts.Clear,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record sync run: %w", err)
	}

	if err := s.execute(ctx, run, opts); err != nil {
		s.finalize(run, domain.SyncRunFailed, err.Error())
		return run, err
	}

	s.finalize(run, domain.SyncRunSuccess, "")
	return run, nil
}

// finalize writes the terminal record. It deliberately does not use the
// caller's context: a cancelled run must still leave a finalized row behind.
func (s *syncService) finalize(run *domain.SyncRun, status, message string) {
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Status = status
	run.Error = message

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.runs.Finalize(ctx, run); err != nil {
		s.logger.Error("Failed to finalize sync run",
			zap.String("run_id", run.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *syncService) execute(ctx context.Context, run *domain.SyncRun, opts SyncOptions) error {
	if opts.Clear {
		if err := s.catalog.ClearCatalogImages(ctx); err != nil {
			return err
		}
		s.logger.Info("Cleared catalog image references before sync")
	}

	summaries, err := s.client.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list remote products: %w", err)
	}
	s.logger.Info("Fetched remote product list", zap.Int("products", len(summaries)))

	// Per-product processing is independent; detail fetches run under a
	// bounded worker pool. The archival step below requires the full seen
	// sets, so it only runs after the barrier.
	workCtx, cancelWork := context.WithCancel(ctx)
	defer cancelWork()

	var (
		mu           sync.Mutex
		seenProducts []string
		seenVariants []string
		skipped      int
		abortErr     error
	)

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for _, summary := range summaries {
		summary := summary
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if workCtx.Err() != nil {
				return
			}

			remote, err := s.client.GetProduct(workCtx, summary.ID)
			if err != nil {
				if workCtx.Err() != nil {
					return
				}
				// Skip-and-continue: one unreachable product must not fail
				// the whole run. It is still in the remote listing, so it
				// and its known variants stay out of the archival sweep.
				protect := s.localVariantKeys(workCtx, summary.ID)
				mu.Lock()
				defer mu.Unlock()
				skipped++
				seenProducts = append(seenProducts, summary.ID)
				seenVariants = append(seenVariants, protect...)
				s.logger.Error("Skipping product after detail-fetch failure",
					zap.String("printful_id", summary.ID),
					zap.Error(err),
				)
				return
			}

			variantIDs, err := s.persistRemoteProduct(workCtx, remote)
			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				if abortErr == nil && workCtx.Err() == nil {
					abortErr = err
				}
				cancelWork()
				return
			}

			run.ProductsProcessed++
			run.VariantsProcessed += len(variantIDs)
			seenProducts = append(seenProducts, summary.ID)
			seenVariants = append(seenVariants, variantIDs...)
		}()
	}
	wg.Wait()

	if abortErr != nil {
		return abortErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if skipped > 0 {
		s.logger.Warn("Sync run skipped products", zap.Int("skipped", skipped))
	}

	// Archive-by-exclusion: everything not seen this run is discontinued.
	productsArchived, err := s.catalog.ArchiveProductsNotIn(ctx, seenProducts)
	if err != nil {
		return err
	}
	variantsArchived, err := s.catalog.ArchiveVariantsNotIn(ctx, seenVariants)
	if err != nil {
		return err
	}
	run.ProductsArchived = int(productsArchived)
	run.VariantsArchived = int(variantsArchived)

	s.logger.Info("Catalog sync completed",
		zap.Int("products_processed", run.ProductsProcessed),
		zap.Int("variants_processed", run.VariantsProcessed),
		zap.Int64("products_archived", productsArchived),
		zap.Int64("variants_archived", variantsArchived),
		zap.Int("skipped", skipped),
	)

	return nil
}

// localVariantKeys returns the natural keys of a product's locally-known
// variants, or nothing if the product has never been mirrored.
func (s *syncService) localVariantKeys(ctx context.Context, printfulID string) []string {
	product, err := s.catalog.FindProductByPrintfulID(ctx, printfulID)
	if err != nil {
		return nil
	}
	variants, err := s.catalog.ListVariantsForProduct(ctx, product.ID)
	if err != nil {
		return nil
	}
	keys := make([]string, 0, len(variants))
	for _, v := range variants {
		keys = append(keys, v.PrintfulID)
	}
	return keys
}

// persistRemoteProduct upserts one fetched product with all its variants.
// Returns the variant natural keys that were seen.
func (s *syncService) persistRemoteProduct(ctx context.Context, remote *printful.RemoteProduct) ([]string, error) {
	product, err := s.upsertRemoteProduct(ctx, remote)
	if err != nil {
		return nil, err
	}

	variantIDs := make([]string, 0, len(remote.Variants))
	for _, rv := range remote.Variants {
		variant := &domain.Variant{
			PrintfulID: rv.ID,
			ProductID:  product.ID,
			Color:      rv.Color,
			Size:       rv.Size,
			Price:      rv.Price,
			ImageURL:   rv.ImageURL,
			DesignURLs: rv.DesignURLs,
		}
		if variant.DesignURLs == nil {
			variant.DesignURLs = []string{}
		}
		if err := s.catalog.UpsertVariant(ctx, variant); err != nil {
			return nil, err
		}
		variantIDs = append(variantIDs, rv.ID)
	}

	return variantIDs, nil
}

func (s *syncService) upsertRemoteProduct(ctx context.Context, remote *printful.RemoteProduct) (*domain.Product, error) {
	product := &domain.Product{
		PrintfulID:     remote.ID,
		Slug:           Slugify(remote.Name),
		Title:          remote.Name,
		Description:    remote.Description,
		Price:          minVariantPrice(remote.Variants),
		ImageURL:       remote.ThumbnailURL,
		ExtraImageURLs: []string{},
	}

	err := s.catalog.UpsertProduct(ctx, product)
	if isUniqueViolation(err) {
		// Another live product already owns this slug; disambiguate with
		// the natural key.
		product.Slug = product.Slug + "-" + remote.ID
		err = s.catalog.UpsertProduct(ctx, product)
	}
	if err != nil {
		return nil, err
	}

	return product, nil
}

// SyncOne upserts a single product and reconciles its variants; scoped form
// of the full run used by provider webhooks.
func (s *syncService) SyncOne(ctx context.Context, printfulID string) error {
	remote, err := s.client.GetProduct(ctx, printfulID)
	if err != nil {
		return err
	}

	variantIDs, err := s.persistRemoteProduct(ctx, remote)
	if err != nil {
		return err
	}

	product, err := s.catalog.FindProductByPrintfulID(ctx, printfulID)
	if err != nil {
		return err
	}

	archived, err := s.catalog.ArchiveVariantsOfProductNotIn(ctx, product.ID, variantIDs)
	if err != nil {
		return err
	}

	s.logger.Info("Synced single product",
		zap.String("printful_id", printfulID),
		zap.Int("variants", len(variantIDs)),
		zap.Int64("variants_archived", archived),
	)
	return nil
}

// ArchiveOne soft-deletes a product and its variants after a provider
// deletion notification.
func (s *syncService) ArchiveOne(ctx context.Context, printfulID string) error {
	return s.catalog.ArchiveProductByPrintfulID(ctx, printfulID)
}

func (s *syncService) ListRuns(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	return s.runs.List(ctx, limit)
}

// minVariantPrice computes the product base price: the minimum variant
// price, or 0 for a variant-less product. The zero is a defined fallback,
// not an error.
func minVariantPrice(variants []printful.RemoteVariant) int64 {
	if len(variants) == 0 {
		return 0
	}
	min := variants[0].Price
	for _, v := range variants[1:] {
		if v.Price < min {
			min = v.Price
		}
	}
	return min
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Slugify derives a URL-safe slug from a product title.
func Slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
