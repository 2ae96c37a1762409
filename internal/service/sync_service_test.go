package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"merchbase/internal/domain"
	"merchbase/internal/printful"
	"merchbase/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mock provider client and repositories for testing

type mockPrintfulClient struct {
	mu       sync.Mutex
	products []*printful.RemoteProduct
	failIDs  map[string]error
	listErr  error
}

func (m *mockPrintfulClient) ListProducts(ctx context.Context) ([]printful.RemoteProductSummary, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	summaries := make([]printful.RemoteProductSummary, 0, len(m.products))
	for _, p := range m.products {
		summaries = append(summaries, printful.RemoteProductSummary{
			ID:           p.ID,
			Name:         p.Name,
			ThumbnailURL: p.ThumbnailURL,
		})
	}
	return summaries, nil
}

func (m *mockPrintfulClient) GetProduct(ctx context.Context, id string) (*printful.RemoteProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failIDs[id]; ok {
		return nil, err
	}
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, &printful.APIError{StatusCode: 404, Message: "not found"}
}

type mockCatalogRepository struct {
	mu       sync.Mutex
	products map[string]*domain.Product // by printful id
	variants map[string]*domain.Variant // by printful id
	locked   bool
}

func newMockCatalogRepository() *mockCatalogRepository {
	return &mockCatalogRepository{
		products: make(map[string]*domain.Product),
		variants: make(map[string]*domain.Variant),
	}
}

func (m *mockCatalogRepository) UpsertProduct(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.products[product.PrintfulID]; ok {
		product.ID = existing.ID
	} else if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	copied := *product
	copied.Deleted = false
	m.products[product.PrintfulID] = &copied
	return nil
}

func (m *mockCatalogRepository) UpsertVariant(ctx context.Context, variant *domain.Variant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.variants[variant.PrintfulID]; ok {
		variant.ID = existing.ID
	} else if variant.ID == uuid.Nil {
		variant.ID = uuid.New()
	}
	copied := *variant
	copied.Deleted = false
	m.variants[variant.PrintfulID] = &copied
	return nil
}

func (m *mockCatalogRepository) ArchiveProductsNotIn(ctx context.Context, seen []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keep := make(map[string]bool, len(seen))
	for _, id := range seen {
		keep[id] = true
	}
	var archived int64
	for id, p := range m.products {
		if !keep[id] && !p.Deleted {
			p.Deleted = true
			archived++
		}
	}
	return archived, nil
}

func (m *mockCatalogRepository) ArchiveVariantsNotIn(ctx context.Context, seen []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keep := make(map[string]bool, len(seen))
	for _, id := range seen {
		keep[id] = true
	}
	var archived int64
	for id, v := range m.variants {
		if !keep[id] && !v.Deleted {
			v.Deleted = true
			archived++
		}
	}
	return archived, nil
}

func (m *mockCatalogRepository) ArchiveVariantsOfProductNotIn(ctx context.Context, productID uuid.UUID, seen []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keep := make(map[string]bool, len(seen))
	for _, id := range seen {
		keep[id] = true
	}
	var archived int64
	for id, v := range m.variants {
		if v.ProductID == productID && !keep[id] && !v.Deleted {
			v.Deleted = true
			archived++
		}
	}
	return archived, nil
}

func (m *mockCatalogRepository) ArchiveProductByPrintfulID(ctx context.Context, printfulID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[printfulID]
	if !ok {
		return repository.ErrProductNotFound
	}
	product.Deleted = true
	for _, v := range m.variants {
		if v.ProductID == product.ID {
			v.Deleted = true
		}
	}
	return nil
}

func (m *mockCatalogRepository) ClearCatalogImages(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		p.ImageURL = ""
		p.ExtraImageURLs = nil
	}
	for _, v := range m.variants {
		v.ImageURL = ""
	}
	return nil
}

func (m *mockCatalogRepository) FindProductByIDOrSlug(ctx context.Context, ref string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if !p.Deleted && (p.ID.String() == ref || p.Slug == ref) {
			return p, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (m *mockCatalogRepository) FindProductByPrintfulID(ctx context.Context, printfulID string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[printfulID]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (m *mockCatalogRepository) ListVariantsForProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Variant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Variant
	for _, v := range m.variants {
		if v.ProductID == productID && !v.Deleted {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *mockCatalogRepository) AcquireSyncLock(ctx context.Context) (func() error, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked {
		return nil, false, nil
	}
	m.locked = true
	return func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.locked = false
		return nil
	}, true, nil
}

type mockSyncRunRepository struct {
	mu   sync.Mutex
	runs []*domain.SyncRun
}

func (m *mockSyncRunRepository) Create(ctx context.Context, run *domain.SyncRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *run
	m.runs = append(m.runs, &copied)
	return nil
}

func (m *mockSyncRunRepository) Finalize(ctx context.Context, run *domain.SyncRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.runs {
		if existing.ID == run.ID {
			if existing.Status != domain.SyncRunInProgress {
				return repository.ErrSyncRunFinalized
			}
			copied := *run
			m.runs[i] = &copied
			return nil
		}
	}
	return repository.ErrSyncRunFinalized
}

func (m *mockSyncRunRepository) List(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.SyncRun, len(m.runs))
	copy(out, m.runs)
	return out, nil
}

func remoteTee() *printful.RemoteProduct {
	return &printful.RemoteProduct{
		ID:           "p-100",
		Name:         "Classic Tee",
		Description:  "A classic tee.",
		ThumbnailURL: "https://cdn.example.com/tee.png",
		Variants: []printful.RemoteVariant{
			{ID: "v-101", Color: "Red", Size: "M", Price: 2450},
			{ID: "v-102", Color: "Red", Size: "L", Price: 1999},
		},
	}
}

func remoteMug() *printful.RemoteProduct {
	return &printful.RemoteProduct{
		ID:           "p-200",
		Name:         "Coffee Mug",
		ThumbnailURL: "https://cdn.example.com/mug.png",
		Variants: []printful.RemoteVariant{
			{ID: "v-201", Color: "White", Size: "11oz", Price: 1500},
		},
	}
}

func newTestSyncService(client printful.Client, catalog repository.CatalogRepository, runs repository.SyncRunRepository) SyncService {
	return NewSyncService(client, catalog, runs, zap.NewNop(), 2)
}

func TestRunMirrorsCatalog(t *testing.T) {
	client := &mockPrintfulClient{products: []*printful.RemoteProduct{remoteTee(), remoteMug()}}
	catalog := newMockCatalogRepository()
	runs := &mockSyncRunRepository{}
	svc := newTestSyncService(client, catalog, runs)

	run, err := svc.Run(context.Background(), SyncOptions{Actor: "admin@example.com", Source: "dashboard"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if run.Status != domain.SyncRunSuccess {
		t.Errorf("Expected status %q, got %q", domain.SyncRunSuccess, run.Status)
	}
	if run.ProductsProcessed != 2 {
		t.Errorf("Expected 2 products processed, got %d", run.ProductsProcessed)
	}
	if run.VariantsProcessed != 3 {
		t.Errorf("Expected 3 variants processed, got %d", run.VariantsProcessed)
	}
	if run.FinishedAt == nil {
		t.Error("Expected run to be finalized")
	}

	tee, err := catalog.FindProductByPrintfulID(context.Background(), "p-100")
	if err != nil {
		t.Fatalf("Expected tee to be mirrored: %v", err)
	}
	if tee.Slug != "classic-tee" {
		t.Errorf("Expected slug classic-tee, got %q", tee.Slug)
	}
	if tee.Price != 1999 {
		t.Errorf("Expected product price to be minimum variant price 1999, got %d", tee.Price)
	}

	stored, err := runs.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(stored) != 1 || stored[0].Status != domain.SyncRunSuccess {
		t.Errorf("Expected one finalized success run, got %+v", stored)
	}
}

func TestRunArchivesMissingProducts(t *testing.T) {
	client := &mockPrintfulClient{products: []*printful.RemoteProduct{remoteTee(), remoteMug()}}
	catalog := newMockCatalogRepository()
	runs := &mockSyncRunRepository{}
	svc := newTestSyncService(client, catalog, runs)

	if _, err := svc.Run(context.Background(), SyncOptions{}); err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	// The mug disappears upstream.
	client.products = []*printful.RemoteProduct{remoteTee()}

	run, err := svc.Run(context.Background(), SyncOptions{})
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if run.ProductsArchived != 1 {
		t.Errorf("Expected 1 product archived, got %d", run.ProductsArchived)
	}
	if run.VariantsArchived != 1 {
		t.Errorf("Expected 1 variant archived, got %d", run.VariantsArchived)
	}
	if mug := catalog.products["p-200"]; !mug.Deleted {
		t.Error("Expected mug to be soft-deleted")
	}
	if tee := catalog.products["p-100"]; tee.Deleted {
		t.Error("Expected tee to stay live")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	client := &mockPrintfulClient{products: []*printful.RemoteProduct{remoteTee()}}
	catalog := newMockCatalogRepository()
	runs := &mockSyncRunRepository{}
	svc := newTestSyncService(client, catalog, runs)

	first, err := svc.Run(context.Background(), SyncOptions{})
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	firstID := catalog.products["p-100"].ID

	second, err := svc.Run(context.Background(), SyncOptions{})
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if catalog.products["p-100"].ID != firstID {
		t.Error("Expected re-sync to keep the local product id")
	}
	if second.ProductsArchived != 0 || second.VariantsArchived != 0 {
		t.Errorf("Expected nothing archived on identical re-run, got %d/%d",
			second.ProductsArchived, second.VariantsArchived)
	}
	if first.ProductsProcessed != second.ProductsProcessed {
		t.Error("Expected identical processed counts across identical runs")
	}
	if len(catalog.variants) != 2 {
		t.Errorf("Expected 2 variants total, got %d", len(catalog.variants))
	}
}

func TestRunSkipsFailingProduct(t *testing.T) {
	client := &mockPrintfulClient{
		products: []*printful.RemoteProduct{remoteTee(), remoteMug()},
		failIDs: map[string]error{
			"p-100": &printful.APIError{StatusCode: 503, Message: "upstream unavailable"},
		},
	}
	catalog := newMockCatalogRepository()
	runs := &mockSyncRunRepository{}
	svc := newTestSyncService(client, catalog, runs)

	run, err := svc.Run(context.Background(), SyncOptions{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if run.Status != domain.SyncRunSuccess {
		t.Errorf("Expected success despite one failing product, got %q", run.Status)
	}
	if run.ProductsProcessed != 1 {
		t.Errorf("Expected 1 product processed, got %d", run.ProductsProcessed)
	}
	if _, err := catalog.FindProductByPrintfulID(context.Background(), "p-200"); err != nil {
		t.Error("Expected the healthy product to be mirrored")
	}
}

func TestRunDoesNotArchiveSkippedProduct(t *testing.T) {
	client := &mockPrintfulClient{products: []*printful.RemoteProduct{remoteTee(), remoteMug()}}
	catalog := newMockCatalogRepository()
	runs := &mockSyncRunRepository{}
	svc := newTestSyncService(client, catalog, runs)

	if _, err := svc.Run(context.Background(), SyncOptions{}); err != nil {
		t.Fatalf("Seeding run failed: %v", err)
	}

	client.failIDs = map[string]error{
		"p-100": &printful.APIError{StatusCode: 500, Message: "flaky"},
	}

	run, err := svc.Run(context.Background(), SyncOptions{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if run.ProductsArchived != 0 || run.VariantsArchived != 0 {
		t.Errorf("Expected skipped product and its variants to survive archival, got %d/%d",
			run.ProductsArchived, run.VariantsArchived)
	}
	if catalog.products["p-100"].Deleted {
		t.Error("Expected skipped product to stay live")
	}
}

func TestRunFinalizesFailureOnListError(t *testing.T) {
	client := &mockPrintfulClient{listErr: errors.New("connection refused")}
	catalog := newMockCatalogRepository()
	runs := &mockSyncRunRepository{}
	svc := newTestSyncService(client, catalog, runs)

	run, err := svc.Run(context.Background(), SyncOptions{})
	if err == nil {
		t.Fatal("Expected an error")
	}
	if run == nil || run.Status != domain.SyncRunFailed {
		t.Fatalf("Expected a failed run record, got %+v", run)
	}
	if run.Error == "" {
		t.Error("Expected the error message to be captured")
	}

	stored, _ := runs.List(context.Background(), 10)
	if len(stored) != 1 || stored[0].Status != domain.SyncRunFailed {
		t.Errorf("Expected one finalized failed run, got %+v", stored)
	}
}

func TestRunFinalizesFailureOnCancellation(t *testing.T) {
	client := &mockPrintfulClient{products: []*printful.RemoteProduct{remoteTee()}}
	catalog := newMockCatalogRepository()
	runs := &mockSyncRunRepository{}
	svc := newTestSyncService(client, catalog, runs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := svc.Run(ctx, SyncOptions{})
	if err == nil {
		t.Fatal("Expected an error from a cancelled context")
	}
	if run == nil || run.Status != domain.SyncRunFailed {
		t.Fatalf("Expected a finalized failed run, got %+v", run)
	}
}

func TestRunRejectsConcurrentSync(t *testing.T) {
	client := &mockPrintfulClient{products: []*printful.RemoteProduct{remoteTee()}}
	catalog := newMockCatalogRepository()
	catalog.locked = true
	runs := &mockSyncRunRepository{}
	svc := newTestSyncService(client, catalog, runs)

	if _, err := svc.Run(context.Background(), SyncOptions{}); !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("Expected ErrSyncInProgress, got %v", err)
	}
	if stored, _ := runs.List(context.Background(), 10); len(stored) != 0 {
		t.Error("Expected no run record when the lock is held")
	}
}

func TestRunClearRequested(t *testing.T) {
	client := &mockPrintfulClient{products: []*printful.RemoteProduct{remoteTee()}}
	catalog := newMockCatalogRepository()
	runs := &mockSyncRunRepository{}
	svc := newTestSyncService(client, catalog, runs)

	if _, err := svc.Run(context.Background(), SyncOptions{}); err != nil {
		t.Fatalf("Seeding run failed: %v", err)
	}

	run, err := svc.Run(context.Background(), SyncOptions{Clear: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !run.ClearRequested {
		t.Error("Expected clear_requested to be recorded on the run")
	}
}

func TestSyncOneReconcilesVariants(t *testing.T) {
	tee := remoteTee()
	client := &mockPrintfulClient{products: []*printful.RemoteProduct{tee}}
	catalog := newMockCatalogRepository()
	runs := &mockSyncRunRepository{}
	svc := newTestSyncService(client, catalog, runs)

	if _, err := svc.Run(context.Background(), SyncOptions{}); err != nil {
		t.Fatalf("Seeding run failed: %v", err)
	}

	// One variant dropped upstream, one added.
	tee.Variants = []printful.RemoteVariant{
		{ID: "v-101", Color: "Red", Size: "M", Price: 2450},
		{ID: "v-103", Color: "Blue", Size: "M", Price: 2450},
	}

	if err := svc.SyncOne(context.Background(), "p-100"); err != nil {
		t.Fatalf("SyncOne failed: %v", err)
	}

	if !catalog.variants["v-102"].Deleted {
		t.Error("Expected dropped variant to be archived")
	}
	if v, ok := catalog.variants["v-103"]; !ok || v.Deleted {
		t.Error("Expected new variant to be live")
	}
	if catalog.variants["v-101"].Deleted {
		t.Error("Expected surviving variant to stay live")
	}
}

func TestArchiveOne(t *testing.T) {
	client := &mockPrintfulClient{products: []*printful.RemoteProduct{remoteTee()}}
	catalog := newMockCatalogRepository()
	runs := &mockSyncRunRepository{}
	svc := newTestSyncService(client, catalog, runs)

	if _, err := svc.Run(context.Background(), SyncOptions{}); err != nil {
		t.Fatalf("Seeding run failed: %v", err)
	}

	if err := svc.ArchiveOne(context.Background(), "p-100"); err != nil {
		t.Fatalf("ArchiveOne failed: %v", err)
	}
	if !catalog.products["p-100"].Deleted {
		t.Error("Expected product to be archived")
	}
	if !catalog.variants["v-101"].Deleted || !catalog.variants["v-102"].Deleted {
		t.Error("Expected all variants to be archived")
	}

	if err := svc.ArchiveOne(context.Background(), "p-999"); !errors.Is(err, repository.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound for unknown product, got %v", err)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Classic Tee":           "classic-tee",
		"  Café / Noir Tee  ":   "caf-noir-tee",
		"UPPER_case--product":   "upper-case-product",
		"2024 Limited Edition!": "2024-limited-edition",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
