package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/repos"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/repos/testutil"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/types"
)

type aggFixture struct {
	db          *gorm.DB
	svc         AggregationService
	productRepo repos.ProductRepo
	listingRepo repos.ProductListingRepo
	historyRepo repos.PriceHistoryRepo
}

func newAggFixture(t *testing.T) *aggFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	productRepo := repos.NewProductRepo(db, log)
	listingRepo := repos.NewProductListingRepo(db, log)
	historyRepo := repos.NewPriceHistoryRepo(db, log)
	return &aggFixture{
		db:          db,
		svc:         NewAggregationService(db, log, productRepo, listingRepo, historyRepo),
		productRepo: productRepo,
		listingRepo: listingRepo,
		historyRepo: historyRepo,
	}
}

// uniq keeps test data from colliding on unique indexes across tests that
// share the same database.
func uniq() string {
	return uuid.New().String()[:8]
}

func TestIngest_DropsMalformedListings(t *testing.T) {
	f := newAggFixture(t)
	ctx := context.Background()
	suffix := uniq()
	platform := testutil.SeedPlatform(t, ctx, f.db, "jumia-"+suffix)

	raws := []types.RawListing{
		{Title: "Sony WH-1000XM5 " + suffix, Price: 349.99, URL: "https://jumia/" + suffix + "/1", Availability: true},
		{Title: "", Price: 100, URL: "https://jumia/" + suffix + "/2", Availability: true},
		{Title: "Phantom Listing " + suffix, Price: 0, URL: "https://jumia/" + suffix + "/3", Availability: true},
	}

	products, err := f.svc.Ingest(ctx, platform, raws, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected 1 product from 3 raws (2 malformed), got %d", len(products))
	}

	listings, err := f.listingRepo.ListByProductID(ctx, nil, products[0].ID, false)
	if err != nil {
		t.Fatalf("ListByProductID: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(listings))
	}
}

func TestIngest_PriceHistoryOnChangeOnly(t *testing.T) {
	f := newAggFixture(t)
	ctx := context.Background()
	suffix := uniq()
	platform := testutil.SeedPlatform(t, ctx, f.db, "amazon-"+suffix)
	url := "https://amazon/" + suffix + "/dp/1"

	raw := types.RawListing{Title: "Kindle Paperwhite " + suffix, Price: 149.99, URL: url, Availability: true}

	products, err := f.svc.Ingest(ctx, platform, []types.RawListing{raw}, nil)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}
	productID := products[0].ID

	listing, err := f.listingRepo.GetByKey(ctx, nil, platform.ID, url)
	if err != nil || listing == nil {
		t.Fatalf("GetByKey: %v %v", listing, err)
	}
	history, err := f.historyRepo.ListByListingID(ctx, nil, listing.ID, 0)
	if err != nil {
		t.Fatalf("ListByListingID: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("first sighting must not write history, got %d rows", len(history))
	}

	// Same price again: still one listing, still no history.
	if _, err := f.svc.Ingest(ctx, platform, []types.RawListing{raw}, nil); err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	listings, err := f.listingRepo.ListByProductID(ctx, nil, productID, false)
	if err != nil {
		t.Fatalf("ListByProductID: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("re-scrape created a duplicate listing: %d rows", len(listings))
	}
	history, _ = f.historyRepo.ListByListingID(ctx, nil, listing.ID, 0)
	if len(history) != 0 {
		t.Fatalf("unchanged price must not write history, got %d rows", len(history))
	}

	// Price drop: the prior price lands in history, the listing is overwritten.
	raw.Price = 129.99
	if _, err := f.svc.Ingest(ctx, platform, []types.RawListing{raw}, nil); err != nil {
		t.Fatalf("third ingest: %v", err)
	}
	history, _ = f.historyRepo.ListByListingID(ctx, nil, listing.ID, 0)
	if len(history) != 1 {
		t.Fatalf("expected 1 history row after price change, got %d", len(history))
	}
	if history[0].Price != 149.99 {
		t.Fatalf("history holds %v, want the prior price 149.99", history[0].Price)
	}
	updated, _ := f.listingRepo.GetByKey(ctx, nil, platform.ID, url)
	if updated.Price != 129.99 || updated.TotalPrice != 129.99 {
		t.Fatalf("listing not overwritten: price=%v total=%v", updated.Price, updated.TotalPrice)
	}
}

func TestIngest_SameTitleAcrossPlatformsSharesProduct(t *testing.T) {
	f := newAggFixture(t)
	ctx := context.Background()
	suffix := uniq()
	jumia := testutil.SeedPlatform(t, ctx, f.db, "jumia-"+suffix)
	ebay := testutil.SeedPlatform(t, ctx, f.db, "ebay-"+suffix)
	title := "Logitech MX Master 3S " + suffix

	p1, err := f.svc.Ingest(ctx, jumia, []types.RawListing{{Title: title, Price: 99, URL: "https://jumia/" + suffix, Availability: true}}, nil)
	if err != nil {
		t.Fatalf("jumia ingest: %v", err)
	}
	p2, err := f.svc.Ingest(ctx, ebay, []types.RawListing{{Title: title, Price: 89, URL: "https://ebay/" + suffix, Availability: true}}, nil)
	if err != nil {
		t.Fatalf("ebay ingest: %v", err)
	}
	if len(p1) != 1 || len(p2) != 1 {
		t.Fatalf("expected 1 product each, got %d and %d", len(p1), len(p2))
	}
	if p1[0].ID != p2[0].ID {
		t.Fatalf("same title resolved to different products: %s vs %s", p1[0].ID, p2[0].ID)
	}
	listings, err := f.listingRepo.ListByProductID(ctx, nil, p1[0].ID, false)
	if err != nil {
		t.Fatalf("ListByProductID: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings on the shared product, got %d", len(listings))
	}
}

func TestIngest_BrandOverlapAttachesToExistingProduct(t *testing.T) {
	f := newAggFixture(t)
	ctx := context.Background()
	suffix := uniq()
	platform := testutil.SeedPlatform(t, ctx, f.db, "kilimall-"+suffix)
	brand := "Apple-" + suffix

	fullName := fmt.Sprintf("Apple iPhone 15 Pro Max 256GB %s", suffix)
	existing := testutil.SeedProduct(t, ctx, f.db, fullName, NormalizeName(fullName), brand)

	hint := &types.ProductInfo{Brand: brand, Category: "Electronics"}

	// Shorter variant of the same title: every token appears in the existing
	// product's name, so overlap is 1.0 and it attaches.
	sameRaw := types.RawListing{Title: fmt.Sprintf("Apple iPhone 15 Pro Max %s", suffix), Price: 1199, URL: "https://kilimall/" + suffix + "/1", Availability: true}
	got, err := f.svc.Ingest(ctx, platform, []types.RawListing{sameRaw}, hint)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(got) != 1 || got[0].ID != existing.ID {
		t.Fatalf("expected attach to existing product %s, got %+v", existing.ID, got)
	}

	// Same brand, different item: low overlap creates a new product.
	otherRaw := types.RawListing{Title: fmt.Sprintf("Watch Series 9 GPS %s-w", suffix), Price: 399, URL: "https://kilimall/" + suffix + "/2", Availability: true}
	got, err = f.svc.Ingest(ctx, platform, []types.RawListing{otherRaw}, hint)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(got) != 1 || got[0].ID == existing.ID {
		t.Fatalf("expected a new product for a different item, got %+v", got)
	}
}

func TestIngest_RescrapeAfterPlatformReseed(t *testing.T) {
	f := newAggFixture(t)
	ctx := context.Background()
	suffix := uniq()
	platformRepo := repos.NewPlatformRepo(f.db, testutil.Logger(t))
	name := "jumia-" + suffix
	url := "https://jumia/" + suffix + "/reboot"

	// First boot seeds the platform; the orchestrator works off the stored row.
	if err := platformRepo.UpsertByName(ctx, nil, []*types.Platform{{Name: name, BaseURL: "https://a", IsActive: true}}); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	boot1, err := platformRepo.GetByName(ctx, nil, name)
	if err != nil || boot1 == nil {
		t.Fatalf("GetByName: %+v %v", boot1, err)
	}

	raw := types.RawListing{Title: "Galaxy Buds " + suffix, Price: 119, URL: url, Availability: true}
	products, err := f.svc.Ingest(ctx, boot1, []types.RawListing{raw}, nil)
	if err != nil || len(products) != 1 {
		t.Fatalf("first ingest: %v, %d products", err, len(products))
	}

	// Second boot re-seeds by name with a fresh struct. The conflict path
	// keeps the stored id, so the seed struct's generated id is stale and
	// must not be handed to the orchestrator.
	seed2 := &types.Platform{Name: name, BaseURL: "https://a", IsActive: true}
	if err := platformRepo.UpsertByName(ctx, nil, []*types.Platform{seed2}); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	boot2, err := platformRepo.GetByName(ctx, nil, name)
	if err != nil || boot2 == nil {
		t.Fatalf("GetByName after reseed: %+v %v", boot2, err)
	}
	if boot2.ID != boot1.ID {
		t.Fatalf("reseed changed the platform identity: %s vs %s", boot2.ID, boot1.ID)
	}
	if seed2.ID == boot2.ID {
		t.Fatalf("seed struct unexpectedly carries the stored id; reload no longer exercised")
	}

	raw.Price = 99
	if _, err := f.svc.Ingest(ctx, boot2, []types.RawListing{raw}, nil); err != nil {
		t.Fatalf("post-reboot ingest: %v", err)
	}

	listings, err := f.listingRepo.ListByProductID(ctx, nil, products[0].ID, false)
	if err != nil {
		t.Fatalf("ListByProductID: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("re-scrape after reboot duplicated the listing: %d rows", len(listings))
	}
	if listings[0].Price != 99 {
		t.Fatalf("re-scrape did not update in place: price=%v", listings[0].Price)
	}
	history, _ := f.historyRepo.ListByListingID(ctx, nil, listings[0].ID, 0)
	if len(history) != 1 || history[0].Price != 119 {
		t.Fatalf("price history continuity broken across reboot: %+v", history)
	}
}

// flakyListingRepo fails the first Create the way a lost unique-key race does,
// then behaves normally.
type flakyListingRepo struct {
	repos.ProductListingRepo
	failuresLeft int
}

func (f *flakyListingRepo) Create(ctx context.Context, tx *gorm.DB, listing *types.ProductListing) (*types.ProductListing, error) {
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return nil, errors.New("duplicate key value violates unique constraint \"idx_listing_key\"")
	}
	return f.ProductListingRepo.Create(ctx, tx, listing)
}

func TestIngest_ListingCreateRaceRetriesInsteadOfDropping(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	suffix := uniq()

	productRepo := repos.NewProductRepo(db, log)
	realListingRepo := repos.NewProductListingRepo(db, log)
	listingRepo := &flakyListingRepo{ProductListingRepo: realListingRepo, failuresLeft: 1}
	historyRepo := repos.NewPriceHistoryRepo(db, log)
	svc := NewAggregationService(db, log, productRepo, listingRepo, historyRepo)

	platform := testutil.SeedPlatform(t, ctx, db, "ebay-"+suffix)
	url := "https://ebay/" + suffix + "/race"
	raw := types.RawListing{Title: "SSD 2TB " + suffix, Price: 139, URL: url, Availability: true}

	products, err := svc.Ingest(ctx, platform, []types.RawListing{raw}, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("lost insert race dropped the listing's product: %d products", len(products))
	}
	if listingRepo.failuresLeft != 0 {
		t.Fatalf("stub never exercised the failing insert")
	}

	got, err := realListingRepo.GetByKey(ctx, nil, platform.ID, url)
	if err != nil || got == nil {
		t.Fatalf("listing not applied after retry: %+v %v", got, err)
	}
	if got.Price != 139 {
		t.Fatalf("retry applied wrong data: price=%v", got.Price)
	}
}

func TestIngest_TotalPriceIncludesShipping(t *testing.T) {
	f := newAggFixture(t)
	ctx := context.Background()
	suffix := uniq()
	platform := testutil.SeedPlatform(t, ctx, f.db, "jumia-"+suffix)
	shipping := 10.0

	products, err := f.svc.Ingest(ctx, platform, []types.RawListing{{
		Title:        "Anker PowerCore 20000 " + suffix,
		Price:        999,
		ShippingCost: &shipping,
		URL:          "https://jumia/" + suffix + "/ship",
		Availability: true,
	}}, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	listings, err := f.listingRepo.ListByProductID(ctx, nil, products[0].ID, false)
	if err != nil || len(listings) != 1 {
		t.Fatalf("ListByProductID: %v, %d listings", err, len(listings))
	}
	if listings[0].TotalPrice != 1009 {
		t.Fatalf("total_price = %v, want 1009", listings[0].TotalPrice)
	}
	if listings[0].Currency != "USD" {
		t.Fatalf("empty currency should default to USD, got %q", listings[0].Currency)
	}
}
