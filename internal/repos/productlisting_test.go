package repos

import (
	"context"
	"testing"
	"time"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/repos/testutil"
)

func TestProductListingRepo_GetByKeyAndOrdering(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewProductListingRepo(db, testutil.Logger(t))
	historyRepo := NewPriceHistoryRepo(db, testutil.Logger(t))
	ctx := context.Background()

	platform := testutil.SeedPlatform(t, ctx, tx, "listing-test")
	product := testutil.SeedProduct(t, ctx, tx, "Thing", "listing test thing", "")

	cheap := testutil.SeedListing(t, ctx, tx, product.ID, platform.ID, platform.Name, "https://x/cheap", 50)
	testutil.SeedListing(t, ctx, tx, product.ID, platform.ID, platform.Name, "https://x/pricey", 150)

	got, err := repo.GetByKey(ctx, tx, platform.ID, "https://x/cheap")
	if err != nil || got == nil || got.ID != cheap.ID {
		t.Fatalf("GetByKey: %+v %v", got, err)
	}
	missing, err := repo.GetByKey(ctx, tx, platform.ID, "https://x/unknown")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for unknown key, got %+v %v", missing, err)
	}

	listings, err := repo.ListByProductID(ctx, tx, product.ID, false)
	if err != nil {
		t.Fatalf("ListByProductID: %v", err)
	}
	if len(listings) != 2 || listings[0].TotalPrice > listings[1].TotalPrice {
		t.Fatalf("listings not ordered by total price: %+v", listings)
	}

	// History points come back newest first.
	base := time.Now().Add(-time.Hour)
	for i, price := range []float64{60, 55, 50} {
		if err := historyRepo.Append(ctx, tx, cheap.ID, price, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	history, err := historyRepo.ListByListingID(ctx, tx, cheap.ID, 2)
	if err != nil {
		t.Fatalf("ListByListingID: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("limit ignored: got %d rows", len(history))
	}
	if history[0].Price != 50 || history[1].Price != 55 {
		t.Fatalf("history not newest-first: %v, %v", history[0].Price, history[1].Price)
	}
}
