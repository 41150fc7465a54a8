package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/types"
)

func SeedPlatform(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Platform {
	tb.Helper()
	p := &types.Platform{
		ID:        uuid.New(),
		Name:      name,
		BaseURL:   "https://" + name + ".example.com",
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed platform: %v", err)
	}
	return p
}

func SeedProduct(tb testing.TB, ctx context.Context, tx *gorm.DB, name, normalized, brand string) *types.Product {
	tb.Helper()
	now := time.Now().UTC()
	p := &types.Product{
		ID:             uuid.New(),
		Name:           name,
		NormalizedName: normalized,
		Brand:          brand,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed product: %v", err)
	}
	return p
}

func SeedListing(tb testing.TB, ctx context.Context, tx *gorm.DB, productID, platformID uuid.UUID, platformName, url string, price float64) *types.ProductListing {
	tb.Helper()
	now := time.Now().UTC()
	l := &types.ProductListing{
		ID:           uuid.New(),
		ProductID:    productID,
		PlatformID:   platformID,
		PlatformName: platformName,
		Title:        "listing",
		URL:          url,
		Price:        price,
		Currency:     "USD",
		Availability: true,
		ScrapedAt:    now,
		UpdatedAt:    now,
	}
	l.ComputeTotalPrice()
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed listing: %v", err)
	}
	return l
}

func PtrFloat(v float64) *float64 { return &v }

func PtrInt(v int) *int { return &v }
