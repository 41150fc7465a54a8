package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/logger"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/repos"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/types"
)

// AggregationService merges raw scraped listings into canonical products and
// listings. Called once per completed platform fetch; safe to call
// concurrently from different tasks.
type AggregationService interface {
	Ingest(ctx context.Context, platform *types.Platform, raws []types.RawListing, hint *types.ProductInfo) ([]*types.Product, error)
}

type aggregationService struct {
	db          *gorm.DB
	log         *logger.Logger
	productRepo repos.ProductRepo
	listingRepo repos.ProductListingRepo
	historyRepo repos.PriceHistoryRepo
}

func NewAggregationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	productRepo repos.ProductRepo,
	listingRepo repos.ProductListingRepo,
	historyRepo repos.PriceHistoryRepo,
) AggregationService {
	return &aggregationService{
		db:          db,
		log:         baseLog.With("service", "AggregationService"),
		productRepo: productRepo,
		listingRepo: listingRepo,
		historyRepo: historyRepo,
	}
}

func (s *aggregationService) Ingest(ctx context.Context, platform *types.Platform, raws []types.RawListing, hint *types.ProductInfo) ([]*types.Product, error) {
	if platform == nil {
		return nil, fmt.Errorf("missing platform")
	}

	seen := map[string]*types.Product{}
	var out []*types.Product
	dropped := 0

	for i := range raws {
		raw := &raws[i]
		if strings.TrimSpace(raw.Title) == "" || raw.Price <= 0 {
			dropped++
			s.log.Warn("Dropping malformed listing", "platform", platform.Name, "title", raw.Title, "price", raw.Price, "url", raw.URL)
			continue
		}

		product, err := s.resolveProduct(ctx, raw, hint)
		if err != nil {
			s.log.Warn("Failed to resolve product, skipping listing", "platform", platform.Name, "title", raw.Title, "error", err)
			continue
		}

		if err := s.upsertListing(ctx, product, platform, raw); err != nil {
			s.log.Warn("Failed to upsert listing, skipping", "platform", platform.Name, "url", raw.URL, "error", err)
			continue
		}

		if _, ok := seen[product.ID.String()]; !ok {
			seen[product.ID.String()] = product
			out = append(out, product)
		}
	}

	if dropped > 0 {
		s.log.Info("Ingest finished with dropped listings", "platform", platform.Name, "ingested", len(raws)-dropped, "dropped", dropped)
	}
	return out, nil
}

// resolveProduct finds the canonical product a raw listing belongs to, or
// creates one. Exact normalized-name match wins; otherwise a brand-equal
// candidate with high title overlap is attached to.
func (s *aggregationService) resolveProduct(ctx context.Context, raw *types.RawListing, hint *types.ProductInfo) (*types.Product, error) {
	normalized := NormalizeName(raw.Title)
	existing, err := s.productRepo.GetByNormalizedName(ctx, nil, normalized)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	brand := ""
	category := ""
	if hint != nil {
		brand = hint.Brand
		category = hint.Category
	}

	if brand != "" {
		candidates, err := s.productRepo.CandidatesByBrand(ctx, nil, brand)
		if err != nil {
			return nil, err
		}
		for _, c := range candidates {
			if tokenOverlap(c.Name, raw.Title) >= resolveOverlapThreshold {
				return c, nil
			}
		}
	}

	product := &types.Product{
		Name:           raw.Title,
		NormalizedName: normalized,
		Brand:          brand,
		Category:       category,
		Description:    raw.Title,
		ImageURL:       raw.ImageURL,
	}
	created, err := s.productRepo.Create(ctx, nil, product)
	if err == nil {
		return created, nil
	}

	// Two tasks can discover the same product at the same time; the unique
	// index on normalized_name makes one of them lose. The loser attaches to
	// the winner's row.
	existing, lookupErr := s.productRepo.GetByNormalizedName(ctx, nil, normalized)
	if lookupErr == nil && existing != nil {
		return existing, nil
	}
	return nil, err
}

// upsertListing applies one raw listing under the (platform, url) key.
// Two tasks can scrape the same listing at the same time: both read nil, both
// insert, and the unique key fails the loser's transaction. The loser's data
// must still land, so the apply runs a second time and finds the winner's row
// on the update path.
func (s *aggregationService) upsertListing(ctx context.Context, product *types.Product, platform *types.Platform, raw *types.RawListing) error {
	if err := s.applyListing(ctx, product, platform, raw); err != nil {
		return s.applyListing(ctx, product, platform, raw)
	}
	return nil
}

// applyListing runs one read-modify-write of the listing row inside a
// transaction, so concurrent re-scrapes of the same listing cannot interleave.
// A price change appends the prior price to history before the overwrite;
// an unchanged price appends nothing, and neither does a first sighting.
func (s *aggregationService) applyListing(ctx context.Context, product *types.Product, platform *types.Platform, raw *types.RawListing) error {
	now := time.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.listingRepo.GetByKey(ctx, tx, platform.ID, raw.URL)
		if err != nil {
			return err
		}

		if existing == nil {
			listing := &types.ProductListing{
				ProductID:       product.ID,
				PlatformID:      platform.ID,
				PlatformName:    platform.Name,
				Title:           raw.Title,
				URL:             raw.URL,
				ImageURL:        raw.ImageURL,
				Price:           raw.Price,
				Currency:        currencyOrDefault(raw.Currency),
				ShippingCost:    raw.ShippingCost,
				Rating:          raw.Rating,
				ReviewCount:     raw.ReviewCount,
				Availability:    raw.Availability,
				SellerName:      raw.SellerName,
				ConfidenceScore: raw.ConfidenceScore,
				ScrapedAt:       now,
			}
			listing.ComputeTotalPrice()
			_, err := s.listingRepo.Create(ctx, tx, listing)
			return err
		}

		if existing.Price != raw.Price {
			if err := s.historyRepo.Append(ctx, tx, existing.ID, existing.Price, existing.ScrapedAt); err != nil {
				return err
			}
		}

		updated := *existing
		updated.Price = raw.Price
		updated.ShippingCost = raw.ShippingCost
		updated.ComputeTotalPrice()

		updates := map[string]interface{}{
			"product_id":    product.ID,
			"title":         raw.Title,
			"image_url":     raw.ImageURL,
			"price":         raw.Price,
			"currency":      currencyOrDefault(raw.Currency),
			"shipping_cost": raw.ShippingCost,
			"total_price":   updated.TotalPrice,
			"rating":        raw.Rating,
			"review_count":  raw.ReviewCount,
			"availability":  raw.Availability,
			"seller_name":   raw.SellerName,
			"scraped_at":    now,
		}
		if raw.ConfidenceScore != nil {
			updates["confidence_score"] = raw.ConfidenceScore
		}
		return s.listingRepo.UpdateFields(ctx, tx, existing.ID, updates)
	})
}

func currencyOrDefault(currency string) string {
	if strings.TrimSpace(currency) == "" {
		return "USD"
	}
	return currency
}
