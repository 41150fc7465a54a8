package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/logger"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/repos"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/types"
)

type ListingSummary struct {
	ListingID   uuid.UUID `json:"listing_id"`
	Title       string    `json:"title"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"`
	TotalPrice  float64   `json:"total_price"`
	URL         string    `json:"url"`
	Rating      *float64  `json:"rating,omitempty"`
	ReviewCount *int      `json:"review_count,omitempty"`
	Seller      string    `json:"seller,omitempty"`
}

type PriceStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
}

type BestDeal struct {
	Platform   string  `json:"platform"`
	Price      float64 `json:"price"`
	TotalPrice float64 `json:"total_price"`
	URL        string  `json:"url"`
	Savings    float64 `json:"savings"`
}

type ComparisonView struct {
	Product        *types.Product              `json:"product"`
	PlatformPrices map[string][]ListingSummary `json:"platform_prices"`
	BestDeal       *BestDeal                   `json:"best_deal,omitempty"`
	PriceStats     *PriceStats                 `json:"price_stats,omitempty"`
}

// ComparisonService builds cross-platform price comparison views. Statistics
// and the best deal consider available listings only; a product with none
// yields an empty view with null stats rather than an error.
type ComparisonService interface {
	Compare(ctx context.Context, productID *uuid.UUID, query string) ([]ComparisonView, error)
}

type comparisonService struct {
	db          *gorm.DB
	log         *logger.Logger
	productRepo repos.ProductRepo
	listingRepo repos.ProductListingRepo
}

func NewComparisonService(
	db *gorm.DB,
	baseLog *logger.Logger,
	productRepo repos.ProductRepo,
	listingRepo repos.ProductListingRepo,
) ComparisonService {
	return &comparisonService{
		db:          db,
		log:         baseLog.With("service", "ComparisonService"),
		productRepo: productRepo,
		listingRepo: listingRepo,
	}
}

func (s *comparisonService) Compare(ctx context.Context, productID *uuid.UUID, query string) ([]ComparisonView, error) {
	if (productID == nil) == (query == "") {
		return nil, fmt.Errorf("%w: exactly one of product_id and query required", ErrInvalidInput)
	}

	var products []*types.Product
	if productID != nil {
		product, err := s.productRepo.GetByID(ctx, nil, *productID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, fmt.Errorf("%w: product %s", ErrNotFound, *productID)
		}
		products = []*types.Product{product}
	} else {
		// Read-only resolution: the same normalized lookup the aggregation
		// engine uses, never creating anything.
		found, err := s.productRepo.GetByNormalizedName(ctx, nil, NormalizeName(query))
		if err != nil {
			return nil, err
		}
		if found != nil {
			products = []*types.Product{found}
		} else {
			products, err = s.productRepo.SearchByName(ctx, nil, query, 10)
			if err != nil {
				return nil, err
			}
		}
	}

	out := make([]ComparisonView, 0, len(products))
	for _, product := range products {
		view, err := s.buildView(ctx, product)
		if err != nil {
			return nil, err
		}
		out = append(out, *view)
	}
	return out, nil
}

func (s *comparisonService) buildView(ctx context.Context, product *types.Product) (*ComparisonView, error) {
	listings, err := s.listingRepo.ListByProductID(ctx, nil, product.ID, true)
	if err != nil {
		return nil, err
	}

	view := &ComparisonView{
		Product:        product,
		PlatformPrices: map[string][]ListingSummary{},
	}
	if len(listings) == 0 {
		return view, nil
	}

	for _, l := range listings {
		view.PlatformPrices[l.PlatformName] = append(view.PlatformPrices[l.PlatformName], ListingSummary{
			ListingID:   l.ID,
			Title:       l.Title,
			Price:       l.Price,
			Currency:    l.Currency,
			TotalPrice:  l.TotalPrice,
			URL:         l.URL,
			Rating:      l.Rating,
			ReviewCount: l.ReviewCount,
			Seller:      l.SellerName,
		})
	}

	stats := &PriceStats{Min: listings[0].TotalPrice, Max: listings[0].TotalPrice}
	sum := 0.0
	for _, l := range listings {
		if l.TotalPrice < stats.Min {
			stats.Min = l.TotalPrice
		}
		if l.TotalPrice > stats.Max {
			stats.Max = l.TotalPrice
		}
		sum += l.TotalPrice
	}
	stats.Count = len(listings)
	stats.Avg = sum / float64(len(listings))
	view.PriceStats = stats

	best := pickBestDeal(listings)
	view.BestDeal = &BestDeal{
		Platform:   best.PlatformName,
		Price:      best.Price,
		TotalPrice: best.TotalPrice,
		URL:        best.URL,
		Savings:    stats.Max - best.TotalPrice,
	}
	return view, nil
}

// pickBestDeal takes the minimum total price; ties go to the higher rating,
// then the lexicographically first platform name, for determinism.
func pickBestDeal(listings []*types.ProductListing) *types.ProductListing {
	sorted := append([]*types.ProductListing(nil), listings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.TotalPrice != b.TotalPrice {
			return a.TotalPrice < b.TotalPrice
		}
		ra, rb := ratingOrZero(a.Rating), ratingOrZero(b.Rating)
		if ra != rb {
			return ra > rb
		}
		return a.PlatformName < b.PlatformName
	})
	return sorted[0]
}

func ratingOrZero(r *float64) float64 {
	if r == nil {
		return 0
	}
	return *r
}
