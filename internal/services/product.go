package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/logger"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/repos"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/types"
)

// ListingPriceHistory is one listing's recent price points for one platform.
type ListingPriceHistory struct {
	Platform  string                `json:"platform"`
	ListingID uuid.UUID             `json:"listing_id"`
	History   []*types.PriceHistory `json:"history"`
}

type ProductService interface {
	List(ctx context.Context, brand, category string, limit int) ([]*types.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Product, error)
	PriceHistory(ctx context.Context, id uuid.UUID) ([]ListingPriceHistory, error)
}

type productService struct {
	db          *gorm.DB
	log         *logger.Logger
	productRepo repos.ProductRepo
	listingRepo repos.ProductListingRepo
	historyRepo repos.PriceHistoryRepo
}

func NewProductService(
	db *gorm.DB,
	baseLog *logger.Logger,
	productRepo repos.ProductRepo,
	listingRepo repos.ProductListingRepo,
	historyRepo repos.PriceHistoryRepo,
) ProductService {
	return &productService{
		db:          db,
		log:         baseLog.With("service", "ProductService"),
		productRepo: productRepo,
		listingRepo: listingRepo,
		historyRepo: historyRepo,
	}
}

func (s *productService) List(ctx context.Context, brand, category string, limit int) ([]*types.Product, error) {
	return s.productRepo.List(ctx, nil, brand, category, limit)
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*types.Product, error) {
	product, err := s.productRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("%w: product %s", ErrNotFound, id)
	}
	return product, nil
}

func (s *productService) PriceHistory(ctx context.Context, id uuid.UUID) ([]ListingPriceHistory, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	listings, err := s.listingRepo.ListByProductID(ctx, nil, product.ID, false)
	if err != nil {
		return nil, err
	}
	out := make([]ListingPriceHistory, 0, len(listings))
	for _, l := range listings {
		points, err := s.historyRepo.ListByListingID(ctx, nil, l.ID, 30)
		if err != nil {
			return nil, err
		}
		out = append(out, ListingPriceHistory{
			Platform:  l.PlatformName,
			ListingID: l.ID,
			History:   points,
		})
	}
	return out, nil
}
