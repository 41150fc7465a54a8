package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/logger"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/types"
)

type ProductListingRepo interface {
	Create(ctx context.Context, tx *gorm.DB, listing *types.ProductListing) (*types.ProductListing, error)
	GetByKey(ctx context.Context, tx *gorm.DB, platformID uuid.UUID, url string) (*types.ProductListing, error)
	ListByProductID(ctx context.Context, tx *gorm.DB, productID uuid.UUID, availableOnly bool) ([]*types.ProductListing, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type productListingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductListingRepo(db *gorm.DB, baseLog *logger.Logger) ProductListingRepo {
	return &productListingRepo{
		db:  db,
		log: baseLog.With("repo", "ProductListingRepo"),
	}
}

func (r *productListingRepo) Create(ctx context.Context, tx *gorm.DB, listing *types.ProductListing) (*types.ProductListing, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}
	now := time.Now()
	if listing.ScrapedAt.IsZero() {
		listing.ScrapedAt = now
	}
	listing.UpdatedAt = now
	if err := transaction.WithContext(ctx).Create(listing).Error; err != nil {
		return nil, err
	}
	return listing, nil
}

// GetByKey looks up the current listing for a (platform, url) pair. The url is
// unique per platform, so this is the upsert key for re-scrapes.
func (r *productListingRepo) GetByKey(ctx context.Context, tx *gorm.DB, platformID uuid.UUID, url string) (*types.ProductListing, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var l types.ProductListing
	err := transaction.WithContext(ctx).
		Where("platform_id = ? AND url = ?", platformID, url).
		First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *productListingRepo) ListByProductID(ctx context.Context, tx *gorm.DB, productID uuid.UUID, availableOnly bool) ([]*types.ProductListing, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Where("product_id = ?", productID)
	if availableOnly {
		q = q.Where("availability = ?", true)
	}
	var out []*types.ProductListing
	if err := q.Order("total_price ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productListingRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&types.ProductListing{}).
		Where("id = ?", id).
		Updates(updates).Error
}
