package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/logger"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/types"
)

type PriceHistoryRepo interface {
	Append(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, price float64, recordedAt time.Time) error
	ListByListingID(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, limit int) ([]*types.PriceHistory, error)
}

type priceHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPriceHistoryRepo(db *gorm.DB, baseLog *logger.Logger) PriceHistoryRepo {
	return &priceHistoryRepo{
		db:  db,
		log: baseLog.With("repo", "PriceHistoryRepo"),
	}
}

func (r *priceHistoryRepo) Append(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, price float64, recordedAt time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	point := &types.PriceHistory{
		ID:         uuid.New(),
		ListingID:  listingID,
		Price:      price,
		RecordedAt: recordedAt,
	}
	return transaction.WithContext(ctx).Create(point).Error
}

func (r *priceHistoryRepo) ListByListingID(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, limit int) ([]*types.PriceHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 30
	}
	var out []*types.PriceHistory
	if err := transaction.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
