package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/logger"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/types"
)

type SearchHistoryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, entry *types.SearchHistory) (*types.SearchHistory, error)
	ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.SearchHistory, error)
}

type searchHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSearchHistoryRepo(db *gorm.DB, baseLog *logger.Logger) SearchHistoryRepo {
	return &searchHistoryRepo{
		db:  db,
		log: baseLog.With("repo", "SearchHistoryRepo"),
	}
}

func (r *searchHistoryRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.SearchHistory) (*types.SearchHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := transaction.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *searchHistoryRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.SearchHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.SearchHistory
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
