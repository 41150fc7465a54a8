package repos

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/logger"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/types"
)

type ProductRepo interface {
	Create(ctx context.Context, tx *gorm.DB, product *types.Product) (*types.Product, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Product, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Product, error)
	GetByNormalizedName(ctx context.Context, tx *gorm.DB, normalized string) (*types.Product, error)
	SearchByName(ctx context.Context, tx *gorm.DB, query string, limit int) ([]*types.Product, error)
	List(ctx context.Context, tx *gorm.DB, brand, category string, limit int) ([]*types.Product, error)
	CandidatesByBrand(ctx context.Context, tx *gorm.DB, brand string) ([]*types.Product, error)
	IncrementSearchCount(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type productRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	return &productRepo{
		db:  db,
		log: baseLog.With("repo", "ProductRepo"),
	}
}

func (r *productRepo) Create(ctx context.Context, tx *gorm.DB, product *types.Product) (*types.Product, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	now := time.Now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	if err := transaction.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (r *productRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Product, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var p types.Product
	err := transaction.WithContext(ctx).
		Preload("Listings").
		Where("id = ?", id).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Product, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Product
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Preload("Listings").
		Where("id IN ?", ids).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productRepo) GetByNormalizedName(ctx context.Context, tx *gorm.DB, normalized string) (*types.Product, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var p types.Product
	err := transaction.WithContext(ctx).
		Where("normalized_name = ?", normalized).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) SearchByName(ctx context.Context, tx *gorm.DB, query string, limit int) ([]*types.Product, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 10
	}
	var out []*types.Product
	if err := transaction.WithContext(ctx).
		Preload("Listings").
		Where("LOWER(name) LIKE ?", "%"+strings.ToLower(query)+"%").
		Order("search_count DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productRepo) List(ctx context.Context, tx *gorm.DB, brand, category string, limit int) ([]*types.Product, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	q := transaction.WithContext(ctx).Preload("Listings")
	if brand != "" {
		q = q.Where("brand = ?", brand)
	}
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var out []*types.Product
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productRepo) CandidatesByBrand(ctx context.Context, tx *gorm.DB, brand string) ([]*types.Product, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if brand == "" {
		return nil, nil
	}
	var out []*types.Product
	if err := transaction.WithContext(ctx).
		Where("LOWER(brand) = ?", strings.ToLower(brand)).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productRepo) IncrementSearchCount(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Product{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"search_count": gorm.Expr("search_count + 1"),
			"updated_at":   time.Now(),
		}).Error
}

func (r *productRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Product{}).
		Where("id = ?", id).
		Updates(updates).Error
}
