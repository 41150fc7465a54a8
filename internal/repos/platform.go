package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/logger"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/types"
)

type PlatformRepo interface {
	UpsertByName(ctx context.Context, tx *gorm.DB, platforms []*types.Platform) error
	GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.Platform, error)
	ListActive(ctx context.Context, tx *gorm.DB) ([]*types.Platform, error)
}

type platformRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlatformRepo(db *gorm.DB, baseLog *logger.Logger) PlatformRepo {
	return &platformRepo{
		db:  db,
		log: baseLog.With("repo", "PlatformRepo"),
	}
}

func (r *platformRepo) UpsertByName(ctx context.Context, tx *gorm.DB, platforms []*types.Platform) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(platforms) == 0 {
		return nil
	}
	for _, p := range platforms {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now()
		}
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"base_url", "is_active"}),
		}).
		Create(&platforms).Error
}

func (r *platformRepo) GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.Platform, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var p types.Platform
	err := transaction.WithContext(ctx).
		Where("name = ?", name).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *platformRepo) ListActive(ctx context.Context, tx *gorm.DB) ([]*types.Platform, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Platform
	if err := transaction.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
