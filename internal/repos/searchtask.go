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

type SearchTaskRepo interface {
	Create(ctx context.Context, tx *gorm.DB, task *types.SearchTask) (*types.SearchTask, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SearchTask, error)
	// UpdateActive applies updates only while the task is still pending or
	// processing. Terminal tasks are left untouched and false is returned, so
	// late adapter results are discarded instead of resurrecting the task.
	UpdateActive(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) (bool, error)
}

type searchTaskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSearchTaskRepo(db *gorm.DB, baseLog *logger.Logger) SearchTaskRepo {
	return &searchTaskRepo{
		db:  db,
		log: baseLog.With("repo", "SearchTaskRepo"),
	}
}

func (r *searchTaskRepo) Create(ctx context.Context, tx *gorm.DB, task *types.SearchTask) (*types.SearchTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if err := transaction.WithContext(ctx).Create(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

func (r *searchTaskRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SearchTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var t types.SearchTask
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *searchTaskRepo) UpdateActive(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(ctx).
		Model(&types.SearchTask{}).
		Where("id = ? AND status IN ?", id, []string{types.TaskStatusPending, types.TaskStatusProcessing}).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
