package repository

import (
	"context"
	"time"

	"github.com/labcompare/push-dispatcher/internal/domain"
	"gorm.io/gorm"
)

type TaskRepository interface {
	Create(ctx context.Context, t *domain.ScheduledTask) error
	CreateBatch(ctx context.Context, tasks []*domain.ScheduledTask) error
	GetDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledTask, error)
	Delete(ctx context.Context, id string) error
	CountPending(ctx context.Context) (int64, error)
}

type GormTaskRepo struct {
	db *gorm.DB
}

func NewGormTaskRepo(db *gorm.DB) *GormTaskRepo {
	return &GormTaskRepo{db: db}
}

func (r *GormTaskRepo) Create(ctx context.Context, t *domain.ScheduledTask) error {
	model, err := taskModelFromDomain(t)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if t != nil {
		t.CreatedAt = model.CreatedAt
	}
	return nil
}

// CreateBatch inserts all tasks inside a single transaction so a journey
// either materializes completely or not at all.
func (r *GormTaskRepo) CreateBatch(ctx context.Context, tasks []*domain.ScheduledTask) error {
	models := make([]TaskModel, 0, len(tasks))
	for _, t := range tasks {
		model, err := taskModelFromDomain(t)
		if err != nil {
			return err
		}
		if model != nil {
			models = append(models, *model)
		}
	}

	if len(models) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&models, 100).Error
	})
}

func (r *GormTaskRepo) GetDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledTask, error) {
	var models []TaskModel
	err := r.db.WithContext(ctx).
		Where("send_at <= ?", now).
		Order("send_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	tasks := make([]domain.ScheduledTask, 0, len(models))
	for i := range models {
		task, err := taskModelToDomain(&models[i])
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}

	return tasks, nil
}

// Delete removes a task by id. ErrNotFound means another dispatcher instance
// already finalized it; callers treat that as informational.
func (r *GormTaskRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&TaskModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormTaskRepo) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&TaskModel{}).Count(&count).Error
	return count, err
}
