package repository

import (
	"context"
	"errors"

	"github.com/labcompare/push-dispatcher/internal/domain"
	"gorm.io/gorm"
)

type JourneyRepository interface {
	Create(ctx context.Context, j *domain.Journey) error
	GetByID(ctx context.Context, id string) (*domain.Journey, error)
	List(ctx context.Context) ([]domain.Journey, error)
}

type GormJourneyRepo struct {
	db *gorm.DB
}

func NewGormJourneyRepo(db *gorm.DB) *GormJourneyRepo {
	return &GormJourneyRepo{db: db}
}

func (r *GormJourneyRepo) Create(ctx context.Context, j *domain.Journey) error {
	model, err := journeyModelFromDomain(j)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if j != nil {
		j.CreatedAt = model.CreatedAt
	}
	return nil
}

func (r *GormJourneyRepo) GetByID(ctx context.Context, id string) (*domain.Journey, error) {
	var model JourneyModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return journeyModelToDomain(&model)
}

func (r *GormJourneyRepo) List(ctx context.Context) ([]domain.Journey, error) {
	var models []JourneyModel
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	journeys := make([]domain.Journey, 0, len(models))
	for i := range models {
		journey, err := journeyModelToDomain(&models[i])
		if err != nil {
			return nil, err
		}
		journeys = append(journeys, *journey)
	}

	return journeys, nil
}
