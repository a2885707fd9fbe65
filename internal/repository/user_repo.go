package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/labcompare/push-dispatcher/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	AddSubscription(ctx context.Context, userID string, sub domain.Subscription) (bool, error)
	RemoveSubscriptions(ctx context.Context, userID string, endpoints []string) error
}

type GormUserRepo struct {
	db *gorm.DB
}

func NewGormUserRepo(db *gorm.DB) *GormUserRepo {
	return &GormUserRepo{db: db}
}

func (r *GormUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return userModelToDomain(&model)
}

// AddSubscription appends a subscription to the user's set, keyed by
// endpoint. The user record is created when absent. Returns false when the
// endpoint was already registered.
func (r *GormUserRepo) AddSubscription(ctx context.Context, userID string, sub domain.Subscription) (bool, error) {
	added := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model UserModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			subs, marshalErr := json.Marshal([]domain.Subscription{sub})
			if marshalErr != nil {
				return fmt.Errorf("failed to marshal subscriptions: %w", marshalErr)
			}
			added = true
			return tx.Create(&UserModel{ID: userID, Subscriptions: subs}).Error
		}
		if err != nil {
			return err
		}

		user, err := userModelToDomain(&model)
		if err != nil {
			return err
		}

		for _, existing := range user.Subscriptions {
			if existing.Endpoint == sub.Endpoint {
				return nil
			}
		}

		subs, err := json.Marshal(append(user.Subscriptions, sub))
		if err != nil {
			return fmt.Errorf("failed to marshal subscriptions: %w", err)
		}

		added = true
		return tx.Model(&UserModel{}).
			Where("id = ?", userID).
			Update("subscriptions", subs).Error
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

// RemoveSubscriptions drops stale endpoints from the user's subscription
// set. Unknown users and unknown endpoints are not errors.
func (r *GormUserRepo) RemoveSubscriptions(ctx context.Context, userID string, endpoints []string) error {
	if len(endpoints) == 0 {
		return nil
	}

	stale := make(map[string]struct{}, len(endpoints))
	for _, endpoint := range endpoints {
		stale[endpoint] = struct{}{}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model UserModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		user, err := userModelToDomain(&model)
		if err != nil {
			return err
		}

		kept := make([]domain.Subscription, 0, len(user.Subscriptions))
		for _, sub := range user.Subscriptions {
			if _, ok := stale[sub.Endpoint]; !ok {
				kept = append(kept, sub)
			}
		}
		if len(kept) == len(user.Subscriptions) {
			return nil
		}

		subs, err := json.Marshal(kept)
		if err != nil {
			return fmt.Errorf("failed to marshal subscriptions: %w", err)
		}

		return tx.Model(&UserModel{}).
			Where("id = ?", userID).
			Update("subscriptions", subs).Error
	})
}
