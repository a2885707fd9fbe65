package service

import (
	"context"
	"fmt"

	"github.com/labcompare/push-dispatcher/internal/domain"
	"github.com/labcompare/push-dispatcher/internal/repository"
	"go.uber.org/zap"
)

// SubscriptionService registers push delivery endpoints for users.
type SubscriptionService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func NewSubscriptionService(users repository.UserRepository, logger *zap.Logger) (*SubscriptionService, error) {
	if users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SubscriptionService{users: users, logger: logger}, nil
}

// Subscribe appends the subscription to the user's set. Registering the same
// endpoint twice is not an error; the second call reports added=false. A
// missing user record is created on the fly, since devices may register
// before the account workflow has written anything else.
func (s *SubscriptionService) Subscribe(ctx context.Context, userID string, sub domain.Subscription) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if userID == "" {
		return false, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	if err := sub.Validate(); err != nil {
		return false, err
	}

	added, err := s.users.AddSubscription(ctx, userID, sub)
	if err != nil {
		return false, fmt.Errorf("failed to register subscription: %w", err)
	}

	if added {
		s.logger.Info("subscription registered",
			zap.String("userId", userID),
			zap.String("endpoint", sub.Endpoint),
		)
	}

	return added, nil
}
