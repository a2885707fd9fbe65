package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/labcompare/push-dispatcher/internal/domain"
	"github.com/labcompare/push-dispatcher/internal/repository"
	"go.uber.org/zap"
)

// JourneyService materializes journey templates into scheduled tasks and
// accepts ad-hoc task scheduling.
type JourneyService struct {
	tasks    repository.TaskRepository
	users    repository.UserRepository
	journeys repository.JourneyRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewJourneyService(
	tasks repository.TaskRepository,
	users repository.UserRepository,
	journeys repository.JourneyRepository,
	logger *zap.Logger,
) (*JourneyService, error) {
	if tasks == nil {
		return nil, fmt.Errorf("task repository is required")
	}
	if users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if journeys == nil {
		return nil, fmt.Errorf("journey repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &JourneyService{
		tasks:    tasks,
		users:    users,
		journeys: journeys,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// StartJourney schedules one task per journey step for the user, with due
// times offset from now by each step's delay. The whole batch is written
// atomically: a transient store failure leaves no partially scheduled
// journey behind. Returns the number of tasks scheduled.
func (s *JourneyService) StartJourney(ctx context.Context, userID, journeyID string) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if userID == "" {
		return 0, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	if journeyID == "" {
		return 0, fmt.Errorf("%w: journey id is required", domain.ErrValidation)
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return 0, fmt.Errorf("failed to resolve user %q: %w", userID, err)
	}

	journey, err := s.journeys.GetByID(ctx, journeyID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve journey %q: %w", journeyID, err)
	}
	if err := journey.Validate(); err != nil {
		return 0, err
	}

	start := s.now().UTC()
	tasks := make([]*domain.ScheduledTask, 0, len(journey.Steps))
	for i, step := range journey.Steps {
		tasks = append(tasks, &domain.ScheduledTask{
			ID:        uuid.NewString(),
			UserID:    userID,
			JourneyID: &journey.ID,
			StepIndex: i,
			SendAt:    start.Add(time.Duration(step.DelaySeconds) * time.Second),
			Payload:   step.Payload,
			Tag:       step.Tag,
		})
	}

	if err := s.tasks.CreateBatch(ctx, tasks); err != nil {
		return 0, fmt.Errorf("failed to schedule journey tasks: %w", err)
	}

	s.logger.Info("journey scheduled",
		zap.String("journeyId", journey.ID),
		zap.String("userId", userID),
		zap.Int("steps", len(tasks)),
	)

	return len(tasks), nil
}

// Schedule inserts a single ad-hoc task, the low-level producer path next to
// journeys.
func (s *JourneyService) Schedule(
	ctx context.Context,
	userID string,
	sendAt time.Time,
	payload domain.Payload,
	tag *string,
) (*domain.ScheduledTask, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to resolve user %q: %w", userID, err)
	}

	task := &domain.ScheduledTask{
		ID:      uuid.NewString(),
		UserID:  userID,
		SendAt:  sendAt.UTC(),
		Payload: payload,
		Tag:     tag,
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.Info("task scheduled",
		zap.String("taskId", task.ID),
		zap.String("userId", userID),
		zap.Time("sendAt", task.SendAt),
	)

	return task, nil
}

// CreateJourney stores a new journey template.
func (s *JourneyService) CreateJourney(ctx context.Context, journey *domain.Journey) (*domain.Journey, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := journey.Validate(); err != nil {
		return nil, err
	}

	if journey.ID == "" {
		journey.ID = uuid.NewString()
	}

	if err := s.journeys.Create(ctx, journey); err != nil {
		return nil, fmt.Errorf("failed to create journey: %w", err)
	}

	return journey, nil
}

func (s *JourneyService) ListJourneys(ctx context.Context) ([]domain.Journey, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.journeys.List(ctx)
}
