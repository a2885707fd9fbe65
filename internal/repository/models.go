package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/labcompare/push-dispatcher/internal/domain"
)

// TaskModel is the persistence model for the scheduled_tasks table.
type TaskModel struct {
	ID        string  `gorm:"type:uuid;primaryKey"`
	UserID    string  `gorm:"type:varchar(64);not null"`
	JourneyID *string `gorm:"type:varchar(64)"`
	StepIndex int     `gorm:"not null;default:0"`
	SendAt    time.Time
	Payload   []byte  `gorm:"type:jsonb;not null"`
	Tag       *string `gorm:"type:varchar(64)"`
	CreatedAt time.Time
}

func (TaskModel) TableName() string {
	return "scheduled_tasks"
}

// UserModel is the persistence model for the users table.
type UserModel struct {
	ID            string `gorm:"type:varchar(64);primaryKey"`
	Tags          []byte `gorm:"type:jsonb"`
	Subscriptions []byte `gorm:"type:jsonb"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (UserModel) TableName() string {
	return "users"
}

// JourneyModel is the persistence model for the journeys table.
type JourneyModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Name      string `gorm:"type:varchar(255);not null"`
	Steps     []byte `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
}

func (JourneyModel) TableName() string {
	return "journeys"
}

func taskModelFromDomain(t *domain.ScheduledTask) (*TaskModel, error) {
	if t == nil {
		return nil, nil
	}

	payload, err := json.Marshal(t.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}

	return &TaskModel{
		ID:        t.ID,
		UserID:    t.UserID,
		JourneyID: t.JourneyID,
		StepIndex: t.StepIndex,
		SendAt:    t.SendAt,
		Payload:   payload,
		Tag:       t.Tag,
		CreatedAt: t.CreatedAt,
	}, nil
}

func taskModelToDomain(m *TaskModel) (*domain.ScheduledTask, error) {
	if m == nil {
		return nil, nil
	}

	var payload domain.Payload
	if len(m.Payload) > 0 {
		if err := json.Unmarshal(m.Payload, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal task payload: %w", err)
		}
	}

	return &domain.ScheduledTask{
		ID:        m.ID,
		UserID:    m.UserID,
		JourneyID: m.JourneyID,
		StepIndex: m.StepIndex,
		SendAt:    m.SendAt,
		Payload:   payload,
		Tag:       m.Tag,
		CreatedAt: m.CreatedAt,
	}, nil
}

func userModelToDomain(m *UserModel) (*domain.User, error) {
	if m == nil {
		return nil, nil
	}

	user := &domain.User{ID: m.ID}
	if len(m.Tags) > 0 {
		if err := json.Unmarshal(m.Tags, &user.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal user tags: %w", err)
		}
	}
	if len(m.Subscriptions) > 0 {
		if err := json.Unmarshal(m.Subscriptions, &user.Subscriptions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal user subscriptions: %w", err)
		}
	}

	return user, nil
}

func journeyModelFromDomain(j *domain.Journey) (*JourneyModel, error) {
	if j == nil {
		return nil, nil
	}

	steps, err := json.Marshal(j.Steps)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal journey steps: %w", err)
	}

	return &JourneyModel{
		ID:        j.ID,
		Name:      j.Name,
		Steps:     steps,
		CreatedAt: j.CreatedAt,
	}, nil
}

func journeyModelToDomain(m *JourneyModel) (*domain.Journey, error) {
	if m == nil {
		return nil, nil
	}

	journey := &domain.Journey{
		ID:        m.ID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
	}
	if len(m.Steps) > 0 {
		if err := json.Unmarshal(m.Steps, &journey.Steps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal journey steps: %w", err)
		}
	}

	return journey, nil
}
