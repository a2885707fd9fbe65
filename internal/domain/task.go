package domain

import (
	"fmt"
	"time"
)

// ScheduledTask is one pending push delivery for one user.
//
// A task is processed at most once: the dispatcher deletes it after a single
// attempt regardless of the delivery outcome, so the store never hands out
// an already-processed task again.
type ScheduledTask struct {
	ID        string
	UserID    string
	JourneyID *string
	StepIndex int
	SendAt    time.Time
	Payload   Payload
	Tag       *string
	CreatedAt time.Time
}

func (t *ScheduledTask) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: task is required", ErrValidation)
	}
	if t.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if t.SendAt.IsZero() {
		return fmt.Errorf("%w: send time is required", ErrValidation)
	}
	if t.Tag != nil && *t.Tag == "" {
		return fmt.Errorf("%w: tag must not be empty when set", ErrValidation)
	}
	if err := t.Payload.Validate(); err != nil {
		return err
	}
	return nil
}
