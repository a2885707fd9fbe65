package domain

import (
	"fmt"
	"time"
)

// JourneyStep is one time-offset message inside a journey template.
type JourneyStep struct {
	DelaySeconds int64   `json:"delaySeconds"`
	Payload      Payload `json:"payload"`
	Tag          *string `json:"tag,omitempty"`
}

// Journey is a named, ordered template of notification steps. Starting a
// journey for a user materializes one ScheduledTask per step; the template
// itself is read-only afterwards.
type Journey struct {
	ID        string
	Name      string
	Steps     []JourneyStep
	CreatedAt time.Time
}

func (j *Journey) Validate() error {
	if j == nil {
		return fmt.Errorf("%w: journey is required", ErrValidation)
	}
	if j.Name == "" {
		return fmt.Errorf("%w: journey name is required", ErrValidation)
	}
	if len(j.Steps) == 0 {
		return fmt.Errorf("%w: journey requires at least one step", ErrValidation)
	}
	for i := range j.Steps {
		step := &j.Steps[i]
		if step.DelaySeconds < 0 {
			return fmt.Errorf("%w: step %d delay must not be negative", ErrValidation, i)
		}
		if step.Tag != nil && *step.Tag == "" {
			return fmt.Errorf("%w: step %d tag must not be empty when set", ErrValidation, i)
		}
		if err := step.Payload.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}
