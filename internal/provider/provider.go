package provider

import (
	"context"

	"github.com/labcompare/push-dispatcher/internal/domain"
)

// Provider is the outbound push delivery port. One call addresses one
// subscription; failures come back as error values, never as panics, so a
// caller's concurrent fan-out is not disturbed.
type Provider interface {
	Send(ctx context.Context, sub domain.Subscription, payload domain.Payload) (*Response, error)
}

// Response stores provider call metadata for logging and diagnostics.
type Response struct {
	StatusCode int
	Body       string
	MessageID  string
}
