package ratelimit

import "context"

// RateLimiter throttles outbound delivery calls per scope (e.g. the push
// gateway). Wait blocks until a slot is free or the context ends.
type RateLimiter interface {
	Allow(ctx context.Context, scope string) (bool, error)
	Wait(ctx context.Context, scope string) error
}
