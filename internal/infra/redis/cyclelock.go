package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	cycleLockKey        = "pushdispatch:cycle:lock"
	defaultCycleLockTTL = 4 * time.Minute
)

// Release only deletes the key when it still carries this holder's token,
// so an expired lease cannot release a sibling's lock.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// CycleLock is a Redis lease serializing dispatch cycles across instances.
// A cycle that cannot acquire the lease is skipped; the next tick retries.
type CycleLock struct {
	client *goredis.Client
	key    string
	ttl    time.Duration
	token  func() string
}

func NewCycleLock(client *goredis.Client, ttl time.Duration) (*CycleLock, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultCycleLockTTL
	}

	return &CycleLock{
		client: client,
		key:    cycleLockKey,
		ttl:    ttl,
		token:  uuid.NewString,
	}, nil
}

// Acquire attempts to take the lease. It returns a release function on
// success and ok=false when another holder owns the lease.
func (l *CycleLock) Acquire(ctx context.Context) (release func(context.Context), ok bool, err error) {
	if l == nil || l.client == nil {
		return nil, false, fmt.Errorf("cycle lock is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	token := l.token()
	acquired, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire cycle lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}

	release = func(releaseCtx context.Context) {
		if releaseCtx == nil {
			releaseCtx = context.Background()
		}
		_ = releaseScript.Run(releaseCtx, l.client, []string{l.key}, token).Err()
	}

	return release, true, nil
}
