package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/arklim/account-service/internal/core/port"
	"github.com/arklim/account-service/internal/repository"
)

const defaultAttemptPrefix = "loginAttempts"

// incrementWithWindow bumps the counter and arms the expiry only when the
// key was just created, so later increments never extend the window.
var incrementWithWindow = red.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// AttemptCounterRepository keeps fixed-window failure counters in Redis.
type AttemptCounterRepository struct {
	client *red.Client
	prefix string
}

// NewAttemptCounterRepository constructs a counter store under keyPrefix.
func NewAttemptCounterRepository(client *red.Client, keyPrefix string) *AttemptCounterRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultAttemptPrefix
	}
	return &AttemptCounterRepository{client: client, prefix: prefix}
}

// Increment adds one to the counter for key and returns the new value.
func (r *AttemptCounterRepository) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return 0, errors.New("attempt key is required")
	case window <= 0:
		return 0, errors.New("window must be positive")
	}

	count, err := incrementWithWindow.Run(ctx, r.client, []string{r.key(key)}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: redis incr: %v", repository.ErrUnavailable, err)
	}
	return count, nil
}

// Reset clears the counter for key.
func (r *AttemptCounterRepository) Reset(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("attempt key is required")
	}

	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: redis del: %v", repository.ErrUnavailable, err)
	}
	return nil
}

func (r *AttemptCounterRepository) key(key string) string {
	return r.prefix + ":" + key
}

var _ port.AttemptCounter = (*AttemptCounterRepository)(nil)
