package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/arklim/account-service/internal/core/port"
)

const defaultRateLimitPrefix = "account:rate-limit"

// RequestLogRepository keeps per-client request timestamps in sorted sets
// scored by Unix nanoseconds. Each key expires one window after its last write.
type RequestLogRepository struct {
	client *red.Client
	prefix string
	ttl    time.Duration
}

// NewRequestLogRepository constructs the store backing the global HTTP limiter.
func NewRequestLogRepository(client *red.Client, keyPrefix string, window time.Duration) *RequestLogRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultRateLimitPrefix
	}
	return &RequestLogRepository{client: client, prefix: prefix, ttl: window}
}

// RecordAttempt appends a request timestamp for client.
func (r *RequestLogRepository) RecordAttempt(ctx context.Context, client string, at time.Time) error {
	key := r.key(client)
	nanos := at.UnixNano()

	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, key, red.Z{Score: float64(nanos), Member: strconv.FormatInt(nanos, 10)})
	if r.ttl > 0 {
		pipe.PExpire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis record request: %w", err)
	}
	return nil
}

// CountAttempts returns the number of requests in (now-window, now].
func (r *RequestLogRepository) CountAttempts(ctx context.Context, client string, window time.Duration, now time.Time) (int, error) {
	lower, upper, err := windowBounds(window, now)
	if err != nil {
		return 0, err
	}

	count, err := r.client.ZCount(ctx, r.key(client), lower, upper).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zcount: %w", err)
	}
	return int(count), nil
}

// TrimWindow drops requests that fell out of the window.
func (r *RequestLogRepository) TrimWindow(ctx context.Context, client string, window time.Duration, now time.Time) error {
	if window <= 0 {
		return errors.New("window must be positive")
	}

	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)
	if err := r.client.ZRemRangeByScore(ctx, r.key(client), "-inf", cutoff).Err(); err != nil {
		return fmt.Errorf("redis zremrangebyscore: %w", err)
	}
	return nil
}

// OldestAttempt returns the earliest request still inside the window.
func (r *RequestLogRepository) OldestAttempt(ctx context.Context, client string, window time.Duration, now time.Time) (time.Time, bool, error) {
	lower, upper, err := windowBounds(window, now)
	if err != nil {
		return time.Time{}, false, err
	}

	members, err := r.client.ZRangeByScore(ctx, r.key(client), &red.ZRangeBy{
		Min:   lower,
		Max:   upper,
		Count: 1,
	}).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis zrangebyscore: %w", err)
	}
	if len(members) == 0 {
		return time.Time{}, false, nil
	}

	nanos, err := strconv.ParseInt(members[0], 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse request timestamp: %w", err)
	}
	return time.Unix(0, nanos), true, nil
}

func (r *RequestLogRepository) key(client string) string {
	return r.prefix + ":" + client
}

func windowBounds(window time.Duration, now time.Time) (string, string, error) {
	if window <= 0 {
		return "", "", errors.New("window must be positive")
	}
	lower := "(" + strconv.FormatInt(now.Add(-window).UnixNano(), 10)
	upper := strconv.FormatInt(now.UnixNano(), 10)
	return lower, upper, nil
}

var _ port.RateLimitStore = (*RequestLogRepository)(nil)
