package port

import (
	"context"
	"time"
)

// RateLimitStore keeps per-client request timestamps for the global HTTP limiter.
type RateLimitStore interface {
	TrimWindow(ctx context.Context, client string, window time.Duration, now time.Time) error
	CountAttempts(ctx context.Context, client string, window time.Duration, now time.Time) (int, error)
	RecordAttempt(ctx context.Context, client string, at time.Time) error
	OldestAttempt(ctx context.Context, client string, window time.Duration, now time.Time) (time.Time, bool, error)
}
