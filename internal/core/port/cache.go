package port

import (
	"context"
	"time"

	"github.com/arklim/account-service/internal/core/domain"
)

// AttemptCounter is a fixed-window counter keyed by an arbitrary string.
type AttemptCounter interface {
	// Increment atomically adds one and, when the key is new, starts its window.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	// Reset removes the counter. Resetting a missing key is not an error.
	Reset(ctx context.Context, key string) error
}

// ProfileCache stores read-optimised user snapshots without credential material.
type ProfileCache interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Set(ctx context.Context, user domain.User, ttl time.Duration) error
	Delete(ctx context.Context, userID string) error
}
