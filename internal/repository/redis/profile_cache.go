package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/core/port"
	"github.com/arklim/account-service/internal/repository"
)

const defaultProfilePrefix = "user"

// ProfileCacheRepository stores sanitized user snapshots as JSON strings.
type ProfileCacheRepository struct {
	client *red.Client
	prefix string
}

// NewProfileCacheRepository constructs a cache writing keys as <prefix>:<user id>.
func NewProfileCacheRepository(client *red.Client, keyPrefix string) *ProfileCacheRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultProfilePrefix
	}
	return &ProfileCacheRepository{client: client, prefix: prefix}
}

// Get returns the cached snapshot or repository.ErrNotFound on a miss.
func (r *ProfileCacheRepository) Get(ctx context.Context, userID string) (*domain.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	raw, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("%w: redis get: %v", repository.ErrUnavailable, err)
	}

	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("decode cached profile: %w", err)
	}
	return &user, nil
}

// Set writes the snapshot with the given TTL. The password digest is never cached.
func (r *ProfileCacheRepository) Set(ctx context.Context, user domain.User, ttl time.Duration) error {
	if strings.TrimSpace(user.ID) == "" {
		return errors.New("user id is required")
	}
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	payload, err := json.Marshal(user.Sanitized())
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	if err := r.client.Set(ctx, r.key(user.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %v", repository.ErrUnavailable, err)
	}
	return nil
}

// Delete evicts the snapshot. Evicting a missing key is not an error.
func (r *ProfileCacheRepository) Delete(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("user id is required")
	}

	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: redis del: %v", repository.ErrUnavailable, err)
	}
	return nil
}

func (r *ProfileCacheRepository) key(userID string) string {
	return r.prefix + ":" + userID
}

var _ port.ProfileCache = (*ProfileCacheRepository)(nil)
