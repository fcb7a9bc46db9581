package port

import (
	"context"
	"time"

	"github.com/arklim/account-service/internal/core/domain"
)

// UserRepository exposes persistence behavior for users.
type UserRepository interface {
	Repository[domain.User]
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdatePassword(ctx context.Context, id string, passwordHash string, updatedBy *string, at time.Time) error
}
