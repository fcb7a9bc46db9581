package port

import (
	"context"

	"github.com/arklim/account-service/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishUserLoggedIn(ctx context.Context, event domain.UserLoggedInEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishProfileUpdated(ctx context.Context, event domain.ProfileUpdatedEvent) error
}
