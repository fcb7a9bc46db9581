package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/core/port"
	"github.com/arklim/account-service/internal/infra/logger"
)

// StubPublisher logs events instead of sending them. It is wired when no brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a logging event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, fields ...zap.Field) {
	if at.IsZero() {
		at = time.Now()
	}

	p.logger.Info("event published",
		append([]zap.Field{
			zap.String("event_type", eventType),
			zap.String("user_id", userID),
			zap.Time("timestamp", at.UTC()),
		}, fields...)...,
	)
}

// PublishUserRegistered logs user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.logEvent(EventUserRegistered, event.UserID, event.RegisteredAt,
		zap.String("username", event.Username),
		zap.String("email", logger.MaskEmail(event.Email)),
		zap.String("role", string(event.Role)),
	)
	return nil
}

// PublishUserLoggedIn logs user.logged_in events.
func (p *StubPublisher) PublishUserLoggedIn(_ context.Context, event domain.UserLoggedInEvent) error {
	ip := ""
	if event.ClientIP != nil {
		ip = logger.MaskIP(*event.ClientIP)
	}
	p.logEvent(EventUserLoggedIn, event.UserID, event.LoggedInAt, zap.String("client_ip", ip))
	return nil
}

// PublishPasswordChanged logs user.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.logEvent(EventPasswordChanged, event.UserID, event.ChangedAt, zap.String("changed_by", event.ChangedBy))
	return nil
}

// PublishProfileUpdated logs user.profile.updated events.
func (p *StubPublisher) PublishProfileUpdated(_ context.Context, event domain.ProfileUpdatedEvent) error {
	p.logEvent(EventProfileUpdated, event.UserID, event.UpdatedAt,
		zap.Strings("fields", event.Fields),
		zap.Int64("version", event.Version),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
