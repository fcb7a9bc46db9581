package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/core/port"
	"github.com/arklim/account-service/internal/infra/config"
)

const schemaVersion = "1.0"

// Event types, prefixed with the configured topic prefix on publish.
const (
	EventUserRegistered  = "user.registered"
	EventUserLoggedIn    = "user.logged_in"
	EventPasswordChanged = "user.password.changed"
	EventProfileUpdated  = "user.profile.updated"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now()
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}

	metadata := map[string]string{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	body, err := json.Marshal(eventEnvelope{
		EventID:   eventID,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", eventType, err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(userID),
		Value: sarama.ByteEncoder(body),
	}

	select {
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserRegistered publishes user.registered events.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	payload := struct {
		UserID       string         `json:"user_id"`
		Username     string         `json:"username"`
		Email        string         `json:"email"`
		Role         string         `json:"role"`
		RegisteredAt time.Time      `json:"registered_at"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		UserID:       event.UserID,
		Username:     event.Username,
		Email:        event.Email,
		Role:         string(event.Role),
		RegisteredAt: event.RegisteredAt.UTC(),
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, EventUserRegistered, event.UserID, event.RegisteredAt, payload)
}

// PublishUserLoggedIn publishes user.logged_in events.
func (p *EventPublisher) PublishUserLoggedIn(ctx context.Context, event domain.UserLoggedInEvent) error {
	payload := struct {
		UserID     string         `json:"user_id"`
		LoggedInAt time.Time      `json:"logged_in_at"`
		ClientIP   *string        `json:"client_ip,omitempty"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		UserID:     event.UserID,
		LoggedInAt: event.LoggedInAt.UTC(),
		ClientIP:   event.ClientIP,
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, EventUserLoggedIn, event.UserID, event.LoggedInAt, payload)
}

// PublishPasswordChanged publishes user.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		UserID    string         `json:"user_id"`
		ChangedAt time.Time      `json:"changed_at"`
		ChangedBy string         `json:"changed_by"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		UserID:    event.UserID,
		ChangedAt: event.ChangedAt.UTC(),
		ChangedBy: event.ChangedBy,
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, EventPasswordChanged, event.UserID, event.ChangedAt, payload)
}

// PublishProfileUpdated publishes user.profile.updated events.
func (p *EventPublisher) PublishProfileUpdated(ctx context.Context, event domain.ProfileUpdatedEvent) error {
	payload := struct {
		UserID    string         `json:"user_id"`
		Fields    []string       `json:"fields"`
		Version   int64          `json:"version"`
		UpdatedAt time.Time      `json:"updated_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		UserID:    event.UserID,
		Fields:    event.Fields,
		Version:   event.Version,
		UpdatedAt: event.UpdatedAt.UTC(),
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, EventProfileUpdated, event.UserID, event.UpdatedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
