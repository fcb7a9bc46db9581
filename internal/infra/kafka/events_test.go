package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(map[string][]*sarama.PartitionOffsetMetadata, string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(*sarama.ConsumerMessage, string, *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T) (*EventPublisher, *fakeAsyncProducer) {
	t.Helper()

	async := newFakeAsyncProducer()
	producer := newProducer(async, "account", zaptest.NewLogger(t))
	t.Cleanup(func() { _ = producer.Close() })

	publisher := NewEventPublisher(producer, config.AppSettings{Name: "account-service", Env: "test"}, zaptest.NewLogger(t))
	return publisher, async
}

func decodeEnvelope(t *testing.T, msg *sarama.ProducerMessage) map[string]any {
	t.Helper()

	body, err := msg.Value.Encode()
	if err != nil {
		t.Fatalf("Value.Encode returned error: %v", err)
	}

	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("failed to unmarshal envelope: %v", err)
	}
	return envelope
}

func TestPublishUserRegistered(t *testing.T) {
	publisher, async := newTestPublisher(t)

	registeredAt := time.Date(2026, 4, 1, 8, 30, 0, 0, time.UTC)
	event := domain.UserRegisteredEvent{
		EventID:      "event-1",
		UserID:       "user-1",
		Username:     "alice",
		Email:        "a@x.com",
		Role:         domain.RoleUser,
		RegisteredAt: registeredAt,
	}

	if err := publisher.PublishUserRegistered(context.Background(), event); err != nil {
		t.Fatalf("PublishUserRegistered returned error: %v", err)
	}

	msg := <-async.input
	if msg.Topic != "account.user.registered" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}

	key, err := msg.Key.Encode()
	if err != nil || string(key) != "user-1" {
		t.Fatalf("expected message keyed by user id, got %q (%v)", key, err)
	}

	envelope := decodeEnvelope(t, msg)
	if envelope["event_id"] != "event-1" || envelope["event_type"] != EventUserRegistered {
		t.Fatalf("unexpected envelope header: %v", envelope)
	}
	if envelope["timestamp"] != registeredAt.Format(time.RFC3339Nano) {
		t.Fatalf("unexpected timestamp: %v", envelope["timestamp"])
	}

	payload, ok := envelope["payload"].(map[string]any)
	if !ok {
		t.Fatalf("payload not a map: %T", envelope["payload"])
	}
	if payload["username"] != "alice" || payload["role"] != "user" {
		t.Fatalf("unexpected payload: %v", payload)
	}

	metadata, ok := envelope["metadata"].(map[string]any)
	if !ok || metadata["service"] != "account-service" || metadata["environment"] != "test" {
		t.Fatalf("unexpected metadata: %v", envelope["metadata"])
	}
}

func TestPublishProfileUpdatedGeneratesEventID(t *testing.T) {
	publisher, async := newTestPublisher(t)

	event := domain.ProfileUpdatedEvent{
		UserID:    "user-1",
		Fields:    []string{"name", "email"},
		Version:   4,
		UpdatedAt: time.Now(),
	}

	if err := publisher.PublishProfileUpdated(context.Background(), event); err != nil {
		t.Fatalf("PublishProfileUpdated returned error: %v", err)
	}

	envelope := decodeEnvelope(t, <-async.input)
	if id, _ := envelope["event_id"].(string); id == "" {
		t.Fatal("expected generated event id")
	}

	payload := envelope["payload"].(map[string]any)
	if payload["version"] != float64(4) {
		t.Fatalf("unexpected version: %v", payload["version"])
	}
	fields, ok := payload["fields"].([]any)
	if !ok || len(fields) != 2 {
		t.Fatalf("unexpected fields: %v", payload["fields"])
	}
}

func TestPublishRespectsContextCancellation(t *testing.T) {
	publisher, async := newTestPublisher(t)

	// Fill the single-slot buffer so the next publish blocks.
	async.input <- &sarama.ProducerMessage{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.PublishPasswordChanged(ctx, domain.PasswordChangedEvent{UserID: "user-1", ChangedBy: "self"})
	if err == nil {
		t.Fatal("expected cancelled context to abort publish")
	}
}

func TestTopicName(t *testing.T) {
	p := &Producer{prefix: "account"}

	if got := p.TopicName(EventUserLoggedIn); got != "account.user.logged_in" {
		t.Fatalf("unexpected topic: %s", got)
	}
	if got := p.TopicName("account.user.logged_in"); got != "account.user.logged_in" {
		t.Fatalf("prefix applied twice: %s", got)
	}

	bare := &Producer{}
	if got := bare.TopicName(EventUserLoggedIn); got != EventUserLoggedIn {
		t.Fatalf("unexpected topic without prefix: %s", got)
	}
}

func TestStubPublisherMasksPII(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	stub := NewStubPublisher(zap.New(core))

	ip := "203.0.113.24"
	if err := stub.PublishUserLoggedIn(context.Background(), domain.UserLoggedInEvent{UserID: "user-1", ClientIP: &ip}); err != nil {
		t.Fatalf("PublishUserLoggedIn returned error: %v", err)
	}
	if err := stub.PublishUserRegistered(context.Background(), domain.UserRegisteredEvent{UserID: "user-1", Email: "alice@example.com"}); err != nil {
		t.Fatalf("PublishUserRegistered returned error: %v", err)
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["client_ip"]; got == ip {
		t.Fatalf("expected client ip to be masked, got %v", got)
	}
	if got := entries[1].ContextMap()["email"]; got == "alice@example.com" {
		t.Fatalf("expected email to be masked, got %v", got)
	}
	if got := entries[1].ContextMap()["event_type"]; got != EventUserRegistered {
		t.Fatalf("unexpected event type: %v", got)
	}
}
