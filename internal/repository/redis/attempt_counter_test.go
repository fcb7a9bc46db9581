package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arklim/account-service/internal/repository"
)

func TestAttemptCounter_IncrementStartsWindowOnce(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewAttemptCounterRepository(client, "loginAttempts")
	ctx := context.Background()
	window := 24 * time.Hour

	count, err := repo.Increment(ctx, "a@x.com", window)
	if err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected first increment to return 1, got %d", count)
	}
	if ttl := server.TTL("loginAttempts:a@x.com"); ttl != window {
		t.Fatalf("expected ttl %v, got %v", window, ttl)
	}

	server.FastForward(time.Hour)

	count, err = repo.Increment(ctx, "a@x.com", window)
	if err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected second increment to return 2, got %d", count)
	}
	if ttl := server.TTL("loginAttempts:a@x.com"); ttl != window-time.Hour {
		t.Fatalf("expected window not to be extended, ttl=%v", ttl)
	}
}

func TestAttemptCounter_WindowExpiry(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewAttemptCounterRepository(client, "")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := repo.Increment(ctx, "a@x.com", time.Minute); err != nil {
			t.Fatalf("Increment returned error: %v", err)
		}
	}

	server.FastForward(time.Minute + time.Second)

	count, err := repo.Increment(ctx, "a@x.com", time.Minute)
	if err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected counter to restart after expiry, got %d", count)
	}
}

func TestAttemptCounter_Reset(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewAttemptCounterRepository(client, "loginAttempts")
	ctx := context.Background()

	if _, err := repo.Increment(ctx, "a@x.com", time.Hour); err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if err := repo.Reset(ctx, "a@x.com"); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}
	if server.Exists("loginAttempts:a@x.com") {
		t.Fatal("expected key to be removed")
	}
	if err := repo.Reset(ctx, "never-seen"); err != nil {
		t.Fatalf("Reset of missing key returned error: %v", err)
	}
}

func TestAttemptCounter_Unavailable(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewAttemptCounterRepository(client, "loginAttempts")
	server.Close()

	_, err := repo.Increment(context.Background(), "a@x.com", time.Hour)
	if !errors.Is(err, repository.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestAttemptCounter_InvalidInput(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewAttemptCounterRepository(client, "loginAttempts")

	if _, err := repo.Increment(context.Background(), " ", time.Hour); err == nil {
		t.Fatal("expected error for empty key")
	}
	if _, err := repo.Increment(context.Background(), "a@x.com", 0); err == nil {
		t.Fatal("expected error for non-positive window")
	}
}
