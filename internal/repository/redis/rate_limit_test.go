package redis

import (
	"context"
	"testing"
	"time"
)

func TestRequestLog_CountAndTrim(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewRequestLogRepository(client, "rl", time.Minute)
	ctx := context.Background()

	base := time.Unix(1_700_000_000, 0)
	for i := 0; i < 3; i++ {
		if err := repo.RecordAttempt(ctx, "client-a", base.Add(time.Duration(i)*10*time.Second)); err != nil {
			t.Fatalf("RecordAttempt returned error: %v", err)
		}
	}

	if ttl := server.TTL("rl:client-a"); ttl != time.Minute {
		t.Fatalf("expected key ttl of one window, got %v", ttl)
	}

	now := base.Add(30 * time.Second)
	count, err := repo.CountAttempts(ctx, "client-a", time.Minute, now)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 attempts, got %d", count)
	}

	later := base.Add(65 * time.Second)
	if err := repo.TrimWindow(ctx, "client-a", time.Minute, later); err != nil {
		t.Fatalf("TrimWindow returned error: %v", err)
	}
	count, err = repo.CountAttempts(ctx, "client-a", time.Minute, later)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 attempts after trim, got %d", count)
	}

	oldest, ok, err := repo.OldestAttempt(ctx, "client-a", time.Minute, later)
	if err != nil {
		t.Fatalf("OldestAttempt returned error: %v", err)
	}
	if !ok || !oldest.Equal(base.Add(10*time.Second)) {
		t.Fatalf("expected oldest attempt at +10s, got %v ok=%v", oldest, ok)
	}
}

func TestRequestLog_EmptyWindow(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRequestLogRepository(client, "", time.Minute)

	_, ok, err := repo.OldestAttempt(context.Background(), "nobody", time.Minute, time.Now())
	if err != nil {
		t.Fatalf("OldestAttempt returned error: %v", err)
	}
	if ok {
		t.Fatal("expected no attempts")
	}

	if _, err := repo.CountAttempts(context.Background(), "nobody", 0, time.Now()); err == nil {
		t.Fatal("expected error for non-positive window")
	}
}
