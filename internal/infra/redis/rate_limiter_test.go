package redis

import (
	"context"
	"testing"
	"time"
)

type memCounter struct {
	counts map[string]int64
	ttls   map[string]time.Duration
}

func newMemCounter() *memCounter {
	return &memCounter{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (m *memCounter) Incr(ctx context.Context, key string) (int64, error) {
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memCounter) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.ttls[key] = ttl
	return nil
}

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	counter := newMemCounter()
	rl := NewRateLimiter(counter)
	key := UserCommandKey("u1", "ask")

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		if err != nil {
			t.Fatalf("Allow #%d: %v", i+1, err)
		}
		if !ok {
			t.Fatalf("request %d within the limit was denied", i+1)
		}
	}

	ok, err := rl.Allow(ctx, key, 3, time.Minute)
	if err != nil {
		t.Fatalf("Allow over limit: %v", err)
	}
	if ok {
		t.Fatal("request over the limit was allowed")
	}

	if counter.ttls[key] != time.Minute {
		t.Errorf("window ttl set on first hit = %v, want 1m", counter.ttls[key])
	}
}

func TestUserCommandKey(t *testing.T) {
	if got := UserCommandKey("7", "ask"); got != "rate_limit:7:ask" {
		t.Errorf("key = %q", got)
	}
}
