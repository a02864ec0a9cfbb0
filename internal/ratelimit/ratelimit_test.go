package ratelimit

import (
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(limit rate.Limit, burst int, ttl time.Duration) (*KeyedRateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := New(limit, burst, 0)
	rl.idleTTL = ttl
	rl.now = clock.now
	return rl, clock
}

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		limit    rate.Limit
		burst    int
		calls    int
		wantPass int
	}{
		{
			name:     "burst allows initial requests",
			limit:    1,
			burst:    3,
			calls:    3,
			wantPass: 3,
		},
		{
			name:     "exceeding burst blocks",
			limit:    1,
			burst:    2,
			calls:    5,
			wantPass: 2,
		},
		{
			name:     "per minute allowance",
			limit:    PerMinute(30),
			burst:    10,
			calls:    12,
			wantPass: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl, _ := newTestLimiter(tt.limit, tt.burst, 0)
			defer rl.Stop()

			passed := 0
			for range tt.calls {
				if rl.Allow("client") {
					passed++
				}
			}

			if passed != tt.wantPass {
				t.Errorf("Allow() passed %d, want %d", passed, tt.wantPass)
			}
		})
	}
}

func TestKeyedRateLimiter_KeysAreIndependent(t *testing.T) {
	rl, _ := newTestLimiter(1, 1, 0)
	defer rl.Stop()

	if !rl.Allow("a") {
		t.Fatal("first call for a should pass")
	}
	if rl.Allow("a") {
		t.Error("second call for a should be limited")
	}
	if !rl.Allow("b") {
		t.Error("b has its own bucket")
	}
}

func TestKeyedRateLimiter_Refills(t *testing.T) {
	rl, clock := newTestLimiter(PerMinute(60), 1, 0)
	defer rl.Stop()

	if !rl.Allow("a") || rl.Allow("a") {
		t.Fatal("expected one token then exhaustion")
	}
	clock.advance(time.Second)
	if !rl.Allow("a") {
		t.Error("token should refill after one second")
	}
}

func TestKeyedRateLimiter_Sweep(t *testing.T) {
	rl, clock := newTestLimiter(1, 1, time.Minute)
	defer rl.Stop()

	rl.Allow("old")
	clock.advance(2 * time.Minute)
	rl.Allow("fresh")

	if removed := rl.Sweep(); removed != 1 {
		t.Errorf("Sweep() removed %d, want 1", removed)
	}
	if rl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", rl.Len())
	}
}

func TestKeyedRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := New(1, 1, time.Hour)
	rl.Stop()
	rl.Stop()
}
