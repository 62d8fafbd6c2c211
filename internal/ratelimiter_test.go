package internal

import (
	"fmt"
	"testing"
	"time"
)

func TestRateLimiterEnforcesLimit(t *testing.T) {
	limiter := NewRateLimiter(3, time.Minute)
	now := time.Now()

	for i := 0; i < 3; i++ {
		if !limiter.allowAt("10.0.0.1", now) {
			t.Fatalf("hit %d should be allowed", i+1)
		}
	}
	if limiter.allowAt("10.0.0.1", now) {
		t.Fatalf("hit over the limit should be denied")
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	now := time.Now()

	if !limiter.allowAt("10.0.0.1", now) {
		t.Fatalf("first hit should be allowed")
	}
	if limiter.allowAt("10.0.0.1", now.Add(30*time.Second)) {
		t.Fatalf("hit inside the window should be denied")
	}
	if !limiter.allowAt("10.0.0.1", now.Add(61*time.Second)) {
		t.Fatalf("hit after the window drained should be allowed")
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	now := time.Now()

	if !limiter.allowAt("10.0.0.1", now) {
		t.Fatalf("first key should be allowed")
	}
	if !limiter.allowAt("10.0.0.2", now) {
		t.Fatalf("second key should not share the first key's budget")
	}
}

func TestRateLimiterEvictsIdleKeys(t *testing.T) {
	limiter := NewRateLimiter(5, time.Minute)
	now := time.Now()

	for i := 0; i < 50; i++ {
		if !limiter.allowAt(fmt.Sprintf("10.0.0.%d", i), now) {
			t.Fatalf("hit for key %d should be allowed", i)
		}
	}
	if got := limiter.size(); got != 50 {
		t.Fatalf("expected 50 tracked keys, got %d", got)
	}

	// two windows later every earlier key is idle and gets swept
	if !limiter.allowAt("10.0.1.1", now.Add(2*time.Minute)) {
		t.Fatalf("fresh key should be allowed")
	}
	if got := limiter.size(); got != 1 {
		t.Fatalf("expected idle keys evicted, still tracking %d", got)
	}
}
