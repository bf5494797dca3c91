package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToRate(t *testing.T) {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     3,
		interval: time.Minute,
	}

	for i := 0; i < 3; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d rejected within rate", i+1)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Error("request over rate allowed")
	}

	// A different IP has its own bucket.
	if !rl.allow("10.0.0.2") {
		t.Error("fresh IP rejected")
	}
}

func TestRateLimiterRefills(t *testing.T) {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     2,
		interval: 10 * time.Millisecond,
	}

	rl.allow("10.0.0.1")
	rl.allow("10.0.0.1")
	if rl.allow("10.0.0.1") {
		t.Fatal("bucket not exhausted")
	}

	time.Sleep(25 * time.Millisecond)
	if !rl.allow("10.0.0.1") {
		t.Error("bucket did not refill after interval")
	}
}
