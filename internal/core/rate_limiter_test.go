package core

import (
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	rl := newSessionRateLimiter(3, time.Minute)
	at := time.Unix(1700000000, 0)
	rl.now = func() time.Time { return at }

	for i := 0; i < 3; i++ {
		if !rl.Allow("a") {
			t.Fatalf("attempt %d blocked inside limit", i)
		}
	}
	if rl.Allow("a") {
		t.Fatalf("attempt over limit allowed")
	}
	if !rl.Allow("b") {
		t.Fatalf("other session affected by a's history")
	}

	// Past the window the budget refills.
	at = at.Add(2 * time.Minute)
	if !rl.Allow("a") {
		t.Fatalf("attempt after window expiry blocked")
	}
}

func TestRateLimiterForget(t *testing.T) {
	rl := newSessionRateLimiter(1, time.Minute)
	at := time.Unix(1700000000, 0)
	rl.now = func() time.Time { return at }

	rl.Allow("a")
	if rl.Allow("a") {
		t.Fatalf("limit not enforced")
	}
	rl.Forget("a")
	if !rl.Allow("a") {
		t.Fatalf("history survived Forget")
	}
}
