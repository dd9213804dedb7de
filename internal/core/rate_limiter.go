package core

import (
	"sync"
	"time"

	"github.com/arenalab/skirmish/internal/domain"
)

// sessionRateLimiter bounds per-session message bursts inside a
// sliding window. Used for chat so one member cannot flood a room.
type sessionRateLimiter struct {
	mu       sync.Mutex
	history  map[domain.SessionID][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func newSessionRateLimiter(limit int, interval time.Duration) *sessionRateLimiter {
	return &sessionRateLimiter{
		history:  make(map[domain.SessionID][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *sessionRateLimiter) Allow(sid domain.SessionID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[sid]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) >= rl.limit {
		rl.history[sid] = fresh
		return false
	}
	fresh = append(fresh, now)
	rl.history[sid] = fresh
	return true
}

// Forget drops a session's history when it leaves the room.
func (rl *sessionRateLimiter) Forget(sid domain.SessionID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.history, sid)
}
