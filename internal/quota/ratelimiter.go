// Package quota limits how many API requests each employee may make.
package quota

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per user.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*userLimiter
	rpm      int
	now      func() time.Time
}

type userLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing rpm requests per minute per
// user, with bursts of up to rpm. rpm=0 means unlimited.
func NewRateLimiter(rpm int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*userLimiter),
		rpm:      rpm,
		now:      time.Now,
	}
}

// Allow checks if a request from the given user should be allowed.
func (rl *RateLimiter) Allow(userID string) bool {
	if rl.rpm <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	ul, ok := rl.limiters[userID]
	if !ok {
		ul = &userLimiter{lim: rate.NewLimiter(rate.Limit(float64(rl.rpm)/60.0), rl.rpm)}
		rl.limiters[userID] = ul
	}
	ul.lastSeen = now
	return ul.lim.AllowN(now, 1)
}

// RetryAfter returns the number of seconds until the next token is available.
func (rl *RateLimiter) RetryAfter(userID string) int {
	if rl.rpm <= 0 {
		return 0
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	ul, ok := rl.limiters[userID]
	if !ok {
		return 0
	}
	tokens := ul.lim.TokensAt(rl.now())
	if tokens >= 1 {
		return 0
	}
	seconds := (1 - tokens) / float64(ul.lim.Limit())
	return int(math.Ceil(seconds))
}

// Cleanup removes limiters for users that haven't been seen recently.
func (rl *RateLimiter) Cleanup(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-maxAge)
	for userID, ul := range rl.limiters {
		if ul.lastSeen.Before(cutoff) {
			delete(rl.limiters, userID)
		}
	}
}

// Len returns the number of tracked users.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}
