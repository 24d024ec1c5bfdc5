package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/prepdeck/prepdeck-api/internal/api/shared"
)

// rateLimiterIdleTTL is how long a user's limiter survives without traffic
// before the cleanup loop drops it.
const rateLimiterIdleTTL = 10 * time.Minute

// userLimiter pairs a token bucket with its last access time.
type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter enforces a per-user request budget on the API group. Each
// user gets an independent token bucket; idle buckets are dropped by a
// background cleanup loop.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[uuid.UUID]*userLimiter

	stopCh chan struct{}
}

// NewRateLimiter creates a per-user rate limiter allowing perMinute requests
// per minute, with a burst of the same size. A perMinute of zero disables
// limiting entirely.
func NewRateLimiter(perMinute int) *RateLimiter {
	rl := &RateLimiter{
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
		limiters: make(map[uuid.UUID]*userLimiter),
		stopCh:   make(chan struct{}),
	}

	if perMinute > 0 {
		go rl.cleanupLoop()
	}

	return rl
}

// Stop terminates the background cleanup goroutine.
func (rl *RateLimiter) Stop() {
	select {
	case <-rl.stopCh:
	default:
		close(rl.stopCh)
	}
}

// Middleware returns the rate-limiting middleware. It must run after the
// auth middleware, which puts the user ID on the context.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl.burst <= 0 {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserID(r)
		if !ok {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found")
			return
		}

		if !rl.limiterFor(userID).Allow() {
			slog.Warn("rate limit exceeded",
				slog.String("user_id", userID.String()),
				slog.String("path", r.URL.Path))
			shared.RespondWithError(w, r, http.StatusTooManyRequests, "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) limiterFor(userID uuid.UUID) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	ul, ok := rl.limiters[userID]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[userID] = ul
	}
	ul.lastAccess = time.Now()
	return ul.limiter
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rateLimiterIdleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-rateLimiterIdleTTL)
			rl.mu.Lock()
			for id, ul := range rl.limiters {
				if ul.lastAccess.Before(cutoff) {
					delete(rl.limiters, id)
				}
			}
			rl.mu.Unlock()
		}
	}
}
