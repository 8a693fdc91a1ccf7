package quota

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/fruitsalade/docportal/internal/metrics"
	"github.com/fruitsalade/docportal/pkg/protocol"
)

// UserIDFromContext extracts the caller from the request context.
// This function type allows decoupling from the auth package.
type UserIDFromContext func(ctx context.Context) (userID string, ok bool)

// RateLimitMiddleware returns middleware that enforces per-user rate limits.
func RateLimitMiddleware(limiter *RateLimiter, getUser UserIDFromContext) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := getUser(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(userID) {
				metrics.RecordRateLimitHit()
				w.Header().Set("Retry-After", strconv.Itoa(limiter.RetryAfter(userID)))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(protocol.ErrorResponse{
					Error: "rate limit exceeded",
					Code:  http.StatusTooManyRequests,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
