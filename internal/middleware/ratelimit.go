package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"imaginify/internal/apperror"
	"imaginify/internal/ratelimit"

	"github.com/rs/zerolog"
)

// RateLimiter decides whether subject may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, subject string) (ratelimit.Decision, error)
}

// RateLimitMiddleware limits authenticated callers per route. It must run
// after AuthMiddleware. A nil limiter disables limiting; limiter errors let
// the request through.
func RateLimitMiddleware(limiter RateLimiter, route string, onReject func(route string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, ok := UserFromContext(r.Context())
			if !ok {
				subject = "anonymous"
			}
			decision, err := limiter.Allow(r.Context(), subject+":"+route)
			if err != nil {
				zerolog.Ctx(r.Context()).Error().Err(err).Str("route", route).Msg("Rate limiter check failed")
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
			if decision.Allowed {
				next.ServeHTTP(w, r)
				return
			}
			retryAfter := int(decision.RetryAfter.Round(time.Second).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			if onReject != nil {
				onReject(route)
			}
			WriteError(w, apperror.RateLimited(), nil)
		})
	}
}
