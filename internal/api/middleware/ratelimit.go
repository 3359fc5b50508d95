package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/suatgpt/suatgpt-backend/internal/core/ports"
	"github.com/suatgpt/suatgpt-backend/internal/pkg/metrics"
)

// RateLimit rejects callers that exceed limiter's budget with 429. Signed-in
// users are keyed by name and everyone else by client IP. Limiter errors are
// logged and the request is let through.
func RateLimit(limiter ports.RateLimiter, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "ip:" + c.RealIP()
			if user := Identity(c); user != nil && !user.IsAnonymous() {
				key = "user:" + user.Username
			}

			ok, retryAfter, err := limiter.Allow(c.Request().Context(), key)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, allowing request")
				return next(c)
			}
			if !ok {
				metrics.RateLimitedTotal.Inc()
				log.Warn().Str("key", key).Dur("retry_after", retryAfter).Msg("rate limit exceeded")
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests, slow down.")
			}
			return next(c)
		}
	}
}
