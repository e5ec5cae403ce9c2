package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// rateLimitKeyPrefix namespaces limiter counters in Redis so they can't
// collide with keys owned by other parts of the application.
const rateLimitKeyPrefix = "ratelimit:"

// RateLimit returns middleware that limits requests per client IP to
// maxRequests within the given window. Counters live in Redis so the limit
// holds across replicas and restarts. Returns 429 when exceeded.
//
// The name parameter separates counters per endpoint group, so hammering
// /auth/login does not consume the /auth/register budget.
//
// If Redis is unavailable the limiter fails open: throttling is protection
// for the credential endpoints, not a correctness requirement, and refusing
// all logins during a Redis outage would be worse.
func RateLimit(rdb *redis.Client, name string, maxRequests int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := fmt.Sprintf("%s%s:%s", rateLimitKeyPrefix, name, c.RealIP())
			ctx := c.Request().Context()

			// INCR + EXPIRE as a pipeline: the first hit in a window creates
			// the counter and arms its TTL atomically enough for this use.
			pipe := rdb.TxPipeline()
			incr := pipe.Incr(ctx, key)
			pipe.ExpireNX(ctx, key, window)
			if _, err := pipe.Exec(ctx); err != nil {
				slog.Warn("rate limiter unavailable, allowing request",
					slog.String("limiter", name),
					slog.Any("error", err),
				)
				return next(c)
			}

			if incr.Val() > int64(maxRequests) {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error":   "Too Many Requests",
					"message": "Rate limit exceeded. Please try again later.",
				})
			}

			return next(c)
		}
	}
}
