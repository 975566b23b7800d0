package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/polling-service/internal/persistence"
	apperrors "github.com/spec-kit/polling-service/pkg/util"
)

// RateLimiter issues fixed-window limits per client IP, backed by Redis
// so the window survives restarts and is shared across replicas. When
// Redis is unreachable the limiter fails open: throttling is protection,
// not correctness.
type RateLimiter struct {
	redis  *persistence.Redis
	logger *zap.Logger
}

// NewRateLimiter constructs the limiter.
func NewRateLimiter(redis *persistence.Redis, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{redis: redis, logger: logger}
}

// Limit returns a middleware allowing max requests per window for a scope.
func (rl *RateLimiter) Limit(scope string, max int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rl.redis == nil || rl.redis.Client == nil {
			return c.Next()
		}

		key := fmt.Sprintf("ratelimit:%s:%s", scope, c.IP())
		ctx := c.UserContext()

		count, err := rl.redis.Client.Incr(ctx, key).Result()
		if err != nil {
			rl.logger.Warn("rate limiter unavailable, allowing request",
				zap.String("scope", scope), zap.Error(err))
			return c.Next()
		}
		if count == 1 {
			if err := rl.redis.Client.Expire(ctx, key, window).Err(); err != nil {
				rl.logger.Warn("rate limiter expire failed",
					zap.String("scope", scope), zap.Error(err))
			}
		}
		if count > int64(max) {
			return apperrors.NewRateLimited("too many requests, please try again later")
		}
		return c.Next()
	}
}
