package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vecinal/backend/pkg/apperr"
	"github.com/vecinal/backend/pkg/response"
)

// Endpoint classes for rate limiting.
const (
	ClassAuth    = "auth"
	ClassQR      = "qr"
	ClassGeneral = "general"
)

// RateLimiter enforces a sliding-window request count per (class, client IP)
// backed by Redis sorted sets, so limits hold across processes.
type RateLimiter struct {
	client *redis.Client
	window time.Duration
	limits map[string]int
	logger *zap.Logger
}

// NewRateLimiter creates a rate limiter with per-class limits.
func NewRateLimiter(client *redis.Client, windowSeconds, authLimit, qrLimit, generalLimit int, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		client: client,
		window: time.Duration(windowSeconds) * time.Second,
		limits: map[string]int{
			ClassAuth:    authLimit,
			ClassQR:      qrLimit,
			ClassGeneral: generalLimit,
		},
		logger: logger,
	}
}

// Limit returns a middleware enforcing the limit for the given class.
func (rl *RateLimiter) Limit(class string) gin.HandlerFunc {
	limit, ok := rl.limits[class]
	if !ok {
		limit = rl.limits[ClassGeneral]
	}
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s:%s", class, c.ClientIP())
		now := time.Now()
		windowStart := now.Add(-rl.window)

		pipe := rl.client.TxPipeline()
		pipe.ZRemRangeByScore(c.Request.Context(), key,
			"0", strconv.FormatInt(windowStart.UnixNano(), 10))
		pipe.ZAdd(c.Request.Context(), key, redis.Z{
			Score:  float64(now.UnixNano()),
			Member: now.UnixNano(),
		})
		count := pipe.ZCard(c.Request.Context(), key)
		pipe.Expire(c.Request.Context(), key, rl.window)
		if _, err := pipe.Exec(c.Request.Context()); err != nil {
			// Limiter outage must not take down the API.
			rl.logger.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		if int(count.Val()) > limit {
			retryAfter := int(rl.window.Seconds())
			response.AbortError(c, apperr.RateLimited(retryAfter))
			return
		}
		c.Next()
	}
}
