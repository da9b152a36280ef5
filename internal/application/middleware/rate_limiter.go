package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bivex/paywall-purchases/internal/interfaces/http/response"
)

// AppUserIDHeader identifies the calling app user for rate limiting
const AppUserIDHeader = "X-App-User-ID"

// KeyFunc extracts the rate limiting key from a request. An empty key
// skips rate limiting.
type KeyFunc func(*gin.Context) string

// RateLimiter limits requests per key using Redis (GCRA via redis_rate)
type RateLimiter struct {
	limiter  *redis_rate.Limiter
	logger   *zap.Logger
	failOpen bool // if true, allow requests when Redis is unavailable
	prefix   string
}

// NewRateLimiter creates a new rate limiter. Keys are stored under prefix.
func NewRateLimiter(redisClient *redis.Client, prefix string, failOpen bool, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &RateLimiter{
		limiter:  redis_rate.NewLimiter(redisClient),
		logger:   logger,
		failOpen: failOpen,
		prefix:   prefix + "ratelimit:",
	}
}

// PerMinute returns a limit of n requests per minute with a burst of n
func PerMinute(n int) redis_rate.Limit {
	return redis_rate.PerMinute(n)
}

// Middleware returns a gin middleware enforcing limit per key
func (r *RateLimiter) Middleware(keyFunc KeyFunc, limit redis_rate.Limit) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)
		if key == "" {
			c.Next()
			return
		}

		res, err := r.limiter.Allow(c.Request.Context(), r.prefix+key, limit)
		if err != nil {
			r.logger.Error("Rate limiter error", zap.String("key", key), zap.Error(err))
			if r.failOpen {
				c.Next()
				return
			}
			response.ServiceUnavailable(c, "Rate limiting unavailable")
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.ResetAfter).Unix(), 10))

		if res.Allowed == 0 {
			r.logger.Debug("Rate limit exceeded", zap.String("key", key))
			response.RateLimited(c, res.RetryAfter)
			c.Abort()
			return
		}

		c.Next()
	}
}

// ByIP limits requests by client IP address
func ByIP(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// ByAppUserID limits requests by the app user id header, falling back to IP
func ByAppUserID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(AppUserIDHeader)); id != "" {
		return "user:" + id
	}
	return ByIP(c)
}

// ByAppUserIDAndRoute limits requests per app user and route
func ByAppUserIDAndRoute(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return ByAppUserID(c) + ":route:" + route
}
