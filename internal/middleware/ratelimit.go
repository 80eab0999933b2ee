package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/errors"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/logger"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/response"
)

// RateLimitOption customises RateLimit.
type RateLimitOption func(*rateLimitConfig)

type rateLimitConfig struct {
	prefix     string
	onThrottle func(*gin.Context)
}

// WithKeyPrefix namespaces the counters, letting several limiters share one store.
func WithKeyPrefix(prefix string) RateLimitOption {
	return func(cfg *rateLimitConfig) {
		cfg.prefix = prefix
	}
}

// WithThrottleHook runs fn for every rejected request.
func WithThrottleHook(fn func(*gin.Context)) RateLimitOption {
	return func(cfg *rateLimitConfig) {
		cfg.onThrottle = fn
	}
}

// RateLimit limits requests per (clientIP,path) within a fixed window. Counters live
// in store so limits hold across instances when store is shared. Store failures let
// the request through.
func RateLimit(store RateStore, maxRequests int, window time.Duration, opts ...RateLimitOption) gin.HandlerFunc {
	cfg := rateLimitConfig{prefix: "ratelimit:"}
	for _, opt := range opts {
		opt(&cfg)
	}
	log := logger.WithModule("ratelimit")

	return func(c *gin.Context) {
		if store == nil || maxRequests <= 0 || window <= 0 {
			c.Next()
			return
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		key := cfg.prefix + c.ClientIP() + "|" + path

		count, resetIn, err := store.Increment(c.Request.Context(), key, window)
		if err != nil {
			log.Warn("rate limit store failed", zap.String("path", path), zap.Error(err))
			c.Next()
			return
		}

		remaining := maxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(resetIn.Seconds())))

		if count > maxRequests {
			if cfg.onThrottle != nil {
				cfg.onThrottle(c)
			}
			c.Header("Retry-After", strconv.Itoa(int(resetIn.Seconds())+1))
			response.Error(c, errors.ErrRateLimit)
			c.Abort()
			return
		}

		c.Next()
	}
}
