package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	appErrors "github.com/noah-isme/activity-log-api/pkg/errors"
	"github.com/noah-isme/activity-log-api/pkg/response"
)

// maxTrackedClients bounds the limiter map; it is reset when exceeded.
const maxTrackedClients = 10000

type limiterCache struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newLimiterCache(rps float64, burst int) *limiterCache {
	return &limiterCache{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

func (lc *limiterCache) get(key string) *rate.Limiter {
	lc.mu.RLock()
	limiter, exists := lc.limiters[key]
	lc.mu.RUnlock()
	if exists {
		return limiter
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	if limiter, exists = lc.limiters[key]; exists {
		return limiter
	}
	if len(lc.limiters) >= maxTrackedClients {
		lc.limiters = make(map[string]*rate.Limiter)
	}
	limiter = rate.NewLimiter(lc.rate, lc.burst)
	lc.limiters[key] = limiter
	return limiter
}

// RateLimit throttles requests per client IP. A non-positive rps disables it.
func RateLimit(rps float64, burst int, logger *zap.Logger) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := newLimiterCache(rps, burst)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !cache.get(ip).Allow() {
			logger.Warn("rate limit exceeded", zap.String("ip", ip), zap.String("path", c.FullPath()))
			response.Error(c, appErrors.ErrTooManyRequests)
			c.Abort()
			return
		}
		c.Next()
	}
}
