package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"viewfilter/pkg/errors"
	"viewfilter/pkg/metrics"
)

type limiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimitConfig struct {
	RPS             float64
	Burst           int
	CleanupInterval time.Duration
	MaxAge          time.Duration
	// KeyFunc picks the bucket for a request. Defaults to the client IP.
	KeyFunc func(c *gin.Context) string
}

func DefaultConfig() RateLimitConfig {
	return RateLimitConfig{
		RPS:             10.0,
		Burst:           20,
		CleanupInterval: 5 * time.Minute,
		MaxAge:          10 * time.Minute,
	}
}

type registry struct {
	mu       sync.Mutex
	limiters map[string]*limiter
	cfg      RateLimitConfig
}

func (r *registry) get(key string, now time.Time) *limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.limiters[key]
	if !ok {
		l = &limiter{limiter: rate.NewLimiter(rate.Limit(r.cfg.RPS), r.cfg.Burst)}
		r.limiters[key] = l
	}
	l.lastSeen = now
	return l
}

func (r *registry) evict(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, l := range r.limiters {
		if now.Sub(l.lastSeen) > r.cfg.MaxAge {
			delete(r.limiters, key)
		}
	}
}

// RateLimitMiddleware limits requests per key. Idle buckets are evicted
// until ctx is done.
func RateLimitMiddleware(ctx context.Context, cfg RateLimitConfig) gin.HandlerFunc {
	defaults := DefaultConfig()
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaults.CleanupInterval
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaults.MaxAge
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string {
			if ip := c.ClientIP(); ip != "" {
				return ip
			}
			return c.RemoteIP()
		}
	}

	reg := &registry{limiters: make(map[string]*limiter), cfg: cfg}

	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				reg.evict(now)
			}
		}
	}()

	limit := strconv.Itoa(int(cfg.RPS))

	return func(c *gin.Context) {
		l := reg.get(cfg.KeyFunc(c), time.Now())
		c.Header("X-RateLimit-Limit", limit)

		if !l.limiter.Allow() {
			metrics.RateLimitRequestsTotal.WithLabelValues("limited").Inc()
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errors.ErrorResponse{
				Error:     "rate limit exceeded",
				ErrorCode: "RATE_LIMIT_EXCEEDED",
			})
			return
		}

		metrics.RateLimitRequestsTotal.WithLabelValues("allowed").Inc()

		remaining := int(l.limiter.Tokens())
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		c.Next()
	}
}
