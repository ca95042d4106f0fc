package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dszwed/wp-blueprints/internal/logger"
	"github.com/dszwed/wp-blueprints/internal/metrics"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig allows Limit requests per Window for every caller
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// RateLimiter keeps one token bucket per caller. Callers are keyed by user
// id when authenticated, by client IP otherwise.
type RateLimiter struct {
	cfg     RateLimitConfig
	metrics *metrics.Metrics
	now     func() time.Time

	mu        sync.Mutex
	clients   map[string]*rateClient
	lastSweep time.Time
}

type rateClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter for cfg
func NewRateLimiter(cfg RateLimitConfig, m *metrics.Metrics) *RateLimiter {
	if cfg.Limit < 1 {
		cfg.Limit = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &RateLimiter{
		cfg:     cfg,
		metrics: m,
		now:     time.Now,
		clients: make(map[string]*rateClient),
	}
}

// Middleware rejects callers that exhausted their budget with 429
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if id := UserID(c); id != "" {
			key = "user:" + id
		}

		now := rl.now()
		limiter := rl.limiterFor(key, now)

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Limit))

		r := limiter.ReserveN(now, 1)
		if delay := r.DelayFrom(now); delay > 0 {
			r.CancelAt(now)
			retryAfter := int(math.Ceil(delay.Seconds()))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			rl.metrics.RecordRateLimited()
			logger.WithFields(logger.Fields{
				"key":  key,
				"path": c.Request.URL.Path,
			}).Warn("Rate limit exceeded")

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "too_many_requests",
				"message": "Too many requests. Please try again later.",
			})
			return
		}

		remaining := int(math.Floor(limiter.TokensAt(now)))
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		c.Next()
	}
}

func (rl *RateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.sweep(now)

	client, ok := rl.clients[key]
	if !ok {
		every := rl.cfg.Window / time.Duration(rl.cfg.Limit)
		client = &rateClient{limiter: rate.NewLimiter(rate.Every(every), rl.cfg.Limit)}
		rl.clients[key] = client
	}
	client.lastSeen = now
	return client.limiter
}

// sweep drops callers idle for longer than a window, whose buckets are full
// again anyway; the caller holds rl.mu
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.cfg.Window {
		return
	}
	for key, client := range rl.clients {
		if now.Sub(client.lastSeen) > rl.cfg.Window {
			delete(rl.clients, key)
		}
	}
	rl.lastSweep = now
}

// Len returns the number of tracked callers
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}
