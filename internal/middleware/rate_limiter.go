package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Limiter decides whether a client may make another request
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, remaining int, err error)
	Limit() int
	Period() time.Duration
}

// RateLimiter implements a simple in-memory token bucket rate limiter
type RateLimiter struct {
	mu           sync.Mutex
	tokens       map[string]int
	lastRefill   map[string]time.Time
	maxTokens    int
	refillRate   int           // tokens per refill
	refillPeriod time.Duration // how often to refill
	now          func() time.Time
}

// NewRateLimiter creates a new rate limiter
// maxTokens: maximum tokens per client
// refillRate: how many tokens to add per refill period
// refillPeriod: how often to refill tokens
func NewRateLimiter(maxTokens, refillRate int, refillPeriod time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:       make(map[string]int),
		lastRefill:   make(map[string]time.Time),
		maxTokens:    maxTokens,
		refillRate:   refillRate,
		refillPeriod: refillPeriod,
		now:          time.Now,
	}
}

// NewPerMinuteLimiter allows perMinute requests per client per minute,
// refilled in full each minute
func NewPerMinuteLimiter(perMinute int) *RateLimiter {
	return NewRateLimiter(perMinute, perMinute, time.Minute)
}

// Allow checks if a request should be allowed for the given key
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	// Initialize if first time
	if _, exists := rl.tokens[key]; !exists {
		rl.tokens[key] = rl.maxTokens
		rl.lastRefill[key] = now
	}

	// Refill tokens
	elapsed := now.Sub(rl.lastRefill[key])
	refills := int(elapsed / rl.refillPeriod)
	if refills > 0 {
		rl.tokens[key] += refills * rl.refillRate
		if rl.tokens[key] > rl.maxTokens {
			rl.tokens[key] = rl.maxTokens
		}
		rl.lastRefill[key] = rl.lastRefill[key].Add(time.Duration(refills) * rl.refillPeriod)
	}

	if rl.tokens[key] > 0 {
		rl.tokens[key]--
		return true, rl.tokens[key], nil
	}

	return false, 0, nil
}

// Limit returns the bucket size
func (rl *RateLimiter) Limit() int { return rl.maxTokens }

// Period returns the refill period
func (rl *RateLimiter) Period() time.Duration { return rl.refillPeriod }

// WindowCounter counts hits per key in fixed windows. *database.Redis
// implements it.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisRateLimiter is a fixed-window limiter shared by every API instance
type RedisRateLimiter struct {
	counter WindowCounter
	limit   int
	window  time.Duration
}

// NewRedisRateLimiter allows limit requests per key per window
func NewRedisRateLimiter(counter WindowCounter, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{counter: counter, limit: limit, window: window}
}

// Allow implements Limiter
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	n, err := rl.counter.IncrWindow(ctx, key, rl.window)
	if err != nil {
		return false, 0, err
	}
	remaining := rl.limit - int(n)
	if remaining < 0 {
		return false, 0, nil
	}
	return true, remaining, nil
}

// Limit returns the number of requests per window
func (rl *RedisRateLimiter) Limit() int { return rl.limit }

// Period returns the window length
func (rl *RedisRateLimiter) Period() time.Duration { return rl.window }

// RateLimitMiddleware limits requests per client IP. When the limiter
// itself fails the request is let through.
func RateLimitMiddleware(rl Limiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		allowed, remaining, err := rl.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Warn("rate limiter unavailable, allowing request", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Set(rateLimitRemainingKey, remaining)

		if !allowed {
			RespondErrorWithRetry(c, http.StatusTooManyRequests, ErrCodeRateLimited,
				"Too many requests, please try again later", int(rl.Period().Milliseconds()))
			return
		}

		c.Next()
	}
}
