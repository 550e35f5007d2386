// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// Edge rate limiting. Two limiters live here, both distinct from the durable
// per-sender window enforced inside the submission transaction:
//
//   - RateLimiter: process-local token buckets (golang.org/x/time/rate) keyed
//     by client IP, for cheap abuse control on every route.
//   - RedisWindowLimiter: an optional Redis-backed fixed window shared across
//     replicas, falling back to the local limiter when Redis is unreachable.
//
// Neither limiter is an authorization mechanism; both exist to shed load
// before the database is touched.
package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// keyFunc selects the identity used to key a rate-limit bucket.
type keyFunc func(*gin.Context) string

// KeyByIP keys buckets by client IP. The prefix keeps the namespace distinct
// from any future identity-based keys.
func KeyByIP() keyFunc {
	return func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}
}

// visitor holds a single bucket and the last time it was seen, for eviction.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements per-key token buckets with opportunistic GC of idle
// entries. Safe for concurrent use.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	keyFn    keyFunc
	mu       sync.Mutex
	visitors map[string]*visitor

	ttl      time.Duration
	cleanupN uint64
}

// NewRateLimiter constructs a RateLimiter with the given tokens-per-second
// and burst size, keyed by keyFn. burst values <= 0 are coerced to 1.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
	}
}

// getVisitor returns the limiter for key, creating it if absent. GC runs
// before the fetch so a stale bucket can be evicted even when it is the one
// being requested.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	rl.cleanupN++
	if rl.cleanupN >= 5000 {
		for k, vv := range rl.visitors {
			if now.Sub(vv.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.cleanupN = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		lim := v.limiter
		rl.mu.Unlock()
		return lim
	}

	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	rl.mu.Unlock()
	return lim
}

// IsRateBypass reports whether IdempotencyValidator marked this request as a
// replay of a completed operation. Replays are served without tokens.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler returns a Gin middleware enforcing the per-key token buckets.
// Rejections get a 429 with a compact JSON body and Retry-After: 1.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		key := rl.keyFn(c)
		if rl.getVisitor(key).Allow() {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}

// windowAllowScript increments the window counter and sets its expiry on
// first touch, atomically. Returns 1 while under the limit.
var windowAllowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

// RedisWindowLimiter enforces a fixed window shared across replicas. When
// Redis errors or is not configured, it falls back to the local limiter so a
// Redis outage degrades to per-process limiting instead of an open gate.
type RedisWindowLimiter struct {
	client    *redis.Client
	keyPrefix string
	limit     int
	window    time.Duration
	fallback  *RateLimiter
	timeout   time.Duration
	keyFn     keyFunc
}

// NewRedisWindowLimiter constructs a RedisWindowLimiter. client may be nil,
// in which case every request goes through fallback.
func NewRedisWindowLimiter(client *redis.Client, keyPrefix string, limit int, window time.Duration, fallback *RateLimiter, keyFn keyFunc) *RedisWindowLimiter {
	return &RedisWindowLimiter{
		client:    client,
		keyPrefix: keyPrefix,
		limit:     limit,
		window:    window,
		fallback:  fallback,
		timeout:   800 * time.Millisecond,
		keyFn:     keyFn,
	}
}

// Allow reports whether the identity may proceed in the current window.
func (l *RedisWindowLimiter) Allow(c *gin.Context) bool {
	key := l.keyFn(c)
	if l.client == nil {
		return l.fallback.getVisitor(key).Allow()
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	fullKey := l.keyPrefix + ":rate:" + key
	windowMillis := l.window.Milliseconds()
	if windowMillis <= 0 {
		windowMillis = 1
	}

	result, err := windowAllowScript.Run(ctx, l.client, []string{fullKey}, l.limit, windowMillis).Int()
	if err != nil {
		return l.fallback.getVisitor(key).Allow()
	}
	return result == 1
}

// Handler returns a Gin middleware enforcing the shared window.
func (l *RedisWindowLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}
		if l.Allow(c) {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
