package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// ttlLimiterCache is a simple TTL map for per-key limiters with opportunistic sweeping.
type ttlLimiterCache struct {
	mu        sync.Mutex
	items     map[string]*limiterEntry
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newTTLLimiterCache(ttl time.Duration) *ttlLimiterCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ttlLimiterCache{items: make(map[string]*limiterEntry), ttl: ttl, now: time.Now}
}

func (c *ttlLimiterCache) get(key string, makeFn func() *rate.Limiter) *rate.Limiter {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok {
		e.lastSeen = now
		return e.lim
	}
	lim := makeFn()
	c.items[key] = &limiterEntry{lim: lim, lastSeen: now}
	if c.lastSweep.IsZero() || now.Sub(c.lastSweep) > 2*time.Minute {
		c.sweepLocked(now)
		c.lastSweep = now
	}
	return lim
}

func (c *ttlLimiterCache) sweepLocked(now time.Time) {
	for k, e := range c.items {
		if now.Sub(e.lastSeen) > c.ttl {
			delete(c.items, k)
		}
	}
}

func (c *ttlLimiterCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// RateLimiter limits each client IP to rps with the given burst. Used on the
// credential endpoints to slow down password guessing.
func RateLimiter(rps float64, burst int) gin.HandlerFunc {
	if burst <= 0 {
		burst = 1
	}
	cache := newTTLLimiterCache(15 * time.Minute)
	return func(c *gin.Context) {
		li := cache.get(c.ClientIP(), func() *rate.Limiter { return rate.NewLimiter(rate.Limit(rps), burst) })
		if !li.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message": "Too many attempts, try again later",
				"code":    "rate_limited",
			})
			return
		}
		c.Next()
	}
}
