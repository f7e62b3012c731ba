package mw

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// DefaultClientIdle is how long an unused client bucket is kept.
const DefaultClientIdle = 10 * time.Minute

// ClientRateLimiter keeps one token bucket per client IP. Buckets idle for
// longer than the idle window are evicted.
type ClientRateLimiter struct {
	clients *cache.Cache
	mu      sync.Mutex
	r       rate.Limit
	b       int
}

// NewClientRateLimiter creates a limiter allowing r requests per second with
// burst b for every client.
func NewClientRateLimiter(r rate.Limit, b int, idle time.Duration) *ClientRateLimiter {
	return &ClientRateLimiter{
		clients: cache.New(idle, idle),
		r:       r,
		b:       b,
	}
}

// Limiter returns the bucket of a client, creating it on first use. Every
// lookup restarts the client's idle window.
func (l *ClientRateLimiter) Limiter(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.lookup(client)
	if !ok {
		limiter = rate.NewLimiter(l.r, l.b)
	}
	l.clients.SetDefault(client, limiter)
	return limiter
}

func (l *ClientRateLimiter) lookup(client string) (*rate.Limiter, bool) {
	v, ok := l.clients.Get(client)
	if !ok {
		return nil, false
	}
	limiter, ok := v.(*rate.Limiter)
	return limiter, ok
}

// Middleware rejects requests over the client's budget with 429.
func (l *ClientRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Limiter(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
