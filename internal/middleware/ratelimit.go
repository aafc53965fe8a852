package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter keeps a token bucket per client IP. Idle buckets are
// dropped after an hour so the map does not grow unbounded.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	rate     rate.Limit
	burst    int
	lifetime time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		clients:  make(map[string]*clientLimiter),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		lifetime: time.Hour,
	}
	go rl.evictLoop()
	return rl
}

func (rl *RateLimiter) evictLoop() {
	for {
		time.Sleep(10 * time.Minute)
		rl.mu.Lock()
		cutoff := time.Now().Add(-rl.lifetime)
		for ip, client := range rl.clients {
			if client.lastSeen.Before(cutoff) {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	client, ok := rl.clients[ip]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[ip] = client
	}
	client.lastSeen = time.Now()
	return client.limiter.Allow()
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
