package mw

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimiters keeps one token bucket per client IP.
type clientLimiters struct {
	mu      sync.Mutex
	clients map[string]*rate.Limiter
	r       rate.Limit
	b       int
}

func (c *clientLimiters) get(ip string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	limiter, ok := c.clients[ip]
	if !ok {
		limiter = rate.NewLimiter(c.r, c.b)
		c.clients[ip] = limiter
	}
	return limiter
}

// RateLimit is a middleware enforcing a per-IP request rate on the
// read-only API.
func RateLimit(r rate.Limit, burst int) gin.HandlerFunc {
	limiters := &clientLimiters{
		clients: make(map[string]*rate.Limiter),
		r:       r,
		b:       burst,
	}
	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP()).Allow() {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}
