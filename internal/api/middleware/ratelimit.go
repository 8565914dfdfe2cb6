package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimit returns a fixed-window per-client rate limiting middleware.
// Clients are keyed by API key header when present, client IP otherwise.
func RateLimit(requestsPerHour int) gin.HandlerFunc {
	type window struct {
		start time.Time
		count int
	}

	var mu sync.Mutex
	windows := make(map[string]*window)

	return func(c *gin.Context) {
		key := c.GetHeader("X-API-Key")
		if key == "" {
			key = c.ClientIP()
		}
		now := time.Now()

		mu.Lock()
		w, ok := windows[key]
		if !ok || now.Sub(w.start) >= time.Hour {
			w = &window{start: now}
			windows[key] = w
		}
		w.count++
		over := w.count > requestsPerHour
		mu.Unlock()

		if over {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}
