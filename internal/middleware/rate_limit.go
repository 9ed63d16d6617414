// internal/middleware/rate_limit.go
package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/ludora/ludora-backend/internal/utils"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit enforces a per-client token bucket keyed by IP, or by user id
// when authenticated. Stale buckets are swept every few minutes.
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	var mtx sync.Mutex
	clients := make(map[string]*clientLimiter)

	go func() {
		for range time.Tick(5 * time.Minute) {
			mtx.Lock()
			for key, client := range clients {
				if time.Since(client.lastSeen) > 10*time.Minute {
					delete(clients, key)
				}
			}
			mtx.Unlock()
		}
	}()

	return func(c *gin.Context) {
		key := c.ClientIP()
		if userID, ok := utils.GetUserIDFromContext(c); ok {
			key = userID
		}

		mtx.Lock()
		client, exists := clients[key]
		if !exists {
			client = &clientLimiter{limiter: rate.NewLimiter(rps, burst)}
			clients[key] = client
		}
		client.lastSeen = time.Now()
		mtx.Unlock()

		if !client.limiter.Allow() {
			utils.TooManyRequestsResponse(c, "Too many requests, slow down")
			c.Abort()
			return
		}

		c.Next()
	}
}

// LinkTeacherRateLimit guards the invitation-code redemption endpoint
// against code guessing: a handful of attempts per minute per client.
func LinkTeacherRateLimit() gin.HandlerFunc {
	return RateLimit(rate.Every(12*time.Second), 5)
}
