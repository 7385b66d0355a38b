package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// RateLimit caps requests per authenticated user (falling back to client IP)
// within the window, using a redis counter with expiry so limits hold across
// instances. With no redis configured the limiter is a pass-through.
func RateLimit(rdb *redis.Client, scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		id := UserID(c)
		if id == "" {
			id = c.ClientIP()
		}
		key := "rate-limit:" + scope + ":" + id

		count, err := rdb.Incr(c.Request.Context(), key).Result()
		if err != nil {
			// Rate limiting is protective, not load-bearing. Let the
			// request through if redis is down.
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(c.Request.Context(), key, window)
		}
		if count > int64(limit) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, slow down"})
			c.Abort()
			return
		}
		c.Next()
	}
}
