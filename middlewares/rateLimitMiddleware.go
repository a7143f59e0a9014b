package middlewares

import (
	"fmt"
	"net/http"
	"time"

	"bitbucket.org/mmdatafocus/ledger_analytics/config"
	"bitbucket.org/mmdatafocus/ledger_analytics/utils"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window request counter kept in redis, keyed by
// business when the request carries one and by client IP otherwise.
type RateLimiter struct {
	client func() *redis.Client
	limit  int64
	window time.Duration
}

// NewRateLimiter uses the process redis client; requests pass through
// unlimited while redis is not connected.
func NewRateLimiter(limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: config.GetRedisDB,
		limit:  limit,
		window: window,
	}
}

func (rl *RateLimiter) key(c *gin.Context) string {
	if businessId, ok := utils.GetBusinessIdFromContext(c.Request.Context()); ok && businessId != "" {
		return "RateLimit:business:" + businessId
	}
	return "RateLimit:ip:" + c.ClientIP()
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := rl.client()
		if client == nil {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		key := rl.key(c)

		count, err := client.Incr(ctx, key).Result()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		if count == 1 {
			if err := client.Expire(ctx, key, rl.window).Err(); err != nil {
				c.AbortWithError(http.StatusInternalServerError, err)
				return
			}
		}

		if count > rl.limit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
			})
			return
		}
		c.Next()
	}
}
