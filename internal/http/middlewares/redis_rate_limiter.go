package middlewares

import (
	"time"

	"github.com/clubstack/memberhub/internal/redisclient"
	"github.com/gin-gonic/gin"
)

// RedisRateLimiter enforces the same fixed-window policy as RateLimiter but
// shares the counters across processes. On redis errors it fails open.
type RedisRateLimiter struct {
	client *redisclient.Client
	limit  int64
	window time.Duration
	prefix string
}

func NewRedisRateLimiter(client *redisclient.Client, limit int, window time.Duration, prefix string) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
		prefix: prefix,
	}
}

func (rl *RedisRateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			key = clientIP(c)
		}

		count, err := rl.client.IncrWindow(c.Request.Context(), rl.prefix+":"+key, rl.window)

		if err != nil {
			// a broken limiter must not take the endpoint down
			c.Next()
			return
		}

		if count > rl.limit {
			abortRateLimited(c, int(rl.window.Seconds()))
			return
		}

		c.Next()
	}
}
